package style

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attunehq/attune/internal/model"
)

func TestNewRegistry_EmptyPathUsesDefaults(t *testing.T) {
	r, err := NewRegistry("")
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, DefaultTemplates(), r.Get())
}

func TestNewRegistry_LoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := `
digest-single-type: "%d new %s items"
casual-lexicon:
  moment: sec
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	r, err := NewRegistry(path)
	require.NoError(t, err)
	defer r.Close()

	tpl := r.Get()
	assert.Equal(t, "%d new %s items", tpl.DigestSingleType)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, DefaultTemplates().DigestMixed, tpl.DigestMixed)
	assert.Equal(t, "sec", tpl.CasualLexicon["moment"])
}

func TestNewRegistry_MissingFileKeepsDefaults(t *testing.T) {
	r, err := NewRegistry(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, DefaultTemplates(), r.Get())
}

func TestNewRegistry_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("digest-mixed: [oops\n"), 0644))

	_, err := NewRegistry(path)
	assert.Error(t, err)
}

func TestRegistry_HotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`digest-single-type: "first %d %s"`), 0644))

	r, err := NewRegistry(path)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, os.WriteFile(path, []byte(`digest-single-type: "second %d %s"`), 0644))

	require.Eventually(t, func() bool {
		return r.Get().DigestSingleType == "second %d %s"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestAdaptWith_CasualLexicon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := `
casual-lexicon:
  utilize: use
  notifications: pings
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	r, err := NewRegistry(path)
	require.NoError(t, err)
	defer r.Close()

	casual := model.CommunicationStyle{TonePreference: "casual"}
	got := r.AdaptWith("You have 3 notifications. Please utilize the digest.", casual)
	assert.Equal(t, "You have 3 pings. Please use the digest.", got)

	// The lexicon only applies to casual users.
	formal := model.CommunicationStyle{TonePreference: "formal"}
	got = r.AdaptWith("You have 3 notifications.", formal)
	assert.Equal(t, "You have 3 notifications.", got)
}
