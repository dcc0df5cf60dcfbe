package style

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-yaml"
	log "github.com/sirupsen/logrus"

	"github.com/attunehq/attune/internal/model"
)

// Templates holds the configurable phrasing used when composing messages.
// Count placeholders use %d, type placeholders use %s, in the documented
// order for each template.
type Templates struct {
	// DigestSingleType phrases a digest of one notification type: count, type.
	DigestSingleType string `yaml:"digest-single-type"`
	// DigestImportant phrases a mixed digest containing high-priority items:
	// total count, important count.
	DigestImportant string `yaml:"digest-important"`
	// DigestMixed phrases a mixed digest with no high-priority items:
	// total count, category count.
	DigestMixed string `yaml:"digest-mixed"`
	// CasualLexicon adds extra formal -> casual substitutions on top of the
	// built-in ones.
	CasualLexicon map[string]string `yaml:"casual-lexicon"`
}

// DefaultTemplates returns the built-in phrasing.
func DefaultTemplates() *Templates {
	return &Templates{
		DigestSingleType: "You have %d %s notifications.",
		DigestImportant:  "You have %d notifications, %d of them need attention.",
		DigestMixed:      "You have %d notifications across %d categories.",
	}
}

// Registry loads message templates from a YAML file and hot-reloads them
// when the file changes. Lookups return an immutable snapshot.
type Registry struct {
	path string

	mu      sync.RWMutex
	current *Templates

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewRegistry creates a template registry. An empty path keeps the built-in
// defaults with no file watching.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{
		path:    path,
		current: DefaultTemplates(),
		done:    make(chan struct{}),
	}

	if path == "" {
		return r, nil
	}

	if err := r.load(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create template watcher: %w", err)
	}
	// Watch the directory so editor rename-and-replace saves are seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch template directory: %w", err)
	}
	r.watcher = watcher

	r.wg.Add(1)
	go r.watchLoop()

	return r, nil
}

// Get returns the current template snapshot.
func (r *Registry) Get() *Templates {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Close stops the file watcher.
func (r *Registry) Close() error {
	close(r.done)
	var err error
	if r.watcher != nil {
		err = r.watcher.Close()
	}
	r.wg.Wait()
	return err
}

func (r *Registry) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read templates file: %w", err)
	}

	tpl := DefaultTemplates()
	if err := yaml.Unmarshal(data, tpl); err != nil {
		return fmt.Errorf("failed to parse templates file: %w", err)
	}

	r.mu.Lock()
	r.current = tpl
	r.mu.Unlock()
	return nil
}

func (r *Registry) watchLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.done:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(r.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := r.load(); err != nil {
				log.Warnf("Template reload failed: %v", err)
				continue
			}
			log.Debugf("Reloaded message templates from %s", r.path)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("Template watcher error: %v", err)
		}
	}
}

// AdaptWith applies the registry's extra casual lexicon after the standard
// adaptation. Substitutions run in sorted key order so output is stable.
func (r *Registry) AdaptWith(message string, cs model.CommunicationStyle) string {
	message = Adapt(message, cs)
	if cs.TonePreference != "casual" {
		return message
	}

	tpl := r.Get()
	keys := make([]string, 0, len(tpl.CasualLexicon))
	for from := range tpl.CasualLexicon {
		keys = append(keys, from)
	}
	sort.Strings(keys)
	for _, from := range keys {
		message = strings.ReplaceAll(message, from, tpl.CasualLexicon[from])
	}
	return message
}
