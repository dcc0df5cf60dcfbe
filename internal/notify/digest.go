package notify

import (
	"fmt"
	"sort"

	"github.com/attunehq/attune/internal/model"
	"github.com/attunehq/attune/internal/style"
)

// ComposeDigest summarizes pending notifications in one sentence, phrased
// through the same style adaptation as individual messages.
func (s *Scheduler) ComposeDigest(notifications []*Notification, m *model.UserModel) (*Digest, error) {
	if m == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}
	for _, n := range notifications {
		if err := n.Validate(); err != nil {
			return nil, fmt.Errorf("invalid notification: %w", err)
		}
	}
	if len(notifications) == 0 {
		return &Digest{Types: []string{}}, nil
	}

	typeSet := make(map[string]bool)
	important := 0
	for _, n := range notifications {
		typeSet[n.Type] = true
		if n.Priority == PriorityHigh || n.Priority == PriorityUrgent {
			important++
		}
	}

	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Strings(types)

	tpl := style.DefaultTemplates()
	if s.registry != nil {
		tpl = s.registry.Get()
	}

	var message string
	switch {
	case len(types) == 1:
		message = fmt.Sprintf(tpl.DigestSingleType, len(notifications), types[0])
	case important > 0:
		message = fmt.Sprintf(tpl.DigestImportant, len(notifications), important)
	default:
		message = fmt.Sprintf(tpl.DigestMixed, len(notifications), len(types))
	}

	return &Digest{
		Message: s.adaptMessage(message, m.Preferences.Communication),
		Count:   len(notifications),
		Types:   types,
	}, nil
}
