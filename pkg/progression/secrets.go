package progression

import (
	"academia/pkg/content"
)

// FirstNewlyUnlocked walks secrets in declared order and returns the
// first one whose requirements all hold and whose name is not already
// discovered, or nil. At most one secret is granted per chapter
// completion, so callers fold in only this one.
func FirstNewlyUnlocked(secrets []content.Secret, attributes map[string]int, clubID string, discovered []string) *content.Secret {
	known := make(map[string]bool, len(discovered))
	for _, name := range discovered {
		known[name] = true
	}

	for i := range secrets {
		secret := &secrets[i]
		if known[secret.Name] {
			continue
		}
		if !qualifies(secret, attributes, clubID) {
			continue
		}
		return secret
	}
	return nil
}

func qualifies(secret *content.Secret, attributes map[string]int, clubID string) bool {
	for attr, min := range secret.Requirements {
		if attributes[attr] < min {
			return false
		}
	}
	if secret.RequiredClub != "" && secret.RequiredClub != clubID {
		return false
	}
	return true
}
