package revision

import (
	"fmt"
	"path"
	"strings"
)

// Naming is the fixed key convention shared by every revision of one artifact.
type Naming struct {
	Prefix    string
	Suffix    string
	ActiveKey string
}

// NewNaming validates the convention.
func NewNaming(prefix, suffix, activeKey string) (Naming, error) {
	if strings.TrimSpace(activeKey) == "" {
		return Naming{}, fmt.Errorf("active key must be provided")
	}
	return Naming{Prefix: prefix, Suffix: suffix, ActiveKey: activeKey}, nil
}

// DeriveNaming builds the default convention from the active key: live.zip
// stores its revisions as live-<revision>.zip next to it. The directory part
// of the key stays in the prefix, so releases/live.zip lists
// releases/live-<revision>.zip rather than live-<revision>.zip at the bucket
// root.
func DeriveNaming(activeKey string) (Naming, error) {
	suffix := path.Ext(activeKey)
	prefix := strings.TrimSuffix(activeKey, suffix) + "-"
	return NewNaming(prefix, suffix, activeKey)
}

// StorageKey returns the candidate key holding revision.
func (n Naming) StorageKey(revision string) string {
	return n.Prefix + revision + n.Suffix
}

// RevisionKey extracts the revision from a candidate storage key. It reports
// false for keys outside the convention, including the active key
// itself and keys carrying an empty revision.
func (n Naming) RevisionKey(storageKey string) (string, bool) {
	if storageKey == n.ActiveKey {
		return "", false
	}
	if len(storageKey) < len(n.Prefix)+len(n.Suffix) {
		return "", false
	}
	if !strings.HasPrefix(storageKey, n.Prefix) || !strings.HasSuffix(storageKey, n.Suffix) {
		return "", false
	}
	revision := storageKey[len(n.Prefix) : len(storageKey)-len(n.Suffix)]
	return revision, revision != ""
}
