package schema

import (
	"fmt"
	"strings"
)

// Namespace is the tenant-isolation boundary in the vector index. It is a
// first-class value derived once from the owner id and validated at every
// store boundary, never reconstructed ad hoc from strings.
type Namespace string

const namespacePrefix = "tenant_"

// NamespaceForOwner derives the tenant namespace deterministically from an
// owner id. The result satisfies the index's partition naming rules (letters,
// digits and underscores only).
func NamespaceForOwner(ownerID string) (Namespace, error) {
	if ownerID == "" {
		return "", fmt.Errorf("owner id must not be empty")
	}
	for _, r := range ownerID {
		if !isNamespaceRune(r) && r != '-' {
			return "", fmt.Errorf("owner id %q contains characters not usable in a namespace", ownerID)
		}
	}
	return Namespace(namespacePrefix + strings.ReplaceAll(ownerID, "-", "_")), nil
}

// Validate rejects namespaces that did not come from NamespaceForOwner.
func (n Namespace) Validate() error {
	s := string(n)
	if !strings.HasPrefix(s, namespacePrefix) || len(s) == len(namespacePrefix) {
		return fmt.Errorf("invalid namespace %q", s)
	}
	for _, r := range s {
		if !isNamespaceRune(r) {
			return fmt.Errorf("invalid namespace %q", s)
		}
	}
	return nil
}

func (n Namespace) String() string {
	return string(n)
}

func isNamespaceRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
