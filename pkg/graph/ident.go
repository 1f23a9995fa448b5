package graph

import (
	"fmt"
	"regexp"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SanitizeIdentifier validates and returns a safe Cypher identifier.
//
// Only letters, digits, and underscores are allowed, and the identifier must
// start with a letter or underscore. Anything else is rejected, preventing
// Cypher injection wherever an index or label name has to be interpolated
// into a query string instead of bound as a parameter.
func SanitizeIdentifier(value string) (string, error) {
	if !identifierRe.MatchString(value) {
		return "", fmt.Errorf("%w: %q (letters, digits, and underscores only, not starting with a digit)",
			ErrInvalidIdentifier, value)
	}
	return value, nil
}
