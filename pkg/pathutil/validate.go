// Package pathutil provides path and name utilities for tidy.
package pathutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/jvs-project/tidy/pkg/errclass"
)

var nameRegex = regexp.MustCompile(`^[\p{L}\p{N} ._-]+$`)

// ValidateCategoryName checks that a category label is usable as a single
// directory name directly under the organized directory.
func ValidateCategoryName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errclass.ErrNameInvalid.WithMessage("category name must not be empty")
	}

	name = norm.NFC.String(name)

	if name == "." || strings.Contains(name, "..") {
		return errclass.ErrNameInvalid.WithMessagef("category name must not contain '..': %s", name)
	}

	if strings.ContainsAny(name, "/\\") {
		return errclass.ErrNameInvalid.WithMessagef("category name must not contain separators: %s", name)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return errclass.ErrNameInvalid.WithMessagef("category name must not contain control characters: %q", name)
		}
	}

	if strings.HasPrefix(name, ".") {
		return errclass.ErrNameInvalid.WithMessagef("category name must not be hidden: %s", name)
	}

	if !nameRegex.MatchString(name) {
		return errclass.ErrNameInvalid.WithMessagef("category name must contain only letters, digits, spaces, '.', '_' or '-': %s", name)
	}

	return nil
}

// NormalizeName returns the NFC form of name.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}
