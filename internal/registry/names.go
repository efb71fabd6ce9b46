package registry

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/conneroisu/wikimark/internal/errors"
)

// MaxPageNameLength is the longest accepted page name in bytes.
const MaxPageNameLength = 255

// ValidatePageName checks that name is safe to map onto a file path and a
// URL. Names may contain spaces, namespaces such as "분류:" and "/" for
// subpages.
func ValidatePageName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.ErrInvalidPageName(name, "name cannot be empty")
	}
	if len(name) > MaxPageNameLength {
		return errors.ErrInvalidPageName(name, "name is too long")
	}
	if !utf8.ValidString(name) {
		return errors.ErrInvalidPageName(name, "name is not valid UTF-8")
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return errors.ErrInvalidPageName(name, "name cannot start or end with '/'")
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return errors.ErrInvalidPageName(name, "name contains an empty or relative segment")
		}
		if strings.HasPrefix(segment, ".") {
			return errors.ErrInvalidPageName(name, "segments cannot start with '.'")
		}
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return errors.ErrInvalidPageName(name, "name contains control characters")
		}
		if strings.ContainsRune(`\<>"|?*`, r) {
			return errors.ErrInvalidPageName(name, "name contains reserved character "+string(r))
		}
	}
	return nil
}

// PageName derives the page name of the source file at path relative to dir:
// the relative path with forward slashes and without its extension.
func PageName(dir, path string) (string, error) {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	name := strings.TrimSuffix(rel, filepath.Ext(rel))
	if err := ValidatePageName(name); err != nil {
		return "", err
	}
	return name, nil
}
