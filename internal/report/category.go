package report

import (
	"errors"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	errSeparator = errors.New("must not contain path separators")
	errHidden    = errors.New("must not start with a dot")
	errControl   = errors.New("must not contain control characters")
)

// ValidateCategory checks that name can be used as a category directory.
func ValidateCategory(name string) error {
	return validation.Validate(name,
		validation.Required,
		validation.Length(1, 128),
		validation.By(func(v any) error {
			s, _ := v.(string)
			switch {
			case strings.ContainsAny(s, `/\`):
				return errSeparator
			case strings.HasPrefix(s, "."):
				return errHidden
			case strings.IndexFunc(s, unicode.IsControl) >= 0:
				return errControl
			}
			return nil
		}),
	)
}
