package generate

import (
	"net/url"
	"strconv"
	"strings"

	"sdfrontend/internal/core"
)

// FieldSource yields a candidate value for a form field, or false when it has none.
type FieldSource func() (string, bool)

// Resolve returns the value of the first source that has one, or "".
func Resolve(sources ...FieldSource) string {
	for _, source := range sources {
		if value, ok := source(); ok {
			return value
		}
	}
	return ""
}

// FromForm yields a non-empty form value.
func FromForm(form url.Values, key string) FieldSource {
	return func() (string, bool) {
		value := form.Get(key)
		return value, value != ""
	}
}

// FirstOf yields the first entry of a lazily fetched list.
func FirstOf(list func() []string) FieldSource {
	return func() (string, bool) {
		values := list()
		if len(values) == 0 {
			return "", false
		}
		return values[0], true
	}
}

// Literal always yields value.
func Literal(value string) FieldSource {
	return func() (string, bool) {
		return value, true
	}
}

// parsePositiveInt reads an integer form field. Absent or empty means def.
func parsePositiveInt(form url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(form.Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, core.ErrValidation("invalid %s %q: must be a positive integer", key, raw)
	}
	return n, nil
}

// dimensions parses width, height and steps with the given defaults.
func dimensions(form url.Values, size, steps int) (w, h, s int, err error) {
	if w, err = parsePositiveInt(form, core.FormFieldWidth, size); err != nil {
		return
	}
	if h, err = parsePositiveInt(form, core.FormFieldHeight, size); err != nil {
		return
	}
	s, err = parsePositiveInt(form, core.FormFieldSteps, steps)
	return
}
