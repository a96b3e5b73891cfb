// Package wildcard converts class-name templates into regular expressions.
//
// Templates use three wildcard characters:
//   - `*` matches any sequence of characters, dots included
//   - `#` matches any sequence of characters without a dot
//   - `?` matches exactly one character
//
// Every other regular expression metacharacter is matched literally, so
// `com.example.Foo` only ever matches the class named `com.example.Foo`.
package wildcard

import (
	"fmt"
	"regexp"
	"strings"
)

// metacharacters are escaped with a backslash wherever they appear in a template.
var metacharacters = func() [256]bool {
	var set [256]bool
	for _, c := range []byte(`<([{\^-=$!|]})+.>`) {
		set[c] = true
	}
	return set
}()

// ToRegex returns the unanchored regular expression source for template.
func ToRegex(template string) string {
	var b strings.Builder
	// most templates contain `*` or `.`, both of which expand to two characters
	b.Grow(len(template) * 2)

	// wildcards and metacharacters are all ASCII, so multi-byte sequences
	// pass through untouched
	for i := 0; i < len(template); i++ {
		c := template[i]
		switch {
		case metacharacters[c]:
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '*':
			b.WriteString(".*")
		case c == '?':
			b.WriteByte('.')
		case c == '#':
			b.WriteString("[^.]*")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Compile converts template into a regular expression that must match a
// whole class name.
func Compile(template string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("^(?:" + ToRegex(template) + ")$")
	if err != nil {
		return nil, fmt.Errorf("compile template %q: %w", template, err)
	}
	return re, nil
}
