package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally uppers it.
func CleanString(s string, upper ...bool) string {
	s = strings.TrimSpace(s)
	if len(upper) > 0 && upper[0] {
		return strings.ToUpper(s)
	}
	return s
}
