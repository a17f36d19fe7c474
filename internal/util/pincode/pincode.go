package pincode

import "unicode/utf8"

const Length = 6

// Validate reports whether s has the shape of a postal index number.
func Validate(s string) bool {
	return utf8.RuneCountInString(s) == Length
}
