package validate

import (
	"strconv"
	"strings"
)

// ValidateOrderNumber checks that number is prefix followed by a non-empty run of digits.
func ValidateOrderNumber(prefix string, number string) bool {
	_, ok := Suffix(prefix, number)
	return ok
}

// Suffix returns the numeric sequence part of number.
func Suffix(prefix string, number string) (int, bool) {
	if prefix == "" || !strings.HasPrefix(number, prefix) {
		return 0, false
	}
	digits := number[len(prefix):]
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}
