package shipping

import (
	"strings"
	"unicode"

	"github.com/dhstore/checkout/internal/types"
)

type Rates struct {
	TamilNadu  float64
	OtherState float64
}

// Normalize lowercases state and drops everything that is not a letter,
// so "Tamil  Nadu", "tamil-nadu" and "TAMILNADU" compare equal.
func Normalize(state string) string {
	var b strings.Builder
	for _, r := range state {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func IsTamilNadu(state string) bool {
	switch Normalize(state) {
	case "tamilnadu", "tn":
		return true
	}
	return false
}

func (r Rates) For(state string) float64 {
	if IsTamilNadu(state) {
		return r.TamilNadu
	}
	return r.OtherState
}

func OrderTypeFor(state string) types.OrderType {
	if IsTamilNadu(state) {
		return types.TamilNaduOrder
	}
	return types.OtherStateOrder
}
