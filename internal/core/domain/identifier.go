package domain

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	lastNameWidth  = 3
	firstNameWidth = 2
	identifierPad  = 'X'

	suffixMin   = 100
	suffixRange = 900 // suffix in [100, 999]
)

// RandomSource supplies the random suffix. *math/rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}

// GenerateIdentifier builds a business identifier such as DOEJO123 or HRADHR456.
// The shape is fixed but the value is not: identical names may yield
// different identifiers, and uniqueness must be checked by the caller.
func GenerateIdentifier(src RandomSource, role Role, firstName, lastName string) string {
	last := namePrefix(lastName, lastNameWidth)
	first := namePrefix(firstName, firstNameWidth)
	suffix := suffixMin + src.Intn(suffixRange)

	return fmt.Sprintf("%s%s%s%d", rolePrefix(role), last, first, suffix)
}

func rolePrefix(role Role) string {
	switch role {
	case RoleLecturer:
		return ""
	case RoleHR:
		return "HR"
	case RoleCoordinator:
		return "CO"
	case RoleManager:
		return "MA"
	default:
		return "ST"
	}
}

// namePrefix keeps the first width letters of name, uppercased and padded
func namePrefix(name string, width int) string {
	var b strings.Builder
	n := 0
	for _, r := range name {
		if n == width {
			break
		}
		if !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		n++
	}
	for ; n < width; n++ {
		b.WriteRune(identifierPad)
	}
	return b.String()
}
