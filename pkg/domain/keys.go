package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// NormalizeName trims s, collapses inner whitespace, and lowercases it. The
// result is the comparison key for names that must be unique per owner.
func NormalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// DigitsOnly strips everything but ASCII digits, so formatted phone numbers compare equal.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// VetUniqueKey derives the uniqueness key of a vet from its clinic, vet name and phone.
func VetUniqueKey(v Vet) string {
	raw := NormalizeName(v.ClinicName) + "|" + NormalizeName(v.VetName) + "|" + DigitsOnly(v.Phone)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func trimFields(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimFunc(*f, unicode.IsSpace)
	}
}
