// Package policy holds the pure signup rules: which email domains may
// register, and how display names are canonicalized. No storage or network
// access.
package policy

import (
	"strings"
	"unicode"
)

// baseDomains is the fixed signup allow-list.
var baseDomains = []string{
	"gmail.com",
	"outlook.com",
	"yahoo.com",
	"hotmail.com",
}

// devDomains are additionally admitted in development environments.
var devDomains = []string{
	"example.com",
}

// Policy decides signup eligibility. Development widens the allow-list with
// testing domains.
type Policy struct {
	Development bool
}

// EligibleDomain reports whether the email's domain (the substring after the
// last '@') is in the allow-list. An email without an '@', or with an empty
// domain segment, is never eligible.
func (p Policy) EligibleDomain(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	if domain == "" {
		return false
	}

	for _, allowed := range baseDomains {
		if domain == allowed {
			return true
		}
	}
	if p.Development {
		for _, allowed := range devDomains {
			if domain == allowed {
				return true
			}
		}
	}
	return false
}

// NormalizeName produces a canonical display name: surrounding whitespace
// trimmed, internal whitespace runs collapsed to a single space, every rune
// that is not a letter, space, apostrophe or hyphen stripped, and the first
// letter of each word uppercased. Total and idempotent; empty input yields
// empty output.
func NormalizeName(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsLetter(r) || r == ' ' || r == '\'' || r == '-' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	words := strings.Fields(b.String())
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
