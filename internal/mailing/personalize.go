package mailing

import (
	"regexp"

	"github.com/pitchperfect/waitlist/internal/domain"
)

var placeholderRe = regexp.MustCompile(`\{\{([a-z]+)\}\}`)

// Personalize substitutes {{name}}, {{email}}, {{company}} and {{role}} in
// template with the recipient's values. Any other {{token}} is left as is.
// Substitution is a single left-to-right pass, so placeholder text inside a
// recipient's own values is never expanded.
func Personalize(template string, r domain.Recipient) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(tok string) string {
		switch tok[2 : len(tok)-2] {
		case "name":
			return r.Name
		case "email":
			return r.Email
		case "company":
			return r.Company
		case "role":
			return r.Role
		default:
			return tok
		}
	})
}
