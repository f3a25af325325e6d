// internal/routing/slug.go
//
// URL slugs for billing records.
//
// Plans created without an explicit slug get one derived from their title.
// Slugs appear in tenant URLs (/billing/{provider}/plans/{plan}/quote), so
// they are restricted to ASCII a-z, 0-9, and "-", and capped at the width
// of the slug columns.

package routing

import "strings"

// MaxSlugLen matches the VARCHAR(50) slug columns.
const MaxSlugLen = 50

// MakeSlug lower-cases title and joins its runs of ASCII letters and
// digits with "-".  Titles without any such run yield "plan".
func MakeSlug(title string) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
	slug := strings.Join(words, "-")
	if len(slug) > MaxSlugLen {
		slug = strings.TrimRight(slug[:MaxSlugLen], "-")
	}
	if slug == "" {
		return "plan"
	}
	return slug
}
