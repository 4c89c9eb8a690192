package sending

import (
	"strings"

	"github.com/ignite/campaign-mailer/internal/domain"
)

// mergeFields lists the supported merge tokens and the contact field each one
// resolves to. Tokens are literal and case-sensitive.
var mergeFields = []struct {
	token string
	value func(c *domain.Contact) string
}{
	{"{{fullName}}", func(c *domain.Contact) string { return c.FullName }},
	{"{{email}}", func(c *domain.Contact) string { return c.Email }},
	{"{{company}}", func(c *domain.Contact) string { return c.Company }},
	{"{{workPhone}}", func(c *domain.Contact) string { return c.WorkPhone }},
	{"{{mobilePhone}}", func(c *domain.Contact) string { return c.MobilePhone }},
	{"{{role}}", func(c *domain.Contact) string { return c.Role }},
	{"{{address}}", func(c *domain.Contact) string { return c.Address }},
	{"{{city}}", func(c *domain.Contact) string { return c.City }},
	{"{{state}}", func(c *domain.Contact) string { return c.State }},
	{"{{zip}}", func(c *domain.Contact) string { return c.Zip }},
}

// Personalize replaces every merge token in text with the matching contact
// field. A missing field becomes the empty string. Replacement is a single
// left-to-right pass: substituted values are never scanned again.
func Personalize(text string, c domain.Contact) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	pairs := make([]string, 0, len(mergeFields)*2)
	for _, f := range mergeFields {
		pairs = append(pairs, f.token, f.value(&c))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
