package sending

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"
)

var footerTmpl = template.Must(template.New("footer").Parse(`
<div style="margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; text-align: center;">
  <p style="margin: 0; padding: 10px 0;">
    You received this email because you're subscribed to our mailing list.
  </p>
  <p style="margin: 0; padding: 5px 0;">
    <a href="{{.}}" style="color: #666; text-decoration: underline;">
      Unsubscribe from this mailing list
    </a>
  </p>
  <p style="margin: 0; padding: 5px 0; font-size: 11px;">
    If you have any questions, please contact us.
  </p>
</div>
`))

// UnsubscribeURL builds the per-contact unsubscribe link under base, e.g.
// "http://localhost:5000/api/email/unsubscribe?email=a%40b.com&contactId=42".
func UnsubscribeURL(base, email, contactID string) string {
	return strings.TrimRight(base, "/") + "/unsubscribe?email=" + url.QueryEscape(email) +
		"&contactId=" + url.QueryEscape(contactID)
}

// AppendUnsubscribeFooter appends the unsubscribe footer linking to link
// after body. Body is never modified.
func AppendUnsubscribeFooter(body, link string) string {
	var buf bytes.Buffer
	buf.WriteString(body)
	// bytes.Buffer writes cannot fail
	_ = footerTmpl.Execute(&buf, link)
	return buf.String()
}
