package notification

import (
	"bytes"
	"html/template"
)

// subjectPrefix is prepended to every outgoing e-mail subject.
const subjectPrefix = "[mc-webhooks] "

// emailTmpl is the HTML wrapper applied to every mirrored notification.
// {{.Subject}} and {{.Body}} are auto-escaped by html/template.
var emailTmpl = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:24px;background-color:#f4f4f5;font-family:Arial,sans-serif;">
  <table width="600" cellpadding="0" cellspacing="0" role="presentation"
         style="max-width:600px;width:100%;margin:0 auto;">
    <tr>
      <td style="background-color:#18181f;padding:16px 32px;border-left:3px solid #5865f2;">
        <p style="margin:0;font-size:15px;font-weight:600;color:#e5e7eb;">{{.Subject}}</p>
      </td>
    </tr>
    <tr>
      <td style="background-color:#ffffff;padding:24px 32px;">
        <div style="font-size:14px;line-height:1.6;color:#374151;
                    white-space:pre-wrap;word-break:break-word;">{{.Body}}</div>
      </td>
    </tr>
  </table>
</body>
</html>
`))

// buildSubject prepends the standard prefix to a subject line.
func buildSubject(subject string) string {
	return subjectPrefix + subject
}

// buildEmailHTML renders the HTML email template with the given subject and body.
func buildEmailHTML(subject, body string) (string, error) {
	var buf bytes.Buffer
	err := emailTmpl.Execute(&buf, struct{ Subject, Body string }{subject, body})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
