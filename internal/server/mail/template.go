package mail

import (
	"fmt"
	"strings"
	"text/template"
)

// InvitationEmail carries the values rendered into a file-invitation
// notification.
type InvitationEmail struct {
	// Inviter is the username of the file owner.
	Inviter string
	// Filename is the shared file's name.
	Filename string
	// Username is the invitee's username.
	Username string
	// URL points at the shared file in the frontend.
	URL string
}

var invitationTemplate = template.Must(template.New("file-invitation").Parse(
	`Hi {{.Username}},

Here's the file that {{.Inviter}} shared with you.

    {{.Filename}}
    {{.URL}}
`))

// RenderInvitation produces the subject and body of a file-invitation
// notification.
func RenderInvitation(data InvitationEmail) (subject, body string, err error) {
	var b strings.Builder
	if err := invitationTemplate.Execute(&b, data); err != nil {
		return "", "", err
	}
	subject = fmt.Sprintf("%s shared %q with you.", data.Inviter, data.Filename)
	return subject, b.String(), nil
}
