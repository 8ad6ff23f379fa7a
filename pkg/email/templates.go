package email

import (
	"bytes"
	"html/template"
)

var notificationTemplate = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2 style="color: #c62828;">{{.Title}}</h2>
  <p>{{.Body}}</p>
  {{if .Link}}<p><a href="{{.Link}}">Open in {{.AppName}}</a></p>{{end}}
  <hr>
  <p style="font-size: 12px; color: #777;">{{.AppName}} emergency alerts</p>
</body>
</html>`))

type NotificationView struct {
	AppName string
	Title   string
	Body    string
	Link    string
}

// RenderNotification builds the multipart message for a notification email.
func RenderNotification(to string, view NotificationView) (*Message, error) {
	var buf bytes.Buffer
	if err := notificationTemplate.Execute(&buf, view); err != nil {
		return nil, err
	}

	text := view.Body
	if view.Link != "" {
		text += "\n\n" + view.Link
	}

	return &Message{
		To:      to,
		Subject: view.Title,
		Text:    text,
		HTML:    buf.String(),
	}, nil
}
