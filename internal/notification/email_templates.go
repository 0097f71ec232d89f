package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

const (
	colorApproved = "green"
	colorOther    = "red"
)

// StatusSubject returns the subject line used for a status update email.
func StatusSubject(n *StatusNotification) string {
	return fmt.Sprintf("Status Update: %s - %s", n.Type, n.Status)
}

// StatusColor returns the color the status is displayed with. Any status that
// contains "approved", in any case, is shown in green.
func StatusColor(status string) string {
	if strings.Contains(strings.ToLower(status), "approved") {
		return colorApproved
	}
	return colorOther
}

const baseLayout = `<!DOCTYPE html>
<html>
<head>
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
</head>
<body style="margin: 0; padding: 0;">
    {{.Content}}
</body>
</html>
`

const statusContent = `<div style="font-family: Arial, sans-serif; color: #333;">
    <h2>Hello {{.Name}},</h2>
    <p>This is an update on the status of your <strong>{{.Type}}</strong> request.</p>

    <div style="background-color: #f4f4f4; padding: 15px; border-radius: 5px;">
        <p><strong>Status:</strong> <span style="color: {{.StatusColor}}; font-weight: bold;">{{.Status}}</span></p>
        <p><strong>Reason/Details:</strong> {{.Reason}}</p>
        <p><strong>Days:</strong> {{.Days}}</p>
        <p><strong>Start date:</strong> {{.Entrance}}</p>
    </div>

    <p style="margin-top: 20px; font-size: 12px; color: #888;">
        This is an automated message sent by the HR notification agent.
    </p>
</div>`

var (
	layoutTmpl  = template.Must(template.New("layout").Parse(baseLayout))
	contentTmpl = template.Must(template.New("status").Parse(statusContent))
)

// RenderStatusEmail renders the HTML body for a status notification. The
// output depends only on n.
func RenderStatusEmail(n *StatusNotification) (string, error) {
	data := map[string]any{
		"Name":        n.Name,
		"Type":        n.Type,
		"Status":      n.Status,
		"StatusColor": StatusColor(n.Status),
		"Reason":      n.Reason,
		"Days":        n.Days,
		"Entrance":    n.Entrance,
	}

	var contentBuf bytes.Buffer
	if err := contentTmpl.Execute(&contentBuf, data); err != nil {
		return "", fmt.Errorf("render status content: %w", err)
	}

	// The content block is already escaped.
	var layoutBuf bytes.Buffer
	if err := layoutTmpl.Execute(&layoutBuf, map[string]any{
		"Content": template.HTML(contentBuf.String()),
	}); err != nil {
		return "", fmt.Errorf("render layout: %w", err)
	}

	return layoutBuf.String(), nil
}
