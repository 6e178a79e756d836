package email

import (
	"fmt"
	"html/template"
	"strings"
)

// OTPEmailData feeds the verification-code template.
type OTPEmailData struct {
	Name      string
	Code      string
	TTLSecond int
}

// ResetEmailData feeds the password-reset template.
type ResetEmailData struct {
	Name       string
	ResetURL   string
	TTLMinutes int
}

var otpTmpl = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Patshala</h2>
  <p>Hello {{.Name}},</p>
  <p>Your verification code is:</p>
  <p style="font-size: 28px; font-weight: bold; letter-spacing: 4px;">{{.Code}}</p>
  <p>The code expires in {{.TTLSecond}} seconds. If you did not request it, you can ignore this email.</p>
  <p>— The Patshala Team</p>
</body>
</html>
`))

var resetTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Patshala</h2>
  <p>Hello {{.Name}},</p>
  <p>We received a request to reset your password. Click the link below to choose a new one:</p>
  <p><a href="{{.ResetURL}}">Reset your password</a></p>
  <p>The link expires in {{.TTLMinutes}} minutes. If you did not request a reset, no action is needed.</p>
  <p>— The Patshala Team</p>
</body>
</html>
`))

// RenderOTP returns the HTML and plain-text bodies for a
// verification-code email.
func RenderOTP(data OTPEmailData) (html, text string, err error) {
	var sb strings.Builder
	if err := otpTmpl.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render otp email: %w", err)
	}
	text = fmt.Sprintf(
		"Hello %s,\n\nYour Patshala verification code is %s. It expires in %d seconds.\n\n— The Patshala Team\n",
		data.Name, data.Code, data.TTLSecond,
	)
	return sb.String(), text, nil
}

// RenderPasswordReset returns the HTML and plain-text bodies for a
// password-reset email.
func RenderPasswordReset(data ResetEmailData) (html, text string, err error) {
	var sb strings.Builder
	if err := resetTmpl.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render reset email: %w", err)
	}
	text = fmt.Sprintf(
		"Hello %s,\n\nReset your Patshala password using this link (valid for %d minutes):\n%s\n\n— The Patshala Team\n",
		data.Name, data.TTLMinutes, data.ResetURL,
	)
	return sb.String(), text, nil
}
