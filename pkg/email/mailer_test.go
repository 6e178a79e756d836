package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patshala/backend/pkg/email"
)

func TestSendEmailParamsValidate(t *testing.T) {
	t.Parallel()

	valid := email.SendEmailParams{
		SendTo:   "student@example.com",
		Subject:  "Verify your account",
		BodyHTML: "<p>123456</p>",
	}

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, valid.Validate())
	})

	t.Run("bad recipient", func(t *testing.T) {
		t.Parallel()
		p := valid
		p.SendTo = "not-an-email"
		assert.ErrorIs(t, p.Validate(), email.ErrInvalidParams)
	})

	t.Run("missing subject", func(t *testing.T) {
		t.Parallel()
		p := valid
		p.Subject = ""
		assert.ErrorIs(t, p.Validate(), email.ErrInvalidParams)
	})

	t.Run("missing body", func(t *testing.T) {
		t.Parallel()
		p := valid
		p.BodyHTML = ""
		assert.ErrorIs(t, p.Validate(), email.ErrInvalidParams)
	})

	t.Run("text body alone is enough", func(t *testing.T) {
		t.Parallel()
		p := valid
		p.BodyHTML = ""
		p.BodyText = "123456"
		assert.NoError(t, p.Validate())
	})
}

func TestDevSender(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sender := email.NewDevSender(dir)

	err := sender.SendEmail(context.Background(), email.SendEmailParams{
		SendTo:   "student@example.com",
		Subject:  "Verify your account",
		BodyHTML: "<p>code 123456</p>",
		Tag:      "otp",
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var sawHTML, sawJSON bool
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		switch {
		case strings.HasSuffix(e.Name(), ".html"):
			sawHTML = true
			body, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Contains(t, string(body), "123456")
		case strings.HasSuffix(e.Name(), ".json"):
			sawJSON = true
			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			var meta map[string]string
			require.NoError(t, json.Unmarshal(raw, &meta))
			assert.Equal(t, "student@example.com", meta["send_to"])
			assert.Equal(t, "otp", meta["tag"])
		}
	}
	assert.True(t, sawHTML)
	assert.True(t, sawJSON)
}

func TestNewPostmarkClientConfig(t *testing.T) {
	t.Parallel()

	base := email.Config{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "no-reply@patshala.com",
		SupportEmail:         "support@patshala.com",
	}

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		_, err := email.NewPostmarkClient(base)
		assert.NoError(t, err)
	})

	t.Run("missing server token", func(t *testing.T) {
		t.Parallel()
		cfg := base
		cfg.PostmarkServerToken = ""
		_, err := email.NewPostmarkClient(cfg)
		assert.ErrorIs(t, err, email.ErrInvalidConfig)
	})

	t.Run("invalid sender", func(t *testing.T) {
		t.Parallel()
		cfg := base
		cfg.SenderEmail = "nope"
		_, err := email.NewPostmarkClient(cfg)
		assert.ErrorIs(t, err, email.ErrInvalidConfig)
	})
}

func TestRenderTemplates(t *testing.T) {
	t.Parallel()

	t.Run("otp", func(t *testing.T) {
		t.Parallel()

		html, text, err := email.RenderOTP(email.OTPEmailData{
			Name:      "Ravi Kumar",
			Code:      "482917",
			TTLSecond: 60,
		})
		require.NoError(t, err)
		assert.Contains(t, html, "482917")
		assert.Contains(t, html, "Ravi Kumar")
		assert.Contains(t, text, "482917")
	})

	t.Run("password reset escapes url", func(t *testing.T) {
		t.Parallel()

		html, text, err := email.RenderPasswordReset(email.ResetEmailData{
			Name:       "Asha",
			ResetURL:   "https://patshala.com/reset?token=a&b",
			TTLMinutes: 60,
		})
		require.NoError(t, err)
		assert.Contains(t, html, "a&amp;b")
		assert.Contains(t, text, "a&b")
	})
}
