package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"
)

const sendEmailPath = "/api/viktor-spaces/send-email"

// maxErrorBodyBytes caps how much upstream failure text is carried on an
// error.
const maxErrorBodyBytes = 4096

// Email type discriminators understood by the Viktor Spaces send-email
// endpoint.
const (
	// EmailTypeOTP is an exported constant or variable used by the dispatch proxy.
	EmailTypeOTP = "otp"
	// EmailTypePasswordReset is an exported constant or variable used by the dispatch proxy.
	EmailTypePasswordReset = "password_reset"
)

// The token validity window stated in the email copy. Cosmetic: actual
// expiry is enforced by the auth capability, not here.
const tokenValidityCopy = "15 minutes"

const verificationHTMLFormat = `
<div style="font-family: sans-serif; max-width: 400px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">%s</h2>
  <p style="color: #666;">%s</p>
  <div style="background: #f5f5f5; padding: 20px; text-align: center; border-radius: 8px; margin: 20px 0;">
    <span style="font-size: 32px; font-weight: bold; letter-spacing: 4px; color: #333;">%s</span>
  </div>
  <p style="color: #999; font-size: 12px;">This code expires in %s.</p>
</div>
`

type emailRequest struct {
	ProjectName   string `json:"project_name"`
	ProjectSecret string `json:"project_secret"`
	ToEmail       string `json:"to_email"`
	Subject       string `json:"subject"`
	HTMLContent   string `json:"html_content"`
	TextContent   string `json:"text_content"`
	EmailType     string `json:"email_type"`
}

type emailResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Sender defines a public type used by authflow APIs.
//
// Sender instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Sender struct {
	config Config
	client *http.Client
}

// NewSender validates cfg and returns a Sender. A nil client gets a default
// with a 10-second timeout; the send-verification hook blocks its caller, so
// an unbounded client would let a stuck upstream stall sign-ups.
func NewSender(cfg Config, client *http.Client) (*Sender, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Sender{config: cfg, client: client}, nil
}

// SendVerification relays a sign-up verification token to email. It returns
// nil only when the upstream API reported success; any other outcome is an
// error and the caller decides whether the surrounding sign-up fails.
func (s *Sender) SendVerification(ctx context.Context, email, token string) error {
	code := html.EscapeString(token)
	htmlBody := fmt.Sprintf(verificationHTMLFormat,
		"Verify your email", "Your verification code is:", code, tokenValidityCopy)
	textBody := fmt.Sprintf("Your verification code is: %s\n\nThis code expires in %s.", token, tokenValidityCopy)

	if err := s.send(ctx, email, "Your verification code", htmlBody, textBody, EmailTypeOTP); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// SendPasswordReset relays a password reset token to email. Identical shape
// to [Sender.SendVerification] with reset copy and the reset discriminator.
func (s *Sender) SendPasswordReset(ctx context.Context, email, token string) error {
	code := html.EscapeString(token)
	htmlBody := fmt.Sprintf(verificationHTMLFormat,
		"Reset your password", "Your password reset code is:", code, tokenValidityCopy)
	textBody := fmt.Sprintf("Your password reset code is: %s\n\nThis code expires in %s.", token, tokenValidityCopy)

	if err := s.send(ctx, email, "Your password reset code", htmlBody, textBody, EmailTypePasswordReset); err != nil {
		return fmt.Errorf("send password reset email: %w", err)
	}
	return nil
}

func (s *Sender) send(ctx context.Context, email, subject, htmlBody, textBody, emailType string) error {
	payload, err := json.Marshal(emailRequest{
		ProjectName:   s.config.ProjectName,
		ProjectSecret: s.config.ProjectSecret,
		ToEmail:       email,
		Subject:       subject,
		HTMLContent:   htmlBody,
		TextContent:   textBody,
		EmailType:     emailType,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL+sendEmailPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("upstream status %d: %s", resp.StatusCode, string(body))
	}

	var result emailResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode upstream response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("upstream rejected send: %s", result.Error)
	}
	return nil
}
