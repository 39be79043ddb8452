package notify

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

const defaultResendURL = "https://api.resend.com/emails"

// ResendClient sends email through the Resend.com HTTP API.
type ResendClient struct {
	apiKey string
	from   string
	url    string
	client *http.Client
}

// NewResendClient constructs a client. The HTTP timeout bounds how long a
// dead upstream can hold a request goroutine; it is transport hygiene, not
// a retry mechanism.
func NewResendClient(apiKey, from string) *ResendClient {
	return &ResendClient{
		apiKey: apiKey,
		from:   from,
		url:    defaultResendURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (c *ResendClient) SendMessageNotification(ctx context.Context, n MessageNotification) error {
	subject := "New message from " + n.SenderName
	if n.ResourceTitle != "" {
		subject = "New message about your resource: " + n.ResourceTitle
	}
	return c.send(ctx, n.RecipientEmail, subject, buildMessageHTML(n))
}

func (c *ResendClient) SendVerificationCode(ctx context.Context, email, name, code string) error {
	return c.send(ctx, email, "Verify your NeighbourlyUnion account", buildVerificationHTML(name, code))
}

func (c *ResendClient) send(ctx context.Context, to, subject, htmlBody string) error {
	payload, err := json.Marshal(resendRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("email api status %d: %s", resp.StatusCode, body)
	}
	return nil
}

func priorityColor(priority string) string {
	switch priority {
	case "URGENT":
		return "#E74C3C"
	case "HIGH":
		return "#F39C12"
	default:
		return "#27AE60"
	}
}

func buildMessageHTML(n MessageNotification) string {
	e := html.EscapeString

	resourceLine := ""
	if n.ResourceTitle != "" {
		resourceLine = fmt.Sprintf(
			`<p style="color: #666;">Resource: <strong>%s</strong> (%s)</p>`,
			e(n.ResourceTitle), e(n.ResourceCity))
	}
	contactLine := ""
	if n.ContactMethod != "" || n.SenderPhone != "" {
		contactLine = fmt.Sprintf(
			`<p style="color: #666;">Preferred contact: %s %s</p>`,
			e(n.ContactMethod), e(n.SenderPhone))
	}

	return fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background-color: #27AE60; padding: 20px; text-align: center; border-radius: 8px 8px 0 0;">
        <h1 style="color: white; margin: 0;">NeighbourlyUnion</h1>
        <p style="color: white; margin: 5px 0 0 0;">Community Connection Platform</p>
    </div>
    <div style="background-color: #f9f9f9; padding: 30px; border-radius: 0 0 8px 8px;">
        <h2 style="color: #333;">Hello %s!</h2>
        <p style="color: #666; font-size: 16px;">
            You have received a new message from <strong>%s</strong>.
        </p>
        <p style="color: %s; font-weight: bold;">Priority: %s</p>
        %s
        <div style="background-color: white; border-radius: 8px; padding: 20px; margin: 20px 0;">
            <h3 style="color: #333; margin-top: 0;">%s</h3>
            <p style="color: #444; white-space: pre-wrap;">%s</p>
        </div>
        %s
    </div>
</div>`,
		e(n.RecipientName), e(n.SenderName),
		priorityColor(n.Priority), e(n.Priority),
		resourceLine,
		e(n.Subject), e(n.Body),
		contactLine)
}

func buildVerificationHTML(name, code string) string {
	e := html.EscapeString
	return fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background-color: #2E86C1; padding: 20px; text-align: center; border-radius: 8px 8px 0 0;">
        <h1 style="color: white; margin: 0;">NeighbourlyUnion</h1>
    </div>
    <div style="background-color: #f9f9f9; padding: 30px; border-radius: 0 0 8px 8px;">
        <h2 style="color: #333;">Hello %s!</h2>
        <p style="color: #666; font-size: 16px;">
            Use the verification code below to complete your registration:
        </p>
        <div style="background-color: white; border: 2px solid #2E86C1; border-radius: 8px;
                    padding: 20px; margin: 30px 0; text-align: center;">
            <h1 style="color: #2E86C1; font-size: 36px; letter-spacing: 8px; margin: 0;">%s</h1>
        </div>
        <p style="color: #666; font-size: 14px;">This code will expire in <strong>1 hour</strong>.</p>
    </div>
</div>`, e(name), e(code))
}
