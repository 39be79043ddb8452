// Package notify delivers transactional email through Resend.com. The
// delivery service treats every call as best-effort: errors returned here
// are logged and discarded at the call site, never surfaced to the sender.
package notify

import "context"

// MessageNotification carries everything the recipient's email needs. The
// body is the plaintext message content; the stored ciphertext never
// reaches the notifier.
type MessageNotification struct {
	RecipientEmail string
	RecipientName  string
	SenderName     string
	Subject        string
	Body           string
	Priority       string
	ContactMethod  string
	SenderPhone    string
	ResourceTitle  string
	ResourceCity   string
}

// Notifier sends transactional email. Implementations must be safe for
// concurrent use.
type Notifier interface {
	SendMessageNotification(ctx context.Context, n MessageNotification) error
	SendVerificationCode(ctx context.Context, email, name, code string) error
}
