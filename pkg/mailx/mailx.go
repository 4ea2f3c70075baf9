// Package mailx abstracts outbound email delivery. Callers treat dispatch as
// a fallible capability: delivery failure must never abort the flow that
// requested it.
package mailx

import "context"

// Message is the body of a transactional email: a short description of why
// the recipient is receiving it plus the action link.
type Message struct {
	Description string
	Link        string
}

// Mailer sends a transactional email to a single recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject string, msg Message) error
}
