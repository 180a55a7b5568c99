package testutil

import (
	"context"
	"sync"

	"github.com/dalemusser/camphub/internal/app/system/mailer"
)

// MailRecorder is a mailer.Sender that keeps every message in memory.
type MailRecorder struct {
	mu   sync.Mutex
	sent []mailer.Email
	Err  error
}

// Send records e and returns r.Err.
func (r *MailRecorder) Send(_ context.Context, e mailer.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, e)
	return r.Err
}

// Sent returns a copy of the recorded messages.
func (r *MailRecorder) Sent() []mailer.Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mailer.Email(nil), r.sent...)
}

// Last returns the most recent message and whether there was one.
func (r *MailRecorder) Last() (mailer.Email, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return mailer.Email{}, false
	}
	return r.sent[len(r.sent)-1], true
}
