package mailer

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSender struct {
	mu   sync.Mutex
	sent []Email
	gate chan struct{}
}

func (r *recordingSender) Send(_ context.Context, e Email) error {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, e)
	return nil
}

func TestNew_RequiresHostWhenEnabled(t *testing.T) {
	_, err := New(Config{Enabled: true, From: "noreply@camphub.test"}, zap.NewNop())
	assert.Error(t, err)

	m, err := New(Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 587, m.cfg.Port)
}

func TestMailer_DisabledLogsInstead(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m, err := New(Config{}, zap.New(core))
	require.NoError(t, err)

	require.NoError(t, m.Send(context.Background(), Email{To: "burner@example.com", Subject: "hi"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "burner@example.com", logs.All()[0].ContextMap()["to"])

	assert.Error(t, m.Send(context.Background(), Email{Subject: "no recipient"}))
}

func TestAsync_DeliversAndDrains(t *testing.T) {
	rec := &recordingSender{}
	a := NewAsync(rec, zap.NewNop(), 2, 10)

	for i := 0; i < 5; i++ {
		assert.True(t, a.Enqueue(Email{To: "x@example.com"}))
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Close(ctx))

	assert.Len(t, rec.sent, 5)
	assert.False(t, a.Enqueue(Email{To: "late@example.com"}), "closed queue rejects")
}

func TestAsync_FullQueueDrops(t *testing.T) {
	rec := &recordingSender{gate: make(chan struct{})}
	a := NewAsync(rec, zap.NewNop(), 1, 1)

	// One message is held by the worker, one fills the buffer.
	a.Enqueue(Email{To: "1@example.com"})
	require.Eventually(t, func() bool { return len(a.queue) == 0 }, time.Second, 5*time.Millisecond)
	require.True(t, a.Enqueue(Email{To: "2@example.com"}))
	assert.False(t, a.Enqueue(Email{To: "3@example.com"}))

	close(rec.gate)
	require.NoError(t, a.Close(context.Background()))
	assert.Len(t, rec.sent, 2)
}

func TestTemplates(t *testing.T) {
	tests := []struct {
		name     string
		email    Email
		subject  string
		contains []string
	}{
		{
			name:     "reset",
			email:    BuildPasswordResetEmail("a@example.com", PasswordResetEmailData{ResetURL: "https://camphub.test/reset-password?token=abc", ExpiresIn: "1 hour"}),
			subject:  "Reset your CampHub password",
			contains: []string{"https://camphub.test/reset-password?token=abc", "1 hour"},
		},
		{
			name:     "invite",
			email:    BuildInviteEmail("b@example.com", "Dust Devils", "Come join Dust Devils", "https://camphub.test/apply?token=t"),
			subject:  "You're invited to join Dust Devils",
			contains: []string{"Come join Dust Devils", "https://camphub.test/apply?token=t"},
		},
		{
			name:     "status",
			email:    BuildApplicationStatusEmail("c@example.com", ApplicationEmailData{CampName: "Dust Devils", Status: "approved", Notes: "See you on playa"}),
			subject:  "Your application to Dust Devils",
			contains: []string{"approved", "See you on playa"},
		},
		{
			name:     "task",
			email:    BuildTaskAssignedEmail("d@example.com", TaskEmailData{CampName: "Dust Devils", TaskCode: "TAB12C", Title: "Build shade"}),
			subject:  "[TAB12C] Build shade",
			contains: []string{"Build shade"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.subject, tt.email.Subject)
			for _, s := range tt.contains {
				assert.Contains(t, tt.email.TextBody, s)
			}
			assert.True(t, strings.HasPrefix(tt.email.HTMLBody, "<!DOCTYPE html>"))
		})
	}
}

func TestBuildContactEmail_SetsReplyTo(t *testing.T) {
	e := BuildContactEmail("support@camphub.test", ContactEmailData{TicketID: "T-1", Name: "Sam", Email: "sam@example.com", Subject: "Help", Message: "Can't log in"})
	assert.Equal(t, "sam@example.com", e.ReplyTo)
	assert.Contains(t, e.HTMLBody, "Can&#39;t log in")
}
