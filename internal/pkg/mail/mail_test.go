package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyMail struct {
	failures int
	err      error
	calls    int
}

func (f *flakyMail) Send(context.Context, Message) error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

func (f *flakyMail) Close() error { return nil }

func fastRetry() RetryConfig {
	return RetryConfig{Attempts: 3, Base: time.Millisecond, Cap: 2 * time.Millisecond}
}

func TestRetrying_RecoversFromTransientErrors(t *testing.T) {
	next := &flakyMail{failures: 2, err: errors.New("421 service not available")}
	r := NewRetrying(next, fastRetry())

	err := r.Send(context.Background(), Message{To: []string{"a@x.com"}})

	require.NoError(t, err)
	assert.Equal(t, 3, next.calls)
}

func TestRetrying_GivesUpAfterAttempts(t *testing.T) {
	cause := errors.New("connection refused")
	next := &flakyMail{failures: 100, err: cause}
	r := NewRetrying(next, fastRetry())

	err := r.Send(context.Background(), Message{To: []string{"a@x.com"}})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 4, next.calls)
}

func TestRetrying_PermanentErrorNotRetried(t *testing.T) {
	next := &flakyMail{failures: 100, err: ErrNoRecipients}
	r := NewRetrying(next, fastRetry())

	err := r.Send(context.Background(), Message{})

	assert.ErrorIs(t, err, ErrNoRecipients)
	assert.Equal(t, 1, next.calls)
}

func TestLog_Send(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(slog.New(slog.NewJSONHandler(&buf, nil)), "no-reply@souqify.test")

	err := l.Send(context.Background(), Message{To: []string{"a@x.com"}, Subject: "Verify your email"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Verify your email")
	assert.Contains(t, buf.String(), "no-reply@souqify.test")

	assert.ErrorIs(t, l.Send(context.Background(), Message{}), ErrNoRecipients)
}

func TestNewSMTP_RequiresHostAndPort(t *testing.T) {
	_, err := NewSMTP(SMTPConfig{Host: "localhost"})
	assert.ErrorIs(t, err, ErrSMTPHostPortRequired)

	s, err := NewSMTP(SMTPConfig{Host: "localhost", Port: 1025})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Send(context.Background(), Message{To: []string{"a@x.com"}}), ErrNoSender)
}

func TestCompose_Multipart(t *testing.T) {
	raw := string(compose("from@x.com", Message{
		To:       []string{"a@x.com", "b@x.com"},
		Subject:  "Reset your password",
		TextBody: "code 123456",
		HTMLBody: "<p>code 123456</p>",
	}, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))

	assert.Contains(t, raw, "To: a@x.com, b@x.com\r\n")
	assert.Contains(t, raw, "Subject: Reset your password\r\n")
	assert.Contains(t, raw, "Content-Type: multipart/alternative; boundary=souqify-")
	assert.Equal(t, 2, strings.Count(raw, "code 123456"))
	assert.True(t, strings.HasSuffix(raw, "--"))
}

func TestBuildBody_SinglePart(t *testing.T) {
	body, ct := buildBody(Message{HTMLBody: "<b>hi</b>"})
	assert.Equal(t, "<b>hi</b>", body)
	assert.Equal(t, "text/html; charset=UTF-8", ct)

	body, ct = buildBody(Message{TextBody: "hi"})
	assert.Equal(t, "hi", body)
	assert.Equal(t, "text/plain; charset=UTF-8", ct)
}
