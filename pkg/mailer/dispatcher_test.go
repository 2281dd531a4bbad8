package mailer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haydnphilipdesign/coversheet-service/pkg/mailer"
)

type fakeSender struct {
	name  string
	id    string
	err   error
	calls int
	last  *mailer.Message
}

func (f *fakeSender) Name() string { return f.name }

func (f *fakeSender) Send(_ context.Context, msg *mailer.Message) (string, error) {
	f.calls++
	f.last = msg
	return f.id, f.err
}

func testMessage() *mailer.Message {
	return &mailer.Message{
		To:      "agent@example.com",
		Subject: "Transaction Cover Sheet",
		HTML:    "<p>attached</p>",
		Attachments: []mailer.Attachment{
			{Filename: "CoverSheet.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.4")},
		},
	}
}

func TestDispatcher_PrimarySucceeds(t *testing.T) {
	t.Parallel()

	primary := &fakeSender{name: "smtp", id: "<abc@host>"}
	secondary := &fakeSender{name: "resend", id: "re_123"}
	d := mailer.NewDispatcher(primary, secondary, nil)

	res := d.Send(context.Background(), testMessage())

	require.True(t, res.Sent)
	assert.Equal(t, "smtp", res.Provider)
	assert.Equal(t, "<abc@host>", res.MessageID)
	assert.Empty(t, res.Error)
	assert.Zero(t, secondary.calls, "secondary must not be attempted when primary succeeds")
}

func TestDispatcher_FallsBackToSecondary(t *testing.T) {
	t.Parallel()

	primary := &fakeSender{name: "smtp", err: errors.New("connection refused")}
	secondary := &fakeSender{name: "resend", id: "re_456"}
	d := mailer.NewDispatcher(primary, secondary, nil)

	msg := testMessage()
	res := d.Send(context.Background(), msg)

	require.True(t, res.Sent)
	assert.Equal(t, "resend", res.Provider)
	assert.Equal(t, "re_456", res.MessageID)
	assert.Empty(t, res.Error)

	// The secondary receives the identical message.
	assert.Same(t, msg, secondary.last)
}

func TestDispatcher_BothFail(t *testing.T) {
	t.Parallel()

	primary := &fakeSender{name: "smtp", err: errors.New("535 auth failed")}
	secondary := &fakeSender{name: "resend", err: errors.New("api key revoked")}
	d := mailer.NewDispatcher(primary, secondary, nil)

	res := d.Send(context.Background(), testMessage())

	require.False(t, res.Sent)
	assert.NotEmpty(t, res.Error)
	assert.Contains(t, res.Error, "535 auth failed")
	assert.Contains(t, res.Error, "api key revoked")
	assert.Contains(t, res.Error, "smtp")
	assert.Contains(t, res.Error, "resend")
}

func TestDispatcher_NoSecondaryConfigured(t *testing.T) {
	t.Parallel()

	primary := &fakeSender{name: "smtp", err: errors.New("timeout")}
	d := mailer.NewDispatcher(primary, nil, nil)

	res := d.Send(context.Background(), testMessage())

	require.False(t, res.Sent)
	assert.Contains(t, res.Error, "timeout")
}

func TestDispatchResult_Invariant(t *testing.T) {
	t.Parallel()

	ok := &fakeSender{name: "smtp", id: "<id@host>"}
	bad := &fakeSender{name: "resend", err: errors.New("boom")}

	sentRes := mailer.NewDispatcher(ok, nil, nil).Send(context.Background(), testMessage())
	assert.True(t, sentRes.Sent)
	assert.Empty(t, sentRes.Error)
	assert.NotEmpty(t, sentRes.MessageID)

	failRes := mailer.NewDispatcher(bad, nil, nil).Send(context.Background(), testMessage())
	assert.False(t, failRes.Sent)
	assert.NotEmpty(t, failRes.Error)
}
