package queue

import (
	"context"
	"errors"
	"testing"

	"rescuelink/pkg/email"
	"rescuelink/pkg/logger"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	got *email.Message
	err error
}

func (c *captureMailer) Send(ctx context.Context, msg *email.Message) error {
	c.got = msg
	return c.err
}

func TestHandleSendEmailDeliversPayload(t *testing.T) {
	m := &captureMailer{}
	w := &Worker{mailer: m, logger: logger.NewNop()}

	task, err := NewEmailTask(&email.Message{To: "a@b.c", Subject: "SOS Resolved"})
	require.NoError(t, err)

	require.NoError(t, w.handleSendEmail(context.Background(), task))
	assert.Equal(t, "SOS Resolved", m.got.Subject)
}

func TestHandleSendEmailSkipsRetryOnBadPayload(t *testing.T) {
	w := &Worker{mailer: &captureMailer{}, logger: logger.NewNop()}

	err := w.handleSendEmail(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleSendEmailRetriesTransientFailures(t *testing.T) {
	w := &Worker{mailer: &captureMailer{err: errors.New("421 try later")}, logger: logger.NewNop()}

	task, _ := NewEmailTask(&email.Message{To: "a@b.c"})
	err := w.handleSendEmail(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleSendEmailSkipsWhenMailerDisabled(t *testing.T) {
	w := &Worker{mailer: email.NoopMailer{}, logger: logger.NewNop()}

	task, _ := NewEmailTask(&email.Message{To: "a@b.c"})
	assert.ErrorIs(t, w.handleSendEmail(context.Background(), task), asynq.SkipRetry)
}
