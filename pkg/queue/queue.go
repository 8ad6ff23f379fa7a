package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"rescuelink/pkg/email"
	"rescuelink/pkg/logger"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeSendEmail = "email:send"
	QueueDefault      = "default"
)

type Client struct {
	client   *asynq.Client
	maxRetry int
}

func NewClient(redisURL string, maxRetry int) (*Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	return &Client{client: asynq.NewClient(opt), maxRetry: maxRetry}, nil
}

func NewEmailTask(msg *email.Message) (*asynq.Task, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, payload), nil
}

func (c *Client) EnqueueEmail(ctx context.Context, msg *email.Message) (string, error) {
	task, err := NewEmailTask(msg)
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(c.maxRetry))
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// QueuedMailer hands email to the worker instead of dialing SMTP inline.
type QueuedMailer struct {
	client *Client
}

func NewQueuedMailer(client *Client) *QueuedMailer {
	return &QueuedMailer{client: client}
}

func (q *QueuedMailer) Send(ctx context.Context, msg *email.Message) error {
	_, err := q.client.EnqueueEmail(ctx, msg)
	return err
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	mailer email.Mailer
	logger *logger.Logger
}

func NewWorker(redisURL string, concurrency int, mailer email.Mailer, log *logger.Logger) (*Worker, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}

	w := &Worker{mux: asynq.NewServeMux(), mailer: mailer, logger: log}
	w.server = asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueDefault: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.WithError(err).WithField("task_type", task.Type()).Warn("Queued task failed")
		}),
	})
	w.mux.HandleFunc(TaskTypeSendEmail, w.handleSendEmail)

	return w, nil
}

// Run blocks until ctx is cancelled, then shuts the server down.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}

func (w *Worker) handleSendEmail(ctx context.Context, task *asynq.Task) error {
	var msg email.Message
	if err := json.Unmarshal(task.Payload(), &msg); err != nil {
		return fmt.Errorf("decode email task: %v: %w", err, asynq.SkipRetry)
	}

	err := w.mailer.Send(ctx, &msg)
	if errors.Is(err, email.ErrNotConfigured) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}
