package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Payphone-Digital/contacts-api/internal/dto"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
)

// Mailer renders a confirmation job and hands it to a Sender.
type Mailer struct {
	renderer *Renderer
	sender   Sender
}

func NewMailer(renderer *Renderer, sender Sender) *Mailer {
	return &Mailer{renderer: renderer, sender: sender}
}

func (m *Mailer) Deliver(ctx context.Context, job dto.ConfirmationMailJob) error {
	msg, err := m.renderer.Confirmation(job)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation to %s: %w", job.Email, err)
	}

	logger.InfoWithContext(ctx, "Confirmation email sent").
		String("email", job.Email).
		Duration(time.Since(start)).
		Log()
	return nil
}

// HandleDelivery is the queue consumer handler for confirmation jobs.
func (m *Mailer) HandleDelivery(ctx context.Context, body []byte) error {
	var job dto.ConfirmationMailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("decode confirmation job: %w", err)
	}
	if job.Email == "" || job.Token == "" {
		return fmt.Errorf("confirmation job is missing email or token")
	}
	return m.Deliver(ctx, job)
}

// InlineDispatcher sends straight away, used when no broker is configured.
type InlineDispatcher struct {
	mailer *Mailer
}

func NewInlineDispatcher(mailer *Mailer) *InlineDispatcher {
	return &InlineDispatcher{mailer: mailer}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, job dto.ConfirmationMailJob) error {
	return d.mailer.Deliver(ctx, job)
}

// Publisher is implemented by pkg/queue.Publisher.
type Publisher interface {
	Publish(ctx context.Context, queue string, v interface{}) error
}

// QueueDispatcher publishes the job for a worker to deliver.
type QueueDispatcher struct {
	publisher Publisher
	queue     string
}

func NewQueueDispatcher(publisher Publisher, queue string) *QueueDispatcher {
	return &QueueDispatcher{publisher: publisher, queue: queue}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, job dto.ConfirmationMailJob) error {
	if err := d.publisher.Publish(ctx, d.queue, job); err != nil {
		return err
	}

	logger.DebugWithContext(ctx, "Confirmation job queued").
		String("email", job.Email).
		String("queue", d.queue).
		Log()
	return nil
}
