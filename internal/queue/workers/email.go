package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/dmarkov/saasadmin/internal/mail"
	"github.com/dmarkov/saasadmin/internal/queue"
)

// EmailWorker delivers non-critical mail off the request path. Failures are
// retried by asynq; nothing upstream is rolled back.
type EmailWorker struct {
	sender mail.Sender
}

func NewEmailWorker(sender mail.Sender) *EmailWorker {
	return &EmailWorker{sender: sender}
}

func (w *EmailWorker) ProcessWelcome(ctx context.Context, t *asynq.Task) error {
	var p queue.WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal welcome payload: %w", err)
	}
	if err := w.sender.Send(ctx, mail.WelcomeMessage(p.Email, p.FirstName)); err != nil {
		return err
	}
	slog.Info("welcome email sent", "email", p.Email)
	return nil
}

func (w *EmailWorker) ProcessPasswordChanged(ctx context.Context, t *asynq.Task) error {
	var p queue.PasswordChangedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal password changed payload: %w", err)
	}
	return w.sender.Send(ctx, mail.PasswordChangedMessage(p.Email))
}

func (w *EmailWorker) ProcessAdhoc(ctx context.Context, t *asynq.Task) error {
	var p queue.AdhocEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal adhoc payload: %w", err)
	}
	return w.sender.Send(ctx, mail.Message{To: p.To, Subject: p.Subject, HTML: p.Body})
}
