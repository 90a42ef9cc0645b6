package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dmarkov/saasadmin/internal/config"
)

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) EnqueueWelcomeEmail(email, firstName string) error {
	return c.enqueue(TypeWelcomeEmail, WelcomeEmailPayload{Email: email, FirstName: firstName},
		asynq.MaxRetry(3), asynq.Timeout(30*time.Second))
}

func (c *Client) EnqueuePasswordChanged(email string) error {
	return c.enqueue(TypePasswordChanged, PasswordChangedPayload{Email: email},
		asynq.MaxRetry(3), asynq.Timeout(30*time.Second))
}

func (c *Client) EnqueueAdhocEmail(to, subject, body string) error {
	return c.enqueue(TypeAdhocEmail, AdhocEmailPayload{To: to, Subject: subject, Body: body},
		asynq.MaxRetry(5), asynq.Timeout(30*time.Second))
}

func (c *Client) enqueue(taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	_, err = c.client.Enqueue(task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
