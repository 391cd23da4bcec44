package broadcast

import (
	"time"

	"github.com/google/uuid"
)

// Job is the JSON payload put on the RabbitMQ queue for one broadcast
// recipient. Every recipient gets its own job so a failure never affects
// the others.
type Job struct {
	ID        string    `json:"id"`
	Batch     string    `json:"batch"`
	ChatID    int64     `json:"chat_id"`
	Text      string    `json:"text"`
	Attempt   int       `json:"attempt,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewBatch returns a batch id shared by all jobs of one broadcast.
func NewBatch() string {
	return uuid.NewString()
}

// NewJob builds the job for a single recipient.
func NewJob(batch string, chatID int64, text string) Job {
	return Job{
		ID:        uuid.NewString(),
		Batch:     batch,
		ChatID:    chatID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}

// MaxAttempts bounds redeliveries after a rate-limit response.
const MaxAttempts = 2
