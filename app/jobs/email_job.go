// Package jobs defines the background jobs the queue workers process.
package jobs

import (
	"github.com/charvilabs/charvi/pkg/mail"
	"github.com/charvilabs/charvi/pkg/queue"
)

// EmailJob delivers one transactional email through the SMTP mailer.
type EmailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"` // HTML
}

func (j EmailJob) Handle() error {
	return mail.To(j.To).Subject(j.Subject).Body(j.Body).Send()
}

// RegisterAll makes every job type deserializable by the queue workers.
// Call once at boot.
func RegisterAll() {
	queue.Register("jobs.EmailJob", func() queue.Job { return &EmailJob{} })
}
