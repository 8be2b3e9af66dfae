package services

import (
	"context"

	"github.com/charvilabs/charvi/app/jobs"
	"github.com/charvilabs/charvi/pkg/mail"
	"github.com/charvilabs/charvi/pkg/queue"
)

// Notifier delivers transactional messages to users.
//
// Contract: services invoke it only after the primary mutation has committed,
// and they log-and-swallow any error it returns. A Notifier failure must never
// surface to the caller of the operation that triggered it.
type Notifier interface {
	Notify(ctx context.Context, to, subject, body string) error
}

// MailNotifier sends synchronously through the SMTP mailer.
type MailNotifier struct{}

func (MailNotifier) Notify(_ context.Context, to, subject, body string) error {
	return mail.To(to).Subject(subject).Body(body).Send()
}

// QueueNotifier hands the email to the background queue; workers retry and
// persist exhausted failures, so enqueueing is the only step that can fail.
type QueueNotifier struct{}

func (QueueNotifier) Notify(_ context.Context, to, subject, body string) error {
	return queue.Dispatch(jobs.EmailJob{To: to, Subject: subject, Body: body})
}
