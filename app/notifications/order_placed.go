// Package notifications defines the multi-channel notices Charvi sends to
// the shop owner. Customer-facing mail goes through services.Notifier; these
// are ops alerts.
package notifications

import (
	"fmt"

	"github.com/charvilabs/charvi/app/services"
	"github.com/charvilabs/charvi/config"
	"github.com/charvilabs/charvi/pkg/notification"
)

// OrderPlaced alerts the shop owner that a new order came in. Slack is only
// attempted when a webhook is configured.
type OrderPlaced struct {
	Change services.StatusChange
}

func (n *OrderPlaced) Via() []string {
	channels := []string{"mail"}
	if config.SlackWebhookURL() != "" {
		channels = append(channels, "slack")
	}
	return channels
}

func (n *OrderPlaced) ToMail() notification.MailData {
	return notification.MailData{
		Subject: fmt.Sprintf("New order %s", n.Change.Code),
		Body: fmt.Sprintf("<h2>New order %s</h2><p>Total: %.2f</p>",
			n.Change.Code, n.Change.Total),
		Text: fmt.Sprintf("New order %s, total %.2f", n.Change.Code, n.Change.Total),
	}
}

func (n *OrderPlaced) ToSlack() notification.SlackData {
	return notification.SlackData{
		Text: fmt.Sprintf(":shopping_bags: New order *%s* — %.2f", n.Change.Code, n.Change.Total),
		Attachments: []notification.SlackAttachment{
			{Color: "good", Footer: "charvi orders"},
		},
	}
}
