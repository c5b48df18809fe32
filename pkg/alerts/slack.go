package alerts

import "context"

// SlackNotifier sends events to a Slack incoming webhook as one attachment.
type SlackNotifier struct {
	endpoint endpoint
	channel  string
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{endpoint: newEndpoint("slack", webhookURL, ""), channel: channel}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, event Event) error {
	color := "#439fe0" // blue
	title := "LiteLLM budgets: admin action"
	fields := []slackField{
		{Title: "Admin", Value: event.Actor, Short: true},
		{Title: "Budget", Value: event.BudgetID, Short: true},
	}

	switch event.Type {
	case EventBudgetCreated:
		color = "#36a64f" // green
		title = "LiteLLM budgets: budget created"
		fields = append(fields,
			slackField{Title: "Max Budget", Value: formatAmount(event.MaxBudget), Short: true},
			slackField{Title: "Reset", Value: event.ResetInterval, Short: true},
		)
	case EventBudgetAssigned:
		color = "#ff9900" // orange
		title = "LiteLLM budgets: budget assigned"
		fields = append(fields, slackField{Title: "Customer", Value: event.UserID, Short: true})
	}

	return s.endpoint.post(ctx, slackPayload{
		Channel: s.channel,
		Attachments: []slackAttachment{{
			Color:  color,
			Title:  title,
			Text:   event.Summary(),
			Fields: fields,
			Footer: "liteclient",
			Ts:     eventTime(event).Unix(),
		}},
	})
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
