package alert

import (
	"encoding/json"
	"fmt"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, event Event) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	case "pagerduty":
		return formatPagerDuty(event)
	default:
		return formatGeneric(event)
	}
}

func formatGeneric(event Event) ([]byte, error) {
	return json.Marshal(event)
}

func formatSlack(event Event) ([]byte, error) {
	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("agentvault: %s", event.Outcome),
				},
			},
			map[string]any{
				"type": "section",
				"fields": []any{
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Recipient:* %s", event.Recipient)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Amount:* %s", formatDollars(event.Amount))},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Outcome:* %s", event.Outcome)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Reason:* %s", event.Reason)},
				},
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(event Event) ([]byte, error) {
	severity := "info"
	switch event.Outcome {
	case "deny":
		severity = "warning"
	case "escalate":
		severity = "error"
	}

	payload := map[string]any{
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":  fmt.Sprintf("agentvault %s: %s %s", event.Outcome, event.Recipient, formatDollars(event.Amount)),
			"severity": severity,
			"source":   "agentvault",
			"custom_details": map[string]any{
				"recipient":  event.Recipient,
				"amount":     event.Amount,
				"reason":     event.Reason,
				"request_id": event.RequestID,
				"rules_hash": event.RulesHash,
			},
		},
	}
	return json.Marshal(payload)
}

func formatDollars(cents int64) string {
	if cents%100 == 0 {
		return fmt.Sprintf("$%d", cents/100)
	}
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
