package alerts

import (
	"context"
	"net/http"
	"strings"
	"time"
)

type slackSender struct {
	endpoint string
	client   *http.Client
	now      func() time.Time
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Fields []slackField `json:"fields,omitempty"`
	Footer string       `json:"footer"`
	TS     int64        `json:"ts"`
}

type slackPayload struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

func (s *slackSender) Send(ctx context.Context, msg Message) error {
	msg = msg.normalized()
	now := time.Now
	if s.now != nil {
		now = s.now
	}

	var text strings.Builder
	text.WriteString(msg.Severity.Emoji())
	if msg.Title != "" {
		text.WriteString(" *")
		text.WriteString(msg.Title)
		text.WriteString("*")
	}
	if msg.Text != "" {
		text.WriteString("\n\n")
		text.WriteString(msg.Text)
	}

	fields := make([]slackField, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		fields = append(fields, slackField{Title: f.Title, Value: f.Value, Short: true})
	}
	payload := slackPayload{
		Text: text.String(),
		Attachments: []slackAttachment{{
			Color:  msg.Color,
			Fields: fields,
			Footer: "vigil",
			TS:     now().Unix(),
		}},
	}
	return postJSON(ctx, s.client, s.endpoint, "slack", payload)
}
