package alerts

import (
	"context"
	"net/http"
	"time"
)

// jsonSender posts the message as-is for generic receivers.
type jsonSender struct {
	endpoint string
	client   *http.Client
}

type jsonPayload struct {
	Message
	Source string    `json:"source"`
	SentAt time.Time `json:"sentAt"`
}

func (j *jsonSender) Send(ctx context.Context, msg Message) error {
	payload := jsonPayload{
		Message: msg.normalized(),
		Source:  "vigil",
		SentAt:  time.Now().UTC(),
	}
	return postJSON(ctx, j.client, j.endpoint, "webhook", payload)
}
