package hub

import "encoding/json"

const (
	MessageCreated  = "MessageCreated"
	MessageEdited   = "MessageEdited"
	MessageDeleted  = "MessageDeleted"
	MessagesCleared = "MessagesCleared"

	ChannelEdited  = "ChannelEdited"
	ChannelDeleted = "ChannelDeleted"
)

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Event wraps a payload in the broadcast envelope clients switch on.
func Event(event string, data any) ([]byte, error) {
	return json.Marshal(envelope{Event: event, Data: data})
}
