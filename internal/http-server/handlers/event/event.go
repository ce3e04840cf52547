package event

// PublishTokenHeader carries the shared secret the websocket hub requires from publishers.
const PublishTokenHeader = "X-Publish-Token"

// Message is the envelope shared by the websocket hub and the socket publisher.
type Message struct {
	Channel string                 `json:"channel"`
	Event   string                 `json:"event"`
	Data    map[string]interface{} `json:"data"`
}

// Publisher delivers an event to a channel.
type Publisher interface {
	TriggerEvent(channel string, eventName string, data map[string]interface{}) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) TriggerEvent(string, string, map[string]interface{}) error {
	return nil
}
