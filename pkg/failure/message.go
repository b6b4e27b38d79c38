package failure

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/venkytv/nats-errortrigger/pkg/errortrigger"
)

// Message describes a failed function invocation exchanged over NATS.
type Message struct {
	ID         string    `json:"id,omitempty"`
	Source     string    `json:"source"` // qualified function name
	OccurredAt time.Time `json:"occurred_at"`
	Error      string    `json:"error"`
	ErrorType  string    `json:"error_type,omitempty"`
	Host       string    `json:"host,omitempty"`
}

// NewMessage describes err as a failure of source.
func NewMessage(source string, err error) Message {
	msg := Message{Source: source}
	if err != nil {
		msg.Error = err.Error()
		msg.ErrorType = fmt.Sprintf("%T", err)
	}
	return msg
}

// Marshal renders the message as JSON for transport.
func (m Message) Marshal() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Unmarshal decodes a failure message from JSON.
func Unmarshal(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}
	return msg, msg.Validate()
}

// Validate ensures required fields are present.
func (m Message) Validate() error {
	if m.Source == "" {
		return errors.New("source is required")
	}
	if m.OccurredAt.IsZero() {
		return errors.New("occurred_at is required")
	}
	if m.Error == "" {
		return errors.New("error is required")
	}
	return nil
}

// Event converts the message into a failure event for the dispatcher.
func (m Message) Event() (errortrigger.FailureEvent, error) {
	if err := m.Validate(); err != nil {
		return errortrigger.FailureEvent{}, err
	}
	return errortrigger.NewFailureEvent(m.Source, m.OccurredAt, &RemoteError{
		ID:      m.ID,
		Type:    m.ErrorType,
		Message: m.Error,
		Host:    m.Host,
	})
}

// RemoteError is the error payload of a failure reported by another process.
type RemoteError struct {
	ID      string
	Type    string
	Message string
	Host    string
}

func (e *RemoteError) Error() string {
	return e.Message
}
