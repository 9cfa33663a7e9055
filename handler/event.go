package handler

import "confessbot/model"

// EventType classifies inbound interactions.
type EventType int

const (
	EventButton EventType = iota + 1
	EventForm
	EventCommand
)

func (t EventType) String() string {
	switch t {
	case EventButton:
		return "button"
	case EventForm:
		return "form"
	case EventCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Event is an inbound platform interaction.
type Event struct {
	Type EventType
	// CustomID is the raw correlation token of a button or form.
	CustomID string
	// Command is the slash command name for EventCommand.
	Command string
	// Fields holds form input values keyed by field id.
	Fields map[string]string

	UserID    string
	Roles     []string
	ChannelID string
	// Message is the message carrying the activated button.
	Message     model.MessageRef
	Interaction model.InteractionRef
}

// Field returns the value of a form field, or "" when absent.
func (e Event) Field(id string) string {
	if e.Fields == nil {
		return ""
	}
	return e.Fields[id]
}
