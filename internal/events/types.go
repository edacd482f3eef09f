package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	ConversationID() string
}

// Topic constants
const (
	TopicConversation = "conversation"
	TopicExecution    = "execution"
)

// Event type constants
const (
	EventTypeConversationStarted  = "conversation.started"
	EventTypeSpeakerSelected      = "conversation.speaker"
	EventTypeMessagePosted        = "conversation.message"
	EventTypeConversationFinished = "conversation.finished"
	EventTypeConversationFailed   = "conversation.failed"
	EventTypeCodeExecuted         = "execution.completed"
)

// ConversationStartedEvent is published once the opening message is ready.
type ConversationStartedEvent struct {
	ID        string
	Mode      string
	Roles     []string
	MaxRound  int
	Timestamp time.Time
}

func (e ConversationStartedEvent) EventType() string      { return EventTypeConversationStarted }
func (e ConversationStartedEvent) ConversationID() string { return e.ID }

// SpeakerSelectedEvent is published before a participant takes its turn.
type SpeakerSelectedEvent struct {
	ID        string
	Speaker   string
	Round     int
	Timestamp time.Time
}

func (e SpeakerSelectedEvent) EventType() string      { return EventTypeSpeakerSelected }
func (e SpeakerSelectedEvent) ConversationID() string { return e.ID }

// MessagePostedEvent is published when a message is appended to the transcript.
type MessagePostedEvent struct {
	ID         string
	Round      int
	Speaker    string
	Content    string
	IsTerminal bool
	Timestamp  time.Time
}

func (e MessagePostedEvent) EventType() string      { return EventTypeMessagePosted }
func (e MessagePostedEvent) ConversationID() string { return e.ID }

// CodeExecutedEvent is published after the executor runs code blocks.
type CodeExecutedEvent struct {
	ID        string
	Blocks    int
	ExitCode  int
	Duration  time.Duration
	Timestamp time.Time
}

func (e CodeExecutedEvent) EventType() string      { return EventTypeCodeExecuted }
func (e CodeExecutedEvent) ConversationID() string { return e.ID }

// ConversationFinishedEvent is published when the chat ends normally.
type ConversationFinishedEvent struct {
	ID        string
	Reason    string
	Messages  int
	Duration  time.Duration
	Timestamp time.Time
}

func (e ConversationFinishedEvent) EventType() string      { return EventTypeConversationFinished }
func (e ConversationFinishedEvent) ConversationID() string { return e.ID }

// ConversationFailedEvent is published when the chat stops on an error.
type ConversationFailedEvent struct {
	ID        string
	Err       error
	Messages  int
	Duration  time.Duration
	Timestamp time.Time
}

func (e ConversationFailedEvent) EventType() string      { return EventTypeConversationFailed }
func (e ConversationFailedEvent) ConversationID() string { return e.ID }
