// Package chat runs a round-robin group conversation between an executor and
// model-backed assistants.
package chat

import (
	"strings"
	"time"
	"unicode"
)

// Termination reasons recorded on a Transcript.
const (
	ReasonSentinel     = "sentinel"
	ReasonMaxRound     = "max_round"
	ReasonMaxAutoReply = "max_auto_reply"
	ReasonHumanExit    = "human_exit"
)

// Message is one posted turn. IsTerminal is fixed at construction.
type Message struct {
	Round      int
	Speaker    string
	Content    string
	IsTerminal bool
	Timestamp  time.Time
}

// NewMessage builds a message and evaluates the termination sentinel once.
// The check is a case-sensitive suffix match after trailing whitespace is
// trimmed; an empty sentinel never terminates.
func NewMessage(round int, speaker, content, sentinel string) Message {
	return Message{
		Round:      round,
		Speaker:    speaker,
		Content:    content,
		IsTerminal: IsTermination(content, sentinel),
		Timestamp:  time.Now(),
	}
}

// IsTermination reports whether content ends with sentinel.
func IsTermination(content, sentinel string) bool {
	if sentinel == "" {
		return false
	}
	return strings.HasSuffix(strings.TrimRightFunc(content, unicode.IsSpace), sentinel)
}

// Transcript is the ordered record of a conversation.
type Transcript struct {
	ID       string
	Messages []Message
	Reason   string // Empty when the chat stopped on an error
	Rounds   int    // Speaker turns taken, including turns that posted nothing
}

// Last returns the most recent message.
func (t *Transcript) Last() (Message, bool) {
	if len(t.Messages) == 0 {
		return Message{}, false
	}
	return t.Messages[len(t.Messages)-1], true
}

// Completed reports whether the conversation reached a termination condition.
func (t *Transcript) Completed() bool {
	return t.Reason != ""
}
