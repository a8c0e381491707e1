package models

import (
	"fmt"
	"time"
)

// Message is one entry of the conversation log. Messages live only as long as the page showing them.
type Message struct {
	Sender Sender
	Text   string
}

// Sender identifies who produced a message.
type Sender string

const (
	// SenderUser marks a question typed by the user. Its text is shown verbatim.
	SenderUser Sender = "user"
	// SenderBot marks an answer streamed from the backend. Its text grows while the answer streams.
	SenderBot Sender = "bot"
)

// Labels are the names shown in front of each entry.
type Labels struct {
	User string `yaml:"user"`
	Bot  string `yaml:"bot"`
}

// DefaultLabels are the labels of the ViLaw assistant.
var DefaultLabels = Labels{
	User: "Bạn",
	Bot:  "Vilaw",
}

// Label returns the label of sender.
func (l Labels) Label(sender Sender) string {
	if sender == SenderUser {
		return l.User
	}
	return l.Bot
}

// Line renders msg the way the log displays it, e.g. "Bạn: Xin chào".
func (l Labels) Line(msg Message) string {
	return fmt.Sprintf("%s: %s", l.Label(msg.Sender), msg.Text)
}

// SessionRecord describes how one streamed answer went. It never holds the question or the answer.
type SessionRecord struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"clientId,omitempty"`
	Backend   string    `json:"backend"`
	State     string    `json:"state"`
	Bytes     int       `json:"bytes"`
	Runes     int       `json:"runes"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
}
