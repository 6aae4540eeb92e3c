package memory

import (
	"strings"
	"sync"
	"time"
)

// WindowCap bounds short-term conversation history.
const WindowCap = 10

// Window is the in-session conversation buffer. It keeps the most recent
// WindowCap messages in submission order, dropping the oldest first.
type Window struct {
	mu       sync.Mutex
	messages []ConversationMessage
}

func NewWindow() *Window {
	return &Window{}
}

// Append records one turn, evicting the oldest when the buffer is full.
func (w *Window) Append(role, content string) {
	w.AppendMessage(ConversationMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}

// AppendMessage records a turn with its original timestamp, used when
// restoring history from a persisted conversation.
func (w *Window) AppendMessage(m ConversationMessage) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, m)
	if len(w.messages) > WindowCap {
		w.messages = w.messages[len(w.messages)-WindowCap:]
	}
}

// Messages returns a copy of the buffered turns, oldest first.
func (w *Window) Messages() []ConversationMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]ConversationMessage, len(w.messages))
	copy(out, w.messages)
	return out
}

func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.messages)
}

// Reset drops all buffered turns.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = nil
}

// FormattedHistory renders the buffer as labelled lines for prompt use.
func (w *Window) FormattedHistory() string {
	msgs := w.Messages()
	if len(msgs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		label := "User"
		if m.Role == RoleAssistant {
			label = "Assistant"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}
