// Package session keeps per-session conversation history in memory so
// follow-up questions can reference earlier exchanges.
package session

import (
	"fmt"
	"strings"
	"sync"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// DefaultMaxHistory is the number of exchanges kept per session when no
// limit is configured.
const DefaultMaxHistory = 2

// Manager tracks conversation history per session. Sessions live only
// in memory; a restart forgets them.
//
// maxHistory counts exchanges, so each session retains at most
// 2*maxHistory messages. Trimming happens after every append.
type Manager struct {
	mu         sync.Mutex
	maxHistory int
	counter    int
	sessions   map[string][]Message
}

// NewManager creates a Manager keeping maxHistory exchanges per
// session. A non-positive maxHistory falls back to DefaultMaxHistory.
func NewManager(maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Manager{
		maxHistory: maxHistory,
		sessions:   make(map[string][]Message),
	}
}

// Create allocates a new empty session and returns its id. Ids are
// "session_N" with N counting from 1 for the lifetime of the manager.
func (m *Manager) Create() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counter++
	id := fmt.Sprintf("session_%d", m.counter)
	m.sessions[id] = []Message{}
	return id
}

// Add appends one message to a session, creating the session if it does
// not exist yet.
func (m *Manager) Add(sessionID string, role Role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.append(sessionID, Message{Role: role, Content: content})
}

// AddExchange appends a user question and the assistant's answer as a
// pair.
func (m *Manager) AddExchange(sessionID, question, answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.append(sessionID, Message{Role: RoleUser, Content: question})
	m.append(sessionID, Message{Role: RoleAssistant, Content: answer})
}

// append adds a message and trims to the retention window. Callers must
// hold the lock.
func (m *Manager) append(sessionID string, msg Message) {
	msgs := append(m.sessions[sessionID], msg)
	if limit := 2 * m.maxHistory; len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	m.sessions[sessionID] = msgs
}

// History renders a session's messages as "User: ..." / "Assistant: ..."
// lines. ok is false when the session is unknown or has no messages.
func (m *Manager) History(sessionID string) (history string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.sessions[sessionID]
	if len(msgs) == 0 {
		return "", false
	}

	lines := make([]string, len(msgs))
	for i, msg := range msgs {
		label := "User"
		if msg.Role == RoleAssistant {
			label = "Assistant"
		}
		lines[i] = fmt.Sprintf("%s: %s", label, msg.Content)
	}
	return strings.Join(lines, "\n"), true
}

// Clear empties a session's history while keeping the session valid.
// Clearing an unknown session is a no-op.
func (m *Manager) Clear(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionID]; exists {
		m.sessions[sessionID] = []Message{}
	}
}
