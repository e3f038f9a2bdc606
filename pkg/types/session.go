// Package types provides the core data types shared across the agent
// orchestrator: sessions, messages, content blocks, and tool definitions.
package types

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	SessionIdle      SessionStatus = "idle"
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Session represents one conversation between a client and the model.
type Session struct {
	ID          string        `json:"id"`
	Status      SessionStatus `json:"status"`
	WorkingDir  string        `json:"workingDir"`
	Title       string        `json:"title,omitempty"`
	TotalTokens int           `json:"totalTokens"`
	CurrentPlan *string       `json:"currentPlan,omitempty"`
	CreatedAt   int64         `json:"createdAt"`
	UpdatedAt   int64         `json:"updatedAt"`
}

// SessionSummary is the shape returned by listSessions.
type SessionSummary struct {
	ID           string        `json:"id"`
	Status       SessionStatus `json:"status"`
	WorkingDir   string        `json:"workingDir"`
	Title        string        `json:"title,omitempty"`
	TotalTokens  int           `json:"totalTokens"`
	CreatedAt    int64         `json:"createdAt"`
	UpdatedAt    int64         `json:"updatedAt"`
	MessageCount int           `json:"messageCount"`
	Preview      string        `json:"preview,omitempty"`
}
