package conversation

// Message roles, matching the wire format of the completion backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation entry. Messages are immutable once
// appended to a history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
