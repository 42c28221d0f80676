package storage

// SessionRecord is the login the CLI remembers between runs.
type SessionRecord struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	EntityID string `json:"entity_id,omitempty"`
	BaseURL  string `json:"base_url"`
}
