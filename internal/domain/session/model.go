package session

import "time"

// Session is one authenticated connection context on the agent backend.
type Session struct {
	ID               string    `json:"session_id"`
	InstanceURL      string    `json:"instance_url"`
	OrganizationName string    `json:"organization_name"`
	CreatedAt        time.Time `json:"created_at"`
}

// DisplayName returns the organization name, falling back to a short id.
func (s Session) DisplayName() string {
	if s.OrganizationName != "" {
		return s.OrganizationName
	}
	if len(s.ID) > 8 {
		return s.ID[:8]
	}
	return s.ID
}
