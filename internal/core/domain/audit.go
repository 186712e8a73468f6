package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names an operator- or merchant-initiated change worth keeping.
type AuditAction string

const (
	AuditActionCreateSession       AuditAction = "CREATE_SESSION"
	AuditActionCreateWebhook       AuditAction = "CREATE_WEBHOOK"
	AuditActionUpdateWebhook       AuditAction = "UPDATE_WEBHOOK"
	AuditActionRotateWebhookSecret AuditAction = "ROTATE_WEBHOOK_SECRET"
	AuditActionIssueAPIToken       AuditAction = "ISSUE_API_TOKEN"
)

// AuditLog is one append-only audit row. Details holds a JSON object; IPAddress
// is empty for actions taken from the CLI.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	ProjectID    *uuid.UUID  `json:"project_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"`
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}

// NewAuditLog stamps a fresh entry for action on a resource.
func NewAuditLog(action AuditAction, resourceType, resourceID string) *AuditLog {
	return &AuditLog{
		ID:           uuid.New(),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		CreatedAt:    time.Now().UTC(),
	}
}

// ForProject scopes the entry to a project.
func (a *AuditLog) ForProject(id uuid.UUID) *AuditLog {
	a.ProjectID = &id
	return a
}
