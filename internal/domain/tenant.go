package domain

// Tenant is an external destination/config group (e.g. one server community)
// with its own notification endpoint. At most one tenant is the default
// across the whole registry.
type Tenant struct {
	ID            string `json:"id"`
	WebhookURL    string `json:"webhook_url"`
	MentionTarget string `json:"mention_target,omitempty"`
	IsDefault     bool   `json:"is_default"`
}

// Destination is a resolved notification target: where to deliver and who,
// if anyone, to mention.
type Destination struct {
	WebhookURL string
	Mention    string
	TenantID   string // empty for the legacy fallback
}
