package domain

import "time"

// Audit actions recorded against the ledger.
const (
	AuditBook          = "book"
	AuditCancel        = "cancel"
	AuditAdminRelease  = "admin_release_reservation"
	AuditActivate      = "activate"
	AuditRelease       = "release"
	AuditForceRelease  = "force_release"
	AuditManualAssign  = "manual_assign"
	AuditTitleRenamed  = "title_renamed"
	AuditSettingChange = "setting_change"
)

// Audit sources identify which frontend originated a mutation.
const (
	SourceWeb    = "web"
	SourceChat   = "chat"
	SourceAdmin  = "admin"
	SourceSystem = "system"
)

// AuditRecord is one append-only ledger entry describing a mutation.
type AuditRecord struct {
	ID        string    `json:"id"`
	At        time.Time `json:"at"`
	Action    string    `json:"action"`
	TitleName string    `json:"title_name,omitempty"`
	Holder    string    `json:"holder,omitempty"`
	Location  string    `json:"location,omitempty"`
	Source    string    `json:"source"`
	Note      string    `json:"note,omitempty"`
}
