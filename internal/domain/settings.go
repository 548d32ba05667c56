package domain

// Setting keys persisted in the generic key/value settings table.
const (
	SettingShiftHours       = "shift_hours"
	SettingRemindersEnabled = "reminders_enabled"
	SettingReminderLead     = "reminder_lead_minutes"
	SettingReminderTitles   = "reminder_titles"
)

// Shift hour bounds. Values outside the range, or values that do not evenly
// divide 24, fall back to DefaultShiftHours when the slot grid is computed.
const (
	MinShiftHours     = 1
	MaxShiftHours     = 72
	DefaultShiftHours = 12
)

// DefaultReminderLeadMinutes is the lead time used when none is configured.
const DefaultReminderLeadMinutes = 15

// ReminderPolicy is the materialized view of the reminder settings read by
// the dispatcher each tick.
type ReminderPolicy struct {
	Enabled     bool     `json:"enabled"`
	LeadMinutes int      `json:"lead_minutes"`
	Titles      []string `json:"titles"` // eligible title names; empty disables dispatch
}

// Eligible reports whether the given title participates in reminders.
func (p *ReminderPolicy) Eligible(title string) bool {
	for _, t := range p.Titles {
		if t == title {
			return true
		}
	}
	return false
}
