// Package domain defines the core types for the title reservation engine.
package domain

// Title is a named scarce privilege that can be held by one holder at a time.
// Titles are created at provisioning time and never deleted in normal
// operation; administration may rename them or toggle requestability.
type Title struct {
	Name        string `json:"name"`                 // Unique display name
	Requestable bool   `json:"requestable"`          // Whether the title can be reserved
	IconURL     string `json:"icon_url,omitempty"`   // Dashboard icon reference
	Perpetual   bool   `json:"perpetual"`            // Never expires once claimed; exactly one per catalog
	SortOrder   int    `json:"sort_order,omitempty"` // Stable dashboard ordering
}
