package store

// Client access status
const (
	AccessStatusAllowed = "allowed"
	AccessStatusBlocked = "blocked"
	AccessStatusExpired = "expired"
	AccessStatusPending = "pending"
)

// Campaign status
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusScheduled = "scheduled"
	CampaignStatusActive    = "active"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"
)

// Campaign schedule type
const (
	ScheduleTypeImmediate = "immediate"
	ScheduleTypeScheduled = "scheduled"
)

// Campaign audience
const (
	AudienceAll     = "all"
	AudienceSegment = "segment"
)

// Notification delivery status
const (
	DeliveryStatusSent      = "sent"
	DeliveryStatusFailed    = "failed"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusClicked   = "clicked"
)

// A/B variants
const (
	VariantA = "A"
	VariantB = "B"
)

// IsValidAccessStatus reports whether s is a known client access status.
func IsValidAccessStatus(s string) bool {
	switch s {
	case AccessStatusAllowed, AccessStatusBlocked, AccessStatusExpired, AccessStatusPending:
		return true
	}
	return false
}
