package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Client is a registered push subscription with its browser and location metadata
type Client struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	Endpoint       string         `db:"endpoint" json:"endpoint"`
	P256dh         string         `db:"p256dh" json:"p256dh"`
	Auth           string         `db:"auth" json:"auth"`
	Browser        string         `db:"browser" json:"browser"`
	BrowserVersion string         `db:"browser_version" json:"browserVersion"`
	OS             string         `db:"os" json:"os"`
	Device         string         `db:"device" json:"device"`
	IP             *string        `db:"ip" json:"ip,omitempty"`
	Country        *string        `db:"country" json:"country,omitempty"`
	City           *string        `db:"city" json:"city,omitempty"`
	Language       *string        `db:"language" json:"language,omitempty"`
	Platform       *string        `db:"platform" json:"platform,omitempty"`
	Timezone       *string        `db:"timezone" json:"timezone,omitempty"`
	SubscribedURL  *string        `db:"subscribed_url" json:"subscribedUrl,omitempty"`
	Tags           pq.StringArray `db:"tags" json:"tags"`
	LandingPageID  *uuid.UUID     `db:"landing_page_id" json:"landingPageId,omitempty"`
	AccessStatus   string         `db:"access_status" json:"accessStatus"`
	SubscribedAt   time.Time      `db:"subscribed_at" json:"subscribedAt"`
	LastActive     time.Time      `db:"last_active" json:"lastActive"`
}

// ClientFilter narrows ListClients. Empty fields do not filter.
type ClientFilter struct {
	Search  string
	Browser string
	Country string
	Device  string
	Limit   int
	Offset  int
}

// ClientStats aggregates client counts for the dashboard
type ClientStats struct {
	Total          int            `json:"total"`
	ByAccessStatus map[string]int `json:"byAccessStatus"`
	ByBrowser      map[string]int `json:"byBrowser"`
	ByCountry      map[string]int `json:"byCountry"`
}

// TargetFilter selects the audience of a campaign. Empty slices match everything.
type TargetFilter struct {
	Browsers  []string
	Systems   []string
	SegmentID *uuid.UUID
}

// CampaignAction is a notification action button stored with a campaign
type CampaignAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
	URL    string `json:"url,omitempty"`
}

// CampaignActions is the JSONB list of action buttons
type CampaignActions []CampaignAction

// Value implements the driver.Valuer interface for CampaignActions
func (a CampaignActions) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface for CampaignActions
func (a *CampaignActions) Scan(value interface{}) error {
	bytes, err := jsonBytes(value)
	if err != nil {
		return err
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*a = CampaignActions{}
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// CampaignVariant is the alternative content shown to the B side of an A/B test
type CampaignVariant struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Icon    string `json:"icon,omitempty"`
	Image   string `json:"image,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Value implements the driver.Valuer interface for CampaignVariant
func (v CampaignVariant) Value() (driver.Value, error) {
	return json.Marshal(v)
}

// Scan implements the sql.Scanner interface for CampaignVariant
func (v *CampaignVariant) Scan(value interface{}) error {
	bytes, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, v)
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("incompatible type for JSONB")
	}
}

// Campaign is a stored notification campaign with its aggregate counters
type Campaign struct {
	ID                 uuid.UUID        `db:"id" json:"id"`
	Name               string           `db:"name" json:"name"`
	Title              string           `db:"title" json:"title"`
	Message            string           `db:"message" json:"message"`
	Icon               *string          `db:"icon" json:"icon,omitempty"`
	Badge              *string          `db:"badge" json:"badge,omitempty"`
	Image              *string          `db:"image" json:"image,omitempty"`
	URL                *string          `db:"url" json:"url,omitempty"`
	Actions            CampaignActions  `db:"actions" json:"actions"`
	RequireInteraction bool             `db:"require_interaction" json:"requireInteraction"`
	VariantB           *CampaignVariant `db:"variant_b" json:"variantB,omitempty"`
	ABSplit            int              `db:"ab_split" json:"abSplit"`
	Audience           string           `db:"audience" json:"audience"`
	Browsers           pq.StringArray   `db:"browsers" json:"browsers"`
	Systems            pq.StringArray   `db:"systems" json:"systems"`
	SegmentID          *uuid.UUID       `db:"segment_id" json:"segmentId,omitempty"`
	ScheduleType       string           `db:"schedule_type" json:"scheduleType"`
	ScheduledAt        *time.Time       `db:"scheduled_at" json:"scheduledAt,omitempty"`
	Status             string           `db:"status" json:"status"`
	SentCount          int              `db:"sent_count" json:"sentCount"`
	DeliveredCount     int              `db:"delivered_count" json:"deliveredCount"`
	ClickedCount       int              `db:"clicked_count" json:"clickedCount"`
	FailedCount        int              `db:"failed_count" json:"failedCount"`
	CreatedAt          time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updatedAt"`
}

// CampaignCounters is the counter snapshot returned after an increment
type CampaignCounters struct {
	CampaignID     uuid.UUID `db:"id" json:"campaignId"`
	SentCount      int       `db:"sent_count" json:"sentCount"`
	DeliveredCount int       `db:"delivered_count" json:"deliveredCount"`
	ClickedCount   int       `db:"clicked_count" json:"clickedCount"`
	FailedCount    int       `db:"failed_count" json:"failedCount"`
}

// Delivery is one (campaign, client) send record
type Delivery struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	CampaignID uuid.UUID  `db:"campaign_id" json:"campaignId"`
	ClientID   uuid.UUID  `db:"client_id" json:"clientId"`
	Variant    string     `db:"variant" json:"variant"`
	Status     string     `db:"status" json:"status"`
	Error      *string    `db:"error" json:"error,omitempty"`
	SentAt     time.Time  `db:"sent_at" json:"sentAt"`
	ClickedAt  *time.Time `db:"clicked_at" json:"clickedAt,omitempty"`
}

// LandingPage is a site embedding the subscription widget
type LandingPage struct {
	ID               uuid.UUID `db:"id" json:"id"`
	LandingID        string    `db:"landing_id" json:"landingId"`
	Name             string    `db:"name" json:"name"`
	Domain           string    `db:"domain" json:"domain"`
	BotProtection    bool      `db:"bot_protection" json:"botProtection"`
	AllowRedirectURL *string   `db:"allow_redirect_url" json:"allowRedirectUrl,omitempty"`
	BlockRedirectURL *string   `db:"block_redirect_url" json:"blockRedirectUrl,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// Segment is a named group of clients
type Segment struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	ClientCount int       `db:"client_count" json:"clientCount"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
