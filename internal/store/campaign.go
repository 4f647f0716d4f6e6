package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"push-server/internal/observability"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const campaignColumns = `id, name, title, message, icon, badge, image, url, actions, require_interaction,
	variant_b, ab_split, audience, browsers, systems, segment_id, schedule_type, scheduled_at, status,
	sent_count, delivered_count, clicked_count, failed_count, created_at, updated_at`

// CreateCampaignParams represents parameters for creating a campaign
type CreateCampaignParams struct {
	Name               string
	Title              string
	Message            string
	Icon               *string
	Badge              *string
	Image              *string
	URL                *string
	Actions            CampaignActions
	RequireInteraction bool
	VariantB           *CampaignVariant
	ABSplit            int
	Audience           string
	Browsers           []string
	Systems            []string
	SegmentID          *uuid.UUID
	ScheduleType       string
	ScheduledAt        *time.Time
	Status             string
}

const sqlCreateCampaign = `
INSERT INTO campaigns (name, title, message, icon, badge, image, url, actions, require_interaction,
	variant_b, ab_split, audience, browsers, systems, segment_id, schedule_type, scheduled_at, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
RETURNING ` + campaignColumns

// CreateCampaign creates a new campaign
func (s *Store) CreateCampaign(ctx context.Context, params CreateCampaignParams) (Campaign, error) {
	browsers, systems := params.Browsers, params.Systems
	if browsers == nil {
		browsers = []string{}
	}
	if systems == nil {
		systems = []string{}
	}
	var campaign Campaign
	err := s.db.GetContext(ctx, &campaign, sqlCreateCampaign,
		params.Name,
		params.Title,
		params.Message,
		params.Icon,
		params.Badge,
		params.Image,
		params.URL,
		params.Actions,
		params.RequireInteraction,
		params.VariantB,
		params.ABSplit,
		params.Audience,
		pq.StringArray(browsers),
		pq.StringArray(systems),
		params.SegmentID,
		params.ScheduleType,
		params.ScheduledAt,
		params.Status,
	)
	if err != nil {
		s.logger.Error(ctx, "failed to create campaign", err)
		return Campaign{}, fmt.Errorf("failed to create campaign: %w", err)
	}
	return campaign, nil
}

const sqlGetCampaignByID = `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

// GetCampaignByID retrieves a campaign by ID
func (s *Store) GetCampaignByID(ctx context.Context, id uuid.UUID) (Campaign, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "campaign_id", Value: id})
	var campaign Campaign
	err := s.db.GetContext(ctx, &campaign, sqlGetCampaignByID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get campaign", err)
		return Campaign{}, fmt.Errorf("failed to get campaign: %w", err)
	}
	return campaign, nil
}

// ListCampaignsParams represents parameters for listing campaigns
type ListCampaignsParams struct {
	Status *string
	Limit  int
	Offset int
}

// ListCampaigns retrieves campaigns with optional status filter and pagination
func (s *Store) ListCampaigns(ctx context.Context, params ListCampaignsParams) ([]Campaign, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argCount := 1

	if params.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *params.Status)
		argCount++
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM campaigns"+where, args...); err != nil {
		s.logger.Error(ctx, "failed to count campaigns", err)
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	query := "SELECT " + campaignColumns + " FROM campaigns" + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, params.Limit, params.Offset)

	campaigns := []Campaign{}
	if err := s.db.SelectContext(ctx, &campaigns, query, args...); err != nil {
		s.logger.Error(ctx, "failed to list campaigns", err)
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, total, nil
}

const sqlListDueCampaigns = `SELECT ` + campaignColumns + ` FROM campaigns
WHERE status = 'scheduled' AND scheduled_at <= $1
ORDER BY scheduled_at ASC
LIMIT $2`

// ListDueCampaigns returns scheduled campaigns whose send time is at or before now
func (s *Store) ListDueCampaigns(ctx context.Context, now time.Time, limit int) ([]Campaign, error) {
	campaigns := []Campaign{}
	if err := s.db.SelectContext(ctx, &campaigns, sqlListDueCampaigns, now, limit); err != nil {
		s.logger.Error(ctx, "failed to list due campaigns", err)
		return nil, fmt.Errorf("failed to list due campaigns: %w", err)
	}
	return campaigns, nil
}

const sqlUpdateCampaignStatus = `
UPDATE campaigns SET status = $2, updated_at = NOW()
WHERE id = $1
RETURNING ` + campaignColumns

// UpdateCampaignStatus updates the status of a campaign
func (s *Store) UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status string) (Campaign, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "campaign_id", Value: id},
		observability.Field{Key: "status", Value: status},
	)
	var campaign Campaign
	err := s.db.GetContext(ctx, &campaign, sqlUpdateCampaignStatus, id, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to update campaign status", err)
		return Campaign{}, fmt.Errorf("failed to update campaign status: %w", err)
	}
	return campaign, nil
}

const (
	sqlDeleteCampaignDeliveries = `DELETE FROM notification_deliveries WHERE campaign_id = $1`
	sqlDeleteCampaign           = `DELETE FROM campaigns WHERE id = $1`
)

// DeleteCampaign removes a campaign and its delivery records
func (s *Store) DeleteCampaign(ctx context.Context, id uuid.UUID) error {
	ctx = observability.WithFields(ctx, observability.Field{Key: "campaign_id", Value: id})
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, sqlDeleteCampaignDeliveries, id); err != nil {
			s.logger.Error(ctx, "failed to delete campaign deliveries", err)
			return fmt.Errorf("failed to delete campaign deliveries: %w", err)
		}
		res, err := tx.ExecContext(ctx, sqlDeleteCampaign, id)
		if err != nil {
			s.logger.Error(ctx, "failed to delete campaign", err)
			return fmt.Errorf("failed to delete campaign: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return ErrNotFound
		}
		return nil
	})
}

const sqlResetCampaign = `
UPDATE campaigns
SET sent_count = 0, delivered_count = 0, clicked_count = 0, failed_count = 0,
	status = 'draft', updated_at = NOW()
WHERE id = $1
RETURNING ` + campaignColumns

// ResetCampaign zeroes the counters and deletes the delivery records of a campaign.
// This is the only path that decreases campaign counters.
func (s *Store) ResetCampaign(ctx context.Context, id uuid.UUID) (Campaign, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "campaign_id", Value: id})
	var campaign Campaign
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, sqlDeleteCampaignDeliveries, id); err != nil {
			s.logger.Error(ctx, "failed to delete campaign deliveries", err)
			return fmt.Errorf("failed to delete campaign deliveries: %w", err)
		}
		if err := tx.GetContext(ctx, &campaign, sqlResetCampaign, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			s.logger.Error(ctx, "failed to reset campaign", err)
			return fmt.Errorf("failed to reset campaign: %w", err)
		}
		return nil
	})
	if err != nil {
		return Campaign{}, err
	}
	return campaign, nil
}

const sqlIncrementCampaignCounters = `
UPDATE campaigns
SET sent_count = sent_count + $2,
	delivered_count = delivered_count + $3,
	failed_count = failed_count + $4,
	updated_at = NOW()
WHERE id = $1
RETURNING id, sent_count, delivered_count, clicked_count, failed_count`

// IncrementCampaignCounters atomically adds to a campaign's counters and returns the new totals
func (s *Store) IncrementCampaignCounters(ctx context.Context, id uuid.UUID, sent, delivered, failed int) (CampaignCounters, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "campaign_id", Value: id},
		observability.Field{Key: "sent", Value: sent},
		observability.Field{Key: "failed", Value: failed},
	)
	var counters CampaignCounters
	err := s.db.GetContext(ctx, &counters, sqlIncrementCampaignCounters, id, sent, delivered, failed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CampaignCounters{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to increment campaign counters", err)
		return CampaignCounters{}, fmt.Errorf("failed to increment campaign counters: %w", err)
	}
	return counters, nil
}

const sqlIncrementCampaignClicked = `
UPDATE campaigns SET clicked_count = clicked_count + 1, updated_at = NOW()
WHERE id = $1
RETURNING id, sent_count, delivered_count, clicked_count, failed_count`

// IncrementCampaignClicked atomically adds one click to a campaign
func (s *Store) IncrementCampaignClicked(ctx context.Context, id uuid.UUID) (CampaignCounters, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "campaign_id", Value: id})
	var counters CampaignCounters
	err := s.db.GetContext(ctx, &counters, sqlIncrementCampaignClicked, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CampaignCounters{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to increment campaign clicks", err)
		return CampaignCounters{}, fmt.Errorf("failed to increment campaign clicks: %w", err)
	}
	return counters, nil
}
