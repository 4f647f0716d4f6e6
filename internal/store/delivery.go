package store

import (
	"context"
	"fmt"

	"push-server/internal/observability"

	"github.com/google/uuid"
)

// CreateDeliveryParams represents parameters for recording one send outcome
type CreateDeliveryParams struct {
	CampaignID uuid.UUID
	ClientID   uuid.UUID
	Variant    string
	Status     string
	Error      *string
}

const sqlCreateDelivery = `
INSERT INTO notification_deliveries (campaign_id, client_id, variant, status, error)
VALUES ($1, $2, $3, $4, $5)`

// CreateDelivery records one delivery. A second record for the same
// (campaign, client) pair violates the unique constraint; that case returns
// inserted=false and no error so replayed batches are idempotent.
func (s *Store) CreateDelivery(ctx context.Context, params CreateDeliveryParams) (inserted bool, err error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "campaign_id", Value: params.CampaignID},
		observability.Field{Key: "client_id", Value: params.ClientID},
	)
	variant := params.Variant
	if variant == "" {
		variant = VariantA
	}
	_, err = s.db.ExecContext(ctx, sqlCreateDelivery,
		params.CampaignID,
		params.ClientID,
		variant,
		params.Status,
		params.Error,
	)
	if err != nil {
		if isUniqueViolation(err) {
			s.logger.Debug(ctx, "delivery already recorded")
			return false, nil
		}
		s.logger.Error(ctx, "failed to create delivery", err)
		return false, fmt.Errorf("failed to create delivery: %w", err)
	}
	return true, nil
}

const sqlMarkDeliveryClicked = `
UPDATE notification_deliveries SET status = 'clicked', clicked_at = NOW()
WHERE campaign_id = $1 AND client_id = $2 AND status IN ('sent', 'delivered')`

// MarkDeliveryClicked transitions a sent or delivered delivery to clicked. It
// reports false when there is no such delivery, it was already clicked or it
// failed.
func (s *Store) MarkDeliveryClicked(ctx context.Context, campaignID, clientID uuid.UUID) (bool, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "campaign_id", Value: campaignID},
		observability.Field{Key: "client_id", Value: clientID},
	)
	res, err := s.db.ExecContext(ctx, sqlMarkDeliveryClicked, campaignID, clientID)
	if err != nil {
		s.logger.Error(ctx, "failed to mark delivery clicked", err)
		return false, fmt.Errorf("failed to mark delivery clicked: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

const sqlListCampaignDeliveries = `
SELECT id, campaign_id, client_id, variant, status, error, sent_at, clicked_at
FROM notification_deliveries
WHERE campaign_id = $1
ORDER BY sent_at`

// ListCampaignDeliveries returns every delivery of a campaign
func (s *Store) ListCampaignDeliveries(ctx context.Context, campaignID uuid.UUID) ([]Delivery, error) {
	deliveries := []Delivery{}
	if err := s.db.SelectContext(ctx, &deliveries, sqlListCampaignDeliveries, campaignID); err != nil {
		s.logger.Error(ctx, "failed to list campaign deliveries", err)
		return nil, fmt.Errorf("failed to list campaign deliveries: %w", err)
	}
	return deliveries, nil
}
