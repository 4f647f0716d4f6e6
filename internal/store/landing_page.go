package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"push-server/internal/observability"

	"github.com/google/uuid"
)

const landingPageColumns = `id, landing_id, name, domain, bot_protection, allow_redirect_url, block_redirect_url, created_at, updated_at`

// CreateLandingPageParams represents parameters for creating a landing page
type CreateLandingPageParams struct {
	LandingID        string
	Name             string
	Domain           string
	BotProtection    bool
	AllowRedirectURL *string
	BlockRedirectURL *string
}

const sqlCreateLandingPage = `
INSERT INTO landing_pages (landing_id, name, domain, bot_protection, allow_redirect_url, block_redirect_url)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + landingPageColumns

// CreateLandingPage creates a landing page. ErrAlreadyExists is returned when landing_id is taken.
func (s *Store) CreateLandingPage(ctx context.Context, params CreateLandingPageParams) (LandingPage, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "landing_id", Value: params.LandingID})
	var page LandingPage
	err := s.db.GetContext(ctx, &page, sqlCreateLandingPage,
		params.LandingID,
		params.Name,
		params.Domain,
		params.BotProtection,
		params.AllowRedirectURL,
		params.BlockRedirectURL,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return LandingPage{}, ErrAlreadyExists
		}
		s.logger.Error(ctx, "failed to create landing page", err)
		return LandingPage{}, fmt.Errorf("failed to create landing page: %w", err)
	}
	return page, nil
}

const sqlGetLandingPageByLandingID = `SELECT ` + landingPageColumns + ` FROM landing_pages WHERE landing_id = $1`

// GetLandingPageByLandingID retrieves a landing page by its external landing id
func (s *Store) GetLandingPageByLandingID(ctx context.Context, landingID string) (LandingPage, error) {
	var page LandingPage
	err := s.db.GetContext(ctx, &page, sqlGetLandingPageByLandingID, landingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LandingPage{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get landing page", err)
		return LandingPage{}, fmt.Errorf("failed to get landing page: %w", err)
	}
	return page, nil
}

const sqlListLandingPages = `SELECT ` + landingPageColumns + ` FROM landing_pages ORDER BY created_at DESC`

// ListLandingPages returns all landing pages, newest first
func (s *Store) ListLandingPages(ctx context.Context) ([]LandingPage, error) {
	pages := []LandingPage{}
	if err := s.db.SelectContext(ctx, &pages, sqlListLandingPages); err != nil {
		s.logger.Error(ctx, "failed to list landing pages", err)
		return nil, fmt.Errorf("failed to list landing pages: %w", err)
	}
	return pages, nil
}

const sqlDeleteLandingPage = `DELETE FROM landing_pages WHERE id = $1`

// DeleteLandingPage removes a landing page. Clients keep existing with landing_page_id cleared.
func (s *Store) DeleteLandingPage(ctx context.Context, id uuid.UUID) error {
	return s.execOne(ctx, "delete landing page", sqlDeleteLandingPage, id)
}
