package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"push-server/internal/observability"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgForeignKeyViolation is the SQLSTATE for foreign_key_violation.
const pgForeignKeyViolation = "23503"

const segmentColumns = `s.id, s.name, s.created_at,
	(SELECT COUNT(*) FROM segment_clients sc WHERE sc.segment_id = s.id) AS client_count`

const sqlCreateSegment = `INSERT INTO segments (name) VALUES ($1) RETURNING id, name, created_at`

// CreateSegment creates a named client segment
func (s *Store) CreateSegment(ctx context.Context, name string) (Segment, error) {
	var segment Segment
	if err := s.db.GetContext(ctx, &segment, sqlCreateSegment, name); err != nil {
		s.logger.Error(ctx, "failed to create segment", err)
		return Segment{}, fmt.Errorf("failed to create segment: %w", err)
	}
	return segment, nil
}

const sqlGetSegmentByID = `SELECT ` + segmentColumns + ` FROM segments s WHERE s.id = $1`

// GetSegmentByID retrieves a segment with its member count
func (s *Store) GetSegmentByID(ctx context.Context, id uuid.UUID) (Segment, error) {
	var segment Segment
	if err := s.db.GetContext(ctx, &segment, sqlGetSegmentByID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Segment{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get segment", err)
		return Segment{}, fmt.Errorf("failed to get segment: %w", err)
	}
	return segment, nil
}

const sqlListSegments = `SELECT ` + segmentColumns + ` FROM segments s ORDER BY s.created_at DESC`

// ListSegments returns all segments, newest first
func (s *Store) ListSegments(ctx context.Context) ([]Segment, error) {
	segments := []Segment{}
	if err := s.db.SelectContext(ctx, &segments, sqlListSegments); err != nil {
		s.logger.Error(ctx, "failed to list segments", err)
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	return segments, nil
}

const sqlDeleteSegment = `DELETE FROM segments WHERE id = $1`

// DeleteSegment removes a segment and its memberships. Campaigns targeting it
// keep existing with segment_id cleared.
func (s *Store) DeleteSegment(ctx context.Context, id uuid.UUID) error {
	return s.execOne(ctx, "delete segment", sqlDeleteSegment, id)
}

const sqlAddClientToSegment = `
INSERT INTO segment_clients (segment_id, client_id) VALUES ($1, $2)
ON CONFLICT (segment_id, client_id) DO NOTHING`

// AddClientToSegment adds a client to a segment. Adding an existing member is a no-op.
func (s *Store) AddClientToSegment(ctx context.Context, segmentID, clientID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, sqlAddClientToSegment, segmentID, clientID); err != nil {
		s.logger.Error(ctx, "failed to add client to segment", err)
		return fmt.Errorf("failed to add client to segment: %w", err)
	}
	return nil
}

const sqlAddClientsToSegment = `
INSERT INTO segment_clients (segment_id, client_id)
SELECT $1::uuid, c.id FROM clients c WHERE c.id = ANY($2::uuid[])
ON CONFLICT (segment_id, client_id) DO NOTHING`

// AddClientsToSegment adds the existing clients among clientIDs to a segment and
// returns how many memberships were created. Unknown client ids and existing
// members are ignored. ErrNotFound is returned when the segment does not exist.
func (s *Store) AddClientsToSegment(ctx context.Context, segmentID uuid.UUID, clientIDs []uuid.UUID) (int, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "segment_id", Value: segmentID})
	res, err := s.db.ExecContext(ctx, sqlAddClientsToSegment, segmentID, uuidArray(clientIDs))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return 0, ErrNotFound
		}
		s.logger.Error(ctx, "failed to add clients to segment", err)
		return 0, fmt.Errorf("failed to add clients to segment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}

const sqlRemoveClientFromSegment = `DELETE FROM segment_clients WHERE segment_id = $1 AND client_id = $2`

// RemoveClientFromSegment removes one membership. ErrNotFound is returned when
// the client is not a member.
func (s *Store) RemoveClientFromSegment(ctx context.Context, segmentID, clientID uuid.UUID) error {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "segment_id", Value: segmentID},
		observability.Field{Key: "client_id", Value: clientID},
	)
	res, err := s.db.ExecContext(ctx, sqlRemoveClientFromSegment, segmentID, clientID)
	if err != nil {
		s.logger.Error(ctx, "failed to remove client from segment", err)
		return fmt.Errorf("failed to remove client from segment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
