package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"push-server/internal/observability"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const clientColumns = `id, endpoint, p256dh, auth, browser, browser_version, os, device, ip, country, city,
	language, platform, timezone, subscribed_url, tags, landing_page_id, access_status, subscribed_at, last_active`

// ClientParams carries every writable column of a client row
type ClientParams struct {
	Endpoint       string
	P256dh         string
	Auth           string
	Browser        string
	BrowserVersion string
	OS             string
	Device         string
	IP             *string
	Country        *string
	City           *string
	Language       *string
	Platform       *string
	Timezone       *string
	SubscribedURL  *string
	Tags           []string
	LandingPageID  *uuid.UUID
	AccessStatus   string
}

const sqlCreateClient = `
INSERT INTO clients (endpoint, p256dh, auth, browser, browser_version, os, device, ip, country, city,
	language, platform, timezone, subscribed_url, tags, landing_page_id, access_status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (endpoint) DO NOTHING
RETURNING ` + clientColumns

// CreateClient inserts a client unless one with the same endpoint already exists.
// created is false when the endpoint was already registered, in which case the
// existing row is returned untouched so the caller can merge into it.
func (s *Store) CreateClient(ctx context.Context, params ClientParams) (client Client, created bool, err error) {
	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}
	err = s.db.GetContext(ctx, &client, sqlCreateClient,
		params.Endpoint,
		params.P256dh,
		params.Auth,
		params.Browser,
		params.BrowserVersion,
		params.OS,
		params.Device,
		params.IP,
		params.Country,
		params.City,
		params.Language,
		params.Platform,
		params.Timezone,
		params.SubscribedURL,
		pq.StringArray(tags),
		params.LandingPageID,
		params.AccessStatus,
	)
	if errors.Is(err, sql.ErrNoRows) {
		existing, getErr := s.GetClientByEndpoint(ctx, params.Endpoint)
		if getErr != nil {
			return Client{}, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		s.logger.Error(ctx, "failed to create client", err)
		return Client{}, false, fmt.Errorf("failed to create client: %w", err)
	}
	return client, true, nil
}

const sqlGetClientByEndpoint = `SELECT ` + clientColumns + ` FROM clients WHERE endpoint = $1`

// GetClientByEndpoint retrieves a client by its push endpoint
func (s *Store) GetClientByEndpoint(ctx context.Context, endpoint string) (Client, error) {
	var client Client
	err := s.db.GetContext(ctx, &client, sqlGetClientByEndpoint, endpoint)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Client{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get client by endpoint", err)
		return Client{}, fmt.Errorf("failed to get client by endpoint: %w", err)
	}
	return client, nil
}

const sqlGetClientByID = `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`

// GetClientByID retrieves a client by ID
func (s *Store) GetClientByID(ctx context.Context, id uuid.UUID) (Client, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "client_id", Value: id})
	var client Client
	err := s.db.GetContext(ctx, &client, sqlGetClientByID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Client{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get client", err)
		return Client{}, fmt.Errorf("failed to get client: %w", err)
	}
	return client, nil
}

const sqlGetClientsByIDs = `SELECT ` + clientColumns + ` FROM clients WHERE id = ANY($1::uuid[]) ORDER BY subscribed_at`

// GetClientsByIDs returns the clients that exist among ids. Missing ids are ignored.
func (s *Store) GetClientsByIDs(ctx context.Context, ids []uuid.UUID) ([]Client, error) {
	if len(ids) == 0 {
		return []Client{}, nil
	}
	var clients []Client
	err := s.db.SelectContext(ctx, &clients, sqlGetClientsByIDs, uuidArray(ids))
	if err != nil {
		s.logger.Error(ctx, "failed to get clients by ids", err)
		return nil, fmt.Errorf("failed to get clients by ids: %w", err)
	}
	return clients, nil
}

const sqlUpdateClient = `
UPDATE clients
SET p256dh = $2,
	auth = $3,
	browser = $4,
	browser_version = $5,
	os = $6,
	device = $7,
	ip = $8,
	country = $9,
	city = $10,
	language = $11,
	platform = $12,
	timezone = $13,
	subscribed_url = $14,
	tags = $15,
	landing_page_id = $16,
	access_status = $17,
	last_active = NOW()
WHERE id = $1
RETURNING ` + clientColumns

// UpdateClient overwrites the mutable columns of a client and touches last_active.
// Endpoint is the identity of a client and is never changed.
func (s *Store) UpdateClient(ctx context.Context, id uuid.UUID, params ClientParams) (Client, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "client_id", Value: id})
	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}
	var client Client
	err := s.db.GetContext(ctx, &client, sqlUpdateClient,
		id,
		params.P256dh,
		params.Auth,
		params.Browser,
		params.BrowserVersion,
		params.OS,
		params.Device,
		params.IP,
		params.Country,
		params.City,
		params.Language,
		params.Platform,
		params.Timezone,
		params.SubscribedURL,
		pq.StringArray(tags),
		params.LandingPageID,
		params.AccessStatus,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Client{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to update client", err)
		return Client{}, fmt.Errorf("failed to update client: %w", err)
	}
	return client, nil
}

// ListClients returns a page of clients matching filter and the total match count
func (s *Store) ListClients(ctx context.Context, filter ClientFilter) ([]Client, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argCount := 1

	if filter.Search != "" {
		where += fmt.Sprintf(` AND (browser ILIKE $%d OR country ILIKE $%d OR city ILIKE $%d OR subscribed_url ILIKE $%d)`,
			argCount, argCount, argCount, argCount)
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		argCount++
	}
	if filter.Browser != "" {
		where += fmt.Sprintf(" AND LOWER(browser) = LOWER($%d)", argCount)
		args = append(args, filter.Browser)
		argCount++
	}
	if filter.Country != "" {
		where += fmt.Sprintf(" AND LOWER(country) = LOWER($%d)", argCount)
		args = append(args, filter.Country)
		argCount++
	}
	if filter.Device != "" {
		where += fmt.Sprintf(" AND LOWER(device) = LOWER($%d)", argCount)
		args = append(args, filter.Device)
		argCount++
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM clients"+where, args...); err != nil {
		s.logger.Error(ctx, "failed to count clients", err)
		return nil, 0, fmt.Errorf("failed to count clients: %w", err)
	}

	query := "SELECT " + clientColumns + " FROM clients" + where +
		fmt.Sprintf(" ORDER BY subscribed_at DESC, id LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filter.Limit, filter.Offset)

	clients := []Client{}
	if err := s.db.SelectContext(ctx, &clients, query, args...); err != nil {
		s.logger.Error(ctx, "failed to list clients", err)
		return nil, 0, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, total, nil
}

const (
	sqlDeleteClientDeliveries = `DELETE FROM notification_deliveries WHERE client_id = $1`
	sqlDeleteClientSegments   = `DELETE FROM segment_clients WHERE client_id = $1`
	sqlDeleteClient           = `DELETE FROM clients WHERE id = $1`
)

// DeleteClient removes a client's deliveries and segment memberships, then the
// client itself, in one transaction. Returns ErrNotFound if the client does not exist.
func (s *Store) DeleteClient(ctx context.Context, id uuid.UUID) error {
	ctx = observability.WithFields(ctx, observability.Field{Key: "client_id", Value: id})
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, sqlDeleteClientDeliveries, id); err != nil {
			s.logger.Error(ctx, "failed to delete client deliveries", err)
			return fmt.Errorf("failed to delete client deliveries: %w", err)
		}
		if _, err := tx.ExecContext(ctx, sqlDeleteClientSegments, id); err != nil {
			s.logger.Error(ctx, "failed to delete client segment memberships", err)
			return fmt.Errorf("failed to delete client segment memberships: %w", err)
		}
		res, err := tx.ExecContext(ctx, sqlDeleteClient, id)
		if err != nil {
			s.logger.Error(ctx, "failed to delete client", err)
			return fmt.Errorf("failed to delete client: %w", err)
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

const sqlMarkClientExpired = `UPDATE clients SET access_status = 'expired', last_active = NOW() WHERE id = $1`

// MarkClientExpired demotes a client whose endpoint the push service reported gone
func (s *Store) MarkClientExpired(ctx context.Context, id uuid.UUID) error {
	return s.execOne(ctx, "mark client expired", sqlMarkClientExpired, id)
}

const sqlTouchClient = `UPDATE clients SET last_active = NOW() WHERE id = $1`

// TouchClient records client activity
func (s *Store) TouchClient(ctx context.Context, id uuid.UUID) error {
	return s.execOne(ctx, "touch client", sqlTouchClient, id)
}

const sqlUpdateClientAccessStatus = `
UPDATE clients SET access_status = $2, last_active = NOW()
WHERE id = $1
RETURNING ` + clientColumns

// UpdateClientAccessStatus sets a client's access status
func (s *Store) UpdateClientAccessStatus(ctx context.Context, id uuid.UUID, status string) (Client, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "client_id", Value: id},
		observability.Field{Key: "access_status", Value: status},
	)
	var client Client
	err := s.db.GetContext(ctx, &client, sqlUpdateClientAccessStatus, id, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Client{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to update client access status", err)
		return Client{}, fmt.Errorf("failed to update client access status: %w", err)
	}
	return client, nil
}

type groupCount struct {
	Key   sql.NullString `db:"key"`
	Count int            `db:"count"`
}

const (
	sqlCountClientsByStatus  = `SELECT access_status AS key, COUNT(*) AS count FROM clients GROUP BY access_status`
	sqlCountClientsByBrowser = `SELECT browser AS key, COUNT(*) AS count FROM clients GROUP BY browser`
	sqlCountClientsByCountry = `SELECT COALESCE(country, 'unknown') AS key, COUNT(*) AS count FROM clients GROUP BY COALESCE(country, 'unknown')`
)

// GetClientStats aggregates client counts by access status, browser and country
func (s *Store) GetClientStats(ctx context.Context) (ClientStats, error) {
	stats := ClientStats{
		ByAccessStatus: map[string]int{},
		ByBrowser:      map[string]int{},
		ByCountry:      map[string]int{},
	}

	groups := []struct {
		query string
		into  map[string]int
	}{
		{sqlCountClientsByStatus, stats.ByAccessStatus},
		{sqlCountClientsByBrowser, stats.ByBrowser},
		{sqlCountClientsByCountry, stats.ByCountry},
	}
	for i, g := range groups {
		var rows []groupCount
		if err := s.db.SelectContext(ctx, &rows, g.query); err != nil {
			s.logger.Error(ctx, "failed to get client stats", err)
			return ClientStats{}, fmt.Errorf("failed to get client stats: %w", err)
		}
		for _, r := range rows {
			g.into[r.Key.String] = r.Count
			if i == 0 {
				stats.Total += r.Count
			}
		}
	}
	return stats, nil
}

// ListTargetClients returns the allowed clients matching a campaign's targeting.
// Browser and system names are compared case-insensitively.
func (s *Store) ListTargetClients(ctx context.Context, filter TargetFilter) ([]Client, error) {
	query := "SELECT " + clientColumns + " FROM clients c WHERE c.access_status = 'allowed'"
	args := []interface{}{}
	argCount := 1

	if len(filter.Browsers) > 0 {
		query += fmt.Sprintf(" AND LOWER(c.browser) = ANY($%d)", argCount)
		args = append(args, pq.StringArray(lowerAll(filter.Browsers)))
		argCount++
	}
	if len(filter.Systems) > 0 {
		query += fmt.Sprintf(" AND LOWER(c.os) = ANY($%d)", argCount)
		args = append(args, pq.StringArray(lowerAll(filter.Systems)))
		argCount++
	}
	if filter.SegmentID != nil {
		query += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM segment_clients sc WHERE sc.client_id = c.id AND sc.segment_id = $%d)", argCount)
		args = append(args, *filter.SegmentID)
	}
	query += " ORDER BY c.subscribed_at"

	clients := []Client{}
	if err := s.db.SelectContext(ctx, &clients, query, args...); err != nil {
		s.logger.Error(ctx, "failed to list target clients", err)
		return nil, fmt.Errorf("failed to list target clients: %w", err)
	}
	return clients, nil
}

// execOne runs an UPDATE/DELETE that must affect exactly one row identified by id
func (s *Store) execOne(ctx context.Context, op, query string, id uuid.UUID) error {
	ctx = observability.WithFields(ctx, observability.Field{Key: "id", Value: id})
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		s.logger.Error(ctx, "failed to "+op, err)
		return fmt.Errorf("failed to %s: %w", op, err)
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

func uuidArray(ids []uuid.UUID) pq.StringArray {
	out := make(pq.StringArray, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
