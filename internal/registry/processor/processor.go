package processor

//go:generate go run go.uber.org/mock/mockgen@latest -source=processor.go -destination=mocks_test.go -package=processor

import (
	"context"
	"errors"
	"strings"

	"push-server/internal/events"
	"push-server/internal/observability"
	"push-server/internal/push"
	"push-server/internal/store"
	"push-server/internal/useragent"

	"github.com/google/uuid"
)

// ClientStore defines the database operations required by RegistryProcessor
type ClientStore interface {
	CreateClient(ctx context.Context, params store.ClientParams) (store.Client, bool, error)
	GetClientByEndpoint(ctx context.Context, endpoint string) (store.Client, error)
	GetClientByID(ctx context.Context, id uuid.UUID) (store.Client, error)
	UpdateClient(ctx context.Context, id uuid.UUID, params store.ClientParams) (store.Client, error)
	ListClients(ctx context.Context, filter store.ClientFilter) ([]store.Client, int, error)
	DeleteClient(ctx context.Context, id uuid.UUID) error
	UpdateClientAccessStatus(ctx context.Context, id uuid.UUID, status string) (store.Client, error)
	GetClientStats(ctx context.Context) (store.ClientStats, error)
	GetLandingPageByLandingID(ctx context.Context, landingID string) (store.LandingPage, error)
}

// EventEmitter receives live dashboard events
type EventEmitter interface {
	Emit(ctx context.Context, eventType events.EventType, payload any)
}

var (
	ErrClientNotFound      = errors.New("client not found")
	ErrInvalidAccessStatus = errors.New("invalid access status")
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type RegistryProcessor struct {
	store   ClientStore
	emitter EventEmitter
	logger  *observability.Logger
}

func New(store ClientStore, emitter EventEmitter, logger *observability.Logger) RegistryProcessor {
	return RegistryProcessor{
		store:   store,
		emitter: emitter,
		logger:  logger,
	}
}

// BrowserInfo is what the subscribing page reports about itself. Explicit
// fields take precedence over values parsed from UserAgent.
type BrowserInfo struct {
	UserAgent string
	Browser   string
	Version   string
	OS        string
	Device    string
	Language  string
	Platform  string
	Timezone  string

	// Viewer hints come from CDN request headers and are only used when
	// neither the user agent nor the explicit fields resolve a value.
	ViewerDevice string
	ViewerOS     string
}

type Location struct {
	Country string
	City    string
}

// RegisterParams represents a subscription registration from the browser widget
type RegisterParams struct {
	Subscription push.Subscription
	BrowserInfo  BrowserInfo
	Location     Location
	IP           string
	LandingID    string
	URL          string
	Tags         []string
	AccessStatus string
}

type RegisterResult struct {
	Client store.Client
	IsNew  bool
}

// ClientEvent is the payload of new-client and client-updated events
type ClientEvent struct {
	ClientID uuid.UUID    `json:"clientId"`
	Client   store.Client `json:"client"`
}

// RegisterOrUpdate stores a subscription, one client per endpoint. A known
// endpoint is updated in place: keys are replaced, descriptive fields only
// change when the new value is known, and tags are merged.
func (p *RegistryProcessor) RegisterOrUpdate(ctx context.Context, params RegisterParams) (RegisterResult, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "endpoint", Value: params.Subscription.Endpoint})

	if err := push.ValidateSubscription(params.Subscription); err != nil {
		p.logger.Warn(ctx, "rejected subscription: "+err.Error())
		return RegisterResult{}, err
	}
	if params.AccessStatus != "" && !store.IsValidAccessStatus(params.AccessStatus) {
		return RegisterResult{}, ErrInvalidAccessStatus
	}

	landingPageID, err := p.resolveLandingPage(ctx, params.LandingID)
	if err != nil {
		return RegisterResult{}, err
	}

	incoming := clientParams(params, landingPageID)

	existing, err := p.store.GetClientByEndpoint(ctx, params.Subscription.Endpoint)
	switch {
	case errors.Is(err, store.ErrNotFound):
		client, created, err := p.store.CreateClient(ctx, incoming)
		if err != nil {
			p.logger.Error(ctx, "failed to create client", err)
			return RegisterResult{}, err
		}
		if created {
			ctx = observability.WithFields(ctx, observability.Field{Key: "client_id", Value: client.ID})
			p.logger.Info(ctx, "client registered")
			p.emitter.Emit(ctx, events.EventNewClient, ClientEvent{ClientID: client.ID, Client: client})
			return RegisterResult{Client: client, IsNew: true}, nil
		}
		// A concurrent registration of the same endpoint won the insert.
		existing = client
	case err != nil:
		p.logger.Error(ctx, "failed to look up client by endpoint", err)
		return RegisterResult{}, err
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "client_id", Value: existing.ID})
	updated, err := p.store.UpdateClient(ctx, existing.ID, mergeClient(existing, incoming, params.AccessStatus))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RegisterResult{}, ErrClientNotFound
		}
		p.logger.Error(ctx, "failed to update client", err)
		return RegisterResult{}, err
	}

	p.logger.Info(ctx, "client re-registered")
	p.emitter.Emit(ctx, events.EventClientUpdated, ClientEvent{ClientID: updated.ID, Client: updated})
	return RegisterResult{Client: updated, IsNew: false}, nil
}

func (p *RegistryProcessor) resolveLandingPage(ctx context.Context, landingID string) (*uuid.UUID, error) {
	if landingID == "" {
		return nil, nil
	}
	page, err := p.store.GetLandingPageByLandingID(ctx, landingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			p.logger.Warn(observability.WithFields(ctx, observability.Field{Key: "landing_id", Value: landingID}),
				"unknown landing id, registering without landing page")
			return nil, nil
		}
		p.logger.Error(ctx, "failed to resolve landing page", err)
		return nil, err
	}
	return &page.ID, nil
}

// resolveBrowser parses the user agent and lets explicit, known values override it.
func resolveBrowser(bi BrowserInfo) useragent.Info {
	info := useragent.Parse(bi.UserAgent)
	if known(bi.Browser) {
		info.Browser = bi.Browser
	}
	if known(bi.Version) {
		info.BrowserVersion = bi.Version
	}
	if known(bi.OS) {
		info.OS = bi.OS
	}
	if known(bi.Device) {
		info.Device = strings.ToLower(bi.Device)
	}

	if !known(info.Device) && known(bi.ViewerDevice) {
		info.Device = bi.ViewerDevice
	}
	if !known(info.OS) {
		switch bi.ViewerOS {
		case "android":
			info.OS = "Android"
		case "ios":
			info.OS = "iOS"
		}
	}
	return info
}

func clientParams(params RegisterParams, landingPageID *uuid.UUID) store.ClientParams {
	info := resolveBrowser(params.BrowserInfo)
	status := params.AccessStatus
	if status == "" {
		status = store.AccessStatusAllowed
	}
	return store.ClientParams{
		Endpoint:       params.Subscription.Endpoint,
		P256dh:         params.Subscription.Keys.P256dh,
		Auth:           params.Subscription.Keys.Auth,
		Browser:        info.Browser,
		BrowserVersion: info.BrowserVersion,
		OS:             info.OS,
		Device:         info.Device,
		IP:             optional(params.IP),
		Country:        optional(params.Location.Country),
		City:           optional(params.Location.City),
		Language:       optional(params.BrowserInfo.Language),
		Platform:       optional(params.BrowserInfo.Platform),
		Timezone:       optional(params.BrowserInfo.Timezone),
		SubscribedURL:  optional(params.URL),
		Tags:           unionTags(nil, params.Tags),
		LandingPageID:  landingPageID,
		AccessStatus:   status,
	}
}

// mergeClient never replaces a stored value with an empty or unknown one.
// An expired client that registers again with fresh keys is reactivated.
func mergeClient(existing store.Client, incoming store.ClientParams, requestedStatus string) store.ClientParams {
	merged := store.ClientParams{
		Endpoint:       existing.Endpoint,
		P256dh:         incoming.P256dh,
		Auth:           incoming.Auth,
		Browser:        pick(existing.Browser, incoming.Browser),
		BrowserVersion: pick(existing.BrowserVersion, incoming.BrowserVersion),
		OS:             pick(existing.OS, incoming.OS),
		Device:         pick(existing.Device, incoming.Device),
		IP:             pickPtr(existing.IP, incoming.IP),
		Country:        pickPtr(existing.Country, incoming.Country),
		City:           pickPtr(existing.City, incoming.City),
		Language:       pickPtr(existing.Language, incoming.Language),
		Platform:       pickPtr(existing.Platform, incoming.Platform),
		Timezone:       pickPtr(existing.Timezone, incoming.Timezone),
		SubscribedURL:  pickPtr(existing.SubscribedURL, incoming.SubscribedURL),
		Tags:           unionTags(existing.Tags, incoming.Tags),
		LandingPageID:  existing.LandingPageID,
		AccessStatus:   existing.AccessStatus,
	}
	if incoming.LandingPageID != nil {
		merged.LandingPageID = incoming.LandingPageID
	}
	switch {
	case requestedStatus != "":
		merged.AccessStatus = requestedStatus
	case existing.AccessStatus == store.AccessStatusExpired:
		merged.AccessStatus = store.AccessStatusAllowed
	}
	return merged
}

func known(v string) bool {
	return !useragent.IsUnknown(v)
}

func pick(stored, next string) string {
	if known(next) {
		return next
	}
	return stored
}

func pickPtr(stored, next *string) *string {
	if next != nil && known(*next) {
		return next
	}
	return stored
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if !known(v) {
		return nil
	}
	return &v
}

func unionTags(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, list := range [][]string{existing, incoming} {
		for _, tag := range list {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

// Delete removes a client together with its delivery records and segment memberships
func (p *RegistryProcessor) Delete(ctx context.Context, clientID uuid.UUID) error {
	ctx = observability.WithFields(ctx, observability.Field{Key: "client_id", Value: clientID})

	if err := p.store.DeleteClient(ctx, clientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClientNotFound
		}
		p.logger.Error(ctx, "failed to delete client", err)
		return err
	}

	p.logger.Info(ctx, "client deleted")
	p.emitter.Emit(ctx, events.EventClientDeleted, map[string]any{"clientId": clientID})
	return nil
}

// ListParams filters and paginates the client list. Page is 1-based.
type ListParams struct {
	Search  string
	Browser string
	Country string
	Device  string
	Page    int
	Limit   int
}

type ListResult struct {
	Items      []store.Client `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
}

// List returns one page of clients matching the filters
func (p *RegistryProcessor) List(ctx context.Context, params ListParams) (ListResult, error) {
	page, limit := params.Page, params.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	items, total, err := p.store.ListClients(ctx, store.ClientFilter{
		Search:  strings.TrimSpace(params.Search),
		Browser: strings.TrimSpace(params.Browser),
		Country: strings.TrimSpace(params.Country),
		Device:  strings.TrimSpace(params.Device),
		Limit:   limit,
		Offset:  (page - 1) * limit,
	})
	if err != nil {
		p.logger.Error(ctx, "failed to list clients", err)
		return ListResult{}, err
	}
	if items == nil {
		items = []store.Client{}
	}

	return ListResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

func (p *RegistryProcessor) Get(ctx context.Context, clientID uuid.UUID) (store.Client, error) {
	client, err := p.store.GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Client{}, ErrClientNotFound
		}
		p.logger.Error(observability.WithFields(ctx, observability.Field{Key: "client_id", Value: clientID}), "failed to get client", err)
		return store.Client{}, err
	}
	return client, nil
}

// UpdateAccessStatus blocks, unblocks or otherwise sets a client's access status from the dashboard
func (p *RegistryProcessor) UpdateAccessStatus(ctx context.Context, clientID uuid.UUID, status string) (store.Client, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "client_id", Value: clientID},
		observability.Field{Key: "access_status", Value: status},
	)
	if !store.IsValidAccessStatus(status) {
		return store.Client{}, ErrInvalidAccessStatus
	}

	client, err := p.store.UpdateClientAccessStatus(ctx, clientID, status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Client{}, ErrClientNotFound
		}
		p.logger.Error(ctx, "failed to update client access status", err)
		return store.Client{}, err
	}

	p.logger.Info(ctx, "client access status updated")
	p.emitter.Emit(ctx, events.EventClientUpdated, ClientEvent{ClientID: client.ID, Client: client})
	return client, nil
}

func (p *RegistryProcessor) Stats(ctx context.Context) (store.ClientStats, error) {
	stats, err := p.store.GetClientStats(ctx)
	if err != nil {
		p.logger.Error(ctx, "failed to get client stats", err)
		return store.ClientStats{}, err
	}
	return stats, nil
}
