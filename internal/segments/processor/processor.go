package processor

//go:generate go run go.uber.org/mock/mockgen@latest -source=processor.go -destination=mocks_test.go -package=processor

import (
	"context"
	"errors"
	"strings"

	"push-server/internal/observability"
	"push-server/internal/store"

	"github.com/google/uuid"
)

// SegmentStore defines the database operations required by SegmentProcessor
type SegmentStore interface {
	CreateSegment(ctx context.Context, name string) (store.Segment, error)
	GetSegmentByID(ctx context.Context, id uuid.UUID) (store.Segment, error)
	ListSegments(ctx context.Context) ([]store.Segment, error)
	DeleteSegment(ctx context.Context, id uuid.UUID) error
	AddClientsToSegment(ctx context.Context, segmentID uuid.UUID, clientIDs []uuid.UUID) (int, error)
	RemoveClientFromSegment(ctx context.Context, segmentID, clientID uuid.UUID) error
}

var (
	ErrSegmentNotFound    = errors.New("segment not found")
	ErrMembershipNotFound = errors.New("client is not a member of the segment")
	ErrInvalidSegmentName = errors.New("segment name is required")
	ErrNoClientIDs        = errors.New("at least one client id is required")
)

type SegmentProcessor struct {
	store  SegmentStore
	logger *observability.Logger
}

func New(store SegmentStore, logger *observability.Logger) SegmentProcessor {
	return SegmentProcessor{
		store:  store,
		logger: logger,
	}
}

// MembershipResult reports how many of the requested clients became members
type MembershipResult struct {
	Requested int `json:"requested"`
	Added     int `json:"added"`
}

// Create creates a named segment
func (p *SegmentProcessor) Create(ctx context.Context, name string) (store.Segment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Segment{}, ErrInvalidSegmentName
	}

	segment, err := p.store.CreateSegment(ctx, name)
	if err != nil {
		p.logger.Error(ctx, "failed to create segment", err)
		return store.Segment{}, err
	}

	p.logger.Info(observability.WithFields(ctx, observability.Field{Key: "segment_id", Value: segment.ID}), "segment created")
	return segment, nil
}

func (p *SegmentProcessor) Get(ctx context.Context, id uuid.UUID) (store.Segment, error) {
	segment, err := p.store.GetSegmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Segment{}, ErrSegmentNotFound
		}
		p.logger.Error(ctx, "failed to get segment", err)
		return store.Segment{}, err
	}
	return segment, nil
}

func (p *SegmentProcessor) List(ctx context.Context) ([]store.Segment, error) {
	segments, err := p.store.ListSegments(ctx)
	if err != nil {
		p.logger.Error(ctx, "failed to list segments", err)
		return nil, err
	}
	if segments == nil {
		segments = []store.Segment{}
	}
	return segments, nil
}

// Delete removes a segment. Campaigns that targeted it are left without an
// audience and send to nobody.
func (p *SegmentProcessor) Delete(ctx context.Context, id uuid.UUID) error {
	ctx = observability.WithFields(ctx, observability.Field{Key: "segment_id", Value: id})
	if err := p.store.DeleteSegment(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSegmentNotFound
		}
		p.logger.Error(ctx, "failed to delete segment", err)
		return err
	}
	p.logger.Info(ctx, "segment deleted")
	return nil
}

// AddClients adds clients to a segment. Duplicate ids, unknown clients and
// existing members are not counted as added.
func (p *SegmentProcessor) AddClients(ctx context.Context, segmentID uuid.UUID, clientIDs []uuid.UUID) (MembershipResult, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "segment_id", Value: segmentID})

	unique := make([]uuid.UUID, 0, len(clientIDs))
	seen := make(map[uuid.UUID]struct{}, len(clientIDs))
	for _, id := range clientIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return MembershipResult{}, ErrNoClientIDs
	}

	added, err := p.store.AddClientsToSegment(ctx, segmentID, unique)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return MembershipResult{}, ErrSegmentNotFound
		}
		p.logger.Error(ctx, "failed to add clients to segment", err)
		return MembershipResult{}, err
	}

	p.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "requested", Value: len(unique)},
		observability.Field{Key: "added", Value: added},
	), "clients added to segment")
	return MembershipResult{Requested: len(unique), Added: added}, nil
}

func (p *SegmentProcessor) RemoveClient(ctx context.Context, segmentID, clientID uuid.UUID) error {
	if err := p.store.RemoveClientFromSegment(ctx, segmentID, clientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMembershipNotFound
		}
		p.logger.Error(ctx, "failed to remove client from segment", err)
		return err
	}
	return nil
}
