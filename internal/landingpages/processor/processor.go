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

// LandingPageStore defines the database operations required by LandingPageProcessor
type LandingPageStore interface {
	CreateLandingPage(ctx context.Context, params store.CreateLandingPageParams) (store.LandingPage, error)
	GetLandingPageByLandingID(ctx context.Context, landingID string) (store.LandingPage, error)
	ListLandingPages(ctx context.Context) ([]store.LandingPage, error)
	DeleteLandingPage(ctx context.Context, id uuid.UUID) error
}

var (
	ErrLandingPageNotFound = errors.New("landing page not found")
	ErrLandingIDTaken      = errors.New("landing id already exists")
)

// generated ids collide only if the uuid prefix repeats, so a few attempts suffice
const maxGenerateAttempts = 3

type LandingPageProcessor struct {
	store  LandingPageStore
	logger *observability.Logger
	newID  func() string
}

func New(store LandingPageStore, logger *observability.Logger) LandingPageProcessor {
	return LandingPageProcessor{
		store:  store,
		logger: logger,
		newID:  generateLandingID,
	}
}

type CreateParams struct {
	LandingID        string
	Name             string
	Domain           string
	BotProtection    bool
	AllowRedirectURL *string
	BlockRedirectURL *string
}

// PublicLandingPage is what the subscription widget may read without authentication
type PublicLandingPage struct {
	LandingID        string  `json:"landingId"`
	BotProtection    bool    `json:"botProtection"`
	AllowRedirectURL *string `json:"allowRedirectUrl,omitempty"`
	BlockRedirectURL *string `json:"blockRedirectUrl,omitempty"`
}

// Create stores a landing page. An empty LandingID is replaced by a generated one.
func (p *LandingPageProcessor) Create(ctx context.Context, params CreateParams) (store.LandingPage, error) {
	landingID := strings.TrimSpace(params.LandingID)
	generated := landingID == ""

	attempts := 1
	if generated {
		attempts = maxGenerateAttempts
	}

	for i := 0; i < attempts; i++ {
		if generated {
			landingID = p.newID()
		}
		ctx := observability.WithFields(ctx, observability.Field{Key: "landing_id", Value: landingID})

		page, err := p.store.CreateLandingPage(ctx, store.CreateLandingPageParams{
			LandingID:        landingID,
			Name:             strings.TrimSpace(params.Name),
			Domain:           strings.TrimSpace(params.Domain),
			BotProtection:    params.BotProtection,
			AllowRedirectURL: params.AllowRedirectURL,
			BlockRedirectURL: params.BlockRedirectURL,
		})
		if err == nil {
			p.logger.Info(ctx, "landing page created")
			return page, nil
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			p.logger.Error(ctx, "failed to create landing page", err)
			return store.LandingPage{}, err
		}
		if !generated {
			return store.LandingPage{}, ErrLandingIDTaken
		}
		p.logger.Warn(ctx, "generated landing id collided, retrying")
	}
	return store.LandingPage{}, ErrLandingIDTaken
}

func (p *LandingPageProcessor) GetPublic(ctx context.Context, landingID string) (PublicLandingPage, error) {
	page, err := p.store.GetLandingPageByLandingID(ctx, landingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return PublicLandingPage{}, ErrLandingPageNotFound
		}
		p.logger.Error(observability.WithFields(ctx, observability.Field{Key: "landing_id", Value: landingID}), "failed to get landing page", err)
		return PublicLandingPage{}, err
	}
	return PublicLandingPage{
		LandingID:        page.LandingID,
		BotProtection:    page.BotProtection,
		AllowRedirectURL: page.AllowRedirectURL,
		BlockRedirectURL: page.BlockRedirectURL,
	}, nil
}

func (p *LandingPageProcessor) List(ctx context.Context) ([]store.LandingPage, error) {
	pages, err := p.store.ListLandingPages(ctx)
	if err != nil {
		p.logger.Error(ctx, "failed to list landing pages", err)
		return nil, err
	}
	if pages == nil {
		pages = []store.LandingPage{}
	}
	return pages, nil
}

// Delete removes a landing page. Its clients are kept and lose the reference.
func (p *LandingPageProcessor) Delete(ctx context.Context, id uuid.UUID) error {
	ctx = observability.WithFields(ctx, observability.Field{Key: "landing_page_id", Value: id})
	if err := p.store.DeleteLandingPage(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrLandingPageNotFound
		}
		p.logger.Error(ctx, "failed to delete landing page", err)
		return err
	}
	p.logger.Info(ctx, "landing page deleted")
	return nil
}

func generateLandingID() string {
	return "lp_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
