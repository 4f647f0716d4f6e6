package processor

import (
	"context"
	"errors"
	"testing"

	"push-server/internal/deliveries"
	"push-server/internal/dispatch"
	"push-server/internal/observability"
	"push-server/internal/push"
	"push-server/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type processorMocks struct {
	store      *MockNotificationStore
	dispatcher *MockDispatcher
	bookkeeper *MockBookkeeper
}

func newTestProcessor(t *testing.T) (NotificationProcessor, processorMocks) {
	ctrl := gomock.NewController(t)
	m := processorMocks{
		store:      NewMockNotificationStore(ctrl),
		dispatcher: NewMockDispatcher(ctrl),
		bookkeeper: NewMockBookkeeper(ctrl),
	}
	return New(m.store, m.dispatcher, m.bookkeeper, observability.NewLogger()), m
}

func testClient(status string) store.Client {
	return store.Client{
		ID:           uuid.New(),
		Endpoint:     "https://fcm.googleapis.com/fcm/send/" + uuid.NewString(),
		P256dh:       "p256dh",
		Auth:         "auth",
		AccessStatus: status,
	}
}

func TestSend_SkipsBlockedAndExpiredClients(t *testing.T) {
	processor, m := newTestProcessor(t)
	ctx := context.Background()

	allowed := testClient(store.AccessStatusAllowed)
	blocked := testClient(store.AccessStatusBlocked)
	expired := testClient(store.AccessStatusExpired)
	pending := testClient(store.AccessStatusPending)
	ids := []uuid.UUID{allowed.ID, blocked.ID, expired.ID, pending.ID}
	spec := push.NotificationSpec{Title: "Test", Body: "hi"}

	m.store.EXPECT().GetClientsByIDs(gomock.Any(), ids).Return([]store.Client{allowed, blocked, expired, pending}, nil)
	m.dispatcher.EXPECT().Send(gomock.Any(), gomock.Any(), spec, dispatch.SendOptions{TestMode: true}).
		DoAndReturn(func(_ context.Context, recipients []dispatch.Recipient, _ push.NotificationSpec, _ dispatch.SendOptions) (dispatch.Result, error) {
			require.Len(t, recipients, 2)
			assert.Equal(t, allowed.ID.String(), recipients[0].ClientID)
			assert.Equal(t, pending.ID.String(), recipients[1].ClientID)
			assert.Equal(t, allowed.Endpoint, recipients[0].Subscription.Endpoint)
			return dispatch.Result{
				Sent:   1,
				Failed: 1,
				Results: []dispatch.RecipientResult{
					{Index: 0, ClientID: allowed.ID.String(), Success: true, Outcome: dispatch.OutcomeSuccess, StatusCode: 201},
					{Index: 1, ClientID: pending.ID.String(), Outcome: dispatch.OutcomeError, StatusCode: 500, Error: "push service returned 500"},
				},
				Skipped: []dispatch.SkippedRecipient{},
			}, nil
		})
	m.bookkeeper.EXPECT().Record(gomock.Any(), (*uuid.UUID)(nil), gomock.Len(2), true).Return(nil, nil)

	result, err := processor.Send(ctx, SendParams{ClientIDs: ids, Notification: spec, TestMode: true})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Skipped, 2)
	assert.Equal(t, blocked.ID.String(), result.Skipped[0].ClientID)
	require.Len(t, result.ErrorDetails, 1)
	assert.Equal(t, 500, result.ErrorDetails[0].StatusCode)
	assert.Equal(t, pending.ID.String(), result.ErrorDetails[0].ClientID)
}

func TestSend_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("no client ids", func(t *testing.T) {
		processor, _ := newTestProcessor(t)
		_, err := processor.Send(ctx, SendParams{})
		assert.ErrorIs(t, err, ErrNoClients)
	})

	t.Run("unknown clients", func(t *testing.T) {
		processor, m := newTestProcessor(t)
		m.store.EXPECT().GetClientsByIDs(gomock.Any(), gomock.Any()).Return(nil, nil)
		_, err := processor.Send(ctx, SendParams{ClientIDs: []uuid.UUID{uuid.New()}})
		assert.ErrorIs(t, err, ErrNoClients)
	})

	t.Run("unknown campaign", func(t *testing.T) {
		processor, m := newTestProcessor(t)
		campaignID := uuid.New()
		m.store.EXPECT().GetCampaignByID(gomock.Any(), campaignID).Return(store.Campaign{}, store.ErrNotFound)
		_, err := processor.Send(ctx, SendParams{ClientIDs: []uuid.UUID{uuid.New()}, CampaignID: &campaignID})
		assert.ErrorIs(t, err, ErrCampaignNotFound)
	})

	t.Run("dispatcher precondition", func(t *testing.T) {
		processor, m := newTestProcessor(t)
		c := testClient(store.AccessStatusBlocked)
		m.store.EXPECT().GetClientsByIDs(gomock.Any(), gomock.Any()).Return([]store.Client{c}, nil)
		m.dispatcher.EXPECT().Send(gomock.Any(), gomock.Len(0), gomock.Any(), gomock.Any()).
			Return(dispatch.Result{}, dispatch.ErrNoValidSubscriptions)
		_, err := processor.Send(ctx, SendParams{ClientIDs: []uuid.UUID{c.ID}, Notification: push.NotificationSpec{Title: "a", Body: "b"}})
		assert.ErrorIs(t, err, dispatch.ErrNoValidSubscriptions)
	})
}

func TestSend_BookkeepingFailureIsReported(t *testing.T) {
	processor, m := newTestProcessor(t)
	ctx := context.Background()
	campaignID := uuid.New()
	c := testClient(store.AccessStatusAllowed)

	m.store.EXPECT().GetCampaignByID(gomock.Any(), campaignID).Return(store.Campaign{ID: campaignID}, nil)
	m.store.EXPECT().GetClientsByIDs(gomock.Any(), gomock.Any()).Return([]store.Client{c}, nil)
	m.dispatcher.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), dispatch.SendOptions{CampaignID: campaignID.String()}).
		Return(dispatch.Result{Sent: 1, Results: []dispatch.RecipientResult{{ClientID: c.ID.String(), Success: true}}}, nil)
	m.bookkeeper.EXPECT().Record(gomock.Any(), &campaignID, gomock.Any(), false).
		Return(nil, errors.New("connection reset"))

	result, err := processor.Send(ctx, SendParams{ClientIDs: []uuid.UUID{c.ID}, CampaignID: &campaignID,
		Notification: push.NotificationSpec{Title: "a", Body: "b"}})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.BookkeepingError, "connection reset")
}

func TestSendCampaign_ABSplit(t *testing.T) {
	processor, m := newTestProcessor(t)
	ctx := context.Background()
	campaignID := uuid.New()
	segmentID := uuid.New()

	campaign := store.Campaign{
		ID:        campaignID,
		Title:     "Title A",
		Message:   "Message A",
		Actions:   store.CampaignActions{{Action: "open", Title: "Open"}},
		VariantB:  &store.CampaignVariant{Title: "Title B"},
		ABSplit:   50,
		Audience:  store.AudienceSegment,
		Browsers:  []string{"Chrome"},
		SegmentID: &segmentID,
		Status:    store.CampaignStatusDraft,
	}
	clients := make([]store.Client, 40)
	for i := range clients {
		clients[i] = testClient(store.AccessStatusAllowed)
	}

	m.store.EXPECT().GetCampaignByID(gomock.Any(), campaignID).Return(campaign, nil)
	m.store.EXPECT().ListTargetClients(gomock.Any(), store.TargetFilter{
		Browsers: []string{"Chrome"}, Systems: nil, SegmentID: &segmentID,
	}).Return(clients, nil)
	m.store.EXPECT().UpdateCampaignStatus(gomock.Any(), campaignID, store.CampaignStatusActive).Return(campaign, nil)

	seen := map[string]string{}
	m.dispatcher.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), dispatch.SendOptions{CampaignID: campaignID.String()}).
		DoAndReturn(func(_ context.Context, recipients []dispatch.Recipient, spec push.NotificationSpec, _ dispatch.SendOptions) (dispatch.Result, error) {
			res := dispatch.Result{}
			for _, r := range recipients {
				seen[r.ClientID] = r.Variant
				if r.Variant == store.VariantB {
					assert.Equal(t, "Title B", spec.Title)
					assert.Equal(t, "Message A", spec.Body, "empty variant fields fall back to A")
				} else {
					assert.Equal(t, "Title A", spec.Title)
				}
				require.Len(t, spec.Actions, 1)
				res.Sent++
				res.Results = append(res.Results, dispatch.RecipientResult{ClientID: r.ClientID, Success: true, Variant: r.Variant})
			}
			return res, nil
		}).Times(2)
	m.bookkeeper.EXPECT().Record(gomock.Any(), &campaignID, gomock.Len(40), false).Return(&store.CampaignCounters{SentCount: 40}, nil)
	m.store.EXPECT().UpdateCampaignStatus(gomock.Any(), campaignID, store.CampaignStatusCompleted).Return(campaign, nil)

	result, err := processor.SendCampaign(ctx, campaignID)
	require.NoError(t, err)
	assert.Equal(t, 40, result.Sent)
	assert.Len(t, seen, 40)
	for _, c := range clients {
		want := store.VariantA
		if bucket(c.ID) >= 50 {
			want = store.VariantB
		}
		assert.Equal(t, want, seen[c.ID.String()])
	}
}

func TestSendCampaign_NotSendable(t *testing.T) {
	processor, m := newTestProcessor(t)
	campaignID := uuid.New()
	m.store.EXPECT().GetCampaignByID(gomock.Any(), campaignID).
		Return(store.Campaign{ID: campaignID, Status: store.CampaignStatusCompleted}, nil)

	_, err := processor.SendCampaign(context.Background(), campaignID)
	assert.ErrorIs(t, err, ErrCampaignNotSendable)
}

func TestSendCampaign_DeletedSegmentSendsNothing(t *testing.T) {
	processor, m := newTestProcessor(t)
	campaignID := uuid.New()
	m.store.EXPECT().GetCampaignByID(gomock.Any(), campaignID).
		Return(store.Campaign{ID: campaignID, Status: store.CampaignStatusDraft, Audience: store.AudienceSegment}, nil)

	_, err := processor.SendCampaign(context.Background(), campaignID)
	assert.ErrorIs(t, err, ErrNoClients)
}

func TestSendCampaign_RestoresStatusWhenRejected(t *testing.T) {
	processor, m := newTestProcessor(t)
	campaignID := uuid.New()
	campaign := store.Campaign{ID: campaignID, Status: store.CampaignStatusScheduled, ABSplit: 100}

	m.store.EXPECT().GetCampaignByID(gomock.Any(), campaignID).Return(campaign, nil)
	m.store.EXPECT().ListTargetClients(gomock.Any(), gomock.Any()).Return([]store.Client{testClient(store.AccessStatusAllowed)}, nil)
	m.store.EXPECT().UpdateCampaignStatus(gomock.Any(), campaignID, store.CampaignStatusActive).Return(campaign, nil)
	m.dispatcher.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(dispatch.Result{}, push.ErrMissingContent)
	m.store.EXPECT().UpdateCampaignStatus(gomock.Any(), campaignID, store.CampaignStatusScheduled).Return(campaign, nil)

	_, err := processor.SendCampaign(context.Background(), campaignID)
	assert.ErrorIs(t, err, push.ErrMissingContent)
}

func TestSendCampaign_EmptyAudience(t *testing.T) {
	processor, m := newTestProcessor(t)
	campaignID := uuid.New()
	m.store.EXPECT().GetCampaignByID(gomock.Any(), campaignID).
		Return(store.Campaign{ID: campaignID, Status: store.CampaignStatusDraft, ABSplit: 100}, nil)
	m.store.EXPECT().ListTargetClients(gomock.Any(), gomock.Any()).Return([]store.Client{}, nil)
	// no status update and no dispatch is expected

	_, err := processor.SendCampaign(context.Background(), campaignID)
	assert.ErrorIs(t, err, ErrNoClients)
}

func TestSendCampaign_AllRecipientsSkipped(t *testing.T) {
	processor, m := newTestProcessor(t)
	campaignID := uuid.New()
	campaign := store.Campaign{ID: campaignID, Status: store.CampaignStatusDraft, ABSplit: 100}
	client := testClient(store.AccessStatusAllowed)
	skipped := []dispatch.SkippedRecipient{{Index: 0, ClientID: client.ID.String(), Reason: "invalid subscription"}}

	m.store.EXPECT().GetCampaignByID(gomock.Any(), campaignID).Return(campaign, nil)
	m.store.EXPECT().ListTargetClients(gomock.Any(), gomock.Any()).Return([]store.Client{client}, nil)
	m.store.EXPECT().UpdateCampaignStatus(gomock.Any(), campaignID, store.CampaignStatusActive).Return(campaign, nil)
	m.dispatcher.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(dispatch.Result{Skipped: skipped}, dispatch.ErrNoValidSubscriptions)
	m.store.EXPECT().UpdateCampaignStatus(gomock.Any(), campaignID, store.CampaignStatusDraft).Return(campaign, nil)

	result, err := processor.SendCampaign(context.Background(), campaignID)
	assert.ErrorIs(t, err, dispatch.ErrNoValidSubscriptions)
	assert.Equal(t, skipped, result.Skipped)
	assert.Zero(t, result.Sent)
}

func TestSendCampaign_RecordsAfterCallerCancels(t *testing.T) {
	processor, m := newTestProcessor(t)
	ctx, cancel := context.WithCancel(context.Background())
	campaignID := uuid.New()
	campaign := store.Campaign{ID: campaignID, Status: store.CampaignStatusDraft, ABSplit: 100}
	client := testClient(store.AccessStatusAllowed)

	m.store.EXPECT().GetCampaignByID(gomock.Any(), campaignID).Return(campaign, nil)
	m.store.EXPECT().ListTargetClients(gomock.Any(), gomock.Any()).Return([]store.Client{client}, nil)
	m.store.EXPECT().UpdateCampaignStatus(gomock.Any(), campaignID, store.CampaignStatusActive).Return(campaign, nil)
	m.dispatcher.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, []dispatch.Recipient, push.NotificationSpec, dispatch.SendOptions) (dispatch.Result, error) {
			cancel()
			return dispatch.Result{Sent: 1, Results: []dispatch.RecipientResult{{ClientID: client.ID.String(), Success: true}}}, nil
		})
	m.bookkeeper.EXPECT().Record(gomock.Any(), &campaignID, gomock.Len(1), false).
		DoAndReturn(func(ctx context.Context, _ *uuid.UUID, _ []dispatch.RecipientResult, _ bool) (*store.CampaignCounters, error) {
			assert.NoError(t, ctx.Err())
			return &store.CampaignCounters{SentCount: 1}, nil
		})
	m.store.EXPECT().UpdateCampaignStatus(gomock.Any(), campaignID, store.CampaignStatusCompleted).
		DoAndReturn(func(ctx context.Context, _ uuid.UUID, _ string) (store.Campaign, error) {
			assert.NoError(t, ctx.Err())
			return campaign, nil
		})

	result, err := processor.SendCampaign(ctx, campaignID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Empty(t, result.BookkeepingError)
}

func TestTrack(t *testing.T) {
	processor, m := newTestProcessor(t)
	e := deliveries.TrackEvent{Event: deliveries.EventNotificationClicked, ClientID: uuid.New()}
	m.bookkeeper.EXPECT().Track(gomock.Any(), e).Return(nil)

	require.NoError(t, processor.Track(context.Background(), e))
}
