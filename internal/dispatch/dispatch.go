// Package dispatch fans one notification out to many push subscriptions.
//
// It is a pure send primitive: it knows nothing about campaigns or delivery
// records. Every recipient is an independent unit of work and a failure is
// reported as data in the Result, never as an error from Send.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"push-server/internal/observability"
	"push-server/internal/push"

	"golang.org/x/sync/errgroup"
)

var ErrNoValidSubscriptions = errors.New("no valid subscriptions")

// Outcome classifies one recipient's delivery attempt
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeExpired Outcome = "expired"
	OutcomeError   Outcome = "error"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultConcurrency = 50
)

// Sender delivers one encrypted message. *push.Client implements it.
type Sender interface {
	Send(ctx context.Context, sub push.Subscription, payload []byte, opts push.Options) error
}

// Recipient is a client to send to. Variant is carried through to its result untouched.
type Recipient struct {
	ClientID     string
	Subscription push.Subscription
	Variant      string
}

// RecipientResult is the outcome for one recipient. ClientID, not Index, is
// the identity to correlate on; Index is the recipient's position in the input.
type RecipientResult struct {
	Index      int     `json:"index"`
	ClientID   string  `json:"clientId"`
	Success    bool    `json:"success"`
	Outcome    Outcome `json:"outcome"`
	StatusCode int     `json:"statusCode,omitempty"`
	Error      string  `json:"error,omitempty"`
	Variant    string  `json:"variant,omitempty"`
}

// SkippedRecipient is a recipient excluded before sending because its
// subscription failed validation. Skipped recipients are never counted.
type SkippedRecipient struct {
	Index    int    `json:"index"`
	ClientID string `json:"clientId"`
	Reason   string `json:"reason"`
}

// Result aggregates a dispatch. Sent counts successes, Failed counts expired and errored sends.
type Result struct {
	Sent    int                `json:"sent"`
	Failed  int                `json:"failed"`
	Results []RecipientResult  `json:"results"`
	Skipped []SkippedRecipient `json:"skipped"`
}

// SendOptions carries per-call metadata embedded into every payload
type SendOptions struct {
	CampaignID string
	TestMode   bool
	Push       push.Options
}

// Config configures a Dispatcher
type Config struct {
	Defaults       push.Defaults
	TrackingURL    string
	Timeout        time.Duration
	MaxConcurrency int
}

type Dispatcher struct {
	sender      Sender
	defaults    push.Defaults
	trackingURL string
	timeout     time.Duration
	concurrency int
	logger      *observability.Logger
	now         func() time.Time
}

func New(sender Sender, cfg Config, logger *observability.Logger) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultConcurrency
	}
	return &Dispatcher{
		sender:      sender,
		defaults:    cfg.Defaults,
		trackingURL: cfg.TrackingURL,
		timeout:     cfg.Timeout,
		concurrency: cfg.MaxConcurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Send delivers spec to every recipient with a valid subscription, concurrently.
// It fails only on precondition violations: invalid notification content or
// no recipient passing validation.
func (d *Dispatcher) Send(ctx context.Context, recipients []Recipient, spec push.NotificationSpec, opts SendOptions) (Result, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "recipients", Value: len(recipients)},
		observability.Field{Key: "campaign_id", Value: opts.CampaignID},
		observability.Field{Key: "test_mode", Value: opts.TestMode},
	)

	result := Result{Results: []RecipientResult{}, Skipped: []SkippedRecipient{}}
	valid := make([]int, 0, len(recipients))
	for i, r := range recipients {
		if err := push.ValidateSubscription(r.Subscription); err != nil {
			result.Skipped = append(result.Skipped, SkippedRecipient{Index: i, ClientID: r.ClientID, Reason: err.Error()})
			continue
		}
		valid = append(valid, i)
	}
	if len(result.Skipped) > 0 {
		d.logger.Warn(observability.WithFields(ctx,
			observability.Field{Key: "skipped", Value: len(result.Skipped)},
		), "skipping recipients with invalid subscriptions")
	}
	if len(valid) == 0 {
		return result, ErrNoValidSubscriptions
	}

	payload, err := push.BuildPayload(spec, push.BuildOptions{
		Defaults:    d.defaults,
		CampaignID:  opts.CampaignID,
		TestMode:    opts.TestMode,
		TrackingURL: d.trackingURL,
		Now:         d.now,
	})
	if err != nil {
		return result, err
	}
	// Recipient ids only differ in content, not length, so one probe covers the size limit.
	if _, err := payload.ForRecipient(recipients[valid[0]].ClientID).Encode(); err != nil {
		return result, err
	}

	results := make([]RecipientResult, len(valid))
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for slot, idx := range valid {
		g.Go(func() error {
			results[slot] = d.sendOne(ctx, idx, recipients[idx], payload, opts.Push)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Success {
			result.Sent++
		} else {
			result.Failed++
		}
	}
	result.Results = results

	d.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "sent", Value: result.Sent},
		observability.Field{Key: "failed", Value: result.Failed},
	), "dispatch completed")
	return result, nil
}

func (d *Dispatcher) sendOne(ctx context.Context, index int, r Recipient, payload push.Payload, opts push.Options) RecipientResult {
	res := RecipientResult{Index: index, ClientID: r.ClientID, Variant: r.Variant}
	start := time.Now()

	body, err := payload.ForRecipient(r.ClientID).Encode()
	if err == nil {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err = d.sender.Send(sendCtx, r.Subscription, body, opts)
		if err != nil && errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("push send timed out after %s: %w", d.timeout, err)
		}
		cancel()
	}

	classify(&res, err)
	observability.ObservePushSend(string(res.Outcome), time.Since(start))

	if !res.Success {
		d.logger.InfoWithError(observability.WithFields(ctx,
			observability.Field{Key: "client_id", Value: r.ClientID},
			observability.Field{Key: "outcome", Value: string(res.Outcome)},
			observability.Field{Key: "status_code", Value: res.StatusCode},
		), "push send failed", err)
	}
	return res
}

func classify(res *RecipientResult, err error) {
	if err == nil {
		res.Success = true
		res.Outcome = OutcomeSuccess
		return
	}

	res.Error = err.Error()
	res.Outcome = OutcomeError

	var sendErr *push.SendError
	if errors.As(err, &sendErr) {
		res.StatusCode = sendErr.StatusCode
		res.Error = sendErr.Error()
		if sendErr.Gone() {
			res.Outcome = OutcomeExpired
		}
	}
}
