package bootstrap

import (
	"context"
	"fmt"
	"io"

	authHandler "push-server/internal/auth/handler"
	authProcessor "push-server/internal/auth/processor"
	campaignHandler "push-server/internal/campaign/handler"
	campaignProcessor "push-server/internal/campaign/processor"
	kafkaClient "push-server/internal/clients/kafka"
	redisClient "push-server/internal/clients/redis"
	"push-server/internal/config"
	"push-server/internal/deliveries"
	"push-server/internal/dispatch"
	"push-server/internal/events"
	"push-server/internal/integrations"
	"push-server/internal/jobs"
	landingHandler "push-server/internal/landingpages/handler"
	landingProcessor "push-server/internal/landingpages/processor"
	notificationsHandler "push-server/internal/notifications/handler"
	notificationsProcessor "push-server/internal/notifications/processor"
	"push-server/internal/observability"
	"push-server/internal/push"
	"push-server/internal/push/keys"
	"push-server/internal/ratelimit"
	registryHandler "push-server/internal/registry/handler"
	registryProcessor "push-server/internal/registry/processor"
	segmentsHandler "push-server/internal/segments/handler"
	segmentsProcessor "push-server/internal/segments/processor"
	"push-server/internal/store"

	"github.com/hibiken/asynq"
)

// TrackingPath is the public endpoint the service worker reports clicks and dismissals to
const TrackingPath = "/api/notifications/track"

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	// Core
	Store  store.Store
	Logger *observability.Logger
	Hub    *events.Hub

	VAPIDPublicKey        string
	NotificationProcessor notificationsProcessor.NotificationProcessor

	// Handlers
	AuthHandler          *authHandler.Handler
	RegistryHandler      registryHandler.Handler
	NotificationsHandler notificationsHandler.Handler
	CampaignHandler      campaignHandler.Handler
	LandingPageHandler   landingHandler.Handler
	SegmentHandler       segmentsHandler.Handler
	StreamHandler        events.StreamHandler
	RateLimiter          *ratelimit.Service

	// Optional infrastructure, nil when not configured
	Redis         *redisClient.Client
	EventBridge   *events.RedisBridge
	JobClient     *jobs.Client
	KafkaProducer *kafkaClient.Producer

	closers []io.Closer
}

// Initialize sets up all application dependencies
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Logger: logger,
	}

	var err error
	deps.Store, err = store.New(cfg.Database.ConnectionString(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	deps.closers = append(deps.closers, &deps.Store)

	signer, err := newSigner(ctx, cfg.Push)
	if err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to load VAPID key: %w", err)
	}
	if c, ok := signer.(io.Closer); ok {
		deps.closers = append(deps.closers, c)
	}
	pushClient := push.NewClient(signer, cfg.Push.VAPIDSubject, cfg.Push.TTL)
	deps.VAPIDPublicKey = pushClient.PublicKey()

	deps.Hub = events.NewHub(cfg.Events.BufferSize, logger)
	deps.StreamHandler = events.NewStreamHandler(deps.Hub, cfg.Events.HeartbeatInterval, logger)

	deps.Redis, err = redisClient.NewClient(cfg.Redis, logger)
	if err != nil {
		deps.Cleanup()
		return nil, err
	}
	var scheduler campaignProcessor.Scheduler
	if deps.Redis.IsEnabled() {
		deps.closers = append(deps.closers, deps.Redis)

		deps.EventBridge = events.NewRedisBridge(deps.Hub, deps.Redis, logger)
		deps.Hub.SetRelay(deps.EventBridge)

		deps.JobClient = jobs.NewClient(RedisClientOpt(cfg.Redis), logger)
		deps.closers = append(deps.closers, deps.JobClient)
		scheduler = deps.JobClient
	}

	var publisher *integrations.Publisher
	if cfg.Kafka.Enabled {
		deps.KafkaProducer = kafkaClient.NewProducer(kafkaClient.ProducerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, logger)
		deps.closers = append(deps.closers, deps.KafkaProducer)
		publisher = integrations.NewPublisher(deps.KafkaProducer, logger)
	}

	dispatcher := dispatch.New(pushClient, dispatch.Config{
		Defaults: push.Defaults{
			Icon:  cfg.Push.DefaultIcon,
			Badge: cfg.Push.DefaultBadge,
		},
		TrackingURL:    cfg.Push.PublicBaseURL + TrackingPath,
		Timeout:        cfg.Push.SendTimeout,
		MaxConcurrency: cfg.Push.MaxConcurrency,
	}, logger)
	bookkeeper := deliveries.New(&deps.Store, deps.Hub, publisher, logger)

	deps.NotificationProcessor = notificationsProcessor.New(&deps.Store, dispatcher, bookkeeper, logger)
	deps.NotificationsHandler = notificationsHandler.New(deps.NotificationProcessor, logger)

	registryProc := registryProcessor.New(&deps.Store, deps.Hub, logger)
	deps.RegistryHandler = registryHandler.New(registryProc, logger)

	campaignProc := campaignProcessor.New(&deps.Store, scheduler, &deps.NotificationProcessor, logger)
	deps.CampaignHandler = campaignHandler.New(campaignProc, logger)

	landingProc := landingProcessor.New(&deps.Store, logger)
	deps.LandingPageHandler = landingHandler.New(landingProc, logger)

	segmentProc := segmentsProcessor.New(&deps.Store, logger)
	deps.SegmentHandler = segmentsHandler.New(segmentProc, logger)

	if cfg.Server.RateLimitRPM > 0 {
		deps.RateLimiter = ratelimit.NewService(deps.Redis, cfg.Server.RateLimitRPM, logger)
	}

	if cfg.Auth.JWTSecret != "" {
		h := authHandler.New(authProcessor.New(cfg.Auth.JWTSecret, logger), logger)
		deps.AuthHandler = &h
	} else {
		logger.Warn(ctx, "JWT_SECRET is not set, dashboard endpoints are unauthenticated")
	}

	return deps, nil
}

// RedisClientOpt converts the Redis settings into asynq connection options
func RedisClientOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// newSigner picks the VAPID key source: Cloud KMS, then a PEM file, then an inline key
func newSigner(ctx context.Context, cfg config.PushConfig) (push.Signer, error) {
	switch {
	case cfg.VAPIDKMSKeyName != "":
		return keys.NewKMSSigner(ctx, cfg.VAPIDKMSKeyName)
	case cfg.VAPIDKeyFile != "":
		return keys.NewFileSigner(cfg.VAPIDKeyFile)
	default:
		return keys.NewSignerFromBase64(cfg.VAPIDPrivateKey)
	}
}

// Cleanup closes all resources in reverse order of creation
func (d *Dependencies) Cleanup() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			d.Logger.Error(context.Background(), "failed to close dependency", err)
		}
	}
	d.closers = nil
}
