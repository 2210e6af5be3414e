package main

import (
	"context"
	"fmt"
	"log/slog"

	"akwa/internal/app/commands"
	"akwa/internal/app/dto"
	cancellationapp "akwa/internal/app/handlers/cancellation"
	penaltiesapp "akwa/internal/app/handlers/penalties"
	"akwa/internal/app/middleware"
	appnotify "akwa/internal/app/notify"
	appoutbox "akwa/internal/app/outbox"
	"akwa/internal/app/policies"
	"akwa/internal/app/queries"
	"akwa/internal/app/uow"
	domainbooking "akwa/internal/domain/booking"
	domainpenalty "akwa/internal/domain/penalty"
	"akwa/internal/infra/broker/kafka"
	redisstore "akwa/internal/infra/cache/redis"
	"akwa/internal/infra/config"
	mongodb "akwa/internal/infra/db/mongo"
	"akwa/internal/infra/db/sqlite"
	ginserver "akwa/internal/infra/http/gin"
	"akwa/internal/infra/inbox"
	infranotify "akwa/internal/infra/notify"
	"akwa/internal/infra/obs"
	infraoutbox "akwa/internal/infra/outbox"
	"akwa/internal/infra/storage/memory"
	"akwa/internal/infra/storage/s3"
	"akwa/internal/infra/validation"
)

const eventSource = "app://akwa"

type application struct {
	handlers ginserver.Handlers
	checks   map[string]obs.Check
	factory  uow.UoWFactory
	worker   *infraoutbox.Worker
	consumer *kafka.Consumer
	topics   []string
	logger   *slog.Logger
	closers  []func(context.Context) error
}

// records is the selected record store: a unit-of-work factory, the relay
// side of its outbox and the inbox the notification consumer deduplicates with.
type records struct {
	factory uow.UoWFactory
	source  appoutbox.Source
	inbox   kafka.Inbox
	mongo   *mongodb.Client
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{checks: map[string]obs.Check{}, logger: logger}

	store, err := app.openRecords(ctx, cfg)
	if err != nil {
		app.close(ctx)
		return nil, err
	}
	app.factory = store.factory

	idStore, err := app.openIdempotency(ctx, cfg, store)
	if err != nil {
		app.close(ctx)
		return nil, err
	}

	dispatcher := appnotify.NewDispatcher(logger, app.notifiers(cfg)...)

	var producer infraoutbox.Producer = infranotify.LocalProducer{Events: dispatcher, Logger: logger}
	if cfg.UseKafka() {
		kp, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			app.close(ctx)
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		app.closers = append(app.closers, func(context.Context) error { return kp.Close() })
		producer = kp

		handler := kafka.NotificationHandler{Inbox: store.inbox, Events: dispatcher, Logger: logger}
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, nil, handler, logger)
		if err != nil {
			app.close(ctx)
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
		app.closers = append(app.closers, func(context.Context) error { return consumer.Close() })
		app.consumer = consumer
		app.topics = []string{
			infraoutbox.TopicFor(cfg.KafkaTopicPrefix, domainbooking.EventBookingCancelled),
			infraoutbox.TopicFor(cfg.KafkaTopicPrefix, domainpenalty.EventStatusChanged),
		}
	}

	app.worker = &infraoutbox.Worker{
		Source:      store.source,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		EventSource: eventSource,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}

	encoder := appoutbox.JSONEventEncoder{}
	commandBus := commands.NewInMemoryBus()
	cancelHandler := &cancellationapp.CancelBookingHandler{
		UoWFactory: store.factory,
		Encoder:    encoder,
		Logger:     logger,
	}
	commands.RegisterHandler[cancellationapp.CancelBookingCommand, *dto.CancellationResult](commandBus, cancellationapp.CancelBookingCommand{}.Key(), cancelHandler)

	lifecycle := &penaltiesapp.LifecycleHandler{Encoder: encoder, Logger: logger}
	commands.RegisterHandler[penaltiesapp.WaivePenaltyCommand, *dto.PenaltyView](commandBus, penaltiesapp.WaivePenaltyCommand{}.Key(),
		commands.HandlerFunc[penaltiesapp.WaivePenaltyCommand, *dto.PenaltyView](lifecycle.Waive))
	commands.RegisterHandler[penaltiesapp.MarkCollectedCommand, *dto.PenaltyView](commandBus, penaltiesapp.MarkCollectedCommand{}.Key(),
		commands.HandlerFunc[penaltiesapp.MarkCollectedCommand, *dto.PenaltyView](lifecycle.MarkCollected))

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[cancellationapp.GetCancellationQuery, *dto.CancellationInfo](queryBus, cancellationapp.GetCancellationQuery{}.Key(), &cancellationapp.GetCancellationHandler{UoWFactory: store.factory})
	queries.RegisterHandler[penaltiesapp.ListPenaltiesQuery, *dto.PenaltyCollection](queryBus, penaltiesapp.ListPenaltiesQuery{}.Key(), &penaltiesapp.ListPenaltiesHandler{UoWFactory: store.factory})

	validator := validation.New()
	authorizer := middleware.RoleAuthorizer{}
	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idStore, nil, logger),
		middleware.OutboxFlush(app.worker, logger),
		middleware.Authorization(authorizer),
		middleware.Validation(validator),
		middleware.Transaction(store.factory, nil),
	)
	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryAuthorization(authorizer),
		middleware.QueryValidation(validator),
	)

	if cfg.AdminKeyHash == "" {
		logger.Warn("ADMIN_KEY_HASH not set, admin endpoints reject every request")
	}
	app.handlers = ginserver.Handlers{
		Cancellation: ginserver.CancellationHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Logger: logger},
		Penalties:    ginserver.PenaltyHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Logger: logger},
		Identity:     ginserver.GatewayIdentity(),
		AdminAuth:    ginserver.AdminKey{Hash: []byte(cfg.AdminKeyHash), Logger: logger}.Handle,
	}
	return app, nil
}

func (a *application) openRecords(ctx context.Context, cfg config.Config) (records, error) {
	switch cfg.RecordStore {
	case config.StoreMongo:
		client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return records{}, fmt.Errorf("mongo connect: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.checks["mongo"] = client.Ping

		penaltyRepo, err := mongodb.NewPenaltyRepository(ctx, client.DB)
		if err != nil {
			return records{}, err
		}
		outboxStore, err := infraoutbox.NewStore(ctx, client.DB)
		if err != nil {
			return records{}, err
		}
		inboxStore, err := inbox.NewStore(ctx, client.DB, cfg.KafkaConsumerGroup)
		if err != nil {
			return records{}, err
		}
		factory := mongodb.Factory{
			DB:          client.DB,
			BookingRepo: mongodb.NewBookingRepository(client.DB),
			PenaltyRepo: penaltyRepo,
			OutboxStore: outboxStore,
		}
		return records{factory: factory, source: outboxStore, inbox: inboxStore, mongo: client}, nil
	case config.StoreSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return records{}, err
		}
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
		a.checks["sqlite"] = store.Ping
		return records{factory: store, source: store, inbox: inbox.NewMemory()}, nil
	default:
		factory := memory.NewFactory()
		return records{factory: factory, source: factory.OutboxStore, inbox: inbox.NewMemory()}, nil
	}
}

func (a *application) openIdempotency(ctx context.Context, cfg config.Config, store records) (middleware.IdempotencyStore, error) {
	switch cfg.IdempotencyBackend {
	case config.IdempotencyMongo:
		return mongodb.NewIdempotencyStore(ctx, store.mongo.DB, cfg.IdempotencyTTL)
	case config.IdempotencyRedis:
		client, err := redisstore.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, 0)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		idStore := redisstore.NewIdempotencyStore(client, cfg.IdempotencyTTL)
		a.checks["redis"] = idStore.Ping
		return idStore, nil
	default:
		return memory.NewIdempotencyStore(cfg.IdempotencyTTL), nil
	}
}

// notifiers always includes the log channel; email and receipts are added
// when configured.
func (a *application) notifiers(cfg config.Config) []policies.Notifier {
	out := []policies.Notifier{infranotify.Log{Logger: a.logger}}
	if cfg.SMTPHost != "" {
		out = append(out, infranotify.NewEmail(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.NotifyFrom))
	}
	if cfg.S3Endpoint != "" {
		client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, a.logger)
		if err != nil {
			a.logger.Warn("receipt archive disabled", "error", err)
		} else {
			out = append(out, infranotify.Receipts{Uploader: client})
			a.checks["s3"] = client.Ping
		}
	}
	return out
}

// start launches the outbox relay and, with a broker, the notification
// consumer. Both stop with ctx.
func (a *application) start(ctx context.Context) {
	go func() {
		if err := a.worker.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("outbox worker stopped", "error", err)
		}
	}()
	if a.consumer != nil {
		go func() {
			if err := a.consumer.Run(ctx, a.topics); err != nil && ctx.Err() == nil {
				a.logger.Error("notification consumer stopped", "error", err)
			}
		}()
	}
}

func (a *application) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("shutdown step failed", "error", err)
		}
	}
	a.closers = nil
}
