package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pharmago/dispatch/api"
	"github.com/pharmago/dispatch/internal/alert"
	"github.com/pharmago/dispatch/internal/commission"
	"github.com/pharmago/dispatch/internal/db/memstore"
	"github.com/pharmago/dispatch/internal/db/migration"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/delivery"
	"github.com/pharmago/dispatch/internal/dispatch"
	"github.com/pharmago/dispatch/internal/event"
	"github.com/pharmago/dispatch/internal/notification"
	"github.com/pharmago/dispatch/internal/payment"
	"github.com/pharmago/dispatch/internal/scheduler"
	"github.com/pharmago/dispatch/internal/settings"
	"github.com/pharmago/dispatch/internal/util"
	"github.com/pharmago/dispatch/internal/wallet"
	"github.com/pharmago/dispatch/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configurations
	config, err := util.LoadConfig("./app.env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config file 😣")
	}

	log.Info().Msg("configurations loaded successfully ✅")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "migrate-down" {
		rollbackMigration(ctx, config)
		return
	}

	store := newStore(ctx, config)

	redisDb := redis.NewClient(&redis.Options{
		Addr:     config.RedisServerAddress,
		Password: "", // no password set
		DB:       0,  // use default DB
	})
	if err := redisDb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis 😣")
	}
	log.Info().Msg("connected to redis ✅")

	settingsService := settings.NewService(store, settings.WithCache(settings.NewRedisCache(redisDb)))

	// Domain events: SSE clients, Kafka and the commission safety net all listen on the bus
	bus := event.NewBus()
	eventSender := event.NewSSEServer()
	go eventSender.Run()
	bus.Subscribe("sse", event.Forward(eventSender))

	if len(config.KafkaBrokers) > 0 {
		kafkaSink := event.NewKafkaSink(config.KafkaBrokers, config.KafkaTopic)
		defer kafkaSink.Close()
		bus.Subscribe("kafka", kafkaSink.Handle)
		log.Info().Strs("brokers", config.KafkaBrokers).Str("topic", config.KafkaTopic).Msg("kafka sink enabled ✅")
	}

	redisOpt := asynq.RedisClientOpt{
		Addr: config.RedisServerAddress,
	}
	taskDistributor := worker.NewTaskDistributor(redisOpt)
	notifier := worker.NewNotifier(taskDistributor)

	alerter := newAlerter(config)

	dispatcher := dispatch.NewEngine(store, settingsService, notifier, bus, alerter)
	commissionEngine := commission.NewEngine(store, settingsService, wallet.NewLedger(config.Currency), notifier, bus, config.Currency)
	deliveryService := delivery.NewService(
		store,
		settingsService,
		dispatcher,
		worker.NewRetryingCommission(commissionEngine, taskDistributor),
		notifier,
		bus,
		config.Currency,
	)
	paymentService := payment.NewService(store, bus)
	bus.Subscribe("commission", commission.PaymentConfirmedHandler(store, commissionEngine))

	sender := newNotificationSender(ctx, config)
	go runTaskProcessor(redisOpt, sender, dispatcher, commissionEngine)

	if config.SchedulerEnabled {
		jekoClient := payment.NewJekoClient(config.JekoBaseURL, config.JekoAPIKey, config.JekoAPIKeyID)
		defer jekoClient.Close()

		jobs := scheduler.NewJobs(store, settingsService, deliveryService, dispatcher, paymentService, jekoClient)
		tracker, err := scheduler.NewTracker(jobs, scheduler.NewRedisLocker(redisDb, 50*time.Second))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create scheduler 😣")
		}
		if err := tracker.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start scheduler 😣")
		}
		defer tracker.Stop()
		log.Info().Msg("scheduler started ✅")
	}

	server := api.NewServer(&config, store, dispatcher, deliveryService, commissionEngine, paymentService, settingsService, taskDistributor, eventSender)
	go func() {
		if err := server.Start(config.HTTPServerAddress); err != nil {
			log.Fatal().Err(err).Msg("failed to start HTTP server 😣")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
}

func newStore(ctx context.Context, config util.Config) db.Store {
	if config.StoreDriver == util.StoreDriverMemory {
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return memstore.New()
	}

	// Create connection pool
	connPool, err := pgxpool.New(ctx, config.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to validate db connection string 😣")
	}

	pingErr := connPool.Ping(ctx)
	if pingErr != nil {
		log.Fatal().Err(pingErr).Msg("failed to connect to db 😣")
	}
	log.Info().Msg("connected to db ✅")

	if err := migration.Up(ctx, connPool); err != nil {
		log.Fatal().Err(err).Msg("failed to run db migrations 😣")
	}
	log.Info().Msg("db migrated ✅")

	return db.NewStore(connPool)
}

func rollbackMigration(ctx context.Context, config util.Config) {
	connPool, err := pgxpool.New(ctx, config.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to validate db connection string 😣")
	}
	defer connPool.Close()

	if err := migration.RollbackLast(ctx, connPool); err != nil {
		log.Fatal().Err(err).Msg("failed to roll back migration 😣")
	}
	log.Info().Msg("last migration rolled back ✅")
}

// newAlerter fans operator alerts out to every configured channel. The log always gets a copy.
func newAlerter(config util.Config) alert.Alerter {
	alerters := alert.Multi{alert.LogAlerter{}}

	if config.DiscordBotToken != "" && config.DiscordChannelID != "" {
		discord, err := alert.NewDiscordAlerter(config.DiscordBotToken, config.DiscordChannelID)
		if err != nil {
			log.Error().Err(err).Msg("failed to create discord alerter")
		} else {
			alerters = append(alerters, discord)
		}
	}

	if config.SMTPHost != "" && config.OperatorEmail != "" {
		mailer, err := alert.NewMailAlerter(config.SMTPHost, config.SMTPPort, config.SMTPUsername, config.SMTPPassword, config.OperatorEmail)
		if err != nil {
			log.Error().Err(err).Msg("failed to create mail alerter")
		} else {
			alerters = append(alerters, mailer)
		}
	}

	return alerters
}

// newNotificationSender returns what the worker uses to deliver notifications for real.
func newNotificationSender(ctx context.Context, config util.Config) notification.Notifier {
	if config.FirebaseCredentialsFile == "" {
		log.Warn().Msg("FIREBASE_CREDENTIALS_FILE not set, notifications are only logged")
		return notification.LogNotifier{}
	}

	firebaseApp, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(config.FirebaseCredentialsFile))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize firebase app 😣")
	}

	notificationService, err := notification.NewNotificationService(ctx, firebaseApp)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create notification service 😣")
	}
	log.Info().Msg("notification service created successfully ✅")
	return notificationService
}

func runTaskProcessor(redisOpt asynq.RedisClientOpt, sender notification.Notifier, assigner worker.Assigner, commissionDistributor worker.CommissionDistributor) {
	taskProcessor := worker.NewRedisTaskProcessor(redisOpt, sender, assigner, commissionDistributor)
	log.Info().Msg("start task processor")
	err := taskProcessor.Start()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start task processor 😣")
	}
}
