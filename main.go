package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/demohub/demohub-backend/api"
	"github.com/demohub/demohub-backend/auth"
	"github.com/demohub/demohub-backend/config"
	"github.com/demohub/demohub-backend/database"
	"github.com/demohub/demohub-backend/media"
	"github.com/demohub/demohub-backend/models"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: Error loading .env file: %v\n", err)
	}

	env := config.New()
	settings := config.Load(env)
	setupLogging(settings)

	log.Info().Str("environment", settings.Environment).Msg("initializing DemoHub API")

	tokens := auth.NewTokenCodec(auth.Options{
		AccessSecret:  settings.JWT.AccessSecret,
		RefreshSecret: settings.JWT.RefreshSecret,
		AccessTTL:     settings.JWT.AccessTTL,
		RefreshTTL:    settings.JWT.RefreshTTL,
	})
	if err := tokens.Validate(); err != nil {
		log.Fatal().Err(err).Msg("missing token configuration")
	}

	if settings.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	newLogger := logger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             10 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  !settings.IsProduction(),
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  settings.DatabaseURL,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt:    false,
		Logger:         newLogger,
		TranslateError: true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("error connecting to database")
	}

	currentDB := database.New(db)
	defer currentDB.Close()

	ctx := context.Background()
	if err := currentDB.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("error testing database connection")
	}

	// If generating models, run generation and exit
	if config.GetBool(env, "GENERATE_MODELS", false) {
		log.Info().Msg("generating models and query helpers")
		models.GenerateModels(db)
		return
	}

	// If generating column mismatch report, run report and exit
	if config.GetBool(env, "GENERATE_COLUMN_REPORT", false) {
		models.PrintColumnMismatchReport(db)
		return
	}

	if err := currentDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("error migrating database")
	}

	if config.GetBool(env, "SEED_DATABASE", false) {
		err := currentDB.Seed(ctx, database.SeedOptions{
			AdminEmail:    settings.Admin.Email,
			AdminPassword: settings.Admin.Password,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("error seeding database")
		}
		log.Info().Str("adminEmail", settings.Admin.Email).Msg("database seeded")
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("error reaching connection pool")
	}
	keepAlive, err := database.NewKeepAlive(sqlDB, config.GetString(env, "KEEPALIVE_SCHEDULE", database.DefaultKeepAliveSchedule))
	if err != nil {
		log.Fatal().Err(err).Msg("error scheduling keep-alive")
	}
	keepAlive.Start()
	defer keepAlive.Stop()

	store, err := newMediaStore(ctx, settings.Media)
	if err != nil {
		log.Fatal().Err(err).Msg("error configuring media store")
	}

	// One slot per sender so neither blocks once shutdown has started.
	errChannel := make(chan error, 2)

	server, err := api.NewServer(settings, currentDB, tokens, store)
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing server")
	}

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Err(fatalErr).Msg("closing server")

	server.ShutdownGracefully(30 * time.Second)
}

func setupLogging(settings config.Settings) {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if !settings.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// newMediaStore returns an S3 backed store when a bucket is configured.
// Without one the API still serves reads and rejects image writes.
func newMediaStore(ctx context.Context, m config.MediaSettings) (media.Store, error) {
	if m.Bucket == "" {
		log.Warn().Msg("MEDIA_BUCKET not set, image uploads are disabled")
		return media.Unconfigured{}, nil
	}

	client, err := media.NewS3Client(ctx, media.ClientOptions{
		Endpoint:        m.Endpoint,
		Region:          m.Region,
		AccessKeyID:     m.AccessKeyID,
		SecretAccessKey: m.SecretAccessKey,
	})
	if err != nil {
		return nil, err
	}

	return media.NewS3Store(client, media.S3Options{
		Bucket:    m.Bucket,
		PublicURL: m.PublicURL,
		Folder:    m.Folder,
	}), nil
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
