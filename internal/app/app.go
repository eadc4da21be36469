package app

import (
	"context"
	"database/sql"
	"io"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"p1gateway/internal/auth"
	"p1gateway/internal/cache"
	"p1gateway/internal/config"
	"p1gateway/internal/export"
	httpserver "p1gateway/internal/http"
	"p1gateway/internal/http/handlers"
	"p1gateway/internal/http/middleware"
	"p1gateway/internal/mqtt"
	"p1gateway/internal/obis"
	"p1gateway/internal/repository"
	"p1gateway/internal/serialport"
	"p1gateway/internal/service"
	"p1gateway/internal/storage"
	"p1gateway/internal/telegram"
	"p1gateway/internal/ws"
)

// App wires the gateway dependencies.
type App struct {
	gateway     *service.Gateway
	server      *httpserver.Server
	db          *sql.DB
	redisClient *redis.Client
	publisher   *mqtt.Publisher
	logger      *zap.Logger
}

// New constructs the application graph. The postgres repository is
// mandatory; redis, MQTT and the CSV archive attach only when configured.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := storage.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	repo := repository.NewSnapshotRepository(sqlDB)

	app := &App{db: sqlDB, logger: logger}

	var latestCache service.LatestCache
	if cfg.RedisEnabled() {
		redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.redisClient = redisClient
		latestCache = cache.NewLatestStore(redisClient, cfg.LatestTTL())
	}

	var publisher service.SnapshotPublisher
	if cfg.MQTTEnabled() {
		p, err := mqtt.NewPublisher(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Prefix:   cfg.MQTT.Prefix,
		}, logger)
		if err != nil {
			app.Close()
			return nil, err
		}
		if err := p.PublishDiscovery(); err != nil {
			logger.Warn("publishing discovery configs failed", zap.Error(err))
		}
		app.publisher = p
		publisher = p
	}

	var archive service.Archiver
	if cfg.CSVEnabled() {
		w, err := export.NewCSVWriter(cfg.Export.CSVDir)
		if err != nil {
			app.Close()
			return nil, err
		}
		archive = w
	}

	table := obis.DefaultTable().Extend(cfg.ObisCodes)
	parser := telegram.NewParser(table)
	hub := ws.NewHub(logger)

	openPort := func() (io.ReadCloser, error) {
		return serialport.Open(cfg.Serial.Port, cfg.Serial.BaudRate)
	}

	app.gateway = service.NewGateway(service.Deps{
		OpenPort:  openPort,
		Parser:    parser,
		VerifyCRC: cfg.Serial.VerifyCRC,
		Repo:      repo,
		Cache:     latestCache,
		Hub:       hub,
		Publisher: publisher,
		Archive:   archive,
		Logger:    logger,
	})

	routes := httpserver.Routes{
		Live:       handlers.NewLiveHandler(app.gateway),
		LiveStream: ws.NewServer(hub, 0, logger).HandleWS,
		Health:     handlers.NewHealthHandler(app.gateway),
	}
	if cfg.HistoryEnabled() {
		tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		passwords := auth.NewPasswordVerifier(cfg.Auth.PasswordHash)
		routes.Login = handlers.NewLoginHandler(passwords, tokens)
		routes.History = handlers.NewHistoryHandler(app.gateway)
		routes.AuthMiddleware = middleware.Auth(tokens)
	}

	router := httpserver.NewRouter(routes)
	app.server = httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return app, nil
}

// Run starts the meter pipeline and the HTTP server and blocks until either
// fails or the context ends.
func (a *App) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return a.gateway.Run(ctx) })
	group.Go(func() error { return a.server.Run(ctx) })
	return group.Wait()
}

// Close releases resources.
func (a *App) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
