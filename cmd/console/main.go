package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dialdesk/go-console/agents"
	"github.com/dialdesk/go-console/calls"
	"github.com/dialdesk/go-console/internal/config"
	"github.com/dialdesk/go-console/query"
	"github.com/dialdesk/go-console/session"
	"github.com/dialdesk/go-console/transport"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("console stopped")
	}
	log.Info().Msg("console stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	repo, err := session.NewFileRepo(c.GetStateFolder())
	if err != nil {
		return err
	}

	bus := evbus.New()
	store, err := session.NewStore(repo, session.WithBus(bus), session.WithLogger(log.Logger))
	if err != nil {
		return err
	}

	// A 401 on any authenticated request invalidates the whole session;
	// sessionExpired sends the client back to the login entry point.
	sessionExpired := make(chan struct{}, 1)
	pipeline, err := transport.NewPipeline(
		c.GetAPIBaseURL(),
		store,
		transport.WithTimeout(c.GetHTTPTimeout()),
		transport.WithPipelineLogger(log.Logger),
		transport.WithUnauthorizedHandler(func() {
			store.ForceLogout("session expired")
			select {
			case sessionExpired <- struct{}{}:
			default:
			}
		}),
	)
	if err != nil {
		return err
	}
	store.SetTransport(pipeline)

	cache := query.NewCache(query.WithCacheBus(bus), query.WithCacheLogger(log.Logger))
	defer cache.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ensureLoggedIn(ctx, store); err != nil {
		return err
	}
	user := store.Current().User
	if user != nil {
		log.Info().Str("user", user.Email).Msg("logged in")
	}

	if err := startMonitoring(ctx, c, bus, cache, pipeline); err != nil {
		return err
	}

	select {
	case <-sessionExpired:
		return errors.New("session expired, log in again")
	case <-stopSignal():
		return nil
	}
}

// ensureLoggedIn reuses a restored session when one is present and not yet
// expired; otherwise it logs in with the configured credentials.
func ensureLoggedIn(ctx context.Context, store *session.Store) error {
	if current := store.Current(); current.IsAuthenticated() {
		if expiry, known := store.TokenExpiry(); !known || expiry.After(time.Now()) {
			log.Info().Msg("reusing persisted session")
			return nil
		}
		log.Info().Msg("persisted session expired")
	}

	creds := session.Credentials{
		Email:    os.Getenv("CONSOLE_EMAIL"),
		Password: os.Getenv("CONSOLE_PASSWORD"),
	}
	if creds.Email == "" || creds.Password == "" {
		return errors.New("CONSOLE_EMAIL and CONSOLE_PASSWORD are required")
	}
	if err := store.Login(ctx, creds); err != nil {
		log.Error().Str("reason", store.Current().Err).Msg("login failed")
		return err
	}
	return nil
}

// startMonitoring wires the live board: pollers keep the monitored keys
// warm and a bus subscription renders every update as a log line.
func startMonitoring(ctx context.Context, c config.Config, bus evbus.Bus, cache *query.Cache, pipeline *transport.Pipeline) error {
	teamID := config.GetEnv("CONSOLE_TEAM_ID", "default")

	agentClient, err := agents.New(pipeline, cache)
	if err != nil {
		return err
	}
	callClient, err := calls.New(pipeline, cache)
	if err != nil {
		return err
	}

	agentClient.PollQueue(ctx, teamID, c.GetAgentQueueInterval())
	callClient.PollLive(ctx, teamID, c.GetLiveCallsInterval())
	callClient.PollAlerts(ctx, teamID, c.GetCallAlertsInterval())

	roster, err := agentClient.List(ctx, teamID, 100, 0, nil)
	if err != nil {
		return err
	}
	for _, agent := range roster {
		agentClient.PollStatus(ctx, agent.ID, c.GetAgentStatusInterval())
	}

	return bus.Subscribe(query.TopicUpdated, func(key string) {
		log.Info().Str("key", key).Msg("live view updated")
	})
}

func stopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
