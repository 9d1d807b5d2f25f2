package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-hr-tenancy/internal/config"
	"github.com/jrsteele09/go-hr-tenancy/internal/notify"
	"github.com/jrsteele09/go-hr-tenancy/server"
	"github.com/jrsteele09/go-hr-tenancy/store"
	"github.com/jrsteele09/go-hr-tenancy/store/memstore"
	"github.com/jrsteele09/go-hr-tenancy/store/pgstore"
	"github.com/jrsteele09/go-hr-tenancy/token"
)

const revokedTokenSweepInterval = 10 * time.Minute

type closingNotifier interface {
	notify.Notifier
	Close() error
}

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx := context.Background()
	st, closeStore, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer closeStore()

	notifier := newNotifier(c)
	defer func() {
		if err := notifier.Close(); err != nil {
			log.Warn().Err(err).Msg("notifier close failed")
		}
	}()

	tokens := newTokenManager(c)
	stopSweep := sweepRevokedTokens(tokens, revokedTokenSweepInterval)
	defer stopSweep()

	handler, err := server.New(c, st, tokens, notifier)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := listenAndServe(httpServer); err != nil {
			log.Error().Err(err).Msg("listener stopped")
		}
	}()
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func openStore(ctx context.Context, c config.Config) (store.Store, func(), error) {
	switch driver := c.GetStoreDriver(); driver {
	case config.StoreDriverMemory:
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return memstore.New(), func() {}, nil
	case config.StoreDriverPostgres:
		pg, err := pgstore.Open(c.GetDatabaseURL())
		if err != nil {
			return nil, nil, fmt.Errorf("pgstore.Open: %w", err)
		}
		if err := pg.Ping(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, fmt.Errorf("pgstore.Ping: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, fmt.Errorf("pgstore.Migrate: %w", err)
		}
		return pg, func() { _ = pg.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func newNotifier(c config.Config) closingNotifier {
	brokers := c.GetKafkaBrokers()
	if len(brokers) == 0 {
		log.Info().Msg("no kafka brokers configured; notifications are discarded")
		return notify.Nop{}
	}
	log.Info().Strs("brokers", brokers).Str("topic", c.GetKafkaTopic()).Msg("publishing notifications to kafka")
	return notify.NewDispatcher(notify.NewKafkaPublisher(brokers, c.GetKafkaTopic()))
}

func newTokenManager(c config.Config) *token.Manager {
	secret := c.GetSessionSecret()
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			panic(err)
		}
		secret = hex.EncodeToString(buf)
		log.Warn().Msg("SESSION_SECRET not set; sessions will not survive a restart")
	}
	return token.New(token.NewHMACSigner(secret),
		token.WithIssuer(c.GetBaseURL()),
		token.WithTTL(c.GetSessionTTL()),
	)
}

func sweepRevokedTokens(tokens *token.Manager, every time.Duration) (stop func()) {
	ticker := time.NewTicker(every)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				tokens.CleanupRevokedTokens()
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
