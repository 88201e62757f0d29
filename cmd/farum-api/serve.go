package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/PabloGalante/farum-chat/internal/adapters/http"
	"github.com/PabloGalante/farum-chat/internal/adapters/llm"
	boltstore "github.com/PabloGalante/farum-chat/internal/adapters/storage/bolt"
	firestorestore "github.com/PabloGalante/farum-chat/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/farum-chat/internal/adapters/storage/memory"
	sqlitestore "github.com/PabloGalante/farum-chat/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/farum-chat/internal/app/conversation"
	journalapp "github.com/PabloGalante/farum-chat/internal/app/journal"
	"github.com/PabloGalante/farum-chat/internal/config"
	"github.com/PabloGalante/farum-chat/internal/domain"
	"github.com/PabloGalante/farum-chat/internal/observability"
)

const shutdownTimeout = 30 * time.Second

type serveFlags struct {
	configPath      string
	port            string
	provider        string
	model           string
	logLevel        string
	logFormat       string
	journalBackend  string
	providerTimeout time.Duration
}

func newServeCommand() *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			if err := observability.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
				return errors.Wrap(err, "invalid log level")
			}
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "path to a YAML config file")
	fs.StringVar(&f.port, "port", "", "listen port (overrides config)")
	fs.StringVar(&f.provider, "provider", "", "mock | openai | openai-completion | anthropic | vertex")
	fs.StringVar(&f.model, "model", "", "provider model name")
	fs.StringVar(&f.logLevel, "log-level", "", "debug | info | warn | error")
	fs.StringVar(&f.logFormat, "log-format", "", "json | console")
	fs.StringVar(&f.journalBackend, "journal", "", "none | memory | sqlite | bolt | firestore")
	fs.DurationVar(&f.providerTimeout, "provider-timeout", 0, "deadline for a single provider call")

	return cmd
}

// loadConfig layers explicitly set flags on top of file and env config.
func loadConfig(cmd *cobra.Command, f *serveFlags) (config.Config, error) {
	cfg, err := config.Read(f.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = f.port
	}
	if flags.Changed("provider") {
		cfg.Provider = config.Provider(f.provider)
	}
	if flags.Changed("model") {
		cfg.Model = f.model
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if flags.Changed("journal") {
		cfg.JournalBackend = config.JournalBackend(f.journalBackend)
	}
	if flags.Changed("provider-timeout") {
		cfg.ProviderTimeout = f.providerTimeout
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	log := observability.Logger()

	gateway, err := llm.NewGateway(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "initializing provider gateway")
	}
	log.Info().
		Str("provider", gateway.Name()).
		Str("prompt_mode", string(gateway.Mode())).
		Msg("provider gateway ready")

	journal, closeJournal, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeJournal(); err != nil {
			log.Error().Err(err).Msg("journal close error")
		}
	}()

	store := memstore.NewConversationStore()

	convSvc := conversation.NewService(gateway, store, journal, conversation.Options{
		SystemPrompt:     cfg.SystemPrompt,
		ProviderTimeout:  cfg.ProviderTimeout,
		Model:            cfg.Model,
		DefaultSessionID: domain.SessionID(cfg.DefaultSessionID),
	})
	journalSvc := journalapp.NewService(journal)

	httpSrv := &http.Server{
		Addr: cfg.Addr(),
		Handler: httpadapter.NewServer(convSvc, journalSvc, httpadapter.Options{
			ServiceName:    cfg.ServiceName,
			ServiceVersion: cfg.ServiceVersion,
			AllowedOrigins: cfg.CORSAllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eg, egCtx := errgroup.WithContext(sigCtx)

	eg.Go(func() error {
		log.Info().Str("addr", httpSrv.Addr).Msg("farum API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server listen error")
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		log.Info().Msg("shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
			return err
		}
		log.Info().Int("sessions", store.Len()).Msg("server shutdown complete")
		return nil
	})

	return eg.Wait()
}

// openJournal builds the configured turn journal. A nil journal with a
// no-op closer means journaling is disabled.
func openJournal(ctx context.Context, cfg config.Config) (domain.TurnJournal, func() error, error) {
	log := observability.Logger()
	noop := func() error { return nil }

	switch cfg.JournalBackend {
	case config.JournalNone:
		log.Info().Msg("[JOURNAL] disabled")
		return nil, noop, nil

	case config.JournalSQLite:
		log.Info().Str("path", cfg.JournalPath).Msg("[JOURNAL] using SQLite")
		s, err := sqlitestore.Open(cfg.JournalPath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "initializing SQLite journal")
		}
		return s, s.Close, nil

	case config.JournalBolt:
		log.Info().Str("path", cfg.JournalPath).Msg("[JOURNAL] using BoltDB")
		s, err := boltstore.Open(cfg.JournalPath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "initializing BoltDB journal")
		}
		return s, s.Close, nil

	case config.JournalFirestore:
		log.Info().Str("project", cfg.GCPProjectID).Msg("[JOURNAL] using Firestore")
		s, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, nil, errors.Wrap(err, "initializing Firestore journal")
		}
		return s, s.Close, nil

	default:
		log.Info().Msg("[JOURNAL] using in-memory journal")
		return memstore.NewJournalStore(), noop, nil
	}
}
