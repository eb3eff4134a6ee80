package meetingmcp

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/glebarez/sqlite"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/NaveenPalisetti/meetingmcp/pkg/a2a"
	"github.com/NaveenPalisetti/meetingmcp/pkg/archive"
	"github.com/NaveenPalisetti/meetingmcp/pkg/audit"
	"github.com/NaveenPalisetti/meetingmcp/pkg/bridge"
	"github.com/NaveenPalisetti/meetingmcp/pkg/config"
	"github.com/NaveenPalisetti/meetingmcp/pkg/credentials"
	"github.com/NaveenPalisetti/meetingmcp/pkg/gateway"
	"github.com/NaveenPalisetti/meetingmcp/pkg/llm"
	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
	"github.com/NaveenPalisetti/meetingmcp/pkg/notify"
	"github.com/NaveenPalisetti/meetingmcp/pkg/orchestrator"
	"github.com/NaveenPalisetti/meetingmcp/pkg/scheduler"
	"github.com/NaveenPalisetti/meetingmcp/pkg/store"
	"github.com/NaveenPalisetti/meetingmcp/pkg/telemetry"
	"github.com/NaveenPalisetti/meetingmcp/pkg/tools"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the meetingmcp server",
	RunE:  runStart,
}

// runtime holds everything a running server (or a one-shot in-process
// orchestration) needs.
type runtime struct {
	host        *mcp.Host
	orch        *orchestrator.Orchestrator
	broadcaster *notify.Broadcaster
	audit       *audit.Logger
	archive     *archive.Store
	store       *store.Store
	bridge      *bridge.Manager
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := config.EnsureDataDir(); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format, nil)
	logger.Info("starting meetingmcp",
		slog.String("version", version),
		slog.Int("port", cfg.Gateway.Port),
		slog.String("bind", cfg.Gateway.Bind),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = telemetry.WithLogger(ctx, logger)

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: "meetingmcp",
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	rt, cleanup, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	webhooks := scheduler.NewWebhookHandler(webhookSecret(cfg), logger)
	scheduler.RegisterMeetingPipeline(webhooks, rt.orch)

	var a2aHandler http.Handler
	if cfg.A2A.Enabled {
		externalURL := cfg.A2A.ExternalURL
		if externalURL == "" {
			externalURL = gatewayURL(cfg)
		}
		a2aHandler = a2a.NewHandler(a2a.HandlerConfig{
			Card:         a2a.DefaultCard(externalURL),
			Orchestrator: rt.orch,
			Audit:        rt.audit,
			Logger:       logger,
			AuthToken:    cmp.Or(cfg.A2A.AuthToken, cfg.Gateway.AuthToken),
		})
	}

	sched := scheduler.New()
	if cfg.Digest.Enabled {
		job := scheduler.NewDigestJob(cfg.Digest, rt.orch, rt.broadcaster, rt.audit, logger)
		if err := sched.Add(job); err != nil {
			return fmt.Errorf("registering digest job: %w", err)
		}
	}
	go sched.Start(ctx)

	g := gateway.New(gateway.Config{
		Bind:      cfg.Gateway.Bind,
		Port:      cfg.Gateway.Port,
		Host:      rt.host,
		Orch:      rt.orch,
		Logger:    logger,
		Webhooks:  webhooks,
		A2A:       a2aHandler,
		AuthToken: cfg.Gateway.AuthToken,
	})
	return g.Start(ctx)
}

// buildRuntime opens storage and assembles the tool host and orchestrator.
// The returned cleanup closes every connection it opened.
func buildRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*runtime, func(), error) {
	db, err := store.New(cfg.Store.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	gdb, err := gorm.Open(sqlite.Open(cfg.Store.DSN), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("opening gorm handle: %w", err)
	}

	auditLog, err := audit.New(gdb)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("initializing audit log: %w", err)
	}
	archiveStore, err := archive.New(gdb)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("initializing artifact archive: %w", err)
	}

	var secrets tools.SecretSource
	if masterKey := os.Getenv(masterKeyEnv(cfg)); masterKey != "" {
		credStore, err := credentials.New(db.DB(), masterKey)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("opening credential store: %w", err)
		}
		secrets = credStore
	} else {
		logger.Info("credential store locked", slog.String("env", masterKeyEnv(cfg)))
	}

	var provider llm.Provider
	apiKey := ""
	if cfg.Summarizer.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.Summarizer.APIKeyEnv)
	}
	provider, err = llm.New(cfg.Summarizer.Provider, apiKey, cfg.Summarizer.BaseURL, cfg.Summarizer.Model)
	if err != nil {
		logger.Warn("summarization provider unavailable, falling back to extractive summaries",
			slog.String("provider", cfg.Summarizer.Provider),
			slog.String("error", err.Error()),
		)
		provider = nil
	}

	sinks := notify.BuildSinks(ctx, cfg.Notify, secrets, logger)
	broadcaster := notify.NewBroadcaster(logger, sinks...)

	host := mcp.NewHost(mcp.HostConfig{Store: db, Audit: auditLog, Logger: logger})
	host.RegisterTool(tools.NewTranscriptTool(cfg.Transcript, logger))
	host.RegisterTool(tools.NewSummarizationTool(tools.SummarizationConfig{
		Provider:  provider,
		Model:     cfg.Summarizer.Model,
		MaxTokens: cfg.Summarizer.MaxTokens,
		Archive:   archiveStore,
		Audit:     auditLog,
		Logger:    logger,
	}))
	host.RegisterTool(tools.NewJiraTool(cfg.Jira, secrets, logger))
	host.RegisterTool(tools.NewRiskTool(tools.RiskConfig{
		Jira:    cfg.Jira,
		Secrets: secrets,
		Archive: archiveStore,
		Logger:  logger,
	}))
	host.RegisterTool(tools.NewCalendarTool(cfg.Calendar, secrets, logger))
	host.RegisterTool(tools.NewNotificationTool(broadcaster, auditLog, logger))

	var mgr *bridge.Manager
	if cfg.MCP.Enabled {
		mgr = bridge.NewManager(logger)
		for _, sc := range cfg.MCP.Servers {
			if sc.Enabled != nil && !*sc.Enabled {
				continue
			}
			serverTools, err := mgr.Connect(ctx, bridge.ServerConfig{
				Name:    sc.Name,
				Command: sc.Command,
				Args:    sc.Args,
				Env:     sc.Env,
			})
			if err != nil {
				logger.Warn("mcp server connection failed",
					slog.String("server", sc.Name),
					slog.String("error", err.Error()),
				)
				continue
			}
			for _, tl := range serverTools {
				host.RegisterTool(bridge.NewBridgedTool(sc.Name, tl, func() (*mcpsdk.ClientSession, error) {
					return mgr.Session(sc.Name)
				}))
			}
		}
	}

	orch := orchestrator.New(orchestrator.Config{
		Host:   host,
		Store:  db,
		Audit:  auditLog,
		Logger: logger,
	})

	rt := &runtime{
		host:        host,
		orch:        orch,
		broadcaster: broadcaster,
		audit:       auditLog,
		archive:     archiveStore,
		store:       db,
		bridge:      mgr,
	}
	cleanup := func() {
		if mgr != nil {
			mgr.DisconnectAll()
		}
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
		db.Close()
	}
	return rt, cleanup, nil
}

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func masterKeyEnv(cfg *config.Config) string {
	return cmp.Or(cfg.Credentials.MasterKeyEnv, "MEETINGMCP_MASTER_KEY")
}

func webhookSecret(cfg *config.Config) string {
	if cfg.Webhooks.Secret != "" {
		return cfg.Webhooks.Secret
	}
	if cfg.Webhooks.SecretEnv != "" {
		return os.Getenv(cfg.Webhooks.SecretEnv)
	}
	return ""
}

func gatewayURL(cfg *config.Config) string {
	return fmt.Sprintf("http://127.0.0.1:%d", cfg.Gateway.Port)
}
