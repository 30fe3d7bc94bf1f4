// Command memoryd is the memory service entry point: an MCP server over
// stdio exposing long-term memory tools backed by the orchestration engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Gabrielmcp78/mem0-sub000/internal/config"
	"github.com/Gabrielmcp78/mem0-sub000/internal/engine"
	"github.com/Gabrielmcp78/mem0-sub000/internal/graphex"
	"github.com/Gabrielmcp78/mem0-sub000/internal/health"
	"github.com/Gabrielmcp78/mem0-sub000/internal/mcptool"
	"github.com/Gabrielmcp78/mem0-sub000/internal/observe"
	"github.com/Gabrielmcp78/mem0-sub000/internal/resilience"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory/memstore"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory/postgres"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory/sqlite"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "memoryd: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "memoryd",
		Short:         "Long-term memory service for LLM applications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var configPath string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP memory server on stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(configPath)
		},
	}
	serve.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration file")

	root.AddCommand(serve, &cobra.Command{
		Use:   "version",
		Short: "Print the memoryd version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "memoryd", version)
		},
	})
	return root
}

func runServe(configPath string) error {
	// The config watcher loads the initial config and later applies log
	// level changes without a restart.
	level := new(slog.LevelVar)
	watcher, err := config.NewWatcher(configPath, func(old, new *config.Config) {
		d := config.Compare(old, new)
		if d.LogLevelChanged {
			level.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.RestartRequired {
			slog.Warn("config changes beyond log_level require a restart")
		}
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %q not found", configPath)
		}
		return err
	}
	defer watcher.Stop()
	cfg := watcher.Current()

	// Logs go to stderr; stdout belongs to the MCP stdio transport.
	level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("memoryd starting",
		"version", version,
		"config", configPath,
		"vector_store", cfg.Store.Vector,
		"graph_store", cfg.Store.Graph,
		"history_log", cfg.Store.History,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "memoryd",
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	reg := config.DefaultRegistry()
	llmProvider, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name, "model", llmProvider.ModelID())

	embedder, err := reg.CreateEmbedder(cfg.Providers.Embedder)
	if err != nil {
		return fmt.Errorf("create embedder provider %q: %w", cfg.Providers.Embedder.Name, err)
	}
	slog.Info("provider created", "kind", "embedder", "name", cfg.Providers.Embedder.Name, "model", embedder.ModelID())

	stores, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.close()

	eng, err := engine.New(engine.Config{
		LLM:      llmProvider,
		Embedder: embedder,
		Vectors:  stores.vectors,
		Graph:    stores.graph,
		History:  stores.history,
		GraphMerge: graphex.MergeConfig{
			Threshold: cfg.Engine.GraphMerge.Threshold,
			TopK:      cfg.Engine.GraphMerge.TopK,
		},
		Retry: resilience.RetryPolicy{
			MaxAttempts:     cfg.Engine.Retry.MaxAttempts,
			InitialInterval: cfg.Engine.Retry.InitialInterval.Std(),
			Multiplier:      cfg.Engine.Retry.Multiplier,
		},
		LLMTimeout:       cfg.Engine.LLMTimeout.Std(),
		EmbedderTimeout:  cfg.Engine.EmbedderTimeout.Std(),
		StoreTimeout:     cfg.Engine.StoreTimeout.Std(),
		MaxConcurrency:   cfg.Engine.MaxConcurrency,
		AllowReset:       cfg.Engine.AllowReset,
		ExtractionPrompt: cfg.Engine.ExtractionPrompt,
		Telemetry:        observe.NewTelemetry(&observe.SlogSink{}, !cfg.Engine.DisableTelemetry),
	})
	if err != nil {
		return err
	}

	if cfg.Server.MetricsAddr != "" {
		startMetricsServer(ctx, cfg.Server.MetricsAddr, stores.checkers)
	}

	server := mcp.NewServer(&mcp.Implementation{Name: "memoryd", Version: version}, nil)
	mcptool.NewServer(eng).Register(server)

	slog.Info("mcp server ready on stdio")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	slog.Info("goodbye")
	return nil
}

// storeSet bundles the constructed persistence backends with their cleanup
// and readiness hooks.
type storeSet struct {
	vectors  memory.VectorStore
	graph    memory.GraphStore
	history  memory.HistoryLog
	checkers []health.Checker
	closers  []func()
}

func (s *storeSet) close() {
	for _, c := range s.closers {
		c()
	}
}

// buildStores constructs the vector, graph, and history backends selected in
// cfg. A single postgres pool is shared when both the vector store and the
// graph use it.
func buildStores(ctx context.Context, cfg *config.Config) (*storeSet, error) {
	s := &storeSet{}

	var pg *postgres.Store
	if cfg.Store.Vector == config.StorePostgres || cfg.Store.Graph == config.GraphPostgres {
		store, err := postgres.NewStore(ctx, cfg.Store.PostgresDSN, cfg.Providers.Embedder.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		pg = store
		s.closers = append(s.closers, store.Close)
		s.checkers = append(s.checkers, health.Checker{Name: "postgres", Check: store.Ping})
	}

	switch cfg.Store.Vector {
	case config.StorePostgres:
		s.vectors = pg.Vectors()
	case config.StoreMemory:
		s.vectors = memstore.NewVectorStore()
	}

	switch cfg.Store.Graph {
	case config.GraphPostgres:
		s.graph = pg.Graph()
	case config.GraphMemory:
		s.graph = memstore.NewGraphStore()
	case config.GraphOff:
	}

	switch cfg.Store.History {
	case config.HistorySQLite:
		log, err := sqlite.Open(ctx, cfg.Store.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("open history log: %w", err)
		}
		s.history = log
		s.closers = append(s.closers, func() {
			if err := log.Close(); err != nil {
				slog.Warn("history log close error", "err", err)
			}
		})
	case config.HistoryMemory:
		s.history = memstore.NewHistoryLog()
	}

	return s, nil
}

// startMetricsServer serves /metrics, /healthz, and /readyz on addr in a
// background goroutine until ctx is cancelled.
func startMetricsServer(ctx context.Context, addr string, checkers []health.Checker) {
	h := health.New(checkers...)
	h.Version = version

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	h.Register(mux)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		slog.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("metrics server shutdown error", "err", err)
		}
	}()
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
