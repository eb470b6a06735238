package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/seekerhut/ticketrag/internal/ai"
	"github.com/seekerhut/ticketrag/internal/config"
	"github.com/seekerhut/ticketrag/internal/handler"
	"github.com/seekerhut/ticketrag/internal/job"
	"github.com/seekerhut/ticketrag/internal/middleware"
	"github.com/seekerhut/ticketrag/internal/repo"
	"github.com/seekerhut/ticketrag/internal/schedule"
	"github.com/seekerhut/ticketrag/internal/service"
	"github.com/seekerhut/ticketrag/internal/vectorstore"
)

func main() {
	var configPath string
	var ticketID int64
	var clearIndex bool

	rootCmd := &cobra.Command{
		Use:   "ticketrag",
		Short: "ticket search service backed by a vector index",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := buildDeps(configPath)
			if err != nil {
				return err
			}
			defer deps.close()
			return runServer(deps)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "sync tickets into the vector index",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := buildDeps(configPath)
			if err != nil {
				return err
			}
			defer deps.close()
			return runSync(deps, ticketID, clearIndex)
		},
	}
	syncCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	syncCmd.Flags().Int64Var(&ticketID, "ticket-id", 0, "sync a single ticket")
	syncCmd.Flags().BoolVar(&clearIndex, "clear", false, "wipe the index before rebuilding")

	rootCmd.AddCommand(runCmd, syncCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type deps struct {
	cfg     *config.Config
	db      *sqlx.DB
	store   vectorstore.Store
	tickets *repo.TicketRepo
	sync    *service.SyncService
	search  *service.SearchService
	synth   service.Synthesizer
}

func (d *deps) close() {
	if d.store != nil {
		_ = d.store.Close()
	}
	if d.db != nil {
		_ = d.db.Close()
	}
}

func buildDeps(configPath string) (*deps, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	ctx := context.Background()
	logutil.GetLogger(ctx).Info("config loaded", zap.String("config", configPath))

	db, err := repo.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := repo.ApplyMigrations(db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	aiProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return nil, fmt.Errorf("init ai provider: %w", err)
	}
	// one embedder instance for both the sync path and the query path
	embedder := ai.NewTruncatingEmbedder(ai.NewEmbedder(aiProvider, cfg.AI.EmbedModel), cfg.AI.MaxInputChars)

	store, err := vectorstore.New(cfg.VectorStore)
	if err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	if err := store.EnsureReady(ctx); err != nil {
		return nil, fmt.Errorf("prepare vector store: %w", err)
	}

	ticketRepo := repo.NewTicketRepo(db)
	syncService := service.NewSyncService(ticketRepo, embedder, store)
	searchService := service.NewSearchService(embedder, store, service.SearchConfig{
		DefaultTopK:   cfg.Search.DefaultTopK,
		MaxTopK:       cfg.Search.MaxTopK,
		MinQueryChars: cfg.Search.MinQueryChars,
		MaxQueryChars: cfg.Search.MaxQueryChars,
		CacheSize:     cfg.Search.CacheSize,
		CacheTTL:      time.Duration(cfg.Search.CacheTTLSeconds) * time.Second,
		Collection:    cfg.VectorStore.Collection,
	})

	var synth service.Synthesizer
	if cfg.AI.GenerateModel != "" {
		generator := ai.NewGenerator(aiProvider, cfg.AI.GenerateModel)
		synth = service.NewLLMSynthesizer(generator, time.Duration(cfg.AI.Timeout)*time.Second)
	} else {
		synth = service.NewTemplateSynthesizer()
	}

	return &deps{
		cfg:     cfg,
		db:      db,
		store:   store,
		tickets: ticketRepo,
		sync:    syncService,
		search:  searchService,
		synth:   synth,
	}, nil
}

func runServer(d *deps) error {
	cfg := d.cfg
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.CORS(cfg.CORSOrigins),
		gzip.Gzip(gzip.DefaultCompression),
	)
	api := engine.Group("/api/v1")
	handler.RegisterRoutes(api, handler.RouterDeps{
		Search:    handler.NewSearchHandler(d.search, d.synth),
		Tickets:   handler.NewTicketHandler(d.tickets, d.sync),
		Sync:      handler.NewSyncHandler(d.sync),
		JWTSecret: []byte(cfg.JWTSecret),
	})

	if cfg.Sync.ResyncCron != "" {
		scheduler := schedule.NewCronScheduler()
		if err := scheduler.AddJob(job.NewResyncJob(d.sync), cfg.Sync.ResyncCron); err != nil {
			return err
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: engine}
	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runSync(d *deps, ticketID int64, clearIndex bool) error {
	ctx := context.Background()
	if ticketID > 0 {
		if err := d.sync.SyncOne(ctx, ticketID); err != nil {
			return fmt.Errorf("sync ticket %d: %w", ticketID, err)
		}
		fmt.Printf("completed: ticket %d synced\n", ticketID)
		return nil
	}
	synced, failed, err := d.sync.ResyncAll(ctx, clearIndex)
	if err != nil {
		return err
	}
	if failed > 0 {
		fmt.Printf("completed with %d failures (%d synced)\n", failed, synced)
		return fmt.Errorf("%d tickets failed to sync", failed)
	}
	fmt.Printf("completed: %d tickets synced\n", synced)
	return nil
}
