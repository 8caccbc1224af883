package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"boardtex/internal/config"
	"boardtex/internal/db"
	"boardtex/internal/enhance"
	"boardtex/internal/filestore"
	"boardtex/internal/handler"
	"boardtex/internal/job"
	"boardtex/internal/middleware"
	"boardtex/internal/repo"
	"boardtex/internal/schedule"
	"boardtex/internal/service"
	"boardtex/internal/store"
	"boardtex/internal/symbolic"
	"boardtex/internal/vision"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "boardtex",
		Short: "boardtex server: photographed math to compiled LaTeX",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run boardtex server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_path", cfg.DBPath),
		zap.String("note_dir", cfg.NoteDir),
		zap.String("vision_provider", cfg.Vision.Provider),
	)

	documentRepo := repo.NewDocumentRepo(conn)
	notes, err := store.NewNoteStore(cfg.NoteDir, documentRepo)
	if err != nil {
		return fmt.Errorf("init note store: %w", err)
	}

	visionProvider, err := vision.NewProvider(cfg.Vision.Provider, cfg.Vision.Data)
	if err != nil {
		return fmt.Errorf("init vision provider: %w", err)
	}
	visionTimeout := time.Duration(cfg.Vision.TimeoutSeconds) * time.Second
	extractor := vision.NewExtractor(visionProvider, cfg.Vision.Model, visionTimeout)
	generator := vision.NewGenerator(visionProvider, cfg.Chat.FallbackModel, time.Duration(cfg.Chat.FallbackTimeoutSeconds)*time.Second)

	var archive filestore.Store
	if cfg.Archive.Type != "" {
		archive, err = filestore.New(cfg.Archive.Type, cfg.Archive.Data)
		if err != nil {
			return fmt.Errorf("init archive store: %w", err)
		}
		notes.AttachArchive(archive)
	}

	compiler := service.NewCompiler(time.Duration(cfg.Compile.TimeoutSeconds) * time.Second)
	convertService := service.NewConvertService(enhance.New(), extractor, compiler, notes, archive, cfg.Pipeline.MaxWorkers)
	chatService := service.NewChatService(
		symbolic.NewEngine(),
		generator,
		time.Duration(cfg.Chat.SymbolicTimeoutSeconds)*time.Second,
		cfg.Chat.CacheSize,
		time.Duration(cfg.Chat.CacheTTLMinutes)*time.Minute,
	)

	deps := handler.RouterDeps{
		Convert:        handler.NewConvertHandler(convertService, cfg.Pipeline.MaxUploadMB),
		Notes:          handler.NewNoteHandler(notes),
		Chat:           handler.NewChatHandler(chatService),
		VisionModel:    cfg.Vision.Model,
		ChatRateWindow: time.Duration(cfg.Chat.RateLimitSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if cfg.Jobs.BuildSweepSpec != "" {
		if err := scheduler.AddJob(job.NewBuildSweepJob(0), cfg.Jobs.BuildSweepSpec); err != nil {
			return err
		}
	}
	if cfg.Jobs.ReconcileSpec != "" {
		if err := scheduler.AddJob(job.NewReconcileJob(notes, documentRepo), cfg.Jobs.ReconcileSpec); err != nil {
			return err
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
