package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"EmergencyMap-App/internal/config"
	"EmergencyMap-App/internal/domain/model"
	"EmergencyMap-App/internal/domain/service"
	"EmergencyMap-App/internal/handler"
	"EmergencyMap-App/internal/importer"
	"EmergencyMap-App/internal/infrastructure/database"
	"EmergencyMap-App/internal/infrastructure/firestore"
	"EmergencyMap-App/internal/infrastructure/geolocation"
	"EmergencyMap-App/internal/infrastructure/logger"
	"EmergencyMap-App/internal/infrastructure/maps"
	"EmergencyMap-App/internal/infrastructure/observability"
	"EmergencyMap-App/internal/repository"
	"EmergencyMap-App/internal/usecase"
)

var (
	cfg *config.Config
	log *zap.Logger

	presetsFile   string
	syncLocations bool
	syncRoutes    bool
	locationType  string
)

var rootCmd = &cobra.Command{
	Use:   "emergency-map",
	Short: "Offline map tile cache and emergency navigation service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		log, err = logger.New(cfg.AppEnv, cfg.LogLevel)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API with periodic cleanup and connectivity probing",
	RunE:  runServe,
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download every region listed in a YAML presets file",
	RunE:  runDownload,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove tiles and regions older than the retention period",
	RunE:  runCleanup,
}

var importLocationsCmd = &cobra.Command{
	Use:   "import-locations [file.csv]",
	Short: "Import emergency locations from a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImportLocations,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull emergency locations from Supabase and routes from Firestore",
	RunE:  runSync,
}

func init() {
	downloadCmd.Flags().StringVar(&presetsFile, "presets", "regions.yaml", "YAML file with region presets")

	syncCmd.Flags().BoolVar(&syncLocations, "locations", true, "Sync emergency locations from Supabase")
	syncCmd.Flags().BoolVar(&syncRoutes, "routes", true, "Sync precomputed routes from Firestore")
	syncCmd.Flags().StringVar(&locationType, "type", "", "Only sync locations of this type")

	rootCmd.AddCommand(serveCmd, downloadCmd, cleanupCmd, importLocationsCmd, syncCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app はコマンド間で共有する組み立て済みの依存
type app struct {
	useCase   usecase.OfflineMapUseCase
	positions *geolocation.PushSource
	bus       *service.EventBus
	closeDB   func() error
}

func (a *app) Close() {
	a.useCase.Close()
	if err := a.closeDB(); err != nil {
		log.Warn("⚠️ Failed to close database", zap.Error(err))
	}
}

// openStorage は設定されたドライバでデータベースを開く
func openStorage() (*sql.DB, func() error, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		client, err := database.NewPostgreSQLClientWithRetry(cfg.DatabaseURL, 5, 2*time.Second)
		if err != nil {
			return nil, nil, err
		}
		log.Info("🐘 Using PostgreSQL storage")
		return client.DB, client.Close, nil
	default:
		client, err := database.NewSQLiteClient(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("💾 Using SQLite storage", zap.String("path", cfg.SQLitePath))
		return client.DB, client.Close, nil
	}
}

func newApp(ctx context.Context) (*app, error) {
	db, closeDB, err := openStorage()
	if err != nil {
		return nil, err
	}

	fetcher, err := maps.NewHTTPTileProvider(cfg.TileProvider, cfg.TileBaseURL)
	if err != nil {
		closeDB()
		return nil, err
	}

	bus := service.NewEventBus()
	positions := geolocation.NewPushSource(log)
	uc := usecase.NewOfflineMapUseCase(usecase.Dependencies{
		Tiles:     repository.NewSQLTilesRepository(db),
		Regions:   repository.NewSQLRegionsRepository(db),
		Locations: repository.NewSQLLocationsRepository(db),
		Routes:    repository.NewSQLRoutesRepository(db),
		Fetcher:   fetcher,
		Positions: positions,
		Bus:       bus,
		Logger:    log,
		Downloader: service.DownloaderConfig{
			BatchSize:  cfg.TileBatchSize,
			BatchDelay: cfg.TileBatchDelay,
		},
		Retention: cfg.CacheRetention,
		ProbeURL:  cfg.ConnectivityProbeURL,
	})

	if err := uc.Init(ctx); err != nil {
		uc.Close()
		closeDB()
		return nil, err
	}

	return &app{useCase: uc, positions: positions, bus: bus, closeDB: closeDB}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	metrics, err := observability.NewCacheCollector(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	if err := observability.RegisterCacheSize(prometheus.DefaultRegisterer, a.useCase.CacheSize); err != nil {
		return err
	}
	detach := metrics.Observe(a.bus)
	defer detach()

	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.NewRouter(a.useCase, a.positions, metrics, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	maintenanceDone := make(chan struct{})
	go func() {
		defer close(maintenanceDone)
		a.useCase.RunMaintenance(ctx, cfg.CleanupInterval, cfg.ConnectivityProbeInterval)
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("🚀 EmergencyMap-App server starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			stop()
			<-maintenanceDone
			return fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}

	log.Info("🛑 Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("⚠️ Graceful shutdown failed", zap.Error(err))
	}
	<-maintenanceDone
	return nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	presets, err := config.LoadRegionPresets(presetsFile)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	unsubscribe := a.bus.Subscribe(model.EventDownloadProgress, func(e model.Event) {
		p := e.(model.DownloadProgress)
		log.Info("⏳ Progress", zap.String("region_id", p.RegionID), zap.Int("progress", p.Progress),
			zap.Int("downloaded", p.Downloaded), zap.Int("failed", p.Failed), zap.Int("total", p.Total))
	})
	defer unsubscribe()

	for i := range presets {
		region, err := a.useCase.DownloadRegion(ctx, &presets[i])
		if err != nil {
			return err
		}
		fmt.Printf("✅ %s: %d tiles (%d failed)\n", region.Name, region.TileCount, region.FailedTiles)
	}
	return nil
}

func runCleanup(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.useCase.Cleanup(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("🧹 removed %d tiles (%d bytes) and %d regions\n", result.TilesRemoved, result.BytesFreed, result.RegionsRemoved)
	return nil
}

func runImportLocations(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("CSVファイルを開けません: %w", err)
	}
	defer file.Close()

	locations, err := importer.ParseLocationsCSV(file, time.Now())
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.useCase.CacheLocations(cmd.Context(), locations); err != nil {
		return err
	}
	fmt.Printf("🏥 imported %d emergency locations\n", len(locations))
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if syncLocations {
		client, err := database.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
		if err != nil {
			return err
		}
		n, err := a.useCase.SyncLocations(ctx, repository.NewSupabaseLocationsFeed(client), locationType)
		if err != nil {
			return err
		}
		fmt.Printf("🏥 synced %d emergency locations\n", n)
	}

	if syncRoutes {
		client, err := firestore.NewFirestoreClient(ctx, cfg.FirestoreProjectID, log)
		if err != nil {
			return err
		}
		defer client.Close()

		n, err := a.useCase.SyncRoutes(ctx, repository.NewFirestoreRoutesCatalog(client.GetClient(), log))
		if err != nil {
			return err
		}
		fmt.Printf("🧭 synced %d routes\n", n)
	}
	return nil
}
