package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/tbuckley92/eyelog/internal/blobstore"
	"github.com/tbuckley92/eyelog/internal/common"
	"github.com/tbuckley92/eyelog/internal/extract"
	"github.com/tbuckley92/eyelog/internal/ingest"
	repo "github.com/tbuckley92/eyelog/internal/repository"
)

// eyelog-watch watches drop folders and ingests any logbook PDF that lands in
// them, until interrupted.
func main() {
	var (
		inmem   = flag.Bool("inmem", false, "use in-memory SQLite database")
		profile = flag.String("profile", "Local Batch", "profile (trainee) name")
		scan    = flag.Bool("scan", true, "ingest files already present at startup")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	_ = godotenv.Load()
	cfg := common.LoadConfig()
	if !*inmem {
		if err := cfg.Validate(); err != nil {
			logger.Error("invalid configuration", "error", err)
			os.Exit(1)
		}
	}
	if len(cfg.Watch.Roots) == 0 {
		logger.Error("WATCH_ROOTS is required (colon-separated directories)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, cleanup, err := repo.InitDatabase(ctx, cfg.Database, *inmem, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	profilesRepo := repo.NewProfileRepository(db, logger)
	filesRepo := repo.NewLogbookFileRepository(db, logger)
	recordsRepo := repo.NewRecordRepository(db, logger)

	p, err := profilesRepo.GetOrCreateByName(ctx, *profile)
	if err != nil {
		logger.Error("failed to get or create profile", "error", err)
		os.Exit(1)
	}

	blobs := blobstore.NewFSStore(cfg.Blob.RootDir, logger)
	extractor := extract.NewPDFExtractor(logger)
	ingestor := ingest.NewService(profilesRepo, filesRepo, recordsRepo, blobs, extractor, logger)

	logger.Info("watching for logbook exports",
		"roots", cfg.Watch.Roots, "profile", p.Name, "debounce", cfg.Watch.Debounce)

	err = ingestor.RunWatch(ctx, p.ID, ingest.WatchConfig{
		Roots:       cfg.Watch.Roots,
		InitialScan: *scan,
		Debounce:    cfg.Watch.Debounce,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("watcher stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("watcher stopped")
}
