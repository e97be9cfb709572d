package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tbuckley92/eyelog/internal/blobstore"
	"github.com/tbuckley92/eyelog/internal/common"
	"github.com/tbuckley92/eyelog/internal/export"
	"github.com/tbuckley92/eyelog/internal/extract"
	"github.com/tbuckley92/eyelog/internal/ingest"
	repo "github.com/tbuckley92/eyelog/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem   = flag.Bool("inmem", false, "use in-memory SQLite database")
		file    = flag.String("file", "", "single logbook PDF to ingest")
		dir     = flag.String("dir", "", "directory of logbook PDFs to ingest")
		profile = flag.String("profile", "Local Batch", "profile (trainee) name")
		out     = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		fromStr = flag.String("from", "", "from date YYYY-MM-DD")
		toStr   = flag.String("to", "", "to date YYYY-MM-DD")
	)
	flag.Parse()

	if *file == "" && *dir == "" {
		printError("Error: --file or --dir is required\n")
		os.Exit(1)
	}

	if *out == "" {
		base := *dir
		if base == "" {
			base = filepath.Dir(*file)
		}
		*out = filepath.Join(filepath.Dir(base), "eyelog.xlsx")
	}

	var from, to *time.Time
	if *fromStr != "" {
		if parsed, err := time.Parse("2006-01-02", *fromStr); err != nil {
			printError("Error: invalid --from date format, use YYYY-MM-DD: %v\n", err)
			os.Exit(1)
		} else {
			from = &parsed
		}
	}
	if *toStr != "" {
		if parsed, err := time.Parse("2006-01-02", *toStr); err != nil {
			printError("Error: invalid --to date format, use YYYY-MM-DD: %v\n", err)
			os.Exit(1)
		} else {
			to = &parsed
		}
	}

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

	ctx := context.Background()

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
	logger.Info("using profile", "id", p.ID, "name", p.Name)

	blobs := blobstore.NewFSStore(cfg.Blob.RootDir, logger)
	extractor := extract.NewPDFExtractor(logger)
	ingestor := ingest.NewService(profilesRepo, filesRepo, recordsRepo, blobs, extractor, logger)

	paths := collectPaths(*file, *dir, logger)
	ingested, failures := 0, 0
	accepted, skipped := 0, 0
	for _, path := range paths {
		summary, err := ingestor.IngestPath(ctx, p.ID, path)
		if err != nil {
			logger.Error("failed to ingest file", "path", path, "error", err)
			failures++
			continue
		}
		if summary.DuplicateFile {
			logger.Info("file already ingested", "path", path)
			continue
		}
		ingested++
		accepted += summary.Accepted
		skipped += summary.SkippedDuplicates
	}

	logger.Info("exporting to XLSX", "output", *out)
	exportService := export.NewService(recordsRepo, logger)
	xlsxBytes, err := exportService.ExportXLSX(ctx, p.ID, from, to)
	if err != nil {
		logger.Error("failed to export workbook", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch complete",
		"files_ingested", ingested,
		"failures", failures,
		"records_accepted", accepted,
		"duplicates_skipped", skipped,
		"output_file", *out)

	fmt.Printf("Batch complete!\n")
	fmt.Printf("- Files ingested: %d\n", ingested)
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Records accepted: %d\n", accepted)
	fmt.Printf("- Duplicates skipped: %d\n", skipped)
	fmt.Printf("- Output: %s\n", *out)
}

func collectPaths(file, dir string, logger *slog.Logger) []string {
	var paths []string
	if file != "" {
		paths = append(paths, file)
	}
	if dir != "" {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			logger.Error("failed to walk directory", "dir", dir, "error", err)
		}
	}
	return paths
}
