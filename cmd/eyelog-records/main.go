package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/tbuckley92/eyelog/internal/common"
	"github.com/tbuckley92/eyelog/internal/records"
	repo "github.com/tbuckley92/eyelog/internal/repository"
)

// eyelog-records lists and edits stored procedure records and the
// complication log from the command line.
func main() {
	var (
		inmem     = flag.Bool("inmem", false, "use in-memory SQLite database")
		profile   = flag.String("profile", "Local Batch", "profile (trainee) name")
		list      = flag.Bool("list", false, "list the profile's records")
		listCases = flag.Bool("cases", false, "list the profile's complication log")
		recordID  = flag.String("record", "", "record ID to operate on")
		patchJSON = flag.String("patch", "", "JSON patch to apply to --record")
		caseJSON  = flag.String("newcase", "", "JSON payload for a standalone complication case")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	_ = godotenv.Load()
	cfg := common.LoadConfig()

	ctx := context.Background()
	db, cleanup, err := repo.InitDatabase(ctx, cfg.Database, *inmem, logger)
	if err != nil {
		fatalf("initializing database: %v", err)
	}
	defer cleanup()

	profilesRepo := repo.NewProfileRepository(db, logger)
	recordsRepo := repo.NewRecordRepository(db, logger)
	casesRepo := repo.NewComplicationCaseRepository(db, logger)
	svc := records.NewService(recordsRepo, casesRepo, logger)

	p, err := profilesRepo.GetOrCreateByName(ctx, *profile)
	if err != nil {
		fatalf("resolving profile: %v", err)
	}

	switch {
	case *patchJSON != "":
		if *recordID == "" {
			fatalf("--patch requires --record")
		}
		id, err := uuid.Parse(*recordID)
		if err != nil {
			fatalf("invalid --record: %v", err)
		}
		patch, err := records.DecodePatch([]byte(*patchJSON))
		if err != nil {
			fatalf("invalid patch: %v", err)
		}
		updated, err := svc.UpdateRecord(ctx, p.ID, id, patch)
		if err != nil {
			fatalf("updating record: %v", err)
		}
		printJSON(updated)

	case *caseJSON != "":
		c, err := records.DecodeCase([]byte(*caseJSON))
		if err != nil {
			fatalf("invalid case payload: %v", err)
		}
		c.ProfileID = p.ID
		created, err := svc.CreateCase(ctx, c)
		if err != nil {
			fatalf("creating complication case: %v", err)
		}
		printJSON(created)

	case *list:
		recs, err := svc.ListRecords(ctx, p.ID, nil, nil)
		if err != nil {
			fatalf("listing records: %v", err)
		}
		printJSON(recs)

	case *listCases:
		cases, err := svc.ListCases(ctx, p.ID)
		if err != nil {
			fatalf("listing complication log: %v", err)
		}
		printJSON(cases)

	case *recordID != "":
		id, err := uuid.Parse(*recordID)
		if err != nil {
			fatalf("invalid --record: %v", err)
		}
		rec, err := svc.GetRecord(ctx, p.ID, id)
		if err != nil {
			fatalf("fetching record: %v", err)
		}
		printJSON(rec)

	default:
		flag.Usage()
		os.Exit(1)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatalf("encoding output: %v", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
