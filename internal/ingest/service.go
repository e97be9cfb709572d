// Package ingest orchestrates the logbook pipeline: uploaded PDF bytes are
// hashed, extracted, clustered into rows, classified into procedure records
// and persisted with duplicate suppression.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tbuckley92/eyelog/constants"
	"github.com/tbuckley92/eyelog/internal/blobstore"
	"github.com/tbuckley92/eyelog/internal/common"
	"github.com/tbuckley92/eyelog/internal/entity"
	"github.com/tbuckley92/eyelog/internal/extract"
	"github.com/tbuckley92/eyelog/internal/parser"
	"github.com/tbuckley92/eyelog/internal/repository"
)

// Summary reports what one ingestion attempt did. Parsed minus Accepted is
// the number of rows suppressed as duplicates of already-stored records.
type Summary struct {
	FileID            uuid.UUID `json:"file_id"`
	DuplicateFile     bool      `json:"duplicate_file"`
	Pages             int       `json:"pages"`
	RowsExtracted     int       `json:"rows_extracted"`
	Parsed            int       `json:"parsed"`
	Accepted          int       `json:"accepted"`
	SkippedDuplicates int       `json:"skipped_duplicates"`
}

type Service struct {
	profiles  repository.ProfileRepository
	files     repository.LogbookFileRepository
	records   repository.RecordRepository
	blobs     blobstore.BlobStore
	extractor extract.TextExtractor
	logger    *slog.Logger

	// Per-owner ingestion is serialized so that duplicate suppression and the
	// ingestion sequence never race between concurrent uploads for the same
	// trainee. Different owners proceed in parallel.
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewService(
	profiles repository.ProfileRepository,
	files repository.LogbookFileRepository,
	records repository.RecordRepository,
	blobs blobstore.BlobStore,
	extractor extract.TextExtractor,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		profiles:  profiles,
		files:     files,
		records:   records,
		blobs:     blobs,
		extractor: extractor,
		logger:    logger,
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *Service) ownerLock(profileID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[profileID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[profileID] = l
	}
	return l
}

// IngestFile runs the full pipeline for one uploaded document. A file whose
// content hash was already ingested for this owner is skipped outright;
// otherwise extraction proceeds and row-level duplicates are suppressed
// individually.
func (s *Service) IngestFile(ctx context.Context, profileID uuid.UUID, filename string, content []byte) (*Summary, error) {
	ext := constants.NormalizeExt(filepath.Ext(filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return nil, common.NewAppError("INVALID_INPUT",
			fmt.Sprintf("unsupported file extension %q", ext), common.ErrInvalidInput)
	}
	if ok, err := s.profiles.Exists(ctx, profileID); err != nil {
		return nil, err
	} else if !ok {
		return nil, common.NewAppError("NOT_FOUND", "profile not found", common.ErrNotFound)
	}

	lock := s.ownerLock(profileID)
	lock.Lock()
	defer lock.Unlock()

	sum := sha256.Sum256(content)
	hashHex := hex.EncodeToString(sum[:])

	file, dup, err := s.files.UpsertByHash(ctx, profileID, filepath.Base(filename), ext,
		len(content), hashHex, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if dup {
		s.logger.Info("file already ingested, skipping",
			"profile_id", profileID, "filename", filename, "hash", hashHex)
		return &Summary{FileID: file.ID, DuplicateFile: true}, nil
	}

	// Blob retention is best-effort: losing the original copy must never cost
	// the trainee their records.
	if s.blobs != nil {
		if path, err := s.blobs.Store(ctx, profileID, filename, bytes.NewReader(content)); err != nil {
			s.logger.Warn("blob store failed, continuing without retained copy",
				"file_id", file.ID, "error", err)
		} else if err := s.files.SetBlobPath(ctx, file.ID, path); err != nil {
			s.logger.Warn("failed to record blob path", "file_id", file.ID, "error", err)
		}
	}

	summary, err := s.ingestContent(ctx, profileID, file.ID, content)
	if err != nil {
		if serr := s.files.SetStatus(ctx, file.ID, constants.IngestStatusFailed); serr != nil {
			s.logger.Error("failed to mark file failed", "file_id", file.ID, "error", serr)
		}
		return nil, err
	}
	if err := s.files.SetStatus(ctx, file.ID, constants.IngestStatusParsed); err != nil {
		s.logger.Error("failed to mark file parsed", "file_id", file.ID, "error", err)
	}

	s.logger.Info("logbook ingested",
		"profile_id", profileID,
		"file_id", file.ID,
		"pages", summary.Pages,
		"rows_extracted", summary.RowsExtracted,
		"parsed", summary.Parsed,
		"accepted", summary.Accepted,
		"skipped_duplicates", summary.SkippedDuplicates)
	return summary, nil
}

func (s *Service) ingestContent(ctx context.Context, profileID, fileID uuid.UUID, content []byte) (*Summary, error) {
	pages, err := s.extractor.Extract(ctx, bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	summary := &Summary{FileID: fileID, Pages: len(pages)}
	var parsed []*entity.ProcedureRecord
	for _, page := range pages {
		rows := extract.ClusterRows(page.Fragments)
		summary.RowsExtracted += len(rows)
		for _, rec := range parser.ClassifyRows(rows) {
			rec.ProfileID = profileID
			parsed = append(parsed, rec)
		}
	}
	summary.Parsed = len(parsed)

	accepted, err := s.records.InsertIgnoreDuplicates(ctx, profileID, parsed)
	summary.Accepted = accepted
	summary.SkippedDuplicates = summary.Parsed - accepted
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// IngestPath reads a file from disk and ingests it. Used by the batch CLI
// and the drop-folder watcher.
func (s *Service) IngestPath(ctx context.Context, profileID uuid.UUID, path string) (*Summary, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, common.WrapError(err, "read logbook file")
	}
	return s.IngestFile(ctx, profileID, filepath.Base(path), content)
}
