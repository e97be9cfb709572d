package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tbuckley92/eyelog/constants"
	"github.com/tbuckley92/eyelog/internal/common"
	"github.com/tbuckley92/eyelog/internal/entity"
)

type LogbookFileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.LogbookFile, error)
	GetByProfileAndHash(ctx context.Context, profileID uuid.UUID, hashHex string) (*entity.LogbookFile, error)
	// UpsertByHash registers an uploaded file, deduplicated on content hash.
	// The bool is true when the identical file was already registered.
	UpsertByHash(ctx context.Context, profileID uuid.UUID, filename, ext string, size int, hashHex string, uploadedAt time.Time) (*entity.LogbookFile, bool, error)
	SetBlobPath(ctx context.Context, id uuid.UUID, blobPath string) error
	SetStatus(ctx context.Context, id uuid.UUID, status constants.IngestStatus) error
}

type logbookFileRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewLogbookFileRepository(db *sql.DB, logger *slog.Logger) LogbookFileRepository {
	return &logbookFileRepo{db: db, logger: logger}
}

const fileColumns = `id, profile_id, filename, file_ext, file_size, content_hash, blob_path, status, uploaded_at`

func (r *logbookFileRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.LogbookFile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM logbook_files WHERE id = $1`, id.String())
	return r.scan(row)
}

func (r *logbookFileRepo) GetByProfileAndHash(ctx context.Context, profileID uuid.UUID, hashHex string) (*entity.LogbookFile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM logbook_files WHERE profile_id = $1 AND content_hash = $2`,
		profileID.String(), hashHex)
	return r.scan(row)
}

func (r *logbookFileRepo) UpsertByHash(ctx context.Context, profileID uuid.UUID, filename, ext string, size int, hashHex string, uploadedAt time.Time) (*entity.LogbookFile, bool, error) {
	f := &entity.LogbookFile{
		ID:          uuid.New(),
		ProfileID:   profileID,
		Filename:    filename,
		FileExt:     ext,
		FileSize:    size,
		Status:      constants.IngestStatusReceived,
		UploadedAt:  uploadedAt,
		ContentHash: []byte(hashHex),
	}
	// The unique index on (profile_id, content_hash) arbitrates duplicates at
	// the store, so a concurrent upload of the same file never errors: the
	// loser of the race simply reads back the winner's row.
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO logbook_files (`+fileColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (profile_id, content_hash) DO NOTHING`,
		f.ID.String(), profileID.String(), filename, ext, size, hashHex,
		nil, string(f.Status), formatTS(uploadedAt))
	if err != nil {
		r.logger.Error("failed to register logbook file", "profile_id", profileID, "filename", filename, "error", err)
		return nil, false, common.WrapError(err, "register logbook file")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return f, false, nil
	}

	existing, err := r.GetByProfileAndHash(ctx, profileID, hashHex)
	if err != nil {
		return nil, false, err
	}
	return existing, true, nil
}

func (r *logbookFileRepo) SetBlobPath(ctx context.Context, id uuid.UUID, blobPath string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE logbook_files SET blob_path = $1 WHERE id = $2`, blobPath, id.String())
	if err != nil {
		r.logger.Error("failed to set blob path", "file_id", id, "error", err)
	}
	return err
}

func (r *logbookFileRepo) SetStatus(ctx context.Context, id uuid.UUID, status constants.IngestStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE logbook_files SET status = $1 WHERE id = $2`, string(status), id.String())
	if err != nil {
		r.logger.Error("failed to set file status", "file_id", id, "status", status, "error", err)
	}
	return err
}

func (r *logbookFileRepo) scan(row *sql.Row) (*entity.LogbookFile, error) {
	var (
		id, profileID, filename, ext, hashHex, status, uploadedAt string
		size                                                      int
		blobPath                                                  sql.NullString
	)
	err := row.Scan(&id, &profileID, &filename, &ext, &size, &hashHex, &blobPath, &status, &uploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		r.logger.Error("failed to scan logbook file", "error", err)
		return nil, err
	}
	fid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	pid, err := uuid.Parse(profileID)
	if err != nil {
		return nil, err
	}
	return &entity.LogbookFile{
		ID:          fid,
		ProfileID:   pid,
		Filename:    filename,
		FileExt:     ext,
		FileSize:    size,
		ContentHash: []byte(hashHex),
		BlobPath:    strPtr(blobPath),
		Status:      constants.IngestStatus(status),
		UploadedAt:  parseTS(uploadedAt),
	}, nil
}
