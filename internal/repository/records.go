package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tbuckley92/eyelog/constants"
	"github.com/tbuckley92/eyelog/internal/common"
	"github.com/tbuckley92/eyelog/internal/entity"
)

type RecordRepository interface {
	// ListRecords returns the owner's records in ingestion order, optionally
	// windowed by [from, to] inclusive.
	ListRecords(ctx context.Context, profileID uuid.UUID, from, to *time.Time) ([]*entity.ProcedureRecord, error)
	GetByID(ctx context.Context, profileID, recordID uuid.UUID) (*entity.ProcedureRecord, error)
	// InsertIgnoreDuplicates persists the batch, skipping records whose dedup
	// key already exists for this owner. Returns how many were accepted; the
	// unique index enforces the key, so duplicates are a no-op, never an
	// overwrite.
	InsertIgnoreDuplicates(ctx context.Context, profileID uuid.UUID, records []*entity.ProcedureRecord) (int, error)
	// UpdateRecord patches mutable fields of one record. Dedup-key fields are
	// frozen after creation.
	UpdateRecord(ctx context.Context, profileID, recordID uuid.UUID, patch *entity.RecordPatch) (*entity.ProcedureRecord, error)
}

type recordRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRecordRepository(db *sql.DB, logger *slog.Logger) RecordRepository {
	return &recordRepo{db: db, logger: logger}
}

const recordColumns = `id, profile_id, procedure_name, laterality, proc_date, patient_identifier,
	role_code, hospital, training_grade, comment, complications, complication_cause,
	complication_action, linked_to_complication_log, created_at, updated_at`

func (r *recordRepo) ListRecords(ctx context.Context, profileID uuid.UUID, from, to *time.Time) ([]*entity.ProcedureRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM procedure_records WHERE profile_id = $1`
	args := []any{profileID.String()}
	if from != nil {
		args = append(args, formatDate(*from))
		query += fmt.Sprintf(" AND proc_date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, formatDate(*to))
		query += fmt.Sprintf(" AND proc_date <= $%d", len(args))
	}
	query += " ORDER BY ingest_seq"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list records", "profile_id", profileID, "error", err)
		return nil, common.WrapError(err, "list records")
	}
	defer rows.Close()

	var out []*entity.ProcedureRecord
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *recordRepo) GetByID(ctx context.Context, profileID, recordID uuid.UUID) (*entity.ProcedureRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM procedure_records WHERE profile_id = $1 AND id = $2`,
		profileID.String(), recordID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, common.ErrNotFound
	}
	return r.scan(rows)
}

func (r *recordRepo) InsertIgnoreDuplicates(ctx context.Context, profileID uuid.UUID, records []*entity.ProcedureRecord) (int, error) {
	var seq int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(ingest_seq), 0) FROM procedure_records WHERE profile_id = $1`,
		profileID.String()).Scan(&seq)
	if err != nil {
		r.logger.Error("failed to read ingest sequence", "profile_id", profileID, "error", err)
		return 0, common.WrapError(err, "ingest sequence")
	}

	accepted := 0
	now := time.Now().UTC()
	for _, rec := range records {
		seq++
		id := rec.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO procedure_records (`+recordColumns+`, ingest_seq)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			 ON CONFLICT (profile_id, patient_identifier, laterality, procedure_name, proc_date)
			 DO NOTHING`,
			id.String(), profileID.String(), rec.Procedure, string(rec.Laterality),
			formatDate(rec.Date), rec.PatientIdentifier, string(rec.Role), rec.Hospital,
			string(rec.TrainingGrade), nullStr(rec.Comment), joinComplications(rec.Complications),
			nullStr(rec.ComplicationCause), nullStr(rec.ComplicationAction),
			rec.LinkedToComplicationLog, formatTS(now), formatTS(now), seq)
		if err != nil {
			// Partial success stands: records already written remain written.
			r.logger.Error("failed to insert record", "profile_id", profileID, "error", err)
			return accepted, common.WrapError(err, "insert record")
		}
		if n, _ := res.RowsAffected(); n > 0 {
			rec.ID = id
			accepted++
		}
	}
	return accepted, nil
}

func (r *recordRepo) UpdateRecord(ctx context.Context, profileID, recordID uuid.UUID, patch *entity.RecordPatch) (*entity.ProcedureRecord, error) {
	var (
		set  []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Hospital != nil {
		add("hospital", *patch.Hospital)
	}
	if patch.TrainingGrade != nil {
		add("training_grade", string(*patch.TrainingGrade))
	}
	if patch.Comment != nil {
		add("comment", *patch.Comment)
	}
	if patch.Complications != nil {
		add("complications", joinComplications(patch.Complications))
	}
	if patch.ComplicationCause != nil {
		add("complication_cause", *patch.ComplicationCause)
	}
	if patch.ComplicationAction != nil {
		add("complication_action", *patch.ComplicationAction)
	}
	if patch.LinkedToComplicationLog != nil {
		add("linked_to_complication_log", *patch.LinkedToComplicationLog)
	}
	if len(set) == 0 {
		return r.GetByID(ctx, profileID, recordID)
	}
	add("updated_at", formatTS(time.Now().UTC()))

	args = append(args, profileID.String())
	profileArg := len(args)
	args = append(args, recordID.String())
	idArg := len(args)

	query := fmt.Sprintf(`UPDATE procedure_records SET %s WHERE profile_id = $%d AND id = $%d`,
		strings.Join(set, ", "), profileArg, idArg)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to update record", "record_id", recordID, "error", err)
		return nil, common.WrapError(err, "update record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, common.ErrNotFound
	}
	return r.GetByID(ctx, profileID, recordID)
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (r *recordRepo) scan(row scanner) (*entity.ProcedureRecord, error) {
	var (
		id, profileID, procedure, laterality, procDate   string
		patientID, roleCode, hospital, grade             string
		comment, complicationCause, complicationAction   sql.NullString
		complications, createdAt, updatedAt              string
		linked                                           bool
	)
	err := row.Scan(&id, &profileID, &procedure, &laterality, &procDate, &patientID,
		&roleCode, &hospital, &grade, &comment, &complications, &complicationCause,
		&complicationAction, &linked, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		r.logger.Error("failed to scan record", "error", err)
		return nil, err
	}
	rid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	pid, err := uuid.Parse(profileID)
	if err != nil {
		return nil, err
	}
	return &entity.ProcedureRecord{
		ID:                      rid,
		ProfileID:               pid,
		Procedure:               procedure,
		Laterality:              constants.Laterality(laterality),
		Date:                    parseDate(procDate),
		PatientIdentifier:       patientID,
		Role:                    constants.Role(roleCode),
		Hospital:                hospital,
		TrainingGrade:           constants.Grade(grade),
		Comment:                 strPtr(comment),
		Complications:           splitComplications(complications),
		ComplicationCause:       strPtr(complicationCause),
		ComplicationAction:      strPtr(complicationAction),
		LinkedToComplicationLog: linked,
		CreatedAt:               parseTS(createdAt),
		UpdatedAt:               parseTS(updatedAt),
	}, nil
}
