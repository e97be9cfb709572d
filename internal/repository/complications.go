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

type ComplicationCaseRepository interface {
	ListCases(ctx context.Context, profileID uuid.UUID) ([]*entity.ComplicationCase, error)
	GetByID(ctx context.Context, profileID, caseID uuid.UUID) (*entity.ComplicationCase, error)
	GetByRecordID(ctx context.Context, profileID, recordID uuid.UUID) (*entity.ComplicationCase, error)
	Create(ctx context.Context, c *entity.ComplicationCase) (*entity.ComplicationCase, error)
	Update(ctx context.Context, c *entity.ComplicationCase) (*entity.ComplicationCase, error)
	Delete(ctx context.Context, profileID, caseID uuid.UUID) error
	DeleteByRecordID(ctx context.Context, profileID, recordID uuid.UUID) error
}

type complicationCaseRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewComplicationCaseRepository(db *sql.DB, logger *slog.Logger) ComplicationCaseRepository {
	return &complicationCaseRepo{db: db, logger: logger}
}

const caseColumns = `id, profile_id, record_id, patient_identifier, case_date, laterality,
	operation_type, complications, other_detail, cause, action_taken, created_at, updated_at`

func (r *complicationCaseRepo) ListCases(ctx context.Context, profileID uuid.UUID) ([]*entity.ComplicationCase, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+caseColumns+` FROM complication_cases WHERE profile_id = $1 ORDER BY case_date, created_at`,
		profileID.String())
	if err != nil {
		r.logger.Error("failed to list complication cases", "profile_id", profileID, "error", err)
		return nil, common.WrapError(err, "list complication cases")
	}
	defer rows.Close()

	var out []*entity.ComplicationCase
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *complicationCaseRepo) GetByID(ctx context.Context, profileID, caseID uuid.UUID) (*entity.ComplicationCase, error) {
	return r.one(ctx,
		`SELECT `+caseColumns+` FROM complication_cases WHERE profile_id = $1 AND id = $2`,
		profileID.String(), caseID.String())
}

func (r *complicationCaseRepo) GetByRecordID(ctx context.Context, profileID, recordID uuid.UUID) (*entity.ComplicationCase, error) {
	return r.one(ctx,
		`SELECT `+caseColumns+` FROM complication_cases WHERE profile_id = $1 AND record_id = $2`,
		profileID.String(), recordID.String())
}

func (r *complicationCaseRepo) one(ctx context.Context, query string, args ...any) (*entity.ComplicationCase, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
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

func (r *complicationCaseRepo) Create(ctx context.Context, c *entity.ComplicationCase) (*entity.ComplicationCase, error) {
	now := time.Now().UTC()
	out := *c
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	out.CreatedAt = now
	out.UpdatedAt = now

	var recordID any
	if out.RecordID != nil {
		recordID = out.RecordID.String()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO complication_cases (`+caseColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		out.ID.String(), out.ProfileID.String(), recordID, out.PatientIdentifier,
		formatDate(out.Date), string(out.Laterality), out.OperationType,
		joinComplications(out.Complications), nullStr(out.OtherDetail),
		nullStr(out.Cause), nullStr(out.ActionTaken), formatTS(now), formatTS(now))
	if err != nil {
		r.logger.Error("failed to create complication case", "profile_id", out.ProfileID, "error", err)
		return nil, common.WrapError(err, "create complication case")
	}
	return &out, nil
}

func (r *complicationCaseRepo) Update(ctx context.Context, c *entity.ComplicationCase) (*entity.ComplicationCase, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE complication_cases
		 SET patient_identifier = $1, case_date = $2, laterality = $3, operation_type = $4,
		     complications = $5, other_detail = $6, cause = $7, action_taken = $8, updated_at = $9
		 WHERE profile_id = $10 AND id = $11`,
		c.PatientIdentifier, formatDate(c.Date), string(c.Laterality), c.OperationType,
		joinComplications(c.Complications), nullStr(c.OtherDetail), nullStr(c.Cause),
		nullStr(c.ActionTaken), formatTS(now), c.ProfileID.String(), c.ID.String())
	if err != nil {
		r.logger.Error("failed to update complication case", "case_id", c.ID, "error", err)
		return nil, common.WrapError(err, "update complication case")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, common.ErrNotFound
	}
	out := *c
	out.UpdatedAt = now
	return &out, nil
}

func (r *complicationCaseRepo) Delete(ctx context.Context, profileID, caseID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM complication_cases WHERE profile_id = $1 AND id = $2`,
		profileID.String(), caseID.String())
	if err != nil {
		r.logger.Error("failed to delete complication case", "case_id", caseID, "error", err)
		return common.WrapError(err, "delete complication case")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *complicationCaseRepo) DeleteByRecordID(ctx context.Context, profileID, recordID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM complication_cases WHERE profile_id = $1 AND record_id = $2`,
		profileID.String(), recordID.String())
	if err != nil {
		r.logger.Error("failed to delete linked complication case", "record_id", recordID, "error", err)
		return common.WrapError(err, "delete linked complication case")
	}
	return nil
}

func (r *complicationCaseRepo) scan(rows *sql.Rows) (*entity.ComplicationCase, error) {
	var (
		id, profileID, patientID, caseDate, laterality string
		operationType, complications                   string
		recordID, otherDetail, cause, action           sql.NullString
		createdAt, updatedAt                           string
	)
	err := rows.Scan(&id, &profileID, &recordID, &patientID, &caseDate, &laterality,
		&operationType, &complications, &otherDetail, &cause, &action, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		r.logger.Error("failed to scan complication case", "error", err)
		return nil, err
	}
	cid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	pid, err := uuid.Parse(profileID)
	if err != nil {
		return nil, err
	}
	out := &entity.ComplicationCase{
		ID:                cid,
		ProfileID:         pid,
		PatientIdentifier: patientID,
		Date:              parseDate(caseDate),
		Laterality:        constants.Laterality(laterality),
		OperationType:     operationType,
		Complications:     splitComplications(complications),
		OtherDetail:       strPtr(otherDetail),
		Cause:             strPtr(cause),
		ActionTaken:       strPtr(action),
		CreatedAt:         parseTS(createdAt),
		UpdatedAt:         parseTS(updatedAt),
	}
	if recordID.Valid {
		rid, err := uuid.Parse(recordID.String)
		if err != nil {
			return nil, err
		}
		out.RecordID = &rid
	}
	return out, nil
}
