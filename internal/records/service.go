// Package records provides manual curation of ingested procedure records and
// the complication log: targeted edits, complication-case CRUD and the 1:1
// link between a record and its complication-log entry.
package records

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tbuckley92/eyelog/constants"
	"github.com/tbuckley92/eyelog/internal/common"
	"github.com/tbuckley92/eyelog/internal/entity"
	"github.com/tbuckley92/eyelog/internal/repository"
)

// maxComplications caps how many complication types one case may carry.
const maxComplications = 3

type Service struct {
	records repository.RecordRepository
	cases   repository.ComplicationCaseRepository
	logger  *slog.Logger
}

func NewService(records repository.RecordRepository, cases repository.ComplicationCaseRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, cases: cases, logger: logger}
}

func (s *Service) ListRecords(ctx context.Context, profileID uuid.UUID, from, to *time.Time) ([]*entity.ProcedureRecord, error) {
	return s.records.ListRecords(ctx, profileID, from, to)
}

func (s *Service) GetRecord(ctx context.Context, profileID, recordID uuid.UUID) (*entity.ProcedureRecord, error) {
	return s.records.GetByID(ctx, profileID, recordID)
}

// UpdateRecord applies a patch to the mutable fields of one record. The
// identity fields (procedure, date, laterality, patient identifier) cannot
// change after ingestion; they are the duplicate-suppression key.
//
// Toggling the complication-log link on creates the linked case from the
// record's own complication fields; toggling it off removes it.
func (s *Service) UpdateRecord(ctx context.Context, profileID, recordID uuid.UUID, patch *entity.RecordPatch) (*entity.ProcedureRecord, error) {
	if patch == nil {
		return nil, common.NewAppError("INVALID_INPUT", "empty patch", common.ErrInvalidInput)
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	// The link precondition is checked against the record as it will look
	// after the patch, BEFORE anything is persisted: a rejected edit must
	// leave the store untouched.
	if patch.LinkedToComplicationLog != nil && *patch.LinkedToComplicationLog {
		current, err := s.records.GetByID(ctx, profileID, recordID)
		if err != nil {
			return nil, err
		}
		preview := *current
		if patch.Complications != nil {
			preview.Complications = patch.Complications
		}
		if patch.ComplicationCause != nil {
			preview.ComplicationCause = patch.ComplicationCause
		}
		if patch.ComplicationAction != nil {
			preview.ComplicationAction = patch.ComplicationAction
		}
		if err := validateLink(&preview); err != nil {
			return nil, err
		}
	}

	updated, err := s.records.UpdateRecord(ctx, profileID, recordID, patch)
	if err != nil {
		return nil, err
	}

	if patch.LinkedToComplicationLog != nil {
		if *patch.LinkedToComplicationLog {
			if err := s.linkCase(ctx, updated); err != nil {
				return nil, err
			}
		} else {
			if err := s.cases.DeleteByRecordID(ctx, profileID, recordID); err != nil {
				return nil, err
			}
		}
	}
	return updated, nil
}

// validateLink checks that a record can carry a complication-log entry:
// at least one complication selected and a case that passes validation.
func validateLink(rec *entity.ProcedureRecord) error {
	if len(rec.Complications) == 0 {
		return common.NewAppError("VALIDATION_ERROR",
			"record has no complications to log; select at least one before linking",
			common.ErrValidation)
	}
	return validateCase(caseFromRecord(rec))
}

// caseFromRecord seeds a complication-log entry from a record's own fields.
func caseFromRecord(rec *entity.ProcedureRecord) *entity.ComplicationCase {
	recordID := rec.ID
	return &entity.ComplicationCase{
		ProfileID:         rec.ProfileID,
		RecordID:          &recordID,
		PatientIdentifier: rec.PatientIdentifier,
		Date:              rec.Date,
		Laterality:        rec.Laterality,
		OperationType:     rec.Procedure,
		Complications:     rec.Complications,
		Cause:             rec.ComplicationCause,
		ActionTaken:       rec.ComplicationAction,
	}
}

// linkCase creates the complication-log entry for a record, unless one
// already exists.
func (s *Service) linkCase(ctx context.Context, rec *entity.ProcedureRecord) error {
	if err := validateLink(rec); err != nil {
		return err
	}

	_, err := s.cases.GetByRecordID(ctx, rec.ProfileID, rec.ID)
	if err == nil {
		return nil // already linked
	}
	if !errors.Is(err, common.ErrNotFound) {
		return err
	}

	if _, err := s.cases.Create(ctx, caseFromRecord(rec)); err != nil {
		return err
	}
	s.logger.Info("complication case linked", "profile_id", rec.ProfileID, "record_id", rec.ID)
	return nil
}

func (s *Service) ListCases(ctx context.Context, profileID uuid.UUID) ([]*entity.ComplicationCase, error) {
	return s.cases.ListCases(ctx, profileID)
}

func (s *Service) GetCase(ctx context.Context, profileID, caseID uuid.UUID) (*entity.ComplicationCase, error) {
	return s.cases.GetByID(ctx, profileID, caseID)
}

// CreateCase records a standalone complication-log entry, entered by hand
// rather than linked from an ingested record.
func (s *Service) CreateCase(ctx context.Context, c *entity.ComplicationCase) (*entity.ComplicationCase, error) {
	if err := validateCase(c); err != nil {
		return nil, err
	}
	return s.cases.Create(ctx, c)
}

func (s *Service) UpdateCase(ctx context.Context, c *entity.ComplicationCase) (*entity.ComplicationCase, error) {
	if err := validateCase(c); err != nil {
		return nil, err
	}
	return s.cases.Update(ctx, c)
}

// DeleteCase removes a complication-log entry. If it was linked to a record,
// the record's link flag is cleared so the two views stay consistent.
func (s *Service) DeleteCase(ctx context.Context, profileID, caseID uuid.UUID) error {
	c, err := s.cases.GetByID(ctx, profileID, caseID)
	if err != nil {
		return err
	}
	if err := s.cases.Delete(ctx, profileID, caseID); err != nil {
		return err
	}
	if c.RecordID != nil {
		linked := false
		if _, err := s.records.UpdateRecord(ctx, profileID, *c.RecordID,
			&entity.RecordPatch{LinkedToComplicationLog: &linked}); err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
	}
	return nil
}

func validatePatch(p *entity.RecordPatch) error {
	v := common.NewValidator()
	if p.Hospital != nil {
		v.Field("hospital", *p.Hospital, common.Required)
	}
	if p.TrainingGrade != nil && *p.TrainingGrade != constants.GradeUnknown {
		if _, ok := constants.GradeFromToken(string(*p.TrainingGrade)); !ok {
			v.Field("training_grade", string(*p.TrainingGrade), unknownValue("training grade"))
		}
	}
	if len(p.Complications) > maxComplications {
		v.Field("complications", len(p.Complications), tooMany("complications", maxComplications))
	}
	for _, c := range p.Complications {
		if _, ok := constants.ComplicationFromLabel(string(c)); !ok {
			v.Field("complications", string(c), unknownValue("complication type"))
		}
	}
	return v.Error()
}

func validateCase(c *entity.ComplicationCase) error {
	v := common.NewValidator()
	v.Field("patient_identifier", c.PatientIdentifier, common.Required)
	v.Field("operation_type", c.OperationType, common.Required)
	if c.Date.IsZero() {
		v.Field("date", c.Date, func(field string, value interface{}) *common.ValidationError {
			return &common.ValidationError{Field: field, Value: value, Message: "is required"}
		})
	}
	if len(c.Complications) == 0 {
		v.Field("complications", nil, func(field string, value interface{}) *common.ValidationError {
			return &common.ValidationError{Field: field, Value: value, Message: "at least one complication is required"}
		})
	}
	if len(c.Complications) > maxComplications {
		v.Field("complications", len(c.Complications), tooMany("complications", maxComplications))
	}
	hasOther := false
	for _, ct := range c.Complications {
		if _, ok := constants.ComplicationFromLabel(string(ct)); !ok {
			v.Field("complications", string(ct), unknownValue("complication type"))
		}
		if ct == constants.ComplicationOther {
			hasOther = true
		}
	}
	if hasOther && (c.OtherDetail == nil || *c.OtherDetail == "") {
		v.Field("other_detail", c.OtherDetail, func(field string, value interface{}) *common.ValidationError {
			return &common.ValidationError{Field: field, Value: value, Message: "is required when complication type is Other"}
		})
	}
	return v.Error()
}

func unknownValue(kind string) common.ValidationRule {
	return func(field string, value interface{}) *common.ValidationError {
		return &common.ValidationError{Field: field, Value: value, Message: "is not a known " + kind}
	}
}

func tooMany(kind string, max int) common.ValidationRule {
	return func(field string, value interface{}) *common.ValidationError {
		return &common.ValidationError{
			Field: field, Value: value,
			Message: "holds too many " + kind + "; the limit is " + strconv.Itoa(max),
		}
	}
}
