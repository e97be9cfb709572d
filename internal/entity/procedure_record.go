package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tbuckley92/eyelog/constants"
)

// ProcedureRecord represents one row of the surgical logbook for data
// transfer between layers.
type ProcedureRecord struct {
	ID                      uuid.UUID                    `json:"id"`
	ProfileID               uuid.UUID                    `json:"profile_id"`
	Procedure               string                       `json:"procedure"`
	Laterality              constants.Laterality         `json:"laterality"`
	Date                    time.Time                    `json:"date"`
	PatientIdentifier       string                       `json:"patient_identifier"`
	Role                    constants.Role               `json:"role"`
	Hospital                string                       `json:"hospital"`
	TrainingGrade           constants.Grade              `json:"training_grade"`
	Comment                 *string                      `json:"comment,omitempty"`
	Complications           []constants.ComplicationType `json:"complications,omitempty"`
	ComplicationCause       *string                      `json:"complication_cause,omitempty"`
	ComplicationAction      *string                      `json:"complication_action,omitempty"`
	LinkedToComplicationLog bool                         `json:"linked_to_complication_log"`
	CreatedAt               time.Time                    `json:"created_at"`
	UpdatedAt               time.Time                    `json:"updated_at"`
}

// DedupKey is the natural uniqueness key used by the ingestion store:
// (patient identifier, laterality, procedure, date), scoped per profile.
func (r *ProcedureRecord) DedupKey() string {
	return fmt.Sprintf("%s|%s|%s|%s",
		r.PatientIdentifier, r.Laterality, r.Procedure, r.Date.Format("2006-01-02"))
}

// RecordPatch carries the mutable fields of a ProcedureRecord for targeted
// updates. The dedup-key fields (procedure, date, laterality, patient
// identifier) are frozen after creation and deliberately absent here.
type RecordPatch struct {
	Hospital                *string                      `json:"hospital,omitempty"`
	TrainingGrade           *constants.Grade             `json:"training_grade,omitempty"`
	Comment                 *string                      `json:"comment,omitempty"`
	Complications           []constants.ComplicationType `json:"complications,omitempty"`
	ComplicationCause       *string                      `json:"complication_cause,omitempty"`
	ComplicationAction      *string                      `json:"complication_action,omitempty"`
	LinkedToComplicationLog *bool                        `json:"linked_to_complication_log,omitempty"`
}
