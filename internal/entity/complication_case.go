package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/tbuckley92/eyelog/constants"
)

// ComplicationCase represents one entry of the complication log. A case may
// link 1:1 to a ProcedureRecord, or stand alone when entered by hand.
type ComplicationCase struct {
	ID                uuid.UUID                    `json:"id"`
	ProfileID         uuid.UUID                    `json:"profile_id"`
	RecordID          *uuid.UUID                   `json:"record_id,omitempty"`
	PatientIdentifier string                       `json:"patient_identifier"`
	Date              time.Time                    `json:"date"`
	Laterality        constants.Laterality         `json:"laterality"`
	OperationType     string                       `json:"operation_type"`
	Complications     []constants.ComplicationType `json:"complications"`
	OtherDetail       *string                      `json:"other_detail,omitempty"`
	Cause             *string                      `json:"cause,omitempty"`
	ActionTaken       *string                      `json:"action_taken,omitempty"`
	CreatedAt         time.Time                    `json:"created_at"`
	UpdatedAt         time.Time                    `json:"updated_at"`
}
