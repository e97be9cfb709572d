package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tbuckley92/eyelog/constants"
	"github.com/tbuckley92/eyelog/internal/common"
	"github.com/tbuckley92/eyelog/internal/entity"
)

// recordPatchSchema constrains patch payloads arriving as JSON (the CLI's
// -patch flag, import tooling). Unknown fields are rejected so that a typoed
// field name or an attempt to rewrite an identity field fails loudly instead
// of being silently dropped.
func recordPatchSchema() map[string]any {
	grades := []any{""}
	for _, g := range constants.GridGrades {
		grades = append(grades, string(g))
	}
	var complications []any
	for _, c := range constants.AllComplications() {
		complications = append(complications, string(c))
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"hospital":       map[string]any{"type": "string", "minLength": 1},
			"training_grade": map[string]any{"type": "string", "enum": grades},
			"comment":        map[string]any{"type": "string"},
			"complications": map[string]any{
				"type":     "array",
				"maxItems": maxComplications,
				"items":    map[string]any{"type": "string", "enum": complications},
			},
			"complication_cause":         map[string]any{"type": "string"},
			"complication_action":        map[string]any{"type": "string"},
			"linked_to_complication_log": map[string]any{"type": "boolean"},
		},
	}
}

// DecodePatch validates a JSON patch payload against the schema and decodes
// it into a RecordPatch.
func DecodePatch(data []byte) (*entity.RecordPatch, error) {
	if err := validateJSONAgainstSchema(recordPatchSchema(), data); err != nil {
		return nil, common.NewAppError("VALIDATION_ERROR", err.Error(), common.ErrValidation)
	}
	var patch entity.RecordPatch
	if err := json.Unmarshal(data, &patch); err != nil {
		return nil, common.NewAppError("VALIDATION_ERROR", err.Error(), common.ErrValidation)
	}
	return &patch, nil
}

// complicationCaseSchema constrains hand-entered complication-case payloads.
// Structural checks only; the 1..3 complication rule and the Other-detail
// rule live in validateCase with field-specific messages.
func complicationCaseSchema() map[string]any {
	var complications []any
	for _, c := range constants.AllComplications() {
		complications = append(complications, string(c))
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"patient_identifier", "date", "operation_type", "complications"},
		"properties": map[string]any{
			"patient_identifier": map[string]any{"type": "string", "minLength": 1},
			"date":               map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"laterality":         map[string]any{"type": "string", "enum": []any{"Left", "Right", "Bilateral", "Unknown"}},
			"operation_type":     map[string]any{"type": "string", "minLength": 1},
			"complications": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "enum": complications},
			},
			"other_detail": map[string]any{"type": "string"},
			"cause":        map[string]any{"type": "string"},
			"action_taken": map[string]any{"type": "string"},
		},
	}
}

// DecodeCase validates a JSON complication-case payload and decodes it.
// The date arrives as YYYY-MM-DD rather than RFC 3339.
func DecodeCase(data []byte) (*entity.ComplicationCase, error) {
	if err := validateJSONAgainstSchema(complicationCaseSchema(), data); err != nil {
		return nil, common.NewAppError("VALIDATION_ERROR", err.Error(), common.ErrValidation)
	}
	var payload struct {
		PatientIdentifier string                       `json:"patient_identifier"`
		Date              string                       `json:"date"`
		Laterality        *constants.Laterality        `json:"laterality"`
		OperationType     string                       `json:"operation_type"`
		Complications     []constants.ComplicationType `json:"complications"`
		OtherDetail       *string                      `json:"other_detail"`
		Cause             *string                      `json:"cause"`
		ActionTaken       *string                      `json:"action_taken"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, common.NewAppError("VALIDATION_ERROR", err.Error(), common.ErrValidation)
	}
	date, err := time.ParseInLocation("2006-01-02", payload.Date, time.UTC)
	if err != nil {
		return nil, common.NewAppError("VALIDATION_ERROR", "date is not a real calendar date", common.ErrValidation)
	}
	c := &entity.ComplicationCase{
		PatientIdentifier: payload.PatientIdentifier,
		Date:              date,
		Laterality:        constants.LateralityUnknown,
		OperationType:     payload.OperationType,
		Complications:     payload.Complications,
		OtherDetail:       payload.OtherDetail,
		Cause:             payload.Cause,
		ActionTaken:       payload.ActionTaken,
	}
	if payload.Laterality != nil {
		c.Laterality = *payload.Laterality
	}
	return c, nil
}

func validateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
