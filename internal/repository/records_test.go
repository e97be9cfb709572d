package repository

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tbuckley92/eyelog/constants"
	"github.com/tbuckley92/eyelog/internal/common"
	"github.com/tbuckley92/eyelog/internal/entity"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := OpenSQLite(":memory:", logger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := Migrate(context.Background(), db, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRecord(profileID uuid.UUID, patientID string, day int) *entity.ProcedureRecord {
	return &entity.ProcedureRecord{
		ProfileID:         profileID,
		Procedure:         "Phacoemulsification with IOL",
		Laterality:        constants.LateralityRight,
		Date:              time.Date(2023, 5, day, 0, 0, 0, 0, time.UTC),
		PatientIdentifier: patientID,
		Role:              constants.RolePerformedSupervised,
		Hospital:          "Royal Eye Hospital",
		TrainingGrade:     constants.GradeST3,
	}
}

func TestInsertIgnoreDuplicates(t *testing.T) {
	db := openTestDB(t)
	logger := testLogger()
	profiles := NewProfileRepository(db, logger)
	records := NewRecordRepository(db, logger)
	ctx := context.Background()

	p, err := profiles.GetOrCreateByName(ctx, "Trainee A")
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}

	batch := []*entity.ProcedureRecord{
		newRecord(p.ID, "111111", 1),
		newRecord(p.ID, "222222", 2),
	}
	accepted, err := records.InsertIgnoreDuplicates(ctx, p.ID, batch)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if accepted != 2 {
		t.Fatalf("accepted = %d, want 2", accepted)
	}

	// The same rows again, as a fresh batch: every one is suppressed.
	again := []*entity.ProcedureRecord{
		newRecord(p.ID, "111111", 1),
		newRecord(p.ID, "222222", 2),
		newRecord(p.ID, "333333", 3),
	}
	accepted, err = records.InsertIgnoreDuplicates(ctx, p.ID, again)
	if err != nil {
		t.Fatalf("re-insert: %v", err)
	}
	if accepted != 1 {
		t.Fatalf("accepted = %d, want 1 (only the new row)", accepted)
	}

	all, err := records.ListRecords(ctx, p.ID, nil, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("stored %d records, want 3", len(all))
	}
	// Ingestion order survives storage.
	for i, want := range []string{"111111", "222222", "333333"} {
		if all[i].PatientIdentifier != want {
			t.Fatalf("record %d patient = %s, want %s", i, all[i].PatientIdentifier, want)
		}
	}
}

func TestInsertSameKeyDifferentOwner(t *testing.T) {
	db := openTestDB(t)
	logger := testLogger()
	profiles := NewProfileRepository(db, logger)
	records := NewRecordRepository(db, logger)
	ctx := context.Background()

	a, _ := profiles.GetOrCreateByName(ctx, "Trainee A")
	b, _ := profiles.GetOrCreateByName(ctx, "Trainee B")

	if n, err := records.InsertIgnoreDuplicates(ctx, a.ID, []*entity.ProcedureRecord{newRecord(a.ID, "111111", 1)}); err != nil || n != 1 {
		t.Fatalf("owner A insert: n=%d err=%v", n, err)
	}
	// The dedup key is scoped per owner; the identical row for B is accepted.
	if n, err := records.InsertIgnoreDuplicates(ctx, b.ID, []*entity.ProcedureRecord{newRecord(b.ID, "111111", 1)}); err != nil || n != 1 {
		t.Fatalf("owner B insert: n=%d err=%v", n, err)
	}
}

func TestListRecordsWindow(t *testing.T) {
	db := openTestDB(t)
	logger := testLogger()
	profiles := NewProfileRepository(db, logger)
	records := NewRecordRepository(db, logger)
	ctx := context.Background()

	p, _ := profiles.GetOrCreateByName(ctx, "Trainee A")
	batch := []*entity.ProcedureRecord{
		newRecord(p.ID, "111111", 1),
		newRecord(p.ID, "222222", 10),
		newRecord(p.ID, "333333", 20),
	}
	if _, err := records.InsertIgnoreDuplicates(ctx, p.ID, batch); err != nil {
		t.Fatalf("insert: %v", err)
	}

	from := time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC)
	got, err := records.ListRecords(ctx, p.ID, &from, &to)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// Both window edges are inclusive.
	if len(got) != 1 || got[0].PatientIdentifier != "222222" {
		t.Fatalf("window returned %d records, want exactly the 2023-05-10 one", len(got))
	}
}

func TestUpdateRecord(t *testing.T) {
	db := openTestDB(t)
	logger := testLogger()
	profiles := NewProfileRepository(db, logger)
	records := NewRecordRepository(db, logger)
	ctx := context.Background()

	p, _ := profiles.GetOrCreateByName(ctx, "Trainee A")
	rec := newRecord(p.ID, "111111", 1)
	if _, err := records.InsertIgnoreDuplicates(ctx, p.ID, []*entity.ProcedureRecord{rec}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	hospital := "City General"
	grade := constants.GradeST5
	comment := "complex case"
	linked := true
	updated, err := records.UpdateRecord(ctx, p.ID, rec.ID, &entity.RecordPatch{
		Hospital:                &hospital,
		TrainingGrade:           &grade,
		Comment:                 &comment,
		Complications:           []constants.ComplicationType{constants.ComplicationPCR},
		LinkedToComplicationLog: &linked,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Hospital != hospital || updated.TrainingGrade != grade {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if updated.Comment == nil || *updated.Comment != comment {
		t.Fatalf("comment = %v", updated.Comment)
	}
	if len(updated.Complications) != 1 || updated.Complications[0] != constants.ComplicationPCR {
		t.Fatalf("complications = %v", updated.Complications)
	}
	if !updated.LinkedToComplicationLog {
		t.Fatal("link flag not set")
	}
	// Identity fields untouched.
	if updated.PatientIdentifier != "111111" || updated.Procedure != rec.Procedure {
		t.Fatalf("identity fields changed: %+v", updated)
	}

	_, err = records.UpdateRecord(ctx, p.ID, uuid.New(), &entity.RecordPatch{Hospital: &hospital})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("update of missing record: err = %v, want ErrNotFound", err)
	}
}

func TestLogbookFileUpsertByHash(t *testing.T) {
	db := openTestDB(t)
	logger := testLogger()
	profiles := NewProfileRepository(db, logger)
	files := NewLogbookFileRepository(db, logger)
	ctx := context.Background()

	p, _ := profiles.GetOrCreateByName(ctx, "Trainee A")
	now := time.Now().UTC().Truncate(time.Second)

	f1, dup, err := files.UpsertByHash(ctx, p.ID, "may.pdf", "pdf", 1024, "abc123", now)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if dup {
		t.Fatal("first upsert flagged as duplicate")
	}
	if f1.Status != constants.IngestStatusReceived {
		t.Fatalf("status = %q, want RECEIVED", f1.Status)
	}

	f2, dup, err := files.UpsertByHash(ctx, p.ID, "renamed.pdf", "pdf", 1024, "abc123", now)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if !dup || f2.ID != f1.ID {
		t.Fatalf("same hash not deduplicated: dup=%v id=%s want %s", dup, f2.ID, f1.ID)
	}

	if err := files.SetStatus(ctx, f1.ID, constants.IngestStatusParsed); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if err := files.SetBlobPath(ctx, f1.ID, "/blobs/x"); err != nil {
		t.Fatalf("set blob path: %v", err)
	}
	got, err := files.GetByID(ctx, f1.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != constants.IngestStatusParsed || got.BlobPath == nil || *got.BlobPath != "/blobs/x" {
		t.Fatalf("file row not updated: %+v", got)
	}
}

func TestComplicationCaseCRUD(t *testing.T) {
	db := openTestDB(t)
	logger := testLogger()
	profiles := NewProfileRepository(db, logger)
	cases := NewComplicationCaseRepository(db, logger)
	ctx := context.Background()

	p, _ := profiles.GetOrCreateByName(ctx, "Trainee A")

	detail := "wound burn"
	created, err := cases.Create(ctx, &entity.ComplicationCase{
		ProfileID:         p.ID,
		PatientIdentifier: "111111",
		Date:              time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		Laterality:        constants.LateralityLeft,
		OperationType:     "Phacoemulsification",
		Complications: []constants.ComplicationType{
			constants.ComplicationPCR,
			constants.ComplicationOther,
		},
		OtherDetail: &detail,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := cases.GetByID(ctx, p.ID, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Complications) != 2 || got.Complications[0] != constants.ComplicationPCR {
		t.Fatalf("complications round-trip: %v", got.Complications)
	}
	if got.OtherDetail == nil || *got.OtherDetail != detail {
		t.Fatalf("other detail round-trip: %v", got.OtherDetail)
	}

	got.Complications = got.Complications[:1]
	got.OtherDetail = nil
	if _, err := cases.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = cases.GetByID(ctx, p.ID, created.ID)
	if len(got.Complications) != 1 || got.OtherDetail != nil {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := cases.Delete(ctx, p.ID, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := cases.GetByID(ctx, p.ID, created.ID); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("get after delete: err = %v, want ErrNotFound", err)
	}
}
