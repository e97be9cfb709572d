package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tbuckley92/eyelog/constants"
	"github.com/tbuckley92/eyelog/internal/common"
	"github.com/tbuckley92/eyelog/internal/entity"
	"github.com/tbuckley92/eyelog/internal/extract"
)

type mockProfiles struct {
	known map[uuid.UUID]bool
}

func (m *mockProfiles) GetByID(context.Context, uuid.UUID) (*entity.Profile, error) {
	return nil, common.ErrNotFound
}

func (m *mockProfiles) GetOrCreateByName(context.Context, string) (*entity.Profile, error) {
	return nil, errors.New("not implemented")
}

func (m *mockProfiles) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.known[id], nil
}

type mockFiles struct {
	byHash   map[string]*entity.LogbookFile
	statuses map[uuid.UUID]constants.IngestStatus
	blobs    map[uuid.UUID]string
}

func newMockFiles() *mockFiles {
	return &mockFiles{
		byHash:   make(map[string]*entity.LogbookFile),
		statuses: make(map[uuid.UUID]constants.IngestStatus),
		blobs:    make(map[uuid.UUID]string),
	}
}

func (m *mockFiles) GetByID(context.Context, uuid.UUID) (*entity.LogbookFile, error) {
	return nil, common.ErrNotFound
}

func (m *mockFiles) GetByProfileAndHash(_ context.Context, profileID uuid.UUID, hashHex string) (*entity.LogbookFile, error) {
	if f, ok := m.byHash[profileID.String()+hashHex]; ok {
		return f, nil
	}
	return nil, common.ErrNotFound
}

func (m *mockFiles) UpsertByHash(_ context.Context, profileID uuid.UUID, filename, ext string, size int, hashHex string, uploadedAt time.Time) (*entity.LogbookFile, bool, error) {
	key := profileID.String() + hashHex
	if f, ok := m.byHash[key]; ok {
		return f, true, nil
	}
	f := &entity.LogbookFile{
		ID:          uuid.New(),
		ProfileID:   profileID,
		Filename:    filename,
		FileExt:     ext,
		FileSize:    size,
		ContentHash: []byte(hashHex),
		Status:      constants.IngestStatusReceived,
		UploadedAt:  uploadedAt,
	}
	m.byHash[key] = f
	m.statuses[f.ID] = f.Status
	return f, false, nil
}

func (m *mockFiles) SetBlobPath(_ context.Context, id uuid.UUID, blobPath string) error {
	m.blobs[id] = blobPath
	return nil
}

func (m *mockFiles) SetStatus(_ context.Context, id uuid.UUID, status constants.IngestStatus) error {
	m.statuses[id] = status
	return nil
}

type mockRecords struct {
	stored []*entity.ProcedureRecord
	keys   map[string]struct{}
}

func newMockRecords() *mockRecords {
	return &mockRecords{keys: make(map[string]struct{})}
}

func (m *mockRecords) ListRecords(context.Context, uuid.UUID, *time.Time, *time.Time) ([]*entity.ProcedureRecord, error) {
	return m.stored, nil
}

func (m *mockRecords) GetByID(context.Context, uuid.UUID, uuid.UUID) (*entity.ProcedureRecord, error) {
	return nil, common.ErrNotFound
}

func (m *mockRecords) InsertIgnoreDuplicates(_ context.Context, profileID uuid.UUID, records []*entity.ProcedureRecord) (int, error) {
	accepted := 0
	for _, rec := range records {
		key := profileID.String() + "|" + rec.DedupKey()
		if _, dup := m.keys[key]; dup {
			continue
		}
		m.keys[key] = struct{}{}
		rec.ID = uuid.New()
		m.stored = append(m.stored, rec)
		accepted++
	}
	return accepted, nil
}

func (m *mockRecords) UpdateRecord(context.Context, uuid.UUID, uuid.UUID, *entity.RecordPatch) (*entity.ProcedureRecord, error) {
	return nil, common.ErrNotFound
}

// mockExtractor ignores the document bytes and replays canned pages.
type mockExtractor struct {
	pages []extract.Page
	err   error
	calls int
}

func (m *mockExtractor) Extract(context.Context, io.ReaderAt, int64) ([]extract.Page, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.pages, nil
}

type failingBlobs struct{}

func (failingBlobs) Store(context.Context, uuid.UUID, string, io.Reader) (string, error) {
	return "", errors.New("disk full")
}

func (failingBlobs) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("disk full")
}

func rowFragments(y float64, tokens ...string) []extract.Fragment {
	frags := make([]extract.Fragment, len(tokens))
	for i, tok := range tokens {
		frags[i] = extract.Fragment{Text: tok, X: float64(i) * 50, Y: y}
	}
	return frags
}

func testPages() []extract.Page {
	var frags []extract.Fragment
	frags = append(frags, rowFragments(720, "Phacoemulsification", "R", "2023-05-14", "123456", "PS", "Royal", "Eye", "Hospital", "ST3")...)
	frags = append(frags, rowFragments(700, "Intravitreal", "injection", "L", "2023-05-15", "654321", "P", "City", "General", "ST3")...)
	return []extract.Page{{Number: 1, Fragments: frags}}
}

func newTestService(t *testing.T, ex extract.TextExtractor) (*Service, uuid.UUID, *mockFiles, *mockRecords) {
	t.Helper()
	profileID := uuid.New()
	profiles := &mockProfiles{known: map[uuid.UUID]bool{profileID: true}}
	files := newMockFiles()
	records := newMockRecords()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(profiles, files, records, nil, ex, logger)
	return svc, profileID, files, records
}

func TestIngestFilePipeline(t *testing.T) {
	ex := &mockExtractor{pages: testPages()}
	svc, profileID, files, records := newTestService(t, ex)

	summary, err := svc.IngestFile(context.Background(), profileID, "logbook.pdf", []byte("doc-one"))
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if summary.DuplicateFile {
		t.Fatal("first upload flagged as duplicate file")
	}
	if summary.RowsExtracted != 2 || summary.Parsed != 2 || summary.Accepted != 2 {
		t.Fatalf("summary = %+v, want 2 extracted, 2 parsed, 2 accepted", summary)
	}
	if summary.SkippedDuplicates != 0 {
		t.Fatalf("SkippedDuplicates = %d, want 0", summary.SkippedDuplicates)
	}
	if got := files.statuses[summary.FileID]; got != constants.IngestStatusParsed {
		t.Fatalf("file status = %q, want %q", got, constants.IngestStatusParsed)
	}
	if len(records.stored) != 2 {
		t.Fatalf("stored %d records, want 2", len(records.stored))
	}
	for _, rec := range records.stored {
		if rec.ProfileID != profileID {
			t.Fatalf("record owner = %s, want %s", rec.ProfileID, profileID)
		}
	}
}

func TestIngestFileSkipsIdenticalContent(t *testing.T) {
	ex := &mockExtractor{pages: testPages()}
	svc, profileID, _, _ := newTestService(t, ex)

	content := []byte("same bytes")
	if _, err := svc.IngestFile(context.Background(), profileID, "a.pdf", content); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	summary, err := svc.IngestFile(context.Background(), profileID, "renamed.pdf", content)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !summary.DuplicateFile {
		t.Fatal("identical content not flagged as duplicate file")
	}
	if ex.calls != 1 {
		t.Fatalf("extractor called %d times, want 1 (duplicate file must skip extraction)", ex.calls)
	}
}

func TestIngestFileSuppressesRowDuplicates(t *testing.T) {
	ex := &mockExtractor{pages: testPages()}
	svc, profileID, _, records := newTestService(t, ex)

	first, err := svc.IngestFile(context.Background(), profileID, "may.pdf", []byte("export may"))
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.Accepted != 2 {
		t.Fatalf("first Accepted = %d, want 2", first.Accepted)
	}

	// A later export with different bytes but overlapping rows.
	second, err := svc.IngestFile(context.Background(), profileID, "june.pdf", []byte("export june"))
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if second.Accepted != 0 || second.SkippedDuplicates != 2 {
		t.Fatalf("second summary = %+v, want 0 accepted, 2 skipped", second)
	}
	if len(records.stored) != 2 {
		t.Fatalf("stored %d records after overlap, want 2", len(records.stored))
	}
}

func TestIngestFileRejectsUnsupportedExtension(t *testing.T) {
	svc, profileID, _, _ := newTestService(t, &mockExtractor{})

	_, err := svc.IngestFile(context.Background(), profileID, "logbook.csv", []byte("a,b"))
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestIngestFileRejectsUnknownProfile(t *testing.T) {
	svc, _, _, _ := newTestService(t, &mockExtractor{})

	_, err := svc.IngestFile(context.Background(), uuid.New(), "logbook.pdf", []byte("doc"))
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestIngestFileMarksFailedOnExtractionError(t *testing.T) {
	ex := &mockExtractor{err: common.NewAppError("DOCUMENT_ERROR", "no text layer", common.ErrDocument)}
	svc, profileID, files, _ := newTestService(t, ex)

	_, err := svc.IngestFile(context.Background(), profileID, "broken.pdf", []byte("scanned image"))
	if !errors.Is(err, common.ErrDocument) {
		t.Fatalf("err = %v, want ErrDocument", err)
	}
	var status constants.IngestStatus
	for _, s := range files.statuses {
		status = s
	}
	if status != constants.IngestStatusFailed {
		t.Fatalf("file status = %q, want %q", status, constants.IngestStatusFailed)
	}
}

func TestIngestFileBlobFailureIsNonFatal(t *testing.T) {
	ex := &mockExtractor{pages: testPages()}
	profileID := uuid.New()
	profiles := &mockProfiles{known: map[uuid.UUID]bool{profileID: true}}
	files := newMockFiles()
	records := newMockRecords()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(profiles, files, records, failingBlobs{}, ex, logger)

	summary, err := svc.IngestFile(context.Background(), profileID, "logbook.pdf", []byte("doc"))
	if err != nil {
		t.Fatalf("IngestFile with failing blob store: %v", err)
	}
	if summary.Accepted != 2 {
		t.Fatalf("Accepted = %d, want 2 despite blob failure", summary.Accepted)
	}
}
