package constants

// IngestStatus is the canonical status for rows in logbook_file.
type IngestStatus string

// Stable values (store these exact strings in DB).
const (
	IngestStatusReceived IngestStatus = "RECEIVED" // file stored, not yet parsed
	IngestStatusParsed   IngestStatus = "PARSED"   // records extracted and merged
	IngestStatusFailed   IngestStatus = "FAILED"   // terminal failure
)
