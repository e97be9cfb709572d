package repository

import (
	"database/sql"
	"strings"
	"time"

	"github.com/tbuckley92/eyelog/constants"
)

// Dates are stored as YYYY-MM-DD and timestamps as RFC 3339 text, which both
// backends round-trip without driver-specific time handling.
const (
	dateFormat = "2006-01-02"
	tsFormat   = time.RFC3339
)

func formatDate(t time.Time) string { return t.UTC().Format(dateFormat) }
func formatTS(t time.Time) string   { return t.UTC().Format(tsFormat) }

func parseDate(s string) time.Time {
	t, _ := time.ParseInLocation(dateFormat, s, time.UTC)
	return t
}

func parseTS(s string) time.Time {
	t, _ := time.Parse(tsFormat, s)
	return t
}

// complicationSep joins complication flags into one text column. The
// vocabulary labels never contain it.
const complicationSep = "|"

func joinComplications(cs []constants.ComplicationType) string {
	if len(cs) == 0 {
		return ""
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}
	return strings.Join(parts, complicationSep)
}

func splitComplications(s string) []constants.ComplicationType {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, complicationSep)
	out := make([]constants.ComplicationType, len(parts))
	for i, p := range parts {
		out[i] = constants.ComplicationType(p)
	}
	return out
}

func nullStr(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
