package profile

import (
	"context"
	"log/slog"
)

// RecordKey is the context key under which the full merged raw record is
// retained for later reference.
const RecordKey = "profile_record"

// Result is the outcome of a profile lookup: the flattened fields plus
// which views contributed.
type Result struct {
	// Identifier is the canonical directory identifier that was matched.
	Identifier string

	// Fields is the flattened field map ready to merge into session context.
	// Always includes RecordKey with the full merged raw record.
	Fields map[string]any

	// HasClinical reports whether the clinical view was fetched.
	HasClinical bool

	// HasSystem reports whether the system/demographic view was fetched.
	HasSystem bool

	// HasCoverage reports whether the coverage view was fetched.
	HasCoverage bool
}

// Enricher performs opportunistic profile lookups against a directory.
// Every failure past the initial search degrades to partial or no fields;
// enrichment never fails a develop turn.
type Enricher struct {
	directory Directory
	logger    *slog.Logger
}

// NewEnricher creates an enricher. A nil logger uses slog.Default.
func NewEnricher(directory Directory, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{
		directory: directory,
		logger:    logger,
	}
}

// Fetch searches the directory for the given identifier or name and
// assembles whatever fields the available views provide.
//
// Returns (nil, nil) when the search finds no matches: absence is not an
// error. A search transport failure is returned as an error. Past the
// search, each view fetch is failure-isolated: a failed view is logged and
// omitted, and the remaining views are still attempted.
func (e *Enricher) Fetch(ctx context.Context, identifier string) (*Result, error) {
	matches, err := e.directory.Search(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	canonical := matches[0]

	result := &Result{
		Identifier: canonical,
		Fields:     map[string]any{},
	}
	merged := map[string]any{}

	clinical := e.fetchView(ctx, canonical, ViewClinical)
	if clinical != nil {
		result.HasClinical = true
		merged[ViewClinical] = clinical
	}

	system := e.fetchView(ctx, canonical, ViewSystem)
	if system != nil {
		result.HasSystem = true
		merged[ViewSystem] = system
		flattenInto(result.Fields, system, systemFields)
	}

	coverage := e.fetchView(ctx, canonical, ViewCoverage)
	if coverage != nil {
		result.HasCoverage = true
		merged[ViewCoverage] = coverage
		flattenInto(result.Fields, coverage, coverageFields)
	}

	result.Fields[RecordKey] = merged

	return result, nil
}

// fetchView pulls one view, converting any failure into a nil record.
func (e *Enricher) fetchView(ctx context.Context, identifier, view string) map[string]any {
	record, err := e.directory.FetchView(ctx, identifier, view)
	if err != nil {
		e.logger.Debug("profile view unavailable",
			"identifier", identifier,
			"view", view,
			"error", err)
		return nil
	}
	return record
}

// systemFields are the demographic fields lifted from the system view.
var systemFields = []string{"id", "name", "date_of_birth", "address", "phone", "email"}

// coverageFields are the fields lifted from the coverage view.
var coverageFields = []string{"carrier", "member_id", "group_number", "coverage_status"}

// flattenInto copies the named keys from a view record into the field map.
// Missing keys are skipped.
func flattenInto(fields map[string]any, record map[string]any, names []string) {
	for _, name := range names {
		if value, ok := record[name]; ok {
			fields[name] = value
		}
	}
}
