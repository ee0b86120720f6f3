package models

import (
	"fmt"
	"strings"
)

// ConflictPolicy selects how restored rows reconcile with existing rows.
type ConflictPolicy string

// Conflict policies.
const (
	// PolicyReplace clears the target table before inserting.
	PolicyReplace ConflictPolicy = "replace"
	// PolicyMerge inserts rows whose primary key is absent and skips the rest.
	PolicyMerge ConflictPolicy = "merge"
	// PolicyUpsert inserts new rows and updates rows whose primary key matches.
	PolicyUpsert ConflictPolicy = "upsert"
)

// ParseConflictPolicy parses a restore mode. An empty mode means merge.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyMerge, nil
	case PolicyReplace, PolicyMerge, PolicyUpsert:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q (must be merge, replace or upsert)", ErrInvalidPolicy, s)
	}
}

// RowError records one rejected row.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// TableOutcome is the result of restoring a single table.
type TableOutcome struct {
	Table     string     `json:"table"`
	TotalRows int        `json:"totalRows"`
	Inserted  int        `json:"inserted"`
	Skipped   int        `json:"skipped"`
	Errors    int        `json:"errors"`
	Failure   string     `json:"failure,omitempty"`
	Notes     []string   `json:"notes,omitempty"`
	RowErrors []RowError `json:"rowErrors,omitempty"`
}

// Succeeded reports whether the table counts as successfully restored:
// something was inserted, or rows were skipped without any error. A table
// with no rows to restore succeeds unless it failed before the row loop.
func (t TableOutcome) Succeeded() bool {
	if t.Failure != "" {
		return false
	}

	if t.Inserted > 0 {
		return true
	}

	if t.Skipped > 0 && t.Errors == 0 {
		return true
	}

	// Nothing to restore is not a failure.
	return t.TotalRows == 0
}

// Summary describes a failed table for the outcome's error list.
func (t TableOutcome) Summary() string {
	if t.Failure != "" {
		return fmt.Sprintf("%s: %s", t.Table, t.Failure)
	}

	return fmt.Sprintf("%s: inserted %d/%d rows, %d errors", t.Table, t.Inserted, t.TotalRows, t.Errors)
}

// RestoreOutcome aggregates all table outcomes of one restore call.
type RestoreOutcome struct {
	TotalTables      int            `json:"totalTables"`
	SuccessfulTables int            `json:"successfulTables"`
	FailedTables     int            `json:"failedTables"`
	InsertedRows     int            `json:"insertedRows"`
	Errors           []string       `json:"errors"`
	Tables           []TableOutcome `json:"tables"`
}

// Add folds a table outcome into the aggregate and returns the new aggregate.
// The receiver is left untouched.
func (o RestoreOutcome) Add(t TableOutcome) RestoreOutcome {
	next := o
	next.Errors = append(make([]string, 0, len(o.Errors)+1), o.Errors...)
	next.Tables = append(make([]TableOutcome, 0, len(o.Tables)+1), o.Tables...)

	next.TotalTables++
	next.InsertedRows += t.Inserted
	next.Tables = append(next.Tables, t)

	if t.Succeeded() {
		next.SuccessfulTables++
	} else {
		next.FailedTables++
		next.Errors = append(next.Errors, t.Summary())
	}

	return next
}

// Message returns the human-readable summary of the restore.
func (o RestoreOutcome) Message() string {
	return fmt.Sprintf("Restored %d/%d tables, %d rows inserted", o.SuccessfulTables, o.TotalTables, o.InsertedRows)
}

// RestoreResponse is the JSON body returned by the restore endpoint.
type RestoreResponse struct {
	Success bool `json:"success"`
	RestoreOutcome
	Message string `json:"message"`
}

// NewRestoreResponse wraps an outcome for the wire.
func NewRestoreResponse(o *RestoreOutcome) RestoreResponse {
	out := *o
	if out.Errors == nil {
		out.Errors = []string{}
	}

	if out.Tables == nil {
		out.Tables = []TableOutcome{}
	}

	return RestoreResponse{Success: true, RestoreOutcome: out, Message: out.Message()}
}

// BackupRequest is the JSON body accepted by POST /database/backup.
type BackupRequest struct {
	Tables []string `json:"tables"`
}
