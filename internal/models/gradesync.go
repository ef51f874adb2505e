package models

import (
	"fmt"
	"strconv"
)

// SyncStatus classifies the outcome for one roster entry.
type SyncStatus string

const (
	SyncStatusSuccess            SyncStatus = "Success"
	SyncStatusSkipped            SyncStatus = "Skipped"
	SyncStatusNotFoundInInternal SyncStatus = "NotFoundInInternal"
	SyncStatusNotFoundInExternal SyncStatus = "NotFoundInExternal"
	SyncStatusIgnored            SyncStatus = "Ignored"
	SyncStatusFailed             SyncStatus = "Failed"
)

// SyncResultHeaders is the header row of the result artifact.
var SyncResultHeaders = []string{"Status", "Message"}

// SyncResultRow is one line of a grade transfer report.
type SyncResultRow struct {
	Status        SyncStatus `json:"status"`
	ExternalID    string     `json:"external_id"`
	InternalGrade *float64   `json:"internal_grade,omitempty"`
	Message       string     `json:"message"`
}

// Record renders the row under SyncResultHeaders.
func (r SyncResultRow) Record() map[string]string {
	return map[string]string{"Status": string(r.Status), "Message": r.Message}
}

// SyncReport is the ordered output of one grade transfer.
type SyncReport struct {
	UnitID string          `json:"unit_id"`
	Rows   []SyncResultRow `json:"rows"`
}

// Counts tallies rows per status.
func (r *SyncReport) Counts() map[SyncStatus]int {
	counts := make(map[SyncStatus]int)
	if r == nil {
		return counts
	}
	for _, row := range r.Rows {
		counts[row.Status]++
	}
	return counts
}

// FormatGrade renders a grade without trailing zeros.
func FormatGrade(grade *float64) string {
	if grade == nil {
		return ""
	}
	return strconv.FormatFloat(*grade, 'f', -1, 64)
}

// DescribeStudent renders an identifier and name pair for result messages.
func DescribeStudent(id, name string) string {
	switch {
	case id == "":
		return name
	case name == "":
		return id
	default:
		return fmt.Sprintf("%s (%s)", id, name)
	}
}
