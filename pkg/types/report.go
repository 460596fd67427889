// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// OperationKind classifies how a single source record was applied.
type OperationKind string

const (
	OpNameMatched OperationKind = "name-matched-update"
	OpIDMatched   OperationKind = "id-matched-update"
	OpCreated     OperationKind = "created"
	OpFailed      OperationKind = "failed"
)

// OperationResult is the outcome of upserting one record.
type OperationResult struct {
	Kind OperationKind `json:"kind" yaml:"kind"`

	// TargetID is the identifier that was updated or created.
	TargetID string `json:"target_id,omitempty" yaml:"target_id,omitempty"`

	// Name is the source record's label, kept for reporting.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// ConflictID is set when the source identifier matched a different
	// record than the name match that won.
	ConflictID string `json:"conflict_id,omitempty" yaml:"conflict_id,omitempty"`

	// Err is the failure cause for OpFailed.
	Err error `json:"-" yaml:"-"`
}

// DatasetStatus is the terminal state of one dataset in a run.
type DatasetStatus string

const (
	StatusOK          DatasetStatus = "ok"
	StatusFetchFailed DatasetStatus = "fetch-failed"
	StatusBadJSON     DatasetStatus = "bad-json"
	StatusNoPack      DatasetStatus = "no-pack"
	StatusIndexFailed DatasetStatus = "index-failed"
)

// RecordFailure names a record that could not be applied.
type RecordFailure struct {
	Name  string `json:"name" yaml:"name"`
	Error string `json:"error" yaml:"error"`
}

// DatasetReport summarizes one dataset.
type DatasetReport struct {
	Dataset    string        `json:"dataset" yaml:"dataset"`
	Status     DatasetStatus `json:"status" yaml:"status"`
	Collection string        `json:"collection,omitempty" yaml:"collection,omitempty"`
	Label      string        `json:"label,omitempty" yaml:"label,omitempty"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`

	UpdatedByName int `json:"updated_by_name" yaml:"updated_by_name"`
	UpdatedByID   int `json:"updated_by_id" yaml:"updated_by_id"`
	Created       int `json:"created" yaml:"created"`
	Failed        int `json:"failed" yaml:"failed"`
	Conflicts     int `json:"conflicts" yaml:"conflicts"`
	Duplicates    int `json:"duplicates" yaml:"duplicates"`

	Failures []RecordFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
	Duration time.Duration   `json:"duration" yaml:"duration"`
}

// Add folds one operation result into the counts.
func (r *DatasetReport) Add(res OperationResult) {
	switch res.Kind {
	case OpNameMatched:
		r.UpdatedByName++
	case OpIDMatched:
		r.UpdatedByID++
	case OpCreated:
		r.Created++
	case OpFailed:
		r.Failed++
		msg := ""
		if res.Err != nil {
			msg = res.Err.Error()
		}
		r.Failures = append(r.Failures, RecordFailure{Name: res.Name, Error: msg})
	}
	if res.ConflictID != "" {
		r.Conflicts++
	}
}

// Total returns the number of records processed.
func (r DatasetReport) Total() int {
	return r.UpdatedByName + r.UpdatedByID + r.Created + r.Failed
}

// OK reports whether the dataset was processed without any failure.
func (r DatasetReport) OK() bool {
	return r.Status == StatusOK && r.Failed == 0
}

// RunReport is the ordered outcome of one sync run.
type RunReport struct {
	RunID    string          `json:"run_id" yaml:"run_id"`
	Started  time.Time       `json:"started" yaml:"started"`
	Finished time.Time       `json:"finished" yaml:"finished"`
	Datasets []DatasetReport `json:"datasets" yaml:"datasets"`
}

// HasFailures reports whether any dataset was skipped or any record failed.
func (r RunReport) HasFailures() bool {
	for _, d := range r.Datasets {
		if !d.OK() {
			return true
		}
	}
	return false
}

// Totals sums the per-dataset counts.
func (r RunReport) Totals() DatasetReport {
	var t DatasetReport
	for _, d := range r.Datasets {
		t.UpdatedByName += d.UpdatedByName
		t.UpdatedByID += d.UpdatedByID
		t.Created += d.Created
		t.Failed += d.Failed
		t.Conflicts += d.Conflicts
		t.Duplicates += d.Duplicates
	}
	return t
}
