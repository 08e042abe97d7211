// Package process models a batch docking run: a user-submitted ligand
// library docked against every receptor of one parasite type, tracked
// from queueing through to its result artifacts.
package process

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a batch process.
type Status string

const (
	StatusQueued  Status = "QUEUED"
	StatusRunning Status = "RUNNING"
	StatusDone    Status = "DONE"
	StatusFailed  Status = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Valid reports whether s is one of the defined lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusDone, StatusFailed:
		return true
	}
	return false
}

// Process is one batch docking run.
type Process struct {
	ID uuid.UUID

	// Type selects which receptor group the ligands dock against.
	Type string

	// LigandFile is the submitted multi-molecule SDF, relative to Workdir.
	LigandFile string

	// Workdir is the on-disk directory holding inputs, intermediates
	// and result artifacts for this run.
	Workdir string

	Status Status

	// StatusMessage carries the failure reason for FAILED runs and a
	// short summary for DONE runs.
	StatusMessage string

	// Artifact paths, filled when the run reaches a terminal state.
	ResultJSONPath string
	ResultCSVPath  string
	ArchivePath    string

	// ResultJSON is the aggregate run record, stored on the row itself
	// so readers never depend on the working directory surviving.
	ResultJSON []byte

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Outcome is one row of the run ledger: the docking verdict for a single
// receptor/ligand pair.  Exactly one of the result fields or Error is
// meaningful; a row with a non-empty Error carries no pose.
type Outcome struct {
	ProcessID   uuid.UUID `json:"process_id"`
	Type        string    `json:"type"`
	ReceptorRec string    `json:"receptor_rec"`
	LigandFile  string    `json:"ligand_file"`

	BestBindingEnergy float64 `json:"best_binding_energy"`
	BestReferenceRMSD float64 `json:"best_reference_rmsd"`
	BestRun           int     `json:"best_run"`

	Error string `json:"error,omitempty"`
}

// Failed reports whether the pair produced no pose.
func (o Outcome) Failed() bool {
	return o.Error != ""
}

// Statistics aggregates the ledger of a finished run.
type Statistics struct {
	Total     int `json:"total_pairs"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`

	// SkippedReceptors counts receptors dropped whole before docking,
	// e.g. because their field descriptor could not be resolved.  Their
	// pairs are already included in Failed.
	SkippedReceptors int `json:"skipped_receptors"`

	Receptors int `json:"total_receptors"`
	Ligands   int `json:"total_ligands"`
}

// SuccessRate is the fraction of pairs that produced a pose, 0 for an
// empty ledger.
func (s Statistics) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total)
}

// Tally computes statistics over a ledger.
func Tally(outcomes []Outcome) Statistics {
	var st Statistics
	for _, o := range outcomes {
		st.Total++
		if o.Failed() {
			st.Failed++
		} else {
			st.Succeeded++
		}
	}
	return st
}

// Result is everything a finished batch run produced.
type Result struct {
	Outcomes      []Outcome
	Receptors     []ReceptorReport
	Statistics    Statistics
	StatusMessage string
	Elapsed       time.Duration
}

// FinalStatus derives the terminal state: a run succeeds as long as at
// least one pair produced a pose.
func (r Result) FinalStatus() Status {
	if r.Statistics.Succeeded > 0 {
		return StatusDone
	}
	return StatusFailed
}

// TerminalUpdate carries the fields the orchestrator persists when a run
// reaches a terminal state, written as one durable update.
type TerminalUpdate struct {
	Status         Status
	StatusMessage  string
	ResultJSONPath string
	ResultCSVPath  string
	ArchivePath    string

	// ResultPayload is the serialized aggregate record persisted on the
	// row together with the status, as one durable update.
	ResultPayload []byte

	Elapsed time.Duration
}

// Repository is the persistence port for batch processes.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Process, error)

	// UpdateStatus records an intermediate transition (QUEUED -> RUNNING).
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, message string) error

	// FinishUnderLock writes the terminal state and artifact paths in a
	// single transaction, row-locking the process so a concurrent
	// redelivery of the same job cannot interleave its write-back.
	FinishUnderLock(ctx context.Context, id uuid.UUID, upd TerminalUpdate) error

	// ListByWorkdir returns every process sharing a working directory.
	// Cleanup flows use it to decide whether a directory is still
	// referenced before removing it.
	ListByWorkdir(ctx context.Context, workdir string) ([]*Process, error)
}
