package process

import (
	"fmt"

	"github.com/google/uuid"
)

// Ligand docking states inside a receptor report.
const (
	LigandStatusSuccess = "success"
	LigandStatusError   = "error"
)

// Receptor-level states inside the aggregate report.
const (
	ReceptorStatusCompleted = "completed" // at least one ligand docked
	ReceptorStatusFailed    = "failed"    // every ligand failed
	ReceptorStatusError     = "error"     // skipped before any docking
)

// LigandReport is the per-ligand entry of a receptor block.
type LigandReport struct {
	Ligand string `json:"ligand"`
	Status string `json:"status"`

	BestBindingEnergy float64 `json:"best_binding_energy,omitempty"`
	BestReferenceRMSD float64 `json:"best_reference_rmsd,omitempty"`
	BestRun           int     `json:"best_run,omitempty"`
	ReportPath        string  `json:"report,omitempty"`

	Error string `json:"error,omitempty"`
}

// RedockingInfo carries the validation metadata of receptors that have a
// co-crystallized reference ligand.
type RedockingInfo struct {
	OriginalLigand string  `json:"original_ligand"`
	RedockingRMSD  float64 `json:"redocking_rmsd"`
	OriginalEnergy float64 `json:"original_energy"`
}

// ReceptorReport is one receptor's block in the aggregate result.
type ReceptorReport struct {
	MacromoleculeID uuid.UUID `json:"macromolecule_id"`
	Rec             string    `json:"receptor_rec"`
	Name            string    `json:"receptor_name"`
	GridSize        string    `json:"grid_size"`
	GridCenter      string    `json:"grid_center"`
	FieldFile       string    `json:"fld"`

	Redocking *RedockingInfo `json:"redocking,omitempty"`

	Status        string         `json:"status"`
	Error         string         `json:"error,omitempty"`
	LigandsOK     int            `json:"ligands_ok"`
	LigandsFailed int            `json:"ligands_failed"`
	Ligands       []LigandReport `json:"ligands"`
}

// Finalize derives the receptor-level status from its ligand tallies.
// Receptors skipped before docking keep their error status.
func (r *ReceptorReport) Finalize() {
	if r.Status == ReceptorStatusError {
		return
	}
	if r.LigandsOK > 0 {
		r.Status = ReceptorStatusCompleted
	} else {
		r.Status = ReceptorStatusFailed
	}
}

// StatusMessage summarizes a finished run for humans.  The stored status
// is DONE for any nonzero success count; only the message distinguishes
// complete from partial success.
func (s Statistics) StatusMessage() string {
	switch {
	case s.Succeeded == 0:
		return "total failure: no receptor/ligand pair docked successfully"
	case s.Succeeded == s.Total:
		return fmt.Sprintf("complete success: all %d receptor/ligand pairs docked", s.Total)
	default:
		return fmt.Sprintf("partial success: %d/%d receptor/ligand pairs docked", s.Succeeded, s.Total)
	}
}

// SuccessRatePercent renders the success rate as a percentage string for
// the aggregate payload.
func (s Statistics) SuccessRatePercent() string {
	return fmt.Sprintf("%.2f%%", s.SuccessRate()*100)
}
