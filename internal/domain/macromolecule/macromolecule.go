// Package macromolecule defines the receptor catalog: prepared target
// structures, grouped by parasite type, that batch processes dock
// ligand libraries against.
package macromolecule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Macromolecule is one receptor registered in the catalog.  GridSize and
// GridCenter are stored as text triplets ("60,60,60") and resolved into a
// search box at preparation time; GridCenter may be empty when the center
// is derived from the reference ligand instead.
type Macromolecule struct {
	ID   uuid.UUID
	Name string

	// Rec is the receptor's base name, also the stem of its on-disk
	// files (<rec>.pdbqt, <rec>.maps.fld).  Batch runs list receptors
	// ordered by this field so repeated runs dock in a stable order.
	Rec string

	// Type groups receptors by target organism, e.g. "falciparum".
	Type string

	// Redocking marks receptors with a co-crystallized reference
	// ligand whose known pose validates the docking setup.
	Redocking bool

	GridSize   string
	GridCenter string

	// OriginalLigand is the reference ligand filename for redocking
	// receptors, empty otherwise.
	OriginalLigand string

	// RedockingRMSD and OriginalEnergy are filled by a preparation
	// docking trial against the reference ligand.
	RedockingRMSD  float64
	OriginalEnergy float64

	// FieldFilePath points at the grid field file produced by
	// preparation; empty until the receptor has been prepared.
	FieldFilePath string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Prepared reports whether the receptor already has usable grid maps.
func (m *Macromolecule) Prepared() bool {
	return m.FieldFilePath != ""
}

// PreparationResult carries the fields a preparation run writes back to
// the catalog record.  The pose fields are nil when the docking trial
// produced no parsable result; only non-nil fields are persisted.
type PreparationResult struct {
	FieldFilePath  string
	RedockingRMSD  *float64
	OriginalEnergy *float64
}

// Repository is the persistence port for the receptor catalog.
type Repository interface {
	// GetByID fetches one receptor; not-found is reported via error code.
	GetByID(ctx context.Context, id uuid.UUID) (*Macromolecule, error)

	// ListByType returns all receptors of a parasite type, ordered by Rec.
	ListByType(ctx context.Context, typ string) ([]*Macromolecule, error)

	// UpdatePreparationResult persists a preparation run's output fields,
	// taking a row lock so concurrent preparations of the same receptor
	// serialize instead of interleaving.
	UpdatePreparationResult(ctx context.Context, id uuid.UUID, res PreparationResult) error
}
