package artifacts

import (
	"archive/zip"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"

	"github.com/plasmodock/plasmodock/internal/domain/process"
)

func newTestLayout(t *testing.T) Layout {
	t.Helper()
	l, err := NewLayout(filepath.Join(t.TempDir(), "run-1"))
	require.NoError(t, err)
	return l
}

func TestNewLayoutCreatesSubdirectories(t *testing.T) {
	l := newTestLayout(t)
	for _, dir := range []string{l.LigandsDir(), l.DLGDir(), l.BestPoseDir(), l.LogsDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}
	// Re-running on an existing tree must not fail.
	_, err := NewLayout(l.Workdir)
	assert.NoError(t, err)
}

func sampleResult(id uuid.UUID) process.Result {
	outcomes := []process.Outcome{
		{ProcessID: id, Type: "falciparum", ReceptorRec: "3eqa", LigandFile: "lig1.pdbqt",
			BestBindingEnergy: -6.2, BestReferenceRMSD: 1.3, BestRun: 2},
		{ProcessID: id, Type: "falciparum", ReceptorRec: "2bl9", LigandFile: "lig1.pdbqt",
			Error: "docking timed out"},
	}
	stats := process.Tally(outcomes)
	return process.Result{
		Outcomes: outcomes,
		Receptors: []process.ReceptorReport{
			{Rec: "3eqa", Status: process.ReceptorStatusCompleted, LigandsOK: 1,
				Ligands: []process.LigandReport{{Ligand: "lig1.pdbqt", Status: process.LigandStatusSuccess,
					BestBindingEnergy: -6.2, BestReferenceRMSD: 1.3, BestRun: 2}}},
			{Rec: "2bl9", Status: process.ReceptorStatusFailed, LigandsFailed: 1,
				Ligands: []process.LigandReport{{Ligand: "lig1.pdbqt", Status: process.LigandStatusError,
					Error: "docking timed out"}}},
		},
		Statistics:    stats,
		StatusMessage: stats.StatusMessage(),
		Elapsed:       90 * time.Second,
	}
}

func TestWriteResultJSON(t *testing.T) {
	l := newTestLayout(t)
	id := uuid.New()
	p := &process.Process{ID: id, Type: "falciparum"}

	payload, err := ResultPayload(p, sampleResult(id))
	require.NoError(t, err)
	path, err := l.WriteResultJSON(payload)
	require.NoError(t, err)
	assert.Equal(t, l.ResultJSONPath(), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	var report struct {
		OK            bool      `json:"ok"`
		ProcessID     uuid.UUID `json:"process_id"`
		StatusMessage string    `json:"status_message"`
		ElapsedSec    float64   `json:"elapsed_seconds"`
		Statistics    struct {
			process.Statistics
			SuccessRate string `json:"success_rate"`
		} `json:"statistics"`
		Receptors []process.ReceptorReport `json:"macromolecules"`
	}
	require.NoError(t, json.Unmarshal(data, &report))
	assert.True(t, report.OK)
	assert.Equal(t, id, report.ProcessID)
	assert.Equal(t, "partial success: 1/2 receptor/ligand pairs docked", report.StatusMessage)
	assert.Equal(t, "50.00%", report.Statistics.SuccessRate)
	assert.InDelta(t, 90, report.ElapsedSec, 1e-9)
	// Receptor blocks stay in processing order.
	require.Len(t, report.Receptors, 2)
	assert.Equal(t, "3eqa", report.Receptors[0].Rec)
	assert.Equal(t, "2bl9", report.Receptors[1].Rec)
}

func TestWriteResultCSV(t *testing.T) {
	l := newTestLayout(t)
	id := uuid.New()

	path, err := l.WriteResultCSV(sampleResult(id).Outcomes)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = ';'
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{id.String(), "falciparum", "3eqa", "lig1.pdbqt", "-6.2", "1.3", "2", ""}, rows[1])
	assert.Equal(t, []string{id.String(), "falciparum", "2bl9", "lig1.pdbqt", "", "", "", "docking timed out"}, rows[2])
}

func TestWriteResultCSVEmptyLedgerStillHasHeader(t *testing.T) {
	l := newTestLayout(t)
	path, err := l.WriteResultCSV(nil)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = ';'
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, csvHeader, rows[0])
}

func TestArchiveBundlesWorkdir(t *testing.T) {
	l := newTestLayout(t)
	require.NoError(t, os.WriteFile(filepath.Join(l.LigandsDir(), "lig1.pdbqt"), []byte("ATOM"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(l.Workdir, "resultado.csv"), []byte("x"), 0o644))

	path, err := l.Archive()
	require.NoError(t, err)

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	names := map[string]bool{}
	for _, zf := range zr.File {
		names[zf.Name] = true
	}
	assert.True(t, names["ligantes_pdbqt/lig1.pdbqt"])
	assert.True(t, names["resultado.csv"])
	assert.False(t, names[filepath.Base(path)])
}
