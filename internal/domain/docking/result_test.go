package docking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `<?xml version="1.0" ?>
<autodock_gpu>
  <version>1.5.3</version>
  <result>
    <rmsd_table>
      <run run="1" reference_rmsd="2.1" binding_energy="-5.0"/>
      <run run="2" reference_rmsd="1.3" binding_energy="-6.2"/>
      <run run="3" reference_rmsd="4.0" binding_energy="-9.9"/>
    </rmsd_table>
  </result>
</autodock_gpu>`

func TestExtractReportXML(t *testing.T) {
	stdout := "AutoDock-GPU version 1.5.3\nrunning...\n" + sampleReport + "\nAll jobs ran without errors.\n"
	doc, ok := ExtractReportXML(stdout)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(doc, "<?xml"))
	assert.True(t, strings.HasSuffix(doc, "</autodock_gpu>"))
}

func TestExtractReportXMLWithoutProlog(t *testing.T) {
	body := "noise\n<autodock_gpu><rmsd_table/></autodock_gpu>\nmore noise"
	doc, ok := ExtractReportXML(body)
	require.True(t, ok)
	assert.Equal(t, "<autodock_gpu><rmsd_table/></autodock_gpu>", doc)
}

func TestExtractReportXMLMissing(t *testing.T) {
	_, ok := ExtractReportXML("CUDA error: out of memory")
	assert.False(t, ok)
}

func TestParseReport(t *testing.T) {
	poses := ParseReport(strings.NewReader(sampleReport))
	require.Len(t, poses, 3)
	assert.Equal(t, Pose{Run: 2, ReferenceRMSD: 1.3, BindingEnergy: -6.2}, poses[1])
}

func TestParseReportIgnoresRunsOutsideTable(t *testing.T) {
	doc := `<autodock_gpu>
  <runs><run run="9" reference_rmsd="0.1" binding_energy="-1.0"/></runs>
  <rmsd_table><run run="1" reference_rmsd="2.0" binding_energy="-3.0"/></rmsd_table>
</autodock_gpu>`
	poses := ParseReport(strings.NewReader(doc))
	require.Len(t, poses, 1)
	assert.Equal(t, 1, poses[0].Run)
}

func TestParseReportSkipsMalformedRuns(t *testing.T) {
	doc := `<autodock_gpu><rmsd_table>
<run run="1" reference_rmsd="N/A" binding_energy="-5.0"/>
<run run="2" reference_rmsd="1.3" binding_energy="-6.2"/>
<run run="x" reference_rmsd="3.0" binding_energy="-4.0"/>
<run run="4" binding_energy="-2.0"/>
<run run="5" reference_rmsd="2.5" binding_energy="-7.1"/>
</rmsd_table></autodock_gpu>`
	poses := ParseReport(strings.NewReader(doc))
	require.Len(t, poses, 2)
	assert.Equal(t, Pose{Run: 2, ReferenceRMSD: 1.3, BindingEnergy: -6.2}, poses[0])
	assert.Equal(t, Pose{Run: 5, ReferenceRMSD: 2.5, BindingEnergy: -7.1}, poses[1])
}

func TestParseReportKeepsEntriesBeforeDamage(t *testing.T) {
	doc := `<autodock_gpu><rmsd_table>
<run run="1" reference_rmsd="2.0" binding_energy="-3.0"/>
<run run="2" reference_rmsd="broken`
	poses := ParseReport(strings.NewReader(doc))
	require.Len(t, poses, 1)
	assert.Equal(t, 1, poses[0].Run)
}

func TestParseReportUnparsableDocument(t *testing.T) {
	assert.Empty(t, ParseReport(strings.NewReader("not xml at all")))
}

func TestBestPosePicksLowestRMSD(t *testing.T) {
	best, ok := BestPose([]Pose{
		{Run: 1, ReferenceRMSD: 2.1, BindingEnergy: -5.0},
		{Run: 2, ReferenceRMSD: 1.3, BindingEnergy: -6.2},
		{Run: 3, ReferenceRMSD: 4.0, BindingEnergy: -9.9},
	})
	require.True(t, ok)
	// The stronger -9.9 energy must not leak in: energy and run index
	// travel with the minimum-RMSD entry.
	assert.Equal(t, Pose{Run: 2, ReferenceRMSD: 1.3, BindingEnergy: -6.2}, best)
}

func TestBestPoseTieKeepsFirst(t *testing.T) {
	best, ok := BestPose([]Pose{
		{Run: 4, ReferenceRMSD: 1.0, BindingEnergy: -2.0},
		{Run: 7, ReferenceRMSD: 1.0, BindingEnergy: -8.0},
	})
	require.True(t, ok)
	assert.Equal(t, 4, best.Run)
}

func TestBestPoseEmpty(t *testing.T) {
	_, ok := BestPose(nil)
	assert.False(t, ok)
}
