// Package docking interprets AutoDock-GPU output: it pulls the XML run
// report out of the tool's stdout and selects the best pose from the
// RMSD table.
//
// Nothing in this package returns an error.  An absent or unparsable
// report means "no result"; whether that is fatal belongs to the caller
// (a preparation trial tolerates it, a batch pair records it as a
// failure).
package docking

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"
)

// Pose is one entry of the AutoDock-GPU RMSD table.
type Pose struct {
	Run           int
	ReferenceRMSD float64
	BindingEnergy float64
}

// Outcome is the verdict of one docking invocation.  HasPose is false
// when the engine ran but emitted no parsable report; the tool exits
// zero in that case, so the distinction "no poses" vs "silent crash" is
// not observable here.
type Outcome struct {
	Ran     bool
	HasPose bool
	Best    Pose
}

const (
	xmlProlog   = "<?xml"
	xmlRootOpen = "<autodock_gpu"
	xmlRootEnd  = "</autodock_gpu>"
)

// ExtractReportXML locates the XML report embedded in AutoDock-GPU's
// stdout, which surrounds it with free-form progress text.  The returned
// string spans from the XML prolog (or the root element, when the tool
// omits the prolog) through the closing root tag.  ok is false when no
// report is present.
func ExtractReportXML(stdout string) (string, bool) {
	start := strings.Index(stdout, xmlProlog)
	if start < 0 {
		start = strings.Index(stdout, xmlRootOpen)
	}
	end := strings.Index(stdout, xmlRootEnd)
	if start < 0 || end < 0 || end < start {
		return "", false
	}
	return stdout[start : end+len(xmlRootEnd)], true
}

// ParseReport decodes the rmsd_table run entries from an AutoDock-GPU
// XML report.  The table's position inside the document varies between
// tool versions, so the decoder walks the token stream instead of
// relying on a fixed element path.  A run entry with a missing or
// non-numeric attribute is skipped and parsing moves on to the next;
// a document that stops parsing outright yields whatever entries
// preceded the damage.
func ParseReport(r io.Reader) []Pose {
	dec := xml.NewDecoder(r)
	var poses []Pose
	inTable := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return poses
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "rmsd_table":
				inTable = true
			case "run":
				if !inTable {
					continue
				}
				p, ok := poseFromAttrs(el.Attr)
				if err := dec.Skip(); err != nil {
					if ok {
						poses = append(poses, p)
					}
					return poses
				}
				if ok {
					poses = append(poses, p)
				}
			}
		case xml.EndElement:
			if el.Name.Local == "rmsd_table" {
				inTable = false
			}
		}
	}
}

// poseFromAttrs reads a run element's attributes.  ok is false unless
// all three of run, reference_rmsd and binding_energy are present and
// numeric.
func poseFromAttrs(attrs []xml.Attr) (Pose, bool) {
	var (
		p    Pose
		seen int
	)
	for _, a := range attrs {
		var err error
		switch a.Name.Local {
		case "run":
			p.Run, err = strconv.Atoi(a.Value)
		case "reference_rmsd":
			p.ReferenceRMSD, err = strconv.ParseFloat(a.Value, 64)
		case "binding_energy":
			p.BindingEnergy, err = strconv.ParseFloat(a.Value, 64)
		default:
			continue
		}
		if err != nil {
			return Pose{}, false
		}
		seen++
	}
	return p, seen == 3
}

// BestPose selects the run with the lowest reference RMSD.  The binding
// energy and run index reported alongside belong to that same run, never
// to a mix of runs.  On an exact RMSD tie the earlier entry wins.  ok is
// false for an empty table.
func BestPose(poses []Pose) (best Pose, ok bool) {
	for i, p := range poses {
		if i == 0 || p.ReferenceRMSD < best.ReferenceRMSD {
			best = p
			ok = true
		}
	}
	return best, ok
}
