// Package structure holds the small amount of molecular-file parsing the
// engine needs: reading atom coordinates out of PDB/PDBQT records and
// resolving the grid box used by map generation and docking.
package structure

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// Point3 is a cartesian coordinate in angstroms.
type Point3 struct {
	X float64
	Y float64
	Z float64
}

// Centroid computes the arithmetic mean of all ATOM/HETATM coordinates in
// a PDB-format file.  PDB is a fixed-column format: X, Y and Z occupy
// columns 31-38, 39-46 and 47-54.  Records that are too short or carry
// unparseable coordinates are skipped.  ok is false when the file holds
// no usable atom records.
func Centroid(path string) (c Point3, ok bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return Point3{}, false, err
	}
	defer f.Close()

	var sum Point3
	var n int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "ATOM") && !strings.HasPrefix(line, "HETATM") {
			continue
		}
		if len(line) < 54 {
			continue
		}
		x, errX := parseCoord(line[30:38])
		y, errY := parseCoord(line[38:46])
		z, errZ := parseCoord(line[46:54])
		if errX != nil || errY != nil || errZ != nil {
			continue
		}
		sum.X += x
		sum.Y += y
		sum.Z += z
		n++
	}
	if err := sc.Err(); err != nil {
		return Point3{}, false, err
	}
	if n == 0 {
		return Point3{}, false, nil
	}
	fn := float64(n)
	return Point3{X: sum.X / fn, Y: sum.Y / fn, Z: sum.Z / fn}, true, nil
}

func parseCoord(field string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(field), 64)
}
