package structure

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/plasmodock/plasmodock/pkg/errors"
)

// Grid is the resolved search box for map generation and docking: the
// number of grid points along each axis and the box center in angstroms.
type Grid struct {
	Size   [3]int
	Center Point3
}

// SizeSpec renders the point counts the way GPF files expect them,
// space separated.
func (g Grid) SizeSpec() string {
	return fmt.Sprintf("%d %d %d", g.Size[0], g.Size[1], g.Size[2])
}

// CenterSpec renders the box center with three decimals, space separated.
func (g Grid) CenterSpec() string {
	return fmt.Sprintf("%.3f %.3f %.3f", g.Center.X, g.Center.Y, g.Center.Z)
}

// splitTriplet tokenizes a grid triplet.  Both comma and whitespace
// separators are accepted, in any mix; exactly three tokens must remain.
func splitTriplet(text string) ([]string, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(fields) != 3 {
		return nil, errors.Newf(errors.ErrCodeGridInvalidSpec,
			"grid triplet %q has %d values, want 3", text, len(fields))
	}
	return fields, nil
}

// ParseSize parses a grid size triplet of whole point counts.
func ParseSize(text string) ([3]int, error) {
	var size [3]int
	fields, err := splitTriplet(text)
	if err != nil {
		return size, err
	}
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return size, errors.Newf(errors.ErrCodeGridInvalidSpec,
				"grid size value %q is not a whole number", f)
		}
		if n <= 0 {
			return size, errors.Newf(errors.ErrCodeGridInvalidSpec,
				"grid size value %d must be positive", n)
		}
		size[i] = n
	}
	return size, nil
}

// ParseCenter parses a grid center triplet of coordinates.
func ParseCenter(text string) (Point3, error) {
	fields, err := splitTriplet(text)
	if err != nil {
		return Point3{}, err
	}
	vals := make([]float64, 3)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Point3{}, errors.Newf(errors.ErrCodeGridInvalidSpec,
				"grid center value %q is not a number", f)
		}
		vals[i] = v
	}
	return Point3{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}

// ResolveGrid produces the search box from the stored receptor metadata.
// sizeText is mandatory.  centerText wins when present; otherwise the
// centroid of the reference ligand at ligandPath is used.  With neither a
// center nor a ligand the grid cannot be placed.
func ResolveGrid(sizeText, centerText, ligandPath string) (Grid, error) {
	if strings.TrimSpace(sizeText) == "" {
		return Grid{}, errors.New(errors.ErrCodeGridNoSize,
			"receptor has no grid size configured")
	}
	size, err := ParseSize(sizeText)
	if err != nil {
		return Grid{}, err
	}

	if strings.TrimSpace(centerText) != "" {
		center, err := ParseCenter(centerText)
		if err != nil {
			return Grid{}, err
		}
		return Grid{Size: size, Center: center}, nil
	}

	if ligandPath == "" {
		return Grid{}, errors.New(errors.ErrCodeGridNoCenter,
			"receptor has neither a grid center nor a reference ligand")
	}
	center, ok, err := Centroid(ligandPath)
	if err != nil {
		return Grid{}, errors.Wrap(err, errors.ErrCodeGridNoCenter,
			"reading reference ligand for grid center")
	}
	if !ok {
		return Grid{}, errors.Newf(errors.ErrCodeGridNoCenter,
			"reference ligand %s holds no atom records", ligandPath)
	}
	return Grid{Size: size, Center: center}, nil
}
