package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrMalformedRow indicates a catalogue line that could not be parsed.
	ErrMalformedRow = errors.New("malformed catalogue row")

	// ErrBadColumn indicates a negative column index.
	ErrBadColumn = errors.New("invalid catalogue column")

	// ErrDuplicateID indicates two catalogue rows with the same halo ID.
	ErrDuplicateID = errors.New("duplicate halo id")
)

// Columns gives the zero-based column index of each halo field in a text
// catalogue, plus the factors that convert catalogue units to code units.
type Columns struct {
	ID, X, Y, Z, Radius, Mstar int

	PosScale    float64 // 0 means 1
	RadiusScale float64 // 0 means 1
	MassScale   float64 // 0 means 1
}

// DefaultColumns reads "id x y z rvir mstar" with no unit conversion.
var DefaultColumns = Columns{ID: 0, X: 1, Y: 2, Z: 3, Radius: 4, Mstar: 5}

// Validate reports the first negative column index.
func (c Columns) Validate() error {
	named := []struct {
		name string
		idx  int
	}{
		{"id", c.ID}, {"x", c.X}, {"y", c.Y}, {"z", c.Z}, {"radius", c.Radius}, {"mstar", c.Mstar},
	}
	for _, n := range named {
		if n.idx < 0 {
			return fmt.Errorf("%w: %s = %d, must be >= 0", ErrBadColumn, n.name, n.idx)
		}
	}
	return nil
}

func (c Columns) maxIndex() int {
	m := c.ID
	for _, v := range []int{c.X, c.Y, c.Z, c.Radius, c.Mstar} {
		if v > m {
			m = v
		}
	}
	return m
}

func scale(s float64) float64 {
	if s == 0 {
		return 1
	}
	return s
}

// Load reads a whitespace-separated halo catalogue from path.
func Load(path string, cols Columns) ([]Halo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()

	halos, err := Read(f, cols)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return halos, nil
}

// Read parses a text catalogue. Blank lines and lines starting with '#'
// are skipped. Halo IDs must be unique.
func Read(r io.Reader, cols Columns) ([]Halo, error) {
	if err := cols.Validate(); err != nil {
		return nil, err
	}
	var halos []Halo
	firstSeen := make(map[int64]int)
	need := cols.maxIndex() + 1
	posScale := scale(cols.PosScale)
	radiusScale := scale(cols.RadiusScale)
	massScale := scale(cols.MassScale)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < need {
			return nil, fmt.Errorf("%w: line %d: %d columns, need %d", ErrMalformedRow, lineNo, len(fields), need)
		}

		id, err := strconv.ParseInt(fields[cols.ID], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: id: %v", ErrMalformedRow, lineNo, err)
		}
		if prev, ok := firstSeen[id]; ok {
			return nil, fmt.Errorf("%w: line %d: id %d already on line %d", ErrDuplicateID, lineNo, id, prev)
		}
		firstSeen[id] = lineNo
		var vals [5]float64
		for i, c := range []int{cols.X, cols.Y, cols.Z, cols.Radius, cols.Mstar} {
			v, err := strconv.ParseFloat(fields[c], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: column %d: %v", ErrMalformedRow, lineNo, c, err)
			}
			vals[i] = v
		}

		halos = append(halos, Halo{
			ID:     id,
			Pos:    Vec3{vals[0] * posScale, vals[1] * posScale, vals[2] * posScale},
			Radius: vals[3] * radiusScale,
			Mstar:  vals[4] * massScale,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading catalogue: %w", err)
	}
	return halos, nil
}
