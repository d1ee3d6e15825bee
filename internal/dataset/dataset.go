// Package dataset loads the tab-separated point files clustered by the sweep.
//
// Each non-blank line holds an identifier followed by one or more numeric
// coordinates:
//
//	A	0	0
//	B	0	1
//
// Identifiers are echoed in reports only. Every line must carry the same
// number of coordinates as the first.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/dbscan-sweep/internal/fsutil"
)

// Point is one input record.
type Point struct {
	ID     string
	Coords []float64
}

// Dataset is the ordered, read-only point set. Point i keeps index i in every
// matrix, index and assignment built from it.
type Dataset struct {
	Points []Point
	Dims   int
}

// Len returns the number of points.
func (d *Dataset) Len() int { return len(d.Points) }

// Coordinates returns the coordinate slices in point order. The slices alias
// the dataset's storage and must not be modified.
func (d *Dataset) Coordinates() [][]float64 {
	coords := make([][]float64, len(d.Points))
	for i, p := range d.Points {
		coords[i] = p.Coords
	}
	return coords
}

// IDs returns the point identifiers in point order.
func (d *Dataset) IDs() []string {
	ids := make([]string, len(d.Points))
	for i, p := range d.Points {
		ids[i] = p.ID
	}
	return ids
}

// MalformedInputError reports the first line that could not be loaded.
// Field is the 1-based column, or 0 when the whole line is at fault.
type MalformedInputError struct {
	Line   int
	Field  int
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	msg := fmt.Sprintf("dataset: line %d", e.Line)
	if e.Field > 0 {
		msg += fmt.Sprintf(" field %d", e.Field)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// maxLineSize caps a single input line.
const maxLineSize = 1024 * 1024

// Load reads a dataset from r. Blank lines and carriage returns before a
// newline are ignored. Fields are split on tabs only; quote characters carry
// no meaning and stay part of the field. Any malformed line fails the whole
// load with a *MalformedInputError.
func Load(r io.Reader) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	ds := &Dataset{}
	fields := 0
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		record := strings.Split(text, "\t")

		if len(record) < 2 {
			return nil, &MalformedInputError{Line: line, Reason: "no coordinates after identifier"}
		}
		if fields == 0 {
			fields = len(record)
			ds.Dims = fields - 1
		} else if len(record) != fields {
			return nil, &MalformedInputError{
				Line:   line,
				Reason: fmt.Sprintf("expected %d fields, got %d", fields, len(record)),
			}
		}

		p := Point{ID: record[0], Coords: make([]float64, ds.Dims)}
		for k := 1; k < len(record); k++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[k]), 64)
			if err != nil {
				return nil, &MalformedInputError{Line: line, Field: k + 1, Reason: "invalid coordinate", Err: err}
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &MalformedInputError{Line: line, Field: k + 1, Reason: fmt.Sprintf("non-finite coordinate %q", record[k])}
			}
			p.Coords[k-1] = v
		}
		ds.Points = append(ds.Points, p)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, &MalformedInputError{Line: line + 1, Reason: "line too long", Err: err}
		}
		return nil, fmt.Errorf("dataset: failed to read input: %w", err)
	}
	return ds, nil
}

// LoadFile opens path on the local filesystem and loads it with Load.
func LoadFile(path string) (*Dataset, error) {
	return LoadFS(fsutil.OSFileSystem{}, path)
}

// LoadFS opens path on fsys and loads it with Load.
func LoadFS(fsys fsutil.FileSystem, path string) (*Dataset, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	ds, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}
