// Package raster loads grid states from external sources. The file reader
// understands plain whitespace-separated grids and the ESRI ASCII header
// variant commonly produced by terrain tooling.
package raster

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
)

// Georeference anchors a grid in world coordinates. A zero value means the
// source carried no placement information.
type Georeference struct {
	OriginX    float64 `json:"origin_x"`
	OriginY    float64 `json:"origin_y"`
	CellWidth  float64 `json:"cell_width"`
	CellHeight float64 `json:"cell_height"`
}

// Source produces initial grid states for optimization runs.
type Source interface {
	Load(path string) (*optimization.Grid, Georeference, error)
}

// FileSource reads grids from the local filesystem.
type FileSource struct{}

// Load reads the file at path and parses it as a text grid.
func (FileSource) Load(path string) (*optimization.Grid, Georeference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Georeference{}, optimization.NewLoadError("open grid file", err)
	}
	defer f.Close()
	g, geo, err := Read(f)
	if err != nil {
		return nil, Georeference{}, optimization.NewLoadError(fmt.Sprintf("parse %s", path), err)
	}
	return g, geo, nil
}

// MemorySource serves preloaded grids by name, primarily for tests and
// embedded scenarios.
type MemorySource struct {
	grids map[string]*optimization.Grid
	geos  map[string]Georeference
}

// NewMemorySource creates an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		grids: make(map[string]*optimization.Grid),
		geos:  make(map[string]Georeference),
	}
}

// Add registers a grid under name, replacing any previous entry.
func (s *MemorySource) Add(name string, g *optimization.Grid, geo Georeference) {
	s.grids[name] = g
	s.geos[name] = geo
}

// Load returns a clone of the named grid, so callers cannot mutate the
// stored copy.
func (s *MemorySource) Load(name string) (*optimization.Grid, Georeference, error) {
	g, ok := s.grids[name]
	if !ok {
		return nil, Georeference{}, optimization.NewLoadError(fmt.Sprintf("no grid named %q", name), nil)
	}
	return g.Clone(), s.geos[name], nil
}

// header keys of the ESRI ASCII grid format, matched case-insensitively.
var headerKeys = map[string]struct{}{
	"ncols": {}, "nrows": {}, "xllcorner": {}, "yllcorner": {},
	"cellsize": {}, "nodata_value": {},
}

// Read parses a text grid from r. Leading "key value" header lines are
// consumed as ESRI ASCII metadata; the remainder must be rows of numbers
// with a consistent column count. The grid's domain spans the observed
// minimum and maximum values.
func Read(r io.Reader) (*optimization.Grid, Georeference, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	header := make(map[string]float64)
	var rows [][]float64
	cols := -1

	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) == 2 && len(rows) == 0 {
			key := strings.ToLower(fields[0])
			if _, ok := headerKeys[key]; ok {
				v, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					return nil, Georeference{}, fmt.Errorf("header %s: %w", key, err)
				}
				header[key] = v
				continue
			}
		}

		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, Georeference{}, fmt.Errorf("row %d: %w", len(rows)+1, err)
			}
			row[i] = v
		}
		if cols < 0 {
			cols = len(row)
		} else if len(row) != cols {
			return nil, Georeference{}, fmt.Errorf("row %d has %d columns, want %d", len(rows)+1, len(row), cols)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, Georeference{}, err
	}
	if len(rows) == 0 {
		return nil, Georeference{}, fmt.Errorf("no grid data")
	}
	if want, ok := header["nrows"]; ok && int(want) != len(rows) {
		return nil, Georeference{}, fmt.Errorf("header declares %d rows, found %d", int(want), len(rows))
	}
	if want, ok := header["ncols"]; ok && int(want) != cols {
		return nil, Georeference{}, fmt.Errorf("header declares %d columns, found %d", int(want), cols)
	}

	nodata, hasNodata := header["nodata_value"]
	lo, hi := math.Inf(1), math.Inf(-1)
	values := make([]float64, 0, len(rows)*cols)
	for ri, row := range rows {
		for ci, v := range row {
			if hasNodata && v == nodata {
				return nil, Georeference{}, fmt.Errorf("nodata cell at row %d col %d", ri+1, ci+1)
			}
			if !isFinite(v) {
				return nil, Georeference{}, fmt.Errorf("non-finite cell at row %d col %d", ri+1, ci+1)
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			values = append(values, v)
		}
	}

	g, err := optimization.NewGrid(len(rows), cols, optimization.Domain{Min: lo, Max: hi}, values)
	if err != nil {
		return nil, Georeference{}, err
	}

	geo := Georeference{
		OriginX:    header["xllcorner"],
		OriginY:    header["yllcorner"],
		CellWidth:  header["cellsize"],
		CellHeight: header["cellsize"],
	}
	return g, geo, nil
}

// Write emits the grid in the same text format Read accepts, including an
// ESRI ASCII header when geo carries placement information.
func Write(w io.Writer, g *optimization.Grid, geo Georeference) error {
	bw := bufio.NewWriter(w)
	if geo != (Georeference{}) {
		fmt.Fprintf(bw, "ncols %d\n", g.Cols())
		fmt.Fprintf(bw, "nrows %d\n", g.Rows())
		fmt.Fprintf(bw, "xllcorner %g\n", geo.OriginX)
		fmt.Fprintf(bw, "yllcorner %g\n", geo.OriginY)
		fmt.Fprintf(bw, "cellsize %g\n", geo.CellWidth)
	}
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			if c > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.FormatFloat(g.At(r, c), 'g', -1, 64))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
