package lookuptable

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/couchcryptid/feature-prediction-service/internal/earthmodel"
)

// ErrInvalidTable reports a table document that cannot be interpolated.
var ErrInvalidTable = errors.New("invalid lookup table")

// Key identifies a table. Models are case-insensitive, phases are not
// ("P" and "p" are different phases).
type Key struct {
	Model string
	Phase string
}

// NewKey normalizes model and phase into a Key.
func NewKey(model, phase string) Key {
	return Key{
		Model: strings.ToLower(strings.TrimSpace(model)),
		Phase: strings.TrimSpace(phase),
	}
}

func (k Key) String() string { return k.Model + "/" + k.Phase }

// Values is a [depth][distance] sample grid whose JSON form uses null for
// missing samples.
type Values [][]float64

// UnmarshalJSON decodes null samples as NaN.
func (v *Values) UnmarshalJSON(data []byte) error {
	var rows [][]*float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	out := make(Values, len(rows))
	for i, row := range rows {
		out[i] = make([]float64, len(row))
		for j, s := range row {
			if s == nil {
				out[i][j] = math.NaN()
				continue
			}
			out[i][j] = *s
		}
	}
	*v = out
	return nil
}

// MarshalJSON encodes NaN samples as null.
func (v Values) MarshalJSON() ([]byte, error) {
	rows := make([][]*float64, len(v))
	for i, row := range v {
		rows[i] = make([]*float64, len(row))
		for j := range row {
			if !math.IsNaN(row[j]) {
				rows[i][j] = &row[j]
			}
		}
	}
	return json.Marshal(rows)
}

// Grid is a sampled quantity over depth (km) and distance (degrees).
type Grid struct {
	DepthsKm     []float64 `json:"depths_km"`
	DistancesDeg []float64 `json:"distances_deg"`
	Values       Values    `json:"values"`
}

// Missing counts the undefined samples of the grid.
func (g Grid) Missing() int {
	n := 0
	for _, row := range g.Values {
		for _, v := range row {
			if math.IsNaN(v) {
				n++
			}
		}
	}
	return n
}

// Table is one travel-time lookup table.
type Table struct {
	Model         string `json:"model"`
	Phase         string `json:"phase"`
	Units         string `json:"units,omitempty"`
	TravelTime    Grid   `json:"travel_time"`
	ModelingError *Grid  `json:"modeling_error,omitempty"`

	// Source is the file the table was read from, if any.
	Source string `json:"-"`
}

// Key returns the registry key of the table.
func (t *Table) Key() Key { return NewKey(t.Model, t.Phase) }

// Validate checks the document and both grids against the structural
// requirements of the interpolator.
func (t *Table) Validate() error {
	if strings.TrimSpace(t.Model) == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidTable)
	}
	if strings.TrimSpace(t.Phase) == "" {
		return fmt.Errorf("%w: phase is required", ErrInvalidTable)
	}
	if _, err := earthmodel.NewUtility(t.TravelTime.DepthsKm, t.TravelTime.DistancesDeg, t.TravelTime.Values, false); err != nil {
		return fmt.Errorf("%w: %s travel_time: %w", ErrInvalidTable, t.Key(), err)
	}
	if t.ModelingError != nil {
		if _, err := earthmodel.NewUtility(t.ModelingError.DepthsKm, t.ModelingError.DistancesDeg, t.ModelingError.Values, false); err != nil {
			return fmt.Errorf("%w: %s modeling_error: %w", ErrInvalidTable, t.Key(), err)
		}
	}
	return nil
}

// Decode reads and validates one table document.
func Decode(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var t Table
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("decode lookup table: %w", err)
	}
	t.Model = strings.TrimSpace(t.Model)
	t.Phase = strings.TrimSpace(t.Phase)
	if t.Units == "" {
		t.Units = "seconds"
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Encode writes t as an indented JSON document.
func Encode(w io.Writer, t *Table) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("encode lookup table %s: %w", t.Key(), err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
