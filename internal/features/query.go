// Package features turns declarative feature requests into per-cell feature
// tables.
package features

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sucolo/hexfeat/internal/model"
)

// Kind identifies how an amenity query is turned into a value.
type Kind string

// Feature kinds. The kind is also the column name prefix.
const (
	KindNearest  Kind = "nearest"
	KindCount    Kind = "count"
	KindPresence Kind = "present"
)

// AmenityQuery asks for one amenity within a radius in meters. Penalty,
// when set, replaces a missing nearest distance with Radius+Penalty.
type AmenityQuery struct {
	Amenity string `json:"amenity" yaml:"amenity"`
	Radius  int    `json:"radius" yaml:"radius"`
	Penalty *int   `json:"penalty,omitempty" yaml:"penalty,omitempty"`
}

// Penalty is a helper for building an AmenityQuery penalty.
func Penalty(p int) *int { return &p }

// NewAmenityQuery validates and builds an AmenityQuery.
func NewAmenityQuery(amenity string, radius int, penalty *int) (AmenityQuery, error) {
	q := AmenityQuery{Amenity: amenity, Radius: radius, Penalty: penalty}
	if err := q.validate(); err != nil {
		return AmenityQuery{}, err
	}
	return q, nil
}

func (q AmenityQuery) validate() error {
	if strings.TrimSpace(q.Amenity) == "" {
		return eris.Wrap(model.ErrInvalidRequest, "amenity is required")
	}
	if q.Radius <= 0 {
		return eris.Wrapf(model.ErrInvalidRequest, "amenity %q: radius must be positive, got %d", q.Amenity, q.Radius)
	}
	if q.Penalty != nil && *q.Penalty < 0 {
		return eris.Wrapf(model.ErrInvalidRequest, "amenity %q: penalty must not be negative, got %d", q.Amenity, *q.Penalty)
	}
	return nil
}

// StaticQuery selects static cell attributes by their raw names.
type StaticQuery struct {
	Columns []string `json:"columns" yaml:"columns"`
}

// FeatureRequest is a validated request. It can only be built through
// NewFeatureRequest or RequestSpec.Build, so holding one means it passed
// validation.
type FeatureRequest struct {
	city     string
	nearest  []AmenityQuery
	count    []AmenityQuery
	presence []AmenityQuery
	static   *StaticQuery
}

// NewFeatureRequest validates the request groups and builds a request.
func NewFeatureRequest(city string, nearest, count, presence []AmenityQuery, static *StaticQuery) (*FeatureRequest, error) {
	r := &FeatureRequest{
		city:     model.NormalizeCity(city),
		nearest:  nearest,
		count:    count,
		presence: presence,
		static:   static,
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FeatureRequest) validate() error {
	if r.city == "" {
		return eris.Wrap(model.ErrInvalidRequest, "city is required")
	}
	if len(r.nearest) == 0 && len(r.count) == 0 && len(r.presence) == 0 && (r.static == nil || len(r.static.Columns) == 0) {
		return eris.Wrap(model.ErrInvalidRequest, "at least one feature group has to be defined")
	}

	seen := make(map[string]bool)
	for _, sq := range r.subQueries() {
		if sq.kind != "" {
			if err := sq.amenity.validate(); err != nil {
				return err
			}
		} else if strings.TrimSpace(sq.column) == "" {
			return eris.Wrap(model.ErrInvalidRequest, "static column name is required")
		} else if strings.ContainsAny(sq.column, "*.") {
			// Static columns are read through _source filtering, which treats these as patterns.
			return eris.Wrapf(model.ErrInvalidRequest, "static column %q must not contain '*' or '.'", sq.column)
		}
		if seen[sq.column] {
			return eris.Wrapf(model.ErrInvalidRequest, "column %q requested more than once", sq.column)
		}
		seen[sq.column] = true
	}
	return nil
}

// City returns the normalized city name.
func (r *FeatureRequest) City() string { return r.city }

// Nearest returns the nearest-distance queries.
func (r *FeatureRequest) Nearest() []AmenityQuery { return r.nearest }

// Count returns the count queries.
func (r *FeatureRequest) Count() []AmenityQuery { return r.count }

// Presence returns the presence queries.
func (r *FeatureRequest) Presence() []AmenityQuery { return r.presence }

// Static returns the static attribute query, or nil.
func (r *FeatureRequest) Static() *StaticQuery { return r.static }

// Columns returns the output column names in declaration order.
func (r *FeatureRequest) Columns() []string {
	sqs := r.subQueries()
	cols := make([]string, 0, len(sqs))
	for _, sq := range sqs {
		cols = append(cols, sq.column)
	}
	return cols
}

// ColumnName is the deterministic column name of an amenity feature.
func ColumnName(kind Kind, amenity string) string {
	return string(kind) + "_" + amenity
}

// subQuery is one unit of work: an amenity query of a given kind, or one
// static column (kind empty).
type subQuery struct {
	kind    Kind
	amenity AmenityQuery
	column  string
}

func (r *FeatureRequest) subQueries() []subQuery {
	var out []subQuery
	for _, q := range r.nearest {
		out = append(out, subQuery{kind: KindNearest, amenity: q, column: ColumnName(KindNearest, q.Amenity)})
	}
	for _, q := range r.count {
		out = append(out, subQuery{kind: KindCount, amenity: q, column: ColumnName(KindCount, q.Amenity)})
	}
	for _, q := range r.presence {
		out = append(out, subQuery{kind: KindPresence, amenity: q, column: ColumnName(KindPresence, q.Amenity)})
	}
	if r.static != nil {
		for _, c := range r.static.Columns {
			out = append(out, subQuery{column: c})
		}
	}
	return out
}

// RequestSpec is the wire form of a feature request, as read from JSON or
// YAML.
type RequestSpec struct {
	City     string         `json:"city" yaml:"city"`
	Nearest  []AmenityQuery `json:"nearest,omitempty" yaml:"nearest,omitempty"`
	Count    []AmenityQuery `json:"count,omitempty" yaml:"count,omitempty"`
	Presence []AmenityQuery `json:"presence,omitempty" yaml:"presence,omitempty"`
	Static   *StaticQuery   `json:"static,omitempty" yaml:"static,omitempty"`
}

// Build validates s into a FeatureRequest.
func (s RequestSpec) Build() (*FeatureRequest, error) {
	return NewFeatureRequest(s.City, s.Nearest, s.Count, s.Presence, s.Static)
}

// ParseRequest decodes and validates a request. YAML is a superset of JSON,
// so both encodings are accepted.
func ParseRequest(data []byte) (*FeatureRequest, error) {
	var spec RequestSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil && !errors.Is(err, io.EOF) {
		return nil, eris.Wrapf(model.ErrInvalidRequest, "decode request: %v", err)
	}
	return spec.Build()
}

// LoadRequestFile reads a YAML or JSON request file.
func LoadRequestFile(path string) (*FeatureRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "features: read request %s", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var spec RequestSpec
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&spec); err != nil {
			return nil, eris.Wrapf(model.ErrInvalidRequest, "decode request %s: %v", path, err)
		}
		return spec.Build()
	}
	return ParseRequest(data)
}
