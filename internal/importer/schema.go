package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// PlanDocument is the top-level structure of a plan import file. Records
// reference each other by ref; real ids are assigned on conversion.
type PlanDocument struct {
	Macrocycle  MacrocycleImport   `json:"macrocycle" toml:"macrocycle" yaml:"macrocycle"`
	Defaults    *DefaultsImport    `json:"defaults,omitempty" toml:"defaults,omitempty" yaml:"defaults,omitempty"`
	Mesocycles  []MesocycleImport  `json:"mesocycles" toml:"mesocycles" yaml:"mesocycles"`
	Microcycles []MicrocycleImport `json:"microcycles,omitempty" toml:"microcycles,omitempty" yaml:"microcycles,omitempty"`
	Sessions    []SessionImport    `json:"sessions,omitempty" toml:"sessions,omitempty" yaml:"sessions,omitempty"`
}

type MacrocycleImport struct {
	Name      string  `json:"name" toml:"name" yaml:"name"`
	Season    *string `json:"season,omitempty" toml:"season,omitempty" yaml:"season,omitempty"`
	StartDate string  `json:"start_date" toml:"start_date" yaml:"start_date"`
	EndDate   string  `json:"end_date" toml:"end_date" yaml:"end_date"`
	Goal      *string `json:"goal,omitempty" toml:"goal,omitempty" yaml:"goal,omitempty"`
	Notes     *string `json:"notes,omitempty" toml:"notes,omitempty" yaml:"notes,omitempty"`
	Status    string  `json:"status,omitempty" toml:"status,omitempty" yaml:"status,omitempty"`
	CreatedBy *string `json:"created_by,omitempty" toml:"created_by,omitempty" yaml:"created_by,omitempty"`
}

// DefaultsImport cascades to every session that leaves the field empty.
type DefaultsImport struct {
	SessionType string  `json:"session_type,omitempty" toml:"session_type,omitempty" yaml:"session_type,omitempty"`
	TrainerID   *string `json:"trainer_id,omitempty" toml:"trainer_id,omitempty" yaml:"trainer_id,omitempty"`
}

type MesocycleImport struct {
	Ref       string  `json:"ref" toml:"ref" yaml:"ref"`
	Name      string  `json:"name" toml:"name" yaml:"name"`
	StartDate string  `json:"start_date" toml:"start_date" yaml:"start_date"`
	EndDate   string  `json:"end_date" toml:"end_date" yaml:"end_date"`
	Phase     *string `json:"phase,omitempty" toml:"phase,omitempty" yaml:"phase,omitempty"`
	Focus     *string `json:"focus,omitempty" toml:"focus,omitempty" yaml:"focus,omitempty"`
	Goal      *string `json:"goal,omitempty" toml:"goal,omitempty" yaml:"goal,omitempty"`
	Order     int     `json:"order" toml:"order" yaml:"order"`
}

type MicrocycleImport struct {
	Ref          string  `json:"ref" toml:"ref" yaml:"ref"`
	MesocycleRef string  `json:"mesocycle_ref" toml:"mesocycle_ref" yaml:"mesocycle_ref"`
	Name         string  `json:"name" toml:"name" yaml:"name"`
	Week         int     `json:"week" toml:"week" yaml:"week"`
	StartDate    *string `json:"start_date,omitempty" toml:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate      *string `json:"end_date,omitempty" toml:"end_date,omitempty" yaml:"end_date,omitempty"`
	Focus        *string `json:"focus,omitempty" toml:"focus,omitempty" yaml:"focus,omitempty"`
	Load         *string `json:"load,omitempty" toml:"load,omitempty" yaml:"load,omitempty"`
}

// SessionImport hangs off a microcycle, a mesocycle, or the macrocycle
// itself when both refs are empty.
type SessionImport struct {
	MicrocycleRef string  `json:"microcycle_ref,omitempty" toml:"microcycle_ref,omitempty" yaml:"microcycle_ref,omitempty"`
	MesocycleRef  string  `json:"mesocycle_ref,omitempty" toml:"mesocycle_ref,omitempty" yaml:"mesocycle_ref,omitempty"`
	Name          *string `json:"name,omitempty" toml:"name,omitempty" yaml:"name,omitempty"`
	Date          string  `json:"date" toml:"date" yaml:"date"`
	Type          string  `json:"type,omitempty" toml:"type,omitempty" yaml:"type,omitempty"`
	Order         int     `json:"order" toml:"order" yaml:"order"`
	TrainerID     *string `json:"trainer_id,omitempty" toml:"trainer_id,omitempty" yaml:"trainer_id,omitempty"`
	Notes         *string `json:"notes,omitempty" toml:"notes,omitempty" yaml:"notes,omitempty"`
}

// Format is the serialization of a plan document.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported plan file extension %q (want .json, .toml, .yaml or .yml)", filepath.Ext(path))
	}
}

// LoadPlanDocument reads and parses a plan file in the format implied by its
// extension.
func LoadPlanDocument(path string) (*PlanDocument, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePlanDocument(data, format)
}

// ParsePlanDocument decodes data. Unknown fields are rejected in every format.
func ParsePlanDocument(data []byte, format Format) (*PlanDocument, error) {
	var doc PlanDocument
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parsing plan file: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &doc)
		if err != nil {
			return nil, fmt.Errorf("parsing plan file: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parsing plan file: unknown field %q", undecoded[0].String())
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parsing plan file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported plan format %q", format)
	}
	return &doc, nil
}
