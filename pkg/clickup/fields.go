package clickup

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FieldMapping holds the custom-field IDs the uploader writes lead data to.
// It is resolved once per list and cached to disk so repeat uploads skip
// discovery.
type FieldMapping struct {
	Company          string `yaml:"company,omitempty"`
	Email            string `yaml:"email,omitempty"`
	Phone            string `yaml:"phone,omitempty"`
	EstimatedValue   string `yaml:"estimated_value,omitempty"`
	LastContact      string `yaml:"last_contact,omitempty"`
	OpportunityStage string `yaml:"opportunity_stage,omitempty"`
	OpportunityType  string `yaml:"opportunity_type,omitempty"`
}

// ResolveFieldMapping matches a list's custom fields to lead attributes by
// name. Each field claims at most one attribute; the first name match wins.
func ResolveFieldMapping(fields []Field) FieldMapping {
	var m FieldMapping

	claim := func(slot *string, id string) {
		if *slot == "" {
			*slot = id
		}
	}

	for _, f := range fields {
		name := strings.ToLower(f.Name)
		switch {
		case strings.Contains(name, "company"):
			claim(&m.Company, f.ID)
		case strings.Contains(name, "email"):
			claim(&m.Email, f.ID)
		case strings.Contains(name, "phone"):
			claim(&m.Phone, f.ID)
		case strings.Contains(name, "value"), strings.Contains(name, "amount"):
			claim(&m.EstimatedValue, f.ID)
		case strings.Contains(name, "contact") && strings.Contains(name, "last"):
			claim(&m.LastContact, f.ID)
		case strings.Contains(name, "stage") && strings.Contains(name, "opportunity"):
			claim(&m.OpportunityStage, f.ID)
		case strings.Contains(name, "type") && strings.Contains(name, "opportunity"):
			claim(&m.OpportunityType, f.ID)
		}
	}
	return m
}

// Complete reports whether the core upload fields all resolved.
func (m FieldMapping) Complete() bool {
	return m.Company != "" && m.Email != "" && m.Phone != "" && m.EstimatedValue != ""
}

// LoadFieldMapping reads a cached mapping from a YAML file.
func LoadFieldMapping(path string) (*FieldMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "clickup: read field mapping %s", path)
	}
	var m FieldMapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "clickup: parse field mapping %s", path)
	}
	return &m, nil
}

// Save writes the mapping to a YAML file.
func (m FieldMapping) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "clickup: marshal field mapping")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "clickup: write field mapping %s", path)
	}
	return nil
}
