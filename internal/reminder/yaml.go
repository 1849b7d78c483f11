package reminder

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type yamlDocument struct {
	Reminders []Reminder `yaml:"reminders"`
	Settings  *Settings  `yaml:"settings,omitempty"`
}

// ExportYAML writes set (sorted by name) and, when non-nil, settings.
func ExportYAML(w io.Writer, set Set, settings *Settings) error {
	doc := yamlDocument{Settings: settings}
	for _, n := range set.Names() {
		doc.Reminders = append(doc.Reminders, set[n])
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// ImportYAML reads a document written by ExportYAML. Every reminder is
// validated and names must be unique.
func ImportYAML(r io.Reader) (Set, *Settings, error) {
	var doc yamlDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, nil, fmt.Errorf("decode yaml: %w", err)
	}
	set := make(Set, len(doc.Reminders))
	for i, rem := range doc.Reminders {
		if err := rem.Validate(); err != nil {
			return nil, nil, fmt.Errorf("reminder %d: %w", i+1, err)
		}
		if _, dup := set[rem.Name]; dup {
			return nil, nil, fmt.Errorf("reminder %d: %w: %q", i+1, ErrDuplicateName, rem.Name)
		}
		set[rem.Name] = rem
	}
	if doc.Settings != nil {
		if err := doc.Settings.Validate(); err != nil {
			return nil, nil, fmt.Errorf("settings: %w", err)
		}
	}
	return set, doc.Settings, nil
}
