package portal

import (
	"errors"
	"fmt"
)

// Catalog is a complete, versioned set of subjects, folders and materials.
// The seed catalog ships inside the binary; Repository.Snapshot produces the
// next one for publishing.
type Catalog struct {
	Version   int64      `json:"version" toml:"version"`
	Subjects  []Subject  `json:"subjects" toml:"subjects"`
	Folders   []Folder   `json:"folders" toml:"folders"`
	Materials []Material `json:"materials" toml:"materials"`
}

// Clone returns a deep copy of c.
func (c Catalog) Clone() Catalog {
	return Catalog{
		Version:   c.Version,
		Subjects:  append([]Subject(nil), c.Subjects...),
		Folders:   append([]Folder(nil), c.Folders...),
		Materials: append([]Material(nil), c.Materials...),
	}
}

// FolderIDs returns the set of folder ids in c.
func (c Catalog) FolderIDs() map[string]bool {
	ids := make(map[string]bool, len(c.Folders))
	for _, f := range c.Folders {
		ids[f.ID] = true
	}
	return ids
}

// MaterialIDs returns the set of material ids in c.
func (c Catalog) MaterialIDs() map[string]bool {
	ids := make(map[string]bool, len(c.Materials))
	for _, m := range c.Materials {
		ids[m.ID] = true
	}
	return ids
}

// Validate checks the catalog invariants: non-empty unique ids per type,
// materials of a known type, and folder references that resolve.
// All problems are reported together.
func (c Catalog) Validate() error {
	var errs []error

	subjects := make(map[string]bool, len(c.Subjects))
	for i, s := range c.Subjects {
		switch {
		case s.ID == "":
			errs = append(errs, fmt.Errorf("subject %d: empty id", i))
		case subjects[s.ID]:
			errs = append(errs, fmt.Errorf("subject %s: duplicate id", s.ID))
		}
		subjects[s.ID] = true
	}

	folders := make(map[string]bool, len(c.Folders))
	for i, f := range c.Folders {
		switch {
		case f.ID == "":
			errs = append(errs, fmt.Errorf("folder %d: empty id", i))
		case folders[f.ID]:
			errs = append(errs, fmt.Errorf("folder %s: duplicate id", f.ID))
		}
		folders[f.ID] = true
	}

	materials := make(map[string]bool, len(c.Materials))
	for i, m := range c.Materials {
		switch {
		case m.ID == "":
			errs = append(errs, fmt.Errorf("material %d: empty id", i))
		case materials[m.ID]:
			errs = append(errs, fmt.Errorf("material %s: duplicate id", m.ID))
		}
		materials[m.ID] = true

		if !m.Type.Valid() {
			errs = append(errs, fmt.Errorf("material %s: unknown type %q", m.ID, m.Type))
		}
		if m.FolderID != "" && !folders[m.FolderID] {
			errs = append(errs, fmt.Errorf("material %s: folder %s does not exist", m.ID, m.FolderID))
		}
		if m.Source == SourceNone && m.URL != "" {
			errs = append(errs, fmt.Errorf("material %s: url set without a source", m.ID))
		}
	}

	return errors.Join(errs...)
}
