package portal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// editsFormatVersion is written into every persisted edit document.
const editsFormatVersion = 2

// EditSnapshot is the persisted delta between the seed catalog and the
// repository: records added locally, plus tombstones for deleted seed records.
type EditSnapshot struct {
	Version          int        `json:"version"`
	Modified         bool       `json:"modified"`
	Folders          []Folder   `json:"folders"`
	Materials        []Material `json:"materials"`
	DeletedFolders   []string   `json:"deletedFolders,omitempty"`
	DeletedMaterials []string   `json:"deletedMaterials,omitempty"`
}

// Empty reports whether the snapshot carries no edits at all.
func (s EditSnapshot) Empty() bool {
	return !s.Modified && len(s.Folders) == 0 && len(s.Materials) == 0 &&
		len(s.DeletedFolders) == 0 && len(s.DeletedMaterials) == 0
}

// LocalEditStore persists the local edit snapshot in a profile Storage.
// Persistence is best-effort: read problems fall back to an empty snapshot
// (and therefore to the seed catalog), write problems are returned for the
// caller to log.
type LocalEditStore struct {
	storage Storage
	logger  Logger
}

// NewLocalEditStore creates a LocalEditStore over storage.
func NewLocalEditStore(storage Storage, logger Logger) *LocalEditStore {
	return &LocalEditStore{storage: storage, logger: logger}
}

// Load reads the persisted snapshot.
// An absent record, an unmodified record, or a record that cannot be decoded
// yields an empty snapshot. Data under the legacy keys is migrated on first load.
func (s *LocalEditStore) Load() EditSnapshot {
	data, err := s.storage.Get(KeyEdits)
	if err != nil {
		s.logger.Warn("reading local edits failed, using seed catalog", "error", err)
		return EditSnapshot{}
	}
	if data == nil {
		return s.migrateLegacy()
	}

	var snap EditSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("discarding malformed local edits", "error", err)
		return EditSnapshot{}
	}
	if snap.Version != editsFormatVersion {
		s.logger.Warn("discarding local edits with unsupported format", "version", snap.Version)
		return EditSnapshot{}
	}
	if !snap.Modified {
		return EditSnapshot{}
	}
	return snap
}

// Save overwrites the persisted snapshot.
func (s *LocalEditStore) Save(snap EditSnapshot) error {
	snap.Version = editsFormatVersion
	if snap.Folders == nil {
		snap.Folders = []Folder{}
	}
	if snap.Materials == nil {
		snap.Materials = []Material{}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding local edits: %w", err)
	}
	if err := s.storage.Put(KeyEdits, data); err != nil {
		return fmt.Errorf("writing local edits: %w", err)
	}
	return nil
}

// Clear erases the persisted snapshot and any legacy records.
func (s *LocalEditStore) Clear() error {
	var errs []error
	for _, key := range []string{KeyEdits, LegacyKeyFolders, LegacyKeyMaterials} {
		if err := s.storage.Delete(key); err != nil {
			errs = append(errs, fmt.Errorf("deleting %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// migrateLegacy imports the full folder/material arrays written by earlier
// releases under separate keys. Reconciliation later drops any copy of a seed
// record, so importing the full arrays is safe. Unreadable legacy data is
// discarded: that loss is an intentional reset.
func (s *LocalEditStore) migrateLegacy() EditSnapshot {
	var folders []Folder
	var materials []Material
	found := false

	if data, err := s.storage.Get(LegacyKeyFolders); err != nil {
		s.logger.Warn("reading legacy folders failed", "error", err)
	} else if data != nil {
		found = true
		if err := json.Unmarshal(data, &folders); err != nil {
			s.logger.Warn("discarding malformed legacy folders", "error", err)
			folders = nil
		}
	}

	if data, err := s.storage.Get(LegacyKeyMaterials); err != nil {
		s.logger.Warn("reading legacy materials failed", "error", err)
	} else if data != nil {
		found = true
		if err := json.Unmarshal(data, &materials); err != nil {
			s.logger.Warn("discarding malformed legacy materials", "error", err)
			materials = nil
		}
	}

	if !found {
		return EditSnapshot{}
	}

	for i := range materials {
		materials[i].Source = legacySource(materials[i])
	}

	snap := EditSnapshot{
		Version:   editsFormatVersion,
		Modified:  len(folders) > 0 || len(materials) > 0,
		Folders:   folders,
		Materials: materials,
	}

	if snap.Modified {
		if err := s.Save(snap); err != nil {
			s.logger.Warn("persisting migrated local edits failed", "error", err)
			return snap
		}
	}
	for _, key := range []string{LegacyKeyFolders, LegacyKeyMaterials} {
		if err := s.storage.Delete(key); err != nil {
			s.logger.Warn("removing legacy key failed", "key", key, "error", err)
		}
	}

	s.logger.Info("migrated legacy local edits", "folders", len(folders), "materials", len(materials))
	if !snap.Modified {
		return EditSnapshot{}
	}
	return snap
}

// legacySource infers the source tag for records written before it existed.
// Object URLs ("blob:...") were only ever valid for the page that created them.
func legacySource(m Material) SourceKind {
	switch {
	case m.URL == "":
		return SourceNone
	case strings.HasPrefix(m.URL, "blob:"):
		return SourceSession
	default:
		return SourceLink
	}
}
