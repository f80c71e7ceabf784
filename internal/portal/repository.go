package portal

import (
	"fmt"
	"strings"
	"sync"
)

// Repository is the authoritative in-memory view of folders and materials for
// a running session: the seed catalog merged with the local edit store.
// Every mutation marks the repository modified and rewrites the persisted
// delta; persistence failures are logged, never returned.
// This implementation is safe for concurrent use.
type Repository struct {
	seed          Catalog
	seedFolders   map[string]bool
	seedMaterials map[string]bool

	edits    *LocalEditStore
	sessions SessionResources
	logger   Logger
	clock    Clock
	idgen    IDGenerator

	mu        sync.RWMutex
	folders   []Folder
	materials []Material
	modified  bool
}

// NewRepository builds a Repository from the seed catalog and loads the local
// edits on top of it. sessions may be nil when uploads are not supported.
func NewRepository(seed Catalog, edits *LocalEditStore, sessions SessionResources, logger Logger, clock Clock, idgen IDGenerator) *Repository {
	seed = seed.Clone()
	r := &Repository{
		seed:          seed,
		seedFolders:   seed.FolderIDs(),
		seedMaterials: seed.MaterialIDs(),
		edits:         edits,
		sessions:      sessions,
		logger:        logger,
		clock:         clock,
		idgen:         idgen,
	}
	r.Reload()
	return r
}

// Reload discards in-memory state and rebuilds it from the seed catalog and
// the local edit store.
func (r *Repository) Reload() {
	snap := r.edits.Load()
	res := Reconcile(r.seed, snap)

	r.mu.Lock()
	r.folders = res.Folders
	r.materials = res.Materials
	r.modified = snap.Modified
	r.mu.Unlock()

	for _, s := range res.Skipped {
		r.logger.Warn("ignoring persisted record", "reason", s)
	}
	if res.Detached > 0 {
		r.logger.Info("materials moved to uncategorized", "count", res.Detached)
	}
	r.logger.Debug("repository loaded",
		"folders", len(res.Folders),
		"materials", len(res.Materials),
		"modified", snap.Modified,
		"seed_version", r.seed.Version,
	)
}

// Queries

// Subjects returns every subject in the seed catalog.
func (r *Repository) Subjects() []Subject {
	return append([]Subject(nil), r.seed.Subjects...)
}

// Subject returns a subject by id.
func (r *Repository) Subject(id string) (Subject, bool) {
	for _, s := range r.seed.Subjects {
		if s.ID == id {
			return s, true
		}
	}
	return Subject{}, false
}

// FoldersForSubject returns the folders of a subject.
func (r *Repository) FoldersForSubject(subjectID string) []Folder {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Folder
	for _, f := range r.folders {
		if f.SubjectID == subjectID {
			out = append(out, f)
		}
	}
	return out
}

// Folder returns a folder by id.
func (r *Repository) Folder(id string) (Folder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.findFolderLocked(id)
	return f, ok
}

// MaterialsAt returns the materials of a subject that sit in folderID.
// An empty folderID selects uncategorized materials, not "any folder".
func (r *Repository) MaterialsAt(subjectID, folderID string) []Material {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Material
	for _, m := range r.materials {
		if m.SubjectID == subjectID && m.FolderID == folderID {
			out = append(out, m)
		}
	}
	return out
}

// Material returns a material by id.
func (r *Repository) Material(id string) (Material, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.materials {
		if m.ID == id {
			return m, true
		}
	}
	return Material{}, false
}

// ResourceCount returns the number of materials in a subject, across all folders.
func (r *Repository) ResourceCount(subjectID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, m := range r.materials {
		if m.SubjectID == subjectID {
			count++
		}
	}
	return count
}

// Folders returns every folder.
func (r *Repository) Folders() []Folder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Folder(nil), r.folders...)
}

// Materials returns every material.
func (r *Repository) Materials() []Material {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Material(nil), r.materials...)
}

// Provenance reports whether id belongs to a seed or a local record.
// The second result is false if no current record has that id.
func (r *Repository) Provenance(id string) (Provenance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exists := false
	if _, ok := r.findFolderLocked(id); ok {
		exists = true
	}
	for _, m := range r.materials {
		if m.ID == id {
			exists = true
			break
		}
	}
	if !exists {
		return "", false
	}
	if r.seedFolders[id] || r.seedMaterials[id] {
		return ProvenanceSeed, true
	}
	return ProvenanceLocal, true
}

// Modified reports whether the repository differs from the seed catalog.
func (r *Repository) Modified() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modified
}

// SeedVersion returns the version of the seed catalog the repository was built on.
func (r *Repository) SeedVersion() int64 {
	return r.seed.Version
}

// Snapshot returns the current state as a catalog ready to be encoded and
// published. The version is bumped when there are local edits.
func (r *Repository) Snapshot() Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	version := r.seed.Version
	if r.modified {
		version++
	}
	return Catalog{
		Version:   version,
		Subjects:  append([]Subject(nil), r.seed.Subjects...),
		Folders:   append([]Folder(nil), r.folders...),
		Materials: append([]Material(nil), r.materials...),
	}
}

// Mutations

// CreateFolder adds a folder to a subject. A blank name becomes DefaultFolderName.
func (r *Repository) CreateFolder(subjectID, name string) Folder {
	r.mu.Lock()
	defer r.mu.Unlock()

	subjectID = cleanText(subjectID)
	if subjectID == "" {
		subjectID = DefaultSubjectID
	}
	name = cleanText(name)
	if name == "" {
		name = DefaultFolderName
	}

	f := Folder{
		ID:        r.newIDLocked(KindFolder),
		SubjectID: subjectID,
		Name:      name,
		CreatedAt: DisplayDate(r.clock.Now()),
	}
	r.folders = append(r.folders, f)
	r.commitLocked()

	r.logger.Info("folder created", "id", f.ID, "subject", subjectID)
	return f
}

// CreateMaterial adds a material. It never fails: blanks are filled with
// defaults, an unknown folder becomes uncategorized, and the URL is not checked.
func (r *Repository) CreateMaterial(in NewMaterial) Material {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := Material{
		SubjectID: cleanText(in.SubjectID),
		FolderID:  cleanText(in.FolderID),
		Title:     cleanText(in.Title),
		Type:      in.Type,
		URL:       cleanText(in.URL),
		Source:    in.Source,
		Date:      DisplayDate(r.clock.Now()),
	}
	if m.SubjectID == "" {
		m.SubjectID = DefaultSubjectID
	}

	if m.URL == "" {
		m.Source = SourceNone
	} else if m.Source == SourceNone {
		m.Source = SourceLink
	}
	if m.Source == SourceLink {
		m.Type = MaterialLink
	}
	if !m.Type.Valid() {
		m.Type = MaterialDoc
	}

	if m.FolderID != "" {
		if _, ok := r.findFolderLocked(m.FolderID); !ok {
			r.logger.Warn("material folder does not exist, storing as uncategorized", "folder", m.FolderID)
			m.FolderID = ""
		}
	}

	if m.Title == "" {
		m.Title = fallbackTitle(m, cleanText(in.FileName))
	}

	m.ID = r.newIDLocked(KindMaterial)
	r.materials = append([]Material{m}, r.materials...)
	r.commitLocked()

	r.logger.Info("material created", "id", m.ID, "subject", m.SubjectID, "type", string(m.Type))
	return m
}

// DeleteFolder removes a folder. Materials in it are kept and become
// uncategorized. Deleting an unknown id is a no-op; the result reports
// whether anything was removed.
func (r *Repository) DeleteFolder(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, f := range r.folders {
		if f.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	r.folders = append(r.folders[:idx:idx], r.folders[idx+1:]...)
	detached := 0
	for i := range r.materials {
		if r.materials[i].FolderID == id {
			r.materials[i].FolderID = ""
			detached++
		}
	}
	r.commitLocked()

	r.logger.Info("folder deleted", "id", id, "detached_materials", detached)
	return true
}

// DeleteMaterial removes a material. Deleting an unknown id is a no-op.
// An uploaded blob is released once no material refers to it.
func (r *Repository) DeleteMaterial(id string) bool {
	r.mu.Lock()
	var (
		removed Material
		found   bool
	)
	for i, m := range r.materials {
		if m.ID == id {
			removed, found = m, true
			r.materials = append(r.materials[:i:i], r.materials[i+1:]...)
			r.commitLocked()
			break
		}
	}
	orphans := r.orphanedUploadsLocked([]Material{removed})
	r.mu.Unlock()

	if !found {
		return false
	}
	r.releaseUploads(orphans)
	r.logger.Info("material deleted", "id", id)
	return true
}

// Reset restores the seed catalog, clears the local edit store and the
// modified flag. Uploaded blobs of the discarded materials are released.
// There is no undo.
func (r *Repository) Reset() {
	r.mu.Lock()
	previous := r.materials
	seed := r.seed.Clone()
	r.folders = seed.Folders
	r.materials = seed.Materials
	r.modified = false

	if err := r.edits.Clear(); err != nil {
		r.logger.Warn("clearing local edits failed", "error", err)
	}
	orphans := r.orphanedUploadsLocked(previous)
	r.mu.Unlock()

	r.releaseUploads(orphans)
	r.logger.Info("repository reset to seed catalog", "seed_version", r.seed.Version, "released_uploads", len(orphans))
}

// orphanedUploadsLocked returns the session references held by gone that no
// current material still uses. The caller must hold r.mu.
func (r *Repository) orphanedUploadsLocked(gone []Material) []string {
	var refs []string
	for _, m := range gone {
		if m.Source != SourceSession || m.URL == "" {
			continue
		}
		inUse := false
		for _, cur := range r.materials {
			if cur.URL == m.URL {
				inUse = true
				break
			}
		}
		if !inUse {
			refs = append(refs, m.URL)
		}
	}
	return refs
}

// releaseUploads drops session blobs. It must be called without r.mu held.
func (r *Repository) releaseUploads(refs []string) {
	if r.sessions == nil {
		return
	}
	for _, ref := range refs {
		r.sessions.Remove(ref)
	}
}

// commitLocked marks the repository modified and persists the delta.
// The caller must hold r.mu.
func (r *Repository) commitLocked() {
	r.modified = true
	snap := Diff(r.seed, r.folders, r.materials)
	if err := r.edits.Save(snap); err != nil {
		r.logger.Warn("local edits not persisted", "error", err)
	}
}

func (r *Repository) findFolderLocked(id string) (Folder, bool) {
	for _, f := range r.folders {
		if f.ID == id {
			return f, true
		}
	}
	return Folder{}, false
}

// maxIDDraws bounds how often the generator is asked for a fresh id before
// falling back to a suffix.
const maxIDDraws = 8

// newIDLocked returns an id not used by any current or seed record of kind.
// Seed ids are excluded even after their record was deleted so a new local
// record is never mistaken for seed content on reload.
func (r *Repository) newIDLocked(kind IDKind) string {
	var id string
	for draw := 0; draw < maxIDDraws; draw++ {
		id = r.idgen.New(kind)
		if !r.idInUseLocked(kind, id) {
			return id
		}
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s-%d", id, n)
		if !r.idInUseLocked(kind, candidate) {
			return candidate
		}
	}
}

func (r *Repository) idInUseLocked(kind IDKind, id string) bool {
	switch kind {
	case KindFolder:
		if r.seedFolders[id] {
			return true
		}
		_, ok := r.findFolderLocked(id)
		return ok
	default:
		if r.seedMaterials[id] {
			return true
		}
		for _, m := range r.materials {
			if m.ID == id {
				return true
			}
		}
		return false
	}
}

// fallbackTitle picks a title for an untitled material: the file name for
// uploads, the address for links, otherwise DefaultTitle.
// cleanText trims s and replaces invalid UTF-8 so every stored string
// survives the catalog encoder and the edit store.
func cleanText(s string) string {
	return strings.TrimSpace(strings.ToValidUTF8(s, "\uFFFD"))
}

func fallbackTitle(m Material, fileName string) string {
	switch m.Source {
	case SourceSession:
		if fileName != "" {
			return fileName
		}
	case SourceLink:
		if m.URL != "" {
			return m.URL
		}
	}
	return DefaultTitle
}
