package portal

import "fmt"

// ReconcileResult is the merged view of the seed catalog and a local edit snapshot.
type ReconcileResult struct {
	Folders   []Folder
	Materials []Material
	// Skipped describes persisted records that were ignored.
	Skipped []string
	// Detached counts materials whose folder reference was cleared because
	// the folder no longer exists.
	Detached int
}

// Reconcile merges edits into seed using the delta/union strategy:
// start from the seed catalog, drop tombstoned seed records, then add every
// persisted record whose id is not a seed id. A persisted copy of a seed record
// can therefore never shadow the seed. Materials left pointing at a missing
// folder become uncategorized.
//
// Reconcile is pure: the same inputs always produce the same result.
func Reconcile(seed Catalog, edits EditSnapshot) ReconcileResult {
	if !edits.Modified {
		seed = seed.Clone()
		return ReconcileResult{Folders: seed.Folders, Materials: seed.Materials}
	}

	var res ReconcileResult

	seedFolders := seed.FolderIDs()
	seedMaterials := seed.MaterialIDs()
	deletedFolders := toSet(edits.DeletedFolders)
	deletedMaterials := toSet(edits.DeletedMaterials)

	folderIDs := make(map[string]bool, len(seed.Folders)+len(edits.Folders))
	res.Folders = make([]Folder, 0, len(seed.Folders)+len(edits.Folders))
	for _, f := range seed.Folders {
		if deletedFolders[f.ID] {
			continue
		}
		res.Folders = append(res.Folders, f)
		folderIDs[f.ID] = true
	}
	for _, f := range edits.Folders {
		switch {
		case f.ID == "":
			res.Skipped = append(res.Skipped, "folder without id")
			continue
		case seedFolders[f.ID]:
			res.Skipped = append(res.Skipped, fmt.Sprintf("folder %s: shadows seed record", f.ID))
			continue
		case folderIDs[f.ID]:
			res.Skipped = append(res.Skipped, fmt.Sprintf("folder %s: duplicate id", f.ID))
			continue
		}
		res.Folders = append(res.Folders, f)
		folderIDs[f.ID] = true
	}

	materialIDs := make(map[string]bool, len(seed.Materials)+len(edits.Materials))
	res.Materials = make([]Material, 0, len(seed.Materials)+len(edits.Materials))
	local := make([]Material, 0, len(edits.Materials))
	for _, m := range edits.Materials {
		switch {
		case m.ID == "":
			res.Skipped = append(res.Skipped, "material without id")
			continue
		case seedMaterials[m.ID]:
			res.Skipped = append(res.Skipped, fmt.Sprintf("material %s: shadows seed record", m.ID))
			continue
		case materialIDs[m.ID]:
			res.Skipped = append(res.Skipped, fmt.Sprintf("material %s: duplicate id", m.ID))
			continue
		case !m.Type.Valid():
			res.Skipped = append(res.Skipped, fmt.Sprintf("material %s: unknown type %q", m.ID, m.Type))
			continue
		}
		local = append(local, m)
		materialIDs[m.ID] = true
	}
	// Local materials are listed ahead of the seed, newest first, matching the
	// order the repository keeps in memory.
	res.Materials = append(res.Materials, local...)
	for _, m := range seed.Materials {
		if deletedMaterials[m.ID] {
			continue
		}
		res.Materials = append(res.Materials, m)
	}

	for i := range res.Materials {
		if res.Materials[i].FolderID != "" && !folderIDs[res.Materials[i].FolderID] {
			res.Materials[i].FolderID = ""
			res.Detached++
		}
	}

	return res
}

// Diff computes the edit snapshot that turns seed into the given state.
// Only the delta is kept: local records and tombstones for removed seed ids.
func Diff(seed Catalog, folders []Folder, materials []Material) EditSnapshot {
	snap := EditSnapshot{
		Version:   editsFormatVersion,
		Modified:  true,
		Folders:   []Folder{},
		Materials: []Material{},
	}

	seedFolders := seed.FolderIDs()
	present := make(map[string]bool, len(folders))
	for _, f := range folders {
		present[f.ID] = true
		if !seedFolders[f.ID] {
			snap.Folders = append(snap.Folders, f)
		}
	}
	for _, f := range seed.Folders {
		if !present[f.ID] {
			snap.DeletedFolders = append(snap.DeletedFolders, f.ID)
		}
	}

	seedMaterials := seed.MaterialIDs()
	present = make(map[string]bool, len(materials))
	for _, m := range materials {
		present[m.ID] = true
		if !seedMaterials[m.ID] {
			snap.Materials = append(snap.Materials, m)
		}
	}
	for _, m := range seed.Materials {
		if !present[m.ID] {
			snap.DeletedMaterials = append(snap.DeletedMaterials, m.ID)
		}
	}

	return snap
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
