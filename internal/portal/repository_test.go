package portal_test

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"edusphere/internal/portal"
	"edusphere/internal/testutil"
)

func TestRepository_LoadsSeedVerbatim(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	seed := testSeed()
	if !reflect.DeepEqual(f.repo.Folders(), seed.Folders) {
		t.Errorf("Folders() = %+v, want %+v", f.repo.Folders(), seed.Folders)
	}
	if !reflect.DeepEqual(f.repo.Materials(), seed.Materials) {
		t.Errorf("Materials() = %+v, want %+v", f.repo.Materials(), seed.Materials)
	}
	if f.repo.Modified() {
		t.Error("Modified() = true on fresh profile, want false")
	}
	if got := f.repo.Snapshot().Version; got != seed.Version {
		t.Errorf("Snapshot().Version = %d, want %d", got, seed.Version)
	}
}

func TestRepository_CreateUncategorizedMaterial(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	m := f.repo.CreateMaterial(portal.NewMaterial{SubjectID: "math", Title: "Quiz", Type: portal.MaterialDoc})

	uncategorized := f.repo.MaterialsAt("math", "")
	if len(uncategorized) != 1 || uncategorized[0].Title != "Quiz" {
		t.Fatalf("MaterialsAt(math, \"\") = %+v, want only Quiz", uncategorized)
	}
	if uncategorized[0].ID != m.ID {
		t.Errorf("material id = %q, want %q", uncategorized[0].ID, m.ID)
	}

	inFolder := f.repo.MaterialsAt("math", seedFolderID)
	if len(inFolder) != 1 || inFolder[0].ID != seedMaterialID {
		t.Errorf("MaterialsAt(math, %s) = %+v, want only %s", seedFolderID, inFolder, seedMaterialID)
	}
	if !f.repo.Modified() {
		t.Error("Modified() = false after CreateMaterial, want true")
	}
	if got := f.repo.ResourceCount("math"); got != 2 {
		t.Errorf("ResourceCount(math) = %d, want 2", got)
	}
}

func TestRepository_CreateFolder(t *testing.T) {
	t.Parallel()

	t.Run("adds folder to subject", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)

		folder := f.repo.CreateFolder("science", "Unit 2")
		if folder.ID == "" {
			t.Fatal("CreateFolder() returned empty id")
		}
		if folder.SubjectID != "science" || folder.Name != "Unit 2" {
			t.Errorf("CreateFolder() = %+v", folder)
		}
		if folder.CreatedAt != "1/15/2024" {
			t.Errorf("CreatedAt = %q, want %q", folder.CreatedAt, "1/15/2024")
		}
		if !folderIDs(f.repo.FoldersForSubject("science"))[folder.ID] {
			t.Error("FoldersForSubject(science) does not include new folder")
		}
		if got := len(f.repo.FoldersForSubject("math")); got != 1 {
			t.Errorf("FoldersForSubject(math) = %d folders, want 1", got)
		}
	})

	t.Run("fills blanks", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)

		folder := f.repo.CreateFolder("  ", "   ")
		if folder.Name != portal.DefaultFolderName {
			t.Errorf("Name = %q, want %q", folder.Name, portal.DefaultFolderName)
		}
		if folder.SubjectID != portal.DefaultSubjectID {
			t.Errorf("SubjectID = %q, want %q", folder.SubjectID, portal.DefaultSubjectID)
		}
	})
}

func TestRepository_DeleteFolderDetachesMaterials(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	if !f.repo.DeleteFolder(seedFolderID) {
		t.Fatal("DeleteFolder() = false, want true")
	}

	if folderIDs(f.repo.FoldersForSubject("math"))[seedFolderID] {
		t.Error("FoldersForSubject(math) still includes deleted folder")
	}
	if got := f.repo.MaterialsAt("math", seedFolderID); len(got) != 0 {
		t.Errorf("MaterialsAt(math, deleted) = %+v, want empty", got)
	}
	uncategorized := f.repo.MaterialsAt("math", "")
	if len(uncategorized) != 1 || uncategorized[0].ID != seedMaterialID {
		t.Fatalf("MaterialsAt(math, \"\") = %+v, want %s", uncategorized, seedMaterialID)
	}
	if !uncategorized[0].Uncategorized() {
		t.Errorf("FolderID = %q, want empty", uncategorized[0].FolderID)
	}

	// The detachment survives a restart.
	reopened := f.open()
	if got := reopened.MaterialsAt("math", ""); len(got) != 1 || got[0].ID != seedMaterialID {
		t.Errorf("after reload MaterialsAt(math, \"\") = %+v", got)
	}
	if _, ok := reopened.Folder(seedFolderID); ok {
		t.Error("deleted seed folder came back after reload")
	}
}

func TestRepository_DeleteUnknownIsNoop(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.repo.CreateFolder("math", "Geometry")

	folders := f.repo.Folders()
	materials := f.repo.Materials()

	if f.repo.DeleteFolder("fld-missing") {
		t.Error("DeleteFolder(missing) = true, want false")
	}
	if f.repo.DeleteMaterial("mat-missing") {
		t.Error("DeleteMaterial(missing) = true, want false")
	}
	if !reflect.DeepEqual(f.repo.Folders(), folders) {
		t.Error("folders changed after deleting unknown id")
	}
	if !reflect.DeepEqual(f.repo.Materials(), materials) {
		t.Error("materials changed after deleting unknown id")
	}
}

func TestRepository_DeleteMaterial(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	local := f.repo.CreateMaterial(portal.NewMaterial{SubjectID: "math", Title: "Quiz", Type: portal.MaterialDoc})
	if !f.repo.DeleteMaterial(seedMaterialID) {
		t.Fatal("DeleteMaterial(seed) = false")
	}
	if !f.repo.DeleteMaterial(local.ID) {
		t.Fatal("DeleteMaterial(local) = false")
	}
	if got := f.repo.ResourceCount("math"); got != 0 {
		t.Errorf("ResourceCount(math) = %d, want 0", got)
	}
	if _, ok := f.repo.Folder(seedFolderID); !ok {
		t.Error("DeleteMaterial removed its folder")
	}

	reopened := f.open()
	if got := reopened.ResourceCount("math"); got != 0 {
		t.Errorf("after reload ResourceCount(math) = %d, want 0", got)
	}
}

func TestRepository_CreateMaterialDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		in         portal.NewMaterial
		wantTitle  string
		wantType   portal.MaterialType
		wantSource portal.SourceKind
		wantFolder string
	}{
		{
			name:       "blank title without url",
			in:         portal.NewMaterial{SubjectID: "math", Type: portal.MaterialDoc},
			wantTitle:  portal.DefaultTitle,
			wantType:   portal.MaterialDoc,
			wantSource: portal.SourceNone,
		},
		{
			name:       "blank title uses link address",
			in:         portal.NewMaterial{SubjectID: "math", URL: "https://example.com/a"},
			wantTitle:  "https://example.com/a",
			wantType:   portal.MaterialLink,
			wantSource: portal.SourceLink,
		},
		{
			name: "blank title uses file name",
			in: portal.NewMaterial{
				SubjectID: "math",
				Type:      portal.MaterialPDF,
				Source:    portal.SourceSession,
				URL:       "session:sess-1/abc",
				FileName:  "chapter1.pdf",
			},
			wantTitle:  "chapter1.pdf",
			wantType:   portal.MaterialPDF,
			wantSource: portal.SourceSession,
		},
		{
			name:       "unknown type becomes doc",
			in:         portal.NewMaterial{SubjectID: "math", Title: "Odd", Type: "spreadsheet"},
			wantTitle:  "Odd",
			wantType:   portal.MaterialDoc,
			wantSource: portal.SourceNone,
		},
		{
			name:       "unknown folder becomes uncategorized",
			in:         portal.NewMaterial{SubjectID: "math", FolderID: "fld-gone", Title: "Lost", Type: portal.MaterialDoc},
			wantTitle:  "Lost",
			wantType:   portal.MaterialDoc,
			wantSource: portal.SourceNone,
		},
		{
			name:       "existing folder kept",
			in:         portal.NewMaterial{SubjectID: "math", FolderID: seedFolderID, Title: "Kept", Type: portal.MaterialVideo},
			wantTitle:  "Kept",
			wantType:   portal.MaterialVideo,
			wantSource: portal.SourceNone,
			wantFolder: seedFolderID,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, nil)

			m := f.repo.CreateMaterial(tt.in)
			if m.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", m.Title, tt.wantTitle)
			}
			if m.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", m.Type, tt.wantType)
			}
			if m.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", m.Source, tt.wantSource)
			}
			if m.FolderID != tt.wantFolder {
				t.Errorf("FolderID = %q, want %q", m.FolderID, tt.wantFolder)
			}
			if m.Date != "1/15/2024" {
				t.Errorf("Date = %q, want %q", m.Date, "1/15/2024")
			}
		})
	}
}

func TestRepository_NewestMaterialFirst(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	first := f.repo.CreateMaterial(portal.NewMaterial{SubjectID: "math", Title: "First"})
	second := f.repo.CreateMaterial(portal.NewMaterial{SubjectID: "math", Title: "Second"})

	got := f.repo.MaterialsAt("math", "")
	if len(got) != 2 || got[0].ID != second.ID || got[1].ID != first.ID {
		t.Errorf("MaterialsAt() order = %+v, want Second then First", got)
	}

	reopened := f.open()
	got = reopened.MaterialsAt("math", "")
	if len(got) != 2 || got[0].ID != second.ID || got[1].ID != first.ID {
		t.Errorf("after reload order = %+v, want Second then First", got)
	}
}

func TestRepository_UniqueIDs(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	for i := 0; i < 20; i++ {
		folder := f.repo.CreateFolder("math", fmt.Sprintf("Chapter %d", i))
		f.repo.CreateMaterial(portal.NewMaterial{SubjectID: "math", FolderID: folder.ID, Title: "Notes"})
		if i%3 == 0 {
			f.repo.DeleteFolder(folder.ID)
		}
		if i%4 == 0 {
			ms := f.repo.Materials()
			f.repo.DeleteMaterial(ms[len(ms)-1].ID)
		}
	}

	seen := make(map[string]bool)
	for _, folder := range f.repo.Folders() {
		if seen[folder.ID] {
			t.Errorf("duplicate folder id %q", folder.ID)
		}
		seen[folder.ID] = true
	}
	seen = make(map[string]bool)
	for _, m := range f.repo.Materials() {
		if seen[m.ID] {
			t.Errorf("duplicate material id %q", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestRepository_IDCollisions(t *testing.T) {
	t.Parallel()

	t.Run("redraws on collision with current record", func(t *testing.T) {
		t.Parallel()
		storage := testutil.NewTestStorage()
		idgen := testutil.NewScriptedIDGenerator("fld-a", "fld-a", "fld-b")
		repo := portal.NewRepository(testSeed(), portal.NewLocalEditStore(storage, portal.NewNopLogger()), nil,
			portal.NewNopLogger(), testutil.FixedClock(), idgen)

		a := repo.CreateFolder("math", "A")
		b := repo.CreateFolder("math", "B")
		if a.ID != "fld-a" || b.ID != "fld-b" {
			t.Errorf("ids = %q, %q, want fld-a, fld-b", a.ID, b.ID)
		}
		if idgen.Calls() != 3 {
			t.Errorf("generator calls = %d, want 3", idgen.Calls())
		}
	})

	t.Run("never reuses a deleted seed id", func(t *testing.T) {
		t.Parallel()
		storage := testutil.NewTestStorage()
		idgen := testutil.NewScriptedIDGenerator(seedFolderID, "fld-fresh")
		repo := portal.NewRepository(testSeed(), portal.NewLocalEditStore(storage, portal.NewNopLogger()), nil,
			portal.NewNopLogger(), testutil.FixedClock(), idgen)

		repo.DeleteFolder(seedFolderID)
		folder := repo.CreateFolder("math", "Replacement")
		if folder.ID != "fld-fresh" {
			t.Errorf("ID = %q, want fld-fresh", folder.ID)
		}
	})

	t.Run("falls back to suffix when generator is stuck", func(t *testing.T) {
		t.Parallel()
		storage := testutil.NewTestStorage()
		idgen := testutil.NewScriptedIDGenerator("mat-x")
		repo := portal.NewRepository(testSeed(), portal.NewLocalEditStore(storage, portal.NewNopLogger()), nil,
			portal.NewNopLogger(), testutil.FixedClock(), idgen)

		a := repo.CreateMaterial(portal.NewMaterial{SubjectID: "math", Title: "A"})
		b := repo.CreateMaterial(portal.NewMaterial{SubjectID: "math", Title: "B"})
		c := repo.CreateMaterial(portal.NewMaterial{SubjectID: "math", Title: "C"})
		if a.ID != "mat-x" || b.ID != "mat-x-1" || c.ID != "mat-x-2" {
			t.Errorf("ids = %q, %q, %q, want mat-x, mat-x-1, mat-x-2", a.ID, b.ID, c.ID)
		}
	})
}

func TestRepository_ReloadIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	folder := f.repo.CreateFolder("science", "Optics")
	f.repo.CreateMaterial(portal.NewMaterial{SubjectID: "science", FolderID: folder.ID, Title: "Lenses"})
	f.repo.DeleteMaterial(seedMaterialID)

	first := f.open()
	second := f.open()
	if !reflect.DeepEqual(folderIDs(first.Folders()), folderIDs(second.Folders())) {
		t.Error("folders differ between consecutive loads")
	}
	if !reflect.DeepEqual(first.Materials(), second.Materials()) {
		t.Error("materials differ between consecutive loads")
	}
	if !reflect.DeepEqual(first.Materials(), f.repo.Materials()) {
		t.Errorf("reloaded materials = %+v, want %+v", first.Materials(), f.repo.Materials())
	}

	f.repo.Reload()
	if !reflect.DeepEqual(f.repo.Materials(), first.Materials()) {
		t.Error("Reload() changed materials")
	}
}

func TestRepository_Provenance(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	folder := f.repo.CreateFolder("math", "Local")

	tests := []struct {
		id     string
		want   portal.Provenance
		wantOK bool
	}{
		{id: seedFolderID, want: portal.ProvenanceSeed, wantOK: true},
		{id: seedMaterialID, want: portal.ProvenanceSeed, wantOK: true},
		{id: folder.ID, want: portal.ProvenanceLocal, wantOK: true},
		{id: "nope", wantOK: false},
	}
	for _, tt := range tests {
		got, ok := f.repo.Provenance(tt.id)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Provenance(%q) = %q, %v, want %q, %v", tt.id, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRepository_Reset(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.repo.CreateFolder("math", "Temp")
	f.repo.DeleteMaterial(seedMaterialID)
	f.repo.Reset()

	seed := testSeed()
	if !reflect.DeepEqual(f.repo.Folders(), seed.Folders) || !reflect.DeepEqual(f.repo.Materials(), seed.Materials) {
		t.Error("Reset() did not restore the seed catalog")
	}
	if f.repo.Modified() {
		t.Error("Modified() = true after Reset, want false")
	}
	if data, _ := f.storage.Get(portal.KeyEdits); data != nil {
		t.Errorf("edit store still holds %q after Reset", data)
	}

	reopened := f.open()
	if !reflect.DeepEqual(reopened.Materials(), seed.Materials) {
		t.Error("reload after Reset differs from seed")
	}
}

func TestRepository_SnapshotBumpsVersion(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.repo.CreateFolder("math", "Geometry")

	snap := f.repo.Snapshot()
	if snap.Version != testSeed().Version+1 {
		t.Errorf("Version = %d, want %d", snap.Version, testSeed().Version+1)
	}
	if len(snap.Subjects) != len(testSeed().Subjects) {
		t.Errorf("Subjects = %d, want %d", len(snap.Subjects), len(testSeed().Subjects))
	}
	if err := snap.Validate(); err != nil {
		t.Errorf("Snapshot().Validate() error = %v", err)
	}
}

func TestRepository_PersistenceFailureKeepsMemoryState(t *testing.T) {
	t.Parallel()
	storage := &testutil.FailingStorage{Storage: testutil.NewTestStorage(), FailPut: true}
	f := newFixture(t, storage)

	folder := f.repo.CreateFolder("math", "Unsaved")
	if _, ok := f.repo.Folder(folder.ID); !ok {
		t.Fatal("folder missing from memory after failed save")
	}
	if !f.repo.Modified() {
		t.Error("Modified() = false after failed save, want true")
	}

	// Nothing reached storage, so a restart sees the seed catalog.
	if _, ok := f.open().Folder(folder.ID); ok {
		t.Error("unsaved folder visible after reload")
	}
}

func TestRepository_ReadFailureFallsBackToSeed(t *testing.T) {
	t.Parallel()
	storage := &testutil.FailingStorage{Storage: testutil.NewTestStorage(), FailGet: true}
	f := newFixture(t, storage)

	if !reflect.DeepEqual(f.repo.Materials(), testSeed().Materials) {
		t.Error("Materials() differ from seed when storage cannot be read")
	}
}

func TestRepository_SessionMaterialAfterRestart(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	res, err := f.sessions.Put("notes.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	m := f.repo.CreateMaterial(portal.NewMaterial{
		SubjectID: "math",
		Type:      portal.MaterialPDF,
		Source:    portal.SourceSession,
		URL:       res.Ref,
		FileName:  res.Name,
	})

	if p := f.repo.Preview(m); !p.Available || p.MIME != "application/pdf" {
		t.Errorf("Preview() in same session = %+v, want available pdf", p)
	}

	// A restart brings a new session that cannot resolve the old reference.
	restarted := portal.NewRepository(testSeed(), f.edits, testutil.NewTestSessions(t, "sess-2"),
		portal.NewNopLogger(), f.clock, f.idgen)
	reloaded, ok := restarted.Material(m.ID)
	if !ok {
		t.Fatal("session material lost after restart")
	}
	p := restarted.Preview(reloaded)
	if p.Available {
		t.Error("Preview() after restart available, want unavailable")
	}
	if p.Reason != portal.ReasonSessionExpired {
		t.Errorf("Reason = %q, want %q", p.Reason, portal.ReasonSessionExpired)
	}
}

func TestRepository_ReleasesUploads(t *testing.T) {
	t.Parallel()

	upload := func(t *testing.T, f *fixture, body string) portal.Material {
		t.Helper()
		res, err := f.sessions.Put("sheet.pdf", "application/pdf", strings.NewReader(body))
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		return f.repo.CreateMaterial(portal.NewMaterial{
			SubjectID: "math",
			Source:    portal.SourceSession,
			URL:       res.Ref,
			FileName:  res.Name,
		})
	}

	t.Run("delete material", func(t *testing.T) {
		f := newFixture(t, nil)
		m := upload(t, f, "%PDF-1.4 worksheet")

		if !f.repo.DeleteMaterial(m.ID) {
			t.Fatal("DeleteMaterial() = false")
		}
		if f.sessions.Stat(m.URL) != nil {
			t.Error("upload still held after its material was deleted")
		}
	})

	t.Run("shared reference is kept", func(t *testing.T) {
		f := newFixture(t, nil)
		a := upload(t, f, "%PDF-1.4 shared")
		b := f.repo.CreateMaterial(portal.NewMaterial{
			SubjectID: "science",
			Source:    portal.SourceSession,
			URL:       a.URL,
		})

		f.repo.DeleteMaterial(a.ID)
		if f.sessions.Stat(b.URL) == nil {
			t.Error("upload released while another material still uses it")
		}
	})

	t.Run("reset", func(t *testing.T) {
		f := newFixture(t, nil)
		a := upload(t, f, "%PDF-1.4 one")
		b := upload(t, f, "%PDF-1.4 two")

		f.repo.Reset()
		for _, m := range []portal.Material{a, b} {
			if f.sessions.Stat(m.URL) != nil {
				t.Errorf("upload %s still held after reset", m.URL)
			}
		}
	})

	t.Run("links are untouched", func(t *testing.T) {
		f := newFixture(t, nil)
		kept := upload(t, f, "%PDF-1.4 kept")
		link := f.repo.CreateMaterial(portal.NewMaterial{SubjectID: "math", URL: kept.URL, Source: portal.SourceLink})

		f.repo.DeleteMaterial(link.ID)
		if f.sessions.Stat(kept.URL) == nil {
			t.Error("deleting a link released an upload")
		}
	})
}

func TestRepository_CleansInvalidUTF8(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	folder := f.repo.CreateFolder("math", "Unit\xff 2")
	if want := "Unit\uFFFD 2"; folder.Name != want {
		t.Errorf("folder Name = %q, want %q", folder.Name, want)
	}

	tests := []struct {
		name string
		in   portal.NewMaterial
		want string
	}{
		{
			name: "title",
			in:   portal.NewMaterial{SubjectID: "math", Title: "Quiz \xc3\x28"},
			want: "Quiz \uFFFD(",
		},
		{
			name: "upload file name",
			in:   portal.NewMaterial{SubjectID: "math", Source: portal.SourceSession, URL: "session:sess-1/x", FileName: "notes\xff.pdf"},
			want: "notes\uFFFD.pdf",
		},
		{
			name: "non-ASCII is kept",
			in:   portal.NewMaterial{SubjectID: "kannada", Title: "ಕನ್ನಡ ವ್ಯಾಕರಣ"},
			want: "ಕನ್ನಡ ವ್ಯಾಕರಣ",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			m := f.repo.CreateMaterial(tt.in)
			if m.Title != tt.want {
				t.Errorf("Title = %q, want %q", m.Title, tt.want)
			}
			if !utf8.ValidString(m.Title) {
				t.Errorf("Title %q is not valid UTF-8", m.Title)
			}
		})
	}
}
