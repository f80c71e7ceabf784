package portal_test

import (
	"testing"

	"edusphere/internal/portal"
	"edusphere/internal/testutil"
)

const (
	seedFolderID   = "fld-seed-algebra"
	seedMaterialID = "mat-seed-linear"
)

func testSeed() portal.Catalog {
	return portal.Catalog{
		Version: 3,
		Subjects: []portal.Subject{
			{ID: "math", Name: "Mathematics", Icon: "calculator", Color: "blue"},
			{ID: "science", Name: "Science", Icon: "flask", Color: "green"},
			{ID: "kannada", Name: "Kannada", Icon: "book", Color: "red"},
		},
		Folders: []portal.Folder{
			{ID: seedFolderID, SubjectID: "math", Name: "Algebra", CreatedAt: "1/1/2024"},
		},
		Materials: []portal.Material{
			{
				ID:        seedMaterialID,
				SubjectID: "math",
				FolderID:  seedFolderID,
				Title:     "Linear Equations",
				Type:      portal.MaterialLink,
				Date:      "1/1/2024",
				URL:       "https://example.com/linear",
				Source:    portal.SourceLink,
			},
		},
	}
}

type fixture struct {
	storage  portal.Storage
	edits    *portal.LocalEditStore
	sessions portal.SessionResources
	clock    *testutil.StubClock
	idgen    portal.IDGenerator
	repo     *portal.Repository
}

// newFixture builds a Repository over storage. A nil storage gets a fresh
// in-memory one.
func newFixture(t *testing.T, storage portal.Storage) *fixture {
	t.Helper()
	if storage == nil {
		storage = testutil.NewTestStorage()
	}
	f := &fixture{
		storage:  storage,
		edits:    portal.NewLocalEditStore(storage, portal.NewNopLogger()),
		sessions: testutil.NewTestSessions(t, "sess-1"),
		clock:    testutil.FixedClock(),
		idgen:    testutil.NewStubIDGenerator(),
	}
	f.repo = f.open()
	return f
}

// open builds a new Repository over the fixture's storage, as a restart would.
func (f *fixture) open() *portal.Repository {
	return portal.NewRepository(testSeed(), f.edits, f.sessions, portal.NewNopLogger(), f.clock, f.idgen)
}

func materialIDs(ms []portal.Material) map[string]bool {
	ids := make(map[string]bool, len(ms))
	for _, m := range ms {
		ids[m.ID] = true
	}
	return ids
}

func folderIDs(fs []portal.Folder) map[string]bool {
	ids := make(map[string]bool, len(fs))
	for _, f := range fs {
		ids[f.ID] = true
	}
	return ids
}
