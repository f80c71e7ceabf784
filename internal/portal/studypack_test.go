package portal_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"edusphere/internal/portal"
	"edusphere/internal/testutil"
)

func TestStudyService_Generate(t *testing.T) {
	t.Parallel()

	t.Run("full pack files notes into folder", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		gen := &testutil.StubGenerator{}
		svc := portal.NewStudyService(gen, f.repo, portal.NewNopLogger())

		pack, err := svc.Generate(context.Background(), portal.StudyRequest{
			SubjectID: "math",
			FolderID:  seedFolderID,
			Topic:     "Quadratics",
			Video:     true,
		})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if len(pack.Failures) != 0 {
			t.Errorf("Failures = %+v, want none", pack.Failures)
		}
		if pack.MindMap == nil || pack.MindMap.Count() != 4 {
			t.Errorf("MindMap = %+v, want 4 nodes", pack.MindMap)
		}
		if pack.Notes == nil || len(pack.Slides) != 2 || pack.Audio == nil {
			t.Errorf("pack missing results: %+v", pack)
		}
		if pack.VideoURL == "" {
			t.Error("VideoURL empty, want locator")
		}
		if pack.Material == nil {
			t.Fatal("Material = nil, want filed notes")
		}
		if pack.Material.Title != "AI Notes: Quadratics" || pack.Material.FolderID != seedFolderID {
			t.Errorf("Material = %+v", pack.Material)
		}
		if got := f.repo.MaterialsAt("math", seedFolderID); len(got) != 2 {
			t.Errorf("MaterialsAt(math, folder) = %d, want 2", len(got))
		}

		calls := gen.Calls()
		if calls[len(calls)-2] != portal.StepAudio || calls[len(calls)-1] != portal.StepVideo {
			t.Errorf("calls = %v, want audio then video last", calls)
		}
	})

	t.Run("partial failure keeps other results", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		gen := &testutil.StubGenerator{MindMapErr: errors.New("quota exceeded"), VideoErr: errors.New("timed out")}
		svc := portal.NewStudyService(gen, f.repo, portal.NewNopLogger())

		pack, err := svc.Generate(context.Background(), portal.StudyRequest{SubjectID: "science", Video: true})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if !pack.Failed(portal.StepMindMap) || !pack.Failed(portal.StepVideo) {
			t.Errorf("Failures = %+v, want mindmap and video", pack.Failures)
		}
		if pack.Failed(portal.StepNotes) || pack.Notes == nil || pack.Audio == nil || len(pack.Slides) == 0 {
			t.Errorf("successful steps lost: %+v", pack)
		}
		if pack.MindMap != nil {
			t.Error("MindMap set despite failure")
		}
		if pack.Topic != portal.DefaultTopic {
			t.Errorf("Topic = %q, want %q", pack.Topic, portal.DefaultTopic)
		}
		if pack.Material != nil {
			t.Error("Material filed without a folder")
		}
	})

	t.Run("notes failure skips audio and filing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		gen := &testutil.StubGenerator{NotesErr: errors.New("bad response")}
		svc := portal.NewStudyService(gen, f.repo, portal.NewNopLogger())

		pack, err := svc.Generate(context.Background(), portal.StudyRequest{SubjectID: "math", FolderID: seedFolderID})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if !pack.Failed(portal.StepNotes) || !pack.Failed(portal.StepAudio) {
			t.Errorf("Failures = %+v, want notes and audio", pack.Failures)
		}
		if pack.Material != nil {
			t.Error("Material filed without notes")
		}
		for _, c := range gen.Calls() {
			if c == portal.StepAudio || c == portal.StepVideo {
				t.Errorf("unexpected %s call", c)
			}
		}
		if f.repo.Modified() {
			t.Error("repository modified without filing notes")
		}
	})

	t.Run("audio reads a bounded summary", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		gen := &testutil.StubGenerator{NotesBody: strings.Repeat("ಕ", 2000)}
		svc := portal.NewStudyService(gen, f.repo, portal.NewNopLogger())

		if _, err := svc.Generate(context.Background(), portal.StudyRequest{SubjectID: "kannada"}); err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		text := gen.AudioText()
		if n := utf8.RuneCountInString(text); n != 800 {
			t.Errorf("audio text = %d runes, want 800", n)
		}
		if !utf8.ValidString(text) {
			t.Error("audio text split a rune")
		}
	})

	t.Run("unknown folder does not file notes", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		svc := portal.NewStudyService(&testutil.StubGenerator{}, f.repo, portal.NewNopLogger())

		pack, err := svc.Generate(context.Background(), portal.StudyRequest{SubjectID: "math", FolderID: "fld-gone"})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if pack.Material != nil {
			t.Errorf("Material = %+v, want nil", pack.Material)
		}
	})

	t.Run("unknown subject", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		svc := portal.NewStudyService(&testutil.StubGenerator{}, f.repo, portal.NewNopLogger())

		_, err := svc.Generate(context.Background(), portal.StudyRequest{SubjectID: "astrology"})
		if !errors.Is(err, portal.ErrNotFound) {
			t.Errorf("Generate() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		svc := portal.NewStudyService(&testutil.StubGenerator{}, f.repo, portal.NewNopLogger())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := svc.Generate(ctx, portal.StudyRequest{SubjectID: "math", FolderID: seedFolderID})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Generate() error = %v, want context.Canceled", err)
		}
		if f.repo.Modified() {
			t.Error("cancelled generation modified the repository")
		}
	})
}
