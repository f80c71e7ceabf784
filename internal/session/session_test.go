package session

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"edusphere/internal/config"
	"edusphere/internal/portal"
)

func registries(t *testing.T, maxSize int64) map[string]*Registry {
	t.Helper()

	fsReg, err := NewFileSystemRegistry("sess-1", t.TempDir(), maxSize)
	if err != nil {
		t.Fatalf("NewFileSystemRegistry() error = %v", err)
	}
	t.Cleanup(func() { fsReg.Close() })

	return map[string]*Registry{
		"memory":     NewMemoryRegistry("sess-1", maxSize),
		"filesystem": fsReg,
	}
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading resource: %v", err)
	}
	return string(data)
}

func TestRegistry_PutOpen(t *testing.T) {
	t.Parallel()

	for name, reg := range registries(t, 1024) {
		reg := reg
		t.Run(name, func(t *testing.T) {
			res, err := reg.Put("notes.pdf", "application/pdf", strings.NewReader("%PDF-1.4 body"))
			if err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if !strings.HasPrefix(res.Ref, "session:sess-1/") {
				t.Errorf("Ref = %q, want session:sess-1/ prefix", res.Ref)
			}
			if res.Size != int64(len("%PDF-1.4 body")) {
				t.Errorf("Size = %d, want %d", res.Size, len("%PDF-1.4 body"))
			}

			stat := reg.Stat(res.Ref)
			if stat == nil {
				t.Fatal("Stat() = nil, want resource")
			}
			if stat.Name != "notes.pdf" || stat.MIME != "application/pdf" {
				t.Errorf("Stat() = %+v", stat)
			}

			rc, got, err := reg.Open(res.Ref)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if body := readAll(t, rc); body != "%PDF-1.4 body" {
				t.Errorf("content = %q", body)
			}
			if got.Ref != res.Ref {
				t.Errorf("Open() ref = %q, want %q", got.Ref, res.Ref)
			}
		})
	}
}

func TestRegistry_ForeignSessionRefsDoNotResolve(t *testing.T) {
	t.Parallel()

	for name, reg := range registries(t, 1024) {
		reg := reg
		t.Run(name, func(t *testing.T) {
			res, err := reg.Put("a.txt", "text/plain", strings.NewReader("a"))
			if err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			_, token, _ := portal.ParseSessionRef(res.Ref)

			for _, ref := range []string{
				portal.SessionRef("sess-0", token),
				"blob:http://localhost/abc",
				"session:",
				"https://example.com/a.txt",
			} {
				if reg.Stat(ref) != nil {
					t.Errorf("Stat(%q) resolved, want nil", ref)
				}
				if _, _, err := reg.Open(ref); !errors.Is(err, portal.ErrNotFound) {
					t.Errorf("Open(%q) error = %v, want ErrNotFound", ref, err)
				}
			}
		})
	}
}

func TestRegistry_MaxSize(t *testing.T) {
	t.Parallel()

	for name, reg := range registries(t, 10) {
		reg := reg
		t.Run(name, func(t *testing.T) {
			if _, err := reg.Put("a", "text/plain", strings.NewReader("123456")); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if _, err := reg.Put("b", "text/plain", strings.NewReader("abcdef")); !errors.Is(err, portal.ErrStorageFull) {
				t.Fatalf("Put() over max size error = %v, want ErrStorageFull", err)
			}
			if reg.Count() != 1 {
				t.Errorf("Count() = %d, want 1", reg.Count())
			}
			if reg.Size() != 6 {
				t.Errorf("Size() = %d, want 6", reg.Size())
			}
		})
	}
}

func TestRegistry_DeduplicatesContent(t *testing.T) {
	t.Parallel()

	for name, reg := range registries(t, 1024) {
		reg := reg
		t.Run(name, func(t *testing.T) {
			a, err := reg.Put("a.txt", "text/plain", strings.NewReader("same"))
			if err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			b, err := reg.Put("b.txt", "text/plain", strings.NewReader("same"))
			if err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if a.Ref == b.Ref {
				t.Error("duplicate uploads share a ref, want distinct refs")
			}
			if reg.Size() != 4 {
				t.Errorf("Size() = %d, want 4", reg.Size())
			}

			reg.Remove(a.Ref)
			if reg.Stat(a.Ref) != nil {
				t.Error("Stat() after Remove resolved")
			}
			rc, _, err := reg.Open(b.Ref)
			if err != nil {
				t.Fatalf("Open() of shared content after Remove error = %v", err)
			}
			if body := readAll(t, rc); body != "same" {
				t.Errorf("content = %q", body)
			}

			reg.Remove(b.Ref)
			if reg.Size() != 0 {
				t.Errorf("Size() after removing all = %d, want 0", reg.Size())
			}
		})
	}
}

func TestRegistry_CloseDiscardsUploads(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	reg, err := NewFileSystemRegistry("sess-1", parent, 1024)
	if err != nil {
		t.Fatalf("NewFileSystemRegistry() error = %v", err)
	}
	res, err := reg.Put("a.txt", "text/plain", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := reg.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if reg.Stat(res.Ref) != nil {
		t.Error("Stat() after Close resolved")
	}
	matches, _ := filepath.Glob(filepath.Join(parent, "edusphere-session-*"))
	if len(matches) != 0 {
		t.Errorf("session directories left after Close: %v", matches)
	}
}

func TestNewRegistryFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.SessionConfig
		wantErr bool
	}{
		{name: "default", cfg: config.SessionConfig{}},
		{name: "memory", cfg: config.SessionConfig{Type: "memory", MaxSize: 5}},
		{name: "filesystem", cfg: config.SessionConfig{Type: "filesystem", Dir: "TEMP"}},
		{name: "filesystem without dir", cfg: config.SessionConfig{Type: "filesystem"}, wantErr: true},
		{name: "unknown", cfg: config.SessionConfig{Type: "redis"}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := tt.cfg
			if cfg.Dir == "TEMP" {
				cfg.Dir = t.TempDir()
			}
			reg, err := NewRegistryFromConfig(cfg, "sess-x")
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewRegistryFromConfig() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewRegistryFromConfig() error = %v", err)
			}
			defer reg.Close()
			if reg.SessionID() != "sess-x" {
				t.Errorf("SessionID() = %q, want %q", reg.SessionID(), "sess-x")
			}
			wantMax := cfg.MaxSize
			if wantMax <= 0 {
				wantMax = DefaultMaxSize
			}
			if reg.maxSize != wantMax {
				t.Errorf("maxSize = %d, want %d", reg.maxSize, wantMax)
			}
		})
	}
}

func TestFilesystemStore_DirectoryIsPrivate(t *testing.T) {
	t.Parallel()

	store, err := newFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("newFilesystemStore() error = %v", err)
	}
	defer store.Close()

	info, err := os.Stat(store.dir)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("session dir mode = %o, want 0700", perm)
	}
}
