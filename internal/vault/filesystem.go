package vault

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"edusphere/internal/portal"
)

// FileSystemVault is a filesystem-based implementation of the Vault interface.
// It stores published catalogs in a directory structure:
//
//	<root>/
//	  catalogs/
//	    <name>            (latest catalog document)
//	    <name>.version    (its version)
//	  archive/
//	    <version>-<name>  (every catalog ever published)
type FileSystemVault struct {
	name       string
	root       string
	catalogDir string
	archiveDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	catalogDir := filepath.Join(root, "catalogs")
	archiveDir := filepath.Join(root, "archive")

	for _, dir := range []string{catalogDir, archiveDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create vault directory: %w", err)
		}
	}

	return &FileSystemVault{
		name:       name,
		root:       root,
		catalogDir: catalogDir,
		archiveDir: archiveDir,
	}, nil
}

func (v *FileSystemVault) Name() string {
	return v.name
}

// PutCatalog stores the catalog as the latest document under name, keeps a
// copy in the archive, then records the version.
func (v *FileSystemVault) PutCatalog(name string, r io.Reader, size int64, version int64) error {
	destPath := filepath.Join(v.catalogDir, name)
	if err := v.writeFile(destPath, r, size); err != nil {
		return err
	}

	archivePath := filepath.Join(v.archiveDir, strconv.FormatInt(version, 10)+"-"+name)
	if err := copyFile(destPath, archivePath); err != nil {
		return fmt.Errorf("archiving catalog: %w", err)
	}

	versionPath := destPath + ".version"
	return os.WriteFile(versionPath, []byte(strconv.FormatInt(version, 10)), 0644)
}

// GetCatalogVersion returns the version of the latest catalog under name.
// Returns 0 if no version file exists.
func (v *FileSystemVault) GetCatalogVersion(name string) (int64, error) {
	data, err := os.ReadFile(filepath.Join(v.catalogDir, name+".version"))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading version file: %w", err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// GetCatalog retrieves the latest catalog under name and writes it to w.
func (v *FileSystemVault) GetCatalog(name string, w io.Writer) error {
	f, err := os.Open(filepath.Join(v.catalogDir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("catalog %q: %w", name, portal.ErrNotFound)
		}
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	for _, dir := range []string{v.catalogDir, v.archiveDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}

	return nil
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	// Create temp file in the same directory to ensure atomic rename works
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Compile-time check that FileSystemVault implements portal.Vault interface
var _ portal.Vault = (*FileSystemVault)(nil)
