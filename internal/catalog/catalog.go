// Package catalog reads and writes catalog documents: the seed catalog that
// ships inside the binary and the catalogs produced by export and publish.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"

	"edusphere/internal/portal"
)

// ErrInvalidCatalog is returned when a catalog document cannot be used.
var ErrInvalidCatalog = errors.New("invalid catalog")

//go:embed seed.toml
var seedDocument []byte

// header is written above every encoded catalog.
const header = `# EduSphere catalog.
# Generated by edusphere; commit it as internal/catalog/seed.toml to make these records permanent.
`

// Default returns the seed catalog shipped with the binary.
func Default() (portal.Catalog, error) {
	c, err := Decode(bytes.NewReader(seedDocument))
	if err != nil {
		return portal.Catalog{}, fmt.Errorf("loading seed catalog: %w", err)
	}
	return c, nil
}

// Encode writes c as a TOML document. The output is deterministic: records
// keep their order and every field is written in a fixed order, so encoding
// the same catalog twice yields identical bytes.
func Encode(w io.Writer, c portal.Catalog) error {
	if err := checkText(c); err != nil {
		return err
	}
	if _, err := io.WriteString(w, header+"\n"); err != nil {
		return fmt.Errorf("writing catalog header: %w", err)
	}
	enc := toml.NewEncoder(w)
	enc.Indent = ""
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	return nil
}

// Decode parses a catalog document and validates it.
// Unknown keys and broken invariants are reported as ErrInvalidCatalog.
func Decode(r io.Reader) (portal.Catalog, error) {
	var c portal.Catalog
	md, err := toml.NewDecoder(r).Decode(&c)
	if err != nil {
		return portal.Catalog{}, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return portal.Catalog{}, fmt.Errorf("%w: unknown keys: %s", ErrInvalidCatalog, strings.Join(keys, ", "))
	}
	if c.Version < 1 {
		return portal.Catalog{}, fmt.Errorf("%w: version must be at least 1", ErrInvalidCatalog)
	}
	if err := c.Validate(); err != nil {
		return portal.Catalog{}, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return c, nil
}

// checkText rejects strings the decoder would refuse, so every encoded
// catalog can be read back.
func checkText(c portal.Catalog) error {
	bad := func(kind, id string, values ...string) error {
		for _, v := range values {
			if !utf8.ValidString(v) {
				return fmt.Errorf("%w: %s %q holds invalid UTF-8", ErrInvalidCatalog, kind, id)
			}
		}
		return nil
	}
	for _, s := range c.Subjects {
		if err := bad("subject", s.ID, s.ID, s.Name, s.Icon, s.Color, s.Description); err != nil {
			return err
		}
	}
	for _, f := range c.Folders {
		if err := bad("folder", f.ID, f.ID, f.SubjectID, f.Name, f.CreatedAt); err != nil {
			return err
		}
	}
	for _, m := range c.Materials {
		if err := bad("material", m.ID, m.ID, m.SubjectID, m.FolderID, m.Title, string(m.Type), m.Date, m.URL, string(m.Source)); err != nil {
			return err
		}
	}
	return nil
}

// DocumentName is the name a catalog is published under.
const DocumentName = "seed.toml"
