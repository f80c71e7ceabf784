package portal

import (
	"strings"

	"golang.org/x/text/cases"
)

// A cases.Caser is stateful, so every call builds its own.
func foldString(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func matches(haystack, foldedNeedle string) bool {
	if foldedNeedle == "" {
		return true
	}
	return strings.Contains(cases.Fold().String(haystack), foldedNeedle)
}

// SearchSubjects returns the subjects whose name contains q, ignoring case.
// An empty query returns every subject.
func (r *Repository) SearchSubjects(q string) []Subject {
	needle := foldString(q)
	var out []Subject
	for _, s := range r.seed.Subjects {
		if matches(s.Name, needle) {
			out = append(out, s)
		}
	}
	return out
}

// SearchResult holds the folders and materials of one subject matching a query.
type SearchResult struct {
	Folders   []Folder
	Materials []Material
}

// Search finds folders by name and materials by title within a subject.
func (r *Repository) Search(subjectID, q string) SearchResult {
	needle := foldString(q)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var res SearchResult
	for _, f := range r.folders {
		if f.SubjectID == subjectID && matches(f.Name, needle) {
			res.Folders = append(res.Folders, f)
		}
	}
	for _, m := range r.materials {
		if m.SubjectID == subjectID && matches(m.Title, needle) {
			res.Materials = append(res.Materials, m)
		}
	}
	return res
}
