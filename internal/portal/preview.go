package portal

// Preview describes how a material can be shown to the user.
type Preview struct {
	Available bool
	Source    SourceKind
	// URL is the external address for links or the session reference for uploads.
	URL    string
	MIME   string
	Reason string
}

// Reasons reported when a preview is unavailable.
const (
	ReasonNoSource       = "no file preview available"
	ReasonSessionExpired = "preview unavailable: the uploaded file belonged to an earlier session"
)

// Preview reports whether m can be previewed in the current session.
// Links are always previewable; session uploads only while this session
// still holds the blob.
func (r *Repository) Preview(m Material) Preview {
	switch m.Source {
	case SourceLink:
		return Preview{Available: true, Source: SourceLink, URL: m.URL}
	case SourceSession:
		if r.sessions != nil {
			if res := r.sessions.Stat(m.URL); res != nil {
				return Preview{Available: true, Source: SourceSession, URL: m.URL, MIME: res.MIME}
			}
		}
		return Preview{Source: SourceSession, Reason: ReasonSessionExpired}
	default:
		return Preview{Reason: ReasonNoSource}
	}
}
