package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"edusphere/internal/app"
	"edusphere/internal/catalog"
	"edusphere/internal/encryption"
	"edusphere/internal/portal"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 8 << 20

// --- Session ---

type sessionResponse struct {
	SessionID   string `json:"sessionId"`
	Privileged  bool   `json:"privileged"`
	Modified    bool   `json:"modified"`
	SeedVersion int64  `json:"seedVersion"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	repo := s.app.Repository()
	s.writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:   s.app.Sessions().SessionID(),
		Privileged:  s.app.Gate().Privileged(),
		Modified:    repo.Modified(),
		SeedVersion: repo.SeedVersion(),
	})
}

type loginRequest struct {
	Passcode string `json:"passcode" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if !s.app.Gate().Login(req.Passcode) {
		s.writeError(w, http.StatusUnauthorized, "incorrect passcode")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"privileged": true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.app.Gate().Logout()
	s.writeJSON(w, http.StatusOK, map[string]bool{"privileged": false})
}

// --- Browsing ---

func (s *Server) handleSubjects(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.app.Subjects(r.URL.Query().Get("q")))
}

type subjectResponse struct {
	Subject       portal.Subject    `json:"subject"`
	ResourceCount int               `json:"resourceCount"`
	Folders       []portal.Folder   `json:"folders"`
	Uncategorized []portal.Material `json:"uncategorized"`
}

func (s *Server) handleSubject(w http.ResponseWriter, r *http.Request) {
	repo := s.app.Repository()
	subject, ok := repo.Subject(chi.URLParam(r, "subjectID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "subject not found")
		return
	}
	s.writeJSON(w, http.StatusOK, subjectResponse{
		Subject:       subject,
		ResourceCount: repo.ResourceCount(subject.ID),
		Folders:       nonNil(repo.FoldersForSubject(subject.ID)),
		Uncategorized: nonNil(repo.MaterialsAt(subject.ID, "")),
	})
}

type searchResponse struct {
	Folders   []portal.Folder   `json:"folders"`
	Materials []portal.Material `json:"materials"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	repo := s.app.Repository()
	subject, ok := repo.Subject(chi.URLParam(r, "subjectID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "subject not found")
		return
	}
	res := repo.Search(subject.ID, r.URL.Query().Get("q"))
	s.writeJSON(w, http.StatusOK, searchResponse{
		Folders:   nonNil(res.Folders),
		Materials: nonNil(res.Materials),
	})
}

type folderResponse struct {
	Folder     portal.Folder     `json:"folder"`
	Provenance portal.Provenance `json:"provenance"`
	Materials  []portal.Material `json:"materials"`
}

func (s *Server) handleFolder(w http.ResponseWriter, r *http.Request) {
	repo := s.app.Repository()
	f, ok := repo.Folder(chi.URLParam(r, "folderID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "folder not found")
		return
	}
	prov, _ := repo.Provenance(f.ID)
	s.writeJSON(w, http.StatusOK, folderResponse{
		Folder:     f,
		Provenance: prov,
		Materials:  nonNil(repo.MaterialsAt(f.SubjectID, f.ID)),
	})
}

type previewResponse struct {
	Available bool              `json:"available"`
	Source    portal.SourceKind `json:"source,omitempty"`
	MIME      string            `json:"mime,omitempty"`
	Reason    string            `json:"reason,omitempty"`
}

type materialResponse struct {
	Material   portal.Material   `json:"material"`
	Provenance portal.Provenance `json:"provenance"`
	Preview    previewResponse   `json:"preview"`
}

func (s *Server) handleMaterial(w http.ResponseWriter, r *http.Request) {
	repo := s.app.Repository()
	m, ok := repo.Material(chi.URLParam(r, "materialID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "material not found")
		return
	}
	prov, _ := repo.Provenance(m.ID)
	pv := repo.Preview(m)
	s.writeJSON(w, http.StatusOK, materialResponse{
		Material:   m,
		Provenance: prov,
		Preview: previewResponse{
			Available: pv.Available,
			Source:    pv.Source,
			MIME:      pv.MIME,
			Reason:    pv.Reason,
		},
	})
}

// handleMaterialContent redirects to a link, streams an upload held by this
// session, or explains why nothing can be shown.
func (s *Server) handleMaterialContent(w http.ResponseWriter, r *http.Request) {
	repo := s.app.Repository()
	m, ok := repo.Material(chi.URLParam(r, "materialID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "material not found")
		return
	}

	pv := repo.Preview(m)
	switch {
	case !pv.Available:
		s.writeError(w, http.StatusNotFound, pv.Reason)
		return
	case pv.Source == portal.SourceLink:
		http.Redirect(w, r, pv.URL, http.StatusTemporaryRedirect)
		return
	}

	rc, res, err := s.app.OpenMaterial(m.ID)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", res.MIME)
	w.Header().Set("Content-Length", strconv.FormatInt(res.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": res.Name}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("streaming material content failed", "id", m.ID, "error", err)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.app.Export(&buf); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/toml")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": catalog.DocumentName}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// --- Study packs ---

type studyRequest struct {
	SubjectID string `json:"subjectId" validate:"required,notblank"`
	FolderID  string `json:"folderId"`
	Topic     string `json:"topic" validate:"max=200"`
	Video     bool   `json:"video"`
}

type studyResponse struct {
	*portal.StudyPack
	AudioWAV      []byte  `json:"audioWav,omitempty"`
	AudioDuration float64 `json:"audioDurationSeconds,omitempty"`
}

func (s *Server) handleStudy(w http.ResponseWriter, r *http.Request) {
	var req studyRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	pack, err := s.app.Study(r.Context(), portal.StudyRequest{
		SubjectID: req.SubjectID,
		FolderID:  req.FolderID,
		Topic:     req.Topic,
		Video:     req.Video,
	})
	switch {
	case errors.Is(err, app.ErrGenerationDisabled):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The client is gone; nothing to answer.
		s.logger.Info("study pack abandoned", "subject", req.SubjectID)
		return
	case err != nil:
		s.writeError(w, statusFor(err), err.Error())
		return
	}

	resp := studyResponse{StudyPack: pack}
	if pack.Audio != nil {
		resp.AudioWAV = pack.Audio.WAV()
		resp.AudioDuration = pack.Audio.Duration()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// --- Mutations (admin mode) ---

type createFolderRequest struct {
	SubjectID string `json:"subjectId" validate:"required,notblank,max=64"`
	Name      string `json:"name" validate:"max=120"`
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	f := s.app.Repository().CreateFolder(req.SubjectID, req.Name)
	s.writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "folderID")
	if !s.confirmed(w, r, "delete folder "+id) {
		return
	}
	if !s.app.Repository().DeleteFolder(id) {
		s.writeError(w, http.StatusNotFound, "folder not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createMaterialRequest struct {
	SubjectID string `json:"subjectId" validate:"required,notblank,max=64"`
	FolderID  string `json:"folderId" validate:"max=64"`
	Title     string `json:"title" validate:"max=200"`
	Type      string `json:"type" validate:"omitempty,oneof=pdf video doc image link"`
	URL       string `json:"url" validate:"max=2048"`
}

func (s *Server) handleCreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req createMaterialRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	m := s.app.Repository().CreateMaterial(portal.NewMaterial{
		SubjectID: req.SubjectID,
		FolderID:  req.FolderID,
		Title:     req.Title,
		Type:      portal.MaterialType(req.Type),
		URL:       req.URL,
	})
	s.writeJSON(w, http.StatusCreated, m)
}

type uploadForm struct {
	SubjectID string `json:"subjectId" validate:"required,notblank,max=64"`
	FolderID  string `json:"folderId" validate:"max=64"`
	Title     string `json:"title" validate:"max=200"`
	Type      string `json:"type" validate:"omitempty,oneof=pdf video doc image"`
}

func (s *Server) handleUploadMaterial(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
			return
		}
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	form := uploadForm{
		SubjectID: r.FormValue("subjectId"),
		FolderID:  r.FormValue("folderId"),
		Title:     r.FormValue("title"),
		Type:      r.FormValue("type"),
	}
	if !s.validateRequest(w, &form) {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	m, err := s.app.AddMaterialFromUpload(portal.NewMaterial{
		SubjectID: form.SubjectID,
		FolderID:  form.FolderID,
		Title:     form.Title,
		Type:      portal.MaterialType(form.Type),
	}, header.Filename, file)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "materialID")
	if !s.confirmed(w, r, "delete material "+id) {
		return
	}
	if !s.app.Repository().DeleteMaterial(id) {
		s.writeError(w, http.StatusNotFound, "material not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if !s.confirmed(w, r, "reset to seed catalog") {
		return
	}
	s.app.Repository().Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	pubs, err := s.app.Publish()
	switch {
	case errors.Is(err, app.ErrVaultAhead):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, app.ErrNoVaults), errors.Is(err, encryption.ErrKeysMissing):
		s.writeError(w, http.StatusPreconditionFailed, err.Error())
		return
	case err != nil:
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, pubs)
}

func (s *Server) handlePublications(w http.ResponseWriter, r *http.Request) {
	pubs, err := s.app.Publications()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(pubs))
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
