package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"edusphere/internal/catalog"
	"edusphere/internal/config"
	"edusphere/internal/encryption"
	"edusphere/internal/fs"
	"edusphere/internal/gemini"
	"edusphere/internal/portal"
	"edusphere/internal/session"
	"edusphere/internal/storage"
	"edusphere/internal/vault"
)

// ErrGenerationDisabled is returned by Study when no generator is configured.
var ErrGenerationDisabled = errors.New("content generation is not configured")

// PortalApp is the application layer between the outer surfaces (CLI, HTTP)
// and the portal. It constructs all dependencies from config and releases
// them on Close.
type PortalApp struct {
	cfg          *config.Config
	storage      portal.Storage
	sessions     *session.Registry
	fsmgr        portal.FilesystemManager
	vaults       []portal.Vault
	encryptor    portal.Encryptor
	publications portal.PublicationLog
	repo         *portal.Repository
	gate         *portal.AccessGate
	study        *portal.StudyService
	logger       portal.Logger
	clock        portal.Clock
	logFile      *os.File
}

type options struct {
	logger    portal.Logger
	generator portal.Generator
	clock     portal.Clock
	idgen     portal.IDGenerator
	fsmgr     portal.FilesystemManager
	seed      *portal.Catalog
	stderr    io.Writer
}

// Option customizes NewPortalApp.
type Option func(*options)

// WithLogger replaces the file logger.
func WithLogger(l portal.Logger) Option { return func(o *options) { o.logger = l } }

// WithGenerator replaces the configured content generator.
func WithGenerator(g portal.Generator) Option { return func(o *options) { o.generator = g } }

// WithClock replaces the wall clock.
func WithClock(c portal.Clock) Option { return func(o *options) { o.clock = c } }

// WithIDGenerator replaces the random id generator.
func WithIDGenerator(g portal.IDGenerator) Option { return func(o *options) { o.idgen = g } }

// WithFilesystem replaces the OS filesystem used for local uploads.
func WithFilesystem(m portal.FilesystemManager) Option { return func(o *options) { o.fsmgr = m } }

// WithSeed replaces the seed catalog shipped with the binary.
func WithSeed(c portal.Catalog) Option { return func(o *options) { o.seed = &c } }

// WithStderr mirrors log output to w.
func WithStderr(w io.Writer) Option { return func(o *options) { o.stderr = w } }

// NewPortalApp creates a fully wired PortalApp from the given config.
// The caller must call Close when done.
func NewPortalApp(cfg *config.Config, opts ...Option) (*PortalApp, error) {
	o := options{
		clock: portal.RealClock{},
		idgen: portal.PrefixedIDGenerator{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	sessionID := portal.NewSessionID()
	a := &PortalApp{cfg: cfg, clock: o.clock, logger: o.logger}

	if a.logger == nil {
		logger, logFile, err := newLogger(cfg.LogDir, sessionID, o.stderr)
		if err != nil {
			return nil, fmt.Errorf("creating logger: %w", err)
		}
		a.logger = &slogAdapter{l: logger}
		a.logFile = logFile
	}

	seed := o.seed
	if seed == nil {
		c, err := catalog.Default()
		if err != nil {
			a.Close()
			return nil, err
		}
		seed = &c
	}

	st, err := storage.NewStorageFromConfig(cfg.Storage, cfg.ProfileID, a.clock)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating storage: %w", err)
	}
	a.storage = st

	sessions, err := session.NewRegistryFromConfig(cfg.Session, sessionID)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating session registry: %w", err)
	}
	a.sessions = sessions

	for _, vc := range cfg.Vaults {
		v, err := vault.NewVaultFromConfig(vc)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating vault %s: %w", vc.Name, err)
		}
		a.vaults = append(a.vaults, v)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	a.encryptor = enc

	gen := o.generator
	if gen == nil {
		gen, err = gemini.NewGeneratorFromConfig(cfg.Generation, a.logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating generator: %w", err)
		}
	}

	a.fsmgr = o.fsmgr
	if a.fsmgr == nil {
		a.fsmgr = fs.NewOSFilesystemManager()
	}

	edits := portal.NewLocalEditStore(st, a.logger)
	a.repo = portal.NewRepository(*seed, edits, sessions, a.logger, a.clock, o.idgen)
	a.gate = portal.NewAccessGate(st, portal.BcryptVerifier{Hash: cfg.Gate.PasscodeHash}, a.logger)
	a.publications = portal.NewPublicationLog(st)
	if gen != nil {
		a.study = portal.NewStudyService(gen, a.repo, a.logger)
	}

	a.logger.Debug("portal started", "profile", cfg.ProfileID, "storage", cfg.Storage.Type, "vaults", len(a.vaults))
	return a, nil
}

// Repository returns the content repository.
func (a *PortalApp) Repository() *portal.Repository { return a.repo }

// Gate returns the access gate.
func (a *PortalApp) Gate() *portal.AccessGate { return a.gate }

// Sessions returns the upload registry of this run.
func (a *PortalApp) Sessions() portal.SessionResources { return a.sessions }

// Config returns the config the app was built from.
func (a *PortalApp) Config() *config.Config { return a.cfg }

// Logger returns the app logger.
func (a *PortalApp) Logger() portal.Logger { return a.logger }

// SubjectSummary is a subject with the number of materials filed under it.
type SubjectSummary struct {
	portal.Subject
	ResourceCount int `json:"resourceCount"`
}

// Subjects returns the subjects whose name matches query, with resource counts.
func (a *PortalApp) Subjects(query string) []SubjectSummary {
	subjects := a.repo.SearchSubjects(query)
	out := make([]SubjectSummary, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, SubjectSummary{Subject: s, ResourceCount: a.repo.ResourceCount(s.ID)})
	}
	return out
}

// AddMaterialFromFile uploads a local file into this session and files it as
// a material. The material type follows the file's media type when it is an
// image, a video or a PDF.
func (a *PortalApp) AddMaterialFromFile(in portal.NewMaterial, rawPath string) (portal.Material, error) {
	p, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return portal.Material{}, fmt.Errorf("resolving path: %w", err)
	}
	rc, err := a.fsmgr.Open(p)
	if err != nil {
		return portal.Material{}, fmt.Errorf("opening %s: %w", p, err)
	}
	defer rc.Close()

	res, err := a.sessions.Put(p.Name(), p.MIME(), rc)
	if err != nil {
		return portal.Material{}, fmt.Errorf("uploading %s: %w", p, err)
	}
	return a.createSessionMaterial(in, res), nil
}

// AddMaterialFromUpload files content read from r as a material.
// The media type is sniffed from the content.
func (a *PortalApp) AddMaterialFromUpload(in portal.NewMaterial, fileName string, r io.Reader) (portal.Material, error) {
	mime, replay, err := fs.DetectMIME(r)
	if err != nil {
		return portal.Material{}, fmt.Errorf("detecting media type: %w", err)
	}
	res, err := a.sessions.Put(fileName, mime, replay)
	if err != nil {
		return portal.Material{}, fmt.Errorf("uploading %s: %w", fileName, err)
	}
	return a.createSessionMaterial(in, res), nil
}

func (a *PortalApp) createSessionMaterial(in portal.NewMaterial, res *portal.Resource) portal.Material {
	in.Type = portal.MaterialTypeForMIME(res.MIME, in.Type)
	in.Source = portal.SourceSession
	in.URL = res.Ref
	in.FileName = res.Name
	return a.repo.CreateMaterial(in)
}

// OpenMaterial streams the uploaded content of a session material.
// Returns ErrNotFound if the material does not exist or its upload is no
// longer held by this session.
func (a *PortalApp) OpenMaterial(id string) (io.ReadCloser, *portal.Resource, error) {
	m, ok := a.repo.Material(id)
	if !ok {
		return nil, nil, fmt.Errorf("material %s: %w", id, portal.ErrNotFound)
	}
	pv := a.repo.Preview(m)
	if !pv.Available || pv.Source != portal.SourceSession {
		return nil, nil, fmt.Errorf("material %s content: %w", id, portal.ErrNotFound)
	}
	return a.sessions.Open(pv.URL)
}

// Export writes the current repository state as a catalog document.
func (a *PortalApp) Export(w io.Writer) error {
	return catalog.Encode(w, a.repo.Snapshot())
}

// Study generates a study pack.
func (a *PortalApp) Study(ctx context.Context, req portal.StudyRequest) (*portal.StudyPack, error) {
	if a.study == nil {
		return nil, ErrGenerationDisabled
	}
	return a.study.Generate(ctx, req)
}

// Close releases sessions, storage and the log file.
func (a *PortalApp) Close() error {
	var errs []error
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing session registry: %w", err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing storage: %w", err))
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return errors.Join(errs...)
}
