package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Study pack steps, used in failure reports.
const (
	StepMindMap = "mindmap"
	StepNotes   = "notes"
	StepSlides  = "slides"
	StepAudio   = "audio"
	StepVideo   = "video"
)

// DefaultTopic is used when a study pack is requested without a topic.
const DefaultTopic = "Subject Overview"

// audioSummaryLimit caps how much of the notes is read aloud.
const audioSummaryLimit = 800

// StudyRequest selects what to generate.
type StudyRequest struct {
	SubjectID string
	// FolderID, when set, receives an "AI Notes" material once notes are generated.
	FolderID string
	Topic    string
	Video    bool
}

// StepFailure records one generation step that did not produce a result.
type StepFailure struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// StudyPack is the combined output of one generation request.
// Fields of failed steps are left empty and listed in Failures.
type StudyPack struct {
	Subject  Subject       `json:"subject"`
	Topic    string        `json:"topic"`
	MindMap  *MindMapNode  `json:"mindMap,omitempty"`
	Notes    *StudyNote    `json:"notes,omitempty"`
	Slides   []Slide       `json:"slides,omitempty"`
	Audio    *AudioClip    `json:"-"`
	VideoURL string        `json:"videoUrl,omitempty"`
	Material *Material     `json:"material,omitempty"`
	Failures []StepFailure `json:"failures,omitempty"`
}

// Failed reports whether step failed.
func (p *StudyPack) Failed(step string) bool {
	for _, f := range p.Failures {
		if f.Step == step {
			return true
		}
	}
	return false
}

func (p *StudyPack) fail(step string, err error) {
	p.Failures = append(p.Failures, StepFailure{Step: step, Message: err.Error()})
}

// StudyService generates study packs and files the notes into the repository.
type StudyService struct {
	generator Generator
	repo      *Repository
	logger    Logger
}

// NewStudyService creates a StudyService.
func NewStudyService(generator Generator, repo *Repository, logger Logger) *StudyService {
	return &StudyService{generator: generator, repo: repo, logger: logger}
}

// Generate runs mind map, notes and slides concurrently, then the audio
// summary of the notes, then the optional video lecture. Steps that fail are
// recorded in the pack; the remaining results are kept. An error is returned
// only for an unknown subject or when ctx ends.
func (s *StudyService) Generate(ctx context.Context, req StudyRequest) (*StudyPack, error) {
	subject, ok := s.repo.Subject(req.SubjectID)
	if !ok {
		return nil, fmt.Errorf("subject %s: %w", req.SubjectID, ErrNotFound)
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = DefaultTopic
	}

	pack := &StudyPack{Subject: subject, Topic: topic}
	s.logger.Info("generating study pack", "subject", subject.ID, "topic", topic)

	var wg sync.WaitGroup
	var mindMapErr, notesErr, slidesErr error
	wg.Add(3)
	go func() {
		defer wg.Done()
		pack.MindMap, mindMapErr = s.generator.MindMap(ctx, subject.Name, topic)
	}()
	go func() {
		defer wg.Done()
		pack.Notes, notesErr = s.generator.Notes(ctx, subject.Name, topic)
	}()
	go func() {
		defer wg.Done()
		pack.Slides, slidesErr = s.generator.Slides(ctx, subject.Name, topic)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if mindMapErr != nil {
		pack.MindMap = nil
		pack.fail(StepMindMap, mindMapErr)
	}
	if notesErr != nil {
		pack.Notes = nil
		pack.fail(StepNotes, notesErr)
	}
	if slidesErr != nil {
		pack.Slides = nil
		pack.fail(StepSlides, slidesErr)
	}

	if pack.Notes != nil {
		audio, err := s.generator.AudioSummary(ctx, summaryText(pack.Notes.Body))
		if err != nil {
			pack.fail(StepAudio, err)
		} else {
			pack.Audio = audio
		}
	} else {
		pack.fail(StepAudio, errors.New("no notes to summarize"))
	}

	if req.Video {
		url, err := s.generator.VideoLecture(ctx, topic)
		if err != nil {
			pack.fail(StepVideo, err)
		} else {
			pack.VideoURL = url
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if req.FolderID != "" && pack.Notes != nil {
		if _, ok := s.repo.Folder(req.FolderID); ok {
			m := s.repo.CreateMaterial(NewMaterial{
				SubjectID: subject.ID,
				FolderID:  req.FolderID,
				Title:     "AI Notes: " + topic,
				Type:      MaterialDoc,
			})
			pack.Material = &m
		} else {
			s.logger.Warn("study pack folder does not exist, notes not filed", "folder", req.FolderID)
		}
	}

	for _, f := range pack.Failures {
		s.logger.Warn("study pack step failed", "step", f.Step, "error", f.Message)
	}
	s.logger.Info("study pack generated", "subject", subject.ID, "topic", topic, "failures", len(pack.Failures))
	return pack, nil
}

// summaryText returns the leading part of the notes that is read aloud.
func summaryText(body string) string {
	runes := []rune(body)
	if len(runes) <= audioSummaryLimit {
		return body
	}
	return string(runes[:audioSummaryLimit])
}
