package testutil

import (
	"context"
	"fmt"
	"sync"

	"edusphere/internal/portal"
)

// StubGenerator returns canned study content. Setting one of the Err fields
// makes the matching step fail.
type StubGenerator struct {
	MindMapErr error
	NotesErr   error
	SlidesErr  error
	AudioErr   error
	VideoErr   error

	// NotesBody overrides the generated notes body when set.
	NotesBody string

	mu        sync.Mutex
	audioText string
	calls     []string
}

var _ portal.Generator = (*StubGenerator)(nil)

func (g *StubGenerator) record(step string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, step)
}

// Calls returns the steps invoked, in call order.
func (g *StubGenerator) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// AudioText returns the text last passed to AudioSummary.
func (g *StubGenerator) AudioText() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.audioText
}

func (g *StubGenerator) MindMap(ctx context.Context, subject, topic string) (*portal.MindMapNode, error) {
	g.record(portal.StepMindMap)
	if g.MindMapErr != nil {
		return nil, g.MindMapErr
	}
	return &portal.MindMapNode{
		Name: topic,
		Children: []*portal.MindMapNode{
			{Name: subject + " basics"},
			{Name: "Practice", Children: []*portal.MindMapNode{{Name: "Exercises"}}},
		},
	}, nil
}

func (g *StubGenerator) Notes(ctx context.Context, subject, topic string) (*portal.StudyNote, error) {
	g.record(portal.StepNotes)
	if g.NotesErr != nil {
		return nil, g.NotesErr
	}
	body := g.NotesBody
	if body == "" {
		body = fmt.Sprintf("# %s\n\nKey ideas of %s.", topic, subject)
	}
	return &portal.StudyNote{Title: topic, Body: body}, nil
}

func (g *StubGenerator) Slides(ctx context.Context, subject, topic string) ([]portal.Slide, error) {
	g.record(portal.StepSlides)
	if g.SlidesErr != nil {
		return nil, g.SlidesErr
	}
	return []portal.Slide{
		{Title: topic, Content: []string{"Overview"}},
		{Title: "Summary", Content: []string{"Review", "Practice"}},
	}, nil
}

func (g *StubGenerator) AudioSummary(ctx context.Context, text string) (*portal.AudioClip, error) {
	g.record(portal.StepAudio)
	g.mu.Lock()
	g.audioText = text
	g.mu.Unlock()
	if g.AudioErr != nil {
		return nil, g.AudioErr
	}
	return &portal.AudioClip{
		PCM:        make([]byte, portal.AudioSampleRate*2),
		SampleRate: portal.AudioSampleRate,
		Channels:   portal.AudioChannels,
	}, nil
}

func (g *StubGenerator) VideoLecture(ctx context.Context, topic string) (string, error) {
	g.record(portal.StepVideo)
	if g.VideoErr != nil {
		return "", g.VideoErr
	}
	return "https://video.example.com/lecture.mp4", nil
}
