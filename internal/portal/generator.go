package portal

import (
	"bytes"
	"context"
	"encoding/binary"
)

// MindMapNode is one node of a generated mind map.
type MindMapNode struct {
	Name     string         `json:"name"`
	Children []*MindMapNode `json:"children,omitempty"`
}

// Count returns the number of nodes in the tree rooted at n.
func (n *MindMapNode) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// StudyNote is generated markdown notes.
type StudyNote struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Slide is one generated presentation slide.
type Slide struct {
	Title   string   `json:"title"`
	Content []string `json:"content"`
}

// Audio format produced by the speech model.
const (
	AudioSampleRate = 24000
	AudioChannels   = 1
	audioBitDepth   = 16
)

// AudioClip is raw 16-bit signed little-endian PCM.
type AudioClip struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// Duration returns the clip length in seconds.
func (a *AudioClip) Duration() float64 {
	frame := a.Channels * audioBitDepth / 8
	if frame == 0 || a.SampleRate == 0 {
		return 0
	}
	return float64(len(a.PCM)/frame) / float64(a.SampleRate)
}

// WAV wraps the PCM samples in a RIFF/WAVE container for playback.
func (a *AudioClip) WAV() []byte {
	blockAlign := a.Channels * audioBitDepth / 8
	dataLen := uint32(len(a.PCM))

	var buf bytes.Buffer
	buf.Grow(44 + len(a.PCM))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(a.Channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(a.SampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(a.SampleRate*blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(audioBitDepth))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataLen)
	buf.Write(a.PCM)
	return buf.Bytes()
}

// Generator is the content generation service.
// Calls are independent; the caller decides how to combine them.
type Generator interface {
	// MindMap returns a hierarchical outline of topic.
	MindMap(ctx context.Context, subject, topic string) (*MindMapNode, error)

	// Notes returns markdown study notes on topic.
	Notes(ctx context.Context, subject, topic string) (*StudyNote, error)

	// Slides returns a short slide deck on topic.
	Slides(ctx context.Context, subject, topic string) ([]Slide, error)

	// AudioSummary reads text aloud.
	AudioSummary(ctx context.Context, text string) (*AudioClip, error)

	// VideoLecture submits a video job, waits for it and returns a locator for the result.
	VideoLecture(ctx context.Context, topic string) (string, error)
}
