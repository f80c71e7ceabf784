package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"edusphere/internal/config"
	"edusphere/internal/portal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.GenerationConfig{APIKey: "test-key", BaseURL: server.URL},
		portal.NewNopLogger(), WithPollInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func textResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	}
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(config.GenerationConfig{}, portal.NewNopLogger()); err == nil {
		t.Error("NewClient() without api key expected error")
	}

	c, err := NewClient(config.GenerationConfig{APIKey: " k ", PollIntervalSeconds: 3, TimeoutSeconds: 7}, portal.NewNopLogger())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.apiKey != "k" || c.baseURL != DefaultBaseURL || c.textModel != DefaultTextModel || c.voice != DefaultVoice {
		t.Errorf("defaults not applied: %+v", c)
	}
	if c.pollInterval != 3*time.Second || c.httpClient.Timeout != 7*time.Second {
		t.Errorf("pollInterval = %v, timeout = %v", c.pollInterval, c.httpClient.Timeout)
	}
}

func TestClientMindMap(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/"+DefaultTextModel+":generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.GenerationConfig == nil || req.GenerationConfig.ResponseMIMEType != "application/json" {
			t.Errorf("request not asking for JSON: %+v", req.GenerationConfig)
		}
		if !strings.Contains(req.Contents[0].Parts[0].Text, "Fractions") {
			t.Errorf("prompt missing topic: %q", req.Contents[0].Parts[0].Text)
		}
		writeJSON(t, w, textResponse("```json\n{\"name\":\"Fractions\",\"children\":[{\"name\":\"Adding\"}]}\n```"))
	})

	node, err := client.MindMap(context.Background(), "Mathematics", "Fractions")
	if err != nil {
		t.Fatalf("MindMap() error = %v", err)
	}
	if node.Name != "Fractions" || node.Count() != 2 {
		t.Errorf("MindMap() = %+v", node)
	}
}

func TestClientNotesAndSlides(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.GenerationConfig == nil {
			writeJSON(t, w, textResponse("# Notes\n\nBody"))
			return
		}
		writeJSON(t, w, textResponse(`[{"title":"Intro","content":["a","b","c"]}]`))
	})

	notes, err := client.Notes(context.Background(), "Science", "Motion")
	if err != nil {
		t.Fatalf("Notes() error = %v", err)
	}
	if notes.Body != "# Notes\n\nBody" {
		t.Errorf("Notes().Body = %q", notes.Body)
	}

	slides, err := client.Slides(context.Background(), "Science", "Motion")
	if err != nil {
		t.Fatalf("Slides() error = %v", err)
	}
	if len(slides) != 1 || slides[0].Title != "Intro" || len(slides[0].Content) != 3 {
		t.Errorf("Slides() = %+v", slides)
	}
}

func TestClientAudioSummary(t *testing.T) {
	t.Parallel()

	pcm := []byte{1, 0, 2, 0, 3, 0}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, DefaultSpeechModel+":generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gc := req.GenerationConfig
		if gc == nil || len(gc.ResponseModalities) != 1 || gc.ResponseModalities[0] != "AUDIO" {
			t.Errorf("generationConfig = %+v", gc)
		}
		if gc != nil && gc.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != DefaultVoice {
			t.Errorf("voice = %q", gc.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
		}
		writeJSON(t, w, map[string]any{
			"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{
				map[string]any{"inlineData": map[string]any{
					"mimeType": "audio/L16;codec=pcm;rate=16000",
					"data":     base64.StdEncoding.EncodeToString(pcm),
				}},
			}}}},
		})
	})

	clip, err := client.AudioSummary(context.Background(), "summary")
	if err != nil {
		t.Fatalf("AudioSummary() error = %v", err)
	}
	if string(clip.PCM) != string(pcm) {
		t.Errorf("PCM = %v, want %v", clip.PCM, pcm)
	}
	if clip.SampleRate != 16000 || clip.Channels != 1 {
		t.Errorf("SampleRate = %d, Channels = %d", clip.SampleRate, clip.Channels)
	}
}

func TestClientAudioSummaryWithoutAudio(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, textResponse("I cannot speak"))
	})
	if _, err := client.AudioSummary(context.Background(), "summary"); err == nil {
		t.Fatal("AudioSummary() expected error")
	}
}

func TestClientVideoLecture(t *testing.T) {
	t.Parallel()

	var polls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, DefaultVideoModel+":predictLongRunning"):
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), "Photosynthesis") {
				t.Errorf("prompt missing topic: %s", body)
			}
			writeJSON(t, w, map[string]any{"name": "operations/op-1"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1beta/operations/op-1":
			if polls.Add(1) < 3 {
				writeJSON(t, w, map[string]any{"name": "operations/op-1", "done": false})
				return
			}
			writeJSON(t, w, map[string]any{
				"name": "operations/op-1",
				"done": true,
				"response": map[string]any{"generateVideoResponse": map[string]any{
					"generatedSamples": []any{map[string]any{"video": map[string]any{"uri": "https://files.example/v1?alt=media"}}},
				}},
			})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	uri, err := client.VideoLecture(context.Background(), "Photosynthesis")
	if err != nil {
		t.Fatalf("VideoLecture() error = %v", err)
	}
	if uri != "https://files.example/v1?alt=media" {
		t.Errorf("VideoLecture() = %q", uri)
	}
	if polls.Load() != 3 {
		t.Errorf("polls = %d, want 3", polls.Load())
	}
}

func TestClientVideoLectureOperationError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"name":  "operations/op-2",
			"done":  true,
			"error": map[string]any{"code": 3, "message": "prompt rejected"},
		})
	})

	_, err := client.VideoLecture(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "prompt rejected") {
		t.Fatalf("VideoLecture() error = %v, want prompt rejected", err)
	}
}

func TestClientVideoLectureCancelled(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"name": "operations/slow", "done": false})
	})
	client.pollInterval = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.VideoLecture(ctx, "x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("VideoLecture() error = %v, want deadline exceeded", err)
	}
}

func TestClientStatusError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		writeJSON(t, w, map[string]any{"error": map[string]any{"code": 429, "message": "quota exceeded"}})
	})

	_, err := client.Notes(context.Background(), "Math", "Sets")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Notes() error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests || statusErr.Message != "quota exceeded" {
		t.Errorf("StatusError = %+v", statusErr)
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "plain", in: `{"name":"a"}`},
		{name: "fenced", in: "```json\n{\"name\":\"a\"}\n```"},
		{name: "bare fence", in: "```\n{\"name\":\"a\"}\n```"},
		{name: "garbage", in: "not json", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var node portal.MindMapNode
			err := decodeJSON(tt.in, &node)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && node.Name != "a" {
				t.Errorf("Name = %q, want a", node.Name)
			}
		})
	}
}

func TestSampleRate(t *testing.T) {
	t.Parallel()

	tests := map[string]int{
		"audio/L16;codec=pcm;rate=24000": 24000,
		"audio/L16; rate=16000":          16000,
		"audio/L16":                      portal.AudioSampleRate,
		"audio/L16;rate=bogus":           portal.AudioSampleRate,
	}
	for mime, want := range tests {
		if got := sampleRate(mime); got != want {
			t.Errorf("sampleRate(%q) = %d, want %d", mime, got, want)
		}
	}
}

func TestNewGeneratorFromConfig(t *testing.T) {
	t.Parallel()

	gen, err := NewGeneratorFromConfig(config.GenerationConfig{Type: "none"}, portal.NewNopLogger())
	if err != nil || gen != nil {
		t.Errorf("none: gen = %v, err = %v, want nil, nil", gen, err)
	}
	gen, err = NewGeneratorFromConfig(config.GenerationConfig{Type: "gemini", APIKey: "k"}, portal.NewNopLogger())
	if err != nil || gen == nil {
		t.Errorf("gemini: gen = %v, err = %v", gen, err)
	}
	if _, err := NewGeneratorFromConfig(config.GenerationConfig{Type: "gemini"}, portal.NewNopLogger()); err == nil {
		t.Error("gemini without key: expected error")
	}
	if _, err := NewGeneratorFromConfig(config.GenerationConfig{Type: "openai"}, portal.NewNopLogger()); err == nil {
		t.Error("unknown type: expected error")
	}
}
