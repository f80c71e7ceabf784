package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"edusphere/internal/config"
	"edusphere/internal/portal"
)

const (
	DefaultBaseURL     = "https://generativelanguage.googleapis.com"
	DefaultTextModel   = "gemini-3-flash-preview"
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultVideoModel  = "veo-3.1-fast-generate-preview"
	DefaultVoice       = "Kore"

	defaultHTTPTimeout  = 60 * time.Second
	defaultPollInterval = 10 * time.Second
	apiVersion          = "v1beta"
)

// Client talks to the Gemini REST API.
type Client struct {
	apiKey       string
	baseURL      string
	textModel    string
	speechModel  string
	videoModel   string
	voice        string
	pollInterval time.Duration
	httpClient   *http.Client
	logger       portal.Logger
}

var _ portal.Generator = (*Client)(nil)

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPollInterval overrides how often a video operation is polled.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = d
	}
}

// NewClient constructs a client from the generation config. Blank fields fall
// back to the package defaults.
func NewClient(cfg config.GenerationConfig, logger portal.Logger, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini: api_key is required")
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	poll := defaultPollInterval
	if cfg.PollIntervalSeconds > 0 {
		poll = time.Duration(cfg.PollIntervalSeconds) * time.Second
	}

	c := &Client{
		apiKey:       apiKey,
		baseURL:      firstNonEmpty(cfg.BaseURL, DefaultBaseURL),
		textModel:    firstNonEmpty(cfg.TextModel, DefaultTextModel),
		speechModel:  firstNonEmpty(cfg.SpeechModel, DefaultSpeechModel),
		videoModel:   firstNonEmpty(cfg.VideoModel, DefaultVideoModel),
		voice:        firstNonEmpty(cfg.Voice, DefaultVoice),
		pollInterval: poll,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MindMap asks for a name/children tree as JSON.
func (c *Client) MindMap(ctx context.Context, subject, topic string) (*portal.MindMapNode, error) {
	prompt := fmt.Sprintf("Generate a hierarchical mind map for the %s study topic %q. "+
		"Return a JSON object with \"name\" and \"children\" properties.", subject, topic)
	text, err := c.generateText(ctx, prompt, mindMapSchema)
	if err != nil {
		return nil, fmt.Errorf("mind map: %w", err)
	}
	var node portal.MindMapNode
	if err := decodeJSON(text, &node); err != nil {
		return nil, fmt.Errorf("mind map: decoding response: %w", err)
	}
	if node.Name == "" {
		return nil, errors.New("mind map: response has no root name")
	}
	return &node, nil
}

// Notes asks for markdown study notes.
func (c *Client) Notes(ctx context.Context, subject, topic string) (*portal.StudyNote, error) {
	prompt := fmt.Sprintf("Write detailed, structured study notes for the %s topic %q. "+
		"Use markdown formatting.", subject, topic)
	text, err := c.generateText(ctx, prompt, nil)
	if err != nil {
		return nil, fmt.Errorf("notes: %w", err)
	}
	return &portal.StudyNote{Title: "AI Study Notes", Body: text}, nil
}

// Slides asks for five slides of three or four bullets each.
func (c *Client) Slides(ctx context.Context, subject, topic string) ([]portal.Slide, error) {
	prompt := fmt.Sprintf("Generate 5 professional educational slides for the %s topic %q. "+
		"Each slide needs a title and 3-4 bullet points.", subject, topic)
	text, err := c.generateText(ctx, prompt, slidesSchema)
	if err != nil {
		return nil, fmt.Errorf("slides: %w", err)
	}
	var slides []portal.Slide
	if err := decodeJSON(text, &slides); err != nil {
		return nil, fmt.Errorf("slides: decoding response: %w", err)
	}
	return slides, nil
}

// AudioSummary reads text aloud with the configured prebuilt voice.
func (c *Client) AudioSummary(ctx context.Context, text string) (*portal.AudioClip, error) {
	req := generateRequest{
		Contents: []content{{Parts: []part{{
			Text: "Read this study summary in a clear, encouraging educational voice: " + text,
		}}}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{VoiceConfig: voiceConfig{
				PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: c.voice},
			}},
		},
	}
	resp, err := c.generateContent(ctx, c.speechModel, req)
	if err != nil {
		return nil, fmt.Errorf("audio summary: %w", err)
	}
	inline := resp.firstInlineData()
	if inline == nil || inline.Data == "" {
		return nil, errors.New("audio summary: response has no audio")
	}
	pcm, err := base64.StdEncoding.DecodeString(inline.Data)
	if err != nil {
		return nil, fmt.Errorf("audio summary: decoding audio: %w", err)
	}
	return &portal.AudioClip{
		PCM:        pcm,
		SampleRate: sampleRate(inline.MIMEType),
		Channels:   portal.AudioChannels,
	}, nil
}

// VideoLecture submits a video job and polls it until it finishes or ctx ends.
// The returned locator needs the API key to download.
func (c *Client) VideoLecture(ctx context.Context, topic string) (string, error) {
	body := predictRequest{
		Instances: []predictInstance{{
			Prompt: fmt.Sprintf("A professional educational animation or lecture visualization about: %s. "+
				"High quality, cinematic educational style.", topic),
		}},
		Parameters: predictParameters{AspectRatio: "16:9", Resolution: "720p", NumberOfVideos: 1},
	}
	var op operation
	if err := c.post(ctx, c.modelURL(c.videoModel, "predictLongRunning"), body, &op); err != nil {
		return "", fmt.Errorf("video lecture: submitting: %w", err)
	}
	c.logger.Info("video lecture submitted", "operation", op.Name)

	for !op.Done {
		if op.Name == "" {
			return "", errors.New("video lecture: operation has no name")
		}
		if err := sleep(ctx, c.pollInterval); err != nil {
			return "", fmt.Errorf("video lecture: %w", err)
		}
		name := op.Name
		op = operation{}
		if err := c.get(ctx, c.baseURL+"/"+apiVersion+"/"+name, &op); err != nil {
			return "", fmt.Errorf("video lecture: polling: %w", err)
		}
		if op.Name == "" {
			op.Name = name
		}
	}

	if op.Error != nil {
		return "", fmt.Errorf("video lecture: %s", op.Error.Message)
	}
	if op.Response == nil || len(op.Response.GenerateVideoResponse.GeneratedSamples) == 0 {
		return "", errors.New("video lecture: operation finished without a video")
	}
	uri := op.Response.GenerateVideoResponse.GeneratedSamples[0].Video.URI
	if uri == "" {
		return "", errors.New("video lecture: video has no uri")
	}
	return uri, nil
}

// generateText returns the text of the first candidate. With a non-nil
// responseSchema the model is asked for JSON.
func (c *Client) generateText(ctx context.Context, prompt string, responseSchema *schema) (string, error) {
	req := generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}
	if responseSchema != nil {
		req.GenerationConfig = &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   responseSchema,
		}
	}
	resp, err := c.generateContent(ctx, c.textModel, req)
	if err != nil {
		return "", err
	}
	text := resp.text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response")
	}
	return text, nil
}

func (c *Client) generateContent(ctx context.Context, model string, req generateRequest) (*generateResponse, error) {
	var resp generateResponse
	if err := c.post(ctx, c.modelURL(model, "generateContent"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) modelURL(model, method string) string {
	return c.baseURL + "/" + apiVersion + "/models/" + url.PathEscape(model) + ":" + method
}

func (c *Client) post(ctx context.Context, endpoint string, payload, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	c.logger.Debug("gemini request", "path", req.URL.Path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StatusError is returned for non-2xx API responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

func errorMessage(body []byte) string {
	var env struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return summarize(string(body))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// sampleRate reads the rate parameter of an "audio/L16;codec=pcm;rate=24000"
// MIME type.
func sampleRate(mime string) int {
	for _, param := range strings.Split(mime, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(key, "rate") {
			continue
		}
		if rate, err := strconv.Atoi(value); err == nil && rate > 0 {
			return rate
		}
	}
	return portal.AudioSampleRate
}

// decodeJSON tolerates a markdown code fence around the payload.
func decodeJSON(text string, target any) error {
	trimmed := strings.TrimSpace(text)
	if err := json.Unmarshal([]byte(trimmed), target); err == nil {
		return nil
	}
	stripped := stripCodeFence(trimmed)
	if err := json.Unmarshal([]byte(stripped), target); err != nil {
		return fmt.Errorf("%w (payload: %s)", err, summarize(stripped))
	}
	return nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := strings.TrimLeft(s[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func summarize(s string) string {
	clean := strings.Join(strings.Fields(s), " ")
	const limit = 160
	if runes := []rune(clean); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	if clean == "" {
		return "<empty>"
	}
	return clean
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
