// Package speech is the client of the external speech engine (speech-to-text and
// text-to-speech).
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/opsis/opsis-backend/internal/metrics"
	"github.com/rs/zerolog"
)

// Synthesis defaults.
const (
	DefaultRate   = 180
	DefaultEngine = "pyttsx3"
	maxAudioBytes = 20 << 20
)

var (
	ErrUnavailable = errors.New("speech engine not available")
	ErrNoSpeech    = errors.New("speech recognition failed")
	ErrEmptyText   = errors.New("text is required")
)

// Transcript is one engine's reading of an audio clip.
type Transcript struct {
	Engine     string  `json:"engine"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Recognition is the best transcript plus every candidate.
type Recognition struct {
	Transcript
	All []Transcript `json:"all_results"`
}

// SynthesizeRequest describes text to speak.
type SynthesizeRequest struct {
	Text    string `json:"text"`
	Engine  string `json:"engine,omitempty"`
	Rate    int    `json:"rate,omitempty"`
	VoiceID string `json:"voice_id,omitempty"`
}

// Audio is synthesized speech.
type Audio struct {
	Data        []byte
	ContentType string
}

// Voice is a TTS voice offered by the engine.
type Voice struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Languages []string `json:"languages"`
	Gender    string   `json:"gender"`
	Age       string   `json:"age"`
}

// VoiceList is the voices endpoint payload.
type VoiceList struct {
	Voices           []Voice  `json:"voices"`
	DefaultRate      int      `json:"default_rate"`
	SupportedEngines []string `json:"supported_engines"`
}

// UnavailableVoices is returned when no engine is configured.
func UnavailableVoices() VoiceList {
	return VoiceList{
		Voices:           []Voice{{ID: "gtts-default", Name: "Google TTS Default", Languages: []string{"en"}, Gender: "neutral", Age: "adult"}},
		DefaultRate:      DefaultRate,
		SupportedEngines: []string{"gtts"},
	}
}

// FallbackVoices is returned when the engine fails to list its voices.
func FallbackVoices() VoiceList {
	return VoiceList{
		Voices:           []Voice{{ID: "fallback", Name: "Fallback Voice", Languages: []string{"en"}, Gender: "neutral", Age: "adult"}},
		DefaultRate:      DefaultRate,
		SupportedEngines: []string{"gtts"},
	}
}

// Engine talks to the speech engine over HTTP. The engine handles one request at a
// time, so every call holds mu.
type Engine struct {
	baseURL string
	client  *http.Client
	mu      sync.Mutex
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewEngine creates an Engine for baseURL. An empty baseURL disables the engine.
func NewEngine(baseURL string, timeout time.Duration, m *metrics.Metrics, log zerolog.Logger) *Engine {
	return &Engine{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		metrics: m,
		log:     log.With().Str("component", "speech_engine").Logger(),
	}
}

// Enabled reports whether an engine URL is configured.
func (e *Engine) Enabled() bool { return e.baseURL != "" }

// Recognize transcribes an audio clip and returns the most confident transcript.
func (e *Engine) Recognize(ctx context.Context, filename string, audio io.Reader) (*Recognition, error) {
	if !e.Enabled() {
		return nil, ErrUnavailable
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio_file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, io.LimitReader(audio, maxAudioBytes)); err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	var out struct {
		Results []Transcript `json:"results"`
	}
	if err := e.doJSON(ctx, "recognize", http.MethodPost, "/recognize", mw.FormDataContentType(), &body, &out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		e.fail("recognize", ErrNoSpeech)
		return nil, ErrNoSpeech
	}

	best := out.Results[0]
	for _, r := range out.Results[1:] {
		if r.Confidence > best.Confidence {
			best = r
		}
	}
	return &Recognition{Transcript: best, All: out.Results}, nil
}

// Synthesize renders text as audio.
func (e *Engine) Synthesize(ctx context.Context, req SynthesizeRequest) (*Audio, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	if !e.Enabled() {
		return nil, ErrUnavailable
	}
	if req.Engine == "" {
		req.Engine = DefaultEngine
	}
	if req.Rate <= 0 {
		req.Rate = DefaultRate
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	resp, err := e.do(ctx, http.MethodPost, "/synthesize", "application/json", bytes.NewReader(payload))
	if err != nil {
		e.fail("synthesize", err)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		e.fail("synthesize", err)
		return nil, fmt.Errorf("read audio: %w", err)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "audio/wav"
	}
	return &Audio{Data: data, ContentType: ct}, nil
}

// Voices lists the engine's voices. It never fails: without an engine it returns
// UnavailableVoices and on engine errors FallbackVoices.
func (e *Engine) Voices(ctx context.Context) VoiceList {
	if !e.Enabled() {
		return UnavailableVoices()
	}

	var out VoiceList
	if err := e.doJSON(ctx, "voices", http.MethodGet, "/voices", "", nil, &out); err != nil {
		return FallbackVoices()
	}
	if len(out.Voices) == 0 {
		out.Voices = []Voice{{ID: "default", Name: "System Default", Languages: []string{"en"}, Gender: "unknown", Age: "unknown"}}
	}
	if out.DefaultRate == 0 {
		out.DefaultRate = DefaultRate
	}
	return out
}

func (e *Engine) doJSON(ctx context.Context, op, method, path, contentType string, body io.Reader, out any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	resp, err := e.do(ctx, method, path, contentType, body)
	if err != nil {
		e.fail(op, err)
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		err = fmt.Errorf("decode %s response: %w", op, err)
		e.fail(op, err)
		return err
	}
	return nil
}

// do sends one request; callers hold mu until the body is consumed. Non-2xx replies
// are errors.
func (e *Engine) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s %s returned %d", ErrUnavailable, method, path, resp.StatusCode)
	}
	return resp, nil
}

func (e *Engine) fail(op string, err error) {
	e.metrics.SpeechFailures.WithLabelValues(op).Inc()
	e.log.Warn().Err(err).Str("operation", op).Msg("Speech engine call failed")
}
