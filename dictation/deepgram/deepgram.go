// Package deepgram is a dictation capability backed by Deepgram's streaming
// listen API. Audio is pushed by the caller; results come back over the
// same websocket.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/kbukum/voicenotes/dictation"
)

const defaultBaseURL = "https://api.deepgram.com/v1"

// Config controls the Deepgram websocket.
type Config struct {
	APIKey      string `mapstructure:"api_key"`
	APIBaseURL  string `mapstructure:"api_base_url"`
	Model       string `mapstructure:"model"`
	SmartFormat bool   `mapstructure:"smart_format"`
	Encoding    string `mapstructure:"encoding"`
	SampleRate  int    `mapstructure:"sample_rate"`
	Channels    int    `mapstructure:"channels"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultBaseURL
	}
	if c.Model == "" {
		c.Model = "nova-2"
	}
	if c.Encoding == "" {
		c.Encoding = "linear16"
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.Channels <= 0 {
		c.Channels = 1
	}
}

// Capability creates Deepgram recognizers. It is available when an API key
// is configured.
type Capability struct {
	cfg    Config
	dialer *websocket.Dialer
}

var _ dictation.Capability = (*Capability)(nil)

func New(cfg Config) *Capability {
	cfg.ApplyDefaults()
	return &Capability{cfg: cfg, dialer: websocket.DefaultDialer}
}

func (c *Capability) Available() bool { return strings.TrimSpace(c.cfg.APIKey) != "" }

func (c *Capability) New(cfg dictation.Config) (dictation.Recognizer, error) {
	listenURL, err := buildListenURL(c.cfg, cfg)
	if err != nil {
		return nil, err
	}
	return &recognizer{
		apiKey:  c.cfg.APIKey,
		url:     listenURL,
		dialer:  c.dialer,
		events:  make(chan dictation.Event, 64),
		audio:   make(chan []byte, 32),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

type recognizer struct {
	apiKey string
	url    string
	dialer *websocket.Dialer

	conn    *websocket.Conn
	events  chan dictation.Event
	audio   chan []byte
	closing chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup

	mu         sync.Mutex
	started    bool
	sendClosed bool
	stopping   bool
	segments   int

	closeOnce sync.Once
}

var (
	_ dictation.Recognizer = (*recognizer)(nil)
	_ dictation.AudioSink  = (*recognizer)(nil)
)

func (r *recognizer) Start(ctx context.Context) error {
	headers := http.Header{}
	headers.Set("Authorization", "Token "+r.apiKey)

	conn, resp, err := r.dialer.DialContext(ctx, r.url, headers)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: deepgram returned %s", dictation.ErrPermissionDenied, resp.Status)
		}
		return fmt.Errorf("connect to deepgram: %w", err)
	}

	r.mu.Lock()
	r.conn = conn
	r.started = true
	r.mu.Unlock()

	r.wg.Add(2)
	go r.readLoop()
	go r.writeLoop()
	go func() {
		r.wg.Wait()
		close(r.done)
	}()
	return nil
}

// Stop closes the audio stream. Deepgram flushes its last results and then
// closes the socket, which ends the session.
func (r *recognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started || r.sendClosed {
		return nil
	}
	r.sendClosed = true
	r.stopping = true
	close(r.audio)
	return nil
}

func (r *recognizer) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started || r.sendClosed {
		return errors.New("deepgram: audio stream is closed")
	}
	copied := append([]byte(nil), chunk...)
	select {
	case r.audio <- copied:
		return nil
	case <-r.closing:
		return errors.New("deepgram: session closed")
	}
}

func (r *recognizer) Events() <-chan dictation.Event { return r.events }

// Close drops the connection and waits for both loops before closing the
// event channel.
func (r *recognizer) Close() error {
	r.closeOnce.Do(func() {
		close(r.closing)
		r.mu.Lock()
		conn := r.conn
		started := r.started
		r.mu.Unlock()
		if started {
			_ = conn.Close()
			<-r.done
		}
		close(r.events)
	})
	return nil
}

func (r *recognizer) writeLoop() {
	defer r.wg.Done()
	for {
		select {
		case chunk, ok := <-r.audio:
			if !ok {
				if err := r.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
					r.emit(dictation.ErrorEvent(dictation.CodeNetwork, "close stream: "+err.Error()))
				}
				return
			}
			if err := r.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				r.emit(dictation.ErrorEvent(dictation.CodeNetwork, "send audio: "+err.Error()))
				return
			}
		case <-r.closing:
			return
		}
	}
}

func (r *recognizer) readLoop() {
	defer r.wg.Done()
	for {
		_, payload, err := r.conn.ReadMessage()
		if err != nil {
			r.emit(r.terminalEvent(err))
			return
		}

		var response listenResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}
		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(response.Message)
			if message == "" {
				message = "deepgram returned an unknown error"
			}
			r.emit(dictation.ErrorEvent(dictation.CodeNetwork, message))
			return
		}

		text := extractTranscript(response)
		if text == "" {
			continue
		}
		r.emit(r.resultEvent(text, response.IsFinal || response.SpeechFinal))
	}
}

// terminalEvent classifies the read error that ended the socket.
func (r *recognizer) terminalEvent(err error) dictation.Event {
	select {
	case <-r.closing:
		return dictation.EndEvent()
	default:
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return dictation.EndEvent()
	}
	r.mu.Lock()
	stopping := r.stopping
	r.mu.Unlock()
	if stopping && websocket.IsUnexpectedCloseError(err) {
		return dictation.EndEvent()
	}
	return dictation.ErrorEvent(dictation.CodeNetwork, err.Error())
}

// resultEvent separates consecutive segments with a space; Deepgram
// transcripts carry no surrounding whitespace.
func (r *recognizer) resultEvent(text string, final bool) dictation.Event {
	r.mu.Lock()
	if r.segments > 0 {
		text = " " + text
	}
	if final {
		r.segments++
	}
	r.mu.Unlock()
	if final {
		return dictation.Final(text)
	}
	return dictation.Interim(text)
}

// emit blocks until the manager reads the event or the recognizer is
// released.
func (r *recognizer) emit(ev dictation.Event) {
	select {
	case r.events <- ev:
	case <-r.closing:
	}
}

type listenResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []alternative `json:"alternatives"`
	} `json:"channel"`
}

type alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

func extractTranscript(response listenResponse) string {
	if len(response.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(response.Channel.Alternatives[0].Transcript)
}

func buildListenURL(cfg Config, session dictation.Config) (string, error) {
	base := strings.TrimSpace(cfg.APIBaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	if rest, ok := strings.CutPrefix(base, "https://"); ok {
		base = "wss://" + rest
	} else if rest, ok := strings.CutPrefix(base, "http://"); ok {
		base = "ws://" + rest
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid deepgram base url: %w", err)
	}

	query := listenURL.Query()
	query.Set("model", cfg.Model)
	query.Set("encoding", cfg.Encoding)
	query.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	query.Set("channels", strconv.Itoa(cfg.Channels))
	query.Set("interim_results", strconv.FormatBool(session.InterimResults))
	query.Set("smart_format", strconv.FormatBool(cfg.SmartFormat))
	if session.Locale != "" {
		query.Set("language", session.Locale)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
