// Package llm adapts the backend protocols used for content generation to a
// single Provider interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Message is one chat turn sent to a backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles accepted in Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request is a normalized completion request.
type Request struct {
	Messages    []Message
	Temperature float64
	// JSON asks the backend for strict JSON output where the protocol has
	// native support for it.
	JSON bool
}

// Provider issues completion requests against one backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Kind names a backend variant.
type Kind string

const (
	KindOpenAI     Kind = "openai"
	Kind302AI      Kind = "302.ai"
	KindOpenRouter Kind = "openrouter"
	KindOllama     Kind = "ollama"
	KindGemini     Kind = "gemini"
)

type catalogEntry struct {
	BaseURL        string
	Model          string
	NeedsAPIKey    bool
	NativeGenAPI   bool
	NativeFallback bool
}

var catalog = map[Kind]catalogEntry{
	KindOpenAI:     {BaseURL: "https://api.openai.com/v1", Model: "gpt-3.5-turbo", NeedsAPIKey: true, NativeFallback: true},
	Kind302AI:      {BaseURL: "https://api.302.ai/v1", Model: "gpt-3.5-turbo", NeedsAPIKey: true, NativeFallback: true},
	KindOpenRouter: {BaseURL: "https://openrouter.ai/api/v1", Model: "openai/gpt-3.5-turbo", NeedsAPIKey: true, NativeFallback: true},
	KindOllama:     {BaseURL: "http://localhost:11434", Model: "llama2", NativeFallback: true},
	KindGemini:     {Model: "gemini-1.5-flash", NeedsAPIKey: true, NativeGenAPI: true},
}

// Kinds lists the supported backend variants.
func Kinds() []Kind {
	return []Kind{KindOpenAI, Kind302AI, KindOpenRouter, KindOllama, KindGemini}
}

// Settings is the backend part of a run's configuration snapshot.
type Settings struct {
	Provider    Kind
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration

	// HTTPClient overrides the transport; tests point it at httptest servers.
	HTTPClient *http.Client
}

// ErrMissingCredential is returned when a backend that requires an API key
// is configured without one.
var ErrMissingCredential = errors.New("missing API key")

// WithDefaults fills base URL and model from the provider catalogue.
func (s Settings) WithDefaults() Settings {
	if s.Provider == "" {
		s.Provider = KindOpenAI
	}
	entry := catalog[s.Provider]
	if s.BaseURL == "" {
		s.BaseURL = entry.BaseURL
	}
	if s.Model == "" {
		s.Model = entry.Model
	}
	if s.Timeout <= 0 {
		s.Timeout = 5 * time.Minute
	}
	return s
}

// Validate checks the settings without touching the network.
func (s Settings) Validate() error {
	entry, ok := catalog[s.Provider]
	if !ok {
		return fmt.Errorf("unsupported provider: %q", s.Provider)
	}
	if entry.NeedsAPIKey && strings.TrimSpace(s.APIKey) == "" {
		return fmt.Errorf("provider %s: %w", s.Provider, ErrMissingCredential)
	}
	return nil
}

func (s Settings) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return &http.Client{Timeout: s.Timeout}
}

// New builds the Provider for s. Completions-style backends are wrapped so a
// not-found response switches them to the native protocol.
func New(ctx context.Context, s Settings, log *slog.Logger) (Provider, error) {
	s = s.WithDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	entry := catalog[s.Provider]
	if entry.NativeGenAPI {
		return NewGemini(ctx, s)
	}

	base := NormalizeBaseURL(s.BaseURL)
	primary := NewCompletions(s, base)
	if !entry.NativeFallback {
		return primary, nil
	}
	return NewFallback(primary, NewNative(s, base), log), nil
}

var (
	schemeRe   = regexp.MustCompile(`(?i)^https?://`)
	portOnlyRe = regexp.MustCompile(`^:?\d{2,5}(/.*)?$`)
	v1SuffixRe = regexp.MustCompile(`(?i)/v1$`)
)

// NormalizeBaseURL accepts loose endpoint spellings ("11434", ":8080",
// "//host", "host:port/") and returns an absolute URL without a trailing
// slash.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimSpace(raw)
	if !schemeRe.MatchString(u) {
		switch {
		case portOnlyRe.MatchString(u):
			if strings.HasPrefix(u, ":") {
				u = "http://localhost" + u
			} else {
				u = "http://localhost:" + u
			}
		case strings.HasPrefix(u, "//"):
			u = "http:" + u
		default:
			u = "http://" + u
		}
	}
	return strings.TrimRight(u, "/")
}

// completionsBase appends /v1 to a bare host; URLs that already carry a path
// are used as given.
func completionsBase(base string) string {
	parsed, err := url.Parse(base)
	if err == nil && (parsed.Path == "" || parsed.Path == "/") {
		return strings.TrimRight(base, "/") + "/v1"
	}
	return base
}

// nativeBase strips a trailing /v1 so native routes hang off the host root.
func nativeBase(base string) string {
	return v1SuffixRe.ReplaceAllString(base, "")
}
