package profiler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/logger"
	"codeberg.org/mutker/reqprof/internal/profile"
	"codeberg.org/mutker/reqprof/internal/view"
)

const idBytes = 50

var (
	validID   = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	slugChars = regexp.MustCompile(`[^A-Za-z0-9_\-']`)
)

// Profiler owns the collectors of one request and turns what they
// collected into persisted profiles.
type Profiler struct {
	repo       profile.Repository
	collectors []Collector
	index      map[string]int
	now        func() time.Time
	newID      func() (string, error)
	logger     logger.Logger
}

type Option func(*Profiler)

func WithClock(now func() time.Time) Option {
	return func(p *Profiler) { p.now = now }
}

func WithIDGenerator(gen func() (string, error)) Option {
	return func(p *Profiler) { p.newID = gen }
}

func WithLogger(log logger.Logger) Option {
	return func(p *Profiler) { p.logger = log }
}

func New(repo profile.Repository, opts ...Option) *Profiler {
	p := &Profiler{
		repo:   repo,
		index:  make(map[string]int),
		now:    time.Now,
		newID:  NewID,
		logger: logger.Get("profiler"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewID returns 50 random bytes, hex encoded.
func NewID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.New().Wrap(ErrIDGeneration, err)
	}
	return hex.EncodeToString(b), nil
}

// AddCollector registers c under its name. A later collector with the
// same name replaces the earlier one and keeps its position.
func (p *Profiler) AddCollector(c Collector) {
	name := c.Name()
	if i, ok := p.index[name]; ok {
		p.collectors[i] = c
		return
	}
	p.index[name] = len(p.collectors)
	p.collectors = append(p.collectors, c)
}

// Collectors returns the collectors in registration order.
func (p *Profiler) Collectors() []Collector {
	out := make([]Collector, len(p.collectors))
	copy(out, p.collectors)
	return out
}

func (p *Profiler) Collector(name string) (Collector, bool) {
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.collectors[i], true
}

func (p *Profiler) Repository() profile.Repository {
	return p.repo
}

// CreateProfile collects from every collector and persists the result.
// A failing collector is logged and contributes an empty mapping.
func (p *Profiler) CreateProfile(ctx context.Context, r *http.Request, resp *Response) (*profile.Profile, error) {
	errFactory := errors.New()

	if resp == nil {
		resp = &Response{StatusCode: http.StatusOK, Header: http.Header{}}
	}

	data := make(map[string]any, len(p.collectors))
	for _, c := range p.collectors {
		data[c.Name()] = p.collect(c, r, resp)
	}

	id, err := p.newID()
	if err != nil {
		return nil, errFactory.Wrap(ErrIDGeneration, err)
	}

	now := p.now().Unix()
	prof := profile.New(profile.Params{
		ID:          id,
		Method:      r.Method,
		URI:         requestURI(r),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Time:        &now,
		Data:        data,
	})

	if err := p.repo.Write(ctx, prof); err != nil {
		return nil, errFactory.Wrap(ErrWriteFailed, err)
	}

	p.logger.Debug().
		Str("profile_id", id).
		Str("method", prof.Method()).
		Str("uri", prof.URI()).
		Int("collectors", len(p.collectors)).
		Msg("Profile created")

	return prof, nil
}

// collect runs one collector and normalises its data through JSON so a
// fresh profile renders exactly like a stored one.
func (p *Profiler) collect(c Collector, r *http.Request, resp *Response) map[string]any {
	collected, err := c.Collect(r, resp)
	if err != nil {
		p.logger.Warn().Err(err).Str("collector", c.Name()).Msg("Collector failed")
		return map[string]any{}
	}

	b, err := json.Marshal(collected)
	if err != nil {
		p.logger.Warn().Err(err).Str("collector", c.Name()).Msg("Collected data is not serializable")
		return map[string]any{}
	}

	normalized := map[string]any{}
	if err := json.Unmarshal(b, &normalized); err != nil || normalized == nil {
		return map[string]any{}
	}
	return normalized
}

// requestURI returns the decoded request target.
func requestURI(r *http.Request) string {
	uri := r.RequestURI
	if uri == "" && r.URL != nil {
		uri = r.URL.RequestURI()
	}
	if decoded, err := url.PathUnescape(uri); err == nil {
		return decoded
	}
	return uri
}

// FindProfile returns the stored profile or nil. Ids that are not
// purely alphanumeric are never looked up.
func (p *Profiler) FindProfile(ctx context.Context, id string) (*profile.Profile, error) {
	if !validID.MatchString(id) {
		return nil, nil
	}
	return p.repo.FindByID(ctx, id)
}

// CollectedData returns the data a registered collector stored in prof.
func (p *Profiler) CollectedData(name string, prof *profile.Profile) map[string]any {
	if _, ok := p.index[name]; !ok || prof == nil {
		return map[string]any{}
	}

	v, ok := prof.Collected(name)
	if !ok {
		return map[string]any{}
	}
	data, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return data
}

// RenderCollector renders the collector's panel, or nothing if it
// collected nothing.
func (p *Profiler) RenderCollector(name string, prof *profile.Profile, r view.Renderer) (string, error) {
	data := p.CollectedData(name, prof)
	if len(data) == 0 {
		return "", nil
	}

	c, _ := p.Collector(name)
	html, err := c.Render(r, data)
	if err != nil {
		return "", errors.New().Wrap(ErrRenderFailed, err)
	}
	return html, nil
}

// NameToID slugifies a collector name for use as an html id.
func NameToID(name string) string {
	return slugChars.ReplaceAllString(strings.TrimSpace(strings.ToLower(name)), "-")
}
