package profile

import (
	"encoding/json"
	"fmt"
	"net/http"

	"codeberg.org/mutker/reqprof/internal/errors"
)

// Profile is the immutable record of one profiled request or console run.
type Profile struct {
	id          string
	method      string
	uri         string
	statusCode  int
	contentType string
	time        *int64
	data        map[string]any
}

// Params carries the fields of a new Profile.
type Params struct {
	ID          string
	Method      string
	URI         string
	StatusCode  int
	ContentType string
	Time        *int64
	Data        map[string]any
}

func New(p Params) *Profile {
	data := make(map[string]any, len(p.Data))
	for k, v := range p.Data {
		data[k] = v
	}

	var t *int64
	if p.Time != nil {
		v := *p.Time
		t = &v
	}

	return &Profile{
		id:          p.ID,
		method:      p.Method,
		uri:         p.URI,
		statusCode:  p.StatusCode,
		contentType: p.ContentType,
		time:        t,
		data:        data,
	}
}

func (p *Profile) ID() string          { return p.id }
func (p *Profile) Method() string      { return p.method }
func (p *Profile) URI() string         { return p.uri }
func (p *Profile) StatusCode() int     { return p.statusCode }
func (p *Profile) ContentType() string { return p.contentType }

// Time returns the unix capture time and whether it is set.
func (p *Profile) Time() (int64, bool) {
	if p.time == nil {
		return 0, false
	}
	return *p.time, true
}

// IsURIVisitable reports whether the profiled uri can be linked to.
func (p *Profile) IsURIVisitable() bool {
	return p.method == http.MethodGet
}

// Data returns a copy of the collected data keyed by collector name.
func (p *Profile) Data() map[string]any {
	data := make(map[string]any, len(p.data))
	for k, v := range p.data {
		data[k] = v
	}
	return data
}

// Collected returns the data a collector stored in the profile.
func (p *Profile) Collected(name string) (any, bool) {
	v, ok := p.data[name]
	return v, ok
}

type record struct {
	ID          string         `json:"id"`
	Method      string         `json:"method"`
	URI         string         `json:"uri"`
	StatusCode  int            `json:"statusCode"`
	ContentType string         `json:"contentType"`
	Time        *int64         `json:"time"`
	Data        map[string]any `json:"data"`
}

var requiredKeys = []string{"id", "method", "uri", "statusCode", "contentType", "time", "data"}

func (p *Profile) MarshalJSON() ([]byte, error) {
	data := p.data
	if data == nil {
		data = map[string]any{}
	}
	return json.Marshal(record{
		ID:          p.id,
		Method:      p.method,
		URI:         p.uri,
		StatusCode:  p.statusCode,
		ContentType: p.contentType,
		Time:        p.time,
		Data:        data,
	})
}

// UnmarshalJSON requires every field to be present; time may be null.
func (p *Profile) UnmarshalJSON(b []byte) error {
	errFactory := errors.New()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return errFactory.Wrap(ErrMalformedProfile, err)
	}
	for _, key := range requiredKeys {
		if _, ok := fields[key]; !ok {
			return errFactory.WithMessage(ErrMalformedProfile, fmt.Sprintf("missing field %q", key))
		}
	}

	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return errFactory.Wrap(ErrMalformedProfile, err)
	}
	if r.Data == nil {
		return errFactory.WithMessage(ErrMalformedProfile, "data must be an object")
	}

	*p = Profile{
		id:          r.ID,
		method:      r.Method,
		uri:         r.URI,
		statusCode:  r.StatusCode,
		contentType: r.ContentType,
		time:        r.Time,
		data:        r.Data,
	}

	return nil
}

// Decode parses a persisted profile record.
func Decode(b []byte) (*Profile, error) {
	p := &Profile{}
	if err := json.Unmarshal(b, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Profile) matches(where map[string]any) bool {
	for key, want := range where {
		var got any
		switch key {
		case "id":
			got = p.id
		case "method":
			got = p.method
		case "uri":
			got = p.uri
		case "statusCode":
			got = p.statusCode
		case "contentType":
			got = p.contentType
		default:
			continue
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
