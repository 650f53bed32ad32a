package profile_test

import (
	"encoding/json"
	"testing"

	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64p(v int64) *int64 { return &v }

func newProfile(id string) *profile.Profile {
	return profile.New(profile.Params{
		ID:          id,
		Method:      "GET",
		URI:         "/blog?q=go lang",
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Time:        int64p(1700000000),
		Data: map[string]any{
			"Logs":   map[string]any{"default": []any{map[string]any{"level": "info", "message": "hello"}}},
			"Events": map[string]any{},
		},
	})
}

func TestProfileJSONShape(t *testing.T) {
	b, err := json.Marshal(newProfile("abc123"))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(b, &fields))

	assert.Equal(t, "abc123", fields["id"])
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/blog?q=go lang", fields["uri"])
	assert.EqualValues(t, 200, fields["statusCode"])
	assert.Equal(t, "text/html; charset=utf-8", fields["contentType"])
	assert.EqualValues(t, 1700000000, fields["time"])
	assert.Contains(t, fields["data"], "Logs")
}

func TestDecodeNullTime(t *testing.T) {
	p, err := profile.Decode([]byte(`{"id":"a1","method":"BATCH","uri":"app:run","statusCode":500,"contentType":"","time":null,"data":{}}`))
	require.NoError(t, err)

	_, ok := p.Time()
	assert.False(t, ok)
	assert.Equal(t, "BATCH", p.Method())
	assert.False(t, p.IsURIVisitable())
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: `{"id":`},
		{name: "missing field", content: `{"id":"a1","method":"GET","uri":"/","statusCode":200,"contentType":"","data":{}}`},
		{name: "data not an object", content: `{"id":"a1","method":"GET","uri":"/","statusCode":200,"contentType":"","time":1,"data":[]}`},
		{name: "wrong type", content: `{"id":"a1","method":"GET","uri":"/","statusCode":"200","contentType":"","time":1,"data":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := profile.Decode([]byte(tt.content))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, profile.ErrMalformedProfile))
		})
	}
}

func TestProfileIsImmutable(t *testing.T) {
	data := map[string]any{"Logs": map[string]any{}}
	p := profile.New(profile.Params{ID: "a1", Data: data})

	data["Events"] = map[string]any{}
	got := p.Data()
	got["Jobs"] = map[string]any{}

	assert.Len(t, p.Data(), 1)
	_, ok := p.Collected("Logs")
	assert.True(t, ok)
}
