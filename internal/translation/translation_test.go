package translation_test

import (
	"testing"

	"codeberg.org/mutker/reqprof/internal/translation"
	"github.com/stretchr/testify/assert"
)

type recorder struct {
	translation.PassThrough
	calls []string
}

func (r *recorder) Missing(tr, msg string, p map[string]any, locale, requested string) string {
	r.calls = append(r.calls, "missing:"+msg+":"+locale)
	return tr
}

func (r *recorder) Fallback(tr, msg string, p map[string]any, fallback, requested string) string {
	r.calls = append(r.calls, "fallback:"+msg+":"+fallback+":"+requested)
	return tr
}

func (r *recorder) FallbackToDefault(tr, msg string, p map[string]any, def, requested string) string {
	r.calls = append(r.calls, "default:"+msg+":"+def+":"+requested)
	return tr
}

func newTranslator() *translation.Translator {
	catalogue := translation.NewCatalogue().
		Add("en", map[string]string{"Hello :name": "Hello :name", "Bye": "Bye"}).
		Add("de", map[string]string{"Hello :name": "Hallo :name"}).
		Add("de-CH", map[string]string{})

	return translation.New(catalogue, translation.Options{
		DefaultLocale: "en",
		Fallbacks:     map[string]string{"de-CH": "de"},
	})
}

func TestTrans(t *testing.T) {
	tr := newTranslator()

	assert.Equal(t, "Hello tom", tr.Trans("Hello :name", map[string]any{"name": "tom"}, ""))
	assert.Equal(t, "Hallo tom", tr.Trans("Hello :name", map[string]any{"name": "tom"}, "de"))
	assert.Equal(t, "Hallo tom", tr.WithLocale("de-CH").Trans("Hello :name", map[string]any{"name": "tom"}, ""))
	assert.Equal(t, "Bye", tr.Trans("Bye", nil, "de"))
	assert.Equal(t, "Unknown", tr.Trans("Unknown", nil, "de"))
}

func TestMissingHandler(t *testing.T) {
	rec := &recorder{}
	tr := newTranslator().WithHandler(rec)

	tr.Trans("Hello :name", nil, "de-CH")
	tr.Trans("Bye", nil, "de")
	tr.Trans("Unknown", nil, "fr")
	tr.Trans("Bye", nil, "en")

	assert.Equal(t, []string{
		"fallback:Hello :name:de:de-CH",
		"default:Bye:en:de",
		"missing:Unknown:fr",
	}, rec.calls)
}
