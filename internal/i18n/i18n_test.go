package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBundleLoadsBothLanguages(t *testing.T) {
	t.Parallel()

	bundle, err := NewBundle()
	require.NoError(t, err)

	assert.Equal(t, "The requested resource was not found.", bundle.Localizer("en").T("StatusNotFound"))
	assert.Equal(t, "指定されたリソースが見つかりません。", bundle.Localizer("ja").T("StatusNotFound"))
}

func TestLocalizerFallsBackToEnglish(t *testing.T) {
	t.Parallel()

	bundle := MustNewBundle()
	loc := bundle.Localizer("fr")
	assert.Equal(t, "en", loc.Language())
	assert.Equal(t, "Name is required.", loc.T("ValidationNameRequired"))
}

func TestLocalizerTemplateData(t *testing.T) {
	t.Parallel()

	loc := MustNewBundle().Localizer("ja")
	assert.Equal(t, "不明なタイムゾーンです: Mars/Base", loc.TData("ErrorInvalidTimezone", map[string]any{"Timezone": "Mars/Base"}))
}

func TestLocalizerUnknownMessage(t *testing.T) {
	t.Parallel()

	loc := MustNewBundle().Localizer("en")
	assert.Equal(t, "NoSuchMessage", loc.T("NoSuchMessage"))
	assert.False(t, loc.Has("NoSuchMessage"))
	assert.True(t, loc.Has("StatusConflict"))

	var nilLocalizer *Localizer
	assert.Equal(t, "StatusConflict", nilLocalizer.T("StatusConflict"))
	assert.Equal(t, "en", nilLocalizer.Language())
}

func TestMatch(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		explicit string
		header   string
		want     string
	}{
		{name: "default", want: "en"},
		{name: "header japanese", header: "ja-JP,ja;q=0.9,en;q=0.8", want: "ja"},
		{name: "header prefers english", header: "en-US,ja;q=0.5", want: "en"},
		{name: "explicit wins", explicit: "ja", header: "en-US", want: "ja"},
		{name: "explicit unsupported", explicit: "de", header: "ja", want: "en"},
		{name: "malformed header", header: ";;;", want: "en"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Match(tc.explicit, tc.header))
		})
	}
}
