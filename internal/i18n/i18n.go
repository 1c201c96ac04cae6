// Package i18n loads the API's translated messages and picks a language for
// each request.
package i18n

import (
	"embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFS embed.FS

var supported = []language.Tag{language.English, language.Japanese}

var matcher = language.NewMatcher(supported)

// Bundle holds every embedded translation.
type Bundle struct {
	bundle *goi18n.Bundle
}

// NewBundle loads the embedded English and Japanese message files.
func NewBundle() (*Bundle, error) {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, path := range []string{"locales/active.en.toml", "locales/active.ja.toml"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, path); err != nil {
			return nil, fmt.Errorf("i18n: load %s: %w", path, err)
		}
	}
	return &Bundle{bundle: bundle}, nil
}

// MustNewBundle is NewBundle for package initialization and tests.
func MustNewBundle() *Bundle {
	b, err := NewBundle()
	if err != nil {
		panic(err)
	}
	return b
}

// Localizer translates message IDs into one language.
type Localizer struct {
	lang      string
	localizer *goi18n.Localizer
}

// Localizer returns a localizer for lang, falling back to English.
func (b *Bundle) Localizer(lang string) *Localizer {
	if b == nil || b.bundle == nil {
		return nil
	}
	lang = Match(lang, "")
	return &Localizer{lang: lang, localizer: goi18n.NewLocalizer(b.bundle, lang, language.English.String())}
}

// Language is the base language tag the localizer serves.
func (l *Localizer) Language() string {
	if l == nil {
		return language.English.String()
	}
	return l.lang
}

// T translates messageID. Missing translations return the ID unchanged.
func (l *Localizer) T(messageID string) string {
	return l.TData(messageID, nil)
}

// TData translates messageID with template data.
func (l *Localizer) TData(messageID string, data map[string]any) string {
	if l == nil || l.localizer == nil {
		return messageID
	}
	msg, err := l.localizer.Localize(&goi18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}

// Has reports whether messageID exists in the bundle.
func (l *Localizer) Has(messageID string) bool {
	if l == nil || l.localizer == nil {
		return false
	}
	_, err := l.localizer.Localize(&goi18n.LocalizeConfig{MessageID: messageID})
	return err == nil
}

// Match picks a supported base language. An explicit value (from a query
// parameter) wins over the Accept-Language header; anything unsupported
// resolves to English.
func Match(explicit, acceptLanguage string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if tag, err := language.Parse(explicit); err == nil {
			_, index, confidence := matcher.Match(tag)
			if confidence != language.No {
				return baseOf(supported[index])
			}
		}
		return language.English.String()
	}
	if acceptLanguage == "" {
		return language.English.String()
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English.String()
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return language.English.String()
	}
	return baseOf(supported[index])
}

func baseOf(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}
