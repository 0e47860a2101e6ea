package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Supported lists the languages shipped in locales/.
var Supported = []language.Tag{language.English, language.Hindi}

var matcher = language.NewMatcher(Supported)

type I18nSupport struct {
	bundle      *i18n.Bundle
	defaultLang string
}

// NewI18nSupport builds a bundle from the embedded locale files.
func NewI18nSupport(defaultLang string) (*I18nSupport, error) {
	if defaultLang == "" {
		defaultLang = "en"
	}
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", defaultLang, err)
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		name := path.Join("locales", e.Name())
		buf, err := localeFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(buf, name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return &I18nSupport{bundle: bundle, defaultLang: tag.String()}, nil
}

// T localizes id for languageTag. fallback is returned, and used as the default
// message, when no translation exists.
func (i *I18nSupport) T(languageTag, id, fallback string) string {
	if i == nil {
		return fallback
	}
	localizer := i18n.NewLocalizer(i.bundle, languageTag, i.defaultLang)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:      id,
		DefaultMessage: &i18n.Message{ID: id, Other: fallback},
	})
	if err != nil || msg == "" {
		return fallback
	}
	return msg
}

func (i *I18nSupport) TWithDefaultLang(id, fallback string) string {
	return i.T(i.defaultLang, id, fallback)
}

// Match picks the best supported language for the given preferences, which may be
// language codes or raw Accept-Language headers.
func Match(prefs ...string) string {
	tag, _ := language.MatchStrings(matcher, prefs...)
	base, _ := tag.Base()
	return base.String()
}
