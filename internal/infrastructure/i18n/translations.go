package i18n

import (
	"embed"
	"log"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"checkin/internal/domain"
	"checkin/internal/ports/output"
)

//go:embed active.*.toml
var localeFS embed.FS

var _ output.ErrorTranslator = (*Translator)(nil)

// Translator is a thin wrapper around go-i18n's Bundle/Localizer.
type Translator struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
	matcher         language.Matcher
}

// NewTranslator builds a Translator backed by the embedded active.*.toml
// catalogues, falling back to defaultLocale (e.g. "fr").
func NewTranslator(defaultLocale string) *Translator {
	tag, err := language.Parse(defaultLocale)
	if err != nil {
		tag = language.French
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range []string{"active.fr.toml", "active.en.toml"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			log.Printf("⚠️ i18n: chargement de %s impossible: %v", file, err)
		}
	}

	return &Translator{
		bundle:          bundle,
		defaultLanguage: tag,
		matcher:         language.NewMatcher(bundle.LanguageTags()),
	}
}

// T renders the message identified by key for the given locale, which may
// be a raw Accept-Language header. If the key/locale is not found, it falls
// back to the default locale, then finally to the key itself.
func (t *Translator) T(locale, key string, data map[string]any) string {
	if key == "" {
		return ""
	}

	languages := []string{}
	if locale != "" {
		languages = append(languages, locale)
	}
	languages = append(languages, t.defaultLanguage.String())

	localizer := i18n.NewLocalizer(t.bundle, languages...)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		log.Printf("⚠️ i18n: traduction absente (key=%s, locales=%v): %v", key, languages, err)
		return key
	}
	return msg
}

// Match returns the supported language closest to the requested ones.
func (t *Translator) Match(requested ...string) string {
	var tags []language.Tag
	for _, r := range requested {
		parsed, _, err := language.ParseAcceptLanguage(r)
		if err == nil {
			tags = append(tags, parsed...)
		}
	}
	if len(tags) == 0 {
		return t.defaultLanguage.String()
	}
	_, idx, _ := t.matcher.Match(tags...)
	base, _ := t.bundle.LanguageTags()[idx].Base()
	return base.String()
}

// ErrorKey is the catalogue key for the message describing err.
func ErrorKey(err error) string {
	if code := domain.Code(err); code != "" {
		return "error_" + code
	}
	return "error_unknown"
}

// Error renders the user-facing message for err.
func (t *Translator) Error(locale string, err error) string {
	if err == nil {
		return ""
	}
	return t.T(locale, ErrorKey(err), nil)
}
