package output

// Translator exposes a minimal i18n contract for user-facing messages.
type Translator interface {
	// T renders the message identified by key for the given locale.
	// data is an optional map used for template placeholders (may be nil).
	T(locale, key string, data map[string]any) string
}

// ErrorTranslator also localizes domain errors for a client's language
// preferences.
type ErrorTranslator interface {
	Translator
	// Match picks the supported locale closest to raw Accept-Language values.
	Match(requested ...string) string
	Error(locale string, err error) string
}
