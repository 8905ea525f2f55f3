package domain

import "errors"

// Domain errors.
var (
	ErrSourceMisconfigured  = errors.New("source de données mal configurée")
	ErrSourceUnavailable    = errors.New("source de données indisponible")
	ErrSourceParse          = errors.New("réponse de la source illisible")
	ErrUpdateRejected       = errors.New("mise à jour refusée par la source")
	ErrAttendeeNotFound     = errors.New("participant non trouvé")
	ErrSwitchNotConfirmed   = errors.New("changement de source non confirmé")
	ErrNotInitialized       = errors.New("gestionnaire de source non initialisé")
	ErrManualSourceRequired = errors.New("import manuel du fichier requis")
	ErrInvalidStatus        = errors.New("statut invalide")
)

var codes = []struct {
	err  error
	code string
}{
	// ErrManualSourceRequired is always wrapped together with ErrSourceUnavailable,
	// it must be matched first.
	{ErrManualSourceRequired, "manual_source_required"},
	{ErrSourceMisconfigured, "source_misconfigured"},
	{ErrSourceUnavailable, "source_unavailable"},
	{ErrSourceParse, "source_parse_error"},
	{ErrUpdateRejected, "update_rejected"},
	{ErrAttendeeNotFound, "attendee_not_found"},
	{ErrSwitchNotConfirmed, "switch_not_confirmed"},
	{ErrNotInitialized, "not_initialized"},
	{ErrInvalidStatus, "invalid_status"},
}

// Code returns the stable code of the first domain error found in err's chain,
// or "" when err carries none.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// Retryable reports whether err is transient (polling or a manual refresh may fix it).
func Retryable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrUpdateRejected)
}
