package email

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"checkin/internal/ports/output"
)

var _ output.EmailValidator = (*Validator)(nil)

// Validator checks addresses with go-playground/validator's email rule.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{v: validator.New()}
}

// Validate trims and lowercases raw before checking it. Spreadsheet exports
// sometimes wrap addresses as "Name <addr>" or "mailto:addr"; those are unwrapped.
func (e *Validator) Validate(raw string) output.EmailResult {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "mailto:"), "MAILTO:")
	if i := strings.LastIndex(s, "<"); i >= 0 && strings.HasSuffix(s, ">") {
		s = s[i+1 : len(s)-1]
	}
	s = strings.ToLower(strings.TrimSpace(s))

	if s == "" {
		return output.EmailResult{Valid: false, Error: "adresse vide"}
	}
	if err := e.v.Var(s, "required,email"); err != nil {
		return output.EmailResult{Valid: false, Sanitized: s, Error: "adresse email invalide"}
	}
	return output.EmailResult{Valid: true, Sanitized: s}
}
