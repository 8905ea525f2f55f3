package output

// EmailResult is what an EmailValidator returns for one raw address.
type EmailResult struct {
	Valid     bool
	Sanitized string
	Error     string
}

type EmailValidator interface {
	Validate(raw string) EmailResult
}
