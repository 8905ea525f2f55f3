package domain

// Status is the check-in state of an attendee.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCheckedIn Status = "checked-in"
)

// ParseStatus accepts the spellings found in the backing stores
// ("checked-in", "checked_in", "checkedin", "pending", "").
func ParseStatus(s string) (Status, error) {
	switch s {
	case "", "pending":
		return StatusPending, nil
	case "checked-in", "checked_in", "checkedin":
		return StatusCheckedIn, nil
	default:
		return "", ErrInvalidStatus
	}
}
