package domain

import (
	"fmt"
	"testing"
)

func TestCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("boom"), ""},
		{fmt.Errorf("load: %w", ErrSourceUnavailable), "source_unavailable"},
		{fmt.Errorf("%w: %w", ErrSourceUnavailable, ErrManualSourceRequired), "manual_source_required"},
		{fmt.Errorf("%w: %w", ErrUpdateRejected, ErrAttendeeNotFound), "update_rejected"},
		{ErrSwitchNotConfirmed, "switch_not_confirmed"},
	}
	for _, tc := range cases {
		if got := Code(tc.err); got != tc.want {
			t.Errorf("Code(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(fmt.Errorf("x: %w", ErrSourceUnavailable)) {
		t.Error("unavailable should be retryable")
	}
	if Retryable(ErrSourceMisconfigured) {
		t.Error("misconfiguration is fatal until reconfigured")
	}
}

func TestParseStatusAndKind(t *testing.T) {
	for in, want := range map[string]Status{"": StatusPending, "checked_in": StatusCheckedIn, "checked-in": StatusCheckedIn} {
		if got, err := ParseStatus(in); err != nil || got != want {
			t.Errorf("ParseStatus(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseStatus("late"); err == nil {
		t.Error("expected invalid status")
	}
	if _, err := ParseSourceKind("excel"); err == nil {
		t.Error("expected unknown kind")
	}
}
