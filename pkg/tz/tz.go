package tz

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// DefaultName is used when TIMEZONE is not set.
const DefaultName = "Europe/Paris"

// Paris is the Europe/Paris location (CET/CEST with automatic DST).
var Paris *time.Location

func init() {
	var err error
	Paris, err = time.LoadLocation(DefaultName)
	if err != nil {
		panic("tz: load Europe/Paris: " + err.Error())
	}
}

// Load resolves an IANA zone name such as "America/Montreal". An empty name
// gives Paris.
func Load(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Paris, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("tz: fuseau %q inconnu: %w", name, err)
	}
	return loc, nil
}

// Clock formats t as a wall-clock time in loc, e.g. "19:42".
func Clock(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = Paris
	}
	return t.In(loc).Format("15:04")
}
