package entities

// Stats are the live counters shown next to the roster.
type Stats struct {
	Total      int            `json:"total"`
	CheckedIn  int            `json:"checkedIn"`
	Pending    int            `json:"pending"`
	Percentage float64        `json:"percentage"`
	ByTable    map[string]int `json:"byTable"`
	ByGroup    map[string]int `json:"byGroup"`
}

// ComputeStats counts r. ByTable and ByGroup hold checked-in counts.
func ComputeStats(r Roster) Stats {
	s := Stats{
		Total:   len(r),
		ByTable: make(map[string]int),
		ByGroup: make(map[string]int),
	}
	for _, a := range r {
		if !a.IsCheckedIn() {
			s.Pending++
			continue
		}
		s.CheckedIn++
		s.ByTable[a.TableNumber]++
		if a.GroupName != "" {
			s.ByGroup[a.GroupName]++
		}
	}
	if s.Total > 0 {
		s.Percentage = float64(s.CheckedIn) * 100 / float64(s.Total)
	}
	return s
}
