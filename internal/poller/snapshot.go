package poller

// Snapshot maps a target key to its last observed unread count.
type Snapshot map[string]int

// Total returns the sum of all counts.
func (s Snapshot) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// Clone returns an independent copy.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Observation is the outcome of fetching one target's unread count.
type Observation struct {
	Key   string
	Label string
	Count int
	Err   error
}

// DeltaEvent reports that a target's unread count rose between two
// consecutive observations.
type DeltaEvent struct {
	Source   string `json:"source"`
	Key      string `json:"key"`
	Label    string `json:"label"`
	Previous int    `json:"previous"`
	Current  int    `json:"current"`
}

// NewCount is the number of messages that arrived since the previous observation.
func (e DeltaEvent) NewCount() int {
	return e.Current - e.Previous
}

// PollOnce folds one round of observations into the snapshot and returns the
// next snapshot with the deltas it implies. The input snapshot is not modified.
//
// A cold round only seeds counts. Afterwards a delta is emitted only when a
// count rises; decreases are recorded silently. Failed observations keep the
// previous count. Targets seen for the first time are seeded without a delta,
// and targets missing from obs are dropped.
func PollOnce(snap Snapshot, obs []Observation, cold bool) (Snapshot, []DeltaEvent) {
	next := make(Snapshot, len(obs))
	var deltas []DeltaEvent

	for _, o := range obs {
		prev, known := snap[o.Key]

		if o.Err != nil {
			if known {
				next[o.Key] = prev
			}
			continue
		}

		next[o.Key] = o.Count
		if cold || !known {
			continue
		}
		if o.Count > prev {
			deltas = append(deltas, DeltaEvent{
				Key:      o.Key,
				Label:    o.Label,
				Previous: prev,
				Current:  o.Count,
			})
		}
	}

	return next, deltas
}
