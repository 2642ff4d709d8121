package dag

import "time"

// ProfileRecord captures the wall-clock timing of one node calculation.
// ChildDuration accumulates the durations of calculations triggered while
// this one was on the stack, so SelfDuration isolates the node's own cost.
type ProfileRecord struct {
	NodeIndex     int
	Sexpr         string
	Start         time.Time
	Finish        time.Time
	ChildDuration time.Duration

	parent *ProfileRecord
}

// Duration returns the total wall-clock time of the calculation, children
// included.
func (r *ProfileRecord) Duration() time.Duration {
	return r.Finish.Sub(r.Start)
}

// SelfDuration returns the calculation time excluding nested calculations.
func (r *ProfileRecord) SelfDuration() time.Duration {
	return r.Duration() - r.ChildDuration
}

// EnableProfiling turns on per-calculation timing for this run.
func (g *GraphEvalState) EnableProfiling() {
	g.profiling = true
}

// ProfileRecords returns the timing records collected so far, in
// completion order.
func (g *GraphEvalState) ProfileRecords() []*ProfileRecord {
	return g.profile
}

// ClearProfile discards collected timing records.
func (g *GraphEvalState) ClearProfile() {
	g.profile = nil
}

func (g *GraphEvalState) profilerMark(n *Node) *ProfileRecord {
	rec := &ProfileRecord{
		NodeIndex: n.Index(),
		Sexpr:     n.String(),
		Start:     time.Now(),
		parent:    g.parentProfile,
	}
	g.parentProfile = rec
	return rec
}

func (g *GraphEvalState) profilerRecord(rec *ProfileRecord) {
	rec.Finish = time.Now()
	g.parentProfile = rec.parent
	if rec.parent != nil {
		rec.parent.ChildDuration += rec.Duration()
	}
	g.profile = append(g.profile, rec)
}
