package split

// Outcome is what happened to one image of a run.
type Outcome struct {
	ImageID string
	Path    string
	Tiles   int
	Skipped bool  // already split according to the ledger
	Err     error // nil when every tile was saved
}

// Report summarises a run, in input order.
type Report struct {
	Outcomes []Outcome
	Split    int
	Skipped  int
	Failed   int
	Tiles    int
}

func newReport(outcomes []Outcome) *Report {
	r := &Report{Outcomes: outcomes}
	for _, o := range outcomes {
		r.Tiles += o.Tiles
		switch {
		case o.Err != nil:
			r.Failed++
		case o.Skipped:
			r.Skipped++
		default:
			r.Split++
		}
	}
	return r
}

// Failures returns the outcomes that ended in an error.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}
