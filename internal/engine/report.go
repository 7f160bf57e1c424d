package engine

import "github.com/roach88/lldsync/internal/ir"

// Report summarizes one prototype evaluation.
//
// Sub-record counts refer to trigger functions or graph items.
type Report struct {
	RunID       string    `json:"run_id"`
	Kind        ir.Kind   `json:"kind"`
	PrototypeID uint64    `json:"prototype_id"`
	Rows        int       `json:"rows"`
	Created     int       `json:"created"`
	Updated     int       `json:"updated"`
	SubCreated  int       `json:"sub_created"`
	SubUpdated  int       `json:"sub_updated"`
	SubDeleted  int       `json:"sub_deleted"`
	TagsCreated int       `json:"tags_created,omitempty"`
	TagsUpdated int       `json:"tags_updated,omitempty"`
	TagsDeleted int       `json:"tags_deleted,omitempty"`
	Problems    []Problem `json:"problems"`
}

func newReport(runID string, kind ir.Kind, prototypeID uint64, rows int) *Report {
	return &Report{
		RunID:       runID,
		Kind:        kind,
		PrototypeID: prototypeID,
		Rows:        rows,
		Problems:    []Problem{},
	}
}

// Changed reports whether the evaluation wrote anything.
func (r *Report) Changed() bool {
	return r.Created+r.Updated+r.SubCreated+r.SubUpdated+r.SubDeleted+
		r.TagsCreated+r.TagsUpdated+r.TagsDeleted > 0
}

// Messages returns the problem messages in order.
func (r *Report) Messages() []string {
	msgs := make([]string, len(r.Problems))
	for i, p := range r.Problems {
		msgs[i] = p.Message
	}
	return msgs
}
