package batch

import (
	"sort"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// Success is a stored item of a bulk insert.
type Success struct {
	Index   int
	ID      int64
	Content string
}

// Failure is a rejected item of a bulk insert.
type Failure struct {
	Index   int
	Content string
	Stage   domain.Stage
	Reason  string
}

// Outcome is the accounting of a bulk insert.
// Successful + Failed always equals Total.
type Outcome struct {
	Total      int
	Successful int
	Failed     int
	Results    []Success
	Errors     []Failure
	StoreError string
}

// NewOutcome creates an empty outcome for total items.
func NewOutcome(total int) *Outcome {
	return &Outcome{Total: total, Results: []Success{}, Errors: []Failure{}}
}

// AddSuccess records a stored item.
func (o *Outcome) AddSuccess(index int, id int64, content string) {
	o.Results = append(o.Results, Success{Index: index, ID: id, Content: content})
	o.Successful++
}

// AddFailure records a rejected item. The stage is derived from err.
func (o *Outcome) AddFailure(index int, content string, err error) {
	o.Errors = append(o.Errors, Failure{
		Index:   index,
		Content: content,
		Stage:   domain.StageOf(err),
		Reason:  domain.Reason(err),
	})
	o.Failed++
}

// Sort orders results and errors by original index.
func (o *Outcome) Sort() {
	sort.Slice(o.Results, func(i, j int) bool { return o.Results[i].Index < o.Results[j].Index })
	sort.Slice(o.Errors, func(i, j int) bool { return o.Errors[i].Index < o.Errors[j].Index })
}

// Reconciles reports whether the counters account for every item.
func (o *Outcome) Reconciles() bool {
	return o.Successful+o.Failed == o.Total &&
		o.Successful == len(o.Results) &&
		o.Failed == len(o.Errors)
}
