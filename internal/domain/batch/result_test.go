package batch

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

func TestOutcome_Empty(t *testing.T) {
	o := NewOutcome(0)
	if !o.Reconciles() {
		t.Error("empty outcome must reconcile")
	}
	if o.Results == nil || o.Errors == nil {
		t.Error("slices must be non-nil for JSON encoding")
	}
}

func TestOutcome_MixedResults(t *testing.T) {
	o := NewOutcome(4)
	o.AddSuccess(3, 11, "d")
	o.AddFailure(2, "c", domain.NewEmbeddingError("timeout", nil))
	o.AddSuccess(0, 10, "a")
	o.AddFailure(1, "", domain.NewValidationError("content", "must not be empty"))
	o.Sort()

	if !o.Reconciles() {
		t.Fatalf("outcome does not reconcile: %+v", o)
	}
	if o.Successful != 2 || o.Failed != 2 {
		t.Errorf("Successful=%d Failed=%d", o.Successful, o.Failed)
	}
	if o.Results[0].Index != 0 || o.Results[1].Index != 3 {
		t.Errorf("results not ordered by index: %+v", o.Results)
	}
	if o.Errors[0].Stage != domain.StageValidation || o.Errors[1].Stage != domain.StageEmbedding {
		t.Errorf("stages = %q, %q", o.Errors[0].Stage, o.Errors[1].Stage)
	}
	if o.Errors[1].Reason != "timeout" {
		t.Errorf("Reason = %q", o.Errors[1].Reason)
	}
}

func TestOutcome_StoreFailureStage(t *testing.T) {
	o := NewOutcome(1)
	o.AddFailure(0, "a", domain.NewStoreError("bulk_insert", errors.New("disk full")))
	if o.Errors[0].Stage != domain.StageStore {
		t.Errorf("Stage = %q, want store", o.Errors[0].Stage)
	}
}

func TestOutcome_DetectsMismatch(t *testing.T) {
	o := NewOutcome(3)
	o.AddSuccess(0, 1, "a")
	if o.Reconciles() {
		t.Error("outcome with unaccounted items must not reconcile")
	}
}
