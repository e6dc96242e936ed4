package result

import (
	"math"
	"testing"
)

func TestNew(t *testing.T) {
	r := New(1, "hello", 0.95)

	if r.ID() != 1 {
		t.Errorf("ID() = %d", r.ID())
	}
	if r.Content() != "hello" {
		t.Errorf("Content() = %q", r.Content())
	}
	if r.Similarity() != 0.95 {
		t.Errorf("Similarity() = %f", r.Similarity())
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 1},
		{0.25, 0.75},
		{1, 0},
		{1.5, 0},
		{2, 0},
		{-0.1, 1},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 1},
	}
	for _, tt := range tests {
		if got := Similarity(tt.distance); got != tt.want {
			t.Errorf("Similarity(%v) = %v, want %v", tt.distance, got, tt.want)
		}
	}
}

func TestRank_OrdersAndTruncates(t *testing.T) {
	in := []Result{
		FromDistance(1, "a", 0.5),
		FromDistance(2, "b", 0.1),
		FromDistance(3, "c", 0.3),
		FromDistance(4, "d", 0.9),
	}

	got := Rank(in, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID() != 2 || got[1].ID() != 3 {
		t.Errorf("order = [%d %d], want [2 3]", got[0].ID(), got[1].ID())
	}
}

func TestRank_TiesByID(t *testing.T) {
	in := []Result{
		New(9, "x", 0.5),
		New(3, "y", 0.5),
		FromDistance(5, "far", 1.7),
		FromDistance(4, "farther", 1.9),
	}

	got := Rank(in, 10)
	wantIDs := []int64{3, 9, 4, 5}
	for i, want := range wantIDs {
		if got[i].ID() != want {
			t.Errorf("got[%d].ID() = %d, want %d", i, got[i].ID(), want)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Similarity() > got[i-1].Similarity() {
			t.Errorf("scores not descending at %d", i)
		}
	}
}

func TestRank_Empty(t *testing.T) {
	if got := Rank(nil, 5); len(got) != 0 {
		t.Errorf("Rank(nil) = %v", got)
	}
}

func TestRank_UndefinedDistanceSortsLast(t *testing.T) {
	in := []Result{
		FromDistance(1, "undefined", math.NaN()),
		FromDistance(2, "close", 0.1),
		FromDistance(3, "far", 0.8),
	}

	got := Rank(in, 3)
	want := []int64{2, 3, 1}
	for i, id := range want {
		if got[i].ID() != id {
			t.Fatalf("position %d: id = %d, want %d", i, got[i].ID(), id)
		}
	}
	if s := got[2].Similarity(); s != 0 {
		t.Errorf("undefined distance similarity = %v, want 0", s)
	}
}
