package allocation

import (
	"errors"
	"math"
	"testing"

	"github.com/dvanbeek/boodschap/internal/model"
)

func priced(price float64) *model.Item {
	return &model.Item{ID: 7, EstimatedPrice: &price}
}

func TestFull(t *testing.T) {
	allocs, err := Full(priced(4.50), 2)
	if err != nil {
		t.Fatalf("full: %v", err)
	}
	if len(allocs) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(allocs))
	}
	a := allocs[0]
	if a.ItemID != 7 || a.UserID != 2 {
		t.Errorf("allocation = %+v, want item 7 user 2", a)
	}
	if a.Amount != 4.50 {
		t.Errorf("amount = %v, want 4.50", a.Amount)
	}
	if a.Percentage != 100 {
		t.Errorf("percentage = %v, want 100", a.Percentage)
	}
}

func TestFullNoPrice(t *testing.T) {
	_, err := Full(&model.Item{ID: 7}, 2)
	if !errors.Is(err, ErrNoPrice) {
		t.Fatalf("err = %v, want ErrNoPrice", err)
	}
}

func TestEqualSplitThreeWays(t *testing.T) {
	allocs, err := EqualSplit(priced(3.00), []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(allocs) != 3 {
		t.Fatalf("expected 3 allocations, got %d", len(allocs))
	}

	var sum float64
	for _, a := range allocs {
		if a.Amount != 1.00 {
			t.Errorf("amount = %v, want 1.00", a.Amount)
		}
		if math.Abs(a.Percentage-100.0/3.0) > 1e-9 {
			t.Errorf("percentage = %v, want %v", a.Percentage, 100.0/3.0)
		}
		sum += a.Amount
	}
	if math.Abs(sum-3.00) > 1e-9 {
		t.Errorf("amounts sum to %v, want 3.00", sum)
	}
}

func TestEqualSplitSumMatchesPrice(t *testing.T) {
	// A price that does not divide evenly must still sum back within tolerance.
	allocs, err := EqualSplit(priced(10.00), []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	var sum float64
	for _, a := range allocs {
		sum += a.Amount
	}
	if math.Abs(sum-10.00) > 1e-9 {
		t.Errorf("amounts sum to %v, want 10.00", sum)
	}
}

func TestEqualSplitSingleUser(t *testing.T) {
	allocs, err := EqualSplit(priced(2.40), []int64{5})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(allocs) != 1 || allocs[0].Amount != 2.40 || allocs[0].Percentage != 100 {
		t.Errorf("single-user split = %+v, want full allocation", allocs)
	}
}

func TestEqualSplitNoUsers(t *testing.T) {
	_, err := EqualSplit(priced(2.40), nil)
	if !errors.Is(err, ErrNoUsers) {
		t.Fatalf("err = %v, want ErrNoUsers", err)
	}
}
