package round

import (
	"errors"

	"github.com/dvanbeek/boodschap/internal/model"
)

// ErrInvalidTransition is returned when a round is not in the state an
// operation requires (e.g. locking a round that is not OPEN).
var ErrInvalidTransition = errors.New("round: invalid state transition")

// ErrNotPermitted is returned when the acting user fails a role or state
// gate, such as a non-shopper approving a request.
var ErrNotPermitted = errors.New("round: not permitted")

// CanTransition reports whether a round may move from one state to another.
// The lifecycle runs OPEN → LOCKED → REVIEW → SETTLED; the only backward
// edge is LOCKED → OPEN when the shopper cancels.
func CanTransition(from, to string) bool {
	switch from {
	case model.RoundOpen:
		return to == model.RoundLocked
	case model.RoundLocked:
		return to == model.RoundReview || to == model.RoundOpen
	case model.RoundReview:
		return to == model.RoundSettled
	default:
		return false
	}
}

// CanAddItem reports whether actor may add an item directly: anyone while
// the round is OPEN, only the shopper while it is LOCKED.
func CanAddItem(r *model.Round, actorID int64) bool {
	switch r.State {
	case model.RoundOpen:
		return true
	case model.RoundLocked:
		return r.Shopper(actorID)
	default:
		return false
	}
}

// CanRequestItem reports whether actor may file an item request: only
// non-shoppers, and only while the round is LOCKED.
func CanRequestItem(r *model.Round, actorID int64) bool {
	return r.State == model.RoundLocked && !r.Shopper(actorID)
}

// CanReviewRequest reports whether actor may approve or decline a request.
func CanReviewRequest(r *model.Round, actorID int64) bool {
	return r.State == model.RoundLocked && r.Shopper(actorID)
}

// CanToggleCart reports whether actor may flip an item's in-cart flag. The
// toggle is visible to everyone while someone is shopping, but only the
// shopper may use it.
func CanToggleCart(r *model.Round, actorID int64) bool {
	return r.State == model.RoundLocked && r.Shopper(actorID)
}

// CanDeleteItem reports whether actor may delete the given item: own items
// while the round is OPEN, any item for the shopper while LOCKED.
func CanDeleteItem(r *model.Round, item *model.Item, actorID int64) bool {
	switch r.State {
	case model.RoundOpen:
		return item.CreatedByUserID == actorID
	case model.RoundLocked:
		return r.Shopper(actorID)
	default:
		return false
	}
}

// CanAdjustQuantity reports whether actor may change an item's quantity.
// Quantity controls follow the add gate: the item's creator while OPEN, the
// shopper while LOCKED.
func CanAdjustQuantity(r *model.Round, item *model.Item, actorID int64) bool {
	switch r.State {
	case model.RoundOpen:
		return item.CreatedByUserID == actorID
	case model.RoundLocked:
		return r.Shopper(actorID)
	default:
		return false
	}
}

// CanEditPrice reports whether actor may set an item's estimated price:
// the shopper while LOCKED, anyone during REVIEW.
func CanEditPrice(r *model.Round, actorID int64) bool {
	switch r.State {
	case model.RoundLocked:
		return r.Shopper(actorID)
	case model.RoundReview:
		return true
	default:
		return false
	}
}

// CanAllocate reports whether allocations may be created or replaced. Cost
// splitting happens against the receipt, so only during REVIEW; anyone in the
// household may do it.
func CanAllocate(r *model.Round) bool {
	return r.State == model.RoundReview
}

// CanUploadReceipt reports whether actor may attach the receipt, which moves
// the round to REVIEW.
func CanUploadReceipt(r *model.Round, actorID int64) bool {
	return r.State == model.RoundLocked && r.Shopper(actorID)
}

// CanEditReceiptLines reports whether actor may create or edit receipt lines:
// the shopper once the receipt exists (LOCKED), anyone during REVIEW.
func CanEditReceiptLines(r *model.Round, actorID int64) bool {
	switch r.State {
	case model.RoundLocked:
		return r.Shopper(actorID)
	case model.RoundReview:
		return true
	default:
		return false
	}
}
