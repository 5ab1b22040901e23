package allocation

import (
	"errors"

	"github.com/dvanbeek/boodschap/internal/model"
)

// ErrNoUsers is returned when a split is requested over an empty user set.
var ErrNoUsers = errors.New("allocation: at least one user required")

// ErrNoPrice is returned when the item has no estimated price to allocate.
var ErrNoPrice = errors.New("allocation: item has no estimated price")

// Full assigns the item's entire estimated price to a single user.
func Full(item *model.Item, userID int64) ([]model.Allocation, error) {
	if item.EstimatedPrice == nil {
		return nil, ErrNoPrice
	}
	return []model.Allocation{{
		ItemID:     item.ID,
		UserID:     userID,
		Amount:     *item.EstimatedPrice,
		Percentage: 100,
	}}, nil
}

// EqualSplit divides the item's estimated price evenly across the given
// users: one allocation per user, amount = price / n, percentage = 100 / n.
func EqualSplit(item *model.Item, userIDs []int64) ([]model.Allocation, error) {
	if item.EstimatedPrice == nil {
		return nil, ErrNoPrice
	}
	if len(userIDs) == 0 {
		return nil, ErrNoUsers
	}

	n := float64(len(userIDs))
	allocs := make([]model.Allocation, 0, len(userIDs))
	for _, userID := range userIDs {
		allocs = append(allocs, model.Allocation{
			ItemID:     item.ID,
			UserID:     userID,
			Amount:     *item.EstimatedPrice / n,
			Percentage: 100 / n,
		})
	}
	return allocs, nil
}
