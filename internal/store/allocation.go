package store

import (
	"database/sql"
	"fmt"

	"github.com/dvanbeek/boodschap/internal/model"
)

type AllocationStore struct {
	db *sql.DB
}

func NewAllocationStore(db *sql.DB) *AllocationStore {
	return &AllocationStore{db: db}
}

// Replace swaps an item's allocations for the given set in one transaction.
// Re-allocating is always a full replace; there is no partial edit.
func (s *AllocationStore) Replace(itemID int64, allocs []model.Allocation) ([]model.Allocation, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin replace allocations: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM allocations WHERE item_id = ?`, itemID); err != nil {
		return nil, fmt.Errorf("clear allocations: %w", err)
	}

	for _, a := range allocs {
		if _, err := tx.Exec(
			`INSERT INTO allocations (item_id, user_id, amount, percentage)
			 VALUES (?, ?, ?, ?)`,
			itemID, a.UserID, a.Amount, a.Percentage,
		); err != nil {
			return nil, fmt.Errorf("insert allocation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace allocations: %w", err)
	}
	return s.ListByItem(itemID)
}

func (s *AllocationStore) ListByItem(itemID int64) ([]model.Allocation, error) {
	return s.list(`SELECT id, item_id, user_id, amount, percentage
		FROM allocations WHERE item_id = ? ORDER BY id ASC`, itemID)
}

// ListByRound returns every allocation attached to the round's items.
func (s *AllocationStore) ListByRound(roundID int64) ([]model.Allocation, error) {
	return s.list(`SELECT a.id, a.item_id, a.user_id, a.amount, a.percentage
		FROM allocations a
		JOIN items i ON i.id = a.item_id
		WHERE i.round_id = ? ORDER BY a.item_id ASC, a.id ASC`, roundID)
}

func (s *AllocationStore) list(query string, arg int64) ([]model.Allocation, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()

	var allocs []model.Allocation
	for rows.Next() {
		var a model.Allocation
		if err := rows.Scan(&a.ID, &a.ItemID, &a.UserID, &a.Amount, &a.Percentage); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		allocs = append(allocs, a)
	}
	return allocs, rows.Err()
}

// UserTotals sums each user's share of the round, one row per user with at
// least one allocation.
func (s *AllocationStore) UserTotals(roundID int64) ([]model.UserTotal, error) {
	rows, err := s.db.Query(
		`SELECT a.user_id, u.name, SUM(a.amount)
		 FROM allocations a
		 JOIN items i ON i.id = a.item_id
		 JOIN users u ON u.id = a.user_id
		 WHERE i.round_id = ?
		 GROUP BY a.user_id, u.name
		 ORDER BY u.name ASC`,
		roundID,
	)
	if err != nil {
		return nil, fmt.Errorf("user totals: %w", err)
	}
	defer rows.Close()

	var totals []model.UserTotal
	for rows.Next() {
		var t model.UserTotal
		if err := rows.Scan(&t.UserID, &t.UserName, &t.Amount); err != nil {
			return nil, fmt.Errorf("scan user total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// Allocated sums everything allocated across the round, for comparing against
// the round total during review.
func (s *AllocationStore) Allocated(roundID int64) (float64, error) {
	var total float64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(a.amount), 0)
		 FROM allocations a
		 JOIN items i ON i.id = a.item_id
		 WHERE i.round_id = ?`,
		roundID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("allocated total: %w", err)
	}
	return total, nil
}
