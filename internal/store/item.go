package store

import (
	"database/sql"
	"fmt"

	"github.com/dvanbeek/boodschap/internal/model"
)

type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

const itemCols = `id, round_id, name, quantity, estimated_price, status,
	requested_by_user_id, created_at, created_by_user_id, is_purchased, is_in_cart`

func scanItem(scanner interface{ Scan(...any) error }) (*model.Item, error) {
	var i model.Item
	var price sql.NullFloat64
	var requestedBy sql.NullInt64
	err := scanner.Scan(
		&i.ID, &i.RoundID, &i.Name, &i.Quantity, &price, &i.Status,
		&requestedBy, &i.CreatedAt, &i.CreatedByUserID, &i.IsPurchased, &i.IsInCart,
	)
	if err != nil {
		return nil, err
	}
	if price.Valid {
		i.EstimatedPrice = &price.Float64
	}
	if requestedBy.Valid {
		i.RequestedByUserID = &requestedBy.Int64
	}
	return &i, nil
}

func (s *ItemStore) GetByID(id int64) (*model.Item, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM items WHERE id = ?`, id)
	i, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return i, nil
}

func (s *ItemStore) ListByRound(roundID int64) ([]model.Item, error) {
	rows, err := s.db.Query(
		`SELECT `+itemCols+` FROM items WHERE round_id = ? ORDER BY created_at ASC, id ASC`,
		roundID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		i, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *i)
	}
	return items, rows.Err()
}

// AddOrIncrement adds an active item for the actor, or bumps the quantity by
// one when the same user already has an active item with the same name
// (case-insensitive). The lookup and the write share a transaction so two
// quick taps cannot create a duplicate row.
func (s *ItemStore) AddOrIncrement(roundID int64, name string, quantity int, actorID int64) (*model.Item, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin add item: %w", err)
	}
	defer tx.Rollback()

	var existingID int64
	err = tx.QueryRow(
		`SELECT id FROM items
		 WHERE round_id = ? AND created_by_user_id = ? AND status = 'active'
		   AND LOWER(name) = LOWER(?)
		 LIMIT 1`,
		roundID, actorID, name,
	).Scan(&existingID)

	var itemID int64
	switch {
	case err == sql.ErrNoRows:
		result, err := tx.Exec(
			`INSERT INTO items (round_id, name, quantity, status, created_by_user_id)
			 VALUES (?, ?, ?, 'active', ?)`,
			roundID, name, quantity, actorID,
		)
		if err != nil {
			return nil, fmt.Errorf("insert item: %w", err)
		}
		itemID, err = result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("find matching item: %w", err)
	default:
		// A merge always bumps by one regardless of the submitted quantity.
		if _, err := tx.Exec(`UPDATE items SET quantity = quantity + 1 WHERE id = ?`, existingID); err != nil {
			return nil, fmt.Errorf("increment item: %w", err)
		}
		itemID = existingID
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add item: %w", err)
	}
	return s.GetByID(itemID)
}

// Request files an item on behalf of a non-shopper while someone is shopping.
// The item sits in 'requested' until the shopper approves or declines it.
func (s *ItemStore) Request(roundID int64, name string, quantity int, actorID int64) (*model.Item, error) {
	result, err := s.db.Exec(
		`INSERT INTO items (round_id, name, quantity, status, requested_by_user_id, created_by_user_id)
		 VALUES (?, ?, ?, 'requested', ?, ?)`,
		roundID, name, quantity, actorID, actorID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// Approve promotes a requested item to active and clears the requester, so
// the item is indistinguishable from a direct add afterwards. Returns nil
// when the item is not pending (already reviewed, or never a request).
func (s *ItemStore) Approve(itemID int64) (*model.Item, error) {
	result, err := s.db.Exec(
		`UPDATE items SET status = 'active', requested_by_user_id = NULL
		 WHERE id = ? AND status = 'requested'`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("approve item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetByID(itemID)
}

// Decline removes a requested item entirely. Reports whether a pending
// request was actually deleted.
func (s *ItemStore) Decline(itemID int64) (bool, error) {
	result, err := s.db.Exec(
		`DELETE FROM items WHERE id = ? AND status = 'requested'`,
		itemID,
	)
	if err != nil {
		return false, fmt.Errorf("decline item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// AdjustQuantity applies a delta to an item's quantity. A result below one
// deletes the item; the returned flag reports that case (with a nil item).
func (s *ItemStore) AdjustQuantity(itemID int64, delta int) (*model.Item, bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("begin adjust quantity: %w", err)
	}
	defer tx.Rollback()

	var quantity int
	err = tx.QueryRow(`SELECT quantity FROM items WHERE id = ?`, itemID).Scan(&quantity)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read quantity: %w", err)
	}

	if quantity+delta < 1 {
		if _, err := tx.Exec(`DELETE FROM items WHERE id = ?`, itemID); err != nil {
			return nil, false, fmt.Errorf("delete item: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit adjust quantity: %w", err)
		}
		return nil, true, nil
	}

	if _, err := tx.Exec(`UPDATE items SET quantity = quantity + ? WHERE id = ?`, delta, itemID); err != nil {
		return nil, false, fmt.Errorf("update quantity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit adjust quantity: %w", err)
	}
	item, err := s.GetByID(itemID)
	return item, false, err
}

// ToggleInCart flips the in-cart flag the shopper uses while walking the
// store.
func (s *ItemStore) ToggleInCart(itemID int64) (*model.Item, error) {
	result, err := s.db.Exec(
		`UPDATE items SET is_in_cart = NOT is_in_cart WHERE id = ?`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("toggle in cart: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetByID(itemID)
}

func (s *ItemStore) SetEstimatedPrice(itemID int64, price float64) (*model.Item, error) {
	result, err := s.db.Exec(
		`UPDATE items SET estimated_price = ? WHERE id = ?`,
		price, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("set estimated price: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetByID(itemID)
}

// EstimatedTotal sums the estimated prices of a round's items. Unpriced
// items contribute nothing. This is the figure the totals page shows while
// the round is under review, and the same sum settle stamps on the round.
func (s *ItemStore) EstimatedTotal(roundID int64) (float64, error) {
	var total float64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(estimated_price), 0) FROM items WHERE round_id = ?`,
		roundID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum estimated prices: %w", err)
	}
	return total, nil
}

func (s *ItemStore) Delete(itemID int64) error {
	if _, err := s.db.Exec(`DELETE FROM items WHERE id = ?`, itemID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}
