package store

import (
	"database/sql"
	"fmt"

	"github.com/dvanbeek/boodschap/internal/model"
)

type ReceiptLineStore struct {
	db *sql.DB
}

func NewReceiptLineStore(db *sql.DB) *ReceiptLineStore {
	return &ReceiptLineStore{db: db}
}

const receiptLineCols = `id, round_id, line_number, description, quantity,
	unit_price, total_price, matched_item_id, is_ignored`

func scanReceiptLine(scanner interface{ Scan(...any) error }) (*model.ReceiptLine, error) {
	var l model.ReceiptLine
	var matched sql.NullInt64
	err := scanner.Scan(
		&l.ID, &l.RoundID, &l.LineNumber, &l.Description, &l.Quantity,
		&l.UnitPrice, &l.TotalPrice, &matched, &l.IsIgnored,
	)
	if err != nil {
		return nil, err
	}
	if matched.Valid {
		l.MatchedItemID = &matched.Int64
	}
	return &l, nil
}

func (s *ReceiptLineStore) GetByID(id int64) (*model.ReceiptLine, error) {
	row := s.db.QueryRow(`SELECT `+receiptLineCols+` FROM receipt_lines WHERE id = ?`, id)
	l, err := scanReceiptLine(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get receipt line: %w", err)
	}
	return l, nil
}

// Add appends an empty line to the round's receipt, numbered after the
// current highest line.
func (s *ReceiptLineStore) Add(roundID int64) (*model.ReceiptLine, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin add line: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRow(
		`SELECT COALESCE(MAX(line_number), 0) + 1 FROM receipt_lines WHERE round_id = ?`,
		roundID,
	).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("next line number: %w", err)
	}

	result, err := tx.Exec(
		`INSERT INTO receipt_lines (round_id, line_number) VALUES (?, ?)`,
		roundID, next,
	)
	if err != nil {
		return nil, fmt.Errorf("insert receipt line: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add line: %w", err)
	}
	return s.GetByID(id)
}

func (s *ReceiptLineStore) ListByRound(roundID int64) ([]model.ReceiptLine, error) {
	rows, err := s.db.Query(
		`SELECT `+receiptLineCols+` FROM receipt_lines WHERE round_id = ? ORDER BY line_number ASC`,
		roundID,
	)
	if err != nil {
		return nil, fmt.Errorf("list receipt lines: %w", err)
	}
	defer rows.Close()

	var lines []model.ReceiptLine
	for rows.Next() {
		l, err := scanReceiptLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt line: %w", err)
		}
		lines = append(lines, *l)
	}
	return lines, rows.Err()
}

func (s *ReceiptLineStore) UpdateDescription(lineID int64, description string) (*model.ReceiptLine, error) {
	if _, err := s.db.Exec(
		`UPDATE receipt_lines SET description = ? WHERE id = ?`,
		description, lineID,
	); err != nil {
		return nil, fmt.Errorf("update description: %w", err)
	}
	return s.GetByID(lineID)
}

// UpdateQuantity sets a line's quantity and recomputes its total in the same
// statement, so the quantity × unit price identity holds no matter which
// field changed last.
func (s *ReceiptLineStore) UpdateQuantity(lineID int64, quantity float64) (*model.ReceiptLine, error) {
	if _, err := s.db.Exec(
		`UPDATE receipt_lines SET quantity = ?, total_price = ? * unit_price WHERE id = ?`,
		quantity, quantity, lineID,
	); err != nil {
		return nil, fmt.Errorf("update quantity: %w", err)
	}
	return s.GetByID(lineID)
}

func (s *ReceiptLineStore) UpdateUnitPrice(lineID int64, unitPrice float64) (*model.ReceiptLine, error) {
	if _, err := s.db.Exec(
		`UPDATE receipt_lines SET unit_price = ?, total_price = quantity * ? WHERE id = ?`,
		unitPrice, unitPrice, lineID,
	); err != nil {
		return nil, fmt.Errorf("update unit price: %w", err)
	}
	return s.GetByID(lineID)
}

// Match links a line to a list item, or clears the link when itemID is nil.
// Matching does not clear the ignored flag and vice versa; a line can carry
// both marks.
func (s *ReceiptLineStore) Match(lineID int64, itemID *int64) (*model.ReceiptLine, error) {
	if _, err := s.db.Exec(
		`UPDATE receipt_lines SET matched_item_id = ? WHERE id = ?`,
		itemID, lineID,
	); err != nil {
		return nil, fmt.Errorf("match receipt line: %w", err)
	}
	return s.GetByID(lineID)
}

func (s *ReceiptLineStore) SetIgnored(lineID int64, ignored bool) (*model.ReceiptLine, error) {
	if _, err := s.db.Exec(
		`UPDATE receipt_lines SET is_ignored = ? WHERE id = ?`,
		ignored, lineID,
	); err != nil {
		return nil, fmt.Errorf("set ignored: %w", err)
	}
	return s.GetByID(lineID)
}

func (s *ReceiptLineStore) Delete(lineID int64) error {
	if _, err := s.db.Exec(`DELETE FROM receipt_lines WHERE id = ?`, lineID); err != nil {
		return fmt.Errorf("delete receipt line: %w", err)
	}
	return nil
}

// Summary counts a round's lines by reconciliation status. Matched and
// ignored are not mutually exclusive; unmatched means neither.
func (s *ReceiptLineStore) Summary(roundID int64) (*model.ReceiptSummary, error) {
	var summary model.ReceiptSummary
	err := s.db.QueryRow(
		`SELECT
			COUNT(CASE WHEN matched_item_id IS NOT NULL THEN 1 END),
			COUNT(CASE WHEN matched_item_id IS NULL AND is_ignored = 0 THEN 1 END),
			COUNT(CASE WHEN is_ignored = 1 THEN 1 END),
			COALESCE(SUM(CASE WHEN is_ignored = 0 THEN total_price ELSE 0 END), 0)
		 FROM receipt_lines WHERE round_id = ?`,
		roundID,
	).Scan(&summary.Matched, &summary.Unmatched, &summary.Ignored, &summary.Total)
	if err != nil {
		return nil, fmt.Errorf("receipt summary: %w", err)
	}
	return &summary, nil
}
