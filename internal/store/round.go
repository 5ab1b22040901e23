package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dvanbeek/boodschap/internal/model"
	"github.com/dvanbeek/boodschap/internal/round"
)

type RoundStore struct {
	db *sql.DB
}

func NewRoundStore(db *sql.DB) *RoundStore {
	return &RoundStore{db: db}
}

const roundCols = `id, state, created_at, locked_at, locked_by_user_id,
	receipt_uploaded_at, receipt_path, reviewed_at, reviewed_by_user_id,
	settled_at, total_amount, note`

func scanRound(scanner interface{ Scan(...any) error }) (*model.Round, error) {
	var r model.Round
	var lockedAt, receiptAt, reviewedAt, settledAt sql.NullTime
	var lockedBy, reviewedBy sql.NullInt64
	var receiptPath, note sql.NullString
	err := scanner.Scan(
		&r.ID, &r.State, &r.CreatedAt, &lockedAt, &lockedBy,
		&receiptAt, &receiptPath, &reviewedAt, &reviewedBy,
		&settledAt, &r.TotalAmount, &note,
	)
	if err != nil {
		return nil, err
	}
	if lockedAt.Valid {
		r.LockedAt = &lockedAt.Time
	}
	if lockedBy.Valid {
		r.LockedByUserID = &lockedBy.Int64
	}
	if receiptAt.Valid {
		r.ReceiptUploadedAt = &receiptAt.Time
	}
	if receiptPath.Valid {
		r.ReceiptPath = &receiptPath.String
	}
	if reviewedAt.Valid {
		r.ReviewedAt = &reviewedAt.Time
	}
	if reviewedBy.Valid {
		r.ReviewedByUserID = &reviewedBy.Int64
	}
	if settledAt.Valid {
		r.SettledAt = &settledAt.Time
	}
	if note.Valid {
		r.Note = &note.String
	}
	return &r, nil
}

func (s *RoundStore) GetByID(id int64) (*model.Round, error) {
	row := s.db.QueryRow(`SELECT `+roundCols+` FROM rounds WHERE id = ?`, id)
	r, err := scanRound(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get round: %w", err)
	}
	return r, nil
}

// Current returns the household's single current round, creating a fresh OPEN
// one when none exists. The partial unique index on rounds keeps concurrent
// callers from ever producing two current rounds; the loser of that race
// re-reads the winner's row.
func (s *RoundStore) Current() (*model.Round, error) {
	r, err := s.current()
	if err != nil || r != nil {
		return r, err
	}

	_, err = s.db.Exec(`INSERT INTO rounds (state) VALUES ('OPEN')`)
	if err != nil && !isUniqueViolation(err) {
		return nil, fmt.Errorf("create round: %w", err)
	}
	return s.current()
}

func (s *RoundStore) current() (*model.Round, error) {
	row := s.db.QueryRow(
		`SELECT ` + roundCols + ` FROM rounds WHERE state IN ('OPEN', 'LOCKED') LIMIT 1`,
	)
	r, err := scanRound(row)
	if err == sql.ErrNoRows {
		// A round under REVIEW is still the one everyone is working on.
		row = s.db.QueryRow(
			`SELECT ` + roundCols + ` FROM rounds WHERE state = 'REVIEW'
			 ORDER BY created_at DESC LIMIT 1`,
		)
		r, err = scanRound(row)
	}
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("current round: %w", err)
	}
	return r, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Lock moves an OPEN round to LOCKED and records who is shopping. The state
// guard in the WHERE clause makes the transition atomic: a second locker sees
// zero rows affected and gets ErrInvalidTransition.
func (s *RoundStore) Lock(roundID, userID int64) (*model.Round, error) {
	result, err := s.db.Exec(
		`UPDATE rounds SET state = 'LOCKED', locked_at = ?, locked_by_user_id = ?
		 WHERE id = ? AND state = 'OPEN'`,
		time.Now(), userID, roundID,
	)
	if err != nil {
		return nil, fmt.Errorf("lock round: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, round.ErrInvalidTransition
	}
	return s.GetByID(roundID)
}

// Unlock cancels shopping: LOCKED back to OPEN, clearing the shopper. Only
// the user who locked the round may unlock it.
func (s *RoundStore) Unlock(roundID, userID int64) (*model.Round, error) {
	result, err := s.db.Exec(
		`UPDATE rounds SET state = 'OPEN', locked_at = NULL, locked_by_user_id = NULL
		 WHERE id = ? AND state = 'LOCKED' AND locked_by_user_id = ?`,
		roundID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("unlock round: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		r, err := s.GetByID(roundID)
		if err != nil {
			return nil, err
		}
		if r != nil && r.State == model.RoundLocked {
			return nil, round.ErrNotPermitted
		}
		return nil, round.ErrInvalidTransition
	}
	return s.GetByID(roundID)
}

// MarkUnderReview records the uploaded receipt and moves LOCKED to REVIEW.
func (s *RoundStore) MarkUnderReview(roundID int64, receiptPath string) (*model.Round, error) {
	result, err := s.db.Exec(
		`UPDATE rounds SET state = 'REVIEW', receipt_path = ?, receipt_uploaded_at = ?
		 WHERE id = ? AND state = 'LOCKED'`,
		receiptPath, time.Now(), roundID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark round under review: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, round.ErrInvalidTransition
	}
	return s.GetByID(roundID)
}

// Settle closes out a REVIEW round in one transaction: the round's total is
// the sum of its items' estimated prices, the round moves to SETTLED with the
// settling user recorded as reviewer, and a fresh OPEN round is created so
// the household always has somewhere to add items. Returns the settled round
// and its successor.
func (s *RoundStore) Settle(roundID, userID int64, note *string) (*model.Round, *model.Round, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin settle: %w", err)
	}
	defer tx.Rollback()

	var total float64
	err = tx.QueryRow(
		`SELECT COALESCE(SUM(estimated_price), 0) FROM items WHERE round_id = ?`,
		roundID,
	).Scan(&total)
	if err != nil {
		return nil, nil, fmt.Errorf("sum round total: %w", err)
	}

	now := time.Now()
	result, err := tx.Exec(
		`UPDATE rounds SET state = 'SETTLED', settled_at = ?, reviewed_at = ?,
		 reviewed_by_user_id = ?, total_amount = ?, note = COALESCE(?, note)
		 WHERE id = ? AND state = 'REVIEW'`,
		now, now, userID, total, note, roundID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("settle round: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil, round.ErrInvalidTransition
	}

	insert, err := tx.Exec(`INSERT INTO rounds (state) VALUES ('OPEN')`)
	if err != nil {
		return nil, nil, fmt.Errorf("create next round: %w", err)
	}
	nextID, err := insert.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit settle: %w", err)
	}

	settled, err := s.GetByID(roundID)
	if err != nil {
		return nil, nil, err
	}
	next, err := s.GetByID(nextID)
	if err != nil {
		return nil, nil, err
	}
	return settled, next, nil
}

// History lists every round that has been shopped or settled, newest first.
// A LOCKED or REVIEW round shows up here too so the history page reflects the
// trip in progress.
func (s *RoundStore) History() ([]model.Round, error) {
	rows, err := s.db.Query(
		`SELECT ` + roundCols + ` FROM rounds WHERE state != 'OPEN'
		 ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var rounds []model.Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		rounds = append(rounds, *r)
	}
	return rounds, rows.Err()
}
