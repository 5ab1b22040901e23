package store

import (
	"testing"

	"github.com/dvanbeek/boodschap/internal/database"
	"github.com/dvanbeek/boodschap/internal/model"
)

func setupItemTestDB(t *testing.T) (*ItemStore, *RoundStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewItemStore(db), NewRoundStore(db), NewUserStore(db)
}

func itemFixture(t *testing.T) (*ItemStore, *model.Round, *model.User, *model.User) {
	t.Helper()
	is, rs, us := setupItemTestDB(t)
	alice, err := us.Create("Alice", "1234", "#FF0000")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := us.Create("Bob", "5678", "#0000FF")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	r, err := rs.Current()
	if err != nil {
		t.Fatalf("current round: %v", err)
	}
	return is, r, alice, bob
}

func TestAddItem(t *testing.T) {
	is, r, alice, _ := itemFixture(t)

	item, err := is.AddOrIncrement(r.ID, "Milk", 2, alice.ID)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if item.Name != "Milk" {
		t.Errorf("name = %q, want Milk", item.Name)
	}
	if item.Quantity != 2 {
		t.Errorf("quantity = %d, want 2", item.Quantity)
	}
	if item.Status != model.ItemActive {
		t.Errorf("status = %q, want active", item.Status)
	}
	if item.CreatedByUserID != alice.ID {
		t.Errorf("created_by = %d, want %d", item.CreatedByUserID, alice.ID)
	}
}

func TestAddMergesSameNameSameUser(t *testing.T) {
	is, r, alice, _ := itemFixture(t)

	first, _ := is.AddOrIncrement(r.ID, "Milk", 1, alice.ID)
	// Case differs and the submitted quantity is 3, but a merge always bumps
	// the existing row by one.
	merged, err := is.AddOrIncrement(r.ID, "milk", 3, alice.ID)
	if err != nil {
		t.Fatalf("merge add: %v", err)
	}
	if merged.ID != first.ID {
		t.Fatalf("expected merge into item %d, got new item %d", first.ID, merged.ID)
	}
	if merged.Quantity != 2 {
		t.Errorf("quantity = %d, want 2", merged.Quantity)
	}

	items, _ := is.ListByRound(r.ID)
	if len(items) != 1 {
		t.Errorf("expected 1 item after merge, got %d", len(items))
	}
}

func TestAddSameNameDifferentUserStaysSeparate(t *testing.T) {
	is, r, alice, bob := itemFixture(t)

	a, _ := is.AddOrIncrement(r.ID, "Milk", 1, alice.ID)
	b, err := is.AddOrIncrement(r.ID, "Milk", 1, bob.ID)
	if err != nil {
		t.Fatalf("add for bob: %v", err)
	}
	if a.ID == b.ID {
		t.Error("items from different users must not merge")
	}

	items, _ := is.ListByRound(r.ID)
	if len(items) != 2 {
		t.Errorf("expected 2 items, got %d", len(items))
	}
}

func TestAddDoesNotMergeIntoRequested(t *testing.T) {
	is, r, alice, _ := itemFixture(t)

	req, _ := is.Request(r.ID, "Milk", 1, alice.ID)
	added, err := is.AddOrIncrement(r.ID, "Milk", 1, alice.ID)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.ID == req.ID {
		t.Error("a direct add must not merge into a pending request")
	}
}

func TestRequestApprove(t *testing.T) {
	is, r, _, bob := itemFixture(t)

	req, err := is.Request(r.ID, "Chocolate", 1, bob.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.Status != model.ItemRequested {
		t.Errorf("status = %q, want requested", req.Status)
	}
	if req.RequestedByUserID == nil || *req.RequestedByUserID != bob.ID {
		t.Errorf("requested_by = %v, want %d", req.RequestedByUserID, bob.ID)
	}

	approved, err := is.Approve(req.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != model.ItemActive {
		t.Errorf("status = %q, want active", approved.Status)
	}
	// Approval clears the requester: the item now reads like a direct add.
	if approved.RequestedByUserID != nil {
		t.Errorf("requested_by = %v, want cleared", *approved.RequestedByUserID)
	}

	// Approving twice is a no-op.
	again, err := is.Approve(req.ID)
	if err != nil {
		t.Fatalf("approve again: %v", err)
	}
	if again != nil {
		t.Error("second approve should return nil")
	}
}

func TestRequestDecline(t *testing.T) {
	is, r, alice, bob := itemFixture(t)

	req, _ := is.Request(r.ID, "Chocolate", 1, bob.ID)
	active, _ := is.AddOrIncrement(r.ID, "Milk", 1, alice.ID)

	ok, err := is.Decline(req.ID)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if !ok {
		t.Error("decline should report the request deleted")
	}

	got, _ := is.GetByID(req.ID)
	if got != nil {
		t.Error("declined request should be gone")
	}

	// Decline never touches active items.
	ok, err = is.Decline(active.ID)
	if err != nil {
		t.Fatalf("decline active: %v", err)
	}
	if ok {
		t.Error("declining an active item must not delete it")
	}
}

func TestAdjustQuantity(t *testing.T) {
	is, r, alice, _ := itemFixture(t)

	item, _ := is.AddOrIncrement(r.ID, "Milk", 2, alice.ID)

	up, deleted, err := is.AdjustQuantity(item.ID, 1)
	if err != nil {
		t.Fatalf("adjust up: %v", err)
	}
	if deleted {
		t.Fatal("increment must not delete")
	}
	if up.Quantity != 3 {
		t.Errorf("quantity = %d, want 3", up.Quantity)
	}

	down, deleted, err := is.AdjustQuantity(item.ID, -2)
	if err != nil {
		t.Fatalf("adjust down: %v", err)
	}
	if deleted || down.Quantity != 1 {
		t.Errorf("quantity = %d deleted = %v, want 1 and kept", down.Quantity, deleted)
	}
}

func TestAdjustQuantityBelowOneDeletes(t *testing.T) {
	is, r, alice, _ := itemFixture(t)

	item, _ := is.AddOrIncrement(r.ID, "Milk", 1, alice.ID)

	got, deleted, err := is.AdjustQuantity(item.ID, -1)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if !deleted {
		t.Fatal("dropping below one should delete the item")
	}
	if got != nil {
		t.Error("deleted item should come back nil")
	}

	remaining, _ := is.ListByRound(r.ID)
	if len(remaining) != 0 {
		t.Errorf("expected empty list, got %d items", len(remaining))
	}
}

func TestToggleInCart(t *testing.T) {
	is, r, alice, _ := itemFixture(t)

	item, _ := is.AddOrIncrement(r.ID, "Milk", 1, alice.ID)

	on, err := is.ToggleInCart(item.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !on.IsInCart {
		t.Error("expected in cart after first toggle")
	}

	off, err := is.ToggleInCart(item.ID)
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if off.IsInCart {
		t.Error("expected out of cart after second toggle")
	}

	missing, err := is.ToggleInCart(9999)
	if err != nil {
		t.Fatalf("toggle missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for nonexistent item")
	}
}

func TestSetEstimatedPrice(t *testing.T) {
	is, r, alice, _ := itemFixture(t)

	item, _ := is.AddOrIncrement(r.ID, "Milk", 1, alice.ID)
	if item.EstimatedPrice != nil {
		t.Fatal("new item should have no price")
	}

	priced, err := is.SetEstimatedPrice(item.ID, 2.49)
	if err != nil {
		t.Fatalf("set price: %v", err)
	}
	if priced.EstimatedPrice == nil || *priced.EstimatedPrice != 2.49 {
		t.Errorf("price = %v, want 2.49", priced.EstimatedPrice)
	}
}

func TestEstimatedTotal(t *testing.T) {
	is, r, alice, _ := itemFixture(t)

	// An empty round sums to zero, not NULL.
	total, err := is.EstimatedTotal(r.ID)
	if err != nil {
		t.Fatalf("estimated total: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %v, want 0", total)
	}

	milk, _ := is.AddOrIncrement(r.ID, "Milk", 1, alice.ID)
	bread, _ := is.AddOrIncrement(r.ID, "Bread", 1, alice.ID)
	is.SetEstimatedPrice(milk.ID, 2.50)
	is.SetEstimatedPrice(bread.ID, 1.75)
	// Unpriced items contribute nothing.
	is.AddOrIncrement(r.ID, "Soap", 1, alice.ID)

	total, err = is.EstimatedTotal(r.ID)
	if err != nil {
		t.Fatalf("estimated total: %v", err)
	}
	if total != 4.25 {
		t.Errorf("total = %v, want 4.25", total)
	}
}

func TestDeleteItem(t *testing.T) {
	is, r, alice, _ := itemFixture(t)

	item, _ := is.AddOrIncrement(r.ID, "Milk", 1, alice.ID)
	if err := is.Delete(item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := is.GetByID(item.ID)
	if got != nil {
		t.Error("expected nil after delete")
	}
}
