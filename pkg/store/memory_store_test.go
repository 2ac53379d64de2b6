package store

import (
	"testing"
	"time"

	"gatebook/pkg/domain"
)

func TestMemoryStoreUsers(t *testing.T) {
	m := NewMemoryStore()

	alice := domain.User{ID: 1, Username: "alice", Role: domain.RoleAdmin}
	bob := domain.User{ID: 2, Username: "bob", Role: domain.RoleResident, UnitNo: "A-101"}
	for _, u := range []domain.User{bob, alice} {
		if err := m.SaveUser(u); err != nil {
			t.Fatalf("save user: %v", err)
		}
	}

	if ok, _ := m.HasUsername("alice"); !ok {
		t.Fatal("alice missing")
	}
	got, ok, err := m.GetUserByUsername("bob")
	if err != nil || !ok || got.ID != 2 {
		t.Fatalf("get bob: %+v ok=%v err=%v", got, ok, err)
	}

	users, err := m.ListUsers()
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 || users[0].ID != 1 || users[1].ID != 2 {
		t.Fatalf("list not in id order: %+v", users)
	}
	if n, _ := m.CountAdmins(); n != 1 {
		t.Fatalf("admin count = %d, want 1", n)
	}

	// Rename frees the old username index entry.
	alice.Username = "alicia"
	if err := m.SaveUser(alice); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if ok, _ := m.HasUsername("alice"); ok {
		t.Fatal("old username still indexed")
	}
	if ok, _ := m.HasUsername("alicia"); !ok {
		t.Fatal("new username not indexed")
	}

	if err := m.DeleteUser(1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := m.GetUserByID(1); ok {
		t.Fatal("deleted user still present")
	}
	if ok, _ := m.HasUsername("alicia"); ok {
		t.Fatal("deleted user's username still indexed")
	}
}

func TestMemoryStoreVisitorOrder(t *testing.T) {
	m := NewMemoryStore()
	for _, v := range []domain.Visitor{
		{ID: 10, Name: "first", Resident: "A-101"},
		{ID: 20, Name: "second", Resident: "B-201"},
		{ID: 30, Name: "third", Resident: "A-101"},
	} {
		if err := m.SaveVisitor(v); err != nil {
			t.Fatalf("save visitor: %v", err)
		}
	}
	// Re-saving must not duplicate the order entry.
	if err := m.SaveVisitor(domain.Visitor{ID: 20, Name: "second-updated", Resident: "B-201"}); err != nil {
		t.Fatalf("resave: %v", err)
	}

	all, err := m.ListVisitors()
	if err != nil {
		t.Fatalf("list visitors: %v", err)
	}
	if len(all) != 3 || all[0].ID != 10 || all[1].ID != 20 || all[2].ID != 30 {
		t.Fatalf("order wrong: %+v", all)
	}
	if all[1].Name != "second-updated" {
		t.Fatalf("resave lost: %q", all[1].Name)
	}

	byUnit, err := m.ListVisitorsByUnit("A-101")
	if err != nil {
		t.Fatalf("list by unit: %v", err)
	}
	if len(byUnit) != 2 || byUnit[0].ID != 10 || byUnit[1].ID != 30 {
		t.Fatalf("unit filter wrong: %+v", byUnit)
	}
}

func TestMemoryStoreUnits(t *testing.T) {
	m := NewMemoryStore()
	if err := m.SaveUnit(domain.Unit{Block: "A", HouseNo: "1"}); err != nil {
		t.Fatalf("save unit: %v", err)
	}
	// Idempotent on exact duplicates.
	if err := m.SaveUnit(domain.Unit{Block: "A", HouseNo: "1"}); err != nil {
		t.Fatalf("resave unit: %v", err)
	}
	units, _ := m.ListUnits()
	if len(units) != 1 {
		t.Fatalf("units = %d, want 1", len(units))
	}
	if ok, _ := m.HasUnit("A", "1"); !ok {
		t.Fatal("unit missing")
	}
	if err := m.DeleteUnit("A", "1"); err != nil {
		t.Fatalf("delete unit: %v", err)
	}
	if ok, _ := m.HasUnit("A", "1"); ok {
		t.Fatal("unit survived delete")
	}
}

func TestMemoryStoreThreadIsolation(t *testing.T) {
	m := NewMemoryStore()
	uid := int64(7)
	thread := domain.ChatThread{
		ID:       1,
		UserID:   &uid,
		Messages: []domain.ChatMessage{{Sender: domain.SenderUser, Text: "hi", SentAt: time.Now()}},
	}
	if err := m.SaveThread(thread); err != nil {
		t.Fatalf("save thread: %v", err)
	}

	// Mutating the returned copy must not leak into the store.
	got, ok, err := m.GetThread(1)
	if err != nil || !ok {
		t.Fatalf("get thread: ok=%v err=%v", ok, err)
	}
	got.Messages[0].Text = "tampered"
	got.Messages = append(got.Messages, domain.ChatMessage{Sender: domain.SenderBot, Text: "extra"})

	fresh, _, _ := m.GetThread(1)
	if len(fresh.Messages) != 1 || fresh.Messages[0].Text != "hi" {
		t.Fatalf("store state leaked: %+v", fresh.Messages)
	}

	mine, err := m.ListThreadsByUser(7)
	if err != nil || len(mine) != 1 {
		t.Fatalf("list by user: %d err=%v", len(mine), err)
	}
	other, err := m.ListThreadsByUser(8)
	if err != nil || len(other) != 0 {
		t.Fatalf("foreign user sees threads: %d", len(other))
	}
}

func TestMemoryStoreCompanySingleton(t *testing.T) {
	m := NewMemoryStore()
	if _, ok, _ := m.GetCompanyInfo(); ok {
		t.Fatal("empty store has company info")
	}
	if err := m.SaveCompanyInfo(domain.CompanyInfo{Name: "First"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := m.SaveCompanyInfo(domain.CompanyInfo{Name: "Second"}); err != nil {
		t.Fatalf("resave: %v", err)
	}
	info, ok, _ := m.GetCompanyInfo()
	if !ok || info.Name != "Second" {
		t.Fatalf("company = %+v ok=%v", info, ok)
	}
}
