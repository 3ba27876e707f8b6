package storage

import (
	"testing"

	"github.com/emberforge/embercore/structs"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func testStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestLocationLastWriteWins(t *testing.T) {
	s := testStorage(t)
	id := uuid.New()

	if got := s.Location(id); got != nil {
		t.Errorf("got %v for unsaved location, want nil", got)
	}

	first := &structs.LocationSnapshot{World: "overworld", X: 1, Y: 64, Z: -3, Yaw: 90, Pitch: -10}
	if !s.SetLocation(id, first) {
		t.Fatal("save failed")
	}
	second := &structs.LocationSnapshot{World: "nether", X: 0.125, Y: 32, Z: 7}
	if !s.SetLocation(id, second) {
		t.Fatal("overwrite failed")
	}
	if diff := cmp.Diff(second, s.Location(id)); diff != "" {
		t.Errorf("location mismatch (-want +got):\n%s", diff)
	}
}

func TestFlightAndGamemodeMirrors(t *testing.T) {
	s := testStorage(t)
	id := uuid.New()

	flight := &structs.FlightState{CanFly: true, Flying: false, Speed: 0.1}
	if !s.SetFlight(id, flight) {
		t.Fatal("save failed")
	}
	if diff := cmp.Diff(flight, s.Flight(id)); diff != "" {
		t.Errorf("flight mismatch (-want +got):\n%s", diff)
	}

	if got := s.Gamemode(id); got != nil {
		t.Errorf("got %v for unsaved gamemode, want nil", got)
	}
	if !s.SetGamemode(id, &structs.GamemodeState{Mode: 1}) {
		t.Fatal("save failed")
	}
	if got := s.Gamemode(id); got == nil || got.Mode != 1 {
		t.Errorf("got %v, want mode 1", got)
	}
}

func TestInventoryNullVersusEmpty(t *testing.T) {
	s := testStorage(t)
	id := uuid.New()

	if got := s.Inventory(id); got != nil {
		t.Errorf("got %v for unsaved inventory, want nil", got)
	}

	in := &structs.InventorySnapshot{
		Main: structs.ItemStacks{
			{Material: "COBBLESTONE", Count: 64},
			nil,
			{Material: "BREAD", Count: 3},
		},
		Armor: structs.ItemStacks{},
		// Other groups nil: nothing was stored for them.
	}
	if !s.SetInventory(id, in) {
		t.Fatal("save failed")
	}
	out := s.Inventory(id)
	if out == nil {
		t.Fatal("inventory not found")
	}
	if diff := cmp.Diff(in.Main, out.Main); diff != "" {
		t.Errorf("main mismatch (-want +got):\n%s", diff)
	}
	if out.Armor == nil || len(out.Armor) != 0 {
		t.Errorf("got %#v for armor, want empty non-nil", out.Armor)
	}
	if out.EnderChest != nil {
		t.Errorf("got %#v for enderchest, want nil", out.EnderChest)
	}
}

func TestCorruptInventoryColumnDegrades(t *testing.T) {
	s := testStorage(t)
	id := uuid.New()
	if !s.SetInventory(id, &structs.InventorySnapshot{Main: structs.ItemStacks{{Material: "STONE", Count: 1}}}) {
		t.Fatal("save failed")
	}
	if s.DB.Update(`UPDATE inventories SET main = ? WHERE uuid = ?`, "corrupt!!", id.String()) != 1 {
		t.Fatal("corruption update failed")
	}
	out := s.Inventory(id)
	if out == nil {
		t.Fatal("inventory not found")
	}
	if out.Main != nil {
		t.Errorf("got %#v for corrupt main, want nil", out.Main)
	}
}

func TestMailFlow(t *testing.T) {
	s := testStorage(t)
	alice, bob := uuid.New(), uuid.New()

	if got := s.UnreadMail(bob); len(got) != 0 {
		t.Errorf("got %d unread messages, want 0", len(got))
	}
	if !s.SendMail(alice, bob, "hello") || !s.SendMail(alice, bob, "anyone home?") {
		t.Fatal("send failed")
	}
	mail := s.UnreadMail(bob)
	if len(mail) != 2 {
		t.Fatalf("got %d unread messages, want 2", len(mail))
	}
	if mail[0].Body != "hello" || mail[0].Sender != alice || mail[0].Recipient != bob {
		t.Errorf("unexpected first message: %+v", mail[0])
	}
	if !s.MarkMailRead(mail[0].ID) {
		t.Fatal("mark read failed")
	}
	if s.MarkMailRead(mail[0].ID) {
		t.Error("marking read twice claimed to mutate")
	}
	if got := s.UnreadMail(bob); len(got) != 1 || got[0].Body != "anyone home?" {
		t.Errorf("got %+v, want only the second message", got)
	}
}

func TestGiftClaim(t *testing.T) {
	s := testStorage(t)
	alice, bob := uuid.New(), uuid.New()

	items := structs.ItemStacks{{Material: "DIAMOND", Count: 3}, nil}
	if !s.SendGift(alice, bob, items) {
		t.Fatal("send failed")
	}
	gifts := s.UnclaimedGifts(bob)
	if len(gifts) != 1 {
		t.Fatalf("got %d gifts, want 1", len(gifts))
	}
	if diff := cmp.Diff(items, gifts[0].Items); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	claimed, ok := s.ClaimGift(gifts[0].ID)
	if !ok {
		t.Fatal("claim failed")
	}
	if diff := cmp.Diff(items, claimed); diff != "" {
		t.Errorf("claimed payload mismatch (-want +got):\n%s", diff)
	}
	if _, ok := s.ClaimGift(gifts[0].ID); ok {
		t.Error("double claim succeeded")
	}
	if got := s.UnclaimedGifts(bob); len(got) != 0 {
		t.Errorf("got %d gifts after claim, want 0", len(got))
	}
}
