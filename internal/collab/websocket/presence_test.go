package websocket

import (
	"testing"
	"time"
)

func TestHub_ActiveSessions(t *testing.T) {
	h, _, _ := setupHub(t, Config{})
	authenticateClient(t, h, "S1", 7, "Alice")
	authenticateClient(t, h, "S1", 8, "Bob")
	authenticateClient(t, h, "S2", 9, "Carol")

	counts := h.ActiveSessions()
	if counts["S1"] != 2 || counts["S2"] != 1 {
		t.Errorf("unexpected session counts: %v", counts)
	}
}

func TestHub_ActiveMembers(t *testing.T) {
	h, _, clk := setupHub(t, Config{})
	authenticateClient(t, h, "S1", 7, "Alice")
	joined := clk.Now()

	clk.Advance(5 * time.Minute)
	authenticateClient(t, h, "S1", 8, "Bob")

	members := h.ActiveMembers("S1")
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	byID := make(map[int64]MemberInfo, len(members))
	for _, m := range members {
		byID[m.UserID] = m
	}

	alice, ok := byID[7]
	if !ok || alice.UserName != "Alice" || alice.UserRole != "appraiser" {
		t.Errorf("unexpected member info for Alice: %+v", alice)
	}
	if !alice.LastActivity.Equal(joined) {
		t.Errorf("expected Alice last activity %v, got %v", joined, alice.LastActivity)
	}

	bob, ok := byID[8]
	if !ok || !bob.LastActivity.Equal(clk.Now()) {
		t.Errorf("unexpected member info for Bob: %+v", bob)
	}
}

func TestHub_ActiveMembers_ActivityAdvancesOnMessage(t *testing.T) {
	h, _, clk := setupHub(t, Config{})
	alice := authenticateClient(t, h, "S1", 7, "Alice")

	clk.Advance(10 * time.Minute)
	h.HandleFrame(alice, chatFrame(t, "S1", "still working"))

	members := h.ActiveMembers("S1")
	if len(members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(members))
	}
	if !members[0].LastActivity.Equal(clk.Now()) {
		t.Errorf("expected last activity %v, got %v", clk.Now(), members[0].LastActivity)
	}
}

func TestHub_ActiveMembers_UnknownSession(t *testing.T) {
	h, _, _ := setupHub(t, Config{})

	if members := h.ActiveMembers("missing"); len(members) != 0 {
		t.Errorf("expected empty members for unknown session, got %v", members)
	}
}
