package websocket

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/parcelworks/assessor-backend/internal/common/clock"
	"github.com/parcelworks/assessor-backend/internal/common/logger"
)

func registryFixture(t *testing.T) (*SessionRegistry, func() *Client) {
	t.Helper()
	log, _ := logger.New("", "registry-test", "error")
	h := NewHub(log, newMockStore(), clock.NewMockClock(time.Now()), Config{})
	return h.registry, func() *Client {
		return newClient(h, nil, uuid.NewString(), log)
	}
}

func TestSessionRegistry_JoinAndLeave(t *testing.T) {
	reg, mkClient := registryFixture(t)
	c1 := mkClient()
	c2 := mkClient()

	if evicted := reg.Join("S1", 1, c1); evicted != nil {
		t.Error("expected no eviction on first join")
	}
	if evicted := reg.Join("S1", 2, c2); evicted != nil {
		t.Error("expected no eviction for a distinct user")
	}
	if counts := reg.SessionCounts(); counts["S1"] != 2 {
		t.Errorf("expected 2 members, got %d", counts["S1"])
	}

	sessionID, userID, remaining, ok := reg.Leave(c1)
	if !ok || sessionID != "S1" || userID != 1 || remaining != 1 {
		t.Errorf("unexpected leave result: session=%s user=%d remaining=%d ok=%v", sessionID, userID, remaining, ok)
	}

	_, _, remaining, ok = reg.Leave(c2)
	if !ok || remaining != 0 {
		t.Errorf("expected last member to leave cleanly, remaining=%d ok=%v", remaining, ok)
	}
	if counts := reg.SessionCounts(); len(counts) != 0 {
		t.Errorf("expected empty session to be removed, got %v", counts)
	}
}

func TestSessionRegistry_DuplicateJoinReturnsEvicted(t *testing.T) {
	reg, mkClient := registryFixture(t)
	old := mkClient()
	replacement := mkClient()

	reg.Join("S1", 1, old)
	evicted := reg.Join("S1", 1, replacement)
	if evicted != old {
		t.Fatalf("expected the previous client to be evicted, got %v", evicted)
	}
	if counts := reg.SessionCounts(); counts["S1"] != 1 {
		t.Errorf("expected single membership, got %d", counts["S1"])
	}

	// The evicted client's slot now belongs to the replacement; its own leave
	// must not disturb it.
	if _, _, _, ok := reg.Leave(old); ok {
		t.Error("expected leave of an evicted client to report not found")
	}
	if _, _, ok := reg.FindByClient(replacement); !ok {
		t.Error("expected replacement to still be registered")
	}
}

func TestSessionRegistry_RejoinSameClientNoEviction(t *testing.T) {
	reg, mkClient := registryFixture(t)
	c := mkClient()

	reg.Join("S1", 1, c)
	if evicted := reg.Join("S1", 1, c); evicted != nil {
		t.Error("expected no self-eviction when the same client rejoins")
	}
}

func TestSessionRegistry_FindByClient(t *testing.T) {
	reg, mkClient := registryFixture(t)
	member := mkClient()
	stranger := mkClient()

	reg.Join("S1", 7, member)

	sessionID, userID, ok := reg.FindByClient(member)
	if !ok || sessionID != "S1" || userID != 7 {
		t.Errorf("unexpected lookup result: session=%s user=%d ok=%v", sessionID, userID, ok)
	}
	if _, _, ok := reg.FindByClient(stranger); ok {
		t.Error("expected unknown client to not be found")
	}
}

func TestSessionRegistry_SnapshotIsACopy(t *testing.T) {
	reg, mkClient := registryFixture(t)
	c := mkClient()
	reg.Join("S1", 1, c)

	snapshot := reg.SnapshotMembers("S1")
	if len(snapshot) != 1 || snapshot[0] != c {
		t.Fatalf("unexpected snapshot: %v", snapshot)
	}
	snapshot[0] = nil
	if got := reg.SnapshotMembers("S1"); len(got) != 1 || got[0] != c {
		t.Error("expected registry to be unaffected by snapshot mutation")
	}
	if got := reg.SnapshotMembers("missing"); len(got) != 0 {
		t.Errorf("expected empty snapshot for unknown session, got %v", got)
	}
}

func TestSessionRegistry_ConcurrentJoinLeave(t *testing.T) {
	reg, mkClient := registryFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sessionID := fmt.Sprintf("S%d", n%4)
			c := mkClient()
			reg.Join(sessionID, int64(n+1), c)
			reg.FindByClient(c)
			reg.SnapshotMembers(sessionID)
			reg.Leave(c)
		}(i)
	}
	wg.Wait()

	if counts := reg.SessionCounts(); len(counts) != 0 {
		t.Errorf("expected all sessions to be drained, got %v", counts)
	}
}
