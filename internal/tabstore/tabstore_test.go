package tabstore

import (
	"testing"
	"time"

	"github.com/fennel-tools/tabdeck/internal/classify"
	"github.com/fennel-tools/tabdeck/internal/types"
)

func newStore() *Store {
	return New(classify.NewTable(), nil)
}

func TestNewStoreHasHomeTab(t *testing.T) {
	s := newStore()

	if s.Len() != 1 {
		t.Fatalf("expected 1 tab, got %d", s.Len())
	}
	home := s.ActiveTab()
	if home == nil {
		t.Fatal("no active tab")
	}
	if home.URL != classify.HomeURL || home.Closable {
		t.Errorf("unexpected home tab: %+v", home)
	}
	if home.Title != "Dashboard" || home.Icon != types.IconHome {
		t.Errorf("home tab not classified: %+v", home)
	}
}

func TestOpenOrActivateIdempotent(t *testing.T) {
	s := newStore()

	id1 := s.OpenOrActivate("/tickets/42", "", "")
	s.OpenOrActivate("/", "", "")
	id2 := s.OpenOrActivate("/tickets/42", "", "")

	if id1 != id2 {
		t.Errorf("second open created a new tab: %s vs %s", id1, id2)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 tabs, got %d", s.Len())
	}
	if s.ActiveTabID() != id1 {
		t.Errorf("reopened tab not active")
	}
}

func TestOpenOrActivateIgnoresQueryString(t *testing.T) {
	s := newStore()

	id1 := s.OpenOrActivate("/tickets?page=1", "", "")
	id2 := s.OpenOrActivate("/tickets?page=2", "", "")

	if id1 != id2 {
		t.Errorf("query variants opened separate tabs")
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 tabs, got %d", s.Len())
	}
}

func TestOpenOrActivateClassifierDefaults(t *testing.T) {
	s := newStore()

	id := s.OpenOrActivate("/inventory/assets/7", "", "")
	tab := s.Tabs()[s.IndexOf(id)]
	if tab.Title != "Asset" || tab.Icon != types.IconAsset {
		t.Errorf("classifier defaults not applied: %+v", tab)
	}

	id = s.OpenOrActivate("/customers/3", "Alice", "")
	tab = s.Tabs()[s.IndexOf(id)]
	if tab.Title != "Alice" {
		t.Errorf("explicit title overridden: %q", tab.Title)
	}
	if tab.Icon != types.IconCustomer {
		t.Errorf("icon default not applied: %q", tab.Icon)
	}
}

func TestCloseReassignsToLeftNeighbor(t *testing.T) {
	s := newStore()
	t1 := s.OpenOrActivate("/tickets", "", "")
	t2 := s.OpenOrActivate("/customers", "", "")

	// [home, t1, t2], t2 active
	s.Close(t2)
	if s.ActiveTabID() != t1 {
		t.Errorf("expected left neighbor %s active, got %s", t1, s.ActiveTabID())
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 tabs, got %d", s.Len())
	}
}

func TestCloseInactiveKeepsActive(t *testing.T) {
	s := newStore()
	t1 := s.OpenOrActivate("/tickets", "", "")
	t2 := s.OpenOrActivate("/customers", "", "")
	s.Activate(t2)

	s.Close(t1)
	if s.ActiveTabID() != t2 {
		t.Errorf("closing inactive tab moved active pointer")
	}
}

func TestCloseFirstClosableFallsBackToIndexZero(t *testing.T) {
	s := newStore()
	home := s.ActiveTabID()
	t1 := s.OpenOrActivate("/tickets", "", "")
	s.Reorder(1, 0) // [tickets, home], tickets active

	s.Close(t1)
	if s.ActiveTabID() != home {
		t.Errorf("expected fallback to first tab %s, got %s", home, s.ActiveTabID())
	}
}

func TestCloseHomeIsNoOp(t *testing.T) {
	s := newStore()
	home := s.ActiveTabID()

	s.Close(home)
	if s.Len() != 1 || s.ActiveTabID() != home {
		t.Errorf("home tab was closed")
	}
}

func TestCloseUnknownIsNoOp(t *testing.T) {
	s := newStore()
	s.OpenOrActivate("/tickets", "", "")
	before := s.Len()

	s.Close("t999")
	if s.Len() != before {
		t.Errorf("closing unknown id changed tab count")
	}
}

func TestIDsNeverReused(t *testing.T) {
	s := newStore()
	t1 := s.OpenOrActivate("/tickets", "", "")
	s.Close(t1)
	t2 := s.OpenOrActivate("/tickets", "", "")

	if t1 == t2 {
		t.Errorf("id %s reused after close", t1)
	}
}

func TestActivateUnknownLeavesStateUntouched(t *testing.T) {
	s := newStore()
	id := s.OpenOrActivate("/tickets", "", "")

	if s.Activate("t999") {
		t.Error("activating unknown id reported success")
	}
	if s.ActiveTabID() != id {
		t.Errorf("active pointer moved on failed activate")
	}
}

func TestReorderClampsIndices(t *testing.T) {
	s := newStore()
	s.OpenOrActivate("/tickets", "", "")
	s.OpenOrActivate("/customers", "", "")
	// [home, tickets, customers]

	s.Reorder(2, 0)
	if s.Tabs()[0].URL != "/customers" {
		t.Errorf("reorder to front failed: %v", urls(s))
	}

	s.Reorder(0, 99)
	if s.Tabs()[2].URL != "/customers" {
		t.Errorf("out-of-range target not clamped: %v", urls(s))
	}

	before := urls(s)
	s.Reorder(-5, -1)
	if got := urls(s); !equal(got, before) {
		t.Errorf("clamped no-op reorder changed order: %v -> %v", before, got)
	}
}

func TestUpdatePartialPatch(t *testing.T) {
	s := newStore()
	id := s.OpenOrActivate("/tickets/42", "", "")

	title := "PRINT-104 jammed"
	s.Update(id, Patch{Title: &title})

	tab := s.Tabs()[s.IndexOf(id)]
	if tab.Title != title {
		t.Errorf("title not patched: %q", tab.Title)
	}
	if tab.URL != "/tickets/42" || tab.Icon != types.IconTicket {
		t.Errorf("untouched fields changed: %+v", tab)
	}
}

func TestJumpHome(t *testing.T) {
	s := newStore()
	home := s.ActiveTabID()
	s.OpenOrActivate("/tickets", "", "")

	if got := s.JumpHome(); got != home {
		t.Errorf("JumpHome returned %s, want %s", got, home)
	}
	if s.ActiveTabID() != home {
		t.Errorf("home tab not active after JumpHome")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	s := newStore()
	s.OpenOrActivate("/tickets/42", "", "")
	active := s.OpenOrActivate("/customers/3", "", "")
	snap := s.Session()

	r := newStore()
	r.Restore(snap)

	if r.Len() != 3 {
		t.Fatalf("expected 3 tabs after restore, got %d", r.Len())
	}
	if r.ActiveTabID() != active {
		t.Errorf("active id not restored: got %s, want %s", r.ActiveTabID(), active)
	}
	if !equal(urls(r), urls(s)) {
		t.Errorf("tab order not restored: %v vs %v", urls(r), urls(s))
	}
}

func TestRestoreNilResetsToHome(t *testing.T) {
	s := newStore()
	s.Restore(nil)

	if s.Len() != 1 || s.ActiveTab().URL != classify.HomeURL {
		t.Errorf("nil restore did not reset to home: %v", urls(s))
	}
}

func TestRestoreRepairsMissingHome(t *testing.T) {
	s := newStore()
	s.Restore(&types.Session{
		Tabs: []*types.Tab{
			{ID: "t5", URL: "/tickets", Title: "Tickets", Icon: types.IconTicket, Closable: true},
		},
		ActiveTabID: "t5",
	})

	nonClosable := 0
	for _, tab := range s.Tabs() {
		if !tab.Closable {
			nonClosable++
		}
	}
	if nonClosable != 1 {
		t.Fatalf("expected exactly one home tab, got %d", nonClosable)
	}
	if s.ActiveTabID() != "t5" {
		t.Errorf("active id lost during repair")
	}
}

func TestRestoreRepairsDoubleHome(t *testing.T) {
	s := newStore()
	s.Restore(&types.Session{
		Tabs: []*types.Tab{
			{ID: "t1", URL: "/", Title: "Dashboard", Icon: types.IconHome},
			{ID: "t2", URL: "/settings", Title: "Settings", Icon: types.IconSettings},
		},
		ActiveTabID: "t1",
	})

	tabs := s.Tabs()
	if tabs[0].Closable {
		t.Error("first home tab became closable")
	}
	if !tabs[1].Closable {
		t.Error("second non-closable tab not demoted")
	}
}

func TestRestoreRepairsDanglingActive(t *testing.T) {
	s := newStore()
	s.Restore(&types.Session{
		Tabs: []*types.Tab{
			{ID: "t1", URL: "/", Title: "Dashboard", Icon: types.IconHome},
			{ID: "t2", URL: "/tickets", Title: "Tickets", Icon: types.IconTicket, Closable: true},
		},
		ActiveTabID: "t99",
	})

	if s.ActiveTabID() != "t1" {
		t.Errorf("dangling active id not repaired, got %s", s.ActiveTabID())
	}
}

func TestRestoreAdvancesIDSequence(t *testing.T) {
	s := newStore()
	s.Restore(&types.Session{
		Tabs: []*types.Tab{
			{ID: "t7", URL: "/", Title: "Dashboard", Icon: types.IconHome},
		},
		ActiveTabID: "t7",
	})

	id := s.OpenOrActivate("/tickets", "", "")
	if id == "t7" {
		t.Errorf("restored id reused for new tab")
	}
}

func TestMergeDuplicates(t *testing.T) {
	s := newStore()
	s.Restore(&types.Session{
		Tabs: []*types.Tab{
			{ID: "t1", URL: "/", Title: "Dashboard", Icon: types.IconHome},
			{ID: "t2", URL: "/tickets?page=1", Title: "Tickets", Icon: types.IconTicket, Closable: true},
			{ID: "t3", URL: "/tickets?page=2", Title: "Tickets", Icon: types.IconTicket, Closable: true},
		},
		ActiveTabID: "t3",
	})

	if s.Len() != 2 {
		t.Fatalf("duplicates not merged: %v", urls(s))
	}
	// Active pointer transfers to the kept leftmost duplicate.
	if s.ActiveTabID() != "t2" {
		t.Errorf("active pointer not transferred, got %s", s.ActiveTabID())
	}
}

type recordingSaver struct {
	sessions chan *types.Session
}

func (r *recordingSaver) SaveSession(sess *types.Session) error {
	r.sessions <- sess
	return nil
}

func TestPersistSnapshotIsDetached(t *testing.T) {
	saver := &recordingSaver{sessions: make(chan *types.Session, 16)}
	s := New(classify.NewTable(), saver)

	s.OpenOrActivate("/tickets", "", "")

	var snap *types.Session
	select {
	case snap = <-saver.sessions:
	case <-time.After(2 * time.Second):
		t.Fatal("no persistence write observed")
	}

	// Mutating the snapshot must not leak into live state.
	snap.Tabs[0].Title = "mutated"
	if s.Tabs()[0].Title == "mutated" {
		t.Error("saver snapshot shares memory with live tabs")
	}
}

func urls(s *Store) []string {
	tabs := s.Tabs()
	out := make([]string, len(tabs))
	for i, t := range tabs {
		out[i] = t.URL
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
