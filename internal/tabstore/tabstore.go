package tabstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fennel-tools/tabdeck/internal/applog"
	"github.com/fennel-tools/tabdeck/internal/classify"
	"github.com/fennel-tools/tabdeck/internal/types"
)

// Saver persists a session snapshot. Writes are best-effort: the in-memory
// state stays authoritative when a write fails.
type Saver interface {
	SaveSession(*types.Session) error
}

// Patch is a partial tab update. Nil fields are left untouched.
type Patch struct {
	Title *string
	URL   *string
	Icon  *types.Icon
}

// Store holds the ordered tab collection and the active tab pointer.
//
// All mutations must happen on the UI event loop goroutine; the store does
// no locking of its own. Persistence writes run on a deep-copied snapshot,
// so the fire-and-forget goroutine never touches live state.
//
// Invariants, restored after every operation:
//   - the collection is never empty; exactly one tab is non-closable (home)
//   - the active id always refers to a present tab
//   - ids are unique for the store's lifetime (no reuse after close)
//   - a query-stripped URL maps to at most one tab
type Store struct {
	tabs     []*types.Tab
	activeID string
	table    *classify.Table
	saver    Saver
	idSeq    int64
}

// New creates a store holding the single non-closable home tab.
func New(table *classify.Table, saver Saver) *Store {
	s := &Store{table: table, saver: saver}
	s.tabs = []*types.Tab{s.newHomeTab()}
	s.activeID = s.tabs[0].ID
	return s
}

func (s *Store) newHomeTab() *types.Tab {
	res := s.table.Classify(classify.HomeURL)
	return &types.Tab{
		ID:       s.newID(),
		URL:      classify.HomeURL,
		Title:    res.Title,
		Icon:     res.Icon,
		Closable: false,
	}
}

func (s *Store) newID() string {
	for {
		s.idSeq++
		id := fmt.Sprintf("t%d", s.idSeq)
		if s.findIndex(id) < 0 {
			return id
		}
	}
}

// Restore rehydrates the store from a persisted session. Malformed data is
// repaired rather than rejected: a missing home tab is synthesized, a
// dangling active id falls back to the first tab, and duplicate URLs are
// merged. A nil session resets to the single home tab.
func (s *Store) Restore(sess *types.Session) {
	if sess == nil || len(sess.Tabs) == 0 {
		s.tabs = []*types.Tab{s.newHomeTab()}
		s.activeID = s.tabs[0].ID
		s.persist()
		return
	}

	s.tabs = sess.Clone().Tabs
	s.activeID = sess.ActiveTabID

	// Advance the id sequence past every restored id so closed-tab ids are
	// never reused within this store's lifetime.
	for _, t := range s.tabs {
		if n, err := strconv.ParseInt(strings.TrimPrefix(t.ID, "t"), 10, 64); err == nil && n > s.idSeq {
			s.idSeq = n
		}
	}

	// Exactly one non-closable home tab.
	home := -1
	for i, t := range s.tabs {
		if !t.Closable {
			if home < 0 {
				home = i
			} else {
				t.Closable = true
			}
		}
	}
	if home < 0 {
		s.tabs = append([]*types.Tab{s.newHomeTab()}, s.tabs...)
	}

	s.MergeDuplicates()

	if s.findIndex(s.activeID) < 0 {
		applog.Info("store.restore.repair", "reason", "dangling active id", "id", s.activeID)
		s.activeID = s.tabs[0].ID
	}
	s.persist()
}

// Session returns a deep-copied snapshot of the current state.
func (s *Store) Session() *types.Session {
	return (&types.Session{Tabs: s.tabs, ActiveTabID: s.activeID}).Clone()
}

// Tabs returns the ordered tab list. The slice is a copy; the tabs are live
// and must be treated as read-only by callers.
func (s *Store) Tabs() []*types.Tab {
	out := make([]*types.Tab, len(s.tabs))
	copy(out, s.tabs)
	return out
}

// ActiveTabID returns the id of the active tab.
func (s *Store) ActiveTabID() string {
	return s.activeID
}

// ActiveTab returns the active tab. Never nil after any completed operation.
func (s *Store) ActiveTab() *types.Tab {
	if i := s.findIndex(s.activeID); i >= 0 {
		return s.tabs[i]
	}
	return nil
}

// Len returns the number of open tabs.
func (s *Store) Len() int {
	return len(s.tabs)
}

// FindByURL returns the tab whose query-stripped URL equals the
// query-stripped given url, or nil.
func (s *Store) FindByURL(url string) *types.Tab {
	want := classify.PathOnly(url)
	for _, t := range s.tabs {
		if classify.PathOnly(t.URL) == want {
			return t
		}
	}
	return nil
}

// IndexOf returns the position of a tab id, or -1.
func (s *Store) IndexOf(id string) int {
	return s.findIndex(id)
}

func (s *Store) findIndex(id string) int {
	for i, t := range s.tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// OpenOrActivate activates the tab matching url (ignoring the query
// string) or, if none exists, appends and activates a new one. Title and
// icon default to the classifier's output when empty. Idempotent per url:
// opening the same url twice never creates a second tab.
func (s *Store) OpenOrActivate(url, title string, icon types.Icon) string {
	if t := s.FindByURL(url); t != nil {
		s.activeID = t.ID
		s.persist()
		return t.ID
	}

	res := s.table.Classify(url)
	if title == "" {
		title = res.Title
	}
	if icon == "" {
		icon = res.Icon
	}
	tab := &types.Tab{
		ID:       s.newID(),
		URL:      url,
		Title:    title,
		Icon:     icon,
		Closable: true,
	}
	s.tabs = append(s.tabs, tab)
	s.activeID = tab.ID
	applog.Info("tab.open", "id", tab.ID, "url", url)
	s.persist()
	return tab.ID
}

// Close removes a tab. No-op for the home tab or an unknown id. If the
// closed tab was active, the tab to its left becomes active, falling back
// to index 0.
func (s *Store) Close(id string) {
	i := s.findIndex(id)
	if i < 0 {
		applog.Info("tab.close.miss", "id", id)
		return
	}
	if !s.tabs[i].Closable {
		return
	}

	wasActive := s.activeID == id
	s.tabs = append(s.tabs[:i], s.tabs[i+1:]...)

	if wasActive {
		next := i - 1
		if next < 0 {
			next = 0
		}
		s.activeID = s.tabs[next].ID
	}
	applog.Info("tab.close", "id", id)
	s.persist()
}

// Activate sets the active pointer. Returns false (and leaves the state
// untouched) for an unknown id.
func (s *Store) Activate(id string) bool {
	if s.findIndex(id) < 0 {
		applog.Info("tab.activate.miss", "id", id)
		return false
	}
	s.activeID = id
	s.persist()
	return true
}

// Reorder moves the tab at from to position to. Indices are clamped to the
// valid range; with zero or one tab this is a no-op.
func (s *Store) Reorder(from, to int) {
	if len(s.tabs) < 2 {
		return
	}
	from = clamp(from, 0, len(s.tabs)-1)
	to = clamp(to, 0, len(s.tabs)-1)
	if from == to {
		return
	}
	tab := s.tabs[from]
	s.tabs = append(s.tabs[:from], s.tabs[from+1:]...)
	s.tabs = append(s.tabs[:to], append([]*types.Tab{tab}, s.tabs[to:]...)...)
	s.persist()
}

// Update merges non-nil patch fields into a tab. No-op for an unknown id.
func (s *Store) Update(id string, patch Patch) {
	i := s.findIndex(id)
	if i < 0 {
		applog.Info("tab.update.miss", "id", id)
		return
	}
	t := s.tabs[i]
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.URL != nil {
		t.URL = *patch.URL
	}
	if patch.Icon != nil {
		t.Icon = *patch.Icon
	}
	s.persist()
}

// JumpHome activates the home tab, recreating it first if it is somehow
// missing. This is a defensive repair path; under normal operation the
// home tab always exists.
func (s *Store) JumpHome() string {
	for _, t := range s.tabs {
		if !t.Closable {
			s.activeID = t.ID
			s.persist()
			return t.ID
		}
	}
	applog.Info("store.repair", "reason", "home tab missing")
	home := s.newHomeTab()
	s.tabs = append([]*types.Tab{home}, s.tabs...)
	s.activeID = home.ID
	s.persist()
	return home.ID
}

// MergeDuplicates collapses tabs that share a query-stripped URL, keeping
// the leftmost of each set. A duplicate-URL state only arises from drifted
// persisted data or a reconciliation defect; merging is the repair.
func (s *Store) MergeDuplicates() {
	seen := make(map[string]*types.Tab, len(s.tabs))
	kept := s.tabs[:0]
	for _, t := range s.tabs {
		key := classify.PathOnly(t.URL)
		first, dup := seen[key]
		if !dup {
			seen[key] = t
			kept = append(kept, t)
			continue
		}
		applog.Info("store.repair", "reason", "duplicate url", "url", key, "dropped", t.ID)
		if s.activeID == t.ID {
			s.activeID = first.ID
		}
		if !t.Closable {
			first.Closable = false
		}
	}
	s.tabs = kept
}

func (s *Store) persist() {
	if s.saver == nil {
		return
	}
	snapshot := s.Session()
	go func() {
		if err := s.saver.SaveSession(snapshot); err != nil {
			applog.Error("session.save", err)
		}
	}()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
