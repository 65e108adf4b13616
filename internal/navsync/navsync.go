package navsync

import (
	"github.com/fennel-tools/tabdeck/internal/applog"
	"github.com/fennel-tools/tabdeck/internal/classify"
	"github.com/fennel-tools/tabdeck/internal/tabstore"
	"github.com/fennel-tools/tabdeck/internal/types"
)

// Navigator is the imperative side of the routing collaborator: it changes
// the application's address. The call may synchronously re-enter
// HandleLocation (the local router in standalone mode does exactly that),
// so the synchronizer always arms its guard before calling it.
type Navigator interface {
	NavigateTo(path string)
}

// Synchronizer keeps the tab store and the navigation state mutually
// consistent without feedback loops.
//
// It is a two-state machine per navigation turn: idle, or self-navigating
// after the tab strip itself issued a navigation command. While
// self-navigating, the next observed location change matching the expected
// path is consumed instead of being re-processed as a foreign navigation.
// lastPath additionally drops repeated notifications for the address the
// synchronizer has already reconciled.
type Synchronizer struct {
	store *tabstore.Store
	table *classify.Table
	nav   Navigator

	selfNavigating bool
	expectedPath   string
	lastPath       string
}

// New creates a synchronizer. The store must only be mutated through the
// synchronizer (or the shortcut dispatcher driving it) once navigation
// syncing is live.
func New(store *tabstore.Store, table *classify.Table, nav Navigator) *Synchronizer {
	return &Synchronizer{store: store, table: table, nav: nav}
}

// Store exposes the underlying tab store for read-only consumers.
func (y *Synchronizer) Store() *tabstore.Store {
	return y.store
}

// Bootstrap reconciles the address present at startup, after the store has
// been rehydrated. The current address is treated as a foreign navigation.
func (y *Synchronizer) Bootstrap(path string) {
	y.HandleLocation(path)
}

// HandleLocation processes an observed address change, whatever its cause.
//
// Self-inflicted changes (the echo of a navigation command this
// synchronizer issued) are consumed without re-deriving a tab match.
// Foreign changes activate the matching tab, rewriting its url when the
// new path is more specific, or open a new one. This transition never
// emits a navigation command: the navigation already happened.
func (y *Synchronizer) HandleLocation(path string) {
	p := classify.PathOnly(path)

	if y.selfNavigating {
		y.selfNavigating = false
		if p == classify.PathOnly(y.expectedPath) {
			y.lastPath = path
			return
		}
		// The front-end went somewhere else than commanded (a redirect,
		// or a race with a user click). Fall through as foreign.
		applog.Info("sync.expected.miss", "expected", y.expectedPath, "got", path)
	}

	if path == y.lastPath {
		return
	}
	y.lastPath = path

	tab := y.matchTab(p)
	if tab == nil {
		y.store.OpenOrActivate(path, "", "")
		return
	}

	y.store.Activate(tab.ID)
	if tab.URL == path {
		return
	}
	patch := tabstore.Patch{URL: &path}
	if classify.PathOnly(tab.URL) != p {
		// The path itself changed (not just the query): recompute the
		// title and icon, e.g. "Tickets" becomes "Ticket" when a record
		// sub-route lands in the list tab.
		res := y.table.Classify(p)
		patch.Title = &res.Title
		icon := res.Icon
		patch.Icon = &icon
	}
	y.store.Update(tab.ID, patch)
}

// matchTab finds the tab a path belongs to: an exact query-stripped match,
// or a tab in the same workspace. Two paths share a workspace when they
// resolve to the same registered route prefix, so /tickets/42 lands in the
// /tickets tab. The fallback route ("/") never aggregates unrelated paths.
func (y *Synchronizer) matchTab(p string) *types.Tab {
	if t := y.store.FindByURL(p); t != nil {
		return t
	}
	prefix := y.table.RoutePrefix(p)
	if prefix == classify.HomeURL && p != classify.HomeURL {
		return nil
	}
	for _, t := range y.store.Tabs() {
		if y.table.RoutePrefix(t.URL) == prefix {
			return t
		}
	}
	return nil
}

// navigateIfNeeded issues at most one navigation command after a tab-strip
// mutation, and only when the active tab's url differs from the current
// address. The guard is armed before NavigateTo so a synchronous router
// callback cannot be misread as a foreign navigation.
func (y *Synchronizer) navigateIfNeeded() {
	tab := y.store.ActiveTab()
	if tab == nil {
		return
	}
	if tab.URL == y.lastPath {
		return
	}
	y.selfNavigating = true
	y.expectedPath = tab.URL
	y.nav.NavigateTo(tab.URL)
}

// ActivateTab handles a tab click on the strip.
func (y *Synchronizer) ActivateTab(id string) {
	if !y.store.Activate(id) {
		return
	}
	y.navigateIfNeeded()
}

// CloseTab closes a tab and, if the active tab changed as a result,
// navigates to the new active tab's url.
func (y *Synchronizer) CloseTab(id string) {
	y.store.Close(id)
	y.navigateIfNeeded()
}

// CloseActive closes the active tab.
func (y *Synchronizer) CloseActive() {
	y.CloseTab(y.store.ActiveTabID())
}

// NewTab opens (or re-activates) the default new-tab page and navigates.
func (y *Synchronizer) NewTab() {
	y.store.OpenOrActivate(classify.HomeURL, "", "")
	y.navigateIfNeeded()
}

// JumpHome activates the home tab and navigates.
func (y *Synchronizer) JumpHome() {
	y.store.JumpHome()
	y.navigateIfNeeded()
}

// OpenTab opens or activates a tab for url and navigates to it. This is
// the one sanctioned entry point for unrelated UI code.
func (y *Synchronizer) OpenTab(url, title string) {
	y.store.OpenOrActivate(url, title, "")
	y.navigateIfNeeded()
}

// Reorder moves a tab within the strip. Pure reordering never navigates.
func (y *Synchronizer) Reorder(from, to int) {
	y.store.Reorder(from, to)
}

// ActivateOffset activates the tab delta positions from the active one,
// wrapping around the strip.
func (y *Synchronizer) ActivateOffset(delta int) {
	tabs := y.store.Tabs()
	if len(tabs) < 2 {
		return
	}
	i := y.store.IndexOf(y.store.ActiveTabID())
	if i < 0 {
		i = 0
	}
	n := len(tabs)
	next := ((i+delta)%n + n) % n
	y.ActivateTab(tabs[next].ID)
}

// MoveActive shifts the active tab delta positions within the strip.
func (y *Synchronizer) MoveActive(delta int) {
	i := y.store.IndexOf(y.store.ActiveTabID())
	if i < 0 {
		return
	}
	y.store.Reorder(i, i+delta)
}
