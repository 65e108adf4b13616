package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fennel-tools/tabdeck/internal/types"
)

func TestClassify(t *testing.T) {
	table := NewTable()

	tests := []struct {
		path   string
		icon   types.Icon
		title  string
		prefix string
	}{
		{"/", types.IconHome, "Dashboard", "/"},
		{"/tickets", types.IconTicket, "Tickets", "/tickets"},
		{"/tickets/42", types.IconTicket, "Ticket", "/tickets"},
		{"/tickets/42/comments", types.IconTicket, "Ticket", "/tickets"},
		{"/inventory", types.IconInventory, "Inventory", "/inventory"},
		{"/inventory/assets", types.IconAsset, "Assets", "/inventory/assets"},
		{"/inventory/assets/7", types.IconAsset, "Asset", "/inventory/assets"},
		{"/inventory/accessories/3", types.IconAccessory, "Accessory", "/inventory/accessories"},
		{"/customers/19", types.IconCustomer, "Customer", "/customers"},
		{"/reports", types.IconReport, "Reports", "/reports"},
		{"/admin/users", types.IconAdmin, "Administration", "/admin"},
		{"/settings", types.IconSettings, "Settings", "/settings"},
		{"/dev/api-keys", types.IconDev, "Developer", "/dev"},
		{"/unknown/path", types.IconHome, "Dashboard", "/"},
		{"", types.IconHome, "Dashboard", "/"},
	}

	for _, tt := range tests {
		got := table.Classify(tt.path)
		if got.Icon != tt.icon || got.Title != tt.title || got.Prefix != tt.prefix {
			t.Errorf("Classify(%q) = {%s %q %q}, want {%s %q %q}",
				tt.path, got.Icon, got.Title, got.Prefix, tt.icon, tt.title, tt.prefix)
		}
	}
}

func TestClassifyLongestPrefixWins(t *testing.T) {
	table := NewTable()

	// /inventory/assets must beat /inventory even though both match.
	got := table.Classify("/inventory/assets/42")
	if got.Prefix != "/inventory/assets" {
		t.Errorf("expected /inventory/assets to win, got %q", got.Prefix)
	}
}

func TestClassifyIgnoresQueryString(t *testing.T) {
	table := NewTable()

	a := table.Classify("/tickets?page=2")
	b := table.Classify("/tickets")
	if a != b {
		t.Errorf("query string changed classification: %+v vs %+v", a, b)
	}
	if a.Title != "Tickets" {
		t.Errorf("expected collection title, got %q", a.Title)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	table := NewTable()
	for i := 0; i < 3; i++ {
		got := table.Classify("/tickets/9")
		if got.Title != "Ticket" || got.Icon != types.IconTicket {
			t.Fatalf("iteration %d: got %+v", i, got)
		}
	}
}

func TestClassifyNoSegmentBoundaryMatch(t *testing.T) {
	table := NewTable()

	// /ticketsarchive must not match the /tickets route.
	got := table.Classify("/ticketsarchive")
	if got.Prefix == "/tickets" {
		t.Errorf("/ticketsarchive matched /tickets prefix")
	}
}

func TestMergeReplacesAndReorders(t *testing.T) {
	table := NewTable()
	table.Merge([]Route{
		{Prefix: "/tickets/archive", Icon: types.IconReport, Title: "Archive"},
		{Prefix: "/tickets", Icon: types.IconTicket, Title: "Queue", Singular: "Case"},
	})

	if got := table.Classify("/tickets/archive"); got.Title != "Archive" {
		t.Errorf("expected more specific route to win, got %q", got.Title)
	}
	if got := table.Classify("/tickets/5"); got.Title != "Case" {
		t.Errorf("expected replaced route singular, got %q", got.Title)
	}
}

func TestLoadUserRoutes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.toml")
	content := `
[[route]]
prefix = "/licenses"
icon = "inventory"
title = "Licenses"
singular = "License"

[[route]]
prefix = "/kb"
title = "Knowledge Base"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	routes, err := LoadUserRoutes(path)
	if err != nil {
		t.Fatalf("LoadUserRoutes: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
	if routes[0].Prefix != "/licenses" || routes[0].Icon != types.IconInventory {
		t.Errorf("unexpected first route: %+v", routes[0])
	}
	// Missing icon falls back to home.
	if routes[1].Icon != types.IconHome {
		t.Errorf("expected home icon fallback, got %q", routes[1].Icon)
	}

	table := NewTable()
	table.Merge(routes)
	if got := table.Classify("/licenses/12"); got.Title != "License" {
		t.Errorf("expected merged user route, got %+v", got)
	}
}

func TestLoadUserRoutesMissingFile(t *testing.T) {
	routes, err := LoadUserRoutes(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if routes != nil {
		t.Errorf("expected no routes, got %v", routes)
	}
}

func TestLoadUserRoutesMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.toml")
	os.WriteFile(path, []byte("[[route]\nbroken"), 0o644)

	if _, err := LoadUserRoutes(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPathOnly(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/tickets?page=2", "/tickets"},
		{"/tickets#top", "/tickets"},
		{"/tickets", "/tickets"},
		{"/tickets/42?tab=notes#history", "/tickets/42"},
	}
	for _, tt := range tests {
		if got := PathOnly(tt.in); got != tt.want {
			t.Errorf("PathOnly(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
