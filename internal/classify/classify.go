package classify

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fennel-tools/tabdeck/internal/types"
)

// Route maps a path prefix to tab metadata. Title is the collection form
// ("Tickets"); Singular is used when the path carries a record segment
// beyond the prefix ("Ticket"). An empty Singular falls back to Title.
type Route struct {
	Prefix   string     `toml:"prefix"`
	Icon     types.Icon `toml:"icon"`
	Title    string     `toml:"title"`
	Singular string     `toml:"singular"`
}

// Result is the classification of a single path.
type Result struct {
	Icon   types.Icon
	Title  string
	Prefix string // the route prefix that matched; "/" for the fallback
}

// HomeURL is the path of the non-closable home tab.
const HomeURL = "/"

var defaultRoutes = []Route{
	{Prefix: "/", Icon: types.IconHome, Title: "Dashboard"},
	{Prefix: "/tickets", Icon: types.IconTicket, Title: "Tickets", Singular: "Ticket"},
	{Prefix: "/inventory", Icon: types.IconInventory, Title: "Inventory", Singular: "Item"},
	{Prefix: "/inventory/assets", Icon: types.IconAsset, Title: "Assets", Singular: "Asset"},
	{Prefix: "/inventory/accessories", Icon: types.IconAccessory, Title: "Accessories", Singular: "Accessory"},
	{Prefix: "/reports", Icon: types.IconReport, Title: "Reports", Singular: "Report"},
	{Prefix: "/customers", Icon: types.IconCustomer, Title: "Customers", Singular: "Customer"},
	{Prefix: "/admin", Icon: types.IconAdmin, Title: "Administration"},
	{Prefix: "/settings", Icon: types.IconSettings, Title: "Settings"},
	{Prefix: "/dev", Icon: types.IconDev, Title: "Developer"},
}

// Table is an ordered prefix table. Classification checks prefixes in
// descending length order so the most specific route wins.
type Table struct {
	routes []Route
}

// NewTable returns a table with the built-in admin console routes.
func NewTable() *Table {
	t := &Table{}
	t.Merge(defaultRoutes)
	return t
}

// Merge adds routes, replacing any existing route with the same prefix,
// and re-sorts by descending prefix length.
func (t *Table) Merge(routes []Route) {
	for _, r := range routes {
		r.Prefix = normalize(r.Prefix)
		replaced := false
		for i := range t.routes {
			if t.routes[i].Prefix == r.Prefix {
				t.routes[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			t.routes = append(t.routes, r)
		}
	}
	sort.SliceStable(t.routes, func(i, j int) bool {
		return len(t.routes[i].Prefix) > len(t.routes[j].Prefix)
	})
}

// Routes returns the table contents in match order.
func (t *Table) Routes() []Route {
	return t.routes
}

// Classify maps a path to its icon and human title. Pure: the same path
// always yields the same result. Unmatched paths fall back to the home
// route ("Dashboard").
func (t *Table) Classify(path string) Result {
	path = normalize(PathOnly(path))
	for _, r := range t.routes {
		rest, ok := matchPrefix(path, r.Prefix)
		if !ok {
			continue
		}
		title := r.Title
		if rest != "" && r.Singular != "" {
			title = r.Singular
		}
		return Result{Icon: r.Icon, Title: title, Prefix: r.Prefix}
	}
	return Result{Icon: types.IconHome, Title: "Dashboard", Prefix: HomeURL}
}

// RoutePrefix returns the registered prefix a path belongs to. Two paths
// with the same prefix are considered the same workspace by the
// navigation synchronizer.
func (t *Table) RoutePrefix(path string) string {
	return t.Classify(path).Prefix
}

// PathOnly strips the query string (and fragment) from a URL path.
func PathOnly(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return path
}

// matchPrefix reports whether path falls under prefix at a segment
// boundary, returning the remainder after the prefix.
func matchPrefix(path, prefix string) (string, bool) {
	if prefix == "/" {
		return strings.TrimPrefix(path, "/"), true
	}
	if path == prefix {
		return "", true
	}
	if strings.HasPrefix(path, prefix+"/") {
		return path[len(prefix)+1:], true
	}
	return "", false
}

func normalize(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

// UserRoutesPath returns the path of the optional user route table.
func UserRoutesPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tabdeck", "routes.toml")
}

type routesFile struct {
	Route []Route `toml:"route"`
}

// LoadUserRoutes reads extra routes from a TOML file. A missing file is
// not an error and returns no routes.
func LoadUserRoutes(path string) ([]Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read routes file: %w", err)
	}
	var rf routesFile
	if err := toml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse routes file: %w", err)
	}
	for i, r := range rf.Route {
		if r.Prefix == "" {
			return nil, fmt.Errorf("route %d: missing prefix", i+1)
		}
		if r.Icon == "" {
			rf.Route[i].Icon = types.IconHome
		}
	}
	return rf.Route, nil
}
