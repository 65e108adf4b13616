package types

// Icon is the semantic category of a tab, used purely for presentation.
type Icon string

const (
	IconHome      Icon = "home"
	IconTicket    Icon = "ticket"
	IconAsset     Icon = "asset"
	IconAccessory Icon = "accessory"
	IconInventory Icon = "inventory"
	IconReport    Icon = "report"
	IconCustomer  Icon = "customer"
	IconAdmin     Icon = "admin"
	IconSettings  Icon = "settings"
	IconDev       Icon = "dev"
)

// Tab is a single open workspace tab, bound to a path in the admin console.
type Tab struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Icon     Icon   `json:"icon"`
	Closable bool   `json:"closable"`
}

// Session is the full tab-strip state: the ordered tab list plus the
// identifier of the tab currently reflected by the page content.
type Session struct {
	Tabs        []*Tab `json:"tabs"`
	ActiveTabID string `json:"activeTabId"`
}

// Clone returns a deep copy. Persistence writes run on a copy so a write
// in flight never observes a later mutation.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := &Session{
		Tabs:        make([]*Tab, len(s.Tabs)),
		ActiveTabID: s.ActiveTabID,
	}
	for i, t := range s.Tabs {
		cp := *t
		out.Tabs[i] = &cp
	}
	return out
}

// ActiveTab returns the active tab, or nil if the active id is dangling.
func (s *Session) ActiveTab() *Tab {
	for _, t := range s.Tabs {
		if t.ID == s.ActiveTabID {
			return t
		}
	}
	return nil
}
