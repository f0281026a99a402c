package view

import "feedesk/internal/messages"

// Tab ids of the member desk page.
const (
	TabTotals = "totals"
	TabAdd    = "add"
	TabModify = "modify"
	TabSearch = "search"
)

// DefaultTabs is the page's tab order.
var DefaultTabs = []string{TabTotals, TabAdd, TabModify, TabSearch}

var tabLabels = map[string]messages.Key{
	TabTotals: messages.TabTotals,
	TabAdd:    messages.TabAdd,
	TabModify: messages.TabModify,
	TabSearch: messages.TabSearch,
}

// Tab is one panel's visibility state.
type Tab struct {
	ID      string
	Label   string
	Visible bool
}

type tabSet struct {
	tabs []Tab
}

func newTabSet(ids []string, p *messages.Printer) tabSet {
	ts := tabSet{tabs: make([]Tab, 0, len(ids))}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		label := id
		if k, ok := tabLabels[id]; ok {
			label = p.Text(k)
		}
		ts.tabs = append(ts.tabs, Tab{ID: id, Label: label})
	}
	return ts
}

// show hides every tab and then shows id. An unknown id leaves every tab
// hidden. Reports whether id was found.
func (ts *tabSet) show(id string) bool {
	for i := range ts.tabs {
		ts.tabs[i].Visible = false
	}
	for i := range ts.tabs {
		if ts.tabs[i].ID == id {
			ts.tabs[i].Visible = true
			return true
		}
	}
	return false
}

func (ts tabSet) has(id string) bool {
	for _, t := range ts.tabs {
		if t.ID == id {
			return true
		}
	}
	return false
}

func (ts tabSet) active() string {
	for _, t := range ts.tabs {
		if t.Visible {
			return t.ID
		}
	}
	return ""
}

func (ts tabSet) clone() []Tab {
	return append([]Tab(nil), ts.tabs...)
}
