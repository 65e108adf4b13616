package history

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/fennel-tools/tabdeck/internal/storage"
	"github.com/fennel-tools/tabdeck/internal/types"
)

// DiffEntry is a single tab in a diff result.
type DiffEntry struct {
	URL   string
	Title string
}

// DiffResult compares two session states by URL set.
type DiffResult struct {
	Workspace string
	RevFrom   int
	RevTo     int // 0 when comparing against the live session
	Added     []DiffEntry
	Removed   []DiffEntry
}

// Create stores a new revision of the session, unless it is identical (by
// URL set) to the latest stored revision. Returns the revision in effect,
// whether a new one was created, and the diff against the previous one.
func Create(db *sql.DB, workspace string, sess *types.Session) (rev int, created bool, diff *DiffResult, err error) {
	latest, err := storage.GetRevision(db, workspace, 0)
	if err != nil {
		return 0, false, nil, err
	}

	if latest != nil {
		d := diffSessions(latest, sess)
		if len(d.Added) == 0 && len(d.Removed) == 0 {
			revs, err := storage.ListRevisions(db, workspace)
			if err != nil {
				return 0, false, nil, err
			}
			return revs[0].Rev, false, nil, nil
		}
		diff = d
	}

	rev, err = storage.CreateRevision(db, workspace, sess)
	if err != nil {
		return 0, false, nil, err
	}
	if diff != nil {
		diff.Workspace = workspace
		diff.RevFrom = rev - 1
		diff.RevTo = rev
	}
	return rev, true, diff, nil
}

// DiffAgainstCurrent compares a stored revision (0 = latest) against the
// live session. Added entries are tabs present now but not in the
// revision; Removed entries the reverse.
func DiffAgainstCurrent(db *sql.DB, workspace string, rev int, current *types.Session) (*DiffResult, error) {
	stored, err := storage.GetRevision(db, workspace, rev)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("no revisions for workspace %q", workspace)
	}
	if rev == 0 {
		revs, err := storage.ListRevisions(db, workspace)
		if err != nil {
			return nil, err
		}
		rev = revs[0].Rev
	}

	result := diffSessions(stored, current)
	result.Workspace = workspace
	result.RevFrom = rev
	return result, nil
}

// DiffRevisions compares two stored revisions.
func DiffRevisions(db *sql.DB, workspace string, revFrom, revTo int) (*DiffResult, error) {
	from, err := storage.GetRevision(db, workspace, revFrom)
	if err != nil {
		return nil, err
	}
	to, err := storage.GetRevision(db, workspace, revTo)
	if err != nil {
		return nil, err
	}

	result := diffSessions(from, to)
	result.Workspace = workspace
	result.RevFrom = revFrom
	result.RevTo = revTo
	return result, nil
}

func diffSessions(from, to *types.Session) *DiffResult {
	fromURLs := urlSet(from)
	toURLs := urlSet(to)

	result := &DiffResult{}
	for url, entry := range toURLs {
		if _, ok := fromURLs[url]; !ok {
			result.Added = append(result.Added, entry)
		}
	}
	for url, entry := range fromURLs {
		if _, ok := toURLs[url]; !ok {
			result.Removed = append(result.Removed, entry)
		}
	}
	return result
}

func urlSet(sess *types.Session) map[string]DiffEntry {
	set := make(map[string]DiffEntry)
	if sess == nil {
		return set
	}
	for _, t := range sess.Tabs {
		set[t.URL] = DiffEntry{URL: t.URL, Title: t.Title}
	}
	return set
}

// FormatDiff returns a human-readable rendering of a DiffResult.
func FormatDiff(d *DiffResult) string {
	var sb strings.Builder

	if d.RevTo != 0 {
		fmt.Fprintf(&sb, "Diff rev %d -> rev %d (%s)\n", d.RevFrom, d.RevTo, d.Workspace)
	} else {
		fmt.Fprintf(&sb, "Diff rev %d -> current (%s)\n", d.RevFrom, d.Workspace)
	}
	fmt.Fprintf(&sb, "Added: %d  Removed: %d\n", len(d.Added), len(d.Removed))

	if len(d.Added) > 0 {
		sb.WriteString("\n+ Added:\n")
		for _, e := range d.Added {
			fmt.Fprintf(&sb, "  + %s (%s)\n", e.URL, e.Title)
		}
	}

	if len(d.Removed) > 0 {
		sb.WriteString("\n- Removed:\n")
		for _, e := range d.Removed {
			fmt.Fprintf(&sb, "  - %s (%s)\n", e.URL, e.Title)
		}
	}

	if len(d.Added) == 0 && len(d.Removed) == 0 {
		sb.WriteString("\nNo changes.\n")
	}

	return sb.String()
}
