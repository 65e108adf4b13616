package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fennel-tools/tabdeck/internal/types"
)

// Markdown formats a session as a markdown document.
func Markdown(workspace string, sess *types.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Tabdeck Session — %s\n", workspace)
	fmt.Fprintf(&b, "> Exported %s\n\n", time.Now().Format("2006-01-02 15:04"))

	for _, t := range sess.Tabs {
		marker := " "
		if t.ID == sess.ActiveTabID {
			marker = "*"
		}
		fmt.Fprintf(&b, "- %s [%s](%s) `%s`\n", marker, t.Title, t.URL, t.Icon)
	}

	return b.String()
}

type jsonExport struct {
	Workspace  string         `json:"workspace"`
	ExportedAt time.Time      `json:"exported_at"`
	Session    *types.Session `json:"session"`
}

// JSON formats a session as an indented JSON document.
func JSON(workspace string, sess *types.Session) (string, error) {
	out := jsonExport{
		Workspace:  workspace,
		ExportedAt: time.Now(),
		Session:    sess,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal export: %w", err)
	}
	return string(data) + "\n", nil
}
