package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/avivsinai/a2a-mailbox/internal/mailbox"
	"github.com/avivsinai/a2a-mailbox/internal/service"
)

var (
	unreadStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	readStyle   = lipgloss.NewStyle().Faint(true)
	headerStyle = lipgloss.NewStyle().Bold(true)
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeLine(w io.Writer, s string) error {
	_, err := fmt.Fprintln(w, s)
	return err
}

// isTerminal reports whether w is an interactive terminal. Styled output is
// only produced for terminals so pipes and files get plain text.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// renderInboxStyled is service.RenderInbox with colored read markers.
func renderInboxStyled(inbox mailbox.Inbox) string {
	if len(inbox.Entries) == 0 {
		return service.RenderInbox(inbox)
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("Inbox for " + inbox.Agent + ":"))
	b.WriteString("\n")
	for _, e := range inbox.Entries {
		label := service.StatusLabel(e.Read)
		if e.Read {
			label = readStyle.Render(label)
		} else {
			label = unreadStyle.Render(label)
		}
		b.WriteString("\n  " + label + " " + e.Name)
	}
	return b.String()
}
