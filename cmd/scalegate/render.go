package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/flemzord/scalegate/internal/agent"
)

var (
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	pendingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

// renderer prints pipeline responses, as terminal markdown unless plain.
type renderer struct {
	out io.Writer
	md  *glamour.TermRenderer
}

func newRenderer(out io.Writer, plain bool) *renderer {
	r := &renderer{out: out}
	if plain {
		return r
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err == nil {
		r.md = md
	}
	return r
}

func (r *renderer) plain() bool { return r.md == nil }

func (r *renderer) response(resp agent.Response) {
	switch resp.Kind {
	case agent.KindError:
		r.styled(errorStyle, resp.Text)
		return
	case agent.KindConfirmation:
		r.styled(pendingStyle, resp.Text)
		return
	}
	if r.md != nil {
		if s, err := r.md.Render(resp.Text); err == nil {
			fmt.Fprint(r.out, s)
			return
		}
	}
	fmt.Fprintln(r.out, resp.Text)
}

func (r *renderer) styled(style lipgloss.Style, text string) {
	if r.plain() {
		fmt.Fprintln(r.out, text)
		return
	}
	fmt.Fprintln(r.out, style.Render(strings.TrimRight(text, "\n")))
}

func (r *renderer) header(text string) {
	if r.plain() {
		fmt.Fprintln(r.out, text)
		return
	}
	fmt.Fprintln(r.out, headerStyle.Render(text))
}
