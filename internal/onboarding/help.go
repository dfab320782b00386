package onboarding

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// HelpTitle heads the help dialog.
const HelpTitle = "How to Use the App"

// HelpStep is one entry in the help dialog.
type HelpStep struct {
	Title string
	Body  string
}

// HelpSteps are shown in order.
var HelpSteps = []HelpStep{
	{"Settle In", "Find a quiet moment. You can make tea or just take a breath before beginning."},
	{"List Your Tasks", "Write down everything you need or want to do today. Don't worry about order, just get it out of your head."},
	{"Pick One Task", "Look over your list and choose one task to focus on. Don't overthink it. Pick the one that feels right to start with."},
	{"Focus on That Task", "Your chosen task sits in the bowl. Set the rest aside for now and focus only on completing this one thing."},
	{"Complete the Task", "Take your time and do just this one task, without distractions."},
	{"Return and Repeat", "When you're done, come back to your list. You can pick another task or stop for the day. Either choice is okay."},
}

// HelpMarkdown returns the dialog as Markdown. Guests get the sign-up hint instead of "Don't Show Again".
func HelpMarkdown(guest bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", HelpTitle)
	b.WriteString("A simple guide to mindful productivity with Bowl and Stone.\n\n")
	for i, s := range HelpSteps {
		fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, s.Title, s.Body)
	}
	b.WriteString("\n---\n\n")
	if guest {
		b.WriteString("Sign up to remove this and keep your stones between sessions.\n")
	} else {
		b.WriteString("Choose *Don't Show Again* to hide this for good.\n")
	}
	return b.String()
}

// RenderHelp renders [HelpMarkdown] for a terminal of the given width using the named glamour style.
func RenderHelp(guest bool, width int, style string) (string, error) {
	if style == "" {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create help renderer: %w", err)
	}

	out, err := r.Render(HelpMarkdown(guest))
	if err != nil {
		return "", fmt.Errorf("failed to render help: %w", err)
	}
	return out, nil
}
