package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/bowlstone/internal/models"
)

// renderStones draws the stone list with the cursor and the held stone marked.
func renderStones(stones []models.Task, cursor int, held string) string {
	if len(stones) == 0 {
		return styles.help.Render("No stones. Press a to add one.")
	}

	var b strings.Builder
	for i, task := range stones {
		line := fmt.Sprintf("  ○ %s", task.Text)
		switch {
		case task.ID == held && i == cursor:
			line = styles.held.Render(fmt.Sprintf("› ● %s", task.Text))
		case task.ID == held:
			line = styles.held.Render(fmt.Sprintf("  ● %s", task.Text))
		case i == cursor && held != "":
			line = styles.cursor.Render(fmt.Sprintf("› ○ %s", task.Text)) + styles.help.Render("  (drop before)")
		case i == cursor:
			line = styles.cursor.Render(fmt.Sprintf("› ○ %s", task.Text))
		}
		b.WriteString(line)
		if i < len(stones)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// renderBowl draws the focus slot. The empty bowl lights up while a stone is held.
func renderBowl(bowl *models.Task, holding bool) string {
	switch {
	case bowl != nil:
		return styles.bowl.Render(bowl.Text)
	case holding:
		return styles.bowl.Render("Press b to drop it here.")
	default:
		return styles.disabled.Render("The bowl is empty.\nPick up a stone to focus on it.")
	}
}
