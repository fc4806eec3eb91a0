package output

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// ColorStack colors text with the palette entry of the index-th stack
func ColorStack(text string, index int) string {
	if len(StackColors) == 0 {
		return text
	}
	c := StackColors[index%len(StackColors)]
	hex := lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
	return lipgloss.NewStyle().Foreground(hex).Render(text)
}

// ColorBranchName colors a branch name based on whether it's current
func ColorBranchName(name string, isCurrent bool) string {
	if isCurrent {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Render(name + " (current)")
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Render(name)
}

// ColorConflict colors conflict markers
func ColorConflict(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("1")).
		Render(text)
}

// ColorRemote colors remote-only commits and remote names
func ColorRemote(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("3")).
		Render(text)
}

// ColorDim makes text dim/gray
func ColorDim(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Render(text)
}

// ColorHash colors an abbreviated commit id
func ColorHash(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("5")).
		Render(text)
}
