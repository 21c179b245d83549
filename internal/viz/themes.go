package viz

import "github.com/charmbracelet/lipgloss"

// Theme colours the stats panel and the link overlay.
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	// Link is the packed RGBA colour links are drawn with.
	Link uint32
}

var Themes = []Theme{
	{
		Name:    "neon",
		Primary: lipgloss.Color("#00ffff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#666688"),
		Success: lipgloss.Color("#00ff88"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff4444"),
		Link:    0xff888888,
	},
	{
		Name:    "phosphor",
		Primary: lipgloss.Color("#00ff00"),
		Text:    lipgloss.Color("#88ff88"),
		Muted:   lipgloss.Color("#005500"),
		Success: lipgloss.Color("#88ff88"),
		Warning: lipgloss.Color("#ffff00"),
		Error:   lipgloss.Color("#ff0000"),
		Link:    0xff00aa00,
	},
	{
		Name:    "mono",
		Primary: lipgloss.Color("#ffffff"),
		Text:    lipgloss.Color("#cccccc"),
		Muted:   lipgloss.Color("#777777"),
		Success: lipgloss.Color("#ffffff"),
		Warning: lipgloss.Color("#aaaaaa"),
		Error:   lipgloss.Color("#ffffff"),
	},
	{
		Name:    "ember",
		Primary: lipgloss.Color("#ff6b6b"),
		Text:    lipgloss.Color("#fff5f5"),
		Muted:   lipgloss.Color("#8b6b8c"),
		Success: lipgloss.Color("#5fd068"),
		Warning: lipgloss.Color("#ffc048"),
		Error:   lipgloss.Color("#ff4757"),
		Link:    0xff4060c0,
	},
}

// GetTheme returns the named theme, or the first one.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

func nextTheme(current string) Theme {
	for i, t := range Themes {
		if t.Name == current {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}
