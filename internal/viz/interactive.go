package viz

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/partsim/internal/config"
)

var (
	menuTitle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	menuSub     = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	menuCursor  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	menuActive  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	menuIdle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	menuKey     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
	menuError   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
	sceneBlurbs = map[string]string{
		"fill":  "loose particles",
		"boxes": "braced squares",
		"rope":  "linked strands",
		"rain":  "continuous spawning",
	}
)

const (
	stateScenes = iota
	statePresets
	stateSim
)

// Launcher builds a live Model for a preset picked in the menu.
type Launcher func(cfg *config.Config, preset string) (Model, error)

type picker struct {
	state   int
	cursor  int
	scenes  []string
	presets []string
	scene   string
	launch  Launcher
	err     error
	live    Model
}

func NewPicker(launch Launcher) tea.Model {
	scenes := config.Scenes()
	sort.Strings(scenes)
	return picker{state: stateScenes, scenes: scenes, launch: launch}
}

func (m picker) Init() tea.Cmd { return nil }

func (m picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == stateSim {
		next, cmd := m.live.Update(msg)
		m.live = next.(Model)
		return m, cmd
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(key)
	}
	return m, nil
}

func (m picker) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.items()
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case "esc", "h":
		if m.state == statePresets {
			m.state, m.cursor = stateScenes, 0
		}
	case "enter", " ", "l":
		if len(items) == 0 {
			return m, nil
		}
		if m.state == stateScenes {
			m.scene = items[m.cursor]
			m.presets = config.ListPresets(m.scene)
			sort.Strings(m.presets)
			m.state, m.cursor = statePresets, 0
			return m, nil
		}
		return m.start(items[m.cursor])
	}
	return m, nil
}

func (m picker) start(preset string) (tea.Model, tea.Cmd) {
	cfg := config.GetPreset(m.scene, preset)
	if cfg == nil {
		m.err = fmt.Errorf("preset %s/%s not found", m.scene, preset)
		return m, nil
	}
	live, err := m.launch(cfg, preset)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.live, m.state, m.err = live, stateSim, nil
	return m, live.Init()
}

func (m picker) items() []string {
	if m.state == stateScenes {
		return m.scenes
	}
	return m.presets
}

func (m picker) View() string {
	if m.state == stateSim {
		return m.live.View()
	}

	var b strings.Builder
	title, sub := "PARTSIM", "verlet particle simulator"
	if m.state == statePresets {
		title, sub = strings.ToUpper(m.scene), sceneBlurbs[m.scene]
	}
	b.WriteString("\n\n    " + menuTitle.Render(title) + "\n    " + menuSub.Render(sub) + "\n    " + menuSub.Render("─────────────────────────") + "\n\n")

	for i, name := range m.items() {
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s\n", menuCursor.Render("▸"), menuActive.Render(name)))
		} else {
			b.WriteString(fmt.Sprintf("      %s\n", menuIdle.Render(name)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + menuError.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n    " + menuKey.Render("j/k") + menuIdle.Render(" navigate  ") +
		menuKey.Render("enter") + menuIdle.Render(" select  ") +
		menuKey.Render("esc") + menuIdle.Render(" back  ") +
		menuKey.Render("q") + menuIdle.Render(" quit") + "\n")
	return b.String()
}

// RunInteractive opens the preset menu and hands the chosen preset to launch.
func RunInteractive(launch Launcher) error {
	final, err := tea.NewProgram(NewPicker(launch), tea.WithAltScreen()).Run()
	if p, ok := final.(picker); ok && p.state == stateSim {
		p.live.Close()
	}
	return err
}
