// picker.go contains the interactive model picker used by the load, unload
// and default commands when no model id is given on the command line.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/pierceboggan/byok-foundry-local/core"
)

type pickerItem struct {
	model core.Model
}

func (i pickerItem) FilterValue() string { return i.model.ID + " " + i.model.Name }

type pickerKeyMap struct {
	Confirm key.Binding
	Quit    key.Binding
}

func newPickerKeyMap() pickerKeyMap {
	return pickerKeyMap{
		Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "cancel")),
	}
}

type pickerDelegate struct{}

func (d pickerDelegate) Height() int                             { return 1 }
func (d pickerDelegate) Spacing() int                            { return 0 }
func (d pickerDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d pickerDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(pickerItem)
	if !ok {
		return
	}

	cursor := "  "
	name := faintStyle.Render(it.model.Name)
	id := it.model.ID
	if index == m.Index() {
		cursor = pickerTitle.Render("> ")
		id = pickerTitle.Render(id)
	}

	marker := ""
	if it.model.IsDefault {
		marker = " *"
	}

	fmt.Fprintf(w, "%s%s  %s [%s]%s", cursor, id, name, loadedStateLabel(it.model.IsLoaded), marker)
}

type pickerModel struct {
	list     list.Model
	keys     pickerKeyMap
	choice   string
	quitting bool
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Confirm):
			if item, ok := m.list.SelectedItem().(pickerItem); ok {
				m.choice = item.model.ID
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	return m.list.View()
}

// pickModel opens a full-screen list over the candidates and returns the
// chosen model id. Cancelling the picker is an error so callers abort the
// pending action.
func pickModel(title string, candidates []core.Model) (string, error) {
	items := make([]list.Item, len(candidates))
	for i, m := range candidates {
		items[i] = pickerItem{model: m}
	}

	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		width, height = 80, 24
	}

	keys := newPickerKeyMap()
	l := list.New(items, pickerDelegate{}, width, height-2)
	l.Title = title
	l.Styles.Title = pickerTitle
	l.SetShowStatusBar(false)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Confirm, keys.Quit}
	}

	p := tea.NewProgram(pickerModel{list: l, keys: keys}, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("model picker failed: %w", err)
	}

	result, ok := final.(pickerModel)
	if !ok || result.quitting || result.choice == "" {
		return "", fmt.Errorf("no model selected")
	}
	return result.choice, nil
}
