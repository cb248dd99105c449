package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fahmaliyi/passwallet/vault"
)

type viewState int

const (
	stateTable viewState = iota
	stateSearch
	stateShowEntry
	stateAddEntry
	stateConfirmQuit
)

type model struct {
	app        *App
	repo       *vault.Repository
	entries    []vault.Record
	query      string
	cursor     int
	state      viewState
	search     textinput.Model
	textInputs []textinput.Model
	selected   *vault.Record
	revealed   bool
	msg        string
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	msgStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("57")).Foreground(lipgloss.Color("0"))
)

// RunTUI starts the full-screen browser over an unlocked vault.
func (a *App) RunTUI() error {
	m, err := newModel(a)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m).Run()
	return err
}

func newModel(a *App) (model, error) {
	repo, err := a.Store.Records()
	if err != nil {
		return model{}, err
	}
	search := textinput.New()
	search.Placeholder = "site"
	search.Prompt = "/"

	m := model{
		app:        a,
		repo:       repo,
		search:     search,
		textInputs: newAddInputs(),
	}
	m.refresh()
	return m, nil
}

func newAddInputs() []textinput.Model {
	labels := []string{"Site", "Username", "Password", "Notes"}
	inputs := make([]textinput.Model, len(labels))
	for i, l := range labels {
		ti := textinput.New()
		ti.Placeholder = l
		if l == "Password" {
			ti.EchoMode = textinput.EchoPassword
		}
		inputs[i] = ti
	}
	return inputs
}

func (m *model) refresh() {
	if m.query == "" {
		m.entries = m.repo.List()
	} else {
		m.entries = m.repo.SearchBySite(m.query)
	}
	if m.cursor >= len(m.entries) {
		m.cursor = max(len(m.entries)-1, 0)
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateTable:
		return updateTable(m, msg)
	case stateSearch:
		return updateSearch(m, msg)
	case stateShowEntry:
		return updateShowEntry(m, msg)
	case stateAddEntry:
		return updateAddEntry(m, msg)
	case stateConfirmQuit:
		return updateConfirmQuit(m, msg)
	default:
		return m, nil
	}
}

func (m model) View() string {
	switch m.state {
	case stateTable, stateSearch:
		return viewTable(m)
	case stateShowEntry:
		return viewShowEntry(m)
	case stateAddEntry:
		return viewAddEntry(m)
	case stateConfirmQuit:
		return "Unsaved changes. Save before quitting? (y/n, esc to cancel)"
	default:
		return "Unknown state"
	}
}

// --- Table ---
func updateTable(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m.msg = ""
	switch key.String() {
	case "q", "ctrl+c":
		if m.app.Store.Dirty() {
			m.state = stateConfirmQuit
			return m, nil
		}
		return m, tea.Quit
	case "j", "down":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "/":
		m.state = stateSearch
		m.search.SetValue(m.query)
		return m, m.search.Focus()
	case "enter":
		if len(m.entries) > 0 {
			e := m.entries[m.cursor]
			m.selected = &e
			m.revealed = false
			m.state = stateShowEntry
		}
	case "a":
		m.state = stateAddEntry
		for i := range m.textInputs {
			m.textInputs[i].SetValue("")
			m.textInputs[i].Blur()
		}
		return m, m.textInputs[0].Focus()
	case "d":
		if len(m.entries) > 0 {
			if err := m.repo.Remove(m.entries[m.cursor].ID); err != nil {
				m.msg = errStyle.Render(err.Error())
			}
			m.refresh()
		}
	case "c":
		if len(m.entries) > 0 {
			m.msg = copyMessage(m.app, m.entries[m.cursor].Password)
		}
	case "w":
		m.msg = saveMessage(m.app)
	}
	return m, nil
}

func copyMessage(a *App, secret []byte) string {
	if err := a.copySecret(secret); err != nil {
		return errStyle.Render("Copy failed: " + err.Error())
	}
	return msgStyle.Render(fmt.Sprintf("Password copied! (clears in %s)", a.ClipboardClear))
}

func saveMessage(a *App) string {
	if err := a.Store.Save(); err != nil {
		if errors.Is(err, vault.ErrModifiedExternally) {
			return errStyle.Render("Vault file changed on disk; not overwritten.")
		}
		return errStyle.Render("Save failed: " + err.Error())
	}
	return msgStyle.Render("Vault saved.")
}

func viewTable(m model) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Vault Entries") + "\n\n")
	if m.state == stateSearch {
		b.WriteString(m.search.View() + "\n\n")
	} else if m.query != "" {
		b.WriteString(fmt.Sprintf("Filter: %s\n\n", m.query))
	}
	if len(m.entries) == 0 {
		b.WriteString("No entries.\n")
	}
	for i, e := range m.entries {
		line := fmt.Sprintf("%-30s  %-24s  %s", e.SiteName, e.Username, e.CreatedAt.Local().Format("2006-01-02"))
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if m.msg != "" {
		b.WriteString("\n" + m.msg + "\n")
	}
	b.WriteString("\nCommands: j/k=move, /=search, enter=show, a=add, d=delete, c=copy, w=save, q=quit")
	return b.String()
}

// --- Search ---
func updateSearch(m model, msg tea.Msg) (model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			m.query = strings.TrimSpace(m.search.Value())
			m.search.Blur()
			m.state = stateTable
			m.cursor = 0
			m.refresh()
			return m, nil
		case "esc":
			m.search.Blur()
			m.state = stateTable
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// --- Show Entry ---
func updateShowEntry(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "esc", "q":
		m.state = stateTable
		m.selected = nil
		m.revealed = false
	case "v":
		m.revealed = !m.revealed
	case "c":
		m.msg = copyMessage(m.app, m.selected.Password)
	}
	return m, nil
}

func viewShowEntry(m model) string {
	e := m.selected
	secret := mask(e.Password)
	if m.revealed {
		secret = string(e.Password)
	}
	s := fmt.Sprintf("Site: %s\nUsername: %s\nPassword: %s\nNotes: %s\nCreated: %s\nUpdated: %s\n",
		e.SiteName, e.Username, secret, e.Notes,
		e.CreatedAt.Local().Format("2006-01-02 15:04"), e.UpdatedAt.Local().Format("2006-01-02 15:04"))
	if m.msg != "" {
		s += "\n" + m.msg + "\n"
	}
	s += "\nPress 'v' to reveal/hide, 'c' to copy, Esc to return"
	return s
}

// --- Add Entry ---
func updateAddEntry(m model, msg tea.Msg) (model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.state = stateTable
			return m, nil
		case "tab", "shift+tab", "down", "up":
			backward := key.String() == "shift+tab" || key.String() == "up"
			return m, m.focusNext(backward)
		case "enter":
			if m.textInputs[len(m.textInputs)-1].Focused() {
				return saveAddEntry(m), nil
			}
			return m, m.focusNext(false)
		}
	}

	var cmds []tea.Cmd
	for i := range m.textInputs {
		if m.textInputs[i].Focused() {
			var cmd tea.Cmd
			m.textInputs[i], cmd = m.textInputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *model) focusNext(backward bool) tea.Cmd {
	n := len(m.textInputs)
	for i := 0; i < n; i++ {
		if m.textInputs[i].Focused() {
			m.textInputs[i].Blur()
			if backward {
				return m.textInputs[(i-1+n)%n].Focus()
			}
			return m.textInputs[(i+1)%n].Focus()
		}
	}
	return m.textInputs[0].Focus()
}

// saveAddEntry adds the form contents to the repository. Persisting is
// left to 'w' like every other change.
func saveAddEntry(m model) model {
	_, err := m.repo.Add(vault.Record{
		SiteName: m.textInputs[0].Value(),
		Username: m.textInputs[1].Value(),
		Password: []byte(m.textInputs[2].Value()),
		Notes:    m.textInputs[3].Value(),
	})
	if err != nil {
		m.msg = errStyle.Render(err.Error())
		return m
	}
	for i := range m.textInputs {
		m.textInputs[i].SetValue("")
		m.textInputs[i].Blur()
	}
	m.state = stateTable
	m.msg = msgStyle.Render("Entry added. Press 'w' to save.")
	m.refresh()
	return m
}

func viewAddEntry(m model) string {
	s := titleStyle.Render("Add New Entry") + "\n\n"
	for _, ti := range m.textInputs {
		s += fmt.Sprintf("%s: %s\n", ti.Placeholder, ti.View())
	}
	if m.msg != "" {
		s += "\n" + m.msg + "\n"
	}
	s += "\nTab to move, Enter on the last field to add, Esc to cancel"
	return s
}

// --- Quit ---
func updateConfirmQuit(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y":
		if err := m.app.Store.Save(); err != nil {
			m.state = stateTable
			m.msg = errStyle.Render("Save failed: " + err.Error())
			return m, nil
		}
		return m, tea.Quit
	case "n":
		return m, tea.Quit
	case "esc":
		m.state = stateTable
	}
	return m, nil
}
