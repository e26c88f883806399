package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/auralabs/moodmix/internal/models"
	"github.com/auralabs/moodmix/internal/moods"
	"github.com/auralabs/moodmix/internal/tasks"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	MoodListView ViewState = iota
	ConfirmView
	GenerateView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       tasks.Generator
	userID       string
	request      models.GenerationRequest
	width        int
	height       int
	moodList     list.Model
	spin         spinner.Model
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	result       *models.GenerationResult
	err          error
	help         help.Model
	keys         keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	up    key.Binding
	down  key.Binding
	enter key.Binding
	back  key.Binding
	yes   key.Binding
	no    key.Binding
	quit  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		yes: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "yes"),
		),
		no: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "no"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.back, k.yes, k.no, k.quit},
	}
}

// moodItem wraps a mood name and its [moods.Profile] to implement list.Item.
type moodItem struct {
	name    string
	profile moods.Profile
}

func (i moodItem) FilterValue() string { return i.name }
func (i moodItem) Title() string       { return i.name }
func (i moodItem) Description() string {
	parts := []string{}
	if i.profile.Valence > 0 {
		parts = append(parts, fmt.Sprintf("valence %.1f", i.profile.Valence))
	}
	if i.profile.Energy > 0 {
		parts = append(parts, fmt.Sprintf("energy %.1f", i.profile.Energy))
	}
	if i.profile.Danceability > 0 {
		parts = append(parts, fmt.Sprintf("danceability %.1f", i.profile.Danceability))
	}
	if i.profile.Tempo > 0 {
		parts = append(parts, fmt.Sprintf("tempo %.0f", i.profile.Tempo))
	}
	return strings.Join(parts, " • ")
}

type progressUpdateMsg tasks.ProgressUpdate

type generateCompleteMsg struct {
	result *models.GenerationResult
	err    error
}

// NewModel creates a new TUI model with the provided dependencies.
//
// When the request already names a mood, the model starts at [ConfirmView];
// otherwise the mood picker is shown first.
func NewModel(ctx context.Context, engine tasks.Generator, userID string, request models.GenerationRequest) *Model {
	view := MoodListView
	if request.Mood != "" {
		view = ConfirmView
	}

	items := make([]list.Item, 0)
	for _, name := range moods.Names() {
		profile, _ := moods.Parameters(name)
		items = append(items, moodItem{name: name, profile: profile})
	}
	moodList := list.New(items, list.NewDefaultDelegate(), 0, 0)
	moodList.Title = "Pick a mood"

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styles.ok

	return &Model{
		ctx:      ctx,
		view:     view,
		engine:   engine,
		userID:   userID,
		request:  request,
		moodList: moodList,
		spin:     spin,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts the spinner tick loop.
func (m *Model) Init() tea.Cmd {
	return m.spin.Tick
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.moodList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case MoodListView:
			return m.handleMoodListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		case GenerateView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case generateCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	var cmd tea.Cmd
	if m.view == MoodListView {
		m.moodList, cmd = m.moodList.Update(msg)
	}
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case MoodListView:
		return m.renderMoodList()
	case ConfirmView:
		return m.renderConfirm()
	case GenerateView:
		return m.renderGenerate()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// Result returns the generation result once the workflow has completed.
func (m *Model) Result() (*models.GenerationResult, error) {
	return m.result, m.err
}

func (m *Model) handleMoodListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		selected := m.moodList.SelectedItem()
		if selected != nil {
			if item, ok := selected.(moodItem); ok {
				m.request.Mood = item.name
				m.view = ConfirmView
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.moodList, cmd = m.moodList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "n", "esc":
		m.view = MoodListView
		return m, nil
	case "y", "enter":
		m.view = GenerateView
		return m, tea.Batch(m.startGenerate(), m.spin.Tick)
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "enter", "esc":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) startGenerate() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	go func() {
		result, err := m.engine.Generate(m.ctx, m.progressChan, m.userID, m.request)
		m.result = result
		m.err = err
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return generateCompleteMsg{result: m.result, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return generateCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderMoodList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.moodList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Generate a %s %s playlist?", m.request.Mood, m.request.Genre))
	info := fmt.Sprintf("\nArtists: %s\nGenre: %s\nMood: %s\n",
		strings.Join(m.request.ArtistNames, ", "), m.request.Genre, m.request.Mood)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderGenerate() string {
	title := styles.title.Render("Generating Playlist")

	var phase string
	switch m.progress.Phase {
	case tasks.ResolveArtists:
		phase = fmt.Sprintf("Resolving artists (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.FetchTopTracks:
		phase = "Fetching top tracks..."
	case tasks.FetchFeatures:
		phase = "Analyzing audio features..."
	case tasks.FetchRecommendations:
		phase = "Fetching recommendations..."
	case tasks.CreatePlaylist:
		phase = "Creating playlist..."
	case tasks.AddTracks:
		phase = "Adding tracks..."
	default:
		phase = "Working..."
	}

	return fmt.Sprintf("%s\n\n%s %s\n%s", title, m.spin.View(), phase, styles.help.Render(m.progress.Message))
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Generation failed: %v\n\nPress q to quit", m.err))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress q to quit")
	}

	title := styles.ok.Render("✓ Playlist Created!")
	info := fmt.Sprintf(
		"\nName: %s\nTracks: %d\nURL: %s",
		m.result.Playlist.Name,
		len(m.result.Tracks),
		m.result.Playlist.ExternalURL,
	)

	var dropped string
	if len(m.result.DroppedArtists) > 0 {
		dropped = fmt.Sprintf("\n\n%s", styles.warn.Render(fmt.Sprintf("Could not resolve %d artists:", len(m.result.DroppedArtists))))
		for _, name := range m.result.DroppedArtists {
			dropped += fmt.Sprintf("\n  • %s", name)
		}
	}

	helpKeys := []key.Binding{m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, dropped, helpView)
}
