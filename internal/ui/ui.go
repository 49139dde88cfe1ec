package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"upcwatch/internal/models"
	"upcwatch/internal/repositories"
	"upcwatch/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	HitListView ViewState = iota
	HitDetailView
	QueueListView
)

// dataLoadedMsg carries a fresh snapshot of the stored hits and queue.
type dataLoadedMsg struct {
	hits    []*models.Hit
	entries []*models.QueueEntry
	err     error
}

// Model represents the TUI application state.
type Model struct {
	view        ViewState
	hits        *repositories.HitRepository
	queue       *repositories.QueueRepository
	width       int
	height      int
	hitList     list.Model
	queueList   list.Model
	selectedHit *models.Hit
	err         error
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model over the hit and queue stores.
//
// Both lists are initialized up front: the first WindowSizeMsg arrives before
// the stores have been read, and resizing a zero-value list panics.
func NewModel(hits *repositories.HitRepository, queue *repositories.QueueRepository) *Model {
	hitList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	hitList.Title = "Найденные плейлисты"

	queueList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	queueList.Title = "Очередь проверок"

	return &Model{
		view:      HitListView,
		hits:      hits,
		queue:     queue,
		hitList:   hitList,
		queueList: queueList,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init loads the stored hits and queue.
func (m *Model) Init() tea.Cmd {
	return m.loadData()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.hitList.SetSize(msg.Width-4, msg.Height-8)
		m.queueList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case HitListView:
			return m.handleHitListKeys(msg)
		case HitDetailView:
			return m.handleDetailKeys(msg)
		case QueueListView:
			return m.handleQueueKeys(msg)
		}

	case dataLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}

		hitItems := make([]list.Item, len(msg.hits))
		for i, hit := range msg.hits {
			hitItems[i] = hitItem{hit: hit}
		}
		m.hitList.SetItems(hitItems)

		queueItems := make([]list.Item, len(msg.entries))
		for i, entry := range msg.entries {
			queueItems[i] = queueItem{entry: entry}
		}
		m.queueList.SetItems(queueItems)
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case HitListView:
		return m.renderHitList()
	case HitDetailView:
		return m.renderDetail()
	case QueueListView:
		return m.renderQueue()
	default:
		return ""
	}
}

func (m *Model) handleHitListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.view = QueueListView
		return m, nil
	case "r":
		return m, m.loadData()
	case "enter":
		if selected := m.hitList.SelectedItem(); selected != nil {
			if item, ok := selected.(hitItem); ok {
				m.selectedHit = item.hit
				m.view = HitDetailView
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.hitList, cmd = m.hitList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "enter":
		m.view = HitListView
		m.selectedHit = nil
	}
	return m, nil
}

func (m *Model) handleQueueKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab", "esc":
		m.view = HitListView
		return m, nil
	case "r":
		return m, m.loadData()
	}

	var cmd tea.Cmd
	m.queueList, cmd = m.queueList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case HitListView:
		m.hitList, cmd = m.hitList.Update(msg)
	case QueueListView:
		m.queueList, cmd = m.queueList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadData() tea.Cmd {
	return func() tea.Msg {
		hits, err := m.hits.List()
		if err != nil {
			return dataLoadedMsg{err: err}
		}
		entries, err := m.queue.List()
		if err != nil {
			return dataLoadedMsg{err: err}
		}
		return dataLoadedMsg{hits: hits, entries: entries}
	}
}

func (m *Model) renderHitList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.tab, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.hitList.View(), helpView)
}

func (m *Model) renderDetail() string {
	if m.selectedHit == nil {
		m.view = HitListView
		return m.renderHitList()
	}

	hit := m.selectedHit
	title := styles.title.Render(fmt.Sprintf("%s - %s", hit.Artist, hit.ReleaseTitle))
	meta := fmt.Sprintf("UPC: %s\nРелиз: %s\n%s\n", hit.UPC, shared.FormatDate(hit.ReleaseDate), hit.WeekLabel)

	lines := ""
	for _, line := range hit.Playlists {
		lines += fmt.Sprintf("%s\n", styles.ok.Render(line))
	}

	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s\n%s", title, meta, lines, helpView)
}

func (m *Model) renderQueue() string {
	helpKeys := []key.Binding{m.keys.tab, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.queueList.View(), helpView)
}
