package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/offbeatlabs/stepsync/internal/lifecycle"
	"github.com/offbeatlabs/stepsync/internal/models"
	"github.com/offbeatlabs/stepsync/internal/services"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	OwnerListView ViewState = iota
	StatusView
	UploadView
	ConfirmDeleteView
	ProgressView
	ResultView
)

// ModelOpts contains the dependencies for creating a [Model].
type ModelOpts struct {
	Records   services.RecordStore
	Gateway   services.AssetGateway
	Transport services.UploadTransport
	Journal   lifecycle.Journal
	Policy    lifecycle.Policy
	Logger    *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx  context.Context
	view ViewState
	opts ModelOpts

	width  int
	height int

	ownerList list.Model
	owners    []services.Entity
	selected  *services.Entity

	machine   *lifecycle.Machine
	status    lifecycle.Update
	state     models.State
	ref       models.MediaReference
	fileInput textinput.Model

	result models.State
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts ModelOpts) *Model {
	input := textinput.New()
	input.Placeholder = "path/to/video.mp4"

	return &Model{
		ctx:       ctx,
		view:      OwnerListView,
		opts:      opts,
		fileInput: input,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init initializes the TUI by fetching owner records from the backend.
func (m *Model) Init() tea.Cmd {
	return m.fetchOwners()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.ownerList.Width() == 0 {
			m.ownerList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case OwnerListView:
			return m.handleOwnerListKeys(msg)
		case StatusView:
			return m.handleStatusKeys(msg)
		case UploadView:
			return m.handleUploadKeys(msg)
		case ConfirmDeleteView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgOwnersFetched:
		data := msg.data.(struct {
			owners []services.Entity
			err    error
		})
		if data.err != nil {
			m.err = data.err
			return m, tea.Quit
		}
		m.owners = data.owners
		items := make([]list.Item, len(data.owners))
		for i, entity := range data.owners {
			items[i] = ownerItem{entity: entity}
		}
		m.ownerList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.ownerList.Title = "Lessons & Courses"
		m.ownerList.SetSize(m.width-4, m.height-8)
		return m, nil

	case MsgStatusReconciled:
		data := msg.data.(struct {
			state models.State
			ref   models.MediaReference
			err   error
		})
		if data.err != nil {
			m.err = data.err
			m.view = OwnerListView
			return m, nil
		}
		m.state = data.state
		m.ref = data.ref
		m.view = StatusView
		return m, nil

	case MsgMachineUpdate:
		m.status = msg.data.(lifecycle.Update)
		if m.view == ProgressView {
			return m, m.waitForUpdate()
		}
		return m, nil

	case MsgOperationDone:
		data := msg.data.(struct {
			state models.State
			err   error
		})
		m.result = data.state
		m.err = data.err
		m.view = ResultView
		return m, nil
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case OwnerListView:
		return m.renderOwnerList()
	case StatusView:
		return m.renderStatus()
	case UploadView:
		return m.renderUpload()
	case ConfirmDeleteView:
		return m.renderConfirm()
	case ProgressView:
		return m.renderProgress()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleOwnerListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		selected := m.ownerList.SelectedItem()
		if selected != nil {
			if item, ok := selected.(ownerItem); ok {
				return m, m.selectOwner(item.entity)
			}
		}
	}

	var cmd tea.Cmd
	m.ownerList, cmd = m.ownerList.Update(msg)
	return m, cmd
}

func (m *Model) handleStatusKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.closeMachine()
		m.view = OwnerListView
		return m, nil
	case "u":
		if m.state == models.StateIdle || m.state == models.StateError {
			m.fileInput.SetValue("")
			m.fileInput.Focus()
			m.view = UploadView
			return m, textinput.Blink
		}
	case "d":
		if !m.ref.Zero() {
			m.view = ConfirmDeleteView
		}
	case "r":
		return m, m.reconcile()
	}
	return m, nil
}

func (m *Model) handleUploadKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.fileInput.Blur()
		m.view = StatusView
		return m, nil
	case "enter":
		path := m.fileInput.Value()
		if path == "" {
			return m, nil
		}
		m.fileInput.Blur()
		m.status = lifecycle.Update{}
		m.view = ProgressView
		return m, m.startUpload(path)
	}

	var cmd tea.Cmd
	m.fileInput, cmd = m.fileInput.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		m.view = StatusView
		return m, nil
	case "y":
		m.status = lifecycle.Update{}
		m.view = ProgressView
		return m, m.startDelete()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.closeMachine()
		m.selected = nil
		m.err = nil
		m.view = OwnerListView
		return m, m.fetchOwners()
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case OwnerListView:
		m.ownerList, cmd = m.ownerList.Update(msg)
	case UploadView:
		m.fileInput, cmd = m.fileInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchOwners() tea.Cmd {
	return func() tea.Msg {
		lessons, err := m.opts.Records.ListEntities(m.ctx, models.OwnerLesson)
		if err != nil {
			return ownersFetchedMsg(nil, err)
		}
		courses, err := m.opts.Records.ListEntities(m.ctx, models.OwnerCourse)
		if err != nil {
			return ownersFetchedMsg(nil, err)
		}
		return ownersFetchedMsg(append(lessons, courses...), nil)
	}
}

func (m *Model) selectOwner(entity services.Entity) tea.Cmd {
	m.closeMachine()
	m.selected = &entity
	hint := entity.Reference()
	m.machine = lifecycle.NewMachine(lifecycle.MachineOpts{
		Owner:     services.NewOwner(m.opts.Records, entity.Kind, entity.ID),
		Gateway:   m.opts.Gateway,
		Transport: m.opts.Transport,
		Policy:    m.opts.Policy,
		Logger:    m.opts.Logger,
		Journal:   m.opts.Journal,
		Hint:      &hint,
	})
	return m.reconcile()
}

func (m *Model) reconcile() tea.Cmd {
	machine, ctx := m.machine, m.ctx
	return func() tea.Msg {
		ref, err := machine.Reconcile(ctx)
		return statusReconciledMsg(machine.State(), ref, err)
	}
}

func (m *Model) startUpload(path string) tea.Cmd {
	machine, ctx := m.machine, m.ctx
	run := func() tea.Msg {
		if err := machine.SelectFile(ctx, path); err != nil {
			return operationDoneMsg(machine.State(), err)
		}
		state, err := machine.WaitSettled(ctx)
		return operationDoneMsg(state, err)
	}
	return tea.Batch(run, m.waitForUpdate())
}

func (m *Model) startDelete() tea.Cmd {
	machine, ctx := m.machine, m.ctx
	run := func() tea.Msg {
		err := machine.DeleteMedia(ctx)
		return operationDoneMsg(machine.State(), err)
	}
	return tea.Batch(run, m.waitForUpdate())
}

// waitForUpdate bridges one machine event into the Elm loop. The handler
// re-arms it while the progress view is active.
func (m *Model) waitForUpdate() tea.Cmd {
	updates := m.machine.Updates()
	return func() tea.Msg {
		return machineUpdateMsg(<-updates)
	}
}

func (m *Model) closeMachine() {
	if m.machine != nil {
		m.machine.Close()
		m.machine = nil
	}
}

func (m *Model) renderOwnerList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.ownerList.View(), helpView)
}

func (m *Model) renderStatus() string {
	title := styles.title.Render(m.selected.Title)

	var status string
	switch m.state {
	case models.StateLive:
		status = styles.ok.Render(fmt.Sprintf("● Video live (playback %s)", m.ref.PlaybackID))
	case models.StateError:
		status = styles.err.Render("● Error")
	default:
		status = styles.warn.Render("○ No video")
	}

	helpKeys := []key.Binding{m.keys.upload, m.keys.back, m.keys.quit}
	if !m.ref.Zero() {
		helpKeys = []key.Binding{m.keys.upload, m.keys.remove, m.keys.back, m.keys.quit}
	}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s", title, status, helpView)
}

func (m *Model) renderUpload() string {
	title := styles.title.Render(fmt.Sprintf("Upload a video for '%s'", m.selected.Title))

	confirmKey := key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "upload"),
	)
	helpKeys := []key.Binding{confirmKey, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s", title, m.fileInput.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Delete the video attached to '%s'?", m.selected.Title))
	info := styles.warn.Render("The video will be removed from the streaming service and the record.")

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

func (m *Model) renderProgress() string {
	title := styles.title.Render(m.selected.Title)

	var phase string
	switch m.status.Phase {
	case lifecycle.Uploading:
		phase = fmt.Sprintf("Uploading... %d%%", m.status.Progress)
	case lifecycle.Processing, lifecycle.PollCheck:
		phase = "Transcoding in progress..."
	case lifecycle.Deleting, lifecycle.DeleteCheck:
		phase = "Deleting video..."
	default:
		phase = "Working..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, styles.help.Render(m.status.Message))
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Operation failed: %v\n\nPress r to go back, q to quit", m.err))
	}

	var outcome string
	switch m.result {
	case models.StateLive:
		ref := m.machine.Reference()
		outcome = styles.ok.Render(fmt.Sprintf("✓ Video live (playback %s)", ref.PlaybackID))
	case models.StateIdle:
		outcome = styles.ok.Render("✓ Done, no video attached")
	default:
		outcome = styles.err.Render(fmt.Sprintf("✗ %s", m.status.Message))
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n\n%s", outcome, helpView)
}
