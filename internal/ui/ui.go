package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/subfeed/internal/formatter"
	"github.com/desertthunder/subfeed/internal/models"
	"github.com/desertthunder/subfeed/internal/shared"
	"github.com/desertthunder/subfeed/internal/views"
)

// Session is the part of the session manager the TUI drives.
type Session interface {
	Init(ctx context.Context) error
	Snapshot() models.Session
	Logout() error
}

// Feed is the part of the feed synchronizer the TUI drives.
type Feed interface {
	LoadChannels(ctx context.Context) error
	LoadVideos(ctx context.Context) error
	Refresh(ctx context.Context) error
	Snapshot() models.SyncState
}

// LoginFunc runs the browser sign-in and returns once the session is authenticated.
type LoginFunc func(ctx context.Context) (*models.UserProfile, error)

// Tab is a dashboard tab.
type Tab int

const (
	VideosTab Tab = iota
	ChannelsTab
)

// Opts carries the [Model] dependencies.
type Opts struct {
	Session Session
	Feed    Feed
	Login   LoginFunc
	Open    shared.Opener
	// Now defaults to [time.Now]; relative publish times are computed against it.
	Now func() time.Time
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	session     Session
	feed        Feed
	login       LoginFunc
	open        shared.Opener
	now         func() time.Time
	view        views.View
	tab         Tab
	width       int
	height      int
	videoList   list.Model
	channelList list.Model
	spinner     spinner.Model
	loggingIn   bool
	status      string
	err         error
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Opts) *Model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	open := opts.Open
	if open == nil {
		open = shared.OpenBrowser
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.title.UnsetMarginBottom()

	return &Model{
		ctx:         ctx,
		session:     opts.Session,
		feed:        opts.Feed,
		login:       opts.Login,
		open:        open,
		now:         now,
		view:        views.ViewLoading,
		videoList:   newList("Latest Videos"),
		channelList: newList("Subscriptions"),
		spinner:     s,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init starts the spinner and verifies the stored session.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.initSession())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.videoList.SetSize(msg.Width-4, msg.Height-8)
		m.channelList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		switch m.view {
		case views.ViewLogin:
			return m.handleLoginKeys(msg)
		case views.ViewDashboard:
			return m.handleDashboardKeys(msg)
		}
		return m, nil

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSessionSettled:
		m.err = msg.Err()
		return m, m.settle()

	case MsgLoginComplete:
		m.loggingIn = false
		if err := msg.Err(); err != nil {
			m.err = err
			return m, m.settle()
		}
		m.err = nil
		if r, ok := msg.data.(loginResult); ok && r.user != nil {
			m.status = fmt.Sprintf("Signed in as %s", r.user.DisplayName)
		}
		return m, m.settle()

	case MsgChannelsLoaded, MsgVideosLoaded:
		m.syncLists()
		m.noteError(msg.Err())
		m.view = views.Select(m.session.Snapshot(), nil)
		return m, nil

	case MsgRefreshed:
		m.syncLists()
		err := msg.Err()
		switch {
		case errors.Is(err, shared.ErrRefreshInProgress):
			m.status = "Refresh already running"
		case err != nil:
			m.noteError(err)
		default:
			m.err = nil
			m.status = fmt.Sprintf("Refreshed at %s", m.now().Format(time.Kitchen))
		}
		m.view = views.Select(m.session.Snapshot(), nil)
		return m, nil

	case MsgOpened:
		if err := msg.Err(); err != nil {
			m.err = err
		}
		return m, nil

	case MsgLoggedOut:
		m.err = msg.Err()
		m.status = "Signed out"
		m.tab = VideosTab
		m.syncLists()
		m.view = views.Select(m.session.Snapshot(), nil)
		return m, nil
	}
	return m, nil
}

// settle re-reads the session and, on reaching the dashboard, loads the feed.
func (m *Model) settle() tea.Cmd {
	m.view = views.Select(m.session.Snapshot(), nil)
	if m.view == views.ViewDashboard {
		return tea.Batch(m.loadChannels(), m.loadVideos())
	}
	return nil
}

// noteError records err unless it is a precondition failure caused by a logout racing the call.
func (m *Model) noteError(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, shared.ErrUnauthorized) {
		m.err = fmt.Errorf("your session expired, sign in again: %w", err)
		return
	}
	if errors.Is(err, shared.ErrPrecondition) {
		return
	}
	m.err = err
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case views.ViewLoading:
		return m.renderLoading()
	case views.ViewLogin:
		return m.renderLogin()
	case views.ViewDashboard:
		return m.renderDashboard()
	default:
		return ""
	}
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.login) && !m.loggingIn && m.login != nil {
		m.loggingIn = true
		m.err = nil
		return m, m.runLogin()
	}
	return m, nil
}

func (m *Model) handleDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.tab):
		if m.tab == VideosTab {
			m.tab = ChannelsTab
		} else {
			m.tab = VideosTab
		}
		return m, nil

	case key.Matches(msg, m.keys.refresh):
		if m.feed.Snapshot().Refreshing {
			return m, nil
		}
		m.status = "Refreshing subscriptions..."
		return m, m.refresh()

	case key.Matches(msg, m.keys.open):
		return m, m.openSelected()

	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	}

	return m.updateLists(msg)
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.view != views.ViewDashboard {
		return m, nil
	}
	switch m.tab {
	case VideosTab:
		m.videoList, cmd = m.videoList.Update(msg)
	case ChannelsTab:
		m.channelList, cmd = m.channelList.Update(msg)
	}
	return m, cmd
}

// syncLists copies the feed snapshot into the list models.
func (m *Model) syncLists() {
	state := m.feed.Snapshot()
	m.videoList.SetItems(videoItems(state.Videos, m.now()))
	m.channelList.SetItems(channelItems(state.Channels))
}

func (m *Model) openSelected() tea.Cmd {
	var target string
	switch m.tab {
	case VideosTab:
		if v, ok := m.videoList.SelectedItem().(videoItem); ok {
			target = formatter.WatchURL(v.video.VideoID)
		}
	case ChannelsTab:
		if c, ok := m.channelList.SelectedItem().(channelItem); ok {
			target = formatter.ChannelURL(c.channel.ChannelID)
		}
	}
	if target == "" {
		return nil
	}

	open := m.open
	return func() tea.Msg {
		if err := open(target); err != nil {
			return openedMsg(fmt.Errorf("could not open %s: %w", target, err))
		}
		return openedMsg(nil)
	}
}

func (m *Model) initSession() tea.Cmd {
	return func() tea.Msg {
		return sessionSettledMsg(m.session.Init(m.ctx))
	}
}

func (m *Model) runLogin() tea.Cmd {
	login := m.login
	return func() tea.Msg {
		user, err := login(m.ctx)
		return loginCompleteMsg(user, err)
	}
}

func (m *Model) loadChannels() tea.Cmd {
	return func() tea.Msg {
		return channelsLoadedMsg(m.feed.LoadChannels(m.ctx))
	}
}

func (m *Model) loadVideos() tea.Cmd {
	return func() tea.Msg {
		return videosLoadedMsg(m.feed.LoadVideos(m.ctx))
	}
}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg(m.feed.Refresh(m.ctx))
	}
}

func (m *Model) logout() tea.Cmd {
	return func() tea.Msg {
		return loggedOutMsg(m.session.Logout())
	}
}

func (m *Model) renderError() string {
	if m.err == nil {
		return ""
	}
	return "\n" + styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
}

func (m *Model) renderLoading() string {
	return fmt.Sprintf("\n %s Checking your session...\n", m.spinner.View())
}

func (m *Model) renderLogin() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("subfeed"))
	b.WriteString("\nYour YouTube subscriptions, newest first.\n\n")

	if m.loggingIn {
		fmt.Fprintf(&b, "%s Waiting for sign-in in your browser...\n", m.spinner.View())
	} else {
		b.WriteString("Sign in with Google to see your subscriptions.\n")
	}
	if m.status != "" {
		b.WriteString(styles.warn.Render(m.status) + "\n")
	}
	b.WriteString(m.renderError())

	helpKeys := []key.Binding{m.keys.login, m.keys.quit}
	if m.loggingIn {
		helpKeys = []key.Binding{m.keys.quit}
	}
	b.WriteString("\n" + m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderTabs() string {
	labels := []struct {
		tab   Tab
		label string
	}{
		{VideosTab, "Videos"},
		{ChannelsTab, "Channels"},
	}

	parts := make([]string, len(labels))
	for i, l := range labels {
		if l.tab == m.tab {
			parts[i] = styles.activeTab.Render(l.label)
		} else {
			parts[i] = styles.tab.Render(l.label)
		}
	}
	return strings.Join(parts, " ")
}

func (m *Model) renderDashboard() string {
	var b strings.Builder

	session := m.session.Snapshot()
	state := m.feed.Snapshot()

	name := ""
	if session.User != nil {
		name = session.User.DisplayName
	}
	fmt.Fprintf(&b, "%s  %s\n", styles.title.UnsetMarginBottom().Render("subfeed"), styles.help.Render(name))
	b.WriteString(m.renderTabs() + "\n\n")

	switch m.tab {
	case VideosTab:
		switch {
		case state.LoadingVideos && len(state.Videos) == 0:
			fmt.Fprintf(&b, "%s Loading videos...\n", m.spinner.View())
		case len(state.Videos) == 0:
			b.WriteString("No videos found from your subscriptions.\n")
		default:
			b.WriteString(m.videoList.View() + "\n")
		}
	case ChannelsTab:
		if len(state.Channels) == 0 {
			b.WriteString("No subscriptions found.\n")
		} else {
			b.WriteString(m.channelList.View() + "\n")
		}
	}

	switch {
	case state.Refreshing:
		fmt.Fprintf(&b, "\n%s Refreshing...\n", m.spinner.View())
	case m.status != "":
		b.WriteString("\n" + styles.ok.Render(m.status) + "\n")
	}
	b.WriteString(m.renderError())

	refresh := m.keys.refresh
	refresh.SetEnabled(!state.Refreshing)
	helpKeys := []key.Binding{m.keys.tab, refresh, m.keys.open, m.keys.logout, m.keys.quit}
	b.WriteString("\n" + m.help.ShortHelpView(helpKeys))
	return b.String()
}
