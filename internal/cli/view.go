package cli

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/codecity/pkg/analysis"
	"github.com/matzehuels/codecity/pkg/city/view"
	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
	"github.com/matzehuels/codecity/pkg/pipeline"
)

// viewCommand creates the interactive city viewer.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		src      sourceFlags
		lf       layoutFlags
		watch    bool
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "view [path]",
		Short: "Explore the city interactively in the terminal",
		Long: `Explore the city in the terminal. Hover a building with the mouse to see
its measurements, click a repository to open its directories.

Without a path or --github/--scan/--input the saved repositories are used.
With --watch, local repositories are re-analyzed when their files change.`,
		Example: `  codecity view
  codecity view ~/src/app --view dirs --watch
  codecity view --scan ~/src --view city`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runView(cmd.Context(), &src, &lf, args, watch, debounce)
		},
	}

	src.register(cmd)
	lf.register(cmd)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-analyze local repositories when files change")
	cmd.Flags().DurationVar(&debounce, "debounce", analysis.DefaultDebounce, "quiet period before re-analyzing")

	return cmd
}

func (c *CLI) runView(ctx context.Context, src *sourceFlags, lf *layoutFlags, args []string, watch bool, debounce time.Duration) error {
	v, err := view.ParseView(lf.view)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, src.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	repos, _, err := c.loadRepositories(ctx, runner, st, src, args)
	if err != nil {
		return err
	}

	scene := newTermScene()
	ctrl := view.NewController(scene,
		view.WithLogger(c.Logger),
		view.WithConfig(c.config().Layout.View()),
	)
	ctrl.SetRepositories(ctx, repos)

	m := newViewModel(ctx, ctrl, scene)
	if v != view.Repositories {
		focus, err := pipeline.ResolveFocus(repos, v, lf.focus)
		if err != nil {
			return err
		}
		m.show(v, focus)
	}

	if watch {
		roots := localRoots(repos)
		if len(roots) == 0 {
			return errors.New(errors.ErrCodeInvalidInput, "--watch needs at least one local repository")
		}
		if missing := len(repos) - len(roots); missing > 0 {
			printWarning("%d %s not on disk and will not be watched", missing, plural(missing, "repository is", "repositories are"))
		}
		w, err := runner.Analyzer.NewWatcher(debounce, roots...)
		if err != nil {
			return err
		}
		defer w.Close()

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		m.changes = w.Watch(watchCtx)
		m.reanalyze = func(ctx context.Context, root string) (metrics.Repository, error) {
			opts := c.pipelineOptions()
			opts.Path = root
			// HEAD does not move for uncommitted edits, so skip the cache.
			opts.Refresh = true
			repos, _, err := runner.AnalyzeWithCacheInfo(ctx, opts)
			if err != nil {
				return metrics.Repository{}, err
			}
			if err := st.Put(ctx, repos[0]); err != nil {
				return metrics.Repository{}, err
			}
			return repos[0], nil
		}
		c.Logger.Info("watching", "repositories", len(roots))
	}

	// Log lines would tear the alternate screen.
	c.Logger.SetOutput(io.Discard)
	defer c.Logger.SetOutput(c.out)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return ctx.Err()
}

// localRoots returns the paths of repositories that exist on disk.
func localRoots(repos []metrics.Repository) []string {
	var roots []string
	for _, r := range repos {
		if info, err := os.Stat(r.Path); err == nil && info.IsDir() {
			roots = append(roots, r.Path)
		}
	}
	return roots
}

// =============================================================================
// Key Bindings
// =============================================================================

type viewKeys struct {
	Repos key.Binding
	Dirs  key.Binding
	City  key.Binding
	Next  key.Binding
	Prev  key.Binding
	Open  key.Binding
	Clear key.Binding
	Back  key.Binding
	Help  key.Binding
	Quit  key.Binding
}

func defaultViewKeys() viewKeys {
	return viewKeys{
		Repos: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "repositories")),
		Dirs:  key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "directories")),
		City:  key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "city")),
		Next:  key.NewBinding(key.WithKeys("tab", "n"), key.WithHelp("tab/n", "next building")),
		Prev:  key.NewBinding(key.WithKeys("shift+tab", "p"), key.WithHelp("shift+tab/p", "previous building")),
		Open:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open highlighted")),
		Clear: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear highlight")),
		Back:  key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
		Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k viewKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Repos, k.Dirs, k.City, k.Next, k.Help, k.Quit}
}

func (k viewKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Repos, k.Dirs, k.City},
		{k.Next, k.Prev, k.Open, k.Clear},
		{k.Back, k.Help, k.Quit},
	}
}

// =============================================================================
// viewModel - the bubbletea program
// =============================================================================

// headerRows is the title line plus a spacer above the plan.
const headerRows = 2

type (
	changeMsg      analysis.Change
	watchClosedMsg struct{}
	reanalyzedMsg  struct {
		root string
		repo metrics.Repository
		err  error
	}
)

type viewModel struct {
	ctx   context.Context
	ctrl  *view.Controller
	scene *termScene

	keys    viewKeys
	help    help.Model
	spinner spinner.Model

	width, height int
	pointerCol    int
	pointerRow    int
	hover         *metrics.Record

	status    string
	statusErr bool
	busy      int

	changes   <-chan analysis.Change
	reanalyze func(ctx context.Context, root string) (metrics.Repository, error)
}

func newViewModel(ctx context.Context, ctrl *view.Controller, scene *termScene) *viewModel {
	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(styleIconSpinner))
	return &viewModel{
		ctx:     ctx,
		ctrl:    ctrl,
		scene:   scene,
		keys:    defaultViewKeys(),
		help:    help.New(),
		spinner: sp,
	}
}

func (m *viewModel) Init() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	return waitForChange(m.changes)
}

func waitForChange(ch <-chan analysis.Change) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return watchClosedMsg{}
		}
		return changeMsg(c)
	}
}

func (m *viewModel) reanalyzeCmd(root string) tea.Cmd {
	return func() tea.Msg {
		repo, err := m.reanalyze(m.ctx, root)
		return reanalyzedMsg{root: root, repo: repo, err: err}
	}
}

func (m *viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case changeMsg:
		m.busy++
		m.setStatus(false, "re-analyzing %s", shortPath(msg.Root))
		cmds := []tea.Cmd{m.reanalyzeCmd(msg.Root), waitForChange(m.changes)}
		if m.busy == 1 {
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case reanalyzedMsg:
		m.busy--
		if msg.err != nil {
			m.setStatus(true, "%s: %v", shortPath(msg.root), msg.err)
			return m, nil
		}
		m.ctrl.SetRepositories(m.ctx, metrics.Upsert(m.ctrl.Repositories(), msg.repo))
		m.hover = nil
		m.setStatus(false, "updated %s · %s lines", msg.repo.Name, metrics.FormatLinesExact(msg.repo.TotalLines))
		return m, nil

	case watchClosedMsg:
		m.changes = nil
		return m, nil

	case spinner.TickMsg:
		if m.busy == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *viewModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Repos):
		m.show(view.Repositories, "")
	case key.Matches(msg, m.keys.Dirs):
		m.show(view.Directories, m.focusCandidate())
	case key.Matches(msg, m.keys.City):
		m.show(view.City, "")
	case key.Matches(msg, m.keys.Next):
		m.cycle(1)
	case key.Matches(msg, m.keys.Prev):
		m.cycle(-1)
	case key.Matches(msg, m.keys.Clear):
		m.ctrl.Highlight("")
	case key.Matches(msg, m.keys.Open):
		if v, _ := m.ctrl.Current(); v == view.Repositories && m.ctrl.Highlighted() != "" {
			m.show(view.Directories, m.ctrl.Highlighted())
		}
	case key.Matches(msg, m.keys.Back):
		if v, _ := m.ctrl.Current(); v != view.Repositories {
			m.show(view.Repositories, "")
		}
	}
	return nil
}

// planSize is the number of cells available for the plan, below the header
// and above the status line and help.
func (m *viewModel) planSize() (int, int) {
	footer := 1 + lipgloss.Height(m.help.View(m.keys))
	return m.width, max(0, m.height-headerRows-footer)
}

func (m *viewModel) handleMouse(msg tea.MouseMsg) {
	cols, rows := m.planSize()
	col, row := msg.X, msg.Y-headerRows
	inside := col >= 0 && col < cols && row >= 0 && row < rows
	m.pointerCol, m.pointerRow = col, row

	ray := missRay
	if inside {
		ray = m.scene.ray(col, row, m.ctrl.Buildings())
	}
	tr := m.ctrl.Move(ray, float64(col*cellPixelsX), float64(row*cellPixelsY))
	if tr.Hover != nil {
		m.hover = tr.Hover.Record
	}

	if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && inside {
		_, out := m.ctrl.Click(m.ctx)
		if out != nil {
			m.reportOutcome(*out)
		}
	}
}

// show switches views and reports the outcome in the status line.
func (m *viewModel) show(v view.View, focus string) {
	m.reportOutcome(m.ctrl.Show(m.ctx, v, focus))
}

func (m *viewModel) reportOutcome(out view.Outcome) {
	m.hover = nil
	if out.Empty {
		m.setStatus(true, "nothing to show in the %s view", out.Requested)
		return
	}
	if out.Blocks > 0 {
		m.setStatus(false, "%d buildings in %d blocks", out.Buildings, out.Blocks)
		return
	}
	m.setStatus(false, "%d buildings", out.Buildings)
}

func (m *viewModel) setStatus(isErr bool, format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.statusErr = isErr
}

// focusCandidate picks the repository to open in the dirs view: the one
// under the pointer, then the highlighted one, then the current focus.
func (m *viewModel) focusCandidate() string {
	owner := func(r metrics.Record) string { return cmp.Or(r.OwnerID, r.ID) }
	if m.hover != nil {
		return owner(*m.hover)
	}
	if id := m.ctrl.Highlighted(); id != "" {
		if b, ok := m.ctrl.Snapshot().Building(id); ok {
			return owner(b.Record)
		}
	}
	if _, focus := m.ctrl.Current(); focus != "" {
		return focus
	}
	if repos := m.ctrl.Repositories(); len(repos) > 0 {
		return repos[0].ID
	}
	return ""
}

// cycle moves the highlight through the buildings, largest first.
func (m *viewModel) cycle(step int) {
	buildings := m.ctrl.Buildings()
	if len(buildings) == 0 {
		return
	}
	records := make([]metrics.Record, 0, len(buildings))
	for _, b := range buildings {
		records = append(records, b.Record)
	}
	metrics.SortByLines(records)

	i := slices.IndexFunc(records, func(r metrics.Record) bool { return r.ID == m.ctrl.Highlighted() })
	switch {
	case i < 0 && step < 0:
		i = len(records) - 1
	case i < 0:
		i = 0
	default:
		i = (i + step + len(records)) % len(records)
	}
	r := records[i]
	m.ctrl.Highlight(r.ID)
	m.setStatus(false, "%s", metrics.Summary(r))
}

func (m *viewModel) View() string {
	if m.width == 0 {
		return ""
	}
	cols, rows := m.planSize()

	var tip *tooltipBox
	if m.hover != nil {
		tip = tooltipFor(*m.hover, m.pointerCol, m.pointerRow, cols, rows)
	}
	plan := m.scene.render(cols, rows, tip)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		"",
		plan,
		m.statusView(),
		m.help.View(m.keys),
	)
}

func (m *viewModel) headerView() string {
	v, focus := m.ctrl.Current()
	title := StyleTitle.Render(appName) + StyleDim.Render(" · ") + StyleHighlight.Render(viewTitle(v))
	if focus != "" {
		if r, ok := metrics.Find(m.ctrl.Repositories(), focus); ok {
			title += StyleDim.Render(" · ") + StyleValue.Render(r.Name)
		}
	}
	if m.changes != nil {
		title += StyleDim.Render(" · watching")
	}
	return title
}

func (m *viewModel) statusView() string {
	prefix := ""
	if m.busy > 0 {
		prefix = m.spinner.View() + " "
	}
	switch {
	case m.hover != nil:
		return prefix + StyleValue.Render(metrics.Summary(*m.hover))
	case m.statusErr:
		return prefix + StyleWarning.Render(m.status)
	default:
		return prefix + StyleDim.Render(m.status)
	}
}

func viewTitle(v view.View) string {
	switch v {
	case view.Directories:
		return "directories"
	case view.City:
		return "city"
	default:
		return "repositories"
	}
}

func shortPath(p string) string {
	if home, err := os.UserHomeDir(); err == nil && len(p) > len(home) && p[:len(home)] == home {
		return "~" + p[len(home):]
	}
	return p
}
