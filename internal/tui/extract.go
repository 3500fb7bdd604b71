package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"logdex/internal/extract"
)

// ExtractRunner performs the extraction, reporting per-file progress.
type ExtractRunner func(onProgress extract.ProgressFunc) (*extract.Result, error)

// programRef is an indirect pointer to the tea.Program so the extraction
// goroutine can send messages. It must be set after tea.NewProgram returns
// but before Run.
type programRef struct {
	p *tea.Program
}

type extractDoneMsg struct {
	result *extract.Result
	err    error
}

type extractProgressMsg struct {
	processed int
	path      string
}

type extractModel struct {
	spinner   spinner.Model
	root      string
	processed int
	current   string
	done      bool
	result    *extract.Result
	err       error
}

func newExtractModel(root string) extractModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return extractModel{spinner: sp, root: root}
}

func (m extractModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m extractModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	case extractDoneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	case extractProgressMsg:
		m.processed = msg.processed
		m.current = msg.path
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m extractModel) View() string {
	s := "\n"
	s += titleStyle.Render("  Extracting") + "\n\n"

	if m.done {
		if m.err != nil {
			s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n"
			return s
		}
		s += successStyle.Render("  ✓ Extraction complete") + "\n\n"
		if m.result != nil {
			s += fmt.Sprintf("  Files: %d processed, %d skipped\n",
				m.result.Stats.FilesProcessed, m.result.Stats.FilesFailed)
			s += fmt.Sprintf("  Functions: %d\n", m.result.Stats.FunctionsFound)
			s += fmt.Sprintf("  Error messages: %d\n", m.result.Stats.ErrorsFound)
			if len(m.result.Skips) > 0 {
				s += "\n" + warnStyle.Render(fmt.Sprintf("  %d files skipped, see the output for details", len(m.result.Skips))) + "\n"
			}
		}
		return s
	}

	s += fmt.Sprintf("  %s Scanning %s\n", m.spinner.View(), m.root)
	s += fmt.Sprintf("  %d files processed\n", m.processed)
	if m.current != "" {
		s += dimStyle.Render("  "+m.current) + "\n"
	}
	s += "\n"
	s += dimStyle.Render("  Press q to abort") + "\n"
	return s
}

// RunExtract drives run under a progress display and returns its result.
func RunExtract(root string, run ExtractRunner) (*extract.Result, error) {
	ref := &programRef{}
	p := tea.NewProgram(newExtractModel(root))
	ref.p = p

	go func() {
		result, err := run(func(processed int, path string) {
			ref.p.Send(extractProgressMsg{processed: processed, path: path})
		})
		ref.p.Send(extractDoneMsg{result: result, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(extractModel)
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return nil, fmt.Errorf("extraction aborted")
	}
	return m.result, nil
}
