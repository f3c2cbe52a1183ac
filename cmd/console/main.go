// Command console is a bubbletea operator dashboard that polls epsfaultd's
// ground-link HTTP API and renders current flag state and recent fault
// history, refreshing once a second.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type status struct {
	ReadError          bool      `json:"read_error"`
	SourceDecay        bool      `json:"source_decay"`
	IdleEvidenceBits   uint8     `json:"idle_evidence_bits"`
	MPPTWasReset       bool      `json:"mppt_was_reset"`
	SourceDecayTrendWM float64   `json:"source_decay_trend_watts_per_month"`
	ServerTime         time.Time `json:"server_time"`
}

type fault struct {
	ID    string    `json:"id"`
	Fault string    `json:"fault"`
	At    time.Time `json:"at"`
}

type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{baseURL: baseURL, http: &http.Client{Timeout: 2 * time.Second}}
}

func (c *client) status() (status, error) {
	var s status
	err := c.getJSON("/status", &s)
	return s, err
}

func (c *client) faults() ([]fault, error) {
	var f []fault
	err := c.getJSON("/faults", &f)
	return f, err
}

func (c *client) getJSON(path string, v interface{}) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

type statusMsg struct {
	s   status
	err error
}

type faultsMsg struct {
	f   []fault
	err error
}

type tickMsg time.Time

type model struct {
	client    *client
	connected bool
	s         status
	faults    []fault
	lastErr   error
	vp        viewport.Model
	ready     bool
}

func newModel(c *client) model {
	return model{client: c}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(fetchStatus(m.client), fetchFaults(m.client), tickCmd())
}

func fetchStatus(c *client) tea.Cmd {
	return func() tea.Msg {
		s, err := c.status()
		return statusMsg{s, err}
	}
}

func fetchFaults(c *client) tea.Cmd {
	return func() tea.Msg {
		f, err := c.faults()
		return faultsMsg{f, err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.vp = viewport.New(msg.Width-4, 8)
			m.ready = true
		} else {
			m.vp.Width = msg.Width - 4
		}
		m.vp.SetContent(faultContent(m.faults))
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case statusMsg:
		m.lastErr = msg.err
		m.connected = msg.err == nil
		if msg.err == nil {
			m.s = msg.s
		}
	case faultsMsg:
		if msg.err == nil {
			m.faults = msg.f
			m.vp.SetContent(faultContent(m.faults))
		}
	case tickMsg:
		return m, tea.Batch(fetchStatus(m.client), fetchFaults(m.client), tickCmd())
	}

	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

// faultContent renders the fault history for the viewport, most recent last.
// The viewport is not scrolled on refresh, so it opens on the oldest entries.
func faultContent(faults []fault) string {
	if len(faults) == 0 {
		return "none"
	}
	var b strings.Builder
	for _, f := range faults {
		fmt.Fprintf(&b, "%s  %s\n", f.At.Format(time.RFC3339), f.Fault)
	}
	return strings.TrimRight(b.String(), "\n")
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	boxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleText = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
)

func flag2(b bool) string {
	if b {
		return badStyle.Render("SET")
	}
	return okStyle.Render("clear")
}

func (m model) View() string {
	if !m.connected {
		msg := "connecting..."
		if m.lastErr != nil {
			msg = "disconnected: " + m.lastErr.Error()
		}
		return boxStyle.Render(dimStyle.Render(msg)) + "\n"
	}

	statusBox := boxStyle.Render(fmt.Sprintf(
		"read_error:     %s\nsource_decay:   %s\nidle_evidence:  %#02x\nmppt_was_reset: %v\ndecay_trend:    %.2f W/month",
		flag2(m.s.ReadError), flag2(m.s.SourceDecay), m.s.IdleEvidenceBits, m.s.MPPTWasReset, m.s.SourceDecayTrendWM,
	))

	faultsBody := "loading..."
	if m.ready {
		faultsBody = m.vp.View()
	}
	faultsBox := boxStyle.Render(dimStyle.Render("recent faults (ctrl+u/d to scroll):\n") + faultsBody)

	return titleText.Render("EPS fault-detection console") + "\n" + statusBox + "\n" + faultsBox + "\n" + dimStyle.Render("q to quit") + "\n"
}

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8080", "ground-link base URL")
	flag.Parse()

	p := tea.NewProgram(newModel(newClient(*addr)))
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "console:", err)
		os.Exit(1)
	}
}
