package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/weaver/aspect"
	"github.com/wippyai/weaver/builtin"
	"github.com/wippyai/weaver/ir"
	"github.com/wippyai/weaver/vm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	methodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	traceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	mod      *ir.Module
	reg      *aspect.Registry
	trace    *builtin.Trace
	machine  *vm.Machine
	call     *callResult
	filename string
	methods  []*ir.Method
	inputs   []textinput.Model
	params   []ir.Param
	selected int
	focusIdx int
	state    modelState
	showIR   bool
}

type modelState int

const (
	stateSelectMethod modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(filename string, mod *ir.Module, reg *aspect.Registry, trace *builtin.Trace) *interactiveModel {
	return &interactiveModel{
		filename: filename,
		mod:      mod,
		reg:      reg,
		trace:    trace,
		state:    stateSelectMethod,
	}
}

type loadedMsg struct {
	err     error
	machine *vm.Machine
	methods []*ir.Method
}

type callResultMsg struct {
	err  error
	call *callResult
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadModule
}

func (m *interactiveModel) loadModule() tea.Msg {
	machine, err := vm.New(m.mod, vm.WithAspects(m.reg))
	if err != nil {
		return loadedMsg{err: err}
	}
	var methods []*ir.Method
	for _, meth := range m.mod.Methods {
		if !meth.Hidden {
			methods = append(methods, meth)
		}
	}
	return loadedMsg{machine: machine, methods: methods}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectMethod && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectMethod && m.selected < len(m.methods)-1 {
				m.selected++
			}

		case "d":
			if m.state == stateSelectMethod {
				m.showIR = !m.showIR
			}

		case "enter":
			switch m.state {
			case stateSelectMethod:
				if len(m.methods) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callMethod
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callMethod

			case stateShowResult:
				m.state = stateSelectMethod
				m.call = nil
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectMethod
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectMethod
				m.call = nil
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.machine = msg.machine
		m.methods = msg.methods

	case callResultMsg:
		m.call = msg.call
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	meth := m.methods[m.selected]
	m.inputs = nil
	m.params = nil
	for _, p := range meth.Params {
		if p.Mode == ir.Out {
			continue
		}
		ti := textinput.New()
		ti.Placeholder = p.Type.String()
		ti.Prompt = p.Name + ": "
		ti.Width = 40
		if len(m.inputs) == 0 {
			ti.Focus()
		}
		m.inputs = append(m.inputs, ti)
		m.params = append(m.params, p)
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callMethod() tea.Msg {
	if m.machine == nil {
		return callResultMsg{err: fmt.Errorf("module not loaded")}
	}
	inputs := make([]string, len(m.inputs))
	for i, in := range m.inputs {
		inputs[i] = in.Value()
	}
	call, err := callMethod(context.Background(), m.machine, m.trace, m.methods[m.selected], inputs)
	return callResultMsg{call: call, err: err}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.machine == nil {
		return "Loading module..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Weaver"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectMethod:
		b.WriteString("Select a method to call:\n\n")
		for i, meth := range m.methods {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + formatSignature(meth)))
			} else {
				b.WriteString("  " + formatSignature(meth))
			}
			b.WriteString("\n")
		}
		if m.showIR && len(m.methods) > 0 {
			b.WriteString("\n")
			b.WriteString(ir.Format(m.methods[m.selected]))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • d toggle IR • q quit"))

	case stateInputArgs:
		meth := m.methods[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", methodStyle.Render(meth.Name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(m.params[i].Mode.String() + " " + m.params[i].Type.String()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		meth := m.methods[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", methodStyle.Render(meth.Name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else if m.call != nil {
			b.WriteString(resultStyle.Render(m.call.result))
			for _, p := range m.call.params {
				b.WriteString("\n")
				b.WriteString(resultStyle.Render(p))
			}
		}
		if m.call != nil && len(m.call.trace) > 0 {
			b.WriteString("\n\nAdvice:\n")
			for _, t := range m.call.trace {
				b.WriteString(traceStyle.Render("  " + t))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func formatSignature(meth *ir.Method) string {
	params := make([]string, len(meth.Params))
	for i, p := range meth.Params {
		mode := ""
		if p.Mode != ir.ByValue {
			mode = p.Mode.String() + " "
		}
		params[i] = mode + p.Name + ": " + typeStyle.Render(p.Type.String())
	}
	result := ""
	if !meth.Return.IsVoid() {
		result = " -> " + typeStyle.Render(meth.Return.String())
	}
	return methodStyle.Render(meth.Name) + "(" + strings.Join(params, ", ") + ")" + result
}

func runInteractive(filename string, mod *ir.Module, reg *aspect.Registry, trace *builtin.Trace) error {
	p := tea.NewProgram(newInteractiveModel(filename, mod, reg, trace), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
