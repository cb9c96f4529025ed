package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/metaforge/unitmeta/decl"
	"github.com/metaforge/unitmeta/metadata"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateBrowse modelState = iota
	stateShowDetail
)

type itemRow struct {
	id   decl.ID
	kind decl.Kind
	name string
	path string
}

type interactiveModel struct {
	err      error
	blob     *metadata.Blob
	filename string
	unit     string
	rows     []itemRow
	visible  []itemRow
	filter   textinput.Model
	detail   []string
	selected int
	state    modelState
}

type loadedMsg struct {
	blob *metadata.Blob
	unit string
	rows []itemRow
	err  error
}

type detailMsg struct {
	lines []string
	err   error
}

func newInteractiveModel(filename string) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "filter"
	ti.Prompt = "/ "
	ti.Width = 40
	ti.Focus()
	return &interactiveModel{
		filename: filename,
		filter:   ti,
		state:    stateBrowse,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadBlob
}

func (m *interactiveModel) loadBlob() tea.Msg {
	blob, err := loadBlob(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	name, err := blob.Name()
	if err != nil {
		return loadedMsg{err: err}
	}

	var rows []itemRow
	err = blob.EachItem(func(it *metadata.Item) error {
		id, err := it.ID()
		if err != nil {
			return err
		}
		kind, err := it.Kind()
		if err != nil {
			return err
		}
		itemName, err := it.Name()
		if err != nil {
			return err
		}
		path, err := it.Path()
		if err != nil {
			return err
		}
		rows = append(rows, itemRow{id, kind, itemName, strings.Join(path, "::")})
		return nil
	})
	if err != nil {
		return loadedMsg{err: err}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].id.Index < rows[j].id.Index })

	return loadedMsg{blob: blob, unit: name, rows: rows}
}

func (m *interactiveModel) showDetail() tea.Msg {
	if m.selected >= len(m.visible) {
		return detailMsg{err: fmt.Errorf("no record selected")}
	}
	it, err := m.blob.Item(m.visible[m.selected].id)
	if err != nil {
		return detailMsg{err: err}
	}
	lines, err := itemDetail(m.blob, it)
	if err != nil {
		return detailMsg{err: err}
	}
	return detailMsg{lines: lines}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "up":
			if m.state == stateBrowse && m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "down":
			if m.state == stateBrowse && m.selected < len(m.visible)-1 {
				m.selected++
			}
			return m, nil

		case "enter":
			if m.state == stateBrowse && len(m.visible) > 0 {
				return m, m.showDetail
			}
			return m, nil

		case "esc":
			switch m.state {
			case stateBrowse:
				if m.filter.Value() != "" {
					m.filter.SetValue("")
					m.applyFilter()
					return m, nil
				}
				return m, tea.Quit
			case stateShowDetail:
				m.state = stateBrowse
				m.detail = nil
			}
			return m, nil
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.blob = msg.blob
		m.unit = msg.unit
		m.rows = msg.rows
		m.visible = msg.rows
		return m, nil

	case detailMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.detail = msg.lines
		m.state = stateShowDetail
		return m, nil
	}

	if m.state == stateBrowse {
		var cmd tea.Cmd
		before := m.filter.Value()
		m.filter, cmd = m.filter.Update(msg)
		if m.filter.Value() != before {
			m.applyFilter()
		}
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) applyFilter() {
	q := strings.ToLower(m.filter.Value())
	if q == "" {
		m.visible = m.rows
		m.selected = 0
		return
	}
	var out []itemRow
	for _, r := range m.rows {
		if strings.Contains(strings.ToLower(r.name), q) ||
			strings.Contains(strings.ToLower(r.path), q) ||
			strings.Contains(strings.ToLower(r.kind.String()), q) {
			out = append(out, r)
		}
	}
	m.visible = out
	m.selected = 0
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress ctrl+c to quit.", m.err))
	}

	if m.blob == nil {
		return "Loading metadata..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Metadata Browser"))
	b.WriteString(" ")
	b.WriteString(m.unit)
	b.WriteString("\n\n")

	switch m.state {
	case stateBrowse:
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
		for i, r := range m.visible {
			line := fmt.Sprintf("%-10s %-14s %-24s %s",
				r.id, kindStyle.Render(r.kind.String()), nameStyle.Render(r.name), r.path)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		if len(m.visible) == 0 {
			b.WriteString(helpStyle.Render("no matching records"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter inspect • esc clear/quit"))

	case stateShowDetail:
		r := m.visible[m.selected]
		b.WriteString(fmt.Sprintf("Record %s\n\n", nameStyle.Render(r.name)))
		for _, l := range m.detail {
			b.WriteString(detailStyle.Render(l))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("esc back • ctrl+c quit"))
	}

	return b.String()
}

// itemDetail renders the record's decoded fields, one per line.
// Optional fields absent from the record are skipped silently.
func itemDetail(blob *metadata.Blob, it *metadata.Item) ([]string, error) {
	var lines []string

	id, err := it.ID()
	if err != nil {
		return nil, err
	}
	kind, err := it.Kind()
	if err != nil {
		return nil, err
	}
	name, err := it.Name()
	if err != nil {
		return nil, err
	}
	path, err := it.Path()
	if err != nil {
		return nil, err
	}
	vis, err := it.Visibility()
	if err != nil {
		return nil, err
	}
	lines = append(lines,
		fmt.Sprintf("id:   %s", id),
		fmt.Sprintf("kind: %s", kind),
		fmt.Sprintf("name: %s", name),
		fmt.Sprintf("path: %s", strings.Join(path, "::")),
		fmt.Sprintf("vis:  %c", vis),
	)

	if ty, err := it.Type(); err == nil && ty != nil {
		lines = append(lines, "type: "+typeString(ty))
	}
	if sym, ok, err := it.Symbol(); err == nil && ok {
		lines = append(lines, "symbol: "+sym)
	}
	if body, ok, err := it.Body(); err == nil && ok {
		lines = append(lines, fmt.Sprintf("body: %d bytes", len(body)))
	}
	if abi, err := it.ABI(); err == nil && abi != "" {
		lines = append(lines, "abi: "+abi)
	}
	if args, err := it.ArgNames(); err == nil && len(args) > 0 {
		lines = append(lines, "args: "+strings.Join(args, ", "))
	}
	if disr, ok, err := it.Disr(); err == nil && ok {
		lines = append(lines, fmt.Sprintf("discriminant: %d", disr))
	}
	if parent, ok, err := it.Parent(); err == nil && ok {
		lines = append(lines, "parent: "+parent.String())
	}
	if src, ok, err := it.Source(); err == nil && ok {
		lines = append(lines, "source: "+src.String())
	}
	if ctor, ok, err := it.Ctor(); err == nil && ok {
		lines = append(lines, "ctor: "+ctor.String())
	}
	if ids, err := it.Children(); err == nil && len(ids) > 0 {
		lines = append(lines, "children: "+idListStr(ids))
	}
	if ids, err := it.Members(); err == nil && len(ids) > 0 {
		lines = append(lines, "members: "+idListStr(ids))
	}
	if ids, err := it.Variants(); err == nil && len(ids) > 0 {
		lines = append(lines, "variants: "+idListStr(ids))
	}
	if ids, err := it.InherentImpls(); err == nil && len(ids) > 0 {
		lines = append(lines, "inherent impls: "+idListStr(ids))
	}
	if ids, err := it.ExtensionImpls(); err == nil && len(ids) > 0 {
		lines = append(lines, "extension impls: "+idListStr(ids))
	}
	if ids, err := it.Fields(); err == nil && len(ids) > 0 {
		lines = append(lines, "fields: "+idListStr(ids))
	}
	if tr, ok, err := it.TraitRef(); err == nil && ok {
		lines = append(lines, "trait: "+traitRefString(tr))
	}
	if attrs, err := it.Attrs(); err == nil && len(attrs) > 0 {
		for _, a := range attrs {
			lines = append(lines, "attr: "+metaString(a.Meta))
		}
	}
	if fattrs, err := blob.FieldAttrs(id); err == nil && len(fattrs) > 0 {
		for _, a := range fattrs {
			lines = append(lines, "field attr: "+metaString(a.Meta))
		}
	}
	return lines, nil
}

func typeString(t decl.Type) string {
	switch v := t.(type) {
	case decl.Bool:
		return "bool"
	case decl.Char:
		return "char"
	case decl.Int:
		if v.Bits == 0 {
			return "isize"
		}
		return fmt.Sprintf("i%d", v.Bits)
	case decl.Uint:
		if v.Bits == 0 {
			return "usize"
		}
		return fmt.Sprintf("u%d", v.Bits)
	case decl.Float:
		return fmt.Sprintf("f%d", v.Bits)
	case decl.Str:
		return "str"
	case decl.Never:
		return "!"
	case decl.Tuple:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = typeString(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case decl.Ref:
		if v.Mutable {
			return "&mut " + typeString(v.Elem)
		}
		return "&" + typeString(v.Elem)
	case decl.RawPtr:
		if v.Mutable {
			return "*mut " + typeString(v.Elem)
		}
		return "*const " + typeString(v.Elem)
	case decl.Slice:
		return "[" + typeString(v.Elem) + "]"
	case decl.Array:
		return fmt.Sprintf("[%s; %d]", typeString(v.Elem), v.Len)
	case decl.FnPtr:
		parts := make([]string, len(v.Params))
		for i, p := range v.Params {
			parts[i] = typeString(p)
		}
		s := "fn(" + strings.Join(parts, ", ") + ")"
		if v.ABI != "" {
			s = fmt.Sprintf("extern %q ", v.ABI) + s
		}
		if v.Ret != nil {
			s += " -> " + typeString(v.Ret)
		}
		return s
	case decl.Nominal:
		s := v.ID.String()
		if len(v.Substs) > 0 {
			parts := make([]string, len(v.Substs))
			for i, e := range v.Substs {
				parts[i] = typeString(e)
			}
			s += "<" + strings.Join(parts, ", ") + ">"
		}
		return s
	case decl.Param:
		return v.Name
	case decl.Object:
		return "dyn " + traitRefString(v.Trait)
	default:
		return fmt.Sprintf("%T", t)
	}
}

func traitRefString(tr decl.TraitRef) string {
	s := tr.ID.String()
	if len(tr.Substs) > 0 {
		parts := make([]string, len(tr.Substs))
		for i, e := range tr.Substs {
			parts[i] = typeString(e)
		}
		s += "<" + strings.Join(parts, ", ") + ">"
	}
	return s
}

func metaString(m decl.MetaItem) string {
	switch v := m.(type) {
	case decl.MetaWord:
		return v.Name
	case decl.MetaNameValue:
		return fmt.Sprintf("%s = %q", v.Name, v.Value)
	case decl.MetaList:
		parts := make([]string, len(v.Items))
		for i, it := range v.Items {
			parts[i] = metaString(it)
		}
		return v.Name + "(" + strings.Join(parts, ", ") + ")"
	default:
		return fmt.Sprintf("%T", m)
	}
}

func runInteractive(filename string) error {
	p := tea.NewProgram(newInteractiveModel(filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
