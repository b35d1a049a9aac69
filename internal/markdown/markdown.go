// Package markdown renders note content as styled terminal text.
package markdown

import (
	"fmt"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	minWidth    = 10
	breakChars  = " ,.;-+|"
	codeStyle   = "monokai"
	codeFormat  = "terminal256"
	quotePrefix = "│ "
)

var (
	colorText    = lipgloss.Color("#C0CAF5")
	colorHeading = lipgloss.Color("#6C63FF")
	colorFaint   = lipgloss.Color("#666666")
	colorRule    = lipgloss.Color("#414868")
	colorDone    = lipgloss.Color("#2ECC71")
	colorLink    = lipgloss.Color("#7AA2F7")
)

var (
	parser     goldmark.Markdown
	parserOnce sync.Once
)

func markdownParser() goldmark.Markdown {
	parserOnce.Do(func() {
		parser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return parser
}

// Render converts markdown to styled text wrapped at width columns.
// Single newlines inside a paragraph are reflowed.
func Render(src string, width int) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	source := []byte(src)
	doc := markdownParser().Parser().Parse(text.NewReader(source))

	r := &renderer{src: source, width: width}
	ast.Walk(doc, r.walk)
	return strings.TrimRight(r.out.String(), "\n")
}

type list struct {
	ordered bool
	next    int
	tight   bool
}

type renderer struct {
	src   []byte
	width int

	out      strings.Builder
	inline   strings.Builder
	trailing int // newlines at the end of out

	prefix []string
	bullet string // replaces the prefix on the next emitted line

	bold, italic, strike int
	lists                []list
}

func (r *renderer) linePrefix() string {
	return strings.Join(r.prefix, "")
}

func (r *renderer) available() int {
	return max(r.width-ansi.StringWidth(r.linePrefix()), minWidth)
}

func (r *renderer) write(s string) {
	if s == "" {
		return
	}
	r.out.WriteString(s)
	trimmed := strings.TrimRight(s, "\n")
	n := len(s) - len(trimmed)
	if trimmed == "" {
		r.trailing += n
	} else {
		r.trailing = n
	}
}

func (r *renderer) newline() {
	if r.trailing < 1 {
		r.write("\n")
	}
}

func (r *renderer) blank() {
	if r.out.Len() == 0 {
		return
	}
	for r.trailing < 2 {
		r.write("\n")
	}
}

func (r *renderer) tight() bool {
	return len(r.lists) > 0 && r.lists[len(r.lists)-1].tight
}

// emit writes content line by line with the current prefixes.
func (r *renderer) emit(content string) {
	for i, line := range strings.Split(content, "\n") {
		if i == 0 && r.bullet != "" {
			r.write(r.bullet)
			r.bullet = ""
		} else {
			r.write(r.linePrefix())
		}
		r.write(line)
		r.write("\n")
	}
}

func (r *renderer) flush() {
	content := r.inline.String()
	r.inline.Reset()
	if content == "" {
		return
	}
	r.emit(ansi.Wrap(content, r.available(), breakChars))
}

func (r *renderer) style() lipgloss.Style {
	s := lipgloss.NewStyle().Foreground(colorText)
	if r.bold > 0 {
		s = s.Bold(true)
	}
	if r.italic > 0 {
		s = s.Italic(true)
	}
	if r.strike > 0 {
		s = s.Strikethrough(true)
	}
	return s
}

func (r *renderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindParagraph, ast.KindTextBlock:
		if entering {
			r.inline.Reset()
			break
		}
		r.flush()
		if !r.tight() {
			r.blank()
		}

	case ast.KindHeading:
		if entering {
			r.inline.Reset()
			break
		}
		r.heading(n.(*ast.Heading))

	case ast.KindFencedCodeBlock:
		if entering {
			fb := n.(*ast.FencedCodeBlock)
			r.code(r.lines(fb), string(fb.Language(r.src)))
		}
		return ast.WalkSkipChildren, nil

	case ast.KindCodeBlock:
		if entering {
			r.code(r.lines(n), "")
		}
		return ast.WalkSkipChildren, nil

	case ast.KindBlockquote:
		if entering {
			r.prefix = append(r.prefix, lipgloss.NewStyle().Foreground(colorRule).Render(quotePrefix))
		} else {
			r.prefix = r.prefix[:len(r.prefix)-1]
			r.blank()
		}

	case ast.KindList:
		if entering {
			l := n.(*ast.List)
			r.lists = append(r.lists, list{ordered: l.IsOrdered(), next: l.Start, tight: l.IsTight})
		} else {
			r.lists = r.lists[:len(r.lists)-1]
			if !r.tight() {
				r.blank()
			}
		}

	case ast.KindListItem:
		if entering {
			r.enterItem()
		} else {
			r.prefix = r.prefix[:len(r.prefix)-1]
			if r.tight() {
				r.newline()
			} else {
				r.blank()
			}
		}

	case ast.KindThematicBreak:
		if entering {
			r.blank()
			r.emit(lipgloss.NewStyle().Foreground(colorRule).Render(strings.Repeat("─", r.available())))
			r.blank()
		}

	case ast.KindHTMLBlock:
		if entering {
			if html := strings.TrimSpace(r.lines(n)); html != "" {
				r.emit(lipgloss.NewStyle().Foreground(colorFaint).Render(html))
				r.blank()
			}
		}
		return ast.WalkSkipChildren, nil

	case ast.KindText:
		if entering {
			t := n.(*ast.Text)
			r.inline.WriteString(r.style().Render(string(t.Segment.Value(r.src))))
			switch {
			case t.HardLineBreak():
				r.inline.WriteString("\n")
			case t.SoftLineBreak():
				r.inline.WriteString(" ")
			}
		}

	case ast.KindString:
		if entering {
			r.inline.WriteString(r.style().Render(string(n.(*ast.String).Value)))
		}

	case ast.KindEmphasis:
		delta := -1
		if entering {
			delta = 1
		}
		if n.(*ast.Emphasis).Level >= 2 {
			r.bold += delta
		} else {
			r.italic += delta
		}

	case extast.KindStrikethrough:
		if entering {
			r.strike++
		} else {
			r.strike--
		}

	case ast.KindCodeSpan:
		if entering {
			r.inline.WriteString(lipgloss.NewStyle().Foreground(colorFaint).Render(r.plain(n)))
		}
		return ast.WalkSkipChildren, nil

	case ast.KindLink:
		if entering {
			l := n.(*ast.Link)
			label := r.plain(l)
			r.inline.WriteString(lipgloss.NewStyle().Foreground(colorLink).Underline(true).Render(label))
			if dest := string(l.Destination); dest != "" && dest != label {
				r.inline.WriteString(" " + lipgloss.NewStyle().Foreground(colorFaint).Render("("+dest+")"))
			}
		}
		return ast.WalkSkipChildren, nil

	case ast.KindAutoLink:
		if entering {
			url := string(n.(*ast.AutoLink).URL(r.src))
			r.inline.WriteString(lipgloss.NewStyle().Foreground(colorLink).Underline(true).Render(url))
		}
		return ast.WalkSkipChildren, nil

	case ast.KindImage:
		if entering {
			img := n.(*ast.Image)
			r.inline.WriteString(lipgloss.NewStyle().Foreground(colorFaint).Render(
				fmt.Sprintf("[image: %s] (%s)", r.plain(img), img.Destination)))
		}
		return ast.WalkSkipChildren, nil

	case extast.KindTaskCheckBox:
		if entering {
			if n.(*extast.TaskCheckBox).IsChecked {
				r.inline.WriteString(lipgloss.NewStyle().Foreground(colorDone).Render("[x]") + " ")
			} else {
				r.inline.WriteString(r.style().Render("[ ] "))
			}
		}

	case extast.KindTable:
		if entering {
			r.table(n)
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (r *renderer) heading(h *ast.Heading) {
	content := ansi.Strip(r.inline.String())
	r.inline.Reset()
	if content == "" {
		return
	}
	style := lipgloss.NewStyle().Bold(true).Foreground(colorText)
	if h.Level <= 2 {
		style = style.Foreground(colorHeading)
	}
	if h.Level == 1 {
		content = strings.ToUpper(content)
	}
	r.blank()
	r.emit(ansi.Wrap(style.Render(content), r.available(), breakChars))
	r.blank()
}

func (r *renderer) enterItem() {
	if len(r.lists) == 0 {
		return
	}
	top := &r.lists[len(r.lists)-1]
	marker := "• "
	if top.ordered {
		marker = fmt.Sprintf("%d. ", top.next)
		top.next++
	}
	r.bullet = r.linePrefix() + marker
	r.prefix = append(r.prefix, strings.Repeat(" ", ansi.StringWidth(marker)))
}

// lines joins the raw source lines of a block node.
func (r *renderer) lines(n ast.Node) string {
	var b strings.Builder
	segs := n.Lines()
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		b.Write(seg.Value(r.src))
	}
	return b.String()
}

// plain returns the unstyled text of an inline container.
func (r *renderer) plain(n ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(r.src))
		case *ast.String:
			b.Write(c.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func (r *renderer) code(src, lang string) {
	body := highlight(src, lang)
	r.blank()
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		r.emit(line)
	}
	r.blank()
}

// highlight colors code with chroma, falling back to faint plain text
// for unknown languages.
func highlight(src, lang string) string {
	faint := lipgloss.NewStyle().Foreground(colorFaint)
	if lang == "" {
		return faint.Render(strings.TrimRight(src, "\n"))
	}
	var b strings.Builder
	if err := quick.Highlight(&b, src, lang, codeFormat, codeStyle); err != nil {
		return faint.Render(strings.TrimRight(src, "\n"))
	}
	return b.String()
}

// table renders a GFM table as aligned columns.
func (r *renderer) table(n ast.Node) {
	var rows [][]string
	for row := n.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(r.plain(cell)))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], ansi.StringWidth(cell))
			}
		}
	}

	r.blank()
	for ri, row := range rows {
		parts := make([]string, len(widths))
		for i := range widths {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			parts[i] = cell + strings.Repeat(" ", widths[i]-ansi.StringWidth(cell))
		}
		line := strings.TrimRight(strings.Join(parts, "  "), " ")
		if ri == 0 {
			line = lipgloss.NewStyle().Bold(true).Render(line)
		}
		r.emit(ansi.Truncate(line, r.available(), "…"))
		if ri == 0 {
			sep := make([]string, len(widths))
			for i, w := range widths {
				sep[i] = strings.Repeat("─", w)
			}
			r.emit(lipgloss.NewStyle().Foreground(colorRule).Render(strings.Join(sep, "  ")))
		}
	}
	r.blank()
}
