package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Panel is a titled list of label/value lines, the text form of the
// dashboard cards.
type Panel struct {
	title string
	rows  [][2]string
}

// NewPanel creates a panel.
func NewPanel(title string) *Panel {
	return &Panel{title: title}
}

// Add appends a line.
func (p *Panel) Add(label, value string) *Panel {
	p.rows = append(p.rows, [2]string{label, value})
	return p
}

// Addf appends a line with a formatted value.
func (p *Panel) Addf(label, format string, args ...any) *Panel {
	return p.Add(label, fmt.Sprintf(format, args...))
}

// Render writes the panel with aligned values.
func (p *Panel) Render(w io.Writer) error {
	if p.title != "" {
		if _, err := fmt.Fprintf(w, "%s\n%s\n", p.title, strings.Repeat("=", len(p.title))); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range p.rows {
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// String returns the rendered panel.
func (p *Panel) String() string {
	var sb strings.Builder
	_ = p.Render(&sb)
	return sb.String()
}
