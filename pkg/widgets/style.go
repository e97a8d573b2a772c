package widgets

import (
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Style describes optional decoration for a widget. Colors are hex strings
// ("#ff5500") or ANSI color numbers.
type Style struct {
	Foreground string
	Background string
	Bold       bool
}

// IsZero reports whether the style changes nothing.
func (s Style) IsZero() bool {
	return s.Foreground == "" && s.Background == "" && !s.Bold
}

// Styler decorates rendered text.
type Styler interface {
	Apply(text string) string
}

// ANSI renders styles as terminal escape sequences through lipgloss.
type ANSI struct {
	style lipgloss.Style
}

// NewANSI builds an ANSI styler for the given color profile. w is only used
// by lipgloss to query the terminal background and may be io.Discard.
func NewANSI(s Style, w io.Writer, profile termenv.Profile) *ANSI {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(profile)
	st := r.NewStyle().Bold(s.Bold)
	if s.Foreground != "" {
		st = st.Foreground(lipgloss.Color(s.Foreground))
	}
	if s.Background != "" {
		st = st.Background(lipgloss.Color(s.Background))
	}
	return &ANSI{style: st}
}

func (a *ANSI) Apply(text string) string {
	if text == "" {
		return text
	}
	return a.style.Render(text)
}

// Dzen renders styles as dzen2 in-text commands (^fg(), ^bg()). dzen2 has no
// bold attribute, so Bold is ignored.
type Dzen struct {
	fg, bg string
}

// NewDzen builds a dzen2 styler.
func NewDzen(s Style) *Dzen {
	return &Dzen{fg: s.Foreground, bg: s.Background}
}

func (d *Dzen) Apply(text string) string {
	var b strings.Builder
	if d.fg != "" {
		b.WriteString("^fg(" + d.fg + ")")
	}
	if d.bg != "" {
		b.WriteString("^bg(" + d.bg + ")")
	}
	b.WriteString(text)
	if d.bg != "" {
		b.WriteString("^bg()")
	}
	if d.fg != "" {
		b.WriteString("^fg()")
	}
	return b.String()
}

// Styled decorates another widget. Refresh is forwarded when the inner
// widget supports it.
type Styled struct {
	inner  Widget
	styler Styler
}

// WithStyler wraps w. A nil styler returns w unchanged.
func WithStyler(w Widget, s Styler) Widget {
	if s == nil {
		return w
	}
	return &Styled{inner: w, styler: s}
}

func (s *Styled) Name() string            { return s.inner.Name() }
func (s *Styled) Interval() time.Duration { return s.inner.Interval() }
func (s *Styled) Render() string          { return s.styler.Apply(s.inner.Render()) }

// Refresh recomputes the inner widget and returns the styled text.
func (s *Styled) Refresh() string {
	if r, ok := s.inner.(Refresher); ok {
		return s.styler.Apply(r.Refresh())
	}
	return s.Render()
}

// Unwrap returns the decorated widget.
func (s *Styled) Unwrap() Widget { return s.inner }
