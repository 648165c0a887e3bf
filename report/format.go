// Package report renders batch outcomes for the command line.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/rlch/schemagate"
)

// Formatter renders entries as they complete and a final summary.
type Formatter interface {
	Format(entry Entry) error
	Summary(result *Result) error
}

// NewFormatter creates a formatter by name. Unknown names select dots.
func NewFormatter(name string, w io.Writer) Formatter {
	switch name {
	case schemagate.FormatVerbose:
		return NewVerboseFormatter(w)
	case schemagate.FormatJSON:
		return NewJSONFormatter(w)
	default:
		return NewDotsFormatter(w)
	}
}

// palette colours status words when writing to a terminal.
type palette struct {
	enabled bool

	pass  lipgloss.Style
	fail  lipgloss.Style
	store lipgloss.Style
	dim   lipgloss.Style
}

func newPalette(w io.Writer) palette {
	r := lipgloss.NewRenderer(w)

	return palette{
		enabled: isTerminal(w),
		pass:    r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		fail:    r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		store:   r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		dim:     r.NewStyle().Faint(true),
	}
}

func (p palette) paint(s lipgloss.Style, text string) string {
	if !p.enabled {
		return text
	}

	return s.Render(text)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && isatty.IsTerminal(f.Fd())
}

// -----------------------------------------------------------------------------
// Dots Formatter
// -----------------------------------------------------------------------------

// DotsFormatter prints one character per entity.
type DotsFormatter struct {
	w       io.Writer
	palette palette
	count   int
}

// NewDotsFormatter creates a dots formatter.
func NewDotsFormatter(w io.Writer) *DotsFormatter {
	return &DotsFormatter{w: w, palette: newPalette(w)}
}

const lineWidth = 80

// Format prints "." for a pass, "F" for a validation failure and "E" for a
// store failure.
func (d *DotsFormatter) Format(entry Entry) error {
	var char string

	switch {
	case entry.Outcome.Success:
		char = d.palette.paint(d.palette.pass, ".")
	case entry.Outcome.IsStoreError():
		char = d.palette.paint(d.palette.store, "E")
	default:
		char = d.palette.paint(d.palette.fail, "F")
	}

	_, err := fmt.Fprint(d.w, char)
	d.count++

	if d.count%lineWidth == 0 {
		_, _ = fmt.Fprintln(d.w)
	}

	return err
}

// Summary lists failures and prints the totals.
func (d *DotsFormatter) Summary(result *Result) error {
	if d.count > 0 && d.count%lineWidth != 0 {
		_, _ = fmt.Fprintln(d.w)
	}

	_, _ = fmt.Fprintln(d.w)

	for _, e := range result.Failures() {
		word := d.palette.paint(d.palette.fail, "FAIL")
		if e.Outcome.IsStoreError() {
			word = d.palette.paint(d.palette.store, "ERROR")
		}

		_, _ = fmt.Fprintf(d.w, "%s %s\n", word, e.Label())
		_, _ = fmt.Fprintf(d.w, "  %s\n\n", e.Outcome.Message())
	}

	status := d.palette.paint(d.palette.pass, "PASS")
	if !result.Ok() {
		status = d.palette.paint(d.palette.fail, "FAIL")
	}

	_, err := fmt.Fprintf(d.w, "%s %d entities, %d passed, %d failed, %d store errors in %s\n",
		status,
		result.Total,
		result.Passed,
		result.Failed,
		result.StoreErrors,
		result.Elapsed().Round(time.Millisecond),
	)

	return err
}

// -----------------------------------------------------------------------------
// Verbose Formatter
// -----------------------------------------------------------------------------

// VerboseFormatter prints every entity with its outcome.
type VerboseFormatter struct {
	w       io.Writer
	palette palette
}

// NewVerboseFormatter creates a verbose formatter.
func NewVerboseFormatter(w io.Writer) *VerboseFormatter {
	return &VerboseFormatter{w: w, palette: newPalette(w)}
}

// Format prints the entity and, on failure, the message.
func (v *VerboseFormatter) Format(entry Entry) error {
	kind := v.palette.paint(v.palette.dim, "("+entry.Kind.String()+")")

	switch {
	case entry.Outcome.Success:
		_, _ = fmt.Fprintf(v.w, "--- %s: %s %s\n", v.palette.paint(v.palette.pass, "PASS"), entry.Label(), kind)
	case entry.Outcome.IsStoreError():
		_, _ = fmt.Fprintf(v.w, "--- %s: %s %s\n", v.palette.paint(v.palette.store, "ERROR"), entry.Label(), kind)
		_, _ = fmt.Fprintf(v.w, "    %s\n", entry.Outcome.Message())
	default:
		_, _ = fmt.Fprintf(v.w, "--- %s: %s %s\n", v.palette.paint(v.palette.fail, "FAIL"), entry.Label(), kind)
		_, _ = fmt.Fprintf(v.w, "    %s\n", entry.Outcome.Message())
	}

	return nil
}

// Summary prints the totals.
func (v *VerboseFormatter) Summary(result *Result) error {
	_, _ = fmt.Fprintln(v.w)

	status := v.palette.paint(v.palette.pass, "PASS")
	if !result.Ok() {
		status = v.palette.paint(v.palette.fail, "FAIL")
	}

	_, _ = fmt.Fprintf(v.w, "%s\n", status)
	_, _ = fmt.Fprintf(v.w, "  %d total, %d passed, %d failed, %d store errors\n",
		result.Total,
		result.Passed,
		result.Failed,
		result.StoreErrors,
	)
	_, err := fmt.Fprintf(v.w, "  elapsed: %s\n", result.Elapsed().Round(time.Millisecond))

	return err
}

// -----------------------------------------------------------------------------
// JSON Formatter
// -----------------------------------------------------------------------------

// JSONFormatter outputs newline-delimited JSON.
type JSONFormatter struct {
	enc *json.Encoder
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{enc: json.NewEncoder(w)}
}

type jsonEntry struct {
	Source     string  `json:"source,omitempty"`
	Index      int     `json:"index"`
	Name       string  `json:"name,omitempty"`
	Kind       string  `json:"kind"`
	Success    bool    `json:"success"`
	Error      *string `json:"error"`
	StoreError bool    `json:"storeError,omitempty"`
}

// Format outputs one entity outcome.
func (j *JSONFormatter) Format(entry Entry) error {
	je := jsonEntry{
		Source:     entry.Source,
		Index:      entry.Index,
		Name:       entry.Name,
		Kind:       entry.Kind.String(),
		Success:    entry.Outcome.Success,
		StoreError: entry.Outcome.IsStoreError(),
	}

	if !entry.Outcome.Success {
		msg := entry.Outcome.Message()
		je.Error = &msg
	}

	return j.enc.Encode(je)
}

type jsonSummary struct {
	Action      string  `json:"action"`
	Total       int     `json:"total"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	StoreErrors int     `json:"storeErrors"`
	Elapsed     float64 `json:"elapsed"`
	Ok          bool    `json:"ok"`
}

// Summary outputs the final JSON summary.
func (j *JSONFormatter) Summary(result *Result) error {
	return j.enc.Encode(jsonSummary{
		Action:      "summary",
		Total:       result.Total,
		Passed:      result.Passed,
		Failed:      result.Failed,
		StoreErrors: result.StoreErrors,
		Elapsed:     result.Elapsed().Seconds(),
		Ok:          result.Ok(),
	})
}
