// Package export renders a chat transcript as a downloadable document.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	app_errors "chatbox/web/internal/errors"
	"chatbox/web/internal/model"
)

// Format is a supported export document type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatText Format = "txt"
)

// ParseFormat maps a query value onto a Format. Empty means PDF.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pdf":
		return FormatPDF, nil
	case "txt", "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: unsupported export format %q", app_errors.ErrValidation, s)
}

// ContentType is the MIME type of the rendered document.
func (f Format) ContentType() string {
	if f == FormatText {
		return "text/plain; charset=utf-8"
	}
	return "application/pdf"
}

// Filename is the suggested download name for a document exported at t.
func Filename(f Format, t time.Time) string {
	return fmt.Sprintf("conversation-%d.%s", t.UnixMilli(), f)
}

// Document is what gets exported.
type Document struct {
	Title      string
	Messages   model.Transcript
	ExportedAt time.Time
}

type entry struct {
	label string
	text  string
}

// entries drops blank messages and labels the rest. An export with nothing
// left is a validation error.
func (d Document) entries() ([]entry, error) {
	out := make([]entry, 0, len(d.Messages))
	for _, m := range d.Messages {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		label := "Assistant"
		if m.Role == model.RoleUser {
			label = "You"
		}
		out = append(out, entry{label: label, text: text})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: No conversation to export yet.", app_errors.ErrValidation)
	}
	return out, nil
}

func (d Document) title() string {
	if t := strings.TrimSpace(d.Title); t != "" {
		return t
	}
	return "Conversation Export"
}

// Write renders d in format f.
func Write(w io.Writer, f Format, d Document) error {
	if f == FormatText {
		return Text(w, d)
	}
	return PDF(w, d)
}

// Text writes a plain-text transcript.
func Text(w io.Writer, d Document) error {
	entries, err := d.entries()
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\nExported: %s\n\n", d.title(), d.ExportedAt.Format(time.DateTime))
	for _, e := range entries {
		fmt.Fprintf(bw, "%s:\n%s\n\n", e.label, e.text)
	}
	return bw.Flush()
}

// Page geometry in points.
const (
	margin     = 40.0
	topY       = 50.0
	lineHeight = 14.0
	bottomGap  = 60.0
)

// PDF writes an A4 transcript with a heading, an export timestamp and one
// labelled block per message, wrapping long lines and breaking pages.
func PDF(w io.Writer, d Document) error {
	entries, err := d.entries()
	if err != nil {
		return err
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(margin, topY, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(d.title(), true)
	pdf.SetCreator("chatbox", true)
	pdf.SetCreationDate(d.ExportedAt)
	pdf.SetModificationDate(d.ExportedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	maxW := pageW - margin*2

	pdf.AddPage()
	y := topY

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(margin, y, tr(d.title()))
	y += 20

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(margin, y, "Exported: "+d.ExportedAt.Format(time.DateTime))
	y += 18

	pdf.SetDrawColor(180, 180, 180)
	pdf.Line(margin, y, pageW-margin, y)
	y += 18

	for _, e := range entries {
		if y > pageH-bottomGap {
			pdf.AddPage()
			y = topY
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Text(margin, y, e.label+":")
		y += lineHeight

		pdf.SetFont("Helvetica", "", 11)
		for _, para := range strings.Split(tr(e.text), "\n") {
			lines := pdf.SplitText(para, maxW)
			if len(lines) == 0 {
				lines = []string{""}
			}
			for _, line := range lines {
				if y > pageH-bottomGap {
					pdf.AddPage()
					y = topY
				}
				pdf.Text(margin, y, line)
				y += lineHeight
			}
		}
		y += 10
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("could not render pdf: %w", err)
	}
	return pdf.Output(w)
}
