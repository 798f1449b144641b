// Package export renders the public resume as HTML, PDF or DOCX.
package export

import (
	"errors"
	"time"

	"portfolio/api/internal/store"
)

type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

var (
	ErrPDFDependencyMissing  = errors.New("pdf export needs chrome or chromium")
	ErrDOCXDependencyMissing = errors.New("docx export needs pandoc")
	ErrUnsupportedFormat     = errors.New("unsupported export format")
)

// ParseFormat accepts a ?format value. Empty means HTML.
func ParseFormat(value string) (Format, bool) {
	if value == "" {
		return FormatHTML, true
	}
	_, ok := formats[Format(value)]
	return Format(value), ok
}

// Resume holds the visible, ordered rows that make up the document.
type Resume struct {
	Profile     store.Profile
	Experiences []store.Experience
	Education   []store.Education
	Skills      []store.Skill
	GeneratedAt time.Time
}

type SkillGroup struct {
	Category string
	Skills   []store.Skill
}

// Result is a rendered document ready to be served as an attachment.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}
