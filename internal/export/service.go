package export

import (
	"context"
	"fmt"
	"strings"

	"portfolio/api/internal/util"
)

type formatInfo struct {
	ext  string
	mime string
}

var formats = map[Format]formatInfo{
	FormatHTML: {ext: ".html", mime: "text/html; charset=utf-8"},
	FormatPDF:  {ext: ".pdf", mime: "application/pdf"},
	FormatDOCX: {ext: ".docx", mime: docxMime},
}

// converter turns rendered resume HTML into another format.
type converter func(ctx context.Context, html string, resume Resume) ([]byte, error)

type Service struct {
	converters map[Format]converter
}

// Option configures a Service.
type Option func(*Service)

// WithPaper sets the PDF page size. The default is A4.
func WithPaper(paper Paper) Option {
	return func(s *Service) {
		chrome := newChromeRenderer(paper)
		s.converters[FormatPDF] = func(ctx context.Context, html string, _ Resume) ([]byte, error) {
			return chrome.render(ctx, html)
		}
	}
}

func NewService(opts ...Option) *Service {
	s := &Service{converters: map[Format]converter{
		FormatHTML: func(_ context.Context, html string, _ Resume) ([]byte, error) {
			return []byte(html), nil
		},
		FormatDOCX: func(ctx context.Context, html string, resume Resume) ([]byte, error) {
			return pandocDOCX(ctx, html, resume.Profile.Name)
		},
	}}
	WithPaper(PaperA4)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export renders resume as HTML and converts it to format.
func (s *Service) Export(ctx context.Context, resume Resume, format Format) (*Result, error) {
	info, known := formats[format]
	convert, ok := s.converters[format]
	if !known || !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	html, err := RenderHTML(resume)
	if err != nil {
		return nil, err
	}
	data, err := convert(ctx, html, resume)
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, Filename: filenameFor(resume.Profile.Name) + info.ext, MimeType: info.mime}, nil
}

func filenameFor(name string) string {
	slug := util.Slugify(name)
	if len(slug) > 40 {
		slug = strings.TrimRight(slug[:40], "-")
	}
	if slug == "" {
		return "resume"
	}
	return slug + "-resume"
}
