package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"portfolio/api/internal/store"
)

func sampleResume() Resume {
	return Resume{
		Profile: store.Profile{
			Name:     "Avery Quinn",
			Headline: "Backend engineer",
			Email:    "avery@example.com",
			Bio:      "Builds <things> carefully.",
			Socials:  map[string]string{"github": "https://github.com/avery"},
		},
		Experiences: []store.Experience{
			{Company: "Acme", Position: "Engineer", StartDate: "2021", Current: true, TechStack: store.StringList{"Go", "Postgres"}},
			{Company: "Initech", Position: "Intern", StartDate: "2019", EndDate: "2020"},
		},
		Education: []store.Education{{Institution: "State University", Degree: "BSc", Field: "Computer Science"}},
		Skills: []store.Skill{
			{Name: "Go", Category: "Languages"},
			{Name: "Docker"},
			{Name: "SQL", Category: "Languages"},
		},
		GeneratedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRenderHTMLIncludesSections(t *testing.T) {
	html, err := RenderHTML(sampleResume())
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	for _, want := range []string{
		"<title>Avery Quinn</title>",
		"Engineer, Acme",
		"2021 – Present",
		"2019 – 2020",
		"BSc, Computer Science",
		"Go, Postgres",
		"<dt>Languages</dt><dd>Go, SQL</dd>",
		"<dt>Other</dt><dd>Docker</dd>",
		"Generated March 1, 2024",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected HTML to contain %q", want)
		}
	}
	if strings.Contains(html, "<things>") {
		t.Fatal("bio must be escaped")
	}
}

func TestRenderHTMLWithEmptyResume(t *testing.T) {
	html, err := RenderHTML(Resume{})
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	if !strings.Contains(html, "<title>Resume</title>") || strings.Contains(html, "<h2>Experience</h2>") {
		t.Fatalf("unexpected empty resume output")
	}
}

func TestExportDispatchesByFormat(t *testing.T) {
	svc := NewService()
	svc.converters[FormatPDF] = func(_ context.Context, html string, _ Resume) ([]byte, error) {
		return []byte("%PDF-" + html[:5]), nil
	}
	svc.converters[FormatDOCX] = func(context.Context, string, Resume) ([]byte, error) {
		return nil, ErrDOCXDependencyMissing
	}
	ctx := context.Background()

	htmlResult, err := svc.Export(ctx, sampleResume(), FormatHTML)
	if err != nil || htmlResult.Filename != "avery-quinn-resume.html" || !strings.HasPrefix(htmlResult.MimeType, "text/html") {
		t.Fatalf("unexpected html result %+v %v", htmlResult, err)
	}

	pdfResult, err := svc.Export(ctx, sampleResume(), FormatPDF)
	if err != nil || !strings.HasPrefix(string(pdfResult.Data), "%PDF-") || pdfResult.MimeType != "application/pdf" {
		t.Fatalf("unexpected pdf result %+v %v", pdfResult, err)
	}

	if _, err := svc.Export(ctx, sampleResume(), FormatDOCX); !errors.Is(err, ErrDOCXDependencyMissing) {
		t.Fatalf("expected docx dependency error, got %v", err)
	}
	if _, err := svc.Export(ctx, sampleResume(), Format("odt")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	if f, ok := ParseFormat(""); !ok || f != FormatHTML {
		t.Fatalf("empty format should default to html, got %q", f)
	}
	if f, ok := ParseFormat("docx"); !ok || f != FormatDOCX {
		t.Fatalf("docx should parse, got %q", f)
	}
	if _, ok := ParseFormat("exe"); ok {
		t.Fatal("unknown format should be rejected")
	}
}

func TestFilenameFor(t *testing.T) {
	cases := map[string]string{
		"Avery Quinn":           "avery-quinn-resume",
		"../../etc/passwd":      "etc-passwd-resume",
		"":                      "resume",
		"Zoë  Ångström":         "zoe-angstrom-resume",
		strings.Repeat("x", 80): strings.Repeat("x", 40) + "-resume",
	}
	for input, want := range cases {
		if got := filenameFor(input); got != want {
			t.Fatalf("filenameFor(%q) = %q, want %q", input, got, want)
		}
	}
}
