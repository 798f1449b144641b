package export

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Paper is a page size in inches.
type Paper struct {
	Width, Height float64
}

var (
	PaperA4     = Paper{Width: 8.27, Height: 11.69}
	PaperLetter = Paper{Width: 8.5, Height: 11}
)

const pdfMarginInches = 0.5

// chromeRenderer prints HTML through headless Chrome. The binary is looked up
// once; a missing browser is reported as ErrPDFDependencyMissing.
type chromeRenderer struct {
	paper   Paper
	timeout time.Duration

	once   sync.Once
	binary string
}

func newChromeRenderer(paper Paper) *chromeRenderer {
	return &chromeRenderer{paper: paper, timeout: 30 * time.Second}
}

func (c *chromeRenderer) lookup() string {
	c.once.Do(func() {
		for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
			if path, err := exec.LookPath(name); err == nil {
				c.binary = path
				return
			}
		}
	})
	return c.binary
}

func (c *chromeRenderer) render(ctx context.Context, html string) ([]byte, error) {
	binary := c.lookup()
	if binary == "" {
		return nil, fmt.Errorf("%w: no chrome or chromium binary on PATH", ErrPDFDependencyMissing)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(binary),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(false).
				WithPaperWidth(c.paper.Width).
				WithPaperHeight(c.paper.Height).
				WithMarginTop(pdfMarginInches).
				WithMarginBottom(pdfMarginInches).
				WithMarginLeft(pdfMarginInches).
				WithMarginRight(pdfMarginInches).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print resume pdf: %w", err)
	}
	return pdf, nil
}
