package parser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// cutFirstPages produces a temporary PDF containing only the first n pages
// of src, using qpdf if present and falling back to pdftk. The caller owns
// cleanup of the returned path. Pages beyond max_pages are excluded before
// submission so that GROBID never misreads a references section as
// first-class authors.
func cutFirstPages(ctx context.Context, src string, n int) (string, error) {
	out, err := os.CreateTemp("", "scanbib-pagecut-*.pdf")
	if err != nil {
		return "", err
	}
	outPath := out.Name()
	out.Close()

	rangeSpec := fmt.Sprintf("1-%d", n)
	if _, err := exec.LookPath("qpdf"); err == nil {
		cmd := exec.CommandContext(ctx, "qpdf", "--empty", "--pages", src, rangeSpec, "--", outPath)
		if err := cmd.Run(); err == nil {
			return outPath, nil
		}
	}
	if _, err := exec.LookPath("pdftk"); err == nil {
		cmd := exec.CommandContext(ctx, "pdftk", src, "cat", rangeSpec, "output", outPath)
		if err := cmd.Run(); err == nil {
			return outPath, nil
		}
	}
	os.Remove(outPath)
	return "", fmt.Errorf("parser: no usable page-cut tool (qpdf/pdftk) found")
}
