package cascade

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// extractFirstNPagesText returns the text-layer content of a PDF's first n
// pages, falling back to OCR (tesseract over pdftoppm-rendered pages) when
// the text layer is empty or absent, as scanned sources have none.
func extractFirstNPagesText(ctx context.Context, pdfPath string, n int) (string, error) {
	text, err := extractTextLayer(ctx, pdfPath, n)
	if err == nil && len(bytes.TrimSpace([]byte(text))) > 0 {
		return text, nil
	}
	return ocrFirstNPages(ctx, pdfPath, n)
}

func extractTextLayer(ctx context.Context, pdfPath string, n int) (string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return "", fmt.Errorf("textextract: missing pdftotext executable")
	}
	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", "-f", "1", "-l", strconv.Itoa(n), pdfPath, "-")
	cmd.Stdout = &buf
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ocrFirstNPages renders each of the first n pages to an image via pdftoppm
// and runs tesseract over each, concatenating results with a form-feed
// between pages so downstream page-boundary logic (identifier.ExtractFirstPage)
// still works on OCR'd text.
func ocrFirstNPages(ctx context.Context, pdfPath string, n int) (string, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return "", fmt.Errorf("textextract: missing pdftoppm executable")
	}
	if _, err := exec.LookPath("tesseract"); err != nil {
		return "", fmt.Errorf("textextract: missing tesseract executable")
	}
	tmpDir, err := os.MkdirTemp("", "scanbib-ocr-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	prefix := tmpDir + "/page"
	cmd := exec.CommandContext(ctx, "pdftoppm", "-png", "-f", "1", "-l", strconv.Itoa(n), pdfPath, prefix)
	if err := cmd.Run(); err != nil {
		return "", err
	}

	var pages []string
	for i := 1; i <= n; i++ {
		imgPath := fmt.Sprintf("%s-%d.png", prefix, i)
		if i < 10 {
			imgPath = fmt.Sprintf("%s-0%d.png", prefix, i)
		}
		if _, err := os.Stat(imgPath); err != nil {
			continue
		}
		var out bytes.Buffer
		tess := exec.CommandContext(ctx, "tesseract", imgPath, "stdout")
		tess.Stdout = &out
		if err := tess.Run(); err != nil {
			continue
		}
		pages = append(pages, out.String())
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("textextract: ocr produced no text")
	}
	result := ""
	for i, p := range pages {
		if i > 0 {
			result += "\f"
		}
		result += p
	}
	return result, nil
}
