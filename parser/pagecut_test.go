package parser

import (
	"context"
	"testing"
)

func TestCutFirstPages_MissingSourceFails(t *testing.T) {
	if _, err := cutFirstPages(context.Background(), "/nonexistent/source.pdf", 3); err == nil {
		t.Fatal("expected error for a nonexistent source file")
	}
}
