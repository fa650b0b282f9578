package parser

import (
	"errors"
	"strings"
	"testing"
)

func TestPDFParser_Malformed(t *testing.T) {
	p := &PDFParser{}
	_, err := p.Parse(strings.NewReader("this is not a pdf"), "cctp.pdf")
	if !errors.Is(err, ErrMalformedBody) {
		t.Fatalf("expected ErrMalformedBody, got %v", err)
	}
}

func TestPDFParser_ForFileOptions(t *testing.T) {
	pr, err := ForFile("a.PDF", Options{PDFFallbackPdftotext: true})
	if err != nil {
		t.Fatal(err)
	}
	pdf, ok := pr.(*PDFParser)
	if !ok || !pdf.FallbackPdftotext {
		t.Errorf("expected PDF parser with fallback, got %#v", pr)
	}
}
