package handler

import (
	"testing"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
)

func TestInferSourceType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		filename    string
		want        model.SourceType
		wantOK      bool
	}{
		{"declared pdf", "application/pdf", "report.pdf", model.SourcePDF, true},
		{"declared csv wins over extension", "text/csv", "data.txt", model.SourceCSV, true},
		{"generic type falls back to extension", "application/octet-stream", "data.csv", model.SourceCSV, true},
		{"extension is case-insensitive", "", "REPORT.PDF", model.SourcePDF, true},
		{"htm alias", "", "index.htm", model.SourceHTML, true},
		{"unknown both ways", "application/zip", "archive.zip", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := inferSourceType(tt.contentType, tt.filename)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("inferSourceType(%q, %q) = %q, %v; want %q, %v",
					tt.contentType, tt.filename, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSniffAgainstDeclared(t *testing.T) {
	pdfBytes := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF")
	htmlBytes := []byte("<!DOCTYPE html><html><body><p>hello</p></body></html>")
	plainBytes := []byte("just some prose, nothing structured about it")

	if _, matches := sniffAgainstDeclared(mimetype.Detect(pdfBytes), model.SourcePDF); !matches {
		t.Error("expected PDF bytes to match a declared pdf version")
	}
	if sniffed, matches := sniffAgainstDeclared(mimetype.Detect(pdfBytes), model.SourceDOCX); matches {
		t.Errorf("expected PDF bytes declared as docx to mismatch, sniffed %q", sniffed)
	}
	if _, matches := sniffAgainstDeclared(mimetype.Detect(htmlBytes), model.SourceHTML); !matches {
		t.Error("expected HTML bytes to match a declared html version")
	}
	// Prose sniffs as text/plain; a declared txt version must pass.
	if _, matches := sniffAgainstDeclared(mimetype.Detect(plainBytes), model.SourceTXT); !matches {
		t.Error("expected plain text bytes to match a declared txt version")
	}
}
