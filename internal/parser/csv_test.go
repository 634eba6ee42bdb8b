package parser

import (
	"strconv"
	"strings"
	"testing"
)

func TestParseCSVFormatsRowsWithHeader(t *testing.T) {
	data := []byte("Name,Age\nAlice,30\nBob,\n")
	r, err := ParseCSV(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(r.Pages))
	}
	want := "Name: Alice | Age: 30\nName: Bob"
	if r.Pages[0].Text != want {
		t.Errorf("got %q, want %q", r.Pages[0].Text, want)
	}
}

func TestParseCSVEmptyInput(t *testing.T) {
	r, err := ParseCSV([]byte(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Pages) != 0 {
		t.Errorf("expected 0 pages for empty input, got %d", len(r.Pages))
	}
}

func TestParseCSVPaginatesByRowCount(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("Col\n")
	for i := 0; i < 250; i++ {
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString("\n")
	}

	r, err := ParseCSV([]byte(sb.String()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Pages) != 3 {
		t.Fatalf("expected 3 pages for 250 rows, got %d", len(r.Pages))
	}
}

func TestParseCSVTruncatesAtMaxRows(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("Col\n")
	for i := 0; i < csvMaxRows+5; i++ {
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString("\n")
	}

	r, err := ParseCSV([]byte(sb.String()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Metadata["truncated"] != true {
		t.Error("expected truncated=true in metadata")
	}
	if r.Metadata["row_count"] != csvMaxRows {
		t.Errorf("expected row_count capped at %d, got %v", csvMaxRows, r.Metadata["row_count"])
	}
}

func TestFormatRowFallsBackToColumnIndex(t *testing.T) {
	got := formatRow([]string{"A"}, []string{"x", "y"})
	want := "A: x | col2: y"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
