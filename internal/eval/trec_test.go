package eval

import (
	"strings"
	"testing"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
)

func TestParseQrels(t *testing.T) {
	input := `# msmarco dev subset
q1 0 doc1 2
q1 0 doc2 0

q2 0 doc3 1
`
	qrels, err := ParseQrels(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseQrels() error = %v", err)
	}
	if len(qrels) != 3 {
		t.Fatalf("ParseQrels() len = %d, want 3", len(qrels))
	}
	if qrels[0].QueryID != "q1" || qrels[0].DocID != "doc1" || qrels[0].Relevance != 2 {
		t.Errorf("qrels[0] = %+v", qrels[0])
	}
	if qrels[2].QueryID != "q2" || qrels[2].Relevance != 1 {
		t.Errorf("qrels[2] = %+v", qrels[2])
	}
}

func TestParseQrels_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing field", "q1 0 doc1\n"},
		{"bad relevance", "q1 0 doc1 high\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQrels(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !apperrors.IsCode(err, apperrors.CodeValidation) {
				t.Errorf("error code = %v, want validation", err)
			}
			if !strings.Contains(err.Error(), "line 1") {
				t.Errorf("error should name the line: %v", err)
			}
		})
	}
}

func TestParseRun(t *testing.T) {
	input := "q1 Q0 doc1 1 0.950000 bm25\nq1 Q0 doc2 2 0.870000 bm25\n"

	entries, err := ParseRun(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseRun() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ParseRun() len = %d, want 2", len(entries))
	}
	e := entries[0]
	if e.QueryID != "q1" || e.DocID != "doc1" || e.Rank != 1 || e.Score != 0.95 || e.RunTag != "bm25" {
		t.Errorf("entries[0] = %+v", e)
	}
}

func TestParseRun_Malformed(t *testing.T) {
	if _, err := ParseRun(strings.NewReader("q1 Q0 doc1 one 0.95 bm25\n")); err == nil {
		t.Error("expected error for non-numeric rank")
	}
	if _, err := ParseRun(strings.NewReader("q1 Q0 doc1 1 high bm25\n")); err == nil {
		t.Error("expected error for non-numeric score")
	}
}

func TestWriteRun_RoundTrip(t *testing.T) {
	entries, err := RunFromResults("q1", []string{"doc1", "doc2"}, []float64{0.95, 0.87}, "bm25")
	if err != nil {
		t.Fatalf("RunFromResults() error = %v", err)
	}
	if entries[0].Rank != 1 || entries[1].Rank != 2 {
		t.Errorf("ranks = %d, %d, want 1, 2", entries[0].Rank, entries[1].Rank)
	}

	var sb strings.Builder
	if err := WriteRun(&sb, entries); err != nil {
		t.Fatalf("WriteRun() error = %v", err)
	}
	if !strings.Contains(sb.String(), "q1 Q0 doc1 1 0.950000 bm25") {
		t.Errorf("unexpected output: %q", sb.String())
	}

	parsed, err := ParseRun(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("ParseRun() error = %v", err)
	}
	if len(parsed) != len(entries) || parsed[1] != entries[1] {
		t.Errorf("round trip mismatch: %+v vs %+v", parsed, entries)
	}
}

func TestRunFromResults_Mismatch(t *testing.T) {
	if _, err := RunFromResults("q1", []string{"doc1"}, nil, "bm25"); err == nil {
		t.Error("expected error for length mismatch")
	}
}
