package eval

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
)

// Qrel is a single TREC relevance judgment line: "qid 0 docid rel".
type Qrel struct {
	QueryID   string
	DocID     string
	Relevance int
}

// RunEntry is a single TREC run line: "qid Q0 docid rank score tag".
type RunEntry struct {
	QueryID string
	DocID   string
	Rank    int
	Score   float64
	RunTag  string
}

// Line formats the entry in TREC run format.
func (e RunEntry) Line() string {
	return fmt.Sprintf("%s Q0 %s %d %.6f %s", e.QueryID, e.DocID, e.Rank, e.Score, e.RunTag)
}

// ParseQrels reads TREC qrels from r. Blank lines and lines starting
// with '#' are skipped. Malformed lines produce a validation error
// naming the line number.
func ParseQrels(r io.Reader) ([]Qrel, error) {
	var qrels []Qrel
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, apperrors.ValidationError(
				fmt.Sprintf("qrels line %d: expected 4 fields, got %d", lineNo, len(fields)))
		}

		rel, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, apperrors.ValidationError(
				fmt.Sprintf("qrels line %d: invalid relevance %q", lineNo, fields[3]))
		}

		qrels = append(qrels, Qrel{
			QueryID:   fields[0],
			DocID:     fields[2],
			Relevance: rel,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "reading qrels", err)
	}
	return qrels, nil
}

// ParseRun reads a TREC run file from r. Entries keep file order; the
// caller is responsible for rank consistency.
func ParseRun(r io.Reader) ([]RunEntry, error) {
	var entries []RunEntry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 6 {
			return nil, apperrors.ValidationError(
				fmt.Sprintf("run line %d: expected 6 fields, got %d", lineNo, len(fields)))
		}

		rank, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, apperrors.ValidationError(
				fmt.Sprintf("run line %d: invalid rank %q", lineNo, fields[3]))
		}
		score, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, apperrors.ValidationError(
				fmt.Sprintf("run line %d: invalid score %q", lineNo, fields[4]))
		}

		entries = append(entries, RunEntry{
			QueryID: fields[0],
			DocID:   fields[2],
			Rank:    rank,
			Score:   score,
			RunTag:  fields[5],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "reading run", err)
	}
	return entries, nil
}

// WriteRun writes entries to w in TREC run format.
func WriteRun(w io.Writer, entries []RunEntry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintln(bw, e.Line()); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, "writing run", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "writing run", err)
	}
	return nil
}

// RunFromResults converts a ranked (docID, score) listing for one
// query into TREC run entries with ranks starting at 1.
func RunFromResults(queryID string, docIDs []string, scores []float64, tag string) ([]RunEntry, error) {
	if len(docIDs) != len(scores) {
		return nil, apperrors.ValidationError("docIDs and scores length mismatch")
	}
	entries := make([]RunEntry, len(docIDs))
	for i := range docIDs {
		entries[i] = RunEntry{
			QueryID: queryID,
			DocID:   docIDs[i],
			Rank:    i + 1,
			Score:   scores[i],
			RunTag:  tag,
		}
	}
	return entries, nil
}
