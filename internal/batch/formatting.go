package batch

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/marksheet/internal/extract"
)

// formatBatchResults formats batch results in the specified format.
func formatBatchResults(r *Result, format string) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		return formatJSON(r)
	case "csv":
		return formatCSV(r)
	case "text", "":
		return formatText(r), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

type jsonReport struct {
	Summary Summary `json:"summary"`
	Items   []Item  `json:"items"`
}

func formatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(jsonReport{Summary: r.Summary(), Items: r.Items}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

func formatCSV(r *Result) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"file", "status", "board", "student_name", "roll_number", "subjects", "error"}); err != nil {
		return "", err
	}
	for _, it := range r.Items {
		rec := record(it)
		name, roll, subjects := "", "", "0"
		if rec != nil {
			name = deref(rec.StudentName)
			roll = deref(rec.RollNumber)
			subjects = strconv.Itoa(len(rec.Subjects))
		}
		row := []string{it.File, it.Status(), it.Board(), name, roll, subjects, it.Error}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

func formatText(r *Result) string {
	var sb strings.Builder
	for _, it := range r.Items {
		fmt.Fprintf(&sb, "%s: %s", it.File, it.Status())
		if it.Error != "" {
			fmt.Fprintf(&sb, " (%s)", it.Error)
		} else if rec := record(it); rec != nil && rec.StudentName != nil {
			fmt.Fprintf(&sb, " [%s] %s", it.Board(), *rec.StudentName)
		}
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	writeStats(&sb, r)
	return sb.String()
}

// PrintStats writes the batch summary to w.
func (r *Result) PrintStats(w io.Writer) {
	var sb strings.Builder
	writeStats(&sb, r)
	_, _ = io.WriteString(w, sb.String())
}

func writeStats(sb *strings.Builder, r *Result) {
	s := r.Summary()
	fmt.Fprintf(sb, "Processed %d files in %v with %d workers\n", s.Total, r.Duration.Round(time.Millisecond), r.WorkerCount)
	fmt.Fprintf(sb, "  valid: %d\n  invalid_logo: %d\n  no_photo: %d\n  no_tables: %d\n  partial_match: %d\n  error: %d\n",
		s.Valid, s.InvalidLogo, s.NoPhoto, s.NoTables, s.PartialMatch, s.Errors)
	fmt.Fprintf(sb, "Success rate: %.1f%%\n", s.SuccessRate*100)
	if len(s.Boards) > 0 {
		sb.WriteString("Boards:\n")
		for _, name := range s.BoardNames() {
			fmt.Fprintf(sb, "  %s: %d\n", name, s.Boards[name])
		}
	}
}

func record(it Item) *extract.StudentRecord {
	switch {
	case it.Result != nil:
		return it.Result.Extraction.Data
	case it.Fixed != nil:
		return it.Fixed.Data
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
