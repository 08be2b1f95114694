package extract

import (
	"log/slog"
	"strings"
)

// Board names a supported marksheet grammar.
type Board string

const (
	BoardCBSE        Board = "CBSE"
	BoardICSE        Board = "ICSE"
	BoardUttarakhand Board = "UTTARAKHAND"
	BoardCollege     Board = "COLLEGE"
)

// Func extracts a record from the information and marks text of one
// marksheet. It must be a pure function of its inputs.
type Func func(info, marks string) *StudentRecord

var extractors = map[Board]Func{
	BoardCBSE:        extractCBSE,
	BoardICSE:        extractICSE,
	BoardUttarakhand: extractUttarakhand,
	BoardCollege:     extractCollege,
}

// NormalizeBoard maps a detector or caller supplied board name onto a
// supported grammar. Matching ignores case; unknown names report false.
func NormalizeBoard(name string) (Board, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case n == "":
		return "", false
	case strings.Contains(n, "cbse"):
		return BoardCBSE, true
	case strings.Contains(n, "icse"):
		return BoardICSE, true
	case strings.Contains(n, "uttarakhand"):
		return BoardUttarakhand, true
	case strings.Contains(n, "college"):
		return BoardCollege, true
	}
	for _, tok := range strings.FieldsFunc(n, func(r rune) bool { return r < 'a' || r > 'z' }) {
		if tok == "uk" {
			return BoardUttarakhand, true
		}
	}
	return "", false
}

// Boards lists the supported grammars in classifier id order.
func Boards() []Board {
	return []Board{BoardUttarakhand, BoardCBSE, BoardICSE, BoardCollege}
}

// SupportedBoards renders Boards for messages, e.g. "UTTARAKHAND, CBSE".
func SupportedBoards() string {
	names := make([]string, 0, len(extractors))
	for _, b := range Boards() {
		names = append(names, string(b))
	}
	return strings.Join(names, ", ")
}

// Extract parses info and marks text with the grammar for board. It returns
// nil when the board is not supported. Subjects are never nil and never
// share a name.
func Extract(info, marks, board string) *StudentRecord {
	b, ok := NormalizeBoard(board)
	if !ok {
		return nil
	}
	rec := extractors[b](info, marks)
	rec.Subjects = dedupe(rec.Subjects)
	for _, s := range rec.Subjects {
		if !s.Consistent() {
			sum, _ := s.ComponentSum()
			slog.Debug("Subject total disagrees with its components",
				"board", b, "subject", s.Name, "total", *s.TotalMarks, "component_sum", sum)
		}
	}
	slog.Debug("Extracted record", "board", b, "subjects", rec.SubjectNames())
	return rec
}

// dedupe drops unnamed subjects and repeats of a name, keeping the first.
func dedupe(subjects []SubjectRecord) []SubjectRecord {
	out := make([]SubjectRecord, 0, len(subjects))
	seen := make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		if s.Name == "" {
			continue
		}
		if _, dup := seen[s.Name]; dup {
			continue
		}
		seen[s.Name] = struct{}{}
		out = append(out, s)
	}
	return out
}
