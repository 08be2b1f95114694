package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	icseName = []Pattern{
		Group1(`Name\s+([A-Z\s]+)\s+of`),
		Group1(`Name\s+([A-Z\s]+)\b`),
		Group1(`^([A-Z\s]+)\s+of\s+[A-Z\s,]+`),
	}
	icseUniqueID = []Pattern{
		Group1(`(?i)UNIQUE ID\s*(\d{7,8})`),
	}
	// The school name runs from "of" to the Unique ID line or the <<< filler.
	icseSchool = []Pattern{
		Group1(`of\s+([A-Z][A-Z\s\.&,]+?)(?:\n\s*[Uu]nique|<<<)`),
	}

	icseParentIntro = regexp.MustCompile(`(?i)(Daughter|Son)\s+of`)
	icseMotherLine  = regexp.MustCompile(`(?i)^(?:smt|mrs)\.?(?:\s|$)`)
	icseMotherTitle = regexp.MustCompile(`(?i)^(?:smt|mrs)\.?\s*`)
	icseFatherLine  = regexp.MustCompile(`(?i)^(?:shri|mr)\.?(?:\s|$)`)
	icseFatherTitle = regexp.MustCompile(`(?i)^(?:shri|mr)\.?\s*`)

	icseHeader     = regexp.MustCompile(`(?i)(SUBJECTS|External Examination|Percentage Mark)`)
	icseRowLike    = regexp.MustCompile(`^[A-Z][A-Z &,.'-]+\s+\d`)
	icseNoise      = regexp.MustCompile(`(?i)(UNIQUE ID|Daughter|Smt|Shri|Mother|Father|Internal Assessment|GRADE|Date of birth|Head of the School|registration|COMMUNITY SERVICE|SUPW|NEW DELHI)`)
	icseSubjectRow = []icseRow{
		// HINDI 092 92 NINE TWO
		{re: regexp.MustCompile(`^([A-Z][A-Z &,.'-]+?)\s+(\d{3})\s+(\d{2,3})\s+([A-Z]+(?:\s+[A-Z]+)+)$`)},
		// ENGLISH 80 EIGHT ZERO
		{re: regexp.MustCompile(`^([A-Z][A-Z &,.'-]+?)\s+(\d{2,3})\s+([A-Z]+(?:\s+[A-Z]+)+)$`)},
		// PHYSICS 83 EIGHTTHREE T, a single misread word plus grade
		{re: regexp.MustCompile(`^([A-Z][A-Z &,.'-]+?)\s+(\d{2,3})\s+([A-Z]+)\s+([A-Z])\s*$`), minWord: 4},
		// MATHEMATICS 79 SEVEN NINE B
		{re: regexp.MustCompile(`^([A-Z][A-Z &,.'-]+?)\s+(\d{2,3})\s+([A-Z]+(?:\s+[A-Z]+)+)\s+([A-Z])\s*$`)},
		// ENGLISH LANGUAGE 076
		{re: regexp.MustCompile(`^([A-Z][A-Z &,.'-]+?)\s+0?(\d{2,3})\s*$`)},
	}
)

// icseRow is one subject line layout. Group 1 is the name, group 2 the
// marks. minWord, when set, is the shortest acceptable marks-in-words token
// in group 3.
type icseRow struct {
	re      *regexp.Regexp
	minWord int
}

func (r icseRow) match(line string) (name string, marks int, ok bool) {
	m := r.re.FindStringSubmatch(line)
	if m == nil {
		return "", 0, false
	}
	if r.minWord > 0 && len(m[3]) < r.minWord {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return collapse(m[1]), n, true
}

func extractICSE(info, marks string) *StudentRecord {
	rec := &StudentRecord{
		Board:       string(BoardICSE),
		StudentName: field(info, icseName...),
		UniqueID:    raw(info, icseUniqueID...),
		SchoolName:  field(info, icseSchool...),
	}
	rec.MotherName, rec.FatherName = icseParents(info)
	rec.Subjects = icseSubjects(marks)
	return rec
}

// icseParents reads the "Daughter of" block: the mother and father lines
// follow within the next four lines, each introduced by a title.
func icseParents(info string) (mother, father *string) {
	lines := strings.Split(info, "\n")
	for i, line := range lines {
		if !icseParentIntro.MatchString(line) {
			continue
		}
		end := min(i+5, len(lines))
		mother = titledLine(lines[i+1:end], icseMotherLine, icseMotherTitle)
		father = titledLine(lines[i+1:end], icseFatherLine, icseFatherTitle)
		return mother, father
	}
	return nil, nil
}

func titledLine(lines []string, is, title *regexp.Regexp) *string {
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" && is.MatchString(l) {
			return clean(title.ReplaceAllString(l, ""))
		}
	}
	return nil
}

func icseSubjects(marks string) []SubjectRecord {
	var subjects []SubjectRecord
	inTable := false
	for _, line := range strings.Split(marks, "\n") {
		normalized := collapse(line)
		if normalized == "" {
			continue
		}
		if icseHeader.MatchString(line) {
			inTable = true
			continue
		}
		if !inTable {
			if !icseRowLike.MatchString(normalized) {
				continue
			}
			inTable = true
		}
		if icseNoise.MatchString(normalized) {
			continue
		}
		for _, row := range icseSubjectRow {
			name, n, ok := row.match(normalized)
			if !ok {
				continue
			}
			subjects = append(subjects, SubjectRecord{
				Name:         name,
				TotalMarks:   intPtr(n),
				MarksInWords: DigitsToWords(n),
			})
			break
		}
	}
	return dedupe(subjects)
}
