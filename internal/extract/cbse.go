package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	cbseName = []Pattern{
		Group1(`Name of Candidate\s+([A-Z][A-Z ]+)`),
		Group1(`This is to certify that\s+([A-Z][A-Z ]+)`),
		Group1(`([A-Z][A-Z ]+)\s+(?:has achieved|की शैक्षणिक)`),
	}
	cbseRoll = []Pattern{
		Group1(`Roll No\.?\s*(\d+)`),
		Group1(`अनुक्रमांक\s*(\d+)`),
	}
	cbseMother = []Pattern{
		Group1(`Mother'?s Name\s+([A-Z][A-Z ]+)`),
		Group1(`माता का नाम\s+([A-Z][A-Z ]+)`),
	}
	cbseFather = []Pattern{
		Group1(`Father'?s/Guardian'?s Name\s+([A-Z][A-Z ]+)`),
		Group1(`Father'?s Name\s+([A-Z][A-Z ]+)`),
		Group1(`पिता /संरक्षक का नाम\s+([A-Z][A-Z ]+)`),
	}
	// Group 1 is the five digit school code, group 2 the name.
	cbseSchool = []*regexp.Regexp{
		regexp.MustCompile(`School\s*(\d{5})\s*-?\s*([A-Z][A-Z &\-,\.]+)`),
		regexp.MustCompile(`विद्यालय\s*(\d{5})\s*-?\s*([A-Z][A-Z &\-,\.]+)`),
		regexp.MustCompile(`(\d{5})\s*-?\s*([A-Z][A-Z &\-,\.]+)`),
	}

	// code, name, theory, practical, total, total in words, grade.
	cbseSubjectRow = regexp.MustCompile(
		`^\s*(\d{3})\s+([A-Z][A-Z &\-\.]+?)\s+([0-9]{2,3}|xxx)?\s+([0-9]{2,3}|xxx)?\s+([0-9]{2,3})?\s+([A-Z ]+(?:[A-Z]+)?)?\s*([A-Z]\d)?\s*$`)
)

func extractCBSE(info, marks string) *StudentRecord {
	rec := &StudentRecord{
		Board:       string(BoardCBSE),
		StudentName: field(info, cbseName...),
		RollNumber:  raw(info, cbseRoll...),
		MotherName:  field(info, cbseMother...),
		FatherName:  field(info, cbseFather...),
		Subjects:    []SubjectRecord{},
	}
	for _, re := range cbseSchool {
		if m := re.FindStringSubmatch(info); m != nil {
			code := m[1]
			rec.SchoolCode = &code
			rec.SchoolName = clean(m[2])
			break
		}
	}

	for _, line := range strings.Split(marks, "\n") {
		m := cbseSubjectRow.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		name := collapse(m[2])
		if name == "" {
			continue
		}
		sub := SubjectRecord{
			Code:           m[1],
			Name:           name,
			TheoryMarks:    parseMark(m[3]),
			PracticalMarks: parseMark(m[4]),
			TotalMarks:     parseMark(m[5]),
			Grade:          m[7],
		}
		// Spelled from the parsed total; the printed words are often misread.
		if sub.TotalMarks != nil {
			sub.MarksInWords = DigitsToWords(*sub.TotalMarks)
		}
		rec.Subjects = append(rec.Subjects, sub)
	}
	return rec
}

// parseMark reads a marks cell. Empty cells and the "xxx" placeholder used
// for subjects without practicals yield nil.
func parseMark(s string) *int {
	if s == "" || strings.EqualFold(s, "xxx") {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
