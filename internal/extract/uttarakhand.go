package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	ukName = []Pattern{
		Group1(`according to the Board's record\s+([A-Z][A-Z ]+)`),
		// The Hindi preamble puts the transliterated name on the next line.
		Capture(regexp.MustCompile(`परिषद् के अभिलेखानुसार\s+([^\n]+)\n[^\n]*\s+([A-Z][A-Z ]+)`), 2),
	}
	ukMother = []Pattern{
		Group1(`Son/Daughter of Mrs\.\s+([A-Z][A-Z ]+)`),
		Group1(`आत्मज/आत्मजा श्रीमती\s+[^\n]*\s+([A-Z][A-Z ]+)`),
	}
	ukFather = []Pattern{
		Group1(`and Mr\.\s+([A-Z][A-Z ]+)`),
		Group1(`एवं श्री\s+[^\n]*\s+([A-Z][A-Z ]+)`),
	}
	ukSchool = []Pattern{
		Group1(`from School\s+([A-Z][A-Z\.\s]+)`),
	}

	ukNoise = regexp.MustCompile(`(SUBJECT|GRADE|PASSED|RESULT|POSITIONAL|ADDITIONAL SUBJECT|DATED)`)
	// The name runs up to the first token that does not start with a letter,
	// so multi word subjects such as SOCIAL SCIENCE stay whole.
	ukSubjectRow = regexp.MustCompile(`^(\d{3})\s+([A-Z][A-Z ]+?)\s+([^A-Z\s].*)$`)
	ukNumber     = regexp.MustCompile(`\d{2,3}`)
)

func extractUttarakhand(info, marks string) *StudentRecord {
	rec := &StudentRecord{
		Board:       string(BoardUttarakhand),
		StudentName: field(info, ukName...),
		MotherName:  field(info, ukMother...),
		FatherName:  field(info, ukFather...),
		SchoolName:  field(info, ukSchool...),
		Subjects:    []SubjectRecord{},
	}

	for _, line := range strings.Split(marks, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || ukNoise.MatchString(line) {
			continue
		}
		m := ukSubjectRow.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := collapse(m[2])
		if name == "" {
			continue
		}
		var nums []int
		for _, s := range ukNumber.FindAllString(m[3], -1) {
			n, _ := strconv.Atoi(s)
			nums = append(nums, n)
		}

		sub := SubjectRecord{Code: m[1], Name: name}
		switch {
		case name == "SOCIAL SCIENCE" && len(nums) >= 3:
			sub.TheoryMarks, sub.InternalMarks, sub.TotalMarks = intPtr(nums[0]), intPtr(nums[1]), intPtr(nums[2])
		case (name == "MATHEMATICS" || name == "SCIENCE") && len(nums) >= 3:
			sub.TheoryMarks, sub.PracticalMarks, sub.TotalMarks = intPtr(nums[0]), intPtr(nums[1]), intPtr(nums[2])
		case len(nums) >= 2:
			sub.TheoryMarks, sub.TotalMarks = intPtr(nums[0]), intPtr(nums[len(nums)-1])
		case len(nums) == 1:
			sub.TheoryMarks, sub.TotalMarks = intPtr(nums[0]), intPtr(nums[0])
		}
		if sub.TotalMarks != nil {
			sub.MarksInWords = DigitsToWords(*sub.TotalMarks)
		}
		rec.Subjects = append(rec.Subjects, sub)
	}
	return rec
}
