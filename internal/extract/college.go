package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	collegeHeader  = regexp.MustCompile(`(?i)BACHELOR|MASTER|DIPLOMA|\bB\.?TECH\b|\bM\.?TECH\b`)
	collegeSession = regexp.MustCompile(`\((\d{4}\s*[-/]\s*\d{2})\)`)
	collegeRoman   = regexp.MustCompile(`(?i)\b([IVXLCDM]+)\b\s*SEMESTER`)

	collegeName = []Pattern{
		Group1(`(?i)Name\s*of\s*Student\s*:?\s*([A-Z .']+?)(?:\s+Enrol|$)`),
		func(text string) (string, bool) {
			v, ok := collegeNameLoose(text)
			if !ok {
				return "", false
			}
			return collegeNameTail.ReplaceAllString(collapse(v), ""), true
		},
	}
	collegeNameLoose = Group1(`(?i)Name\s*of\s*Student\s*:?\s*([A-Z .']+)`)
	collegeNameTail  = regexp.MustCompile(`(?i)\s*(Enrolment|Enrollment|Roll).*$`)

	collegeFather = []Pattern{
		Group1(`(?i)Father'?s\s+Name\s*:?.?\s*([A-Z ]+?)(?:\s+(?:Roll|Enrol|Enrollment|Enrolment)\b|$)`),
		Group1(`(?i)Father'?s\s+Name\s*:?.?\s*([A-Z ]+)`),
	}
	collegeRoll = []Pattern{
		Group1(`(?i)Roll\s*No\s*:?\s*([A-Z0-9\-/]+)`),
	}
	collegeEnrollment = []Pattern{
		Group1(`(?i)Enrol{1,2}ment\s*No\s*:?\s*([A-Z0-9\-/]+)`),
	}

	collegeSubjectRow = regexp.MustCompile(
		`(?i)^(?P<code>[A-Z]{2,4}\d{3})\s+(?P<name>[A-Z0-9 &().,\-]+?)\s+(?P<credits>\d)\s+` +
			`(?P<trail>.*?)(?P<total>\d{2,3})\s+(?P<grade>[A-Za-z][+]?|O)?\s*(?P<gp>\d+(?:\.[\d]+)?)?$`)
	collegeTrailNumber = regexp.MustCompile(`\d{1,3}`)

	collegeSGPA       = regexp.MustCompile(`(?i)SGPA\s*[:=]?\s*(\d+(?:\.\d+)?)`)
	collegeCGPA       = regexp.MustCompile(`(?i)CGPA\s*[:=]?\s*(\d+(?:\.\d+)?)`)
	collegeRegistered = regexp.MustCompile(`(?i)Total\s+No\.\s+of\s+Credits\s+registered\s*[:=]?\s*(\d+)`)
	collegeEarned     = regexp.MustCompile(`(?i)Total\s+No\.\s+of\s+Credits\s+earned\s*[:=]?\s*(\d+)`)
	collegeStatus     = regexp.MustCompile(`(?i)Result\s*[:=]?\s*([A-Z ]+)`)
)

func extractCollege(info, marks string) *StudentRecord {
	// Single line patterns anchor on end of text, which must not include
	// the final newline.
	info = strings.TrimRight(info, "\r\n")
	marks = strings.TrimRight(marks, "\r\n")

	rec := &StudentRecord{
		Board:        string(BoardCollege),
		StudentName:  field(info, collegeName...),
		RollNumber:   field(info, collegeRoll...),
		EnrollmentNo: field(info, collegeEnrollment...),
		College:      collegeProgramme(info, marks),
		Subjects:     []SubjectRecord{},
		Result:       collegeResult(marks),
	}
	rec.FatherName = field(info, collegeFather...)
	if rec.FatherName == nil {
		rec.FatherName = field(marks, collegeFather...)
	}

	for _, line := range strings.Split(marks, "\n") {
		if sub, ok := collegeSubject(collapse(line)); ok {
			rec.Subjects = append(rec.Subjects, sub)
		}
	}
	return rec
}

func collegeProgramme(info, marks string) *CollegeInfo {
	ci := &CollegeInfo{}
	for _, line := range strings.Split(info, "\n") {
		if !collegeHeader.MatchString(line) {
			continue
		}
		course := strings.TrimSpace(line)
		ci.Course = &course
		if m := collegeSession.FindStringSubmatch(line); m != nil {
			session := strings.ReplaceAll(m[1], " ", "")
			ci.Session = &session
		}
		break
	}
	for _, text := range []string{info, marks} {
		if m := collegeRoman.FindStringSubmatch(text); m != nil {
			sem := strings.ToUpper(m[1])
			ci.Semester = &sem
			break
		}
	}
	return ci
}

// collegeSubject parses one collapsed grade sheet row. The trail between the
// credits and the total holds alternating maximum and obtained marks.
func collegeSubject(row string) (SubjectRecord, bool) {
	m := collegeSubjectRow.FindStringSubmatch(row)
	if m == nil {
		return SubjectRecord{}, false
	}
	group := func(name string) string { return m[collegeSubjectRow.SubexpIndex(name)] }

	sub := SubjectRecord{
		Code: collapse(group("code")),
		Name: collapse(group("name")),
	}
	if n, err := strconv.Atoi(group("credits")); err == nil {
		sub.Credits = &n
	}
	if n, err := strconv.Atoi(group("total")); err == nil {
		sub.TotalMarks = &n
	}
	sub.InternalMarks, sub.ExternalMarks = splitObtained(group("trail"))

	sub.Grade = collapse(group("grade"))
	if gp := group("gp"); gp != "" {
		if v, err := strconv.ParseFloat(gp, 64); err == nil {
			sub.GradePoint = &v
			if sub.Grade == "" {
				sub.Grade = GradeFromPoint(v)
			}
		}
	}
	return sub, true
}

// splitObtained derives internal and external marks from the max/obtained
// pairs. Every obtained value but the last is internal; the last is the
// external examination. A lone pair is all external.
func splitObtained(trail string) (internal, external *int) {
	var nums []int
	for _, s := range collegeTrailNumber.FindAllString(trail, -1) {
		n, _ := strconv.Atoi(s)
		nums = append(nums, n)
	}
	if len(nums) < 2 {
		return nil, nil
	}
	var obtained []int
	for i := 1; i < len(nums); i += 2 {
		obtained = append(obtained, nums[i])
	}
	if len(obtained) == 1 {
		return intPtr(0), intPtr(obtained[0])
	}
	sum := 0
	for _, v := range obtained[:len(obtained)-1] {
		sum += v
	}
	return intPtr(sum), intPtr(obtained[len(obtained)-1])
}

func collegeResult(marks string) *Result {
	r := &Result{}
	if m := collegeSGPA.FindStringSubmatch(marks); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			r.SGPA = floatPtr(v)
		}
	}
	if m := collegeCGPA.FindStringSubmatch(marks); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			r.CGPA = floatPtr(v)
		}
	}
	if m := collegeRegistered.FindStringSubmatch(marks); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			r.TotalCreditsRegistered = intPtr(n)
		}
	}
	if m := collegeEarned.FindStringSubmatch(marks); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			r.TotalCreditsEarned = intPtr(n)
		}
	}
	if m := collegeStatus.FindStringSubmatch(marks); m != nil {
		if s := clean(m[1]); s != nil {
			up := strings.ToUpper(*s)
			r.Status = &up
		}
	}
	return r
}
