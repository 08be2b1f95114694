// Package extract turns recognised marksheet text into structured student
// records using one grammar per board.
package extract

// StudentRecord is the structured content of one marksheet.
//
// Identity fields every board exposes are always serialised, as null when no
// pattern matched. Board specific identifiers are omitted when absent.
type StudentRecord struct {
	Board        string          `json:"board"`
	StudentName  *string         `json:"student_name"`
	RollNumber   *string         `json:"roll_number,omitempty"`
	UniqueID     *string         `json:"unique_id,omitempty"`
	EnrollmentNo *string         `json:"enrollment_no,omitempty"`
	MotherName   *string         `json:"mother_name"`
	FatherName   *string         `json:"father_name"`
	SchoolName   *string         `json:"school_name"`
	SchoolCode   *string         `json:"school_code,omitempty"`
	College      *CollegeInfo    `json:"college,omitempty"`
	Subjects     []SubjectRecord `json:"subjects"`
	Result       *Result         `json:"result,omitempty"`
	Note         string          `json:"note,omitempty"`
}

// SubjectRecord is one row of the marks table.
type SubjectRecord struct {
	Code           string   `json:"code,omitempty"`
	Name           string   `json:"name"`
	TheoryMarks    *int     `json:"theory_marks,omitempty"`
	PracticalMarks *int     `json:"practical_marks,omitempty"`
	InternalMarks  *int     `json:"internal_marks,omitempty"`
	ExternalMarks  *int     `json:"external_marks,omitempty"`
	TotalMarks     *int     `json:"total_marks,omitempty"`
	Credits        *int     `json:"credits,omitempty"`
	Grade          string   `json:"grade,omitempty"`
	GradePoint     *float64 `json:"grade_point,omitempty"`
	MarksInWords   string   `json:"marks_in_words,omitempty"`
}

// CollegeInfo is the programme header of a college grade sheet.
type CollegeInfo struct {
	Course   *string `json:"course"`
	Semester *string `json:"semester"`
	Session  *string `json:"session"`
}

// Result holds the aggregate figures printed below the marks table.
type Result struct {
	TotalCreditsRegistered *int     `json:"total_credits_registered"`
	TotalCreditsEarned     *int     `json:"total_credits_earned"`
	SGPA                   *float64 `json:"sgpa"`
	CGPA                   *float64 `json:"cgpa"`
	Status                 *string  `json:"status"`
}

// ComponentSum adds the component marks present on the row. ok is false when
// fewer than two components are known, since a lone component says nothing
// about the total.
func (s SubjectRecord) ComponentSum() (sum int, ok bool) {
	if s.InternalMarks != nil && s.ExternalMarks != nil {
		return *s.InternalMarks + *s.ExternalMarks, true
	}
	n := 0
	for _, p := range []*int{s.TheoryMarks, s.PracticalMarks, s.InternalMarks} {
		if p != nil {
			sum += *p
			n++
		}
	}
	return sum, n >= 2
}

// Consistent reports whether the printed total agrees with the component
// sum. Rows with nothing to compare are consistent.
func (s SubjectRecord) Consistent() bool {
	if s.TotalMarks == nil {
		return true
	}
	sum, ok := s.ComponentSum()
	return !ok || sum == *s.TotalMarks
}

// SubjectNames lists subject names in record order.
func (r *StudentRecord) SubjectNames() []string {
	names := make([]string, 0, len(r.Subjects))
	for _, s := range r.Subjects {
		names = append(names, s.Name)
	}
	return names
}

// FallbackRecord is the placeholder returned to callers when nothing could be
// extracted for a school marksheet.
func FallbackRecord(board string) *StudentRecord {
	name := "OCR not available"
	return &StudentRecord{
		Board:       board,
		StudentName: &name,
		Subjects:    []SubjectRecord{},
		Note:        "OCR extraction failed",
	}
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
