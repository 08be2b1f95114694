package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TextFixture is the recognized text of one marksheet's two tables.
type TextFixture struct {
	Name  string
	Board string
	Info  string
	Marks string
}

// CBSEFixture is a class X CBSE marksheet with a duplicated subject row.
var CBSEFixture = TextFixture{
	Name:  "cbse",
	Board: "CBSE",
	Info: "Name of Candidate RAHUL SHARMA\n" +
		"Roll No. 1234567\n" +
		"Mother's Name SUNITA SHARMA\n" +
		"Father's/Guardian's Name RAJESH SHARMA\n" +
		"School 12345 - DELHI PUBLIC SCHOOL",
	Marks: "SUB CODE SUBJECT THEORY PRACTICAL TOTAL GRADE\n" +
		"041 ENGLISH 45 30 75 SEVEN FIVE A1\n" +
		"085 HINDI 70 xxx 70 SEVEN ZERO B1\n" +
		"041 ENGLISH 45 30 75 SEVEN FIVE A1\n",
}

// CollegeFixture is a fourth-semester grade sheet.
var CollegeFixture = TextFixture{
	Name:  "college",
	Board: "COLLEGE",
	Info: "BACHELOR OF COMPUTER APPLICATIONS (2023 - 24)\n" +
		"IV SEMESTER EXAMINATION\n" +
		"Name of Student: ANITA SINGH Enrolment No: EN2023001\n" +
		"Father's Name: MOHAN SINGH Roll No: 230045\n",
	Marks: "CODE SUBJECT CREDITS MAX OBT MAX OBT TOTAL GRADE GP\n" +
		"BCA401 DATA STRUCTURES 4 30 25 70 60 85 A+ 9\n" +
		"BCA402 OPERATING SYSTEMS 3 30 20 70 55 75 8\n" +
		"BCA403 LAB 2 100 90 90 O 10\n" +
		"Total No. of Credits registered: 9\n" +
		"Total No. of Credits earned: 9\n" +
		"SGPA: 8.67\n" +
		"Result: pass\n",
}

// Write stores the fixture as <dir>/<name>_info.txt and <dir>/<name>_marks.txt
// and returns both paths.
func (f TextFixture) Write(t *testing.T, dir string) (infoPath, marksPath string) {
	t.Helper()

	infoPath = filepath.Join(dir, f.Name+"_info.txt")
	marksPath = filepath.Join(dir, f.Name+"_marks.txt")
	WriteFile(t, infoPath, f.Info)
	WriteFile(t, marksPath, f.Marks)
	return infoPath, marksPath
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, EnsureDir(filepath.Dir(path)))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
