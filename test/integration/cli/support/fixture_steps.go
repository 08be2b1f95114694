package support

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/marksheet/internal/testutil"
	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
)

var textFixtures = map[string]testutil.TextFixture{
	"CBSE":    testutil.CBSEFixture,
	"college": testutil.CollegeFixture,
}

// aTextFixture writes a fixture's info and marks text and registers the
// {<name>_info} and {<name>_marks} placeholders.
func (testCtx *TestContext) aTextFixture(name string) error {
	f, ok := textFixtures[name]
	if !ok {
		return fmt.Errorf("unknown text fixture %q", name)
	}
	info := filepath.Join(testCtx.TempDir, f.Name+"_info.txt")
	marks := filepath.Join(testCtx.TempDir, f.Name+"_marks.txt")
	if err := os.WriteFile(info, []byte(f.Info), 0o600); err != nil {
		return err
	}
	if err := os.WriteFile(marks, []byte(f.Marks), 0o600); err != nil {
		return err
	}
	testCtx.Placeholders[f.Name+"_info"] = info
	testCtx.Placeholders[f.Name+"_marks"] = marks
	return nil
}

// aMarksheetImage renders a synthetic marksheet into the temp dir.
func (testCtx *TestContext) aMarksheetImage(name string) error {
	path := filepath.Join(testCtx.TempDir, name)
	if err := testutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := imaging.Save(testutil.GenerateMarksheet(testutil.DefaultMarksheetConfig()), path); err != nil {
		return fmt.Errorf("failed to save marksheet %s: %w", name, err)
	}
	return nil
}

// aFileContaining writes raw content into the temp dir.
func (testCtx *TestContext) aFileContaining(name, content string) error {
	path := filepath.Join(testCtx.TempDir, name)
	if err := testutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o600)
}

// theFileShouldExist checks a path relative to the temp dir.
func (testCtx *TestContext) theFileShouldExist(name string) error {
	path := filepath.Join(testCtx.TempDir, testCtx.substitute(name))
	if !testutil.FileExists(path) {
		return fmt.Errorf("file %s does not exist", path)
	}
	return nil
}

// theDirectoryShouldContainFiles counts regular files below a directory.
func (testCtx *TestContext) theDirectoryShouldContainFiles(name string) error {
	dir := filepath.Join(testCtx.TempDir, name)
	n := 0
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("directory %s contains no files", dir)
	}
	return nil
}

// RegisterFixtureSteps registers the input fixture steps.
func (testCtx *TestContext) RegisterFixtureSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a (CBSE|college) text fixture$`, testCtx.aTextFixture)
	sc.Step(`^a marksheet image "([^"]*)"$`, testCtx.aMarksheetImage)
	sc.Step(`^a file "([^"]*)" containing "([^"]*)"$`, testCtx.aFileContaining)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the directory "([^"]*)" should contain files$`, testCtx.theDirectoryShouldContainFiles)
}
