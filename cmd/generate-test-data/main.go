package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/marksheet/internal/testutil"
	"github.com/disintegration/imaging"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir         = flag.String("out", "testdata", "output directory, relative to the project root unless absolute")
		generateImages = flag.Bool("images", true, "generate synthetic marksheet photos")
		generateText   = flag.Bool("text", true, "generate recognized text fixtures")
		help           = flag.Bool("h", false, "show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate marksheet test data.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                  # Generate everything\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -text=false      # Only images\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -out /tmp/sheets # Custom location\n", os.Args[0])
	}
	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	dir := *outDir
	if !filepath.IsAbs(dir) {
		root, err := testutil.GetProjectRoot()
		if err != nil {
			slog.Error("Failed to find project root", "error", err)
			os.Exit(1)
		}
		dir = filepath.Join(root, dir)
	}

	if *generateImages {
		if err := generateMarksheets(filepath.Join(dir, "marksheets")); err != nil {
			slog.Error("Failed to generate marksheets", "error", err)
			os.Exit(1)
		}
	}
	if *generateText {
		if err := generateTextFixtures(filepath.Join(dir, "text")); err != nil {
			slog.Error("Failed to generate text fixtures", "error", err)
			os.Exit(1)
		}
	}
	slog.Info("Test data generation completed", "dir", dir)
}

// generateMarksheets renders the layout variants the pipeline distinguishes.
func generateMarksheets(dir string) error {
	if err := testutil.EnsureDir(dir); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	portrait := testutil.DefaultMarksheetConfig()

	landscape := portrait
	landscape.Landscape = true

	noPhoto := portrait
	noPhoto.Photo = false

	college := portrait
	college.Title = "GRADE SHEET"
	college.InfoLines = strings.Split(testutil.CollegeFixture.Info, "\n")
	college.MarksLines = strings.Split(strings.TrimSpace(testutil.CollegeFixture.Marks), "\n")
	college.Photo = false

	variants := map[string]testutil.MarksheetConfig{
		"cbse_portrait.png":  portrait,
		"cbse_landscape.png": landscape,
		"cbse_no_photo.jpg":  noPhoto,
		"college_grade.png":  college,
	}
	for name, cfg := range variants {
		path := filepath.Join(dir, name)
		if err := imaging.Save(testutil.GenerateMarksheet(cfg), path); err != nil {
			return fmt.Errorf("failed to save %s: %w", name, err)
		}
		slog.Info("Generated marksheet", "path", path)
	}
	return nil
}

// generateTextFixtures writes the info and marks text of every fixture.
func generateTextFixtures(dir string) error {
	if err := testutil.EnsureDir(dir); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	for _, f := range []testutil.TextFixture{testutil.CBSEFixture, testutil.CollegeFixture} {
		for suffix, content := range map[string]string{"info": f.Info, "marks": f.Marks} {
			path := filepath.Join(dir, f.Name+"_"+suffix+".txt")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
		}
		slog.Info("Generated text fixture", "board", f.Board, "dir", dir)
	}
	return nil
}
