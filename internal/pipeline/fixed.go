package pipeline

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/marksheet/internal/crop"
	"github.com/MeKo-Tech/marksheet/internal/detect"
	"github.com/MeKo-Tech/marksheet/internal/extract"
)

// ProcessFixed runs fixed-geometry extraction on the file at path. When
// expectedSem is set and the extracted semester differs, the run is
// rejected with a UserInputMismatch.
func (p *Pipeline) ProcessFixed(ctx context.Context, path, expectedSem string) (*FixedResult, error) {
	img, err := LoadInput(path)
	if err != nil {
		return nil, &FatalInputError{Path: path, Err: err}
	}
	return p.ProcessFixedImage(ctx, img, path, expectedSem)
}

// ProcessFixedImage is ProcessFixed on a decoded image. The configured
// boxes refer to the page as uploaded, so img is not normalized.
func (p *Pipeline) ProcessFixedImage(ctx context.Context, img image.Image, name, expectedSem string) (*FixedResult, error) {
	if p == nil || p.recognizer == nil {
		return nil, errors.New("pipeline not initialized")
	}
	if img == nil {
		return nil, &FatalInputError{Path: name, Err: errors.New("input image is nil")}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	run := p.store.NewRun(name)
	res := &FixedResult{
		InputImage:       name,
		RunID:            run.ID,
		Mode:             ModeCollege,
		Board:            FixedBoard,
		TableCoordinates: []TableCoordinate{},
		TimingsMs:        make(map[string]int64),
	}
	start := time.Now()

	regions := []struct {
		label detect.TableLabel
		box   crop.NormBox
	}{
		{detect.LabelInfo, p.cfg.FixedInfoBox},
		{detect.LabelMarks, p.cfg.FixedMarksBox},
	}
	ocrStart := time.Now()
	for _, r := range regions {
		sub, px, err := crop.Normalized(img, r.box, p.cfg.FixedMargin)
		if err != nil {
			slog.Warn("Skipping fixed region", "document", run.Namespace, "label", r.label, "error", err)
			continue
		}
		res.TableCoordinates = append(res.TableCoordinates, TableCoordinate{
			TableID:     len(res.TableCoordinates),
			TableType:   r.label.TypeName(),
			Label:       string(r.label),
			Confidence:  1,
			Coordinates: px,
			Width:       px.Width(),
			Height:      px.Height(),
		})
		text := p.recognizer.Recognize(ctx, sub)
		if r.label == detect.LabelInfo {
			res.OCR.infoText = text
			res.OCR.InfoTextFile = writeTextLogged(run, run.InfoTextPath(), text)
		} else {
			res.OCR.marksText = text
			res.OCR.MarksTextFile = writeTextLogged(run, run.MarksTextPath(), text)
		}
	}
	res.OCR.InfoAvailable = usable(res.OCR.infoText) != ""
	res.OCR.MarksAvailable = usable(res.OCR.marksText) != ""
	res.OCR.Status = StageFailed
	if res.OCR.InfoAvailable || res.OCR.MarksAvailable {
		res.OCR.Status = StageSuccess
	}
	res.TimingsMs[StageOCR] = time.Since(ocrStart).Milliseconds()

	path := run.CoordinatesPath()
	if err := WriteJSON(path, coordinatesFile{File: name, TableCoordinates: res.TableCoordinates}); err != nil {
		slog.Warn("Failed to write table coordinates", "document", run.Namespace, "error", err)
	} else {
		res.CoordinatesFile = path
	}

	if res.OCR.InfoAvailable || res.OCR.MarksAvailable {
		exStart := time.Now()
		res.Data = extract.Extract(usable(res.OCR.infoText), usable(res.OCR.marksText), string(extract.BoardCollege))
		res.FinalJSON = p.writeRecord(run, res.Data)
		res.TimingsMs[StageExtraction] = time.Since(exStart).Milliseconds()
	}

	res.TimingsMs["total"] = time.Since(start).Milliseconds()
	res.ResultsFile = run.ResultsPath()
	if err := WriteJSON(res.ResultsFile, res); err != nil {
		slog.Warn("Failed to write result", "document", run.Namespace, "error", err)
		res.ResultsFile = ""
	}
	documentsTotal.WithLabelValues(ModeCollege, fixedStatus(res)).Inc()

	if err := checkSemester(expectedSem, res.Data); err != nil {
		slog.Info("Rejected marksheet", "document", run.Namespace, "reason", err.Error())
		return nil, err
	}
	slog.Debug("Fixed-geometry processing completed", "document", run.Namespace,
		"extracted", res.Data != nil, "duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

func fixedStatus(res *FixedResult) string {
	if res.Data == nil {
		return StageFailed
	}
	return StageSuccess
}

// checkSemester compares the declared semester with the extracted one.
// Nothing is checked when either side is missing.
func checkSemester(expected string, rec *extract.StudentRecord) error {
	if expected == "" || rec == nil || rec.College == nil || rec.College.Semester == nil {
		return nil
	}
	got := *rec.College.Semester
	if extract.SameSemester(expected, got) {
		return nil
	}
	return &UserInputMismatch{Expected: expected, Extracted: got}
}

func writeTextLogged(run *Run, path, text string) string {
	if err := WriteText(path, text); err != nil {
		slog.Warn("Failed to write recognized text", "document", run.Namespace, "error", err)
		return ""
	}
	return path
}
