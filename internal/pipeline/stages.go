package pipeline

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/marksheet/internal/crop"
	"github.com/MeKo-Tech/marksheet/internal/detect"
	"github.com/MeKo-Tech/marksheet/internal/extract"
	"github.com/MeKo-Tech/marksheet/internal/recognizer"
)

func (d *document) preprocess(img image.Image) error {
	n, err := d.p.normalizer.Normalize(img)
	if err != nil {
		d.res.Preprocessing.Status = StageFailed
		return err
	}
	d.norm = n
	b := n.Image.Bounds()
	d.res.Preprocessing = PreprocessingResult{
		Status:              StageSuccess,
		CropCoordinates:     n.Crop.Coords(),
		ProcessedImageShape: [3]int{b.Dy(), b.Dx(), 3},
		Rotated:             n.Rotated,
		Fallback:            n.Fallback,
	}
	if path := d.run.PreprocessedPath(); path != "" {
		if err := SaveImage(path, n.Image); err != nil {
			slog.Warn("Failed to save preprocessed image", "document", d.run.Namespace, "error", err)
		} else {
			d.res.Preprocessing.PreprocessedImage = path
		}
	}
	return nil
}

// capabilityStatus maps a capability error onto a stage status.
func capabilityStatus(err error) string {
	switch {
	case err == nil:
		return StageSuccess
	case errors.Is(err, detect.ErrUnavailable):
		return StageUnavailable
	default:
		return StageFailed
	}
}

func (d *document) detectLogo() string {
	sweep, err := detect.SweepBoard(d.ctx, d.p.caps.Board, d.norm.Image, d.p.cfg.ClipValues, d.p.cfg.BoardFloor)
	d.board = sweep
	lr := &d.res.LogoDetection
	*lr = LogoResult{
		Status:     capabilityStatus(err),
		BoardID:    int(sweep.Board),
		BoardName:  sweep.Board.Name(),
		Detected:   sweep.Board.Known(),
		Confidence: sweep.Confidence,
		ClipValue:  sweep.Clip,
		Attempts:   sweep.Attempts,
		Box:        sweep.Box,
	}
	if err != nil {
		lr.Error = err.Error()
		slog.Warn("Board classification failed", "document", d.run.Namespace, "error", err)
	}
	return lr.Status
}

func (d *document) detectPhoto() string {
	fr := &d.res.FaceDetection
	fr.Board = d.board.Board.Name()
	pr, err := d.p.caps.Photo.DetectPhoto(d.ctx, d.norm.Image, d.board.Board)
	fr.Status = capabilityStatus(err)
	if err != nil {
		fr.Error = err.Error()
		slog.Warn("Photo detection failed", "document", d.run.Namespace, "error", err)
		return fr.Status
	}
	d.photo = pr
	fr.PhotoDetected = pr.Present
	fr.Confidence = pr.Confidence
	if pr.Present {
		w := pr.Window
		fr.Window = &w
	}
	return fr.Status
}

func (d *document) locateTables() string {
	tr := &d.res.TableDetection
	cands, err := d.p.caps.Tables.LocateTables(d.ctx, d.norm.Image, d.p.cfg.Tables)
	tr.Status = capabilityStatus(err)
	if err != nil {
		tr.Error = err.Error()
		slog.Warn("Table location failed", "document", d.run.Namespace, "error", err)
	}

	d.tables = detect.SelectTables(cands, d.p.cfg.Tables)
	tr.TableCoordinates = tableCoordinates(d.tables)
	tr.TablesFound = len(d.tables) > 0
	tr.HasTables = tr.TablesFound

	path := d.run.CoordinatesPath()
	if err := WriteJSON(path, coordinatesFile{File: d.res.InputImage, TableCoordinates: tr.TableCoordinates}); err != nil {
		slog.Warn("Failed to write table coordinates", "document", d.run.Namespace, "error", err)
	} else {
		tr.CoordinatesFile = path
	}
	return tr.Status
}

func tableCoordinates(tables []detect.Table) []TableCoordinate {
	out := make([]TableCoordinate, 0, len(tables))
	for i, t := range tables {
		out = append(out, TableCoordinate{
			TableID:     i,
			TableType:   t.Label.TypeName(),
			Label:       string(t.Label),
			Confidence:  t.Confidence,
			Coordinates: t.Box,
			Width:       t.Box.Width(),
			Height:      t.Box.Height(),
		})
	}
	return out
}

func (d *document) margin(label detect.TableLabel) float64 {
	if label == detect.LabelMarks {
		return d.p.cfg.MarksMargin
	}
	return d.p.cfg.InfoMargin
}

// recognize crops and recognizes each kept table. A failure on one region
// does not block the other.
func (d *document) recognize() string {
	or := &d.res.OCR
	if len(d.tables) == 0 {
		or.Status = StageSkipped
		return or.Status
	}
	for _, t := range d.tables {
		region, _, err := crop.Region(d.norm.Image, t.Box, d.margin(t.Label))
		if err != nil {
			slog.Warn("Skipping table region", "document", d.run.Namespace, "label", t.Label, "error", err)
			continue
		}
		text := d.p.recognizer.Recognize(d.ctx, region)
		switch t.Label {
		case detect.LabelInfo:
			or.infoText = text
			or.InfoTextFile = writeTextLogged(d.run, d.run.InfoTextPath(), text)
		case detect.LabelMarks:
			or.marksText = text
			or.MarksTextFile = writeTextLogged(d.run, d.run.MarksTextPath(), text)
		}
	}
	or.InfoAvailable = usable(or.infoText) != ""
	or.MarksAvailable = usable(or.marksText) != ""

	switch {
	case !recognizer.Available(d.p.recognizer):
		or.Status = StageUnavailable
	case or.InfoAvailable || or.MarksAvailable:
		or.Status = StageSuccess
	default:
		or.Status = StageFailed
	}
	return or.Status
}

// usable returns text unless it is a recognizer sentinel.
func usable(text string) string {
	if recognizer.IsSentinel(text) {
		return ""
	}
	return text
}

func (d *document) extract() string {
	er := &d.res.Extraction
	boardName := d.board.Board.Name()
	if _, ok := extract.NormalizeBoard(boardName); !ok {
		er.Status = StageSkipped
		return er.Status
	}
	info, marks := usable(d.res.OCR.infoText), usable(d.res.OCR.marksText)
	if info == "" && marks == "" {
		er.Status = StageFailed
		return er.Status
	}

	rec := extract.Extract(info, marks, boardName)
	if rec == nil {
		er.Status = StageFailed
		return er.Status
	}
	er.Data = rec
	er.Extracted = true
	er.Status = StageSuccess
	er.FinalJSON = d.p.writeRecord(d.run, rec)
	return er.Status
}

// writeRecord validates and persists rec, returning its path or "".
func (p *Pipeline) writeRecord(run *Run, rec *extract.StudentRecord) string {
	if p.cfg.ValidateSchema {
		if err := ValidateRecord(rec); err != nil {
			slog.Warn("Record does not match schema", "document", run.Namespace, "error", err)
		}
	}
	path := run.RecordPath()
	if err := WriteJSON(path, rec); err != nil {
		slog.Warn("Failed to write record", "document", run.Namespace, "error", err)
		return ""
	}
	return path
}

// annotate renders the preview. Any failure, including a panic, is
// swallowed and the preview omitted.
func (d *document) annotate() (status string) {
	path := d.run.AnnotatedPath()
	if !d.p.cfg.Annotate || path == "" {
		return StageSkipped
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Annotation failed", "document", d.run.Namespace, "error", fmt.Sprint(r))
			status = StageFailed
		}
	}()
	if err := SaveImage(path, Annotate(d.norm.Image, d.res)); err != nil {
		slog.Warn("Failed to save annotated image", "document", d.run.Namespace, "error", err)
		return StageFailed
	}
	d.res.AnnotatedImage = path
	return StageSuccess
}
