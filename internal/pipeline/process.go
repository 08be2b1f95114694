package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/marksheet/internal/detect"
	"github.com/MeKo-Tech/marksheet/internal/normalize"
	"github.com/MeKo-Tech/marksheet/internal/pdf"
	"github.com/MeKo-Tech/marksheet/internal/utils"
)

// LoadInput decodes an image file, or the first page image of a PDF.
func LoadInput(path string) (image.Image, error) {
	if utils.IsPDF(path) {
		img, err := pdf.FirstPageImage(path)
		if err != nil {
			return nil, fmt.Errorf("pdf conversion failed: %w", err)
		}
		return img, nil
	}
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Process runs the detected-geometry pipeline on the file at path.
func (p *Pipeline) Process(ctx context.Context, path string) (*Result, error) {
	return p.ProcessObserved(ctx, path, nil)
}

// ProcessObserved is like Process but reports every completed stage to obs.
func (p *Pipeline) ProcessObserved(ctx context.Context, path string, obs StageObserver) (*Result, error) {
	img, err := LoadInput(path)
	if err != nil {
		return nil, &FatalInputError{Path: path, Err: err}
	}
	return p.ProcessImage(ctx, img, path, obs)
}

// document carries the state of one run through the stages.
type document struct {
	p   *Pipeline
	ctx context.Context
	res *Result
	run *Run
	obs StageObserver

	norm   *normalize.Result
	board  detect.SweepResult
	photo  detect.PhotoResult
	tables []detect.Table
}

// ProcessImage runs every stage on img. name identifies the document in
// results and artifact names. Only a normalization failure is returned as
// an error; any other failure is recorded in the result, including panics,
// which yield overall status "error".
func (p *Pipeline) ProcessImage(ctx context.Context, img image.Image, name string, obs StageObserver) (res *Result, err error) {
	if p == nil || p.normalizer == nil {
		return nil, errors.New("pipeline not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, &FatalInputError{Path: name, Err: errors.New("input image is nil")}
	}

	run := p.store.NewRun(name)
	res = &Result{
		InputImage:    name,
		RunID:         run.ID,
		Mode:          ModeSchool,
		OverallStatus: StatusPartialMatch,
		TimingsMs:     make(map[string]int64),
	}
	d := &document{p: p, ctx: ctx, res: res, run: run, obs: obs, board: detect.SweepResult{Board: detect.BoardUnknown}}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Pipeline failed", "document", run.Namespace, "panic", r)
			res.OverallStatus = StatusError
			res.Error = fmt.Sprint(r)
			err = nil
			d.save(start)
		}
		if res != nil {
			documentsTotal.WithLabelValues(ModeSchool, res.OverallStatus).Inc()
		}
	}()

	slog.Debug("Starting marksheet processing", "document", run.Namespace,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())

	var normErr error
	d.stage(StagePreprocess, func() string {
		normErr = d.preprocess(img)
		if normErr != nil {
			return StageFailed
		}
		return StageSuccess
	})
	if normErr != nil {
		return nil, &FatalInputError{Path: name, Err: normErr}
	}

	d.stage(StageLogo, d.detectLogo)
	d.stage(StageFace, d.detectPhoto)
	d.stage(StageTables, d.locateTables)
	d.stage(StageOCR, d.recognize)
	d.stage(StageExtraction, d.extract)

	res.OverallStatus = OverallStatus(d.board.Board, d.photo.Present, res.TableDetection.TablesFound)

	d.stage(StageAnnotate, d.annotate)
	d.save(start)

	slog.Debug("Marksheet processing completed", "document", run.Namespace,
		"board", d.board.Board.Name(), "overall_status", res.OverallStatus,
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// stage times fn, records its status and notifies the observer.
func (d *document) stage(name string, fn func() string) {
	start := time.Now()
	status := fn()
	elapsed := time.Since(start)

	d.res.TimingsMs[name] = elapsed.Milliseconds()
	stageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	stageTotal.WithLabelValues(name, status).Inc()
	slog.Debug("Stage completed", "stage", name, "status", status,
		"document", d.run.Namespace, "duration_ms", elapsed.Milliseconds())

	if d.obs != nil {
		d.obs(StageEvent{Stage: name, Status: status, DurationMs: elapsed.Milliseconds()})
	}
}

// save validates and writes the result file. Failures are logged only.
func (d *document) save(start time.Time) {
	d.res.TimingsMs["total"] = time.Since(start).Milliseconds()
	path := d.run.ResultsPath()
	if path == "" {
		return
	}
	d.res.ResultsFile = path
	if d.p.cfg.ValidateSchema {
		if err := ValidateResult(d.res); err != nil {
			slog.Warn("Result does not match schema", "document", d.run.Namespace, "error", err)
		}
	}
	if err := WriteJSON(path, d.res); err != nil {
		slog.Warn("Failed to write result", "document", d.run.Namespace, "error", err)
		d.res.ResultsFile = ""
	}
}
