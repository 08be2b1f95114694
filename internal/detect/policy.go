package detect

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sort"

	"github.com/MeKo-Tech/marksheet/internal/normalize"
	"github.com/MeKo-Tech/marksheet/internal/utils"
	"github.com/disintegration/imaging"
)

// DefaultClipValues are the CLAHE clip limits tried by SweepBoard, in order.
var DefaultClipValues = []float64{9, 10, 11, 12, 13}

// DefaultBoardFloor is the minimum classifier confidence accepted.
const DefaultBoardFloor = 0.25

// SweepResult is the outcome of a board classification sweep.
type SweepResult struct {
	Board          BoardID
	Confidence     float64 // Confidence of the accepted attempt, or the best seen
	Clip           float64 // Clip value of the accepted attempt, 0 when none was accepted
	Attempts       int
	Box            *utils.Box
	BestConfidence float64
}

// SweepBoard runs the classifier on grayscale CLAHE variants of img, one per
// clip value, and accepts the first known board scoring at least floor.
// When every attempt fails the board is unknown.
func SweepBoard(ctx context.Context, c BoardClassifier, img image.Image, clips []float64, floor float64) (SweepResult, error) {
	res := SweepResult{Board: BoardUnknown}
	if len(clips) == 0 {
		clips = DefaultClipValues
	}
	var lastErr error
	for _, clip := range clips {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Attempts++
		variant := normalize.EqualizeGray(img, clip, 8)
		cls, err := c.ClassifyBoard(ctx, variant)
		if err != nil {
			if errors.Is(err, ErrUnavailable) {
				return res, err
			}
			lastErr = err
			slog.Debug("Board classification attempt failed", "clip", clip, "error", err)
			continue
		}
		if cls.Confidence > res.BestConfidence {
			res.BestConfidence = cls.Confidence
		}
		if cls.Board.Known() && cls.Confidence >= floor {
			res.Board = cls.Board
			res.Confidence = cls.Confidence
			res.Clip = clip
			res.Box = cls.Box
			return res, nil
		}
	}
	res.Confidence = res.BestConfidence
	if res.BestConfidence == 0 && lastErr != nil {
		return res, lastErr
	}
	return res, nil
}

// SelectTables drops candidates below their label floor and keeps the
// highest-confidence candidate per label. Info tables come first.
func SelectTables(cands []Table, thresholds Thresholds) []Table {
	best := make(map[TableLabel]Table)
	for _, c := range cands {
		if c.Confidence < thresholds.Floor(c.Label) {
			continue
		}
		if cur, ok := best[c.Label]; !ok || c.Confidence > cur.Confidence {
			best[c.Label] = c
		}
	}
	out := make([]Table, 0, len(best))
	for _, t := range best {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return labelRank(out[i].Label) < labelRank(out[j].Label) })
	return out
}

func labelRank(l TableLabel) int {
	switch l {
	case LabelInfo:
		return 0
	case LabelMarks:
		return 1
	default:
		return 2
	}
}

// WindowedPhotoDetector searches the top Fraction of the image for a
// photograph using an object detector.
type WindowedPhotoDetector struct {
	Model         ObjectDetector
	Fraction      float64
	MinConfidence float64
}

// DefaultPhotoWindow is the fraction of the page height searched for a photo.
const DefaultPhotoWindow = 0.30

// DetectPhoto implements PhotoDetector.
func (d *WindowedPhotoDetector) DetectPhoto(ctx context.Context, img image.Image, board BoardID) (PhotoResult, error) {
	frac := d.Fraction
	if frac <= 0 || frac > 1 {
		frac = DefaultPhotoWindow
	}
	b := img.Bounds()
	window := utils.Box{X1: 0, Y1: 0, X2: b.Dx(), Y2: max(1, int(float64(b.Dy())*frac))}
	res := PhotoResult{Window: window}

	top := imaging.Crop(img, window.Rect().Add(b.Min))
	dets, err := d.Model.Detect(ctx, top)
	if err != nil {
		return res, err
	}
	for _, det := range dets {
		if det.Confidence < d.MinConfidence {
			continue
		}
		if !res.Present || det.Confidence > res.Confidence {
			box := det.Box
			res.Present = true
			res.Confidence = det.Confidence
			res.Box = &box
		}
	}
	slog.Debug("Photo detection", "board", board.Name(), "present", res.Present, "candidates", len(dets))
	return res, nil
}
