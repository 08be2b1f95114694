package detect

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/MeKo-Tech/marksheet/internal/mempool"
	"github.com/MeKo-Tech/marksheet/internal/onnx"
	"github.com/MeKo-Tech/marksheet/internal/utils"
)

// YOLOConfig configures an ONNX detector exported in the single-head
// [1, 4+classes, anchors] layout.
type YOLOConfig struct {
	ModelPath     string
	InputSize     int
	NumClasses    int
	MinConfidence float64 // Candidates below this are dropped before NMS
	IoUThreshold  float64
	Runtime       onnx.RuntimeConfig
}

// DefaultYOLOConfig returns defaults for a 640px export.
func DefaultYOLOConfig(modelPath string, numClasses int) YOLOConfig {
	return YOLOConfig{
		ModelPath:     modelPath,
		InputSize:     640,
		NumClasses:    numClasses,
		MinConfidence: 0.1,
		IoUThreshold:  0.45,
	}
}

// YOLODetector runs a YOLO-style ONNX model.
type YOLODetector struct {
	cfg     YOLOConfig
	session *onnx.Session
}

// NewYOLODetector loads the model.
func NewYOLODetector(cfg YOLOConfig) (*YOLODetector, error) {
	if cfg.NumClasses <= 0 {
		return nil, errors.New("number of classes must be positive")
	}
	sess, err := onnx.NewSession(cfg.ModelPath, cfg.Runtime)
	if err != nil {
		return nil, err
	}
	if w, h := sess.InputSize(); w > 0 && w == h {
		cfg.InputSize = w
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 640
	}
	slog.Debug("Loaded detection model", "model_path", cfg.ModelPath, "input_size", cfg.InputSize)
	return &YOLODetector{cfg: cfg, session: sess}, nil
}

// Detect implements ObjectDetector.
func (d *YOLODetector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	tensor, lb, err := onnx.LetterboxTensor(img, d.cfg.InputSize)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare input: %w", err)
	}
	out, shape, err := d.session.Run(tensor)
	mempool.PutFloat32(tensor.Data)
	if err != nil {
		return nil, err
	}
	defer mempool.PutFloat32(out)
	b := img.Bounds()
	dets, err := decodeYOLO(out, shape, d.cfg.NumClasses, d.cfg.MinConfidence, lb, b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	dets = nms(dets, d.cfg.IoUThreshold)
	slog.Debug("Model inference", "model_path", d.cfg.ModelPath, "detections", len(dets),
		"duration_ms", time.Since(start).Milliseconds())
	return dets, nil
}

// Close releases the session.
func (d *YOLODetector) Close() error {
	return d.session.Close()
}

// decodeYOLO converts raw output into detections in source pixels. Both
// [1, 4+nc, N] and [1, N, 4+nc] layouts are accepted.
func decodeYOLO(data []float32, shape []int64, numClasses int, minConf float64,
	lb onnx.Letterbox, w, h int,
) ([]Detection, error) {
	if len(shape) != 3 || shape[0] != 1 {
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}
	attrs := int64(4 + numClasses)
	var n int
	var at func(anchor, attr int) float32
	switch {
	case shape[1] == attrs:
		n = int(shape[2])
		at = func(a, k int) float32 { return data[k*n+a] }
	case shape[2] == attrs:
		n = int(shape[1])
		at = func(a, k int) float32 { return data[a*int(attrs)+k] }
	default:
		return nil, fmt.Errorf("output shape %v does not match %d classes", shape, numClasses)
	}
	if len(data) < n*int(attrs) {
		return nil, fmt.Errorf("output data length %d too short for shape %v", len(data), shape)
	}

	var dets []Detection
	for a := range n {
		cls, conf := -1, float32(0)
		for k := range numClasses {
			if s := at(a, 4+k); s > conf {
				cls, conf = k, s
			}
		}
		if cls < 0 || float64(conf) < minConf {
			continue
		}
		cx, cy, bw, bh := float64(at(a, 0)), float64(at(a, 1)), float64(at(a, 2)), float64(at(a, 3))
		x1, y1 := lb.Unmap(cx-bw/2, cy-bh/2)
		x2, y2 := lb.Unmap(cx+bw/2, cy+bh/2)
		box := utils.Box{
			X1: utils.ClampInt(int(math.Round(x1)), 0, w),
			Y1: utils.ClampInt(int(math.Round(y1)), 0, h),
			X2: utils.ClampInt(int(math.Round(x2)), 0, w),
			Y2: utils.ClampInt(int(math.Round(y2)), 0, h),
		}
		if box.Empty() {
			continue
		}
		dets = append(dets, Detection{Class: cls, Confidence: float64(conf), Box: box})
	}
	return dets, nil
}

func iou(a, b utils.Box) float64 {
	ix := min(a.X2, b.X2) - max(a.X1, b.X1)
	iy := min(a.Y2, b.Y2) - max(a.Y1, b.Y1)
	if ix <= 0 || iy <= 0 {
		return 0
	}
	inter := float64(ix * iy)
	union := float64(a.Width()*a.Height()+b.Width()*b.Height()) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// nms performs class-aware greedy non-maximum suppression.
func nms(dets []Detection, threshold float64) []Detection {
	if threshold <= 0 || len(dets) < 2 {
		return dets
	}
	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Confidence > sorted[j].Confidence })

	var kept []Detection
	for _, d := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.Class == d.Class && iou(k.Box, d.Box) > threshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, d)
		}
	}
	return kept
}
