package detect

import (
	"context"
	"image"
)

// ModelBoardClassifier maps logo detections to board ids. The
// highest-confidence detection decides.
type ModelBoardClassifier struct {
	Model   ObjectDetector
	Classes map[int]BoardID
}

// DefaultBoardClasses is the class order of the logo model.
func DefaultBoardClasses() map[int]BoardID {
	return map[int]BoardID{0: BoardUttarakhand, 1: BoardCBSE, 2: BoardICSE}
}

// ClassifyBoard implements BoardClassifier.
func (m *ModelBoardClassifier) ClassifyBoard(ctx context.Context, img image.Image) (Classification, error) {
	dets, err := m.Model.Detect(ctx, img)
	if err != nil {
		return Classification{Board: BoardUnknown}, err
	}
	res := Classification{Board: BoardUnknown}
	for _, d := range dets {
		board, ok := m.Classes[d.Class]
		if !ok || d.Confidence <= res.Confidence {
			continue
		}
		box := d.Box
		res = Classification{Board: board, Confidence: d.Confidence, Box: &box}
	}
	return res, nil
}

// ModelTableLocator maps table detections to labels and applies the
// per-label floors.
type ModelTableLocator struct {
	Model  ObjectDetector
	Labels map[int]TableLabel
}

// DefaultTableLabels is the class order of the table model.
func DefaultTableLabels() map[int]TableLabel {
	return map[int]TableLabel{0: LabelInfo, 1: LabelMarks}
}

// LocateTables implements TableLocator.
func (m *ModelTableLocator) LocateTables(ctx context.Context, img image.Image, thresholds Thresholds) ([]Table, error) {
	dets, err := m.Model.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	var out []Table
	for _, d := range dets {
		label, ok := m.Labels[d.Class]
		if !ok || d.Confidence < thresholds.Floor(label) {
			continue
		}
		out = append(out, Table{Label: label, Box: d.Box, Confidence: d.Confidence})
	}
	return out, nil
}
