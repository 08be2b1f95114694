package detect

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/MeKo-Tech/marksheet/internal/onnx"
	"github.com/MeKo-Tech/marksheet/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClassifier struct {
	results []Classification
	errs    []error
	calls   int
}

func (s *scriptedClassifier) ClassifyBoard(_ context.Context, _ image.Image) (Classification, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if i < len(s.results) {
		return s.results[i], err
	}
	return Classification{Board: BoardUnknown}, err
}

type fakeDetector struct {
	dets []Detection
	err  error
	seen image.Rectangle
}

func (f *fakeDetector) Detect(_ context.Context, img image.Image) ([]Detection, error) {
	f.seen = img.Bounds()
	return f.dets, f.err
}

func page() image.Image { return image.NewRGBA(image.Rect(0, 0, 100, 200)) }

func TestSweepBoardAcceptsFirstAboveFloor(t *testing.T) {
	c := &scriptedClassifier{results: []Classification{
		{Board: BoardCBSE, Confidence: 0.1},
		{Board: BoardUnknown, Confidence: 0.9},
		{Board: BoardICSE, Confidence: 0.3},
		{Board: BoardCBSE, Confidence: 0.99},
	}}
	res, err := SweepBoard(context.Background(), c, page(), DefaultClipValues, DefaultBoardFloor)
	require.NoError(t, err)
	assert.Equal(t, BoardICSE, res.Board)
	assert.InDelta(t, 0.3, res.Confidence, 1e-9)
	assert.InDelta(t, 11.0, res.Clip, 1e-9)
	assert.Equal(t, 3, res.Attempts)
}

func TestSweepBoardExhaustsToUnknown(t *testing.T) {
	c := &scriptedClassifier{results: []Classification{
		{Board: BoardCBSE, Confidence: 0.2},
		{Board: BoardCBSE, Confidence: 0.1},
	}}
	res, err := SweepBoard(context.Background(), c, page(), DefaultClipValues, DefaultBoardFloor)
	require.NoError(t, err)
	assert.Equal(t, BoardUnknown, res.Board)
	assert.Equal(t, 5, res.Attempts)
	assert.InDelta(t, 0.2, res.BestConfidence, 1e-9)
	assert.Zero(t, res.Clip)
}

func TestSweepBoardUnavailableStops(t *testing.T) {
	res, err := SweepBoard(context.Background(), Unavailable{Name: "board"}, page(), nil, DefaultBoardFloor)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, BoardUnknown, res.Board)
	assert.Equal(t, 1, res.Attempts)
}

func TestSweepBoardAllErrors(t *testing.T) {
	boom := errors.New("boom")
	c := &scriptedClassifier{errs: []error{boom, boom, boom, boom, boom}}
	_, err := SweepBoard(context.Background(), c, page(), DefaultClipValues, DefaultBoardFloor)
	require.ErrorIs(t, err, boom)
}

func TestSelectTables(t *testing.T) {
	box := utils.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}
	tests := []struct {
		name  string
		cands []Table
		want  []Table
	}{
		{
			name:  "marks below strict floor is discarded",
			cands: []Table{{Label: LabelMarks, Box: box, Confidence: 0.6}},
			want:  []Table{},
		},
		{
			name: "max confidence per label, info first",
			cands: []Table{
				{Label: LabelMarks, Box: box, Confidence: 0.85},
				{Label: LabelInfo, Box: box, Confidence: 0.55},
				{Label: LabelMarks, Box: box, Confidence: 0.95},
				{Label: LabelInfo, Box: box, Confidence: 0.7},
				{Label: LabelInfo, Box: box, Confidence: 0.4},
			},
			want: []Table{
				{Label: LabelInfo, Box: box, Confidence: 0.7},
				{Label: LabelMarks, Box: box, Confidence: 0.95},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectTables(tt.cands, DefaultThresholds()))
		})
	}
}

func TestThresholdsFloor(t *testing.T) {
	th := DefaultThresholds()
	assert.InDelta(t, 0.8, th.Floor(LabelMarks), 1e-9)
	assert.InDelta(t, DefaultTableFloor, th.Floor("other"), 1e-9)
}

func TestWindowedPhotoDetector(t *testing.T) {
	model := &fakeDetector{dets: []Detection{
		{Confidence: 0.3, Box: utils.Box{X1: 1, Y1: 1, X2: 5, Y2: 5}},
		{Confidence: 0.8, Box: utils.Box{X1: 60, Y1: 10, X2: 90, Y2: 50}},
	}}
	d := &WindowedPhotoDetector{Model: model, Fraction: 0.3, MinConfidence: 0.5}
	res, err := d.DetectPhoto(context.Background(), page(), BoardCBSE)
	require.NoError(t, err)
	assert.True(t, res.Present)
	assert.Equal(t, 60, model.seen.Dy())
	assert.Equal(t, 100, model.seen.Dx())
	assert.Equal(t, utils.Box{X1: 0, Y1: 0, X2: 100, Y2: 60}, res.Window)
	require.NotNil(t, res.Box)
	assert.Equal(t, 60, res.Box.X1)

	model.dets = []Detection{{Confidence: 0.2}}
	res, err = d.DetectPhoto(context.Background(), page(), BoardICSE)
	require.NoError(t, err)
	assert.False(t, res.Present)
}

func TestModelAdapters(t *testing.T) {
	model := &fakeDetector{dets: []Detection{
		{Class: 1, Confidence: 0.6},
		{Class: 2, Confidence: 0.7},
		{Class: 7, Confidence: 0.99},
	}}
	clf := &ModelBoardClassifier{Model: model, Classes: DefaultBoardClasses()}
	cls, err := clf.ClassifyBoard(context.Background(), page())
	require.NoError(t, err)
	assert.Equal(t, BoardICSE, cls.Board)

	model.dets = []Detection{
		{Class: 0, Confidence: 0.6},
		{Class: 1, Confidence: 0.6},
		{Class: 1, Confidence: 0.9},
	}
	loc := &ModelTableLocator{Model: model, Labels: DefaultTableLabels()}
	tables, err := loc.LocateTables(context.Background(), page(), DefaultThresholds())
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, LabelInfo, tables[0].Label)
	assert.InDelta(t, 0.9, tables[1].Confidence, 1e-9)
}

func TestDecodeYOLO(t *testing.T) {
	// Two anchors, two classes, layout [1, 6, 2].
	n := 2
	data := make([]float32, 6*n)
	set := func(anchor, attr int, v float32) { data[attr*n+anchor] = v }
	set(0, 0, 32)
	set(0, 1, 32)
	set(0, 2, 16)
	set(0, 3, 8)
	set(0, 4, 0.1)
	set(0, 5, 0.9)
	set(1, 4, 0.01)

	lb := onnx.Letterbox{Scale: 0.5, PadX: 0, PadY: 0}
	dets, err := decodeYOLO(data, []int64{1, 6, 2}, 2, 0.05, lb, 200, 200)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, 1, dets[0].Class)
	assert.InDelta(t, 0.9, dets[0].Confidence, 1e-6)
	assert.Equal(t, utils.Box{X1: 48, Y1: 56, X2: 80, Y2: 72}, dets[0].Box)

	_, err = decodeYOLO(data, []int64{1, 9, 2}, 2, 0.05, lb, 200, 200)
	require.Error(t, err)
}

func TestNMS(t *testing.T) {
	a := Detection{Class: 0, Confidence: 0.9, Box: utils.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}}
	b := Detection{Class: 0, Confidence: 0.8, Box: utils.Box{X1: 1, Y1: 1, X2: 11, Y2: 11}}
	c := Detection{Class: 1, Confidence: 0.7, Box: utils.Box{X1: 1, Y1: 1, X2: 11, Y2: 11}}
	kept := nms([]Detection{b, a, c}, 0.45)
	assert.Equal(t, []Detection{a, c}, kept)
}

func TestBoardIDHelpers(t *testing.T) {
	assert.Equal(t, "Uttarakhand", BoardUttarakhand.Name())
	assert.Equal(t, "Unknown", BoardUnknown.Name())
	assert.True(t, BoardICSE.PhotoExempt())
	assert.False(t, BoardCBSE.PhotoExempt())
	assert.False(t, BoardUnknown.Known())
	assert.Equal(t, "Marks Table", LabelMarks.TypeName())
}

func TestLoadWithoutModelsIsUnavailable(t *testing.T) {
	caps := Load(ModelsConfig{})
	assert.Equal(t, map[string]bool{
		"board_classifier": false,
		"photo_detector":   false,
		"table_locator":    false,
	}, caps.Status())
	_, err := caps.Tables.LocateTables(context.Background(), page(), DefaultThresholds())
	require.ErrorIs(t, err, ErrUnavailable)
	require.NoError(t, caps.Close())
}
