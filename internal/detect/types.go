// Package detect defines the detection capabilities the pipeline consumes:
// board classification, photo presence and table localisation.
package detect

import (
	"context"
	"errors"
	"image"

	"github.com/MeKo-Tech/marksheet/internal/utils"
)

// ErrUnavailable marks a capability that could not be initialised.
var ErrUnavailable = errors.New("capability unavailable")

// BoardID identifies the examination authority a marksheet belongs to.
type BoardID int

// Class ids as emitted by the logo model.
const (
	BoardUnknown     BoardID = -1
	BoardUttarakhand BoardID = 0
	BoardCBSE        BoardID = 1
	BoardICSE        BoardID = 2
)

// Name returns the display name used in results.
func (b BoardID) Name() string {
	switch b {
	case BoardUttarakhand:
		return "Uttarakhand"
	case BoardCBSE:
		return "CBSE"
	case BoardICSE:
		return "ICSE"
	default:
		return "Unknown"
	}
}

// Known reports whether b is one of the recognised boards.
func (b BoardID) Known() bool {
	return b == BoardUttarakhand || b == BoardCBSE || b == BoardICSE
}

// PhotoExempt reports whether marksheets of this board carry no photo.
func (b BoardID) PhotoExempt() bool { return b == BoardICSE }

// Classification is the board classifier output.
type Classification struct {
	Board      BoardID
	Confidence float64
	Box        *utils.Box // Logo location, when the model reports one
}

// PhotoResult is the photo detector output.
type PhotoResult struct {
	Present    bool
	Confidence float64
	Box        *utils.Box
	Window     utils.Box // Search window in image pixels
}

// TableLabel is the kind of a located table.
type TableLabel string

const (
	LabelInfo  TableLabel = "info"
	LabelMarks TableLabel = "marks"
)

// TypeName returns the human readable table type.
func (l TableLabel) TypeName() string {
	switch l {
	case LabelInfo:
		return "Information Table"
	case LabelMarks:
		return "Marks Table"
	default:
		return string(l)
	}
}

// Table is one located table candidate.
type Table struct {
	Label      TableLabel
	Box        utils.Box
	Confidence float64
}

// Thresholds maps a table label to its minimum confidence.
type Thresholds map[TableLabel]float64

// DefaultThresholds returns the per-label floors. Marks tables carry the
// stricter floor.
func DefaultThresholds() Thresholds {
	return Thresholds{LabelInfo: 0.5, LabelMarks: 0.8}
}

// DefaultTableFloor applies to labels without an explicit threshold.
const DefaultTableFloor = 0.5

// Floor returns the threshold for label.
func (t Thresholds) Floor(label TableLabel) float64 {
	if v, ok := t[label]; ok {
		return v
	}
	return DefaultTableFloor
}

// BoardClassifier identifies the board from a normalized image.
type BoardClassifier interface {
	ClassifyBoard(ctx context.Context, img image.Image) (Classification, error)
}

// PhotoDetector reports whether a candidate photograph is present.
type PhotoDetector interface {
	DetectPhoto(ctx context.Context, img image.Image, board BoardID) (PhotoResult, error)
}

// TableLocator returns labelled table regions.
type TableLocator interface {
	LocateTables(ctx context.Context, img image.Image, thresholds Thresholds) ([]Table, error)
}

// Detection is a raw object-detector output in source image pixels.
type Detection struct {
	Class      int
	Confidence float64
	Box        utils.Box
}

// ObjectDetector is a generic bounding-box model.
type ObjectDetector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
}
