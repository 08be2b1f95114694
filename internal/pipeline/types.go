package pipeline

import (
	"github.com/MeKo-Tech/marksheet/internal/extract"
	"github.com/MeKo-Tech/marksheet/internal/utils"
)

// Stage status values.
const (
	StageSuccess     = "success"
	StageFailed      = "failed"
	StageUnavailable = "unavailable"
	StageSkipped     = "skipped"
)

// Overall status values.
const (
	StatusValid        = "valid"
	StatusInvalidLogo  = "invalid_logo"
	StatusNoTables     = "no_tables"
	StatusNoPhoto      = "no_photo"
	StatusPartialMatch = "partial_match"
	StatusError        = "error"
)

// Processing modes.
const (
	ModeSchool  = "school"
	ModeCollege = "college"
)

// Stage names, in execution order.
const (
	StagePreprocess = "preprocessing"
	StageLogo       = "logo_detection"
	StageFace       = "face_detection"
	StageTables     = "table_detection"
	StageOCR        = "ocr"
	StageExtraction = "extraction"
	StageAnnotate   = "annotation"
)

// Result is the per-document record of a detected-geometry run. It is
// persisted as JSON and returned to callers.
type Result struct {
	InputImage     string              `json:"input_image"`
	RunID          string              `json:"run_id"`
	Mode           string              `json:"mode"`
	Preprocessing  PreprocessingResult `json:"preprocessing"`
	LogoDetection  LogoResult          `json:"logo_detection"`
	FaceDetection  FaceResult          `json:"face_detection"`
	TableDetection TableResult         `json:"table_detection"`
	OCR            OCRResult           `json:"ocr"`
	Extraction     ExtractionResult    `json:"extraction"`
	AnnotatedImage string              `json:"annotated_image,omitempty"`
	OverallStatus  string              `json:"overall_status"`
	ResultsFile    string              `json:"results_file,omitempty"`
	Error          string              `json:"error,omitempty"`
	TimingsMs      map[string]int64    `json:"timings_ms"`
}

// PreprocessingResult describes the normalization stage.
type PreprocessingResult struct {
	Status              string `json:"status"`
	CropCoordinates     [4]int `json:"crop_coordinates"`
	ProcessedImageShape [3]int `json:"processed_image_shape"` // height, width, channels
	Rotated             bool   `json:"rotated"`
	Fallback            bool   `json:"fallback"`
	PreprocessedImage   string `json:"preprocessed_image,omitempty"`
}

// LogoResult describes the board classification sweep.
type LogoResult struct {
	Status     string     `json:"status"`
	BoardID    int        `json:"board_id"`
	BoardName  string     `json:"board_name"`
	Detected   bool       `json:"detected"`
	Confidence float64    `json:"confidence"`
	ClipValue  float64    `json:"clip_value"`
	Attempts   int        `json:"attempts"`
	Box        *utils.Box `json:"box,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// FaceResult describes photo detection.
type FaceResult struct {
	Status        string     `json:"status"`
	PhotoDetected bool       `json:"photo_detected"`
	Board         string     `json:"board"`
	Confidence    float64    `json:"confidence"`
	Window        *utils.Box `json:"window,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// TableResult describes table location.
type TableResult struct {
	Status           string            `json:"status"`
	TablesFound      bool              `json:"tables_found"`
	HasTables        bool              `json:"has_tables"`
	TableCoordinates []TableCoordinate `json:"table_coordinates"`
	CoordinatesFile  string            `json:"coordinates_file,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// TableCoordinate is one kept table in normalized-image pixels.
type TableCoordinate struct {
	TableID     int       `json:"table_id"`
	TableType   string    `json:"table_type"`
	Label       string    `json:"label"`
	Confidence  float64   `json:"confidence"`
	Coordinates utils.Box `json:"coordinates"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
}

// OCRResult describes text recognition of the kept tables.
type OCRResult struct {
	Status         string `json:"status"`
	InfoTextFile   string `json:"info_text_file,omitempty"`
	MarksTextFile  string `json:"marks_text_file,omitempty"`
	InfoAvailable  bool   `json:"info_available"`
	MarksAvailable bool   `json:"marks_available"`

	infoText, marksText string
}

// InfoText returns the text recognized for the information table.
func (o OCRResult) InfoText() string { return o.infoText }

// MarksText returns the text recognized for the marks table.
func (o OCRResult) MarksText() string { return o.marksText }

// ExtractionResult describes board-specific extraction.
type ExtractionResult struct {
	Status    string                 `json:"status"`
	FinalJSON string                 `json:"final_json,omitempty"`
	Extracted bool                   `json:"extracted"`
	Data      *extract.StudentRecord `json:"data"`
}

// FixedResult is the outcome of a fixed-geometry (college) run.
type FixedResult struct {
	InputImage       string                 `json:"input_image"`
	RunID            string                 `json:"run_id"`
	Mode             string                 `json:"mode"`
	Board            string                 `json:"board"`
	TableCoordinates []TableCoordinate      `json:"table_coordinates"`
	CoordinatesFile  string                 `json:"coordinates_file,omitempty"`
	OCR              OCRResult              `json:"ocr"`
	Data             *extract.StudentRecord `json:"data"`
	FinalJSON        string                 `json:"final_json,omitempty"`
	ResultsFile      string                 `json:"results_file,omitempty"`
	TimingsMs        map[string]int64       `json:"timings_ms"`
}

// FixedBoard is the board reported by fixed-geometry runs.
const FixedBoard = "COLLEGE_FIXED"

// StageEvent is reported to a StageObserver after every completed stage.
type StageEvent struct {
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
}

// StageObserver receives stage events in execution order. It is called on
// the processing goroutine and must not block for long.
type StageObserver func(StageEvent)
