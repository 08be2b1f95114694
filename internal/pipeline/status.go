package pipeline

import "github.com/MeKo-Tech/marksheet/internal/detect"

// OverallStatus combines the detection outcomes into the document verdict.
// Boards that print no photo are valid without one.
func OverallStatus(board detect.BoardID, photoPresent, tablesFound bool) string {
	switch {
	case !board.Known():
		return StatusInvalidLogo
	case !tablesFound:
		return StatusNoTables
	case photoPresent || board.PhotoExempt():
		return StatusValid
	case !photoPresent:
		return StatusNoPhoto
	default:
		return StatusPartialMatch
	}
}
