package pipeline

import (
	"fmt"
	"image"
	"image/color"

	"github.com/MeKo-Tech/marksheet/internal/utils"
)

var (
	logoColor   = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	photoColor  = color.RGBA{R: 0, G: 80, B: 255, A: 255}
	tableColor  = color.RGBA{R: 230, G: 0, B: 0, A: 255}
	statusColor = color.RGBA{R: 255, G: 0, B: 255, A: 255}
)

// Annotate draws the detections recorded in res over the normalized image
// and returns an RGBA copy. The logo is green, the photo search window
// blue and kept tables red.
func Annotate(img image.Image, res *Result) *image.RGBA {
	if img == nil {
		return nil
	}
	dst := utils.ToRGBA(img)
	if res == nil {
		return dst
	}
	thickness := max(2, dst.Bounds().Dx()/400)

	if lb := res.LogoDetection.Box; lb != nil {
		utils.DrawRect(dst, lb.Rect(), logoColor, thickness)
		utils.DrawLabel(dst, lb.X1, max(lb.Y1-4, 12), res.LogoDetection.BoardName, logoColor)
	}
	if w := res.FaceDetection.Window; w != nil && res.FaceDetection.PhotoDetected {
		utils.DrawRect(dst, w.Rect(), photoColor, thickness)
		utils.DrawLabel(dst, w.X1+4, w.Y2-4, "photo window", photoColor)
	}
	for _, t := range res.TableDetection.TableCoordinates {
		utils.DrawRect(dst, t.Coordinates.Rect(), tableColor, thickness)
		label := fmt.Sprintf("%s %.2f", t.TableType, t.Confidence)
		utils.DrawLabel(dst, t.Coordinates.X1+4, max(t.Coordinates.Y1-4, 12), label, tableColor)
	}
	utils.DrawLabel(dst, 8, 16, "status: "+res.OverallStatus, statusColor)
	return dst
}
