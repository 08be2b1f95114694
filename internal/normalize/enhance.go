package normalize

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// EqualizeLuminance applies contrast-limited adaptive histogram equalisation
// to the Y channel of img and returns a new image. Chroma is untouched.
func EqualizeLuminance(img image.Image, clip float64, tiles int) *image.NRGBA {
	out := imaging.Clone(img)
	b := out.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return out
	}

	luma := make([]uint8, w*h)
	cb := make([]uint8, w*h)
	cr := make([]uint8, w*h)
	for y := range h {
		for x := range w {
			o := out.PixOffset(x, y)
			i := y*w + x
			luma[i], cb[i], cr[i] = color.RGBToYCbCr(out.Pix[o], out.Pix[o+1], out.Pix[o+2])
		}
	}

	eq := clahe(luma, w, h, clip, tiles)

	for y := range h {
		for x := range w {
			o := out.PixOffset(x, y)
			i := y*w + x
			out.Pix[o], out.Pix[o+1], out.Pix[o+2] = color.YCbCrToRGB(eq[i], cb[i], cr[i])
		}
	}
	return out
}

// EqualizeGray returns a grayscale copy of img with CLAHE applied, the
// representation the board classifier is swept over.
func EqualizeGray(img image.Image, clip float64, tiles int) *image.NRGBA {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return gray
	}
	plane := make([]uint8, w*h)
	for y := range h {
		for x := range w {
			plane[y*w+x] = gray.Pix[gray.PixOffset(x, y)]
		}
	}
	eq := clahe(plane, w, h, clip, tiles)
	for y := range h {
		for x := range w {
			o := gray.PixOffset(x, y)
			v := eq[y*w+x]
			gray.Pix[o], gray.Pix[o+1], gray.Pix[o+2] = v, v, v
		}
	}
	return gray
}

// clahe equalises an 8-bit plane tile by tile and blends neighbouring tile
// mappings bilinearly.
func clahe(plane []uint8, w, h int, clip float64, tiles int) []uint8 {
	nx, ny := min(tiles, w), min(tiles, h)
	luts := make([][256]uint8, nx*ny)

	for ty := range ny {
		y0, y1 := ty*h/ny, (ty+1)*h/ny
		for tx := range nx {
			x0, x1 := tx*w/nx, (tx+1)*w/nx
			luts[ty*nx+tx] = tileLUT(plane, w, x0, y0, x1, y1, clip)
		}
	}

	tileW := float64(w) / float64(nx)
	tileH := float64(h) / float64(ny)
	out := make([]uint8, len(plane))
	for y := range h {
		fy := (float64(y)+0.5)/tileH - 0.5
		ty0 := int(math.Floor(fy))
		wy := fy - float64(ty0)
		ty1 := min(ty0+1, ny-1)
		ty0 = max(ty0, 0)
		for x := range w {
			fx := (float64(x)+0.5)/tileW - 0.5
			tx0 := int(math.Floor(fx))
			wx := fx - float64(tx0)
			tx1 := min(tx0+1, nx-1)
			tx0 = max(tx0, 0)

			v := plane[y*w+x]
			tl := float64(luts[ty0*nx+tx0][v])
			tr := float64(luts[ty0*nx+tx1][v])
			bl := float64(luts[ty1*nx+tx0][v])
			br := float64(luts[ty1*nx+tx1][v])
			top := tl + (tr-tl)*wx
			bot := bl + (br-bl)*wx
			out[y*w+x] = uint8(math.Round(math.Min(255, math.Max(0, top+(bot-top)*wy))))
		}
	}
	return out
}

func tileLUT(plane []uint8, stride, x0, y0, x1, y1 int, clip float64) [256]uint8 {
	var hist [256]int
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[plane[y*stride+x]]++
		}
	}
	area := (x1 - x0) * (y1 - y0)
	var lut [256]uint8
	if area == 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	if clip > 0 {
		limit := max(int(clip*float64(area)/256), 1)
		excess := 0
		for i, c := range hist {
			if c > limit {
				excess += c - limit
				hist[i] = limit
			}
		}
		per, rem := excess/256, excess%256
		for i := range hist {
			hist[i] += per
			if i < rem {
				hist[i]++
			}
		}
	}

	scale := 255.0 / float64(area)
	sum := 0
	for i, c := range hist {
		sum += c
		lut[i] = uint8(math.Min(255, math.Round(float64(sum)*scale)))
	}
	return lut
}

// ScaleSaturation multiplies HSV saturation of every pixel by gain in place.
// Hue and value are preserved.
func ScaleSaturation(img *image.NRGBA, gain float64) {
	if gain == 1 {
		return
	}
	for i := 0; i+3 < len(img.Pix); i += 4 {
		r, g, b := img.Pix[i], img.Pix[i+1], img.Pix[i+2]
		m := float64(max(r, g, b))
		img.Pix[i] = scaleTowards(m, r, gain)
		img.Pix[i+1] = scaleTowards(m, g, gain)
		img.Pix[i+2] = scaleTowards(m, b, gain)
	}
}

func scaleTowards(m float64, c uint8, gain float64) uint8 {
	v := m - (m-float64(c))*gain
	return uint8(math.Round(math.Min(255, math.Max(0, v))))
}
