package normalize

import (
	"image"
	"math"
)

// grayPlane is a dense 8-bit luminance buffer.
type grayPlane struct {
	pix  []float32
	w, h int
}

func toGray(img image.Image) grayPlane {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	g := grayPlane{pix: make([]float32, w*h), w: w, h: h}
	for y := range h {
		for x := range w {
			r, gg, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// ITU-R BT.601 luma, same weights as the usual BGR2GRAY conversion.
			g.pix[y*w+x] = float32(0.299*float64(r>>8) + 0.587*float64(gg>>8) + 0.114*float64(bb>>8))
		}
	}
	return g
}

func (g grayPlane) at(x, y int) float32 {
	if x < 0 {
		x = 0
	} else if x >= g.w {
		x = g.w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= g.h {
		y = g.h - 1
	}
	return g.pix[y*g.w+x]
}

// cannyEdges returns an edge mask using Sobel gradients, non-maximum
// suppression and hysteresis between low and high.
func cannyEdges(g grayPlane, low, high float64) []bool {
	w, h := g.w, g.h
	mag := make([]float32, w*h)
	dir := make([]uint8, w*h)

	for y := range h {
		for x := range w {
			gx := -g.at(x-1, y-1) - 2*g.at(x-1, y) - g.at(x-1, y+1) +
				g.at(x+1, y-1) + 2*g.at(x+1, y) + g.at(x+1, y+1)
			gy := -g.at(x-1, y-1) - 2*g.at(x, y-1) - g.at(x+1, y-1) +
				g.at(x-1, y+1) + 2*g.at(x, y+1) + g.at(x+1, y+1)
			i := y*w + x
			mag[i] = float32(math.Abs(float64(gx)) + math.Abs(float64(gy)))
			dir[i] = quantizeDirection(gx, gy)
		}
	}

	const (
		none = iota
		weak
		strong
	)
	state := make([]uint8, w*h)
	var stack []int
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			m := mag[i]
			if float64(m) < low {
				continue
			}
			var a, b float32
			switch dir[i] {
			case 0:
				a, b = mag[i-1], mag[i+1]
			case 1:
				a, b = mag[i-w-1], mag[i+w+1]
			case 2:
				a, b = mag[i-w], mag[i+w]
			default:
				a, b = mag[i-w+1], mag[i+w-1]
			}
			if m < a || m <= b {
				continue
			}
			if float64(m) >= high {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	edges := make([]bool, w*h)
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if edges[i] {
			continue
		}
		edges[i] = true
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] != none && !edges[j] {
					stack = append(stack, j)
				}
			}
		}
	}
	return edges
}

// quantizeDirection maps a gradient to one of four neighbour axes:
// 0 horizontal, 1 45°, 2 vertical, 3 135°.
func quantizeDirection(gx, gy float32) uint8 {
	angle := math.Atan2(float64(gy), float64(gx)) * 180 / math.Pi
	if angle < 0 {
		angle += 180
	}
	switch {
	case angle < 22.5 || angle >= 157.5:
		return 0
	case angle < 67.5:
		return 1
	case angle < 112.5:
		return 2
	default:
		return 3
	}
}
