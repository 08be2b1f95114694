package normalize

// dilateMask grows set pixels with a size×size square structuring element.
func dilateMask(mask []bool, w, h, size int) []bool {
	if size <= 1 {
		return mask
	}
	r := size / 2
	// Separable max filter: horizontal pass then vertical pass.
	tmp := make([]bool, w*h)
	for y := range h {
		row := y * w
		for x := range w {
			for k := -r; k <= r; k++ {
				xx := x + k
				if xx >= 0 && xx < w && mask[row+xx] {
					tmp[row+x] = true
					break
				}
			}
		}
	}
	out := make([]bool, w*h)
	for y := range h {
		for x := range w {
			for k := -r; k <= r; k++ {
				yy := y + k
				if yy >= 0 && yy < h && tmp[yy*w+x] {
					out[y*w+x] = true
					break
				}
			}
		}
	}
	return out
}

// compStats holds the extent of one connected component.
type compStats struct {
	count int
	minX  int
	minY  int
	maxX  int
	maxY  int
}

func (c compStats) boxArea() int {
	return (c.maxX - c.minX + 1) * (c.maxY - c.minY + 1)
}

// connectedComponents labels 8-connected regions of mask.
func connectedComponents(mask []bool, w, h int) []compStats {
	visited := make([]bool, w*h)
	var comps []compStats
	queue := make([]int, 0, 64)

	for start := range mask {
		if !mask[start] || visited[start] {
			continue
		}
		sx, sy := start%w, start/w
		st := compStats{minX: sx, minY: sy, maxX: sx, maxY: sy}
		visited[start] = true
		queue = append(queue[:0], start)

		for len(queue) > 0 {
			ci := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			cx, cy := ci%w, ci/w
			st.count++
			st.minX = min(st.minX, cx)
			st.minY = min(st.minY, cy)
			st.maxX = max(st.maxX, cx)
			st.maxY = max(st.maxY, cy)

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := cx+dx, cy+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					ni := ny*w + nx
					if mask[ni] && !visited[ni] {
						visited[ni] = true
						queue = append(queue, ni)
					}
				}
			}
		}
		comps = append(comps, st)
	}
	return comps
}

// largestComponent picks the component enclosing the largest area. The
// bounding box area stands in for the area of the outer contour.
func largestComponent(mask []bool, w, h int) (compStats, bool) {
	comps := connectedComponents(mask, w, h)
	if len(comps) == 0 {
		return compStats{}, false
	}
	best := comps[0]
	for _, c := range comps[1:] {
		if c.boxArea() > best.boxArea() || c.boxArea() == best.boxArea() && c.count > best.count {
			best = c
		}
	}
	return best, true
}
