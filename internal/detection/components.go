package detection

import (
	"image"
	"math"
	"sort"

	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

// Components groups edge points into 8-connected pixel components, largest
// first. Points are snapped to the nearest pixel for connectivity but are
// returned unchanged, and each point appears in exactly one component.
func Components(points []geometry.Point) [][]geometry.Point {
	byPixel := make(map[image.Point][]int, len(points))
	for i, p := range points {
		key := image.Point{X: int(math.Round(p.X)), Y: int(math.Round(p.Y))}
		byPixel[key] = append(byPixel[key], i)
	}

	visited := make(map[image.Point]bool, len(byPixel))
	components := make([][]geometry.Point, 0)
	for _, p := range points {
		start := image.Point{X: int(math.Round(p.X)), Y: int(math.Round(p.Y))}
		if visited[start] {
			continue
		}
		component := make([]geometry.Point, 0)
		floodFill(byPixel, visited, start, func(idx int) {
			component = append(component, points[idx])
		})
		components = append(components, component)
	}

	sort.SliceStable(components, func(i, j int) bool {
		return len(components[i]) > len(components[j])
	})
	return components
}

// LargestComponent returns the biggest 8-connected group of points, which
// for a cropped drop image is the drop outline. It returns nil for no points.
func LargestComponent(points []geometry.Point) []geometry.Point {
	components := Components(points)
	if len(components) == 0 {
		return nil
	}
	return components[0]
}

// floodFill walks 8-connected occupied pixels from start with an explicit
// stack, calling visit with the index of every point it reaches.
func floodFill(byPixel map[image.Point][]int, visited map[image.Point]bool, start image.Point, visit func(int)) {
	stack := []image.Point{start}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		indices, occupied := byPixel[p]
		if !occupied || visited[p] {
			continue
		}
		visited[p] = true
		for _, idx := range indices {
			visit(idx)
		}

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, image.Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
}
