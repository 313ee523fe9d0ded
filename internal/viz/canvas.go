package viz

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Braille cells are 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
const brailleBase = 0x2800

var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a braille pixel grid. Pixel coordinates run (Width*2) x
// (Height*4).
type Canvas struct {
	Width, Height int
	grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, grid: make([][]rune, h)}
	for i := range c.grid {
		c.grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.grid[row][col] |= pixelMap[y%4][x%2]
}

func (c *Canvas) Clear() {
	for i := range c.grid {
		for j := range c.grid[i] {
			c.grid[i][j] = brailleBase
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// TopDown maps world X/Z onto canvas pixels, centred on the origin with
// Extent world units from the centre to each edge.
type TopDown struct {
	Extent float64
}

func (v TopDown) Project(c *Canvas, p mgl64.Vec3) (int, int) {
	pw, ph := float64(c.Width*2), float64(c.Height*4)
	x := (p[0]/v.Extent + 1) / 2 * pw
	y := (p[2]/v.Extent + 1) / 2 * ph
	return int(x), int(y)
}

func (v TopDown) Line(c *Canvas, a, b mgl64.Vec3) {
	x0, y0 := v.Project(c, a)
	x1, y1 := v.Project(c, b)
	c.DrawLine(x0, y0, x1, y1)
}

// Marker draws a small cross at p.
func (v TopDown) Marker(c *Canvas, p mgl64.Vec3) {
	x, y := v.Project(c, p)
	c.Set(x, y)
	c.Set(x-1, y)
	c.Set(x+1, y)
	c.Set(x, y-1)
	c.Set(x, y+1)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
