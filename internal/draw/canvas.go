package draw

import (
	"math"
	"sort"
)

// Color is an xterm-256 palette index. Zero is transparent.
type Color uint8

// Point represents a 2D coordinate in logical units.
type Point struct {
	X, Y float64
}

// Block characters for drawing.
const (
	BlockFull      = '█'
	BlockUpperHalf = '▀'
	BlockLowerHalf = '▄'
)

// cell is what one terminal cell shows.
type cell struct {
	ch     rune
	fg, bg Color
}

// Canvas is a colored drawing buffer with 2x vertical resolution using half-block
// characters. It scales from logical coordinates to terminal cells and only emits
// the cells that changed since the last Render.
type Canvas struct {
	termWidth      int
	termHeight     int
	subPixelHeight int     // termHeight * 2
	pixels         []Color // [y * termWidth + x]

	logicalWidth  float64
	logicalHeight float64
	scaleX        float64 // termWidth / logicalWidth
	scaleY        float64 // subPixelHeight / logicalHeight

	// 0-based terminal offsets used to center the render area.
	offsetCol int
	offsetRow int

	// Cells on screen after the last Render. Nil forces a full redraw.
	shown []cell

	scaledBuf       []Point
	intersectionBuf []float64
	polygonBuf      []Point
}

// NewScaledCanvas creates a canvas that maps logicalWidth x logicalHeight units onto
// termWidth x termHeight terminal cells.
func NewScaledCanvas(termWidth, termHeight int, logicalWidth, logicalHeight float64) *Canvas {
	c := &Canvas{logicalWidth: logicalWidth, logicalHeight: logicalHeight}
	c.Resize(termWidth, termHeight)
	return c
}

// Resize updates the canvas for new terminal dimensions while keeping the logical
// size. The next Render redraws everything.
func (c *Canvas) Resize(termWidth, termHeight int) {
	termWidth, termHeight = max(termWidth, 1), max(termHeight, 1)
	if termWidth != c.termWidth || termHeight != c.termHeight {
		c.termWidth = termWidth
		c.termHeight = termHeight
		c.subPixelHeight = termHeight * 2
		c.pixels = make([]Color, c.subPixelHeight*termWidth)
		c.shown = nil
	}
	c.scaleX = float64(c.termWidth) / c.logicalWidth
	c.scaleY = float64(c.subPixelHeight) / c.logicalHeight
}

// SetOffset sets the 0-based column and row offset for centering the canvas.
func (c *Canvas) SetOffset(col, row int) {
	if col != c.offsetCol || row != c.offsetRow {
		c.shown = nil
	}
	c.offsetCol = col
	c.offsetRow = row
}

func (c *Canvas) OffsetCol() int      { return c.offsetCol }
func (c *Canvas) OffsetRow() int      { return c.offsetRow }
func (c *Canvas) TerminalWidth() int  { return c.termWidth }
func (c *Canvas) TerminalHeight() int { return c.termHeight }

// Invalidate forces the next Render to redraw every cell. A full redraw skips
// blank cells, so callers clear the screen first.
func (c *Canvas) Invalidate() {
	c.shown = nil
}

// MarkTextDirty records that text was written over width cells starting at the
// 1-based canvas position (col, row), so the next Render repaints them.
func (c *Canvas) MarkTextDirty(col, row, width int) {
	row--
	if c.shown == nil || row < 0 || row >= c.termHeight {
		return
	}
	for x := max(col-1, 0); x < min(col-1+width, c.termWidth); x++ {
		c.shown[row*c.termWidth+x] = cell{ch: -1}
	}
}

// Clear resets all pixels.
func (c *Canvas) Clear() {
	clear(c.pixels)
}

func (c *Canvas) setPixel(x, y int, color Color) {
	if x >= 0 && x < c.termWidth && y >= 0 && y < c.subPixelHeight {
		c.pixels[y*c.termWidth+x] = color
	}
}

func (c *Canvas) toPixel(x, y float64) (int, int) {
	return int(math.Round(x * c.scaleX)), int(math.Round(y * c.scaleY))
}

// Set colors the pixel at logical coordinates.
func (c *Canvas) Set(x, y float64, color Color) {
	px, py := c.toPixel(x, y)
	c.setPixel(px, py, color)
}

// FillCircle draws a filled circle. Circles smaller than a pixel still draw one.
func (c *Canvas) FillCircle(x, y, r float64, color Color) {
	rx, ry := r*c.scaleX, r*c.scaleY
	cx, cy := x*c.scaleX, y*c.scaleY
	if rx < 0.75 && ry < 0.75 {
		c.setPixel(int(math.Round(cx)), int(math.Round(cy)), color)
		return
	}
	for py := int(math.Floor(cy - ry)); py <= int(math.Ceil(cy+ry)); py++ {
		dy := (float64(py) - cy) / ry
		if dy < -1 || dy > 1 {
			continue
		}
		half := rx * math.Sqrt(1-dy*dy)
		for px := int(math.Ceil(cx - half)); px <= int(math.Floor(cx+half)); px++ {
			c.setPixel(px, py, color)
		}
	}
}

// FillRect fills the axis-aligned box centered on (x, y).
func (c *Canvas) FillRect(x, y, halfW, halfH float64, color Color) {
	x0, y0 := c.toPixel(x-halfW, y-halfH)
	x1, y1 := c.toPixel(x+halfW, y+halfH)
	for py := y0; py <= y1; py++ {
		for px := x0; px <= x1; px++ {
			c.setPixel(px, py, color)
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(p1, p2 Point, color Color) {
	x1, y1 := c.toPixel(p1.X, p1.Y)
	x2, y2 := c.toPixel(p2.X, p2.Y)

	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy
	for {
		c.setPixel(x1, y1, color)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// DrawPolygon draws a polygon outline, filling the interior when filled is true.
func (c *Canvas) DrawPolygon(points []Point, color Color, filled bool) {
	if len(points) < 3 {
		return
	}
	if filled {
		c.fillPolygon(points, color)
	}
	n := len(points)
	for i := 0; i < n; i++ {
		c.DrawLine(points[i], points[(i+1)%n], color)
	}
}

// fillPolygon fills using a scanline pass in pixel space.
func (c *Canvas) fillPolygon(points []Point, color Color) {
	if cap(c.scaledBuf) < len(points) {
		c.scaledBuf = make([]Point, len(points))
	}
	scaled := c.scaledBuf[:len(points)]
	for i, p := range points {
		scaled[i] = Point{X: p.X * c.scaleX, Y: p.Y * c.scaleY}
	}

	minY, maxY := scaled[0].Y, scaled[0].Y
	for _, p := range scaled {
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	for y := int(math.Floor(minY)); y <= int(math.Ceil(maxY)); y++ {
		scanY := float64(y) + 0.5
		xs := c.intersectionBuf[:0]
		n := len(scaled)
		for i := 0; i < n; i++ {
			p1, p2 := scaled[i], scaled[(i+1)%n]
			if (p1.Y <= scanY && p2.Y > scanY) || (p2.Y <= scanY && p1.Y > scanY) {
				t := (scanY - p1.Y) / (p2.Y - p1.Y)
				xs = append(xs, p1.X+t*(p2.X-p1.X))
			}
		}
		c.intersectionBuf = xs

		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			for x := int(math.Ceil(xs[i])); x <= int(math.Floor(xs[i+1])); x++ {
				c.setPixel(x, y, color)
			}
		}
	}
}

// BorrowPoints returns a reusable slice of n points, valid until the next call.
func (c *Canvas) BorrowPoints(n int) []Point {
	if cap(c.polygonBuf) < n {
		c.polygonBuf = make([]Point, n)
	}
	return c.polygonBuf[:n]
}

// cellAt composes the half-block cell for a terminal row and column.
func (c *Canvas) cellAt(row, col int) cell {
	top := c.pixels[row*2*c.termWidth+col]
	bottom := c.pixels[(row*2+1)*c.termWidth+col]
	switch {
	case top == 0 && bottom == 0:
		return cell{ch: ' '}
	case top == bottom:
		return cell{ch: BlockFull, fg: top}
	case bottom == 0:
		return cell{ch: BlockUpperHalf, fg: top}
	case top == 0:
		return cell{ch: BlockLowerHalf, fg: bottom}
	default:
		return cell{ch: BlockUpperHalf, fg: top, bg: bottom}
	}
}

// Render writes every cell that changed since the previous Render to cw.
// Positions are canvas-relative; the canvas offset is applied here.
func (c *Canvas) Render(cw *ChunkWriter) {
	full := c.shown == nil
	if full {
		c.shown = make([]cell, c.termWidth*c.termHeight)
	}

	var fg, bg Color
	styled := false
	for row := 0; row < c.termHeight; row++ {
		lastCol := -2
		for col := 0; col < c.termWidth; col++ {
			next := c.cellAt(row, col)
			i := row*c.termWidth + col
			if !full && c.shown[i] == next {
				continue
			}
			c.shown[i] = next
			if full && next.ch == ' ' {
				continue
			}

			if col != lastCol+1 {
				cw.MoveCursor(col+1+c.offsetCol, row+1+c.offsetRow)
			}
			lastCol = col
			if !styled || next.fg != fg || next.bg != bg {
				cw.Style(next.fg, next.bg)
				fg, bg, styled = next.fg, next.bg, true
			}
			cw.WriteRune(next.ch)
		}
	}
	if styled {
		cw.ResetStyle()
	}
}

// LogicalToTerminal converts logical coordinates to a 1-based, offset-free
// terminal position (col, row).
func (c *Canvas) LogicalToTerminal(x, y float64) (col, row int) {
	px, py := c.toPixel(x, y)
	return px + 1, py/2 + 1
}

// TerminalToLogical converts an absolute 1-based terminal position (as reported by
// the mouse) into logical coordinates at the center of that cell. ok is false if
// the position is outside the canvas.
func (c *Canvas) TerminalToLogical(col, row int) (x, y float64, ok bool) {
	col -= c.offsetCol + 1
	row -= c.offsetRow + 1
	if col < 0 || col >= c.termWidth || row < 0 || row >= c.termHeight {
		return 0, 0, false
	}
	x = (float64(col) + 0.5) / c.scaleX
	y = (float64(row*2) + 1) / c.scaleY
	return x, y, true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
