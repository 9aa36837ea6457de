package draw

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// maxChunkSize is the maximum bytes written at once. Close to a typical MTU so SSH
// sessions stream frames smoothly.
const maxChunkSize = 1400

// ANSI control sequences.
const (
	clearScreen = "\033[H\033[2J"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
	resetStyle  = "\033[0m"
)

// ChunkWriter accumulates terminal output for one frame and writes it in chunks.
type ChunkWriter struct {
	buf    strings.Builder
	bufw   *bufio.Writer
	numBuf [20]byte // scratch for allocation-free integer formatting
	offCol int
	offRow int
}

// NewChunkWriter creates a ChunkWriter that writes to w. offsetCol and offsetRow
// are added to WriteAt coordinates.
func NewChunkWriter(w io.Writer, offsetCol, offsetRow int) *ChunkWriter {
	return &ChunkWriter{
		bufw:   bufio.NewWriterSize(w, 8192),
		offCol: offsetCol,
		offRow: offsetRow,
	}
}

// SetOffset updates the offset applied by WriteAt.
func (cw *ChunkWriter) SetOffset(offsetCol, offsetRow int) {
	cw.offCol = offsetCol
	cw.offRow = offsetRow
}

func (cw *ChunkWriter) writeInt(n int) {
	cw.buf.Write(strconv.AppendInt(cw.numBuf[:0], int64(n), 10))
}

// MoveCursor appends an absolute 1-based cursor position. No offset is applied.
func (cw *ChunkWriter) MoveCursor(col, row int) {
	cw.buf.WriteString("\033[")
	cw.writeInt(row)
	cw.buf.WriteByte(';')
	cw.writeInt(col)
	cw.buf.WriteByte('H')
}

// WriteAt writes s at canvas-relative 1-based coordinates.
func (cw *ChunkWriter) WriteAt(col, row int, s string) {
	cw.MoveCursor(col+cw.offCol, row+cw.offRow)
	cw.buf.WriteString(s)
}

// WriteCentered writes s centered on a row of a region width columns wide.
func (cw *ChunkWriter) WriteCentered(width, row int, s string) {
	col := (width-len([]rune(s)))/2 + 1
	cw.WriteAt(max(col, 1), row, s)
}

// Style sets foreground and background palette colors. Zero means default.
func (cw *ChunkWriter) Style(fg, bg Color) {
	cw.buf.WriteString("\033[0")
	if fg != 0 {
		cw.buf.WriteString(";38;5;")
		cw.writeInt(int(fg))
	}
	if bg != 0 {
		cw.buf.WriteString(";48;5;")
		cw.writeInt(int(bg))
	}
	cw.buf.WriteByte('m')
}

// ResetStyle restores the default colors.
func (cw *ChunkWriter) ResetStyle() {
	cw.buf.WriteString(resetStyle)
}

// Write implements io.Writer.
func (cw *ChunkWriter) Write(p []byte) (n int, err error) {
	return cw.buf.Write(p)
}

func (cw *ChunkWriter) WriteString(s string) {
	cw.buf.WriteString(s)
}

func (cw *ChunkWriter) WriteRune(r rune) {
	cw.buf.WriteRune(r)
}

// Len returns the number of buffered bytes.
func (cw *ChunkWriter) Len() int {
	return cw.buf.Len()
}

// Flush writes the accumulated frame in chunks and resets the buffer.
func (cw *ChunkWriter) Flush() error {
	data := cw.buf.String()
	cw.buf.Reset()
	for len(data) > 0 {
		chunk := data
		if len(chunk) > maxChunkSize {
			chunk = data[:maxChunkSize]
		}
		if _, err := cw.bufw.WriteString(chunk); err != nil {
			return err
		}
		if err := cw.bufw.Flush(); err != nil {
			return err
		}
		data = data[len(chunk):]
	}
	return cw.bufw.Flush()
}

var _ io.Writer = (*ChunkWriter)(nil)

// TermSizeFunc returns the terminal dimensions.
type TermSizeFunc func() (width, height int, err error)

// DefaultTermSizeFunc returns the size of os.Stdout.
var DefaultTermSizeFunc TermSizeFunc = func() (int, int, error) {
	return term.GetSize(int(os.Stdout.Fd()))
}

// ClearScreen clears the terminal and moves the cursor to the top-left.
func ClearScreen(w io.Writer) {
	io.WriteString(w, clearScreen)
}

// HideCursor hides the terminal cursor.
func HideCursor(w io.Writer) {
	io.WriteString(w, hideCursor)
}

// ShowCursor shows the terminal cursor and resets colors.
func ShowCursor(w io.Writer) {
	io.WriteString(w, resetStyle+showCursor)
}

// Viewport is where the play area sits inside the terminal.
type Viewport struct {
	Width, Height        int // render area in cells
	OffsetCol, OffsetRow int
}

// Fit computes the largest render area with the given logical aspect ratio that
// fits the terminal, capped at maxW x maxH cells and centered. reserveRows rows at
// the top are kept free for the HUD. Half-block cells are two pixels tall, so one
// cell row covers twice the height of a cell column's width.
func Fit(termW, termH, reserveRows, maxW, maxH int, logicalW, logicalH float64) Viewport {
	availW := min(termW, maxW)
	availH := min(termH-reserveRows, maxH)
	if availW < 1 || availH < 1 {
		return Viewport{Width: max(availW, 1), Height: max(availH, 1), OffsetRow: reserveRows}
	}

	aspect := logicalW / logicalH
	w := availW
	h := int(float64(w) / aspect / 2)
	if h > availH {
		h = availH
		w = int(float64(h) * 2 * aspect)
	}
	w, h = max(w, 1), max(h, 1)
	return Viewport{
		Width:     w,
		Height:    h,
		OffsetCol: (termW - w) / 2,
		OffsetRow: reserveRows + (termH-reserveRows-h)/2,
	}
}
