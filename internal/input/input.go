// Package input turns a raw terminal byte stream into a per-tick input sample.
package input

import (
	"bufio"
	"io"
	"strconv"
	"time"
)

// keyHoldDuration is how long a key is considered "held" after its last press.
// Terminals report no key-up events, so held keys are inferred from auto-repeat.
const keyHoldDuration = 90 * time.Millisecond

// Mouse tracking escape sequences (any-event tracking + SGR extended coordinates).
const (
	enableMouse  = "\033[?1003h\033[?1006h"
	disableMouse = "\033[?1003l\033[?1006l"
)

// Input represents the current frame's input state.
type Input struct {
	Quit      bool
	Left      bool
	Right     bool
	Up        bool
	Down      bool
	Fire      bool
	Pause     bool
	Enter     bool
	Backspace bool
	Escape    bool
	Number    int
	Pressed   []byte

	// Pointer is the last reported mouse position in 1-based terminal cells.
	HasPointer bool
	PointerCol int
	PointerRow int
}

// keyState tracks the last time each key was pressed.
type keyState struct {
	quit      time.Time
	left      time.Time
	right     time.Time
	up        time.Time
	down      time.Time
	fire      time.Time
	pause     time.Time
	enter     time.Time
	backspace time.Time
	escape    time.Time
	number    time.Time
	numberVal int

	mouseDown  bool
	hasPointer bool
	pointerCol int
	pointerRow int
}

// Stream delivers input bytes via a channel and tracks key state for combinations.
type Stream struct {
	ch    chan byte
	state keyState
}

func newStream() *Stream {
	return &Stream{
		ch:    make(chan byte, 256),
		state: keyState{numberVal: -1},
	}
}

// StartStream spawns a goroutine that reads from r and sends bytes to the stream.
func StartStream(r *bufio.Reader) *Stream {
	s := newStream()
	go func() {
		for {
			b, err := r.ReadByte()
			if err != nil {
				close(s.ch)
				return
			}
			s.ch <- b
		}
	}()
	return s
}

// EnableMouse asks the terminal to report pointer motion and buttons.
func EnableMouse(w io.Writer) {
	io.WriteString(w, enableMouse)
}

// DisableMouse turns pointer reporting back off.
func DisableMouse(w io.Writer) {
	io.WriteString(w, disableMouse)
}

// ReadInput drains all available bytes from the stream (non-blocking).
// Handles escape sequences for arrow keys and mouse reports, and uses key state
// persistence so simultaneous keys are detected.
func ReadInput(s *Stream) Input {
	now := time.Now()
	var buf []byte

drain:
	for {
		select {
		case b, ok := <-s.ch:
			if !ok {
				s.state.quit = now
				break drain
			}
			buf = append(buf, b)
		default:
			break drain
		}
	}

	s.apply(buf, now)
	return s.sample(buf, now)
}

// ResetKeyInput forgets every held key, e.g. when switching screens so that the
// keypress that confirmed a menu does not leak into gameplay.
func ResetKeyInput(s *Stream) {
	s.state = keyState{
		numberVal:  -1,
		hasPointer: s.state.hasPointer,
		pointerCol: s.state.pointerCol,
		pointerRow: s.state.pointerRow,
	}
}

// apply parses the collected bytes and updates key state timestamps.
func (s *Stream) apply(buf []byte, now time.Time) {
	for i := 0; i < len(buf); i++ {
		b := buf[i]

		if b == '\x1b' && i+2 < len(buf) && buf[i+1] == '[' {
			switch buf[i+2] {
			case 'A':
				s.state.up = now
				i += 2
				continue
			case 'B':
				s.state.down = now
				i += 2
				continue
			case 'C':
				s.state.right = now
				i += 2
				continue
			case 'D':
				s.state.left = now
				i += 2
				continue
			case '<':
				if n := s.applyMouse(buf[i+3:]); n > 0 {
					i += 2 + n
					continue
				}
			}
		}

		applyByteToState(&s.state, b, now)
	}
}

// applyMouse parses an SGR mouse report body ("b;x;yM" or "b;x;ym") and returns
// the number of bytes consumed, or 0 if the body is incomplete or malformed.
func (s *Stream) applyMouse(body []byte) int {
	var fields [3]int
	field := 0
	start := 0
	for i, c := range body {
		switch {
		case c >= '0' && c <= '9':
			continue
		case c == ';' && field < 2:
			v, err := strconv.Atoi(string(body[start:i]))
			if err != nil {
				return 0
			}
			fields[field] = v
			field++
			start = i + 1
		case (c == 'M' || c == 'm') && field == 2:
			v, err := strconv.Atoi(string(body[start:i]))
			if err != nil {
				return 0
			}
			fields[2] = v
			s.state.hasPointer = true
			s.state.pointerCol = fields[1]
			s.state.pointerRow = fields[2]
			button := fields[0] &^ 32 // strip motion flag
			if button == 0 {
				s.state.mouseDown = c == 'M'
			}
			return i + 1
		default:
			return 0
		}
	}
	return 0
}

// sample builds the Input for this frame from the key state.
func (s *Stream) sample(buf []byte, now time.Time) Input {
	held := func(t time.Time) bool { return now.Sub(t) < keyHoldDuration }

	in := Input{
		Quit:       held(s.state.quit),
		Left:       held(s.state.left),
		Right:      held(s.state.right),
		Up:         held(s.state.up),
		Down:       held(s.state.down),
		Fire:       held(s.state.fire) || s.state.mouseDown,
		Pause:      held(s.state.pause),
		Enter:      held(s.state.enter),
		Backspace:  held(s.state.backspace),
		Escape:     held(s.state.escape),
		Number:     -1,
		Pressed:    buf,
		HasPointer: s.state.hasPointer,
		PointerCol: s.state.pointerCol,
		PointerRow: s.state.pointerRow,
	}
	if held(s.state.number) {
		in.Number = s.state.numberVal
	}
	return in
}

// applyByteToState updates the key state timestamps based on the pressed byte.
func applyByteToState(state *keyState, b byte, now time.Time) {
	switch b {
	case 'q', 'Q':
		state.quit = now
	case 'a', 'A', 'h', 'H':
		state.left = now
	case 'd', 'D', 'l', 'L':
		state.right = now
	case 'w', 'W', 'k', 'K':
		state.up = now
	case 's', 'S', 'j', 'J':
		state.down = now
	case ' ':
		state.fire = now
	case 'p', 'P':
		state.pause = now
	case '\n', '\r':
		state.enter = now
	case '\b', '\x7f':
		state.backspace = now
	case '\x1b':
		state.escape = now
	case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		state.number = now
		state.numberVal = int(b - '0')
	}
}
