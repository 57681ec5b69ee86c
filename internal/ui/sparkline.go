package ui

import "strings"

// SparklineChars are the block glyphs used for trend rendering, from
// shortest to tallest.
var SparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

const defaultSparklineWidth = 60

// Sparkline keeps a fixed window of numeric samples and renders them as
// a block-character trend line. The watch dashboard feeds it available
// memory once per poll.
type Sparkline struct {
	buf  []float64
	next int
	n    int
}

// NewSparkline returns a sparkline holding width samples. Non-positive
// widths fall back to the default window.
func NewSparkline(width int) *Sparkline {
	if width <= 0 {
		width = defaultSparklineWidth
	}
	return &Sparkline{buf: make([]float64, width)}
}

// Add appends a sample, evicting the oldest once the window is full.
func (s *Sparkline) Add(v float64) {
	s.buf[s.next] = v
	s.next = (s.next + 1) % len(s.buf)
	if s.n < len(s.buf) {
		s.n++
	}
}

// Count reports how many samples the window currently holds.
func (s *Sparkline) Count() int { return s.n }

// Last returns the newest sample, or zero when empty.
func (s *Sparkline) Last() float64 {
	if s.n == 0 {
		return 0
	}
	return s.buf[(s.next-1+len(s.buf))%len(s.buf)]
}

// Max returns the largest sample in the window.
func (s *Sparkline) Max() float64 {
	var max float64
	for i := 0; i < s.n; i++ {
		if v := s.at(i); v > max {
			max = v
		}
	}
	return max
}

// at returns the i-th sample in oldest-first order.
func (s *Sparkline) at(i int) float64 {
	if s.n < len(s.buf) {
		return s.buf[i]
	}
	return s.buf[(s.next+i)%len(s.buf)]
}

// Render draws the window one rune per slot, oldest on the left. Slots
// without a sample yet stay blank; heights scale to the window maximum.
func (s *Sparkline) Render() string {
	width := len(s.buf)
	if s.n == 0 {
		return strings.Repeat(" ", width)
	}

	scale := s.Max()
	if scale <= 0 {
		scale = 1
	}

	var sb strings.Builder
	sb.Grow(width * 3) // block glyphs are 3 bytes in UTF-8
	for i := 0; i < width; i++ {
		if i >= s.n {
			sb.WriteRune(' ')
			continue
		}
		level := int(s.at(i) / scale * float64(len(SparklineChars)-1))
		if level < 0 {
			level = 0
		} else if level > len(SparklineChars)-1 {
			level = len(SparklineChars) - 1
		}
		sb.WriteRune(SparklineChars[level])
	}
	return sb.String()
}
