package engine

// Stream identifies which pipe a line was read from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Line is one line of task output as produced by a Runner.
type Line struct {
	Stream Stream
	Text   string
}

// OutputLine is a line in the run output, tagged with its origin.
type OutputLine struct {
	Offset int // Absolute position since the session started
	Step   int
	Task   string // Catalog path of the emitting task
	Stream Stream
	Text   string
}

// Output is the bounded, append-only output of a run session. When it grows
// past its limit the oldest lines are dropped; offsets keep counting so a
// reader can resume where it left off.
//
// Output is written only by the engine's owner. Views taken with View stay
// valid and unchanged after later appends.
type Output struct {
	lines    []OutputLine
	dropped  int
	maxLines int
}

// NewOutput creates an output buffer that keeps at most maxLines lines.
func NewOutput(maxLines int) *Output {
	if maxLines <= 0 {
		maxLines = 1
	}
	return &Output{maxLines: maxLines}
}

// Append adds a line and returns its absolute offset.
func (o *Output) Append(step int, task string, line Line) int {
	offset := o.dropped + len(o.lines)
	if len(o.lines) >= o.maxLines {
		// Compact into a fresh array so existing views keep their contents.
		keep := o.maxLines - o.maxLines/4
		if keep < 1 {
			keep = 1
		}
		drop := len(o.lines) - keep + 1
		fresh := make([]OutputLine, len(o.lines)-drop, o.maxLines)
		copy(fresh, o.lines[drop:])
		o.lines = fresh
		o.dropped += drop
	}
	o.lines = append(o.lines, OutputLine{
		Offset: offset,
		Step:   step,
		Task:   task,
		Stream: line.Stream,
		Text:   line.Text,
	})
	return offset
}

// View returns an immutable view of the current contents.
func (o *Output) View() OutputView {
	return OutputView{lines: o.lines[:len(o.lines):len(o.lines)], start: o.dropped}
}

// OutputView is a read-only snapshot of an Output.
type OutputView struct {
	lines []OutputLine
	start int
}

// Start is the offset of the oldest retained line.
func (v OutputView) Start() int { return v.start }

// End is the offset one past the newest line.
func (v OutputView) End() int { return v.start + len(v.lines) }

// Len is the number of retained lines.
func (v OutputView) Len() int { return len(v.lines) }

// From returns the retained lines at or after offset. Offsets older than
// Start resume from the oldest retained line. The result must not be modified.
func (v OutputView) From(offset int) []OutputLine {
	i := offset - v.start
	if i < 0 {
		i = 0
	}
	if i >= len(v.lines) {
		return nil
	}
	return v.lines[i:]
}

// Lines returns every retained line. The result must not be modified.
func (v OutputView) Lines() []OutputLine {
	return v.lines
}
