package remux

import (
	"bytes"
	"sync"
)

// lineRing keeps the last lines written to it. ffmpeg's stderr is captured
// here so failures can be reported without buffering unbounded output.
type lineRing struct {
	mu      sync.Mutex
	lines   []string
	head    int
	count   int
	partial []byte
}

func newLineRing(capacity int) *lineRing {
	if capacity < 1 {
		capacity = 20
	}
	return &lineRing{lines: make([]string, capacity)}
}

// Write implements io.Writer. Partial lines are held until their newline
// arrives.
func (r *lineRing) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := p
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			r.partial = append(r.partial, data...)
			// Bound a runaway line.
			if len(r.partial) > 4096 {
				r.partial = r.partial[len(r.partial)-4096:]
			}
			break
		}
		line := append(r.partial, data[:i]...)
		r.partial = nil
		r.push(string(bytes.TrimRight(line, "\r")))
		data = data[i+1:]
	}
	return len(p), nil
}

func (r *lineRing) push(line string) {
	if line == "" {
		return
	}
	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
	if r.count < len(r.lines) {
		r.count++
	}
}

// Lines returns the retained lines oldest first, including a trailing
// partial line.
func (r *lineRing) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, r.count+1)
	start := (r.head - r.count + len(r.lines)) % len(r.lines)
	for i := 0; i < r.count; i++ {
		out = append(out, r.lines[(start+i)%len(r.lines)])
	}
	if len(r.partial) > 0 {
		out = append(out, string(r.partial))
	}
	return out
}
