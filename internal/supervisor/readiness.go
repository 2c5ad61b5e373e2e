package supervisor

import (
	"io"
	"regexp"
	"strings"
	"sync/atomic"
)

// Detector echoes the child's stdout and flips Ready the first time one of
// the marker phrases appears. The flag never goes back to false.
type Detector struct {
	pattern *regexp.Regexp
	keep    int
	out     io.Writer
	onReady func()

	ready atomic.Bool
	tail  []byte
}

// NewDetector builds a detector for the literal marker phrases.
// onReady runs once, on the goroutine that saw the marker.
func NewDetector(markers []string, out io.Writer, onReady func()) *Detector {
	quoted := make([]string, 0, len(markers))
	longest := 0
	for _, m := range markers {
		if m == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(m))
		if len(m) > longest {
			longest = len(m)
		}
	}
	d := &Detector{out: out, onReady: onReady}
	if len(quoted) > 0 {
		d.pattern = regexp.MustCompile(strings.Join(quoted, "|"))
		d.keep = longest - 1
	}
	if d.out == nil {
		d.out = io.Discard
	}
	return d
}

// Ready reports whether a marker has been seen.
func (d *Detector) Ready() bool { return d.ready.Load() }

// Scan echoes chunk and tests it for a marker. It returns true only for the
// chunk that caused the transition.
func (d *Detector) Scan(chunk []byte) bool {
	_, _ = d.out.Write(chunk)
	if d.pattern == nil || d.ready.Load() {
		return false
	}
	// Prefix the tail of the previous chunk so a marker split across reads
	// still matches.
	buf := append(d.tail, chunk...)
	if !d.pattern.Match(buf) {
		if len(buf) > d.keep {
			buf = buf[len(buf)-d.keep:]
		}
		d.tail = append(d.tail[:0:0], buf...)
		return false
	}
	d.tail = nil
	if !d.ready.CompareAndSwap(false, true) {
		return false
	}
	if d.onReady != nil {
		d.onReady()
	}
	return true
}

// Run reads r until EOF or error. Ending without a marker is not an error.
func (d *Detector) Run(r io.Reader) {
	if r == nil {
		return
	}
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			d.Scan(buf[:n])
		}
		if err != nil {
			return
		}
	}
}
