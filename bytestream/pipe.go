package bytestream

import (
	"io"
	"sync"
)

// Pipe is an unbounded in-memory byte conduit. One goroutine pushes chunks in
// arrival order; one goroutine reads them back as a contiguous byte sequence.
// Push never blocks and Read blocks only while the pipe is empty and open.
type Pipe struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue [][]byte // chunks not yet consumed, in arrival order
	size  int      // total bytes queued

	werr error // writer terminal state: io.EOF after Close, or the push-side failure
	rerr error // reader terminal state: set by CloseRead, observed immediately
}

// New creates an empty, open Pipe.
func New() *Pipe {
	p := &Pipe{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Push appends a copy of b to the pipe. It never blocks. Pushes after a
// terminal state are discarded.
func (p *Pipe) Push(b []byte) {
	if len(b) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.werr != nil || p.rerr != nil {
		return
	}
	chunk := make([]byte, len(b))
	copy(chunk, b)
	p.queue = append(p.queue, chunk)
	p.size += len(chunk)
	p.cond.Signal()
}

// Close marks the end of data. The reader drains any queued bytes and then
// receives io.EOF.
func (p *Pipe) Close() {
	p.CloseWithError(nil)
}

// CloseWithError marks the pipe as failed. The reader drains any queued bytes
// and then receives err. A nil err is equivalent to Close. The first terminal
// state wins; later calls are no-ops.
func (p *Pipe) CloseWithError(err error) {
	if err == nil {
		err = io.EOF
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.werr != nil {
		return
	}
	p.werr = err
	p.cond.Broadcast()
}

// CloseRead abandons the pipe from the consumer side: queued data is
// discarded and every subsequent Read returns err immediately. A nil err
// defaults to io.ErrClosedPipe. Pending pushes are dropped.
func (p *Pipe) CloseRead(err error) {
	if err == nil {
		err = io.ErrClosedPipe
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rerr != nil {
		return
	}
	p.rerr = err
	p.queue = nil
	p.size = 0
	p.cond.Broadcast()
}

// Read implements io.Reader. It returns queued bytes in push order, blocking
// while the pipe is empty and not yet terminated. After the queue drains it
// returns the writer's terminal state.
func (p *Pipe) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.rerr != nil {
			return 0, p.rerr
		}
		if len(p.queue) > 0 {
			n := copy(b, p.queue[0])
			if n == len(p.queue[0]) {
				p.queue[0] = nil
				p.queue = p.queue[1:]
			} else {
				p.queue[0] = p.queue[0][n:]
			}
			p.size -= n
			return n, nil
		}
		if p.werr != nil {
			if p.werr == io.EOF {
				return 0, io.EOF
			}
			return 0, p.werr
		}
		p.cond.Wait()
	}
}

// Buffered reports the number of bytes queued but not yet read.
func (p *Pipe) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

var _ io.Reader = (*Pipe)(nil)
