// Package bytestream provides an unbounded, order-preserving byte pipe that
// bridges push-style producers (socket read loops) to pull-style consumers
// (io.Reader). Unlike io.Pipe, Push never blocks: the producer runs at socket
// speed regardless of how fast the consumer drains. The cost is unbounded
// buffering; reader-side backpressure is a deliberate extension point, not a
// provided feature.
//
// A Pipe is single-pass and forward-only. Data queued before a terminal state
// (Close or CloseWithError) is always delivered to the reader first; only
// after the queue drains does Read return io.EOF or the failure.
//
//	p := bytestream.New()
//	go func() {
//	    p.Push([]byte("chunk"))
//	    p.Close()
//	}()
//	data, _ := io.ReadAll(p) // "chunk"
package bytestream
