//go:build !(rp2040 || rp2350 || avr)

package hal

import (
	"context"
	"io"
)

// StreamPort adapts a blocking reader/writer pair (stdin/stdout, a pty) to
// SerialPort. A single goroutine reads ahead into a small channel.
type StreamPort struct {
	w       io.Writer
	rx      chan []byte
	pending []byte // single consumer
}

func NewStreamPort(r io.Reader, w io.Writer) *StreamPort {
	p := &StreamPort{w: w, rx: make(chan []byte, 4)}
	go func() {
		defer close(p.rx)
		for {
			buf := make([]byte, 128)
			n, err := r.Read(buf)
			if n > 0 {
				p.rx <- buf[:n]
			}
			if err != nil {
				return
			}
		}
	}()
	return p
}

func (p *StreamPort) Write(b []byte) (int, error) { return p.w.Write(b) }

// RecvSomeContext returns io.EOF once the reader is exhausted.
func (p *StreamPort) RecvSomeContext(ctx context.Context, b []byte) (int, error) {
	if len(p.pending) == 0 {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case chunk, ok := <-p.rx:
			if !ok {
				return 0, io.EOF
			}
			p.pending = chunk
		}
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}
