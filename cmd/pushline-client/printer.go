package main

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/pushline/pushline-go/pkg/frame"
	"github.com/pushline/pushline-go/pkg/wire"
)

// printer writes every delivered frame to w as one line of JSON.
type printer struct {
	mu    sync.Mutex
	w     io.Writer
	count atomic.Uint64
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

// Deliver implements protocol.Consumer.
func (p *printer) Deliver(f frame.Frame) {
	p.count.Add(1)
	data, err := wire.EncodeJSON(f)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		fmt.Fprintf(p.w, "<unencodable frame: %v>\n", err)
		return
	}
	fmt.Fprintf(p.w, "%s\n", data)
}

// setOutput redirects subsequent frames to w.
func (p *printer) setOutput(w io.Writer) {
	p.mu.Lock()
	p.w = w
	p.mu.Unlock()
}

// delivered returns the number of frames handed to the printer, sequenced
// or not.
func (p *printer) delivered() uint64 {
	return p.count.Load()
}
