// Package transporttest provides a scripted stream Dialer for tests.
package transporttest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/harunnryd/cortex/internal/transport"
)

// Dialer hands out connections queued with Accept. Dial blocks until a
// connection or a queued failure is available.
type Dialer struct {
	mu    sync.Mutex
	fails []error
	conns chan *Conn
	dials atomic.Int64
}

func NewDialer() *Dialer {
	return &Dialer{conns: make(chan *Conn, 16)}
}

// FailNext makes the next Dial return err.
func (d *Dialer) FailNext(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fails = append(d.fails, err)
}

// Accept queues a connection for the next Dial.
func (d *Dialer) Accept() *Conn {
	c := &Conn{
		msgs:   make(chan []byte, 64),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
	d.conns <- c
	return c
}

func (d *Dialer) Dials() int {
	return int(d.dials.Load())
}

func (d *Dialer) Dial(ctx context.Context) (transport.EventReader, error) {
	d.dials.Add(1)

	d.mu.Lock()
	if len(d.fails) > 0 {
		err := d.fails[0]
		d.fails = d.fails[1:]
		d.mu.Unlock()
		return nil, err
	}
	d.mu.Unlock()

	select {
	case c := <-d.conns:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type Conn struct {
	msgs      chan []byte
	errs      chan error
	closed    chan struct{}
	closeOnce sync.Once
}

// Send delivers v as one JSON-encoded event.
func (c *Conn) Send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	c.SendRaw(b)
}

func (c *Conn) SendRaw(b []byte) {
	c.msgs <- b
}

// Drop fails the connection with err once queued messages are read.
func (c *Conn) Drop(err error) {
	if err == nil {
		err = errors.New("connection dropped")
	}
	c.errs <- err
}

func (c *Conn) Next() ([]byte, error) {
	select {
	case b := <-c.msgs:
		return b, nil
	default:
	}

	select {
	case b := <-c.msgs:
		return b, nil
	case err := <-c.errs:
		return nil, err
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *Conn) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
