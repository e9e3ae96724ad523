// Package serial bridges the key-store protocol onto a TCP socket, the way a
// serial-to-network adapter exposes the device.
package serial

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/kilianp07/taxi/core/keystore"
	"github.com/kilianp07/taxi/core/logger"
)

// DefaultDialTimeout bounds connection establishment.
const DefaultDialTimeout = 3 * time.Second

// TCPChannel implements keystore.Channel on a stream connection.
type TCPChannel struct {
	mu     sync.Mutex
	conn   net.Conn
	r      *bufio.Reader
	open   bool
	logger logger.Logger
}

// Dial connects to the bridge at addr.
func Dial(ctx context.Context, addr string, log logger.Logger) (*TCPChannel, error) {
	d := net.Dialer{Timeout: DefaultDialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("serial: dial %s: %w", addr, err)
	}
	return NewTCPChannel(conn, log), nil
}

// NewTCPChannel wraps an established connection.
func NewTCPChannel(conn net.Conn, log logger.Logger) *TCPChannel {
	return &TCPChannel{conn: conn, r: bufio.NewReader(conn), open: true, logger: log}
}

// IsOpen reports whether the connection is usable.
func (c *TCPChannel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Write sends bytes to the device. A failed write closes the channel.
func (c *TCPChannel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return 0, net.ErrClosed
	}
	n, err := c.conn.Write(p)
	if err != nil {
		c.closeLocked(err)
	}
	return n, err
}

// ReceiveByte waits up to timeout for one byte from the device.
func (c *TCPChannel) ReceiveByte(timeout time.Duration) (byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return 0, false
	}
	if c.r.Buffered() == 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			c.closeLocked(err)
			return 0, false
		}
	}
	b, err := c.r.ReadByte()
	if err != nil {
		var ne net.Error
		if !errors.As(err, &ne) || !ne.Timeout() {
			c.closeLocked(err)
		}
		return 0, false
	}
	return b, true
}

// Close closes the connection.
func (c *TCPChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return nil
	}
	c.open = false
	return c.conn.Close()
}

func (c *TCPChannel) closeLocked(cause error) {
	if c.logger != nil {
		c.logger.Warnf("serial bridge closed: %v", cause)
	}
	c.open = false
	_ = c.conn.Close()
}

var _ keystore.Channel = (*TCPChannel)(nil)
