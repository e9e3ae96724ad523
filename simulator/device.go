package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"

	"github.com/kilianp07/taxi/core/keystore"
	"github.com/kilianp07/taxi/infra/logger"
)

// DeviceServer exposes a key-store device on a TCP listener, one host at a
// time per connection. Every connection shares the device memory.
type DeviceServer struct {
	dev   *keystore.Device
	strat ReplyStrategy
	log   logger.Logger
	wg    sync.WaitGroup
}

// NewDeviceServer creates a server for a device of the given capacity.
func NewDeviceServer(capacity int, strat ReplyStrategy, log logger.Logger) *DeviceServer {
	if strat == nil {
		strat = AutoReply{}
	}
	return &DeviceServer{dev: keystore.NewDevice(capacity), strat: strat, log: logger.OrNop(log)}
}

// Device returns the simulated device.
func (s *DeviceServer) Device() *keystore.Device { return s.dev }

// Serve accepts connections until ctx is canceled or the listener fails.
func (s *DeviceServer) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	defer s.wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

func (s *DeviceServer) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	s.log.Infof("host connected from %s", conn.RemoteAddr())
	r := bufio.NewReader(conn)
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			replies := s.strat.Reply(ctx, s.dev.Feed(buf[:n]))
			if len(replies) > 0 {
				if _, werr := conn.Write(replies); werr != nil {
					s.log.Warnf("write reply: %v", werr)
					return
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.log.Warnf("read: %v", err)
			}
			s.log.Infof("host %s disconnected, %d record(s) stored", conn.RemoteAddr(), len(s.dev.Records()))
			return
		}
	}
}

// Dump writes the stored records one per line, the format read by
// "taxi trips import".
func (s *DeviceServer) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, rec := range s.dev.Records() {
		if _, err := bw.Write(append(rec, '\n')); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DumpFile writes the records to path.
func (s *DeviceServer) DumpFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.Dump(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
