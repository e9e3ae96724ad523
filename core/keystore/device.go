package keystore

import (
	"errors"
	"sync"
	"time"
)

// Device is the receiving side of the protocol: it answers START with ACK or
// CAPACITY_FULL, collects the data frame and acknowledges stored records.
// Capacity 0 means unlimited.
type Device struct {
	mu       sync.Mutex
	capacity int
	records  [][]byte
	buf      []byte
	inFrame  bool
	rejected int
}

// NewDevice returns a device able to store capacity records.
func NewDevice(capacity int) *Device {
	return &Device{capacity: capacity}
}

// Feed consumes bytes sent by the host and returns the device's replies.
func (d *Device) Feed(p []byte) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	var replies []byte
	for _, b := range p {
		if d.awaitingChecksumLocked() {
			d.buf = append(d.buf, b)
			replies = append(replies, d.completeLocked())
			continue
		}
		if b == ControlStart {
			// A new START abandons a half received frame.
			d.buf = d.buf[:0]
			if d.fullLocked() {
				d.inFrame = false
				replies = append(replies, ControlCapacityFull)
				continue
			}
			d.inFrame = true
			replies = append(replies, ControlAck)
			continue
		}
		if d.inFrame {
			d.buf = append(d.buf, b)
		}
	}
	return replies
}

// awaitingChecksumLocked reports whether the trailer has been received and
// the next byte is the checksum.
func (d *Device) awaitingChecksumLocked() bool {
	n := len(d.buf)
	return d.inFrame && n >= 3 && d.buf[n-2] == ControlAck && d.buf[n-1] == ControlEnd
}

func (d *Device) completeLocked() byte {
	defer func() {
		d.buf = d.buf[:0]
		d.inFrame = false
	}()
	var f DataFrame
	if err := f.UnmarshalBinary(d.buf); err != nil {
		d.rejected++
		return ControlRetry
	}
	d.records = append(d.records, f.Payload)
	return ControlAck
}

func (d *Device) fullLocked() bool {
	return d.capacity > 0 && len(d.records) >= d.capacity
}

// Records returns copies of the stored payloads.
func (d *Device) Records() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.records))
	for i, r := range d.records {
		out[i] = append([]byte(nil), r...)
	}
	return out
}

// Rejected returns the number of frames refused for a bad checksum.
func (d *Device) Rejected() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rejected
}

// MemoryChannel connects an Adapter directly to a Device.
type MemoryChannel struct {
	mu       sync.Mutex
	dev      *Device
	pending  []byte
	open     bool
	key      bool
	driverID int
}

// NewMemoryChannel returns an open channel with a key carrying driverID.
func NewMemoryChannel(dev *Device, driverID int) *MemoryChannel {
	return &MemoryChannel{dev: dev, open: true, key: true, driverID: driverID}
}

// SetKey inserts or removes the key.
func (m *MemoryChannel) SetKey(present bool) {
	m.mu.Lock()
	m.key = present
	m.mu.Unlock()
}

func (m *MemoryChannel) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *MemoryChannel) KeyPresent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open && m.key
}

// DriverID implements IdentityReader.
func (m *MemoryChannel) DriverID() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.driverID == 0 {
		return 0, errors.New("key carries no driver id")
	}
	return m.driverID, nil
}

func (m *MemoryChannel) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return 0, errors.New("channel closed")
	}
	m.pending = append(m.pending, m.dev.Feed(p)...)
	return len(p), nil
}

func (m *MemoryChannel) ReceiveByte(time.Duration) (byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return 0, false
	}
	b := m.pending[0]
	m.pending = m.pending[1:]
	return b, true
}

// Close closes the channel.
func (m *MemoryChannel) Close() error {
	m.mu.Lock()
	m.open = false
	m.mu.Unlock()
	return nil
}
