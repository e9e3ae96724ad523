package keystore

import (
	"errors"
	"sync"
	"time"
)

// Step is one scripted device reply.
type Step struct {
	b      byte
	silent bool
}

// Respond scripts the device to answer with b.
func Respond(b byte) Step { return Step{b: b} }

// Silence scripts the device to let the read time out.
func Silence() Step { return Step{silent: true} }

// ScriptedChannel is an in-memory Channel replaying scripted replies and
// recording everything written. Reads past the end of the script time out.
// It is used by tests and the bench meter.
type ScriptedChannel struct {
	mu       sync.Mutex
	open     bool
	key      bool
	driverID int
	script   []Step
	writes   [][]byte
}

// NewScriptedChannel returns an open channel with a key inserted.
func NewScriptedChannel(script ...Step) *ScriptedChannel {
	return &ScriptedChannel{open: true, key: true, script: script}
}

// Responses scripts plain replies.
func Responses(bs ...byte) []Step {
	out := make([]Step, len(bs))
	for i, b := range bs {
		out[i] = Respond(b)
	}
	return out
}

// Script appends replies.
func (s *ScriptedChannel) Script(steps ...Step) {
	s.mu.Lock()
	s.script = append(s.script, steps...)
	s.mu.Unlock()
}

// SetOpen opens or closes the channel.
func (s *ScriptedChannel) SetOpen(open bool) {
	s.mu.Lock()
	s.open = open
	s.mu.Unlock()
}

// SetKey inserts or removes the key.
func (s *ScriptedChannel) SetKey(present bool) {
	s.mu.Lock()
	s.key = present
	s.mu.Unlock()
}

// SetDriverID sets the driver number stored on the key. Zero means the key
// carries none.
func (s *ScriptedChannel) SetDriverID(id int) {
	s.mu.Lock()
	s.driverID = id
	s.mu.Unlock()
}

func (s *ScriptedChannel) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *ScriptedChannel) KeyPresent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open && s.key
}

// DriverID implements IdentityReader.
func (s *ScriptedChannel) DriverID() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.driverID == 0 {
		return 0, errors.New("key carries no driver id")
	}
	return s.driverID, nil
}

func (s *ScriptedChannel) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, errors.New("channel closed")
	}
	s.writes = append(s.writes, append([]byte(nil), p...))
	return len(p), nil
}

// ReceiveByte pops the next scripted reply.
func (s *ScriptedChannel) ReceiveByte(time.Duration) (byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.script) == 0 {
		return 0, false
	}
	st := s.script[0]
	s.script = s.script[1:]
	if st.silent {
		return 0, false
	}
	return st.b, true
}

// Writes returns every Write call in order.
func (s *ScriptedChannel) Writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.writes))
	copy(out, s.writes)
	return out
}

// Sent returns all bytes written, concatenated.
func (s *ScriptedChannel) Sent() []byte {
	var out []byte
	for _, w := range s.Writes() {
		out = append(out, w...)
	}
	return out
}

// Remaining returns the number of unconsumed scripted replies.
func (s *ScriptedChannel) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.script)
}
