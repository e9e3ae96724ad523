package keystore

import "time"

// Channel is the byte link to the key-store device.
type Channel interface {
	IsOpen() bool
	Write(p []byte) (int, error)
	// ReceiveByte waits up to timeout for one byte. false means no response.
	ReceiveByte(timeout time.Duration) (byte, bool)
}

// KeyDetector is implemented by channels able to sense whether a key is
// inserted. Without it a key counts as present while the channel is open.
type KeyDetector interface {
	KeyPresent() bool
}

// IdentityReader is implemented by channels able to read the driver number
// stored on the key.
type IdentityReader interface {
	DriverID() (int, error)
}
