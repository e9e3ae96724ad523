package events

import "github.com/kilianp07/taxi/core/model"

// TripCompletedEvent is published when a meter produces a trip record.
// KeyStoreResult is the outcome of persisting it on the key.
type TripCompletedEvent struct {
	Record         model.TripRecord
	KeyStoreResult string
}
