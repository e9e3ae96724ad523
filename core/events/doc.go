// Package events defines the taxi events emitted on the event bus.
//
// Available event types:
//   - DispatchEvent: outcome of a dispatch request
//   - OfferEvent: a driver's answer to an offered order
//   - StateChangeEvent: meter transition of a vehicle
//   - TripCompletedEvent: trip record produced at completion
package events
