// Package fleet keeps the authoritative state of vehicles and drivers.
package fleet

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/taxi/core/model"
)

var (
	// ErrUnknownVehicle is returned for ids not in the directory.
	ErrUnknownVehicle = fmt.Errorf("%w: unknown vehicle", model.ErrInvalidInput)
	// ErrUnknownDriver is returned for ids not in the directory.
	ErrUnknownDriver = fmt.Errorf("%w: unknown driver", model.ErrInvalidInput)
	// ErrDuplicateID is returned when an id is registered twice.
	ErrDuplicateID = fmt.Errorf("%w: duplicate id", model.ErrInvalidInput)
	// ErrOdometerDecrease is returned when a reading lower than the current one is set.
	ErrOdometerDecrease = errors.New("fleet: odometer must not decrease")
)

// Filter restricts Vehicles. A nil Status matches every vehicle.
type Filter struct {
	Status *model.Status
}

// StatusFilter is a convenience for Filter{Status: &s}.
func StatusFilter(s model.Status) Filter { return Filter{Status: &s} }

// Directory is a mutex protected registry of vehicles and drivers. Readers get
// copies; every mutation goes through a method holding the write lock.
type Directory struct {
	mu       sync.RWMutex
	vehicles map[int]model.Vehicle
	drivers  map[int]model.Driver
	ids      IDAllocator
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		vehicles: map[int]model.Vehicle{},
		drivers:  map[int]model.Driver{},
	}
}

// IDs exposes the directory's id allocator.
func (d *Directory) IDs() *IDAllocator { return &d.ids }

// AddDriver registers a driver. Ids must be unique.
func (d *Directory) AddDriver(dr model.Driver) error {
	if err := dr.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.drivers[dr.ID]; ok {
		return fmt.Errorf("%w: driver %d", ErrDuplicateID, dr.ID)
	}
	d.drivers[dr.ID] = dr
	d.ids.observeDriver(dr.ID)
	return nil
}

// AddVehicle registers a vehicle. A paired driver must already be registered
// and must not be paired with another vehicle.
func (d *Directory) AddVehicle(v model.Vehicle) error {
	if err := v.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.vehicles[v.ID]; ok {
		return fmt.Errorf("%w: vehicle %d", ErrDuplicateID, v.ID)
	}
	if v.DriverID != 0 {
		if err := d.checkPairingLocked(v.ID, v.DriverID); err != nil {
			return err
		}
	}
	d.vehicles[v.ID] = v.Clone()
	d.ids.observeVehicle(v.ID)
	return nil
}

func (d *Directory) checkPairingLocked(vehicleID, driverID int) error {
	if _, ok := d.drivers[driverID]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownDriver, driverID)
	}
	for id, other := range d.vehicles {
		if id != vehicleID && other.DriverID == driverID {
			return fmt.Errorf("%w: driver %d already operates vehicle %d", model.ErrInvalidInput, driverID, id)
		}
	}
	return nil
}

// Vehicle returns a copy of the vehicle with the given id.
func (d *Directory) Vehicle(id int) (model.Vehicle, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.vehicles[id]
	return v.Clone(), ok
}

// Driver returns the driver with the given id.
func (d *Directory) Driver(id int) (model.Driver, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	dr, ok := d.drivers[id]
	return dr, ok
}

// DriverFor returns the driver paired with the vehicle.
func (d *Directory) DriverFor(vehicleID int) (model.Driver, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.vehicles[vehicleID]
	if !ok || v.DriverID == 0 {
		return model.Driver{}, false
	}
	dr, ok := d.drivers[v.DriverID]
	return dr, ok
}

// VehicleOf returns the id of the vehicle the driver is paired with.
func (d *Directory) VehicleOf(driverID int) (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for id, v := range d.vehicles {
		if v.DriverID == driverID {
			return id, true
		}
	}
	return 0, false
}

// Vehicles returns copies of matching vehicles sorted by id.
func (d *Directory) Vehicles(f Filter) []model.Vehicle {
	d.mu.RLock()
	defer d.mu.RUnlock()
	res := make([]model.Vehicle, 0, len(d.vehicles))
	for _, v := range d.vehicles {
		if f.Status != nil && v.Status != *f.Status {
			continue
		}
		res = append(res, v.Clone())
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Drivers returns the roster sorted by id.
func (d *Directory) Drivers() []model.Driver {
	d.mu.RLock()
	defer d.mu.RUnlock()
	res := make([]model.Driver, 0, len(d.drivers))
	for _, dr := range d.drivers {
		res = append(res, dr)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Len returns the number of vehicles.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.vehicles)
}

// CompareAndSetStatus moves the vehicle from one status to another only if it
// currently has the expected status. It reports whether the swap happened.
func (d *Directory) CompareAndSetStatus(id int, from, to model.Status) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.vehicles[id]
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownVehicle, id)
	}
	if v.Status != from {
		return false, nil
	}
	v.Status = to
	d.vehicles[id] = v
	return true, nil
}

// SetStatus unconditionally sets the vehicle status.
func (d *Directory) SetStatus(id int, s model.Status) error {
	return d.Update(id, func(v *model.Vehicle) error {
		v.Status = s
		return nil
	})
}

// SetOdometer records a new absolute odometer reading.
func (d *Directory) SetOdometer(id int, km float64) error {
	return d.Update(id, func(v *model.Vehicle) error {
		if km < v.Odometer {
			return fmt.Errorf("%w: vehicle %d at %.2f km, got %.2f km", ErrOdometerDecrease, id, v.Odometer, km)
		}
		v.Odometer = km
		return nil
	})
}

// SetLocation records the latest location fix.
func (d *Directory) SetLocation(id int, loc *model.Address) error {
	return d.Update(id, func(v *model.Vehicle) error {
		if loc == nil {
			v.Location = nil
			return nil
		}
		c := *loc
		v.Location = &c
		return nil
	})
}

// AssignDriver pairs a driver with the vehicle. A zero driver id clears the
// pairing.
func (d *Directory) AssignDriver(vehicleID, driverID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.vehicles[vehicleID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVehicle, vehicleID)
	}
	if driverID != 0 {
		if err := d.checkPairingLocked(vehicleID, driverID); err != nil {
			return err
		}
	}
	v.DriverID = driverID
	d.vehicles[vehicleID] = v
	return nil
}

// Update applies fn to the vehicle under the write lock. The change is
// discarded when fn returns an error.
func (d *Directory) Update(id int, fn func(*model.Vehicle) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.vehicles[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVehicle, id)
	}
	v = v.Clone()
	if err := fn(&v); err != nil {
		return err
	}
	d.vehicles[id] = v
	return nil
}
