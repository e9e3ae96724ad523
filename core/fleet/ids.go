package fleet

import "sync"

// IDAllocator hands out vehicle and driver ids above the highest id seen.
// Each directory owns one.
type IDAllocator struct {
	mu          sync.Mutex
	lastVehicle int
	lastDriver  int
}

// NextVehicle returns a vehicle id that has not been used yet.
func (a *IDAllocator) NextVehicle() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastVehicle++
	return a.lastVehicle
}

// NextDriver returns a driver id that has not been used yet.
func (a *IDAllocator) NextDriver() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastDriver++
	return a.lastDriver
}

func (a *IDAllocator) observeVehicle(id int) {
	a.mu.Lock()
	if id > a.lastVehicle {
		a.lastVehicle = id
	}
	a.mu.Unlock()
}

func (a *IDAllocator) observeDriver(id int) {
	a.mu.Lock()
	if id > a.lastDriver {
		a.lastDriver = id
	}
	a.mu.Unlock()
}
