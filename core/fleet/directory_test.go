package fleet

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/taxi/core/model"
)

func TestDirectory_AddAndLookup(t *testing.T) {
	d := NewDirectory()
	require.NoError(t, d.AddDriver(model.Driver{ID: 7, FirstName: "Ina"}))
	require.NoError(t, d.AddVehicle(model.Vehicle{ID: 2, DriverID: 7, Status: model.StatusFree}))
	require.NoError(t, d.AddVehicle(model.Vehicle{ID: 1}))

	assert.ErrorIs(t, d.AddVehicle(model.Vehicle{ID: 2}), ErrDuplicateID)
	assert.ErrorIs(t, d.AddDriver(model.Driver{ID: 7}), ErrDuplicateID)
	assert.ErrorIs(t, d.AddVehicle(model.Vehicle{ID: 3, DriverID: 99}), ErrUnknownDriver)
	assert.ErrorIs(t, d.AddVehicle(model.Vehicle{ID: 3, DriverID: 7}), model.ErrInvalidInput)

	dr, ok := d.DriverFor(2)
	require.True(t, ok)
	assert.Equal(t, 7, dr.ID)
	_, ok = d.DriverFor(1)
	assert.False(t, ok)

	vid, ok := d.VehicleOf(7)
	require.True(t, ok)
	assert.Equal(t, 2, vid)

	all := d.Vehicles(Filter{})
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].ID)
	free := d.Vehicles(StatusFilter(model.StatusFree))
	require.Len(t, free, 1)
	assert.Equal(t, 2, free[0].ID)
}

func TestDirectory_IDAllocator(t *testing.T) {
	d := NewDirectory()
	require.NoError(t, d.AddVehicle(model.Vehicle{ID: 4}))
	next := d.IDs().NextVehicle()
	assert.Equal(t, 5, next)
	require.NoError(t, d.AddVehicle(model.Vehicle{ID: next}))
	assert.Equal(t, 1, d.IDs().NextDriver())

	other := NewDirectory()
	assert.Equal(t, 1, other.IDs().NextVehicle())
}

func TestDirectory_CompareAndSetStatus(t *testing.T) {
	d := NewDirectory()
	require.NoError(t, d.AddVehicle(model.Vehicle{ID: 1, Status: model.StatusFree}))

	ok, err := d.CompareAndSetStatus(1, model.StatusFree, model.StatusEnRouteToCustomer)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = d.CompareAndSetStatus(1, model.StatusFree, model.StatusEnRouteToCustomer)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = d.CompareAndSetStatus(42, model.StatusFree, model.StatusFree)
	assert.ErrorIs(t, err, ErrUnknownVehicle)
}

func TestDirectory_CompareAndSetStatusConcurrent(t *testing.T) {
	d := NewDirectory()
	require.NoError(t, d.AddVehicle(model.Vehicle{ID: 1, Status: model.StatusFree}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := d.CompareAndSetStatus(1, model.StatusFree, model.StatusEnRouteToCustomer)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestDirectory_Odometer(t *testing.T) {
	d := NewDirectory()
	require.NoError(t, d.AddVehicle(model.Vehicle{ID: 1, Odometer: 100}))
	require.NoError(t, d.SetOdometer(1, 110))
	assert.ErrorIs(t, d.SetOdometer(1, 105), ErrOdometerDecrease)
	v, _ := d.Vehicle(1)
	assert.Equal(t, 110.0, v.Odometer)
}

func TestDirectory_CopiesDoNotAlias(t *testing.T) {
	d := NewDirectory()
	loc := model.MustParseAddress("Markt 17,60311,Frankfurt a.M.")
	require.NoError(t, d.AddVehicle(model.Vehicle{ID: 1, Location: &loc}))
	loc.Street = "changed"

	v, _ := d.Vehicle(1)
	assert.Equal(t, "Markt 17", v.Location.Street)
	v.Location.Street = "changed again"
	v2, _ := d.Vehicle(1)
	assert.Equal(t, "Markt 17", v2.Location.Street)

	require.NoError(t, d.SetLocation(1, nil))
	v3, _ := d.Vehicle(1)
	assert.Nil(t, v3.Location)
}

func TestDirectory_AssignDriver(t *testing.T) {
	d := NewDirectory()
	require.NoError(t, d.AddDriver(model.Driver{ID: 1}))
	require.NoError(t, d.AddVehicle(model.Vehicle{ID: 1}))
	require.NoError(t, d.AddVehicle(model.Vehicle{ID: 2}))

	require.NoError(t, d.AssignDriver(1, 1))
	assert.Error(t, d.AssignDriver(2, 1))
	require.NoError(t, d.AssignDriver(1, 0))
	require.NoError(t, d.AssignDriver(2, 1))
	assert.ErrorIs(t, d.AssignDriver(9, 1), ErrUnknownVehicle)
}

func TestSample(t *testing.T) {
	d, err := Sample()
	require.NoError(t, err)
	assert.Equal(t, 6, d.Len())
	assert.Len(t, d.Vehicles(StatusFilter(model.StatusFree)), 5)
	v, ok := d.Vehicle(5)
	require.True(t, ok)
	assert.Equal(t, 7800.0, v.Odometer)
	assert.Equal(t, 105, v.DriverID)
}
