package fleet

import "github.com/kilianp07/taxi/core/model"

// SampleCity is the city of the bench fleet.
const SampleCity = "Frankfurt a.M."

// Sample returns the bench fleet: six vehicles around Frankfurt, each paired
// with one of six drivers. Vehicle 4 is already on its way to a customer.
func Sample() (*Directory, error) {
	d := NewDirectory()
	drivers := []model.Driver{
		{ID: 101, FirstName: "Max", LastName: "Müller"},
		{ID: 102, FirstName: "Anna", LastName: "Schmidt"},
		{ID: 103, FirstName: "Karl-Heinz", LastName: "Großfuss"},
		{ID: 104, FirstName: "Tobias", LastName: "Tischendorf"},
		{ID: 105, FirstName: "Ina", LastName: "Ach"},
		{ID: 106, FirstName: "Eva", LastName: "Weber"},
	}
	for _, dr := range drivers {
		if err := d.AddDriver(dr); err != nil {
			return nil, err
		}
	}
	vehicles := []struct {
		odometer float64
		status   model.Status
		street   string
		plz      string
	}{
		{1000, model.StatusFree, "Hauptstraße 1", "60311"},
		{2500, model.StatusFree, "Bahnhofstraße 10", "60329"},
		{5000, model.StatusFree, "Sonnenweg 15", "60487"},
		{3500, model.StatusEnRouteToCustomer, "Marktplatz 5", "60313"},
		{7800, model.StatusFree, "Kirchweg 20", "60320"},
		{4200, model.StatusFree, "Waldstraße 8", "60325"},
	}
	for i, v := range vehicles {
		loc := model.Address{Street: v.street, PostalCode: v.plz, City: SampleCity}
		err := d.AddVehicle(model.Vehicle{
			ID:       i + 1,
			Odometer: v.odometer,
			Status:   v.status,
			Location: &loc,
			DriverID: drivers[i].ID,
		})
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}
