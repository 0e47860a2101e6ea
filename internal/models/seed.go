package models

import (
	"errors"

	"gorm.io/gorm"
)

type SeedReport struct {
	ZonesCreated     int
	AmenitiesCreated int
	PolygonsSet      int
}

func f64(v float64) *float64 { return &v }

func str(s string) *string { return &s }

var seedZones = []Zone{
	{Name: "Har Ki Pauri", Status: ZoneStatusModerate, Color: "orange", Capacity: 45, Latitude: f64(29.9576), Longitude: f64(78.1712)},
	{Name: "Triveni Ghat", Status: ZoneStatusSafe, Color: "green", Capacity: 25, Latitude: f64(29.9350), Longitude: f64(78.1550)},
	{Name: "Ram Jhula", Status: ZoneStatusHigh, Color: "red", Capacity: 75, Latitude: f64(29.9650), Longitude: f64(78.1850)},
	{Name: "Main Bazaar", Status: ZoneStatusCritical, Color: "red", Capacity: 95, Latitude: f64(29.9500), Longitude: f64(78.1600)},
	{Name: "Lakshman Jhula", Status: ZoneStatusModerate, Color: "yellow", Capacity: 50, Latitude: f64(29.9800), Longitude: f64(78.1900)},
	{Name: "Bharat Mandir", Status: ZoneStatusSafe, Color: "green", Capacity: 30, Latitude: f64(29.9400), Longitude: f64(78.1400)},
}

var seedAmenities = []Amenity{
	{Name: "City Hospital", Category: "medical", Latitude: 29.9500, Longitude: 78.1600, Description: "24/7 Emergency services", Phone: str("+91-1234567890")},
	{Name: "First Aid Post 1", Category: "medical", Latitude: 29.9576, Longitude: 78.1712, Description: "Near Har Ki Pauri"},
	{Name: "First Aid Post 2", Category: "medical", Latitude: 29.9350, Longitude: 78.1550, Description: "Near Triveni Ghat"},
	{Name: "Food Court Main", Category: "food", Latitude: 29.9500, Longitude: 78.1600, Description: "Multiple food options"},
	{Name: "Water Point 1", Category: "food", Latitude: 29.9576, Longitude: 78.1712, Description: "Drinking water available"},
	{Name: "Water Point 2", Category: "food", Latitude: 29.9650, Longitude: 78.1850, Description: "Drinking water available"},
	{Name: "Langar Hall", Category: "food", Latitude: 29.9400, Longitude: 78.1400, Description: "Free community kitchen"},
	{Name: "Public Toilet 1", Category: "restroom", Latitude: 29.9576, Longitude: 78.1712, Description: "Near Har Ki Pauri"},
	{Name: "Public Toilet 2", Category: "restroom", Latitude: 29.9350, Longitude: 78.1550, Description: "Near Triveni Ghat"},
	{Name: "Public Toilet 3", Category: "restroom", Latitude: 29.9650, Longitude: 78.1850, Description: "Near Ram Jhula"},
	{Name: "Parking Lot A", Category: "parking", Latitude: 29.9400, Longitude: 78.1400, Description: "Car parking available"},
	{Name: "Parking Lot B", Category: "parking", Latitude: 29.9500, Longitude: 78.1500, Description: "Two-wheeler parking"},
	{Name: "Parking Lot C", Category: "parking", Latitude: 29.9800, Longitude: 78.1900, Description: "Bus parking"},
	{Name: "Hotel Ganga View", Category: "accommodation", Latitude: 29.9576, Longitude: 78.1712, Description: "3-star hotel", Phone: str("+91-9876543210")},
	{Name: "Dharamshala 1", Category: "accommodation", Latitude: 29.9350, Longitude: 78.1550, Description: "Budget accommodation"},
	{Name: "Guest House", Category: "accommodation", Latitude: 29.9500, Longitude: 78.1600, Description: "Family rooms available"},
	{Name: "Bus Stand", Category: "transport", Latitude: 29.9400, Longitude: 78.1400, Description: "Main bus terminal"},
	{Name: "Auto Stand", Category: "transport", Latitude: 29.9576, Longitude: 78.1712, Description: "Auto rickshaw stand"},
	{Name: "Taxi Stand", Category: "transport", Latitude: 29.9500, Longitude: 78.1600, Description: "Taxi booking"},
	{Name: "Har Ki Pauri", Category: "worship", Latitude: 29.9576, Longitude: 78.1712, Description: "Main ghat for prayers"},
	{Name: "Triveni Ghat", Category: "worship", Latitude: 29.9350, Longitude: 78.1550, Description: "Sacred bathing ghat"},
	{Name: "Mansa Devi Temple", Category: "worship", Latitude: 29.9650, Longitude: 78.1850, Description: "Famous temple"},
	{Name: "Main Bazaar", Category: "shopping", Latitude: 29.9500, Longitude: 78.1600, Description: "Shopping market"},
	{Name: "Gift Shop 1", Category: "shopping", Latitude: 29.9576, Longitude: 78.1712, Description: "Religious items"},
	{Name: "Gift Shop 2", Category: "shopping", Latitude: 29.9350, Longitude: 78.1550, Description: "Souvenirs"},
}

// octagon outlines a small area around a centre, closed on its first point.
func octagon(lat, lng float64) Polygon {
	return Polygon{
		{lat, lng},
		{lat + 0.0014, lng + 0.0013},
		{lat + 0.0009, lng + 0.0028},
		{lat - 0.0011, lng + 0.0023},
		{lat - 0.0021, lng + 0.0008},
		{lat - 0.0016, lng - 0.0012},
		{lat - 0.0006, lng - 0.0017},
		{lat + 0.0009, lng - 0.0012},
		{lat, lng},
	}
}

var seedPolygons = map[string]Polygon{
	"Har Ki Pauri":   octagon(29.9576, 78.1712),
	"Triveni Ghat":   octagon(29.9350, 78.1550),
	"Main Bazaar":    octagon(29.9500, 78.1600),
	"Ram Jhula":      octagon(29.9650, 78.1850),
	"Lakshman Jhula": octagon(29.9800, 78.1900),
	"Bharat Mandir":  octagon(29.9400, 78.1400),
}

// SeedInitialData creates the initial zones and amenities by name, skipping names
// that already exist.
func SeedInitialData(db *gorm.DB) (*SeedReport, error) {
	report := &SeedReport{}
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, z := range seedZones {
			z := z
			z.ZoneType = ZoneTypeCircle
			z.IsActive = true
			created, err := createIfNameMissing(tx, &Zone{}, z.Name, &z)
			if err != nil {
				return err
			}
			if created {
				report.ZonesCreated++
			}
		}
		for _, a := range seedAmenities {
			a := a
			a.IsActive = true
			created, err := createIfNameMissing(tx, &Amenity{}, a.Name, &a)
			if err != nil {
				return err
			}
			if created {
				report.AmenitiesCreated++
			}
		}
		return nil
	})
	return report, err
}

func createIfNameMissing(tx *gorm.DB, model any, name string, row any) (bool, error) {
	var n int64
	if err := tx.Model(model).Where("name = ?", name).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	return true, tx.Create(row).Error
}

// SeedPolygons attaches outlines to the named zones; the zone type is left as is.
func SeedPolygons(db *gorm.DB) (int, error) {
	updated := 0
	for name, poly := range seedPolygons {
		var z Zone
		err := db.Where("name = ?", name).First(&z).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return updated, err
		}
		z.Polygon = poly
		if err := db.Save(&z).Error; err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
