package knowledge

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/docbook-core-poc-v1/server/internal/agent/model"
)

// Catalog is the hospital data the assistant knows about: the doctors that
// get indexed for retrieval and the appointments already on the books.
type Catalog struct {
	Doctors      []model.Doctor      `json:"doctors"`
	Appointments []model.Appointment `json:"appointments"`
}

// DefaultCatalog returns the built-in seed data.
func DefaultCatalog() Catalog {
	return Catalog{
		Doctors: []model.Doctor{
			{
				ID:           "1",
				Name:         "Dr. Ahmed",
				Specialty:    "Cardiology",
				Degree:       "MBBS, MD",
				Experience:   "15 years",
				Availability: "Monday, Wednesday, Friday",
				TimeSlots:    []string{"10:00 AM - 11:00 AM", "11:00 AM - 12:00 PM", "12:00 PM - 01:00 PM"},
			},
			{
				ID:           "2",
				Name:         "Dr. Sara",
				Specialty:    "Dermatology",
				Degree:       "MBBS, MD",
				Experience:   "10 years",
				Availability: "Tuesday, Thursday",
				TimeSlots:    []string{"09:00 AM - 10:00 AM", "10:00 AM - 11:00 AM", "11:00 AM - 12:00 PM"},
			},
			{
				ID:           "3",
				Name:         "Dr. Kamal",
				Specialty:    "Neurology",
				Degree:       "MBBS, DM",
				Experience:   "12 years",
				Availability: "Monday, Wednesday, Friday",
				TimeSlots:    []string{"10:00 AM - 11:00 AM", "11:00 AM - 12:00 PM", "12:00 PM - 01:00 PM"},
			},
		},
		Appointments: []model.Appointment{
			{ID: "1", Doctor: "Dr. Ahmed", Patient: "Omar", Date: "2025-08-28", Time: "10:00"},
			{ID: "2", Doctor: "Dr. Sara", Patient: "Fatima", Date: "2025-08-28", Time: "09:30"},
			{ID: "3", Doctor: "Dr. Kamal", Patient: "John", Date: "2025-08-28", Time: "14:00"},
		},
	}
}

// LoadCatalog reads a catalog JSON file. An empty path returns DefaultCatalog.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := json.Unmarshal(b, &c); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	for i, d := range c.Doctors {
		if d.ID == "" || d.Name == "" {
			return Catalog{}, fmt.Errorf("catalog doctor #%d needs an id and a name", i)
		}
	}
	return c, nil
}
