package model

import "time"

// Doctor is one entry in the hospital catalog and the source of one indexed document.
type Doctor struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Specialty    string   `json:"specialty"`
	Degree       string   `json:"degree"`
	Experience   string   `json:"experience"`
	Availability string   `json:"availability"`
	TimeSlots    []string `json:"time_slots"`
}

// Appointment is a booking persisted by the save_appointment tool.
type Appointment struct {
	ID        string    `json:"id"`
	Doctor    string    `json:"doctor"`
	Patient   string    `json:"patient"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}
