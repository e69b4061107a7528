package domain

import (
	"errors"
	"time"
)

// GlobalCounter is the id of the site-wide visitor counter
const GlobalCounter = "global"

// ErrMissingFields is returned when a contact submission lacks a required field
var ErrMissingFields = errors.New("Missing fields")

// Contact represents a contact form submission
type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks that every required field is present
func (c *Contact) Validate() error {
	for _, v := range []string{c.Name, c.Email, c.Phone, c.Message} {
		if v == "" {
			return ErrMissingFields
		}
	}
	return nil
}

// Note represents a downloadable study note
type Note struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	SizeMB    float64   `json:"sizeMB"`
	CreatedAt time.Time `json:"createdAt"`
}
