// Package identity generates synthetic personal data for testing.
// Every random choice is drawn from crypto/rand.
package identity

import "time"

// Date and timestamp layouts used when an identity is serialized.
const (
	DateLayout    = "2006-01-02"
	CreatedLayout = "2006-01-02 15:04:05"
)

// Address is a postal address. Fields are drawn independently and are not
// guaranteed to be geographically coherent beyond state-within-country and
// city-within-state.
type Address struct {
	Street  string
	City    string
	State   string
	Country string
}

// Identity holds a complete generated persona.
type Identity struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Address    Address
	Username   string
	Birthdate  time.Time
	Password   string
	Created    time.Time
	EmailToken string // set only when the email is a provisioned mailbox
}

// FullName is always derived from the first and last name.
func (id Identity) FullName() string {
	return id.FirstName + " " + id.LastName
}

// Record returns the identity as an ordered record with its serialized keys.
func (id Identity) Record() Record {
	r := Record{
		{Key: "first_name", Value: id.FirstName},
		{Key: "last_name", Value: id.LastName},
		{Key: "full_name", Value: id.FullName()},
		{Key: "email", Value: id.Email},
		{Key: "phone", Value: id.Phone},
		{Key: "address", Value: Record{
			{Key: "street", Value: id.Address.Street},
			{Key: "city", Value: id.Address.City},
			{Key: "state", Value: id.Address.State},
			{Key: "country", Value: id.Address.Country},
		}},
		{Key: "username", Value: id.Username},
		{Key: "birthdate", Value: id.Birthdate.Format(DateLayout)},
		{Key: "password", Value: id.Password},
		{Key: "created", Value: id.Created.Format(CreatedLayout)},
	}
	if id.EmailToken != "" {
		r = append(r, Field{Key: "email_token", Value: id.EmailToken})
	}
	return r
}
