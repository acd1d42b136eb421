package model

import "time"

// Customer is a service customer keyed by normalized phone number.
// The phone number itself is stored envelope-encrypted; lookups go through
// the deterministic phone hash.
type Customer struct {
	ID             string    `json:"id"`
	Bucket         int       `json:"-"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	PhoneNumber    string    `json:"phoneNumber,omitempty"`
	PhoneHash      string    `json:"-"`
	PhoneEncrypted []byte    `json:"-"`
	PhoneKeyID     string    `json:"-"`
	IsFleet        bool      `json:"isFleetCustomer"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CheckIn is a vehicle service check-in in progress.
type CheckIn struct {
	ID               string    `json:"id"`
	CustomerID       *string   `json:"customerId,omitempty"`
	VehicleID        *string   `json:"vehicleId,omitempty"`
	StoreID          string    `json:"storeId"`
	LicensePlate     string    `json:"licensePlate"`
	StateCode        string    `json:"stateCode"`
	ActualMileage    *int      `json:"actualMileage,omitempty"`
	EstimatedMileage *int      `json:"estimatedMileage,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Vehicle is a vehicle document as indexed for license-plate lookup.
type Vehicle struct {
	ID           string `json:"id"`
	Vin          string `json:"vin"`
	LicensePlate string `json:"licensePlate"`
	StateCode    string `json:"stateCode"`
	Year         int    `json:"year"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Mileage      *int   `json:"mileage,omitempty"`
}
