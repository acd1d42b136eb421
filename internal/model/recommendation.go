package model

import "time"

// ServiceRecommendation is the inbound webhook payload from the
// recommendation provider: a detected vehicle plus its service intervals.
type ServiceRecommendation struct {
	ID               string            `json:"id"`
	LocationID       string            `json:"locationId"`
	ClientLocationID string            `json:"clientLocationId"`
	Datetime         time.Time         `json:"datetime"`
	LicensePlate     string            `json:"licensePlate"`
	StateCode        string            `json:"stateCode"`
	Make             string            `json:"make,omitempty"`
	Model            string            `json:"model,omitempty"`
	Year             *int              `json:"year,omitempty"`
	Vin              string            `json:"vin,omitempty"`
	EstimatedMileage *int              `json:"estimatedMileage,omitempty"`
	ServiceIntervals []ServiceInterval `json:"serviceIntervals,omitempty"`
}

// ServiceInterval groups recommended services under one mileage bucket.
type ServiceInterval struct {
	Mileage  int                  `json:"mileage"`
	Services []RecommendedService `json:"services"`
}

// RecommendedService is one provider-recommended service line.
type RecommendedService struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	IntervalMiles    int    `json:"intervalMiles"`
	LastServiceMiles *int   `json:"lastServiceMiles,omitempty"`
	SelectedByClient bool   `json:"selectedByClient"`
}
