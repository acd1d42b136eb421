package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"checkin-service/internal/client"
	"checkin-service/internal/model"
	"checkin-service/internal/repository/scylla"
	"checkin-service/internal/util"
)

var (
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
	ErrVehicleNotFound    = errors.New("vehicle not found")
)

// CheckInService owns the check-in flow: vehicle lookup by plate, check-in
// records, customer get-or-create after phone verification, and inbound
// recommendation processing.
type CheckInService struct {
	checkIns  *scylla.CheckInRepository
	customers *scylla.CustomerRepository
	vehicles  *client.VehicleIndex
	sessions  *SessionService
}

func NewCheckInService(checkIns *scylla.CheckInRepository, customers *scylla.CustomerRepository, vehicles *client.VehicleIndex, sessions *SessionService) *CheckInService {
	return &CheckInService{
		checkIns:  checkIns,
		customers: customers,
		vehicles:  vehicles,
		sessions:  sessions,
	}
}

// StartCheckIn opens a check-in for a plate at a store and pins its id into
// the session payload so later steps can find it.
func (s *CheckInService) StartCheckIn(ctx context.Context, session *model.Session, storeID, licensePlate, stateCode string) (*model.CheckIn, error) {
	plate := util.NormalizeLicensePlate(licensePlate)
	if plate == "" {
		return nil, fmt.Errorf("license plate is required")
	}

	checkIn := &model.CheckIn{
		StoreID:      storeID,
		LicensePlate: plate,
		StateCode:    stateCode,
	}

	vehicle, err := s.vehicles.FindByPlate(ctx, plate, stateCode)
	if err != nil {
		util.Warn("Vehicle lookup failed, continuing without vehicle",
			zap.String("license_plate", plate),
			zap.Error(err))
	} else if vehicle != nil {
		checkIn.VehicleID = &vehicle.ID
		checkIn.EstimatedMileage = vehicle.Mileage
	}

	if err := s.checkIns.CreateCheckIn(ctx, checkIn); err != nil {
		return nil, err
	}

	payload := model.DecodePayload(session.Payload)
	payload.CheckInID = &checkIn.ID
	encoded, err := payload.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode session payload: %w", err)
	}
	session.Payload = encoded

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	return checkIn, nil
}

// LookupVehicle finds a vehicle document by normalized plate and state.
func (s *CheckInService) LookupVehicle(ctx context.Context, licensePlate, stateCode string) (*model.Vehicle, error) {
	plate := util.NormalizeLicensePlate(licensePlate)
	if plate == "" {
		return nil, ErrVehicleNotFound
	}

	vehicle, err := s.vehicles.FindByPlate(ctx, plate, stateCode)
	if err != nil {
		return nil, fmt.Errorf("vehicle lookup failed: %w", err)
	}
	if vehicle == nil {
		return nil, ErrVehicleNotFound
	}
	return vehicle, nil
}

// CompleteVerification runs after a successful OTP validation: find or
// create the customer for the verified phone, link the session and any
// in-flight check-in to them.
func (s *CheckInService) CompleteVerification(ctx context.Context, session *model.Session, phoneNumber, firstName, lastName string) (*model.Customer, error) {
	normalized := util.FormatToE164(phoneNumber)
	if normalized == "" {
		return nil, ErrInvalidPhoneNumber
	}

	customer, err := s.customers.GetCustomerByPhone(ctx, normalized)
	if err != nil {
		if !errors.Is(err, scylla.ErrCustomerNotFound) {
			return nil, err
		}

		customer = &model.Customer{
			PhoneNumber: normalized,
			FirstName:   firstName,
			LastName:    lastName,
		}
		if err := s.customers.CreateCustomer(ctx, customer); err != nil {
			return nil, err
		}
	} else if firstName != "" && (customer.FirstName != firstName || customer.LastName != lastName) {
		if err := s.customers.UpdateCustomerName(ctx, customer.ID, firstName, lastName); err != nil {
			util.Warn("Failed to refresh customer name",
				zap.String("customer_id", customer.ID),
				zap.Error(err))
		} else {
			customer.FirstName = firstName
			customer.LastName = lastName
		}
	}

	session.CustomerID = &customer.ID
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to link customer to session: %w", err)
	}

	if checkInID := model.DecodePayload(session.Payload).CheckInID; checkInID != nil {
		if err := s.checkIns.LinkCustomer(ctx, *checkInID, customer.ID); err != nil {
			util.Warn("Failed to link customer to check-in",
				zap.String("checkin_id", *checkInID),
				zap.String("customer_id", customer.ID),
				zap.Error(err))
		}
	}

	return customer, nil
}

// ProcessRecommendation ingests an authenticated provider webhook: index the
// vehicle for plate lookup and pick the mileage bucket the store should act
// on. The bucket is the highest interval at or below the vehicle's mileage.
func (s *CheckInService) ProcessRecommendation(ctx context.Context, rec *model.ServiceRecommendation) (*model.ServiceInterval, error) {
	plate := util.NormalizeLicensePlate(rec.LicensePlate)
	if plate == "" {
		return nil, fmt.Errorf("recommendation missing license plate")
	}

	if rec.Vin != "" {
		vehicle := &model.Vehicle{
			ID:           rec.ID,
			Vin:          rec.Vin,
			LicensePlate: plate,
			StateCode:    rec.StateCode,
			Make:         rec.Make,
			Model:        rec.Model,
			Mileage:      rec.EstimatedMileage,
		}
		if rec.Year != nil {
			vehicle.Year = *rec.Year
		}
		if err := s.vehicles.Index(ctx, vehicle); err != nil {
			util.Warn("Failed to index recommended vehicle",
				zap.String("license_plate", plate),
				zap.Error(err))
		}
	}

	if len(rec.ServiceIntervals) == 0 {
		return nil, nil
	}

	mileage := 0
	if rec.EstimatedMileage != nil {
		mileage = *rec.EstimatedMileage
	}

	bucket, err := SelectMileageBucket(rec.ServiceIntervals, mileage)
	if err != nil {
		return nil, err
	}

	util.Info("Recommendation processed",
		zap.String("license_plate", plate),
		zap.Int("mileage", mileage),
		zap.Int("bucket", bucket.Mileage),
		zap.Time("received_at", time.Now().UTC()))

	return bucket, nil
}
