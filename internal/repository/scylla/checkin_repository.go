package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"checkin-service/internal/model"
	"checkin-service/internal/util"
)

// ErrCheckInNotFound is returned when no check-in matches the given ID.
var ErrCheckInNotFound = gocql.ErrNotFound

type CheckInRepository struct {
	client *ScyllaClient
}

func NewCheckInRepository(client *ScyllaClient) *CheckInRepository {
	return &CheckInRepository{client: client}
}

func (r *CheckInRepository) CreateCheckIn(ctx context.Context, checkIn *model.CheckIn) error {
	if checkIn.ID == "" {
		checkIn.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	checkIn.CreatedAt = now
	checkIn.UpdatedAt = now

	query := r.client.Prepared.CreateCheckIn.Bind(
		checkIn.ID, checkIn.CustomerID, checkIn.VehicleID, checkIn.StoreID,
		checkIn.LicensePlate, checkIn.StateCode, checkIn.ActualMileage,
		checkIn.EstimatedMileage, checkIn.CreatedAt, checkIn.UpdatedAt,
	).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to create check-in",
			zap.String("checkin_id", checkIn.ID),
			zap.String("store_id", checkIn.StoreID),
			zap.Error(err))
		return fmt.Errorf("failed to create check-in: %w", err)
	}

	util.Info("Check-in created",
		zap.String("checkin_id", checkIn.ID),
		zap.String("store_id", checkIn.StoreID),
		zap.String("license_plate", checkIn.LicensePlate))

	return nil
}

func (r *CheckInRepository) GetCheckInByID(ctx context.Context, checkInID string) (*model.CheckIn, error) {
	checkIn := &model.CheckIn{}

	query := r.client.Prepared.GetCheckInByID.Bind(checkInID).WithContext(ctx)

	err := r.client.ScanWithRetry(query,
		&checkIn.ID, &checkIn.CustomerID, &checkIn.VehicleID, &checkIn.StoreID,
		&checkIn.LicensePlate, &checkIn.StateCode, &checkIn.ActualMileage,
		&checkIn.EstimatedMileage, &checkIn.CreatedAt, &checkIn.UpdatedAt)

	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrCheckInNotFound
		}
		util.Error("Failed to get check-in",
			zap.String("checkin_id", checkInID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get check-in: %w", err)
	}

	return checkIn, nil
}

// LinkCustomer attaches a verified customer to an in-flight check-in.
func (r *CheckInRepository) LinkCustomer(ctx context.Context, checkInID, customerID string) error {
	now := time.Now().UTC()

	query := r.client.Prepared.LinkCheckInCustomer.
		Bind(customerID, now, checkInID).
		WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to link customer to check-in",
			zap.String("checkin_id", checkInID),
			zap.String("customer_id", customerID),
			zap.Error(err))
		return fmt.Errorf("failed to link customer to check-in: %w", err)
	}

	return nil
}

func (r *CheckInRepository) UpdateMileage(ctx context.Context, checkInID string, actualMileage int) error {
	now := time.Now().UTC()

	query := r.client.Prepared.UpdateCheckInMileage.
		Bind(actualMileage, now, checkInID).
		WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to update check-in mileage",
			zap.String("checkin_id", checkInID),
			zap.Error(err))
		return fmt.Errorf("failed to update check-in mileage: %w", err)
	}

	return nil
}
