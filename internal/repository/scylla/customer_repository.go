package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"checkin-service/internal/bucketing"
	"checkin-service/internal/encryption"
	"checkin-service/internal/model"
	"checkin-service/internal/util"
)

// ErrCustomerNotFound is returned when no customer matches the lookup key.
var ErrCustomerNotFound = gocql.ErrNotFound

// CustomerRepository stores customers keyed by (bucket, id) with a
// phone-hash reverse index. Phone numbers are envelope-encrypted before
// they hit the table.
type CustomerRepository struct {
	client     *ScyllaClient
	encryption *encryption.EncryptionManager
	bucketing  *bucketing.BucketingManager
}

func NewCustomerRepository(client *ScyllaClient, enc *encryption.EncryptionManager, buckets *bucketing.BucketingManager) *CustomerRepository {
	return &CustomerRepository{
		client:     client,
		encryption: enc,
		bucketing:  buckets,
	}
}

func (r *CustomerRepository) CreateCustomer(ctx context.Context, customer *model.Customer) error {
	if customer.ID == "" {
		customer.ID = uuid.New().String()
	}
	customer.Bucket = r.bucketing.GetCustomerBucket(customer.ID)

	now := time.Now().UTC()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	if customer.PhoneHash == "" {
		customer.PhoneHash = util.PhoneHash(customer.PhoneNumber)
	}

	blob, keyID, err := r.encryption.EncryptPhone(ctx, customer.PhoneNumber)
	if err != nil {
		return fmt.Errorf("failed to encrypt customer phone: %w", err)
	}
	customer.PhoneEncrypted = blob
	customer.PhoneKeyID = keyID

	// Batch keeps the main row and the phone index consistent
	batch := r.client.Session.NewBatch(gocql.LoggedBatch)

	batch.Query(r.client.Prepared.CreateCustomer.Statement(),
		customer.Bucket, customer.ID, customer.PhoneHash, customer.PhoneEncrypted,
		customer.PhoneKeyID, customer.FirstName, customer.LastName, customer.IsFleet,
		customer.CreatedAt, customer.UpdatedAt)

	batch.Query(r.client.Prepared.CreatePhoneToCustomer.Statement(),
		customer.PhoneHash, customer.Bucket, customer.ID, customer.CreatedAt)

	if err := r.client.Session.ExecuteBatch(batch); err != nil {
		util.Error("Failed to create customer",
			zap.String("customer_id", customer.ID),
			zap.String("phone", util.MaskPhoneNumber(customer.PhoneNumber)),
			zap.Error(err))
		return fmt.Errorf("failed to create customer: %w", err)
	}

	util.Info("Customer created",
		zap.String("customer_id", customer.ID),
		zap.Int("bucket", customer.Bucket),
		zap.String("phone", util.MaskPhoneNumber(customer.PhoneNumber)))

	return nil
}

func (r *CustomerRepository) GetCustomerByID(ctx context.Context, customerID string) (*model.Customer, error) {
	bucket := r.bucketing.GetCustomerBucket(customerID)
	return r.getCustomer(ctx, bucket, customerID)
}

// GetCustomerByPhone resolves the phone-hash index, then loads the row.
// Returns ErrCustomerNotFound when the phone has never checked in.
func (r *CustomerRepository) GetCustomerByPhone(ctx context.Context, phoneNumber string) (*model.Customer, error) {
	phoneHash := util.PhoneHash(phoneNumber)

	var bucket int
	var customerID string

	query := r.client.Prepared.GetCustomerByPhone.Bind(phoneHash).WithContext(ctx)
	if err := r.client.ScanWithRetry(query, &bucket, &customerID); err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrCustomerNotFound
		}
		util.Error("Failed to resolve phone index",
			zap.String("phone", util.MaskPhoneNumber(phoneNumber)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to resolve phone index: %w", err)
	}

	return r.getCustomer(ctx, bucket, customerID)
}

func (r *CustomerRepository) getCustomer(ctx context.Context, bucket int, customerID string) (*model.Customer, error) {
	customer := &model.Customer{}

	query := r.client.Prepared.GetCustomerByID.Bind(bucket, customerID).WithContext(ctx)

	err := r.client.ScanWithRetry(query,
		&customer.Bucket, &customer.ID, &customer.PhoneHash, &customer.PhoneEncrypted,
		&customer.PhoneKeyID, &customer.FirstName, &customer.LastName, &customer.IsFleet,
		&customer.CreatedAt, &customer.UpdatedAt)

	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrCustomerNotFound
		}
		util.Error("Failed to get customer",
			zap.String("customer_id", customerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	if len(customer.PhoneEncrypted) > 0 {
		phone, err := r.encryption.DecryptPhone(ctx, customer.PhoneEncrypted)
		if err != nil {
			util.Error("Failed to decrypt customer phone",
				zap.String("customer_id", customerID),
				zap.Error(err))
			return nil, fmt.Errorf("failed to decrypt customer phone: %w", err)
		}
		customer.PhoneNumber = phone
	}

	return customer, nil
}

func (r *CustomerRepository) UpdateCustomerName(ctx context.Context, customerID, firstName, lastName string) error {
	bucket := r.bucketing.GetCustomerBucket(customerID)
	now := time.Now().UTC()

	query := r.client.Prepared.UpdateCustomerName.
		Bind(firstName, lastName, now, bucket, customerID).
		WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to update customer name",
			zap.String("customer_id", customerID),
			zap.Error(err))
		return fmt.Errorf("failed to update customer name: %w", err)
	}

	return nil
}
