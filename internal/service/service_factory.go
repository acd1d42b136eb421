package service

import (
	"checkin-service/internal/client"
	"checkin-service/internal/config"
	"checkin-service/internal/repository/redis"
	"checkin-service/internal/repository/scylla"
	"checkin-service/internal/webhook"
)

// ServiceFactory creates and caches service instances.
type ServiceFactory struct {
	cfg          *config.Config
	sessionStore *redis.SessionStore
	checkInRepo  *scylla.CheckInRepository
	customerRepo *scylla.CustomerRepository
	vehicles     *client.VehicleIndex
	audit        *client.AuditProducer
	analytics    *client.AnalyticsClient

	sessionService *SessionService
	otpService     *OtpService
	checkInService *CheckInService
	validator      *webhook.Validator
}

func NewServiceFactory(
	cfg *config.Config,
	sessionStore *redis.SessionStore,
	checkInRepo *scylla.CheckInRepository,
	customerRepo *scylla.CustomerRepository,
	vehicles *client.VehicleIndex,
	audit *client.AuditProducer,
	analytics *client.AnalyticsClient,
) *ServiceFactory {
	return &ServiceFactory{
		cfg:          cfg,
		sessionStore: sessionStore,
		checkInRepo:  checkInRepo,
		customerRepo: customerRepo,
		vehicles:     vehicles,
		audit:        audit,
		analytics:    analytics,
	}
}

func (f *ServiceFactory) SessionService() *SessionService {
	if f.sessionService == nil {
		f.sessionService = NewSessionService(f.sessionStore, f.audit, f.cfg)
	}
	return f.sessionService
}

func (f *ServiceFactory) OtpService() *OtpService {
	if f.otpService == nil {
		f.otpService = NewOtpService(f.SessionService(), f.audit, f.analytics, f.cfg)
	}
	return f.otpService
}

func (f *ServiceFactory) CheckInService() *CheckInService {
	if f.checkInService == nil {
		f.checkInService = NewCheckInService(f.checkInRepo, f.customerRepo, f.vehicles, f.SessionService())
	}
	return f.checkInService
}

func (f *ServiceFactory) WebhookValidator() *webhook.Validator {
	if f.validator == nil {
		f.validator = webhook.NewValidator(f.cfg)
	}
	return f.validator
}
