package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"checkin-service/internal/config"
	"checkin-service/internal/util"
)

// smsRequest is the gateway's Alert payload.
type smsRequest struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Phone     string `json:"phone"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Content   string `json:"content"`
	Subject   string `json:"subject"`
}

// SmsClient delivers messages through the external SMS gateway.
type SmsClient struct {
	http   *resty.Client
	config *config.SmsConfig
	logger *zap.Logger
}

func NewSmsClient(cfg *config.Config, logger *zap.Logger) *SmsClient {
	smsConfig := cfg.Sms

	httpClient := resty.New().
		SetBaseURL(smsConfig.BaseURL).
		SetHeader("X-Identity-Key", smsConfig.IdentityKey).
		SetHeader("x-functions-key", smsConfig.FunctionsKey).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &SmsClient{
		http:   httpClient,
		config: &smsConfig,
		logger: logger,
	}
}

// SendSms posts one message to the gateway's Alert endpoint.
func (c *SmsClient) SendSms(ctx context.Context, phoneNumber, message, firstName, lastName string) error {
	if !c.config.Enabled {
		util.Debug("SMS delivery disabled, skipping send",
			zap.String("phone", util.MaskPhoneNumber(phoneNumber)))
		return nil
	}

	if firstName == "" {
		firstName = "Customer"
	}

	req := smsRequest{
		Channel:   "sms",
		Recipient: phoneNumber,
		Phone:     phoneNumber,
		FirstName: firstName,
		LastName:  lastName,
		Content:   message,
		Subject:   "CheckIn Notification",
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post("/Alert")
	if err != nil {
		return fmt.Errorf("sms gateway request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode())
	}

	c.logger.Info("SMS sent",
		util.String("phone", util.MaskPhoneNumber(phoneNumber)),
		util.Int("status", resp.StatusCode()))
	return nil
}

// SendOtp delivers a verification code with the standard message template.
func (c *SmsClient) SendOtp(ctx context.Context, phoneNumber, otpCode, firstName, lastName string) error {
	message := fmt.Sprintf("Your check-in verification code is: %s. This code will expire in 5 minutes.", otpCode)
	return c.SendSms(ctx, phoneNumber, message, firstName, lastName)
}
