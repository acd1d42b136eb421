package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"checkin-service/internal/client"
	"checkin-service/internal/service"
	"checkin-service/internal/util"
)

// CheckInHandler serves the kiosk flow: session bootstrap, vehicle lookup,
// check-in start, and the OTP send/verify pair.
type CheckInHandler struct {
	sessions *service.SessionService
	otp      *service.OtpService
	checkIns *service.CheckInService
	sms      *client.SmsClient
}

func NewCheckInHandler(sessions *service.SessionService, otp *service.OtpService, checkIns *service.CheckInService, sms *client.SmsClient) *CheckInHandler {
	return &CheckInHandler{
		sessions: sessions,
		otp:      otp,
		checkIns: checkIns,
		sms:      sms,
	}
}

func (h *CheckInHandler) RegisterRoutes(router chi.Router) {
	router.Post("/session", h.CreateSession)
	router.Get("/vehicles/{stateCode}/{licensePlate}", h.LookupVehicle)
	router.Post("/checkin", h.StartCheckIn)
	router.Post("/otp/send", h.SendOtp)
	router.Post("/otp/verify", h.VerifyOtp)
}

// CreateSession bootstraps a new anonymous session. This is the only way a
// client obtains a session id.
func (h *CheckInHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Create(r.Context(), r.RemoteAddr)
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, "session creation failed", "Unable to create session")
		return
	}

	respondWithJSON(w, http.StatusCreated, Response{
		Success:   true,
		Data:      map[string]string{"sessionId": session.ID},
		Message:   "Session created",
		Timestamp: session.LastActivity,
		SessionID: session.ID,
	})
}

func (h *CheckInHandler) LookupVehicle(w http.ResponseWriter, r *http.Request) {
	stateCode := chi.URLParam(r, "stateCode")
	licensePlate := chi.URLParam(r, "licensePlate")

	vehicle, err := h.checkIns.LookupVehicle(r.Context(), licensePlate, stateCode)
	if err != nil {
		if errors.Is(err, service.ErrVehicleNotFound) {
			respondWithError(w, r, http.StatusNotFound, "vehicle not found", "No vehicle matches that plate")
			return
		}
		respondWithError(w, r, http.StatusInternalServerError, "lookup failed", "Vehicle lookup failed")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(r, vehicle, "Vehicle found"))
}

type startCheckInRequest struct {
	StoreID      string `json:"storeId"`
	LicensePlate string `json:"licensePlate"`
	StateCode    string `json:"stateCode"`
}

func (h *CheckInHandler) StartCheckIn(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	if session == nil {
		respondWithError(w, r, http.StatusUnauthorized, "session required", "No active session")
		return
	}

	var req startCheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "invalid request body", "Request body must be JSON")
		return
	}
	if req.StoreID == "" || req.LicensePlate == "" {
		respondWithError(w, r, http.StatusBadRequest, "missing fields", "storeId and licensePlate are required")
		return
	}

	checkIn, err := h.checkIns.StartCheckIn(r.Context(), session, req.StoreID, req.LicensePlate, req.StateCode)
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, "check-in failed", "Unable to start check-in")
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(r, checkIn, "Check-in started"))
}

type sendOtpRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
}

type sendOtpResponse struct {
	PhoneNumber     string `json:"phoneNumber"`
	CooldownSeconds int    `json:"cooldownSeconds"`
}

// SendOtp issues a new code and dispatches it by SMS. The code itself never
// appears in the response.
func (h *CheckInHandler) SendOtp(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	if session == nil {
		respondWithError(w, r, http.StatusUnauthorized, "session required", "No active session")
		return
	}

	var req sendOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "invalid request body", "Request body must be JSON")
		return
	}

	phone := util.FormatToE164(req.PhoneNumber)
	if phone == "" {
		respondWithError(w, r, http.StatusBadRequest, "invalid phone number", "Phone number is not valid")
		return
	}

	code, err := h.otp.Generate(r.Context(), session, phone)
	if err != nil {
		var cooldown *service.CooldownActiveError
		var duplicate *service.DuplicateRequestError
		switch {
		case errors.As(err, &cooldown):
			respondWithJSON(w, http.StatusTooManyRequests, errorResponse(r, "cooldown active",
				"Please wait before requesting another code"))
		case errors.As(err, &duplicate):
			respondWithJSON(w, http.StatusConflict, errorResponse(r, "code already sent",
				"A code was already sent and is still valid"))
		case errors.Is(err, service.ErrNoActiveSession):
			respondWithError(w, r, http.StatusUnauthorized, "session required", "No active session")
		default:
			respondWithError(w, r, http.StatusInternalServerError, "otp generation failed", "Unable to send code")
		}
		return
	}

	if err := h.sms.SendOtp(r.Context(), phone, code, req.FirstName, req.LastName); err != nil {
		util.Error("Failed to dispatch OTP SMS",
			zap.String("session_id", session.ID),
			zap.String("phone", util.MaskPhoneNumber(phone)),
			zap.Error(err))
		respondWithError(w, r, http.StatusBadGateway, "sms delivery failed", "Unable to deliver code")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(r, sendOtpResponse{
		PhoneNumber:     util.MaskPhoneNumber(phone),
		CooldownSeconds: h.otp.CooldownRemainingSeconds(session, phone),
	}, "Verification code sent"))
}

type verifyOtpRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Code        string `json:"code"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
}

type verifyOtpResponse struct {
	Verified          bool   `json:"verified"`
	CustomerID        string `json:"customerId,omitempty"`
	RemainingAttempts *int   `json:"remainingAttempts,omitempty"`
}

// VerifyOtp checks the supplied code. On success the caller's customer
// record is found or created and linked to the session. Failures stay
// generic; only a remaining-attempts hint is returned.
func (h *CheckInHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	if session == nil {
		respondWithError(w, r, http.StatusUnauthorized, "session required", "No active session")
		return
	}

	var req verifyOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "invalid request body", "Request body must be JSON")
		return
	}

	phone := util.FormatToE164(req.PhoneNumber)
	if phone == "" {
		respondWithError(w, r, http.StatusBadRequest, "invalid phone number", "Phone number is not valid")
		return
	}

	verified, err := h.otp.Validate(r.Context(), session, phone, req.Code)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSession) {
			respondWithError(w, r, http.StatusUnauthorized, "session required", "No active session")
			return
		}
		respondWithError(w, r, http.StatusInternalServerError, "verification failed", "Unable to verify code")
		return
	}

	if !verified {
		respondWithJSON(w, http.StatusUnprocessableEntity, Response{
			Success: false,
			Data: verifyOtpResponse{
				Verified:          false,
				RemainingAttempts: h.otp.RemainingAttempts(session, phone),
			},
			Error:     "invalid code",
			Message:   "The code is invalid or expired",
			Timestamp: session.LastActivity,
			SessionID: session.ID,
		})
		return
	}

	customer, err := h.checkIns.CompleteVerification(r.Context(), session, phone,
		util.SanitizeInput(req.FirstName), util.SanitizeInput(req.LastName))
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, "verification failed", "Unable to complete verification")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(r, verifyOtpResponse{
		Verified:   true,
		CustomerID: customer.ID,
	}, "Phone verified"))
}
