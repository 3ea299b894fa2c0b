package handlers

import (
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go"
	verify "github.com/twilio/twilio-go/rest/verify/v2"

	"imageboard/internal/middleware"
	"imageboard/internal/storage"
)

// VerifyHandler backs the optional phone verification flow. Verified
// accounts get the is_verified badge on their profile.
type VerifyHandler struct {
	store      storage.Storage
	client     *twilio.RestClient
	serviceSID string
}

func NewVerifyHandler(store storage.Storage) *VerifyHandler {
	return &VerifyHandler{
		store:      store,
		client:     twilio.NewRestClient(),
		serviceSID: os.Getenv("TWILIO_VERIFY_SERVICE_SID"),
	}
}

type sendCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
}

type checkCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// SendCode asks Twilio Verify to text a one-time code to the phone.
func (h *VerifyHandler) SendCode(c *gin.Context) {
	var req sendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := &verify.CreateVerificationParams{}
	params.SetTo(req.Phone)
	params.SetChannel("sms")

	if _, err := h.client.VerifyV2.CreateVerification(h.serviceSID, params); err != nil {
		log.Printf("failed to send verification code: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send verification code"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent"})
}

// CheckCode validates the code and, on approval, marks the caller's
// account verified and stores the phone number.
func (h *VerifyHandler) CheckCode(c *gin.Context) {
	var req checkCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(req.Phone)
	params.SetCode(req.Code)

	resp, err := h.client.VerifyV2.CreateVerificationCheck(h.serviceSID, params)
	if err != nil {
		log.Printf("failed to check verification code: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to check verification code"})
		return
	}
	if resp.Status == nil || *resp.Status != "approved" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid verification code"})
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		log.Printf("failed to load user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify account"})
		return
	}

	user.Phone = req.Phone
	user.IsVerified = true
	if err := h.store.UpdateUser(c.Request.Context(), user); err != nil {
		log.Printf("failed to mark user verified: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify account"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account verified", "user": user})
}
