// File: internal/donor/handler.go
package donor

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"hemato_backend/internal/common"
)

// Handler struct holds dependencies for donor handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new donor handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("DonorHandler"),
	}
}

// RegisterLegacyRoutes mounts the root-level registration and verification
// endpoints. Their paths and response shapes are part of the published
// contract (links in already-sent emails point here), so they do not follow
// the v1 response envelope.
func (h *Handler) RegisterLegacyRoutes(router *gin.Engine) {
	donorGroup := router.Group("/donor")
	{
		donorGroup.POST("/add", h.addDonor)
		donorGroup.GET("/verify-email", h.verifyEmail)
	}
}

// RegisterRoutes sets up the versioned donor API.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, verifiedEmailMW gin.HandlerFunc) {
	donorGroup := router.Group("/donors")
	{
		donorGroup.GET("", h.listDonors)
		donorGroup.POST("/:id/requests", h.dispatchContactRequest)

		owned := donorGroup.Group("")
		owned.Use(authMW)
		{
			owned.GET("/mine", h.listMyDonations)
			owned.POST("", verifiedEmailMW, h.createDonor)
			owned.DELETE("/:id", h.deleteDonor)
		}
	}
}

// --- Legacy endpoints ---

func (h *Handler) addDonor(c *gin.Context) {
	var req AddDonorRequest
	if err := common.BindStrictJSON(c, &req); err != nil {
		// An empty body means every field is missing, same as an empty object.
		if errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required."})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return
	}

	_, err := h.service.RegisterAnonymous(c.Request.Context(), req)
	if err != nil {
		if apiErr, ok := common.IsAPIError(err); ok && apiErr.StatusCode < http.StatusInternalServerError {
			msg := apiErr.Message
			if detail, ok := apiErr.Details.(string); ok && detail != "" {
				msg = detail
			}
			c.JSON(apiErr.StatusCode, gin.H{"message": msg})
			return
		}
		h.logger.Error("Anonymous donor registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Donor added. Verification email sent."})
}

func (h *Handler) verifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.String(http.StatusBadRequest, "Invalid request")
		return
	}

	err := h.service.VerifyEmail(c.Request.Context(), token)
	if err != nil {
		if apiErr, ok := common.IsAPIError(err); ok && apiErr.StatusCode == http.StatusNotFound {
			c.String(http.StatusNotFound, "Invalid token")
			return
		}
		if apiErr, ok := common.IsAPIError(err); ok && apiErr.StatusCode == http.StatusBadRequest {
			c.String(http.StatusBadRequest, "Invalid request")
			return
		}
		h.logger.Error("Email verification failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "Server error")
		return
	}

	c.String(http.StatusOK, "Email verified successfully! You can close this page.")
}

// --- Versioned API ---

func (h *Handler) listDonors(c *gin.Context) {
	donors, err := h.service.ListDonors(c.Request.Context(), c.Query("q"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	responses := make([]DonorResponse, len(donors))
	for i, d := range donors {
		responses[i] = ToDonorResponse(&d)
	}
	common.RespondOK(c, "Donors retrieved successfully.", responses)
}

func (h *Handler) createDonor(c *gin.Context) {
	sess := common.GetSessionFromContext(c)

	var req CreateDonorRequest
	if err := common.BindStrictJSON(c, &req); err != nil {
		h.logger.Warn("Create donor: invalid request body", zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	donor, err := h.service.RegisterOwned(c.Request.Context(), sess, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Donor added successfully.", ToDonorResponse(donor))
}

func (h *Handler) listMyDonations(c *gin.Context) {
	sess := common.GetSessionFromContext(c)
	if sess == nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	donors, err := h.service.ListOwnedBy(c.Request.Context(), sess.UID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	responses := make([]DonorResponse, len(donors))
	for i, d := range donors {
		responses[i] = ToDonorResponse(&d)
	}
	common.RespondOK(c, "Your donations retrieved successfully.", responses)
}

func (h *Handler) deleteDonor(c *gin.Context) {
	donorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid donor ID format."))
		return
	}
	sess := common.GetSessionFromContext(c)
	if err := h.service.DeleteOwned(c.Request.Context(), sess, donorID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) dispatchContactRequest(c *gin.Context) {
	donorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid donor ID format."))
		return
	}

	var req ContactRequestInput
	if err := common.BindStrictJSON(c, &req); err != nil {
		h.logger.Warn("Contact request: invalid request body", zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	if err := h.service.DispatchContactRequest(c.Request.Context(), donorID, req); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Request sent to the donor.", nil)
}
