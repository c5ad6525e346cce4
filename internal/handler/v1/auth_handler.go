package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pablosanchi/consultation-backend/internal/domain"
	"github.com/pablosanchi/consultation-backend/internal/service"
	"github.com/pablosanchi/consultation-backend/pkg/metrics"
)

type AuthHandler struct {
	authSvc   *service.AuthService
	collector *metrics.Collector
}

func NewAuthHandler(authSvc *service.AuthService, collector *metrics.Collector) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, collector: collector}
}

type registerRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Role                 string `json:"role"`

	Gender             string `json:"gender"`
	Height             int    `json:"height"`
	Weight             int    `json:"weight"`
	Birth              string `json:"birth"`
	Diseases           string `json:"diseases"`
	PreviousTreatments string `json:"previous_treatments"`

	Grade      int    `json:"grade"`
	Speciality string `json:"speciality"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &service.RegisterCommand{
		Name:                 req.Name,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
		Role:                 domain.Role(req.Role),
		Gender:               domain.Gender(req.Gender),
		Height:               req.Height,
		Weight:               req.Weight,
		Diseases:             req.Diseases,
		PreviousTreatments:   req.PreviousTreatments,
		Grade:                req.Grade,
		Speciality:           req.Speciality,
	}
	if req.Birth != "" {
		birth, err := time.Parse("2006-01-02", req.Birth)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Message: "validation failed",
				Errors:  map[string]string{"birth": "birth must be a date in YYYY-MM-DD format"},
			})
			return
		}
		cmd.BirthDate = birth
	}

	user, err := h.authSvc.Register(c.Request.Context(), cmd)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.collector.UsersRegisteredTotal.Inc()
	respond(c, http.StatusOK, "User registered successfully", gin.H{
		"id":    user.ID,
		"email": user.Email,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, "Logged in successfully", pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.authSvc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, "Token refreshed successfully", pair)
}
