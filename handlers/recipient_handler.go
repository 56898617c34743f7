package handlers

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/igrejaconnect/campaign-service/internal/domain"
	"github.com/igrejaconnect/campaign-service/internal/service"
	"github.com/igrejaconnect/campaign-service/pkg/response"
	"github.com/igrejaconnect/campaign-service/pkg/validator"
)

type RecipientHandler struct {
	service *service.CampaignService
}

func NewRecipientHandler(service *service.CampaignService) *RecipientHandler {
	return &RecipientHandler{service: service}
}

type FilterRecipientsRequest struct {
	DateStart string `json:"dateStart" validate:"omitempty,datetime=2006-01-02"`
	DateEnd   string `json:"dateEnd" validate:"omitempty,datetime=2006-01-02"`
	AgeMin    *int   `json:"ageMin" validate:"omitempty,gte=0,lte=150"`
	AgeMax    *int   `json:"ageMax" validate:"omitempty,gte=0,lte=150"`
	Gender    string `json:"gender" validate:"omitempty,oneof=M F"`
}

// FilterRecipients godoc
// @Summary Preview a recipient selection
// @Description Returns the recipients matching the given criteria without creating a campaign
// @Tags recipients
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param criteria body FilterRecipientsRequest true "Selection criteria"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationError
// @Router /api/v1/recipients/filter [post]
func (h *RecipientHandler) FilterRecipients(c echo.Context) error {
	var req FilterRecipientsRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	recipients, err := h.service.FilterRecipients(c.Request().Context(), service.FilterCriteria{
		DateStart: req.DateStart,
		DateEnd:   req.DateEnd,
		AgeMin:    req.AgeMin,
		AgeMax:    req.AgeMax,
		Gender:    req.Gender,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCriteria) {
			return response.BadRequest(c, err)
		}
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, map[string]any{
		"count":      len(recipients),
		"recipients": recipients,
	})
}
