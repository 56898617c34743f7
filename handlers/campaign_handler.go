package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/igrejaconnect/campaign-service/internal/domain"
	"github.com/igrejaconnect/campaign-service/internal/service"
	"github.com/igrejaconnect/campaign-service/pkg/response"
	"github.com/igrejaconnect/campaign-service/pkg/validator"
)

type CampaignHandler struct {
	service *service.CampaignService
}

func NewCampaignHandler(service *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{service: service}
}

type SendCampaignRequest struct {
	Name         string                  `json:"name" validate:"required,max=120"`
	Message      string                  `json:"message" validate:"required"`
	MediaURL     *string                 `json:"mediaUrl" validate:"omitempty,url"`
	Criteria     FilterRecipientsRequest `json:"criteria"`
	RecipientIDs []int64                 `json:"recipientIds" validate:"omitempty,dive,gt=0"`
}

type ReprocessRequest struct {
	Campaign string `json:"campaign" validate:"required"`
}

type ClearHistoryRequest struct {
	// Campaign names the campaign to prune, or "all" for everything.
	Campaign string `json:"campaign" validate:"required"`
}

// SendCampaign godoc
// @Summary Create and dispatch a campaign
// @Description Creates a campaign, selects recipients by criteria or explicit ids and sends the message to each one
// @Tags campaigns
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param campaign body SendCampaignRequest true "Campaign to send"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationError
// @Failure 502 {object} response.ErrorResponse
// @Router /api/v1/campaigns/send [post]
func (h *CampaignHandler) SendCampaign(c echo.Context) error {
	var req SendCampaignRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	result, err := h.service.SendCampaign(c.Request().Context(), service.SendRequest{
		Name:     req.Name,
		Message:  req.Message,
		MediaURL: req.MediaURL,
		Criteria: service.FilterCriteria{
			DateStart: req.Criteria.DateStart,
			DateEnd:   req.Criteria.DateEnd,
			AgeMin:    req.Criteria.AgeMin,
			AgeMax:    req.Criteria.AgeMax,
			Gender:    req.Criteria.Gender,
		},
		RecipientIDs: req.RecipientIDs,
	})
	if err != nil {
		return campaignError(c, err)
	}

	return response.OkWithMessage(c, "Campaign dispatched", result)
}

// Reprocess godoc
// @Summary Retry failed deliveries
// @Description Re-sends the campaign message to every recipient whose delivery failed
// @Tags campaigns
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param request body ReprocessRequest true "Campaign to reprocess"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationError
// @Failure 502 {object} response.ErrorResponse
// @Router /api/v1/campaigns/reprocess [post]
func (h *CampaignHandler) Reprocess(c echo.Context) error {
	var req ReprocessRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	result, err := h.service.Reprocess(c.Request().Context(), req.Campaign)
	if err != nil {
		return campaignError(c, err)
	}

	return response.OkWithMessage(c, "Reprocessing finished", result)
}

// Status godoc
// @Summary Campaign delivery status
// @Description Without a campaign parameter returns the per-campaign overview; with one returns its counts and a page of delivery records
// @Tags campaigns
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param campaign query string false "Campaign name"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/campaigns/status [get]
func (h *CampaignHandler) Status(c echo.Context) error {
	name := c.QueryParam("campaign")
	if name == "" {
		overview, err := h.service.StatusOverview(c.Request().Context())
		if err != nil {
			return response.InternalServerError(c, err)
		}
		return response.Ok(c, overview)
	}

	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	statusPage, err := h.service.CampaignStatus(c.Request().Context(), name, page, pageSize)
	if err != nil {
		return campaignError(c, err)
	}

	return response.Ok(c, statusPage)
}

// ClearHistory godoc
// @Summary Prune delivery history
// @Description Deletes the delivery records of one campaign, or of every campaign when "all" is given. Unknown campaigns report zero removed.
// @Tags campaigns
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param request body ClearHistoryRequest true "Campaign to prune or \"all\""
// @Success 200 {object} response.SuccessResponse
// @Failure 422 {object} validator.ValidationError
// @Router /api/v1/campaigns/clear-history [post]
func (h *CampaignHandler) ClearHistory(c echo.Context) error {
	var req ClearHistoryRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	removed, err := h.service.ClearHistory(c.Request().Context(), req.Campaign)
	if err != nil {
		return campaignError(c, err)
	}

	return response.OkWithMessage(c, "History cleared", map[string]any{"removed": removed})
}

// campaignError maps the service error taxonomy onto HTTP statuses.
func campaignError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrInvalidCriteria):
		return response.BadRequest(c, err)
	case errors.Is(err, domain.ErrCampaignBusy):
		return response.Conflict(c, err)
	case errors.Is(err, domain.ErrProviderUnreachable):
		return response.BadGateway(c, err)
	default:
		return response.InternalServerError(c, err)
	}
}

func parsePaginationParams(c echo.Context) (int, int, error) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)

	pageStr := c.QueryParam("page")
	pageSizeStr := c.QueryParam("pageSize")

	page := defaultPage
	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
		page = p
	}

	pageSize := defaultPageSize
	if pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil || ps <= 0 || ps > maxPageSize {
			return 0, 0, fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
		}
		pageSize = ps
	}

	return page, pageSize, nil
}
