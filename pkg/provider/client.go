package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/igrejaconnect/campaign-service/environments"
	"github.com/igrejaconnect/campaign-service/internal/domain"
	"github.com/igrejaconnect/campaign-service/pkg/logger"
)

// Client talks to the WhatsApp gateway. It adapts the gateway's responses
// into domain.SendOutcome so the dispatch engine never sees provider-specific
// payloads: definitive rejections come back as an unsuccessful outcome,
// connectivity problems as an error wrapping domain.ErrProviderUnreachable.
type Client struct {
	httpClient *resty.Client
	baseURL    string
	instance   string
	token      string
}

type textPayload struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type imagePayload struct {
	Phone   string `json:"phone"`
	Caption string `json:"caption"`
	Image   string `json:"image"`
}

type gatewayResponse struct {
	MessageID string `json:"messageId"`
	Error     string `json:"error"`
}

func NewClient(cfg environments.ProviderConfig) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("Client-Token", cfg.ClientToken)

	return &Client{
		httpClient: client,
		baseURL:    cfg.BaseURL,
		instance:   cfg.Instance,
		token:      cfg.Token,
	}
}

// Send delivers one message to one phone number. The gateway has separate
// routes for plain text and image-with-caption; mediaURL picks between them.
func (c *Client) Send(ctx context.Context, phone, message string, mediaURL *string) (*domain.SendOutcome, error) {
	canonical, err := CanonicalPhone(phone)
	if err != nil {
		// A number the gateway could never deliver to is a rejection for
		// that recipient, not a connectivity problem.
		return &domain.SendOutcome{Success: false, ErrorCode: "invalid_number"}, nil
	}

	var (
		url  string
		body any
	)
	if mediaURL != nil && *mediaURL != "" {
		url = fmt.Sprintf("%s/instances/%s/token/%s/send-image", c.baseURL, c.instance, c.token)
		body = imagePayload{Phone: canonical, Caption: message, Image: *mediaURL}
	} else {
		url = fmt.Sprintf("%s/instances/%s/token/%s/send-text", c.baseURL, c.instance, c.token)
		body = textPayload{Phone: canonical, Message: message}
	}

	var gatewayResp gatewayResponse

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&gatewayResp).
		SetError(&gatewayResp).
		Post(url)

	duration := time.Since(startTime)

	if err != nil {
		return nil, fmt.Errorf("gateway request failed after %v: %w: %v", duration, domain.ErrProviderUnreachable, err)
	}

	logger.Debugf("Gateway request for %s completed in %v (status: %d)", canonical, duration, resp.StatusCode())

	switch {
	case resp.StatusCode() >= http.StatusInternalServerError:
		return nil, fmt.Errorf("gateway returned status %d: %w", resp.StatusCode(), domain.ErrProviderUnreachable)

	case resp.StatusCode() >= http.StatusBadRequest:
		code := gatewayResp.Error
		if code == "" {
			code = fmt.Sprintf("rejected_%d", resp.StatusCode())
		}
		return &domain.SendOutcome{Success: false, ErrorCode: code}, nil
	}

	return &domain.SendOutcome{Success: true}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}
