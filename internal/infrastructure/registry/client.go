package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/bigsoczeq/ai-chatbot2/internal/domain/tool"
)

// Client calls the company-registry lookup service. Upstream failures are
// mapped to the structured tool error taxonomy; the bearer credential and
// the service address never appear in an error message.
type Client struct {
	httpClient *resty.Client
	log        zerolog.Logger
}

// NewClient creates a Resty-backed registry client.
func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Accept", "application/json").
			SetAuthToken(apiKey).
			SetTimeout(30 * time.Second),
		log: log.With().Str("component", "registry-client").Logger(),
	}
}

// CompanyByKRS fetches company data for a 10-digit KRS number.
func (c *Client) CompanyByKRS(ctx context.Context, krsNumber string) (json.RawMessage, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/api/v1/companies/krs/%s", krsNumber))
	if err != nil {
		c.log.Error().Err(err).Msg("registry request failed")
		return nil, tool.NewError(tool.ErrCodeUpstreamUnavailable,
			"the company registry service could not be reached; please try again later")
	}

	if resp.IsError() {
		return nil, c.mapStatus(resp.StatusCode(), krsNumber)
	}

	return json.RawMessage(resp.Body()), nil
}

func (c *Client) mapStatus(status int, krsNumber string) *tool.Error {
	switch status {
	case http.StatusForbidden:
		c.log.Error().Int("status", status).Msg("registry returned forbidden; check the API credential")
		return tool.NewError(tool.ErrCodeForbidden,
			"access to the company data service was denied")
	case http.StatusNotFound:
		return tool.NewError(tool.ErrCodeNotFound,
			fmt.Sprintf("company with KRS number %s not found", krsNumber))
	case http.StatusUnprocessableEntity:
		return tool.NewError(tool.ErrCodeInvalidInput,
			fmt.Sprintf("invalid KRS number format for %s; it must be 10 digits", krsNumber))
	case http.StatusInternalServerError:
		return tool.NewError(tool.ErrCodeInternal,
			"an internal error occurred while fetching company data")
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		return tool.NewError(tool.ErrCodeUpstreamUnavailable,
			"the company registry service is currently unavailable; please try again later")
	default:
		c.log.Warn().Int("status", status).Msg("registry returned unexpected status")
		return tool.NewError(tool.ErrCodeInternal,
			fmt.Sprintf("failed to fetch company data (status %d)", status))
	}
}

var _ tool.CompanyRegistry = (*Client)(nil)
