package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"marathon-billing/internal/config"
	"marathon-billing/internal/domain"
	"marathon-billing/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.PaymentGateway = (*AlfaBankGateway)(nil)

// AlfaBankGateway implements the payment port against the AlfaBank acquiring
// REST API (register.do / getOrderStatusExtended.do, form-encoded requests,
// JSON responses).
type AlfaBankGateway struct {
	username  string
	password  string
	baseURL   string
	returnURL string
	failURL   string
	client    *http.Client
}

func NewAlfaBankGateway(cfg config.AlfaBankConfig) *AlfaBankGateway {
	return &AlfaBankGateway{
		username:  cfg.Username,
		password:  cfg.Password,
		baseURL:   strings.TrimRight(cfg.APIURL, "/"),
		returnURL: cfg.ReturnURL,
		failURL:   cfg.FailURL,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (g *AlfaBankGateway) Name() string { return "alfabank" }

type registerResponse struct {
	OrderID      string `json:"orderId"`
	FormURL      string `json:"formUrl"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type statusResponse struct {
	OrderNumber  string `json:"orderNumber"`
	OrderStatus  int    `json:"orderStatus"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

func (g *AlfaBankGateway) RegisterOrder(ctx context.Context, orderNumber string, amount int64, description, email string, meta map[string]string) (adapter.Registration, error) {
	form := url.Values{
		"userName":    {g.username},
		"password":    {g.password},
		"orderNumber": {orderNumber},
		"amount":      {strconv.FormatInt(amount, 10)},
		"returnUrl":   {g.returnURL},
		"failUrl":     {g.failURL},
		"description": {description},
		"currency":    {"643"},
	}
	if email != "" {
		form.Set("email", email)
	}
	if len(meta) > 0 {
		jsonParams, err := json.Marshal(meta)
		if err != nil {
			return adapter.Registration{}, err
		}
		form.Set("jsonParams", string(jsonParams))
	}

	var resp registerResponse
	if err := g.post(ctx, "/register.do", form, &resp); err != nil {
		return adapter.Registration{}, err
	}
	if resp.ErrorCode != "" && resp.ErrorCode != "0" {
		return adapter.Registration{}, fmt.Errorf("%w: error %s: %s", domain.ErrGatewayUnavailable, resp.ErrorCode, resp.ErrorMessage)
	}
	if resp.OrderID == "" || resp.FormURL == "" {
		return adapter.Registration{}, fmt.Errorf("%w: empty registration response", domain.ErrGatewayUnavailable)
	}
	return adapter.Registration{ExternalID: resp.OrderID, PaymentURL: resp.FormURL}, nil
}

func (g *AlfaBankGateway) FetchStatus(ctx context.Context, externalID string) (adapter.StatusCode, error) {
	form := url.Values{
		"userName": {g.username},
		"password": {g.password},
		"orderId":  {externalID},
	}

	var resp statusResponse
	if err := g.post(ctx, "/getOrderStatusExtended.do", form, &resp); err != nil {
		return 0, err
	}
	if resp.ErrorCode != "" && resp.ErrorCode != "0" {
		return 0, fmt.Errorf("%w: error %s: %s", domain.ErrGatewayUnavailable, resp.ErrorCode, resp.ErrorMessage)
	}
	return adapter.StatusCode(resp.OrderStatus), nil
}

// MapStatus reduces the bank's orderStatus codes:
//
//	0 order registered, unpaid        -> pending
//	1 pre-auth amount held            -> pending
//	2 full authorization completed    -> succeeded
//	3 authorization reversed          -> canceled
//	4 refunded                        -> canceled
//	5 ACS authorization initiated     -> pending
//	6 authorization declined          -> failed
//
// Unknown codes stay pending so a new non-final code is never misread as terminal.
func (g *AlfaBankGateway) MapStatus(code adapter.StatusCode) adapter.CanonicalStatus {
	switch code {
	case 2:
		return adapter.CanonicalSucceeded
	case 3, 4:
		return adapter.CanonicalCanceled
	case 6:
		return adapter.CanonicalFailed
	default:
		return adapter.CanonicalPending
	}
}

func (g *AlfaBankGateway) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrGatewayUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: http %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v, body: %s", domain.ErrGatewayUnavailable, err, string(body))
	}
	return nil
}
