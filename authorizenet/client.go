// Package authorizenet talks to the Authorize.Net transaction API. It builds
// request payloads, sends them over HTTPS and classifies the response into a
// ChargeResult. It never retries; retry policy belongs to the caller.
package authorizenet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Credentials authenticate one merchant account against the API. They are
// supplied by host configuration and must never be logged or persisted.
type Credentials struct {
	APILoginID     string
	TransactionKey string
	Environment    Environment
}

// OpaqueToken is the one-time card representation produced by the Accept.js
// widget. It is forwarded to the API verbatim and never parsed or stored.
type OpaqueToken struct {
	DataDescriptor string `json:"dataDescriptor"`
	DataValue      string `json:"dataValue"`
}

func (t OpaqueToken) Validate() error {
	if t.DataDescriptor == "" || t.DataValue == "" {
		return fmt.Errorf("opaque token is missing dataDescriptor or dataValue")
	}
	return nil
}

type ChargeStatus int

const (
	// ChargeApproved and ChargeDeclined both mean the processor answered.
	ChargeApproved ChargeStatus = iota
	ChargeDeclined
	// ChargeTransportFailure means no authoritative answer was received.
	ChargeTransportFailure
)

// ChargeResult is the classified outcome of one transaction attempt.
type ChargeResult struct {
	Status        ChargeStatus
	TransactionID string // set when approved
	StatusText    string // set when approved
	Reason        string // set when declined or transport failed
}

func (r ChargeResult) Approved() bool { return r.Status == ChargeApproved }

const (
	reasonNoResponse      = "No response from Authorize.Net"
	reasonInvalidResponse = "Invalid response from Authorize.Net"

	defaultDeclineText  = "unknown error"
	defaultApprovedText = "Approved"
	defaultFailedText   = "Transaction Failed"
)

const defaultTimeout = 30 * time.Second

// Client is a single-merchant Authorize.Net API client.
type Client struct {
	// Base overrides the environment-selected endpoint when non-empty.
	Base string
	HTTP *http.Client

	creds Credentials
}

func New(creds Credentials, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{HTTP: hc, creds: creds}
}

func (c *Client) endpoint() string {
	if c.Base != "" {
		return c.Base
	}
	return c.creds.Environment.APIEndpoint()
}

// Wire types. The API is loosely specified; every field that may be absent is
// a pointer or slice so defaults can be substituted explicitly.

type merchantAuthentication struct {
	Name           string `json:"name"`
	TransactionKey string `json:"transactionKey"`
}

type opaqueData struct {
	DataDescriptor string `json:"dataDescriptor"`
	DataValue      string `json:"dataValue"`
}

type paymentType struct {
	OpaqueData opaqueData `json:"opaqueData"`
}

type transactionRequest struct {
	TransactionType string      `json:"transactionType"`
	Amount          string      `json:"amount"`
	Payment         paymentType `json:"payment"`
}

type createTransactionEnvelope struct {
	CreateTransactionRequest createTransactionBody `json:"createTransactionRequest"`
}

type createTransactionBody struct {
	MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
	RefID                  string                 `json:"refId"`
	TransactionRequest     transactionRequest     `json:"transactionRequest"`
}

type apiMessage struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

type apiMessages struct {
	ResultCode string       `json:"resultCode"`
	Message    []apiMessage `json:"message"`
}

type transactionMessage struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type transactionError struct {
	ErrorCode string `json:"errorCode"`
	ErrorText string `json:"errorText"`
}

type transactionResponse struct {
	ResponseCode string               `json:"responseCode"`
	TransID      string               `json:"transId"`
	Messages     []transactionMessage `json:"messages"`
	Errors       []transactionError   `json:"errors"`
}

type createTransactionResponse struct {
	Messages            apiMessages          `json:"messages"`
	TransactionResponse *transactionResponse `json:"transactionResponse"`
}

type merchantDetailsEnvelope struct {
	GetMerchantDetailsRequest merchantDetailsBody `json:"getMerchantDetailsRequest"`
}

type merchantDetailsBody struct {
	MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
}

type merchantDetailsResponse struct {
	Messages   apiMessages `json:"messages"`
	Currencies []string    `json:"currencies"`
}

// CreateTransaction runs one authorize-and-capture attempt for the given
// decimal amount and opaque token. The currency of the charge is the merchant
// account's currency; callers pre-check it with GetMerchantCurrency. Outcomes,
// including transport failures, travel as data.
func (c *Client) CreateTransaction(ctx context.Context, amount, refID string, token OpaqueToken) ChargeResult {
	envelope := createTransactionEnvelope{
		CreateTransactionRequest: createTransactionBody{
			MerchantAuthentication: merchantAuthentication{
				Name:           c.creds.APILoginID,
				TransactionKey: c.creds.TransactionKey,
			},
			RefID: refID,
			TransactionRequest: transactionRequest{
				TransactionType: "authCaptureTransaction",
				Amount:          amount,
				Payment: paymentType{
					OpaqueData: opaqueData{
						DataDescriptor: token.DataDescriptor,
						DataValue:      token.DataValue,
					},
				},
			},
		},
	}

	body, err := c.post(ctx, envelope)
	if err != nil || len(body) == 0 {
		return ChargeResult{Status: ChargeTransportFailure, Reason: reasonNoResponse}
	}

	return classifyCharge(body)
}

// classifyCharge turns a raw response body into a ChargeResult. It is a pure
// function of the body: same body, same classification.
func classifyCharge(body []byte) ChargeResult {
	var parsed createTransactionResponse
	if err := json.Unmarshal(stripBOM(body), &parsed); err != nil {
		return ChargeResult{Status: ChargeTransportFailure, Reason: reasonInvalidResponse}
	}

	if parsed.Messages.ResultCode != "Ok" {
		reason := defaultDeclineText
		if len(parsed.Messages.Message) > 0 && parsed.Messages.Message[0].Text != "" {
			reason = parsed.Messages.Message[0].Text
		}
		return ChargeResult{Status: ChargeDeclined, Reason: reason}
	}

	tresp := parsed.TransactionResponse
	if tresp != nil && tresp.ResponseCode == "1" {
		statusText := defaultApprovedText
		if len(tresp.Messages) > 0 && tresp.Messages[0].Description != "" {
			statusText = tresp.Messages[0].Description
		}
		return ChargeResult{
			Status:        ChargeApproved,
			TransactionID: tresp.TransID,
			StatusText:    statusText,
		}
	}

	reason := defaultFailedText
	if tresp != nil && len(tresp.Errors) > 0 && tresp.Errors[0].ErrorText != "" {
		reason = tresp.Errors[0].ErrorText
	}
	return ChargeResult{Status: ChargeDeclined, Reason: reason}
}

// GetMerchantCurrency fetches the currency configured on the merchant's
// account, used for a pre-flight compatibility check before charging.
func (c *Client) GetMerchantCurrency(ctx context.Context) (string, error) {
	envelope := merchantDetailsEnvelope{
		GetMerchantDetailsRequest: merchantDetailsBody{
			MerchantAuthentication: merchantAuthentication{
				Name:           c.creds.APILoginID,
				TransactionKey: c.creds.TransactionKey,
			},
		},
	}

	body, err := c.post(ctx, envelope)
	if err != nil || len(body) == 0 {
		return "", errors.New(reasonNoResponse)
	}

	var parsed merchantDetailsResponse
	if err := json.Unmarshal(stripBOM(body), &parsed); err != nil {
		return "", errors.New(reasonInvalidResponse)
	}

	if parsed.Messages.ResultCode != "Ok" {
		msg := defaultDeclineText
		if len(parsed.Messages.Message) > 0 && parsed.Messages.Message[0].Text != "" {
			msg = parsed.Messages.Message[0].Text
		}
		return "", fmt.Errorf("fetching merchant details: %s", msg)
	}

	if len(parsed.Currencies) == 0 {
		return "", fmt.Errorf("merchant account reports no currencies")
	}

	return parsed.Currencies[0], nil
}

func (c *Client) post(ctx context.Context, payload any) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// stripBOM removes the UTF-8 byte-order-mark the API prefixes its responses
// with.
func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
}

// FormatAmount renders a minor-unit amount in the decimal form the API
// expects, e.g. 1000 -> "10.00".
func FormatAmount(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}
