// Package handshake sequences the three-party payment handshake: render the
// payment UI, load the processor's tokenization script, receive the token
// callback and forward the token for authorization.
package handshake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/dualcube/paygw-authorizenet/authorizenet"
	"github.com/dualcube/paygw-authorizenet/gateway/models"
	"golang.org/x/exp/slog"
)

// State tracks where a handshake is. All transitions happen in strict order;
// no step begins before its predecessor resolved.
type State int

const (
	StateIdle State = iota
	StateConfigLoading
	StateModalRendering
	StateScriptLoading
	StateAwaitingToken
	StateAuthorizing
	StateSettled
)

const (
	titleText       = "Authorize.Net"
	authorisingText = "Authorising your payment, please wait..."
	errorTitleText  = "Error"
)

// Repository is the RPC surface the controller talks to.
type Repository interface {
	GetConfigForJS(ctx context.Context, component, paymentArea string, itemID int64) (*models.ClientConfig, error)
	ProcessPayment(ctx context.Context, component, paymentArea string, itemID int64, opaqueData string) (*models.ProcessResult, error)
}

// Modal is the dialog the payment button lives in.
type Modal interface {
	Show(title, body string) error
	SetBody(body string)
	// SuppressOutsideDismiss stops outside clicks from closing the modal so
	// state cannot be lost mid-authorization.
	SuppressOutsideDismiss()
	Hide()
}

// Notifier presents blocking notifications to the user.
type Notifier interface {
	Alert(title, message string)
}

// TokenizerResponse mirrors the payload the tokenization script hands to its
// callback: either an error message list or an opaque token.
type TokenizerResponse struct {
	Messages struct {
		ResultCode string `json:"resultCode"`
		Message    []struct {
			Code string `json:"code"`
			Text string `json:"text"`
		} `json:"message"`
	} `json:"messages"`
	OpaqueData *authorizenet.OpaqueToken `json:"opaqueData"`
}

var buttonTemplate = template.Must(template.New("button").Parse(
	`<button type="button" class="AcceptUI btn btn-primary" data-apiloginid="{{.APILoginID}}" data-clientkey="{{.PublicClientKey}}" data-responsehandler="responseHandler">Pay with Authorize.Net</button>`))

// Controller runs one handshake. A single callback registration is shared per
// page, so only one handshake may be active at a time; a second concurrent
// controller on the same page would overwrite the first's callback.
type Controller struct {
	repo     Repository
	modal    Modal
	notifier Notifier
	scripts  *ScriptLoader
	logger   *slog.Logger

	state     State
	responses chan TokenizerResponse
}

func NewController(repo Repository, modal Modal, notifier Notifier, scripts *ScriptLoader, logger *slog.Logger) *Controller {
	return &Controller{
		repo:      repo,
		modal:     modal,
		notifier:  notifier,
		scripts:   scripts,
		logger:    logger,
		state:     StateIdle,
		responses: make(chan TokenizerResponse, 1),
	}
}

// State returns the controller's current position in the handshake.
func (c *Controller) State() State {
	return c.state
}

// HandleTokenizerResponse is the callback target the tokenization script
// invokes. A response arriving after the handshake settled is dropped; the
// registration is not cancelled by closing the modal.
func (c *Controller) HandleTokenizerResponse(resp TokenizerResponse) {
	select {
	case c.responses <- resp:
	default:
	}
}

// Process runs the handshake to completion and resolves with the success
// message, or an error carrying the user-visible failure message.
func (c *Controller) Process(ctx context.Context, component, paymentArea string, itemID int64) (string, error) {
	c.state = StateConfigLoading
	config, err := c.repo.GetConfigForJS(ctx, component, paymentArea, itemID)
	if err != nil {
		c.state = StateIdle
		return "", fmt.Errorf("fetching gateway config: %w", err)
	}

	// The payment button must be in the document before the script loads, so
	// the element the script binds to already exists.
	c.state = StateModalRendering
	var body strings.Builder
	if err := buttonTemplate.Execute(&body, config); err != nil {
		c.state = StateIdle
		return "", fmt.Errorf("rendering payment button: %w", err)
	}
	if err := c.modal.Show(titleText, body.String()); err != nil {
		c.state = StateIdle
		return "", fmt.Errorf("showing payment modal: %w", err)
	}

	c.state = StateScriptLoading
	env, err := authorizenet.ParseEnvironment(config.Environment)
	if err != nil {
		c.state = StateIdle
		return "", err
	}
	if err := c.scripts.Switch(env); err != nil {
		c.state = StateIdle
		return "", err
	}

	c.state = StateAwaitingToken
	for {
		select {
		case <-ctx.Done():
			c.state = StateIdle
			return "", ctx.Err()
		case resp := <-c.responses:
			if resp.Messages.ResultCode == "Error" || resp.OpaqueData == nil {
				c.logger.Warn("tokenization failed", slog.String("result_code", resp.Messages.ResultCode))
				messages := make([]string, 0, len(resp.Messages.Message))
				for _, m := range resp.Messages.Message {
					messages = append(messages, m.Text)
				}
				c.notifier.Alert(errorTitleText, strings.Join(messages, "\n"))
				// Back to idle; the widget keeps the callback bound, so the
				// user can retry without restarting the handshake.
				c.state = StateIdle
				continue
			}

			c.modal.SuppressOutsideDismiss()
			c.state = StateAuthorizing
			c.modal.SetBody(authorisingText)

			raw, err := json.Marshal(resp.OpaqueData)
			if err != nil {
				c.modal.Hide()
				c.state = StateSettled
				return "", fmt.Errorf("encoding opaque data: %w", err)
			}

			result, err := c.repo.ProcessPayment(ctx, component, paymentArea, itemID, string(raw))
			c.modal.Hide()
			c.state = StateSettled
			if err != nil {
				return "", fmt.Errorf("processing payment: %w", err)
			}
			if result.Success {
				return result.Message, nil
			}
			return "", errors.New(result.Message)
		}
	}
}
