package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/dualcube/paygw-authorizenet/authorizenet"
	"github.com/dualcube/paygw-authorizenet/gateway/models"
	"github.com/dualcube/paygw-authorizenet/internal/refid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/exp/slog"
)

// Metrics
var (
	paymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygw_payments_total",
		Help: "Payment attempts by outcome",
	}, []string{"outcome"})

	processorLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paygw_processor_request_duration_seconds",
		Help:    "Authorize.Net round-trip latency",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30},
	})

	postApprovalFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paygw_post_approval_failures_total",
		Help: "Approved charges whose local commit failed",
	})
)

// MsgInternalError is the only message shown to the payer when the commit of
// an approved charge fails. Internal detail stays in the logs.
const MsgInternalError = "An internal error occurred while processing your payment. Please contact the site administrator."

const gatewayName = "authorizedotnet"

// PayableResolver hands back what is being purchased. The amount is final:
// surcharge-inclusive and currency-rounded, owned by the host.
type PayableResolver interface {
	Payable(ctx context.Context, component, paymentArea string, itemID int64) (*models.Payable, error)
}

// AccountResolver hands back the merchant account configured for the payable
// context.
type AccountResolver interface {
	GatewayAccount(ctx context.Context, component, paymentArea string, itemID int64) (*models.GatewayAccount, error)
}

// OrderDeliverer notifies the host that the purchase is paid for.
type OrderDeliverer interface {
	DeliverOrder(ctx context.Context, component, paymentArea string, itemID int64, paymentID, userID string) error
}

// ProcessorClient is the slice of the Authorize.Net client the orchestrator
// uses.
type ProcessorClient interface {
	CreateTransaction(ctx context.Context, amount, refID string, token authorizenet.OpaqueToken) authorizenet.ChargeResult
	GetMerchantCurrency(ctx context.Context) (string, error)
}

// ClientFactory builds a processor client for one attempt's credentials.
type ClientFactory func(creds authorizenet.Credentials) ProcessorClient

// Service coordinates one payment attempt: validate, charge, commit.
type Service struct {
	repo     *Repository
	payables PayableResolver
	accounts AccountResolver
	orders   OrderDeliverer
	logger   *slog.Logger
	clients  ClientFactory
}

func NewService(repo *Repository, payables PayableResolver, accounts AccountResolver, orders OrderDeliverer, logger *slog.Logger, clients ClientFactory) *Service {
	if clients == nil {
		clients = func(creds authorizenet.Credentials) ProcessorClient {
			return authorizenet.New(creds, nil)
		}
	}
	return &Service{
		repo:     repo,
		payables: payables,
		accounts: accounts,
		orders:   orders,
		logger:   logger,
		clients:  clients,
	}
}

// ProcessPaymentRequest carries the raw inbound RPC arguments.
type ProcessPaymentRequest struct {
	Component   string
	PaymentArea string
	ItemID      int64
	UserID      string
	OpaqueData  string
}

var componentRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func validateParams(component, paymentArea string, itemID int64) error {
	if !componentRe.MatchString(component) {
		return fmt.Errorf("invalid component: %q", component)
	}
	if !componentRe.MatchString(paymentArea) {
		return fmt.Errorf("invalid payment area: %q", paymentArea)
	}
	if itemID <= 0 {
		return fmt.Errorf("invalid item id: %d", itemID)
	}
	return nil
}

// ProcessPayment exchanges an opaque token for a captured transaction and
// records the outcome. One processor call and at most one ledger write per
// invocation; the call is not safe to replay automatically.
func (s *Service) ProcessPayment(ctx context.Context, req ProcessPaymentRequest) models.ProcessResult {
	if err := validateParams(req.Component, req.PaymentArea, req.ItemID); err != nil {
		paymentsTotal.WithLabelValues("invalid").Inc()
		return models.ProcessResult{Success: false, Message: err.Error()}
	}

	// A malformed token is a local validation failure, not a processor error.
	var token authorizenet.OpaqueToken
	if err := json.Unmarshal([]byte(req.OpaqueData), &token); err != nil {
		paymentsTotal.WithLabelValues("invalid").Inc()
		return models.ProcessResult{Success: false, Message: "invalid opaque data"}
	}
	if err := token.Validate(); err != nil {
		paymentsTotal.WithLabelValues("invalid").Inc()
		return models.ProcessResult{Success: false, Message: err.Error()}
	}

	account, err := s.accounts.GatewayAccount(ctx, req.Component, req.PaymentArea, req.ItemID)
	if err != nil {
		paymentsTotal.WithLabelValues("invalid").Inc()
		return models.ProcessResult{Success: false, Message: fmt.Sprintf("resolving gateway account: %v", err)}
	}
	if !account.Enabled() {
		paymentsTotal.WithLabelValues("invalid").Inc()
		return models.ProcessResult{Success: false, Message: "the payment gateway is not configured"}
	}

	payable, err := s.payables.Payable(ctx, req.Component, req.PaymentArea, req.ItemID)
	if err != nil {
		paymentsTotal.WithLabelValues("invalid").Inc()
		return models.ProcessResult{Success: false, Message: fmt.Sprintf("resolving payable: %v", err)}
	}

	client := s.clients(credentialsFor(account))

	timer := prometheus.NewTimer(processorLatency)
	result := client.CreateTransaction(ctx, authorizenet.FormatAmount(payable.Amount), refid.New(), token)
	timer.ObserveDuration()

	if !result.Approved() {
		outcome := "declined"
		if result.Status == authorizenet.ChargeTransportFailure {
			outcome = "transport_failure"
		}
		paymentsTotal.WithLabelValues(outcome).Inc()
		return models.ProcessResult{Success: false, Message: result.Reason}
	}

	payment := &models.PaymentRecord{
		ID:          uuid.New().String(),
		AccountID:   payable.AccountID,
		Component:   req.Component,
		PaymentArea: req.PaymentArea,
		ItemID:      req.ItemID,
		UserID:      req.UserID,
		Amount:      payable.Amount,
		Currency:    payable.Currency,
		Gateway:     gatewayName,
	}

	if err := s.repo.SavePayment(ctx, payment); err != nil {
		return s.postApprovalFailure(payment, result, fmt.Errorf("saving payment: %w", err))
	}

	record := &models.LedgerRecord{PaymentID: payment.ID, TransactionID: result.TransactionID}
	if err := s.repo.CreateLedgerRecord(ctx, record); err != nil {
		return s.postApprovalFailure(payment, result, fmt.Errorf("recording transaction: %w", err))
	}

	if err := s.orders.DeliverOrder(ctx, req.Component, req.PaymentArea, req.ItemID, payment.ID, req.UserID); err != nil {
		return s.postApprovalFailure(payment, result, fmt.Errorf("delivering order: %w", err))
	}

	paymentsTotal.WithLabelValues("approved").Inc()
	return models.ProcessResult{Success: true, Message: result.StatusText}
}

// postApprovalFailure demotes an approved charge to a user-visible failure.
// The charge is not reversed here; the log line and counter exist so an
// operator can reconcile it by transaction id.
func (s *Service) postApprovalFailure(payment *models.PaymentRecord, result authorizenet.ChargeResult, err error) models.ProcessResult {
	postApprovalFailures.Inc()
	paymentsTotal.WithLabelValues("post_approval_failure").Inc()
	s.logger.Error("payment commit failed after approved charge",
		slog.String("payment_id", payment.ID),
		slog.String("transaction_id", result.TransactionID),
		slog.Any("err", err),
	)
	return models.ProcessResult{Success: false, Message: MsgInternalError}
}

// ClientConfig returns the non-secret account fields the tokenization widget
// needs.
func (s *Service) ClientConfig(ctx context.Context, component, paymentArea string, itemID int64) (*models.ClientConfig, error) {
	if err := validateParams(component, paymentArea, itemID); err != nil {
		return nil, err
	}

	account, err := s.accounts.GatewayAccount(ctx, component, paymentArea, itemID)
	if err != nil {
		return nil, fmt.Errorf("resolving gateway account: %w", err)
	}

	return &models.ClientConfig{
		APILoginID:      account.APILoginID,
		PublicClientKey: account.PublicClientKey,
		Environment:     account.Environment,
	}, nil
}

// MerchantCurrency looks up the currency of the merchant's processor account
// for the pre-flight compatibility check.
func (s *Service) MerchantCurrency(ctx context.Context, component, paymentArea string, itemID int64) models.MerchantCurrency {
	if err := validateParams(component, paymentArea, itemID); err != nil {
		return models.MerchantCurrency{Success: false, Message: err.Error()}
	}

	account, err := s.accounts.GatewayAccount(ctx, component, paymentArea, itemID)
	if err != nil {
		return models.MerchantCurrency{Success: false, Message: fmt.Sprintf("resolving gateway account: %v", err)}
	}

	currency, err := s.clients(credentialsFor(account)).GetMerchantCurrency(ctx)
	if err != nil {
		return models.MerchantCurrency{Success: false, Message: err.Error()}
	}

	return models.MerchantCurrency{Success: true, Currency: currency}
}

func credentialsFor(account *models.GatewayAccount) authorizenet.Credentials {
	env := authorizenet.EnvironmentSandbox
	if account.Environment == string(authorizenet.EnvironmentLive) {
		env = authorizenet.EnvironmentLive
	}
	return authorizenet.Credentials{
		APILoginID:     account.APILoginID,
		TransactionKey: account.TransactionKey,
		Environment:    env,
	}
}
