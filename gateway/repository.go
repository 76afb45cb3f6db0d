package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dualcube/paygw-authorizenet/gateway/models"
	"github.com/jackc/pgconn"
	"github.com/lib/pq"
)

var ErrNotFound = fmt.Errorf("not found")
var ErrConflict = fmt.Errorf("conflict")

// Repository stores payments and the ledger records linking them to processor
// transaction ids. The in-memory backend serves tests; the db backend expects
// the paygw.payments and paygw.authorizenet tables, the latter with a unique
// index on transaction_id.
type Repository struct {
	Payments []*models.PaymentRecord
	Records  []*models.LedgerRecord

	mu      sync.RWMutex
	txIndex map[string]struct{}
	db      *sql.DB
}

func NewRepository() *Repository {
	return &Repository{
		Payments: make([]*models.PaymentRecord, 0),
		Records:  make([]*models.LedgerRecord, 0),
		txIndex:  make(map[string]struct{}),
	}
}

// NewPGRepository constructs a db-backed repository.
func NewPGRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) SavePayment(ctx context.Context, payment *models.PaymentRecord) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.Payments = append(r.Payments, payment)
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO paygw.payments(payment_id, account_id, component, payment_area, item_id, user_id, amount, currency, gateway)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `, payment.ID, payment.AccountID, payment.Component, payment.PaymentArea, payment.ItemID,
		payment.UserID, payment.Amount, payment.Currency, payment.Gateway)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// CreateLedgerRecord writes the payment-to-transaction link. The write is
// idempotent by transaction id: recording the same transaction twice leaves a
// single record and returns nil.
func (r *Repository) CreateLedgerRecord(ctx context.Context, record *models.LedgerRecord) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.txIndex[record.TransactionID]; ok {
			return nil
		}
		r.Records = append(r.Records, record)
		r.txIndex[record.TransactionID] = struct{}{}
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO paygw.authorizenet(payment_id, transaction_id)
        VALUES ($1,$2)
        ON CONFLICT (transaction_id) DO NOTHING
    `, record.PaymentID, record.TransactionID)
	return err
}

func (r *Repository) FindLedgerRecord(ctx context.Context, transactionID string) (*models.LedgerRecord, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		for _, record := range r.Records {
			if record.TransactionID == transactionID {
				return record, nil
			}
		}
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT payment_id, transaction_id FROM paygw.authorizenet WHERE transaction_id=$1`, transactionID)
	var record models.LedgerRecord
	if err := row.Scan(&record.PaymentID, &record.TransactionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// DeleteRecordsForPayments removes ledger records for the given payment ids.
// Called by the host's privacy/data-erasure plumbing; returns the number of
// records removed.
func (r *Repository) DeleteRecordsForPayments(ctx context.Context, paymentIDs []string) (int, error) {
	if len(paymentIDs) == 0 {
		return 0, nil
	}
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		drop := make(map[string]struct{}, len(paymentIDs))
		for _, id := range paymentIDs {
			drop[id] = struct{}{}
		}
		kept := r.Records[:0]
		removed := 0
		for _, record := range r.Records {
			if _, ok := drop[record.PaymentID]; ok {
				delete(r.txIndex, record.TransactionID)
				removed++
				continue
			}
			kept = append(kept, record)
		}
		r.Records = kept
		return removed, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM paygw.authorizenet WHERE payment_id = ANY($1)`, pq.Array(paymentIDs))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Ping returns DB readiness
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code == "23505" {
		return true
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		return true
	}
	return false
}
