package gateway

import (
	"context"
	"testing"

	"github.com/dualcube/paygw-authorizenet/gateway/models"
	"github.com/stretchr/testify/require"
)

func TestRepository_LedgerRecordIdempotentByTransactionID(t *testing.T) {
	repo := NewRepository()

	record := &models.LedgerRecord{PaymentID: "p1", TransactionID: "60123"}
	require.NoError(t, repo.CreateLedgerRecord(context.Background(), record))
	require.NoError(t, repo.CreateLedgerRecord(context.Background(), record))
	require.NoError(t, repo.CreateLedgerRecord(context.Background(), &models.LedgerRecord{PaymentID: "p2", TransactionID: "60123"}))

	require.Len(t, repo.Records, 1)

	found, err := repo.FindLedgerRecord(context.Background(), "60123")
	require.NoError(t, err)
	require.Equal(t, "p1", found.PaymentID)
}

func TestRepository_FindLedgerRecordNotFound(t *testing.T) {
	repo := NewRepository()

	_, err := repo.FindLedgerRecord(context.Background(), "missing")

	require.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_DeleteRecordsForPayments(t *testing.T) {
	repo := NewRepository()
	require.NoError(t, repo.CreateLedgerRecord(context.Background(), &models.LedgerRecord{PaymentID: "p1", TransactionID: "t1"}))
	require.NoError(t, repo.CreateLedgerRecord(context.Background(), &models.LedgerRecord{PaymentID: "p2", TransactionID: "t2"}))
	require.NoError(t, repo.CreateLedgerRecord(context.Background(), &models.LedgerRecord{PaymentID: "p3", TransactionID: "t3"}))

	removed, err := repo.DeleteRecordsForPayments(context.Background(), []string{"p1", "p3"})
	require.NoError(t, err)
	require.Equal(t, 2, removed)
	require.Len(t, repo.Records, 1)

	_, err = repo.FindLedgerRecord(context.Background(), "t1")
	require.ErrorIs(t, err, ErrNotFound)

	// the freed transaction id can be recorded again
	require.NoError(t, repo.CreateLedgerRecord(context.Background(), &models.LedgerRecord{PaymentID: "p9", TransactionID: "t1"}))
	require.Len(t, repo.Records, 2)
}

func TestRepository_DeleteRecordsForPaymentsEmpty(t *testing.T) {
	repo := NewRepository()

	removed, err := repo.DeleteRecordsForPayments(context.Background(), nil)

	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestGatewayAccount_Enabled(t *testing.T) {
	account := models.GatewayAccount{
		APILoginID:      "login",
		TransactionKey:  "key",
		PublicClientKey: "pubkey",
	}
	require.True(t, account.Enabled())

	for _, mutate := range []func(*models.GatewayAccount){
		func(a *models.GatewayAccount) { a.APILoginID = "" },
		func(a *models.GatewayAccount) { a.TransactionKey = "" },
		func(a *models.GatewayAccount) { a.PublicClientKey = "" },
	} {
		broken := account
		mutate(&broken)
		require.False(t, broken.Enabled())
	}
}
