package authorizenet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func testCredentials() Credentials {
	return Credentials{
		APILoginID:     "login",
		TransactionKey: "key",
		Environment:    EnvironmentSandbox,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := New(testCredentials(), nil)
	client.Base = srv.URL
	return client
}

func respondWith(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func token() OpaqueToken {
	return OpaqueToken{DataDescriptor: "COMMON.ACCEPT.INAPP.PAYMENT", DataValue: "tok_123"}
}

const approvedBody = `{
  "messages": {"resultCode": "Ok"},
  "transactionResponse": {
    "responseCode": "1",
    "transId": "60123",
    "messages": [{"code": "1", "description": "This transaction has been approved."}]
  }
}`

func TestCreateTransaction_Approved(t *testing.T) {
	client := newTestClient(t, respondWith(approvedBody))

	result := client.CreateTransaction(context.Background(), "10.00", "refabc", token())

	require.Equal(t, ChargeApproved, result.Status)
	require.Equal(t, "60123", result.TransactionID)
	require.Equal(t, "This transaction has been approved.", result.StatusText)
}

func TestCreateTransaction_ApprovedDefaultStatusText(t *testing.T) {
	body := `{"messages":{"resultCode":"Ok"},"transactionResponse":{"responseCode":"1","transId":"60124"}}`
	client := newTestClient(t, respondWith(body))

	result := client.CreateTransaction(context.Background(), "10.00", "refabc", token())

	require.True(t, result.Approved())
	require.Equal(t, "Approved", result.StatusText)
}

func TestCreateTransaction_SendsAuthCaptureRequest(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(approvedBody))
	})

	client.CreateTransaction(context.Background(), "10.00", "refabc", token())

	req := got["createTransactionRequest"].(map[string]any)
	auth := req["merchantAuthentication"].(map[string]any)
	require.Equal(t, "login", auth["name"])
	require.Equal(t, "key", auth["transactionKey"])
	require.Equal(t, "refabc", req["refId"])

	tr := req["transactionRequest"].(map[string]any)
	require.Equal(t, "authCaptureTransaction", tr["transactionType"])
	require.Equal(t, "10.00", tr["amount"])
	opaque := tr["payment"].(map[string]any)["opaqueData"].(map[string]any)
	require.Equal(t, "COMMON.ACCEPT.INAPP.PAYMENT", opaque["dataDescriptor"])
	require.Equal(t, "tok_123", opaque["dataValue"])
}

func TestCreateTransaction_ResultCodeNotOkIsDeclined(t *testing.T) {
	t.Run("with message text", func(t *testing.T) {
		body := `{"messages":{"resultCode":"Error","message":[{"code":"E00007","text":"Invalid API credentials"}]}}`
		client := newTestClient(t, respondWith(body))

		result := client.CreateTransaction(context.Background(), "10.00", "refabc", token())

		require.Equal(t, ChargeDeclined, result.Status)
		require.Equal(t, "Invalid API credentials", result.Reason)
	})

	t.Run("without message text", func(t *testing.T) {
		body := `{"messages":{"resultCode":"Error"}}`
		client := newTestClient(t, respondWith(body))

		result := client.CreateTransaction(context.Background(), "10.00", "refabc", token())

		require.Equal(t, ChargeDeclined, result.Status)
		require.Equal(t, "unknown error", result.Reason)
	})

	t.Run("nested approval cannot override", func(t *testing.T) {
		body := `{"messages":{"resultCode":"Error","message":[{"text":"bad auth"}]},"transactionResponse":{"responseCode":"1","transId":"999"}}`
		client := newTestClient(t, respondWith(body))

		result := client.CreateTransaction(context.Background(), "10.00", "refabc", token())

		require.Equal(t, ChargeDeclined, result.Status)
		require.Empty(t, result.TransactionID)
	})
}

func TestCreateTransaction_NestedDecline(t *testing.T) {
	t.Run("with error text", func(t *testing.T) {
		body := `{"messages":{"resultCode":"Ok"},"transactionResponse":{"responseCode":"2","errors":[{"errorCode":"2","errorText":"Declined by issuer"}]}}`
		client := newTestClient(t, respondWith(body))

		result := client.CreateTransaction(context.Background(), "10.00", "refabc", token())

		require.Equal(t, ChargeDeclined, result.Status)
		require.Equal(t, "Declined by issuer", result.Reason)
	})

	t.Run("without error text", func(t *testing.T) {
		body := `{"messages":{"resultCode":"Ok"},"transactionResponse":{"responseCode":"2"}}`
		client := newTestClient(t, respondWith(body))

		result := client.CreateTransaction(context.Background(), "10.00", "refabc", token())

		require.Equal(t, ChargeDeclined, result.Status)
		require.Equal(t, "Transaction Failed", result.Reason)
	})

	t.Run("missing transactionResponse", func(t *testing.T) {
		body := `{"messages":{"resultCode":"Ok"}}`
		client := newTestClient(t, respondWith(body))

		result := client.CreateTransaction(context.Background(), "10.00", "refabc", token())

		require.Equal(t, ChargeDeclined, result.Status)
		require.Equal(t, "Transaction Failed", result.Reason)
	})
}

func TestCreateTransaction_EmptyBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	result := client.CreateTransaction(context.Background(), "10.00", "refabc", token())

	require.Equal(t, ChargeTransportFailure, result.Status)
	require.Equal(t, "No response from Authorize.Net", result.Reason)
}

func TestCreateTransaction_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(respondWith(approvedBody))
	client := New(testCredentials(), nil)
	client.Base = srv.URL
	srv.Close()

	result := client.CreateTransaction(context.Background(), "10.00", "refabc", token())

	require.Equal(t, ChargeTransportFailure, result.Status)
	require.Equal(t, "No response from Authorize.Net", result.Reason)
}

func TestCreateTransaction_MalformedJSON(t *testing.T) {
	client := newTestClient(t, respondWith(`<html>gateway error</html>`))

	result := client.CreateTransaction(context.Background(), "10.00", "refabc", token())

	require.Equal(t, ChargeTransportFailure, result.Status)
	require.Equal(t, "Invalid response from Authorize.Net", result.Reason)
}

func TestCreateTransaction_StripsByteOrderMark(t *testing.T) {
	client := newTestClient(t, respondWith("\xEF\xBB\xBF"+approvedBody))

	result := client.CreateTransaction(context.Background(), "10.00", "refabc", token())

	require.True(t, result.Approved())
	require.Equal(t, "60123", result.TransactionID)
}

func TestClassifyCharge_Deterministic(t *testing.T) {
	bodies := [][]byte{
		[]byte(approvedBody),
		[]byte(`{"messages":{"resultCode":"Error","message":[{"text":"no"}]}}`),
		[]byte(`not json`),
	}
	for _, body := range bodies {
		require.Equal(t, classifyCharge(body), classifyCharge(body))
	}
}

func TestGetMerchantCurrency(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		body := `{"messages":{"resultCode":"Ok"},"currencies":["USD"]}`
		client := newTestClient(t, respondWith("\xEF\xBB\xBF"+body))

		currency, err := client.GetMerchantCurrency(context.Background())

		require.NoError(t, err)
		require.Equal(t, "USD", currency)
	})

	t.Run("error result", func(t *testing.T) {
		body := `{"messages":{"resultCode":"Error","message":[{"text":"Invalid API credentials"}]}}`
		client := newTestClient(t, respondWith(body))

		_, err := client.GetMerchantCurrency(context.Background())

		require.ErrorContains(t, err, "Invalid API credentials")
	})

	t.Run("no response", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

		_, err := client.GetMerchantCurrency(context.Background())

		require.ErrorContains(t, err, "No response")
	})

	t.Run("no currencies", func(t *testing.T) {
		client := newTestClient(t, respondWith(`{"messages":{"resultCode":"Ok"},"currencies":[]}`))

		_, err := client.GetMerchantCurrency(context.Background())

		require.Error(t, err)
	})
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "10.00", FormatAmount(1000))
	require.Equal(t, "0.05", FormatAmount(5))
	require.Equal(t, "123.45", FormatAmount(12345))
}

func TestEnvironmentEndpoints(t *testing.T) {
	require.Contains(t, EnvironmentSandbox.APIEndpoint(), "apitest")
	require.NotContains(t, EnvironmentLive.APIEndpoint(), "apitest")
	require.Contains(t, EnvironmentSandbox.AcceptScriptURL(), "jstest")
	require.NotContains(t, EnvironmentLive.AcceptScriptURL(), "jstest")

	_, err := ParseEnvironment("staging")
	require.Error(t, err)
}
