package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dualcube/paygw-authorizenet/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// API is the RPC surface consumed by the browser-side handshake controller.
// Every route requires an authenticated session (wired by the App).
type API struct {
	service *Service
}

func NewAPI(service *Service) *API {
	return &API{
		service: service,
	}
}

func (a *API) AppendRoutes(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		r.Get("/config", a.getConfigForJS)
		r.Get("/merchant-currency", a.getMerchantCurrency)
		r.Post("/process", a.processPayment)
	})
}

func payableContext(r *http.Request) (component, paymentArea string, itemID int64) {
	component = r.URL.Query().Get("component")
	paymentArea = r.URL.Query().Get("paymentarea")
	itemID, _ = strconv.ParseInt(r.URL.Query().Get("itemid"), 10, 64)
	return component, paymentArea, itemID
}

func (a *API) getConfigForJS(w http.ResponseWriter, r *http.Request) {
	component, paymentArea, itemID := payableContext(r)

	config, err := a.service.ClientConfig(r.Context(), component, paymentArea, itemID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(config)
}

func (a *API) getMerchantCurrency(w http.ResponseWriter, r *http.Request) {
	component, paymentArea, itemID := payableContext(r)

	result := a.service.MerchantCurrency(r.Context(), component, paymentArea, itemID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

func (a *API) processPayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Component   string `json:"component"`
		PaymentArea string `json:"paymentarea"`
		ItemID      int64  `json:"itemid"`
		OpaqueData  string `json:"opaquedata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := a.service.ProcessPayment(r.Context(), ProcessPaymentRequest{
		Component:   body.Component,
		PaymentArea: body.PaymentArea,
		ItemID:      body.ItemID,
		UserID:      middleware.UserID(r.Context()),
		OpaqueData:  body.OpaqueData,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}
