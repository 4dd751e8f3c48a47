package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"salesapi/models"
	"salesapi/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	svc    service.Service
	auth   service.Authenticator
	logger *zap.Logger
}

func NewHandler(svc service.Service, auth service.Authenticator, logger *zap.Logger) Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Handler{
		svc:    svc,
		auth:   auth,
		logger: logger,
	}
}

type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
}

// SaleRequest is the body of create and update. Amount may be sent as a JSON
// number or a numeric string.
type SaleRequest struct {
	Date   *string     `json:"date"`
	Amount *FlexAmount `json:"amount"`
}

type FlexAmount float64

func (a *FlexAmount) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*a = FlexAmount(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.New("amount must be a number")
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return errors.New("amount must be a number")
	}
	*a = FlexAmount(n)
	return nil
}

func (r SaleRequest) input() service.SaleInput {
	in := service.SaleInput{Date: r.Date}
	if r.Amount != nil {
		amount := float64(*r.Amount)
		in.Amount = &amount
	}
	return in
}

type SaleResponse struct {
	ID     int     `json:"id"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type MessageResponse struct {
	Message string `json:"message"`
	ID      int    `json:"id,omitempty"`
}

type PredictResponse struct {
	PredictedNextSale float64 `json:"predicted_next_sale"`
	PlotURL           string  `json:"plot_url"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func (h Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, AuthResponse{Token: token})
}

func (h Handler) ListSalesHandler(w http.ResponseWriter, r *http.Request) {
	sales, err := h.svc.ListSales(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	resp := make([]SaleResponse, 0, len(sales))
	for _, s := range sales {
		resp = append(resp, toSaleResponse(s))
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h Handler) CreateSaleHandler(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sale, err := h.svc.CreateSale(r.Context(), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, MessageResponse{Message: "Sale created", ID: sale.ID})
}

func (h Handler) UpdateSaleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := saleID(w, r)
	if !ok {
		return
	}
	var req SaleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := h.svc.UpdateSale(r.Context(), id, req.input()); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Sale updated"})
}

func (h Handler) DeleteSaleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := saleID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteSale(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Sale deleted"})
}

func (h Handler) PredictHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Predict(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, PredictResponse{
		PredictedNextSale: p.NextAmount,
		PlotURL:           base64.StdEncoding.EncodeToString(p.Chart),
	})
}

func (h Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// JWTMiddleware rejects the request with 401 unless it carries a valid bearer
// token. It runs before any handler logic.
func (h Handler) JWTMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Token missing")
			return
		}

		scheme, tokenStr, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenStr) == "" {
			respondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		claims, err := h.auth.Verify(strings.TrimSpace(tokenStr))
		if err != nil {
			h.logger.Debug("rejected token",
				zap.String("request_id", RequestIDFromContext(r.Context())),
				zap.Error(err),
			)
			respondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		h.logger.Debug("authenticated",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("user", claims.User),
		)
		next(w, r)
	}
}

func (h Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrBadRequest):
		respondWithError(w, http.StatusBadRequest, service.PublicMessage(err, "Bad request"))
	case errors.Is(err, service.ErrUnauthorized):
		respondWithError(w, http.StatusUnauthorized, service.PublicMessage(err, "Unauthorized"))
	case errors.Is(err, service.ErrNotFound):
		respondWithError(w, http.StatusNotFound, service.PublicMessage(err, "Not found"))
	default:
		h.logger.Error("request failed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondWithError(w, http.StatusInternalServerError, service.PublicMessage(err, "Internal server error"))
	}
}

func saleID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid sale id")
		return 0, false
	}
	return id, true
}

func toSaleResponse(s models.Sale) SaleResponse {
	return SaleResponse{ID: s.ID, Date: s.DateString(), Amount: s.Amount}
}

// decodeJSON treats an empty body as an empty object.
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.Unmarshal(body, dst)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Message: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
