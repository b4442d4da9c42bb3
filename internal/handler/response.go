package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"lukechampine.com/uint128"

	"github.com/bullmarketlab/keymarket/internal/domain"
)

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// ParseJSON decodes the request body as JSON into v.
// It validates that the Content-Type header is application/json and
// returns an error for missing/incorrect content type or malformed JSON.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	return nil
}

// mapError maps domain errors to HTTP responses.
func mapError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var fundsErr *domain.InsufficientFundsError
	var overSellErr *domain.CannotSellMoreThanOwnedError

	switch {
	case errors.As(err, &validationErr):
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
	case errors.As(err, &fundsErr):
		WriteError(w, http.StatusPaymentRequired, "insufficient_funds", fundsErr.Error())
	case errors.As(err, &overSellErr):
		WriteError(w, http.StatusConflict, "cannot_sell_more_than_owned", overSellErr.Error())
	case errors.Is(err, domain.ErrIssuerCannotSellLastKey):
		WriteError(w, http.StatusConflict, "issuer_cannot_sell_last_key", err.Error())
	case errors.Is(err, domain.ErrAlreadyInstantiated):
		WriteError(w, http.StatusConflict, "market_already_instantiated", err.Error())
	case errors.Is(err, domain.ErrAccountOwnerNotSet):
		WriteError(w, http.StatusPreconditionFailed, "account_owner_not_set", err.Error())
	case errors.Is(err, domain.ErrOnlyOwnerCanAnswer):
		WriteError(w, http.StatusForbidden, "only_owner_can_answer", err.Error())
	case errors.Is(err, domain.ErrQuestionNotFound):
		WriteError(w, http.StatusNotFound, "question_not_found", err.Error())
	case errors.Is(err, domain.ErrWebhookNotFound):
		WriteError(w, http.StatusNotFound, "webhook_not_found", err.Error())
	case errors.Is(err, domain.ErrOverflow):
		WriteError(w, http.StatusUnprocessableEntity, "arithmetic_overflow", "Amount is too large to price")
	case errors.Is(err, domain.ErrNotInstantiated):
		WriteError(w, http.StatusServiceUnavailable, "market_not_instantiated", "Market has not been instantiated")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// parseAmount parses a non-negative decimal integer of up to 128 bits.
func parseAmount(field, raw string) (uint128.Uint128, error) {
	if raw == "" {
		return uint128.Zero, &domain.ValidationError{Message: field + " is required"}
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok || n.Sign() < 0 || n.BitLen() > 128 {
		return uint128.Zero, &domain.ValidationError{
			Message: field + " must be a non-negative integer string of at most 128 bits",
		}
	}
	v := uint128.FromBig(n)
	return v, nil
}

// parseLimit parses the optional limit query parameter.
func parseLimit(r *http.Request) (*uint32, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, &domain.ValidationError{Message: "limit must be a non-negative integer"}
	}
	limit := uint32(v)
	return &limit, nil
}

// coinInput is a coin attached to a payable request.
type coinInput struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

func parseFunds(in []coinInput) (domain.Funds, error) {
	funds := make(domain.Funds, 0, len(in))
	for _, c := range in {
		amount, err := parseAmount("funds.amount", c.Amount)
		if err != nil {
			return nil, err
		}
		funds = append(funds, domain.Coin{Denom: c.Denom, Amount: amount})
	}
	return funds, nil
}

// txResponse is the JSON response for a committed transition.
type txResponse struct {
	TxID       string              `json:"tx_id"`
	Action     string              `json:"action"`
	Transfers  []transferResponse  `json:"transfers"`
	Attributes []attributeResponse `json:"attributes"`
}

type transferResponse struct {
	To     string `json:"to"`
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

type attributeResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func buildTransferResponses(transfers []domain.Transfer) []transferResponse {
	result := make([]transferResponse, len(transfers))
	for i, tr := range transfers {
		result[i] = transferResponse{
			To:     tr.To.String(),
			Denom:  tr.Coin.Denom,
			Amount: tr.Coin.Amount.String(),
		}
	}
	return result
}

func buildAttributeResponses(attrs []domain.Attribute) []attributeResponse {
	result := make([]attributeResponse, len(attrs))
	for i, a := range attrs {
		result[i] = attributeResponse{Key: a.Key, Value: a.Value}
	}
	return result
}
