package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lukechampine.com/uint128"

	"github.com/bullmarketlab/keymarket/internal/domain"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, http.StatusBadRequest, "invalid_request", "missing required field")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want %q", got, "application/json")
	}

	var resp errorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Error != "invalid_request" || resp.Message != "missing required field" {
		t.Errorf("got %+v", resp)
	}
}

func TestParseJSON_RejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"sender":"x","extra":1}`))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")

	var req tradeRequest
	err := ParseJSON(r, &req)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "Content-Type") {
		t.Errorf("error = %q, should mention Content-Type", err.Error())
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{&domain.ValidationError{Message: "bad"}, http.StatusBadRequest, "validation_error"},
		{&domain.InsufficientFundsError{Required: uint128.From64(2), Paid: uint128.From64(1)}, http.StatusPaymentRequired, "insufficient_funds"},
		{&domain.CannotSellMoreThanOwnedError{Owned: uint128.From64(1), ToSell: uint128.From64(2)}, http.StatusConflict, "cannot_sell_more_than_owned"},
		{domain.ErrIssuerCannotSellLastKey, http.StatusConflict, "issuer_cannot_sell_last_key"},
		{domain.ErrAlreadyInstantiated, http.StatusConflict, "market_already_instantiated"},
		{domain.ErrAccountOwnerNotSet, http.StatusPreconditionFailed, "account_owner_not_set"},
		{domain.ErrOnlyOwnerCanAnswer, http.StatusForbidden, "only_owner_can_answer"},
		{fmt.Errorf("question_id 3: %w", domain.ErrQuestionNotFound), http.StatusNotFound, "question_not_found"},
		{domain.ErrWebhookNotFound, http.StatusNotFound, "webhook_not_found"},
		{domain.ErrOverflow, http.StatusUnprocessableEntity, "arithmetic_overflow"},
		{domain.ErrNotInstantiated, http.StatusServiceUnavailable, "market_not_instantiated"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			w := httptest.NewRecorder()
			mapError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp errorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if resp.Error != tt.wantCode {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"0", "0", false},
		{"252656", "252656", false},
		{"340282366920938463463374607431768211455", "340282366920938463463374607431768211455", false},
		{"340282366920938463463374607431768211456", "", true},
		{"", "", true},
		{"-1", "", true},
		{"1.5", "", true},
		{"ten", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseAmount("amount", tt.raw)
			if tt.wantErr {
				var ve *domain.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("parseAmount(%q) = %v, want ValidationError", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAmount(%q) unexpected error: %v", tt.raw, err)
			}
			if got.String() != tt.want {
				t.Errorf("parseAmount(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=5", nil)
	limit, err := parseLimit(r)
	if err != nil || limit == nil || *limit != 5 {
		t.Errorf("parseLimit(5) = (%v, %v)", limit, err)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	if limit, err := parseLimit(r); err != nil || limit != nil {
		t.Errorf("parseLimit() without param = (%v, %v), want nil", limit, err)
	}

	r = httptest.NewRequest(http.MethodGet, "/?limit=-3", nil)
	if _, err := parseLimit(r); err == nil {
		t.Error("parseLimit(-3) should fail")
	}
}
