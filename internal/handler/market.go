package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"lukechampine.com/uint128"

	"github.com/bullmarketlab/keymarket/internal/domain"
	"github.com/bullmarketlab/keymarket/internal/market"
	"github.com/bullmarketlab/keymarket/internal/pricing"
)

// MarketHandler handles HTTP requests for key market endpoints.
type MarketHandler struct {
	market *market.Market
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(m *market.Market) *MarketHandler {
	return &MarketHandler{market: m}
}

// tradeRequest is the JSON request body for POST /market/buy and /market/sell.
type tradeRequest struct {
	Sender string      `json:"sender"`
	Amount string      `json:"amount"`
	Funds  []coinInput `json:"funds"`
}

// issuerResponse is the JSON response for GET /market/issuer.
type issuerResponse struct {
	Username           string `json:"username"`
	FeeDenom           string `json:"fee_denom"`
	IssuerFeeCollector string `json:"issuer_fee_collector"`
	Supply             string `json:"supply"`
}

// costResponse is the JSON response for GET /market/cost/{buy,sell}.
type costResponse struct {
	Price     string `json:"price"`
	IssuerFee string `json:"issuer_fee"`
	TotalCost string `json:"total_cost"`
}

type holdersResponse struct {
	Holders []string `json:"holders"`
}

type holdingResponse struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type tradeFunc func(ctx context.Context, info market.MessageInfo, amount uint128.Uint128) (*market.Response, error)

// BuyKey handles POST /market/buy.
func (h *MarketHandler) BuyKey(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.market.BuyKey)
}

// SellKey handles POST /market/sell.
func (h *MarketHandler) SellKey(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.market.SellKey)
}

func (h *MarketHandler) trade(w http.ResponseWriter, r *http.Request, execute tradeFunc) {
	var req tradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	info, err := parseMessageInfo(req.Sender, req.Funds)
	if err != nil {
		mapError(w, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		mapError(w, err)
		return
	}

	resp, err := execute(r.Context(), info, amount)
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildTxResponse(resp))
}

// Issuer handles GET /market/issuer.
func (h *MarketHandler) Issuer(w http.ResponseWriter, r *http.Request) {
	info, err := h.market.Issuer(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, issuerResponse{
		Username:           info.Username,
		FeeDenom:           info.FeeDenom,
		IssuerFeeCollector: info.IssuerFeeCollector.String(),
		Supply:             info.Supply.String(),
	})
}

// BuyKeyCost handles GET /market/cost/buy?amount=.
func (h *MarketHandler) BuyKeyCost(w http.ResponseWriter, r *http.Request) {
	amount, err := parseAmount("amount", r.URL.Query().Get("amount"))
	if err != nil {
		mapError(w, err)
		return
	}

	quote, err := h.market.BuyKeyCost(r.Context(), amount)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildCostResponse(quote))
}

// SellKeyCost handles GET /market/cost/sell?amount=.
func (h *MarketHandler) SellKeyCost(w http.ResponseWriter, r *http.Request) {
	amount, err := parseAmount("amount", r.URL.Query().Get("amount"))
	if err != nil {
		mapError(w, err)
		return
	}

	quote, err := h.market.SellKeyCost(r.Context(), amount)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildCostResponse(quote))
}

// Holders handles GET /market/holders?limit=&start_after=.
func (h *MarketHandler) Holders(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		mapError(w, err)
		return
	}

	holders, err := h.market.Holders(r.Context(), limit, r.URL.Query().Get("start_after"))
	if err != nil {
		mapError(w, err)
		return
	}

	resp := holdersResponse{Holders: make([]string, len(holders))}
	for i, addr := range holders {
		resp.Holders[i] = addr.String()
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Holding handles GET /market/holders/{address}.
func (h *MarketHandler) Holding(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	amount, err := h.market.Holding(r.Context(), address)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, holdingResponse{Address: address, Amount: amount.String()})
}

func parseMessageInfo(sender string, funds []coinInput) (market.MessageInfo, error) {
	addr, err := domain.ParseAddress(sender)
	if err != nil {
		return market.MessageInfo{}, err
	}
	coins, err := parseFunds(funds)
	if err != nil {
		return market.MessageInfo{}, err
	}
	return market.MessageInfo{Sender: addr, Funds: coins}, nil
}

func buildCostResponse(q pricing.Quote) costResponse {
	return costResponse{
		Price:     q.Price.String(),
		IssuerFee: q.IssuerFee.String(),
		TotalCost: q.TotalCost.String(),
	}
}

func buildTxResponse(resp *market.Response) txResponse {
	return txResponse{
		TxID:       resp.TxID,
		Action:     resp.Action,
		Transfers:  buildTransferResponses(resp.Transfers),
		Attributes: buildAttributeResponses(resp.Attributes),
	}
}
