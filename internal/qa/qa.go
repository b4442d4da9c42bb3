// Package qa lets anyone ask the market's issuer a question for the price
// of one key, and lets the issuer answer it.
package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"lukechampine.com/uint128"

	"github.com/bullmarketlab/keymarket/internal/account"
	"github.com/bullmarketlab/keymarket/internal/domain"
	"github.com/bullmarketlab/keymarket/internal/market"
	"github.com/bullmarketlab/keymarket/internal/pricing"
	"github.com/bullmarketlab/keymarket/internal/store"
)

// KeyMarket is the part of the key market that prices questions.
type KeyMarket interface {
	Issuer(ctx context.Context) (market.IssuerInfo, error)
	BuyKeyCost(ctx context.Context, amount uint128.Uint128) (pricing.Quote, error)
}

// AskCost is the price of asking one question.
type AskCost struct {
	FeeDenom        string
	Cost            uint128.Uint128
	AskFeeCollector domain.Address
}

// Service is the question and answer ledger of a single issuer.
type Service struct {
	mu        sync.Mutex
	questions store.QuestionStore
	market    KeyMarket
	owners    account.IssuerResolver
	sink      market.EventSink
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a Service. sink may be nil.
func NewService(
	questions store.QuestionStore,
	keyMarket KeyMarket,
	owners account.IssuerResolver,
	sink market.EventSink,
	logger *slog.Logger,
) *Service {
	return &Service{
		questions: questions,
		market:    keyMarket,
		owners:    owners,
		sink:      sink,
		logger:    logger,
		now:       time.Now,
	}
}

// Ask stores a new unanswered question. The sender must pay the current
// cost of buying one key; the cost goes to the issuer fee collector and
// any excess is kept.
func (s *Service) Ask(ctx context.Context, info market.MessageInfo, content string) (*market.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cost, err := s.AskCost(ctx)
	if err != nil {
		return nil, err
	}
	paid, err := domain.MustPay(info.Funds, cost.FeeDenom)
	if err != nil {
		return nil, err
	}
	if cost.Cost.Cmp(paid) > 0 {
		return nil, &domain.InsufficientFundsError{Required: cost.Cost, Paid: paid}
	}

	q, err := s.questions.Create(ctx, info.Sender, content, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}

	resp := &market.Response{
		TxID:   uuid.New().String(),
		Action: "ask",
		Transfers: []domain.Transfer{
			{To: cost.AskFeeCollector, Coin: domain.Coin{Denom: cost.FeeDenom, Amount: cost.Cost}},
		},
		Attributes: []domain.Attribute{
			{Key: "action", Value: "ask"},
			{Key: "asker", Value: info.Sender.String()},
			{Key: "question_id", Value: strconv.FormatUint(q.ID, 10)},
			{Key: "question_content", Value: content},
			{Key: "cost", Value: cost.Cost.String()},
			{Key: "fee_denom", Value: cost.FeeDenom},
			{Key: "ask_fee_collector", Value: cost.AskFeeCollector.String()},
		},
	}

	s.logger.Info("question asked",
		"tx_id", resp.TxID,
		"question_id", q.ID,
		"asker", info.Sender,
		"cost", cost.Cost.String(),
	)
	s.publish(ctx, domain.EventQuestionAsked, resp)
	return resp, nil
}

// Answer records the issuer's answer to an unanswered question.
func (s *Service) Answer(ctx context.Context, info market.MessageInfo, id uint64, content string) (*market.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := domain.Nonpayable(info.Funds); err != nil {
		return nil, err
	}
	owner, err := s.owners.ResolveIssuer(ctx)
	if err != nil {
		return nil, err
	}
	if info.Sender != owner {
		return nil, domain.ErrOnlyOwnerCanAnswer
	}

	q, err := s.questions.Answer(ctx, id, content, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("question_id %d: %w", id, err)
	}

	resp := &market.Response{
		TxID:   uuid.New().String(),
		Action: "answer",
		Attributes: []domain.Attribute{
			{Key: "action", Value: "answer"},
			{Key: "asker", Value: q.Asker.String()},
			{Key: "question_id", Value: strconv.FormatUint(q.ID, 10)},
			{Key: "answer_content", Value: content},
		},
	}

	s.logger.Info("question answered", "tx_id", resp.TxID, "question_id", q.ID)
	s.publish(ctx, domain.EventQuestionAnswered, resp)
	return resp, nil
}

// AskCost returns the current price of a question: the total cost of
// buying one key.
func (s *Service) AskCost(ctx context.Context) (AskCost, error) {
	issuer, err := s.market.Issuer(ctx)
	if err != nil {
		return AskCost{}, err
	}
	quote, err := s.market.BuyKeyCost(ctx, uint128.From64(1))
	if err != nil {
		return AskCost{}, err
	}
	return AskCost{
		FeeDenom:        issuer.FeeDenom,
		Cost:            quote.TotalCost,
		AskFeeCollector: issuer.IssuerFeeCollector,
	}, nil
}

// Stats returns the number of questions ever asked.
func (s *Service) Stats(ctx context.Context) (uint64, error) {
	return s.questions.Count(ctx)
}

func (s *Service) AnsweredQuestions(ctx context.Context, limit *uint32, startAfter *uint64) ([]uint64, error) {
	return s.questions.IDs(ctx, true, startAfter, market.PageLimit(limit))
}

func (s *Service) UnansweredQuestions(ctx context.Context, limit *uint32, startAfter *uint64) ([]uint64, error) {
	return s.questions.IDs(ctx, false, startAfter, market.PageLimit(limit))
}

func (s *Service) Question(ctx context.Context, id uint64) (domain.Question, error) {
	return s.questions.Get(ctx, id)
}

func (s *Service) publish(ctx context.Context, eventType string, resp *market.Response) {
	if s.sink == nil {
		return
	}
	s.sink.Publish(ctx, domain.Event{
		TxID:       resp.TxID,
		Type:       eventType,
		Attributes: resp.Attributes,
		Transfers:  resp.Transfers,
		Timestamp:  s.now().UTC(),
	})
}
