package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bullmarketlab/keymarket/internal/domain"
	"github.com/bullmarketlab/keymarket/internal/qa"
)

// QAHandler handles HTTP requests for question and answer endpoints.
type QAHandler struct {
	qaSvc *qa.Service
}

// NewQAHandler creates a new QAHandler.
func NewQAHandler(qaSvc *qa.Service) *QAHandler {
	return &QAHandler{qaSvc: qaSvc}
}

// postContentRequest is the JSON request body for asking and answering.
type postContentRequest struct {
	Sender  string      `json:"sender"`
	Content string      `json:"content"`
	Funds   []coinInput `json:"funds"`
}

type statsResponse struct {
	TotalQuestionCount uint64 `json:"total_question_count"`
}

type askCostResponse struct {
	FeeDenom        string `json:"fee_denom"`
	Cost            string `json:"cost"`
	AskFeeCollector string `json:"ask_fee_collector"`
}

type questionIDsResponse struct {
	QuestionIDs []uint64 `json:"question_ids"`
}

type questionResponse struct {
	ID              uint64  `json:"id"`
	Asker           string  `json:"asker"`
	QuestionContent string  `json:"question_content"`
	Answered        bool    `json:"answered"`
	AnswerContent   *string `json:"answer_content"`
	AskedAt         string  `json:"asked_at"`
	AnsweredAt      *string `json:"answered_at"`
}

// Ask handles POST /qa/questions.
func (h *QAHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req postContentRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	info, err := parseMessageInfo(req.Sender, req.Funds)
	if err != nil {
		mapError(w, err)
		return
	}

	resp, err := h.qaSvc.Ask(r.Context(), info, req.Content)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildTxResponse(resp))
}

// Answer handles POST /qa/questions/{question_id}/answer.
func (h *QAHandler) Answer(w http.ResponseWriter, r *http.Request) {
	id, ok := questionIDParam(w, r)
	if !ok {
		return
	}

	var req postContentRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	info, err := parseMessageInfo(req.Sender, req.Funds)
	if err != nil {
		mapError(w, err)
		return
	}

	resp, err := h.qaSvc.Answer(r.Context(), info, id, req.Content)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildTxResponse(resp))
}

// Stats handles GET /qa/stats.
func (h *QAHandler) Stats(w http.ResponseWriter, r *http.Request) {
	count, err := h.qaSvc.Stats(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, statsResponse{TotalQuestionCount: count})
}

// AskCost handles GET /qa/cost.
func (h *QAHandler) AskCost(w http.ResponseWriter, r *http.Request) {
	cost, err := h.qaSvc.AskCost(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, askCostResponse{
		FeeDenom:        cost.FeeDenom,
		Cost:            cost.Cost.String(),
		AskFeeCollector: cost.AskFeeCollector.String(),
	})
}

// ListQuestions handles GET /qa/questions?answered=&limit=&start_after=.
// Unanswered questions are listed unless answered=true.
func (h *QAHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	answered := false
	if a := q.Get("answered"); a != "" {
		var err error
		answered, err = strconv.ParseBool(a)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "answered must be true or false")
			return
		}
	}

	limit, err := parseLimit(r)
	if err != nil {
		mapError(w, err)
		return
	}

	var startAfter *uint64
	if s := q.Get("start_after"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "start_after must be a question id")
			return
		}
		startAfter = &v
	}

	var ids []uint64
	if answered {
		ids, err = h.qaSvc.AnsweredQuestions(r.Context(), limit, startAfter)
	} else {
		ids, err = h.qaSvc.UnansweredQuestions(r.Context(), limit, startAfter)
	}
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, questionIDsResponse{QuestionIDs: ids})
}

// GetQuestion handles GET /qa/questions/{question_id}.
func (h *QAHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := questionIDParam(w, r)
	if !ok {
		return
	}

	question, err := h.qaSvc.Question(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildQuestionResponse(question))
}

func questionIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "question_id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "question_id must be a non-negative integer")
		return 0, false
	}
	return id, true
}

func buildQuestionResponse(q domain.Question) questionResponse {
	resp := questionResponse{
		ID:              q.ID,
		Asker:           q.Asker.String(),
		QuestionContent: q.Content,
		Answered:        q.Answered,
		AnswerContent:   q.Answer,
		AskedAt:         q.AskedAt.UTC().Format(time.RFC3339),
	}
	if q.AnsweredAt != nil {
		at := q.AnsweredAt.UTC().Format(time.RFC3339)
		resp.AnsweredAt = &at
	}
	return resp
}
