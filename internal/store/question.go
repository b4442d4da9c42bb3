package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/bullmarketlab/keymarket/internal/domain"
)

// QuestionStore persists questions. IDs are assigned sequentially from 0.
type QuestionStore interface {
	// Create stores a new unanswered question and returns it with its ID.
	Create(ctx context.Context, asker domain.Address, content string, at time.Time) (domain.Question, error)
	// Get returns domain.ErrQuestionNotFound if no question has the ID.
	Get(ctx context.Context, id uint64) (domain.Question, error)
	// Answer moves an unanswered question to the answered set. It returns
	// domain.ErrQuestionNotFound if the ID is not an unanswered question.
	Answer(ctx context.Context, id uint64, answer string, at time.Time) (domain.Question, error)
	// Count returns the total number of questions ever asked.
	Count(ctx context.Context) (uint64, error)
	// IDs returns up to limit question IDs from the answered or
	// unanswered set in ascending order, strictly after startAfter when
	// it is non-nil.
	IDs(ctx context.Context, answered bool, startAfter *uint64, limit int) ([]uint64, error)
}

func questionLess(a, b domain.Question) bool {
	return a.ID < b.ID
}

// MemoryQuestionStore is a thread-safe in-memory QuestionStore with one
// B-tree per answered state.
type MemoryQuestionStore struct {
	mu         sync.RWMutex
	nextID     uint64
	unanswered *btree.BTreeG[domain.Question]
	answered   *btree.BTreeG[domain.Question]
}

// NewMemoryQuestionStore creates an empty MemoryQuestionStore.
func NewMemoryQuestionStore() *MemoryQuestionStore {
	const degree = 32
	return &MemoryQuestionStore{
		unanswered: btree.NewG[domain.Question](degree, questionLess),
		answered:   btree.NewG[domain.Question](degree, questionLess),
	}
}

func (s *MemoryQuestionStore) Create(_ context.Context, asker domain.Address, content string, at time.Time) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := domain.Question{
		ID:      s.nextID,
		Asker:   asker,
		Content: content,
		AskedAt: at,
	}
	s.unanswered.ReplaceOrInsert(q)
	s.nextID++
	return q, nil
}

func (s *MemoryQuestionStore) Get(_ context.Context, id uint64) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := domain.Question{ID: id}
	if q, ok := s.unanswered.Get(key); ok {
		return q, nil
	}
	if q, ok := s.answered.Get(key); ok {
		return q, nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (s *MemoryQuestionStore) Answer(_ context.Context, id uint64, answer string, at time.Time) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.unanswered.Delete(domain.Question{ID: id})
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	q.Answered = true
	q.Answer = &answer
	q.AnsweredAt = &at
	s.answered.ReplaceOrInsert(q)
	return q, nil
}

func (s *MemoryQuestionStore) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID, nil
}

func (s *MemoryQuestionStore) IDs(_ context.Context, answered bool, startAfter *uint64, limit int) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tree := s.unanswered
	if answered {
		tree = s.answered
	}

	ids := make([]uint64, 0, max(limit, 0))
	if limit <= 0 {
		return ids, nil
	}
	collect := func(q domain.Question) bool {
		ids = append(ids, q.ID)
		return len(ids) < limit
	}
	if startAfter == nil {
		tree.Ascend(collect)
		return ids, nil
	}
	tree.AscendGreaterOrEqual(domain.Question{ID: *startAfter}, func(q domain.Question) bool {
		if q.ID == *startAfter {
			return true
		}
		return collect(q)
	})
	return ids, nil
}
