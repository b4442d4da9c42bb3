package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bullmarketlab/keymarket/internal/domain"
)

// SQLiteQuestionStore is a QuestionStore persisted in SQLite.
type SQLiteQuestionStore struct {
	db *sql.DB
}

// NewSQLiteQuestionStore creates a question store over a database opened
// with OpenSQLite.
func NewSQLiteQuestionStore(db *sql.DB) *SQLiteQuestionStore {
	return &SQLiteQuestionStore{db: db}
}

func (s *SQLiteQuestionStore) Create(ctx context.Context, asker domain.Address, content string, at time.Time) (domain.Question, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Question{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	id, err := nextQuestionID(ctx, tx)
	if err != nil {
		return domain.Question{}, err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO questions (id, asker, content, answered, asked_at) VALUES (?, ?, ?, 0, ?)",
		int64(id), asker.String(), content, at.UnixNano(),
	); err != nil {
		return domain.Question{}, fmt.Errorf("insert question: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO question_seq (id, next) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET next = excluded.next`,
		int64(id+1),
	); err != nil {
		return domain.Question{}, fmt.Errorf("advance question id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Question{}, fmt.Errorf("commit tx: %w", err)
	}

	return domain.Question{ID: id, Asker: asker, Content: content, AskedAt: at}, nil
}

func nextQuestionID(ctx context.Context, q querier) (uint64, error) {
	var next int64
	err := q.QueryRowContext(ctx, "SELECT next FROM question_seq WHERE id = 1").Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load question id: %w", err)
	}
	return uint64(next), nil
}

func (s *SQLiteQuestionStore) Get(ctx context.Context, id uint64) (domain.Question, error) {
	return getQuestion(ctx, s.db, id)
}

func getQuestion(ctx context.Context, q querier, id uint64) (domain.Question, error) {
	var (
		question   domain.Question
		asker      string
		answered   int
		answer     sql.NullString
		askedAt    int64
		answeredAt sql.NullInt64
	)
	err := q.QueryRowContext(ctx,
		"SELECT id, asker, content, answered, answer, asked_at, answered_at FROM questions WHERE id = ?",
		int64(id),
	).Scan(&question.ID, &asker, &question.Content, &answered, &answer, &askedAt, &answeredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}

	question.Asker = domain.Address(asker)
	question.Answered = answered != 0
	question.AskedAt = time.Unix(0, askedAt).UTC()
	if answer.Valid {
		question.Answer = &answer.String
	}
	if answeredAt.Valid {
		t := time.Unix(0, answeredAt.Int64).UTC()
		question.AnsweredAt = &t
	}
	return question, nil
}

func (s *SQLiteQuestionStore) Answer(ctx context.Context, id uint64, answer string, at time.Time) (domain.Question, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Question{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx,
		"UPDATE questions SET answered = 1, answer = ?, answered_at = ? WHERE id = ? AND answered = 0",
		answer, at.UnixNano(), int64(id),
	)
	if err != nil {
		return domain.Question{}, fmt.Errorf("answer question: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Question{}, fmt.Errorf("answer question: %w", err)
	}
	if n == 0 {
		return domain.Question{}, domain.ErrQuestionNotFound
	}

	q, err := getQuestion(ctx, tx, id)
	if err != nil {
		return domain.Question{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Question{}, fmt.Errorf("commit tx: %w", err)
	}
	return q, nil
}

func (s *SQLiteQuestionStore) Count(ctx context.Context) (uint64, error) {
	return nextQuestionID(ctx, s.db)
}

func (s *SQLiteQuestionStore) IDs(ctx context.Context, answered bool, startAfter *uint64, limit int) ([]uint64, error) {
	ids := make([]uint64, 0, max(limit, 0))
	if limit <= 0 {
		return ids, nil
	}

	answeredFlag := 0
	if answered {
		answeredFlag = 1
	}
	after := int64(-1)
	if startAfter != nil {
		after = int64(*startAfter)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM questions WHERE answered = ? AND id > ? ORDER BY id ASC LIMIT ?",
		answeredFlag, after, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan question id: %w", err)
		}
		ids = append(ids, uint64(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return ids, nil
}
