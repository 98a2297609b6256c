package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nishuastic/tech-europe/pkg/core/bridge"
)

// PostgresStore persists sessions in Postgres with upsert-by-id
// semantics. The transcript is stored as a JSONB document.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a session store to the given database.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

const upsertSessionSQL = `
INSERT INTO call_sessions (
	call_id, target, target_number, user_question, phase, transcript,
	telephony_call_sid, stream_sid, agent_conversation_id, error, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (call_id) DO UPDATE SET
	target = EXCLUDED.target,
	target_number = EXCLUDED.target_number,
	user_question = EXCLUDED.user_question,
	phase = EXCLUDED.phase,
	transcript = EXCLUDED.transcript,
	telephony_call_sid = EXCLUDED.telephony_call_sid,
	stream_sid = EXCLUDED.stream_sid,
	agent_conversation_id = EXCLUDED.agent_conversation_id,
	error = EXCLUDED.error`

func (p *PostgresStore) UpsertSession(ctx context.Context, s *bridge.CallSession) error {
	transcript, err := json.Marshal(s.Transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	_, err = p.pool.Exec(ctx, upsertSessionSQL,
		s.CallID, s.Target, s.TargetNumber, s.UserQuestion, string(s.Phase), transcript,
		s.TelephonyCallSID, s.StreamSID, s.AgentConversationID, s.Error, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

const selectSessionSQL = `
SELECT call_id, target, target_number, user_question, phase, transcript,
	telephony_call_sid, stream_sid, agent_conversation_id, error, created_at
FROM call_sessions`

func (p *PostgresStore) GetSession(ctx context.Context, callID string) (*bridge.CallSession, error) {
	row := p.pool.QueryRow(ctx, selectSessionSQL+" WHERE call_id = $1", callID)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (p *PostgresStore) ListSessions(ctx context.Context) ([]*bridge.CallSession, error) {
	rows, err := p.pool.Query(ctx, selectSessionSQL+" ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*bridge.CallSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

func (p *PostgresStore) Close() {
	p.pool.Close()
}

func scanSession(row pgx.Row) (*bridge.CallSession, error) {
	var s bridge.CallSession
	var phase string
	var transcript []byte
	err := row.Scan(
		&s.CallID, &s.Target, &s.TargetNumber, &s.UserQuestion, &phase, &transcript,
		&s.TelephonyCallSID, &s.StreamSID, &s.AgentConversationID, &s.Error, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Phase = bridge.CallPhase(phase)
	if len(transcript) > 0 {
		if err := json.Unmarshal(transcript, &s.Transcript); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
	}
	return &s, nil
}
