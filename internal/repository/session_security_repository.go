package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/session"
)

// SessionSecurityRepository handles the device-binding records attached to
// exam sessions. It implements the engine's SecurityStore.
type SessionSecurityRepository struct {
	pool *pgxpool.Pool
}

// NewSessionSecurityRepository creates a new SessionSecurityRepository.
func NewSessionSecurityRepository(pool *pgxpool.Pool) *SessionSecurityRepository {
	return &SessionSecurityRepository{pool: pool}
}

// Bind creates or rebinds the security record for a session. One record per
// session: a rebind (resume from a new device) overwrites the token and
// fingerprint, which is what terminates the old device's monitor.
func (r *SessionSecurityRepository) Bind(ctx context.Context, sec *model.SessionSecurity) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_security (session_id, token, device_fingerprint, is_active, last_verified)
		 VALUES ($1, $2, $3, TRUE, $4)
		 ON CONFLICT (session_id) DO UPDATE
		 SET token = EXCLUDED.token,
		     device_fingerprint = EXCLUDED.device_fingerprint,
		     is_active = TRUE,
		     last_verified = EXCLUDED.last_verified`,
		sec.SessionID, sec.Token, sec.DeviceFingerprint, time.Now(),
	)
	return err
}

// Get retrieves the security record for a session and token.
func (r *SessionSecurityRepository) Get(ctx context.Context, sessionID uuid.UUID, token string) (*model.SessionSecurity, error) {
	sec := &model.SessionSecurity{}
	err := r.pool.QueryRow(ctx,
		`SELECT session_id, token, device_fingerprint, is_active, last_verified
		 FROM session_security
		 WHERE session_id = $1 AND token = $2`, sessionID, token,
	).Scan(&sec.SessionID, &sec.Token, &sec.DeviceFingerprint, &sec.IsActive, &sec.LastVerified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sec, nil
}

// GetBySession retrieves the security record regardless of token. Used by the
// entry flow to judge whether a session is occupied by a live device.
func (r *SessionSecurityRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.SessionSecurity, error) {
	sec := &model.SessionSecurity{}
	err := r.pool.QueryRow(ctx,
		`SELECT session_id, token, device_fingerprint, is_active, last_verified
		 FROM session_security
		 WHERE session_id = $1`, sessionID,
	).Scan(&sec.SessionID, &sec.Token, &sec.DeviceFingerprint, &sec.IsActive, &sec.LastVerified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sec, nil
}

// Touch refreshes last_verified and the reporting device's fingerprint,
// conditioned on the token matching.
func (r *SessionSecurityRepository) Touch(ctx context.Context, sessionID uuid.UUID, token, fingerprint string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE session_security
		 SET last_verified = $1, device_fingerprint = $2
		 WHERE session_id = $3 AND token = $4 AND is_active = TRUE`,
		time.Now(), fingerprint, sessionID, token,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return session.ErrNotFound
	}
	return nil
}

// Reclaim rewrites the fingerprint and timestamp after a transient
// connectivity gap on the same device.
func (r *SessionSecurityRepository) Reclaim(ctx context.Context, sessionID uuid.UUID, token, fingerprint string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE session_security
		 SET device_fingerprint = $1, last_verified = $2
		 WHERE session_id = $3 AND token = $4 AND is_active = TRUE`,
		fingerprint, time.Now(), sessionID, token,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return session.ErrNotFound
	}
	return nil
}

// Deactivate retires the security record when a session ends.
func (r *SessionSecurityRepository) Deactivate(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE session_security SET is_active = FALSE WHERE session_id = $1`,
		sessionID,
	)
	return err
}
