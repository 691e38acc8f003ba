// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

// Package postgres implements the account repository on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/playgate/playgate/internal/auth"
	"github.com/playgate/playgate/internal/crypto"
	"github.com/playgate/playgate/internal/link"
)

// poolIface is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type poolIface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository implements auth.AccountRepository using PostgreSQL.
type Repository struct {
	pool poolIface
}

// NewRepository creates a PostgreSQL account repository.
func NewRepository(pool poolIface) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, player_id, kind, name, unique_id,
	password_hash, password_salt, crypto_provider, totp_secret,
	last_ip, last_quit_at, last_session_start_at, step_index`

// GetByPlayerID retrieves an account and its links by identity key.
func (r *Repository) GetByPlayerID(ctx context.Context, playerID string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE player_id = $1`,
		playerID)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("player", playerID).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_QUERY_FAILED").
			With("player", playerID).
			Wrap(err)
	}

	if err := r.loadLinks(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Create persists a new account and fills in its DatabaseID. A duplicate
// identity surfaces as an ACCOUNT_EXISTS error.
func (r *Repository) Create(ctx context.Context, account *auth.Account) error {
	hash, salt, provider := credentialColumns(account)

	err := r.pool.QueryRow(ctx,
		`INSERT INTO accounts (player_id, kind, name, unique_id,
			password_hash, password_salt, crypto_provider, totp_secret,
			last_ip, last_quit_at, last_session_start_at, step_index)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		account.PlayerID,
		int16(account.Kind),
		account.Name,
		account.UniqueID,
		hash, salt, provider,
		account.TOTPSecret,
		account.LastIP,
		nullTime(account.LastQuitAt),
		nullTime(account.LastSessionStartAt),
		account.StepIndex,
	).Scan(&account.DatabaseID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("ACCOUNT_EXISTS").
				With("player", account.PlayerID).
				Wrap(err)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("player", account.PlayerID).
			Wrap(err)
	}
	return nil
}

// SaveOrUpdate flushes the account's persistent fields.
func (r *Repository) SaveOrUpdate(ctx context.Context, account *auth.Account) error {
	if account.DatabaseID == 0 {
		return r.Create(ctx, account)
	}

	hash, salt, provider := credentialColumns(account)

	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET
			name = $2, unique_id = $3,
			password_hash = $4, password_salt = $5, crypto_provider = $6,
			totp_secret = $7, last_ip = $8,
			last_quit_at = $9, last_session_start_at = $10, step_index = $11
		 WHERE id = $1`,
		account.DatabaseID,
		account.Name,
		account.UniqueID,
		hash, salt, provider,
		account.TOTPSecret,
		account.LastIP,
		nullTime(account.LastQuitAt),
		nullTime(account.LastSessionStartAt),
		account.StepIndex,
	)
	if err != nil {
		return oops.Code("ACCOUNT_SAVE_FAILED").
			With("player", account.PlayerID).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_SAVE_FAILED").
			With("player", account.PlayerID).
			With("id", account.DatabaseID).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdateLastQuit records the quit timestamp without a full save. Unknown
// identities are ignored; a quit event for an account that never
// registered is routine.
func (r *Repository) UpdateLastQuit(ctx context.Context, playerID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET last_quit_at = $2 WHERE player_id = $1`,
		playerID, time.Now())
	if err != nil {
		return oops.Code("ACCOUNT_QUIT_UPDATE_FAILED").
			With("player", playerID).
			Wrap(err)
	}
	return nil
}

// AddLink persists a new external-identity link. One link per type per
// account; a second one surfaces as LINK_EXISTS.
func (r *Repository) AddLink(ctx context.Context, account *auth.Account, l auth.LinkUser) error {
	linkedAt := l.LinkedAt
	if linkedAt.IsZero() {
		linkedAt = time.Now()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO account_links (account_id, link_type, external_id, linked_at)
		 VALUES ($1, $2, $3, $4)`,
		account.DatabaseID,
		l.Type.String(),
		l.ExternalID,
		linkedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("LINK_EXISTS").
				With("player", account.PlayerID).
				With("type", l.Type.String()).
				Wrap(err)
		}
		return oops.Code("LINK_ADD_FAILED").
			With("player", account.PlayerID).
			With("type", l.Type.String()).
			Wrap(err)
	}
	return nil
}

// RemoveLink deletes an external-identity link. Removing an absent link is
// a no-op.
func (r *Repository) RemoveLink(ctx context.Context, account *auth.Account, l auth.LinkUser) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM account_links WHERE account_id = $1 AND link_type = $2`,
		account.DatabaseID, l.Type.String())
	if err != nil {
		return oops.Code("LINK_REMOVE_FAILED").
			With("player", account.PlayerID).
			With("type", l.Type.String()).
			Wrap(err)
	}
	return nil
}

func (r *Repository) loadLinks(ctx context.Context, account *auth.Account) error {
	rows, err := r.pool.Query(ctx,
		`SELECT link_type, external_id, linked_at
		 FROM account_links WHERE account_id = $1 ORDER BY linked_at`,
		account.DatabaseID)
	if err != nil {
		return oops.Code("LINK_QUERY_FAILED").
			With("player", account.PlayerID).
			Wrap(err)
	}
	defer rows.Close()

	for rows.Next() {
		var typeName string
		var l auth.LinkUser
		if err := rows.Scan(&typeName, &l.ExternalID, &l.LinkedAt); err != nil {
			return oops.Code("LINK_QUERY_FAILED").
				With("player", account.PlayerID).
				Wrap(err)
		}
		t, err := link.ParseType(typeName)
		if err != nil {
			return oops.Code("LINK_QUERY_FAILED").
				With("player", account.PlayerID).
				Wrap(err)
		}
		l.Type = t
		account.Links = append(account.Links, l)
	}
	if err := rows.Err(); err != nil {
		return oops.Code("LINK_QUERY_FAILED").
			With("player", account.PlayerID).
			Wrap(err)
	}
	return nil
}

// scanAccount reads one accounts row. Credential columns are nullable; a
// row with no password hash scans to an unregistered account.
func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		account  auth.Account
		kind     int16
		hash     *string
		salt     *string
		provider *string
		quitAt   *time.Time
		startAt  *time.Time
	)

	err := row.Scan(
		&account.DatabaseID,
		&account.PlayerID,
		&kind,
		&account.Name,
		&account.UniqueID,
		&hash, &salt, &provider,
		&account.TOTPSecret,
		&account.LastIP,
		&quitAt,
		&startAt,
		&account.StepIndex,
	)
	if err != nil {
		return nil, err
	}

	account.Kind = auth.IdentifierKind(kind)
	account.CurrentStep = auth.NullStep{}
	if hash != nil {
		account.PasswordHash = &crypto.HashedPassword{
			Hash:       *hash,
			ProviderID: deref(provider),
			Salt:       deref(salt),
		}
	}
	if quitAt != nil {
		account.LastQuitAt = *quitAt
	}
	if startAt != nil {
		account.LastSessionStartAt = *startAt
	}
	return &account, nil
}

// credentialColumns splits the optional credential into nullable columns.
func credentialColumns(account *auth.Account) (hash, salt, provider *string) {
	if account.PasswordHash == nil {
		return nil, nil, nil
	}
	return &account.PasswordHash.Hash, &account.PasswordHash.Salt, &account.PasswordHash.ProviderID
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
