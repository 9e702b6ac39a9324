package core

import (
	"context"
	"errors"

	"github.com/vovakirdan/wirechat-sync/internal/store"
)

// SessionResolver maps a session token to the account behind it.
// ok is false when the token no longer resolves; err means the answer
// is unknown.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (accountID int64, ok bool, err error)
}

// SessionCause says why a connection's session stopped being valid.
type SessionCause int

const (
	// CauseNoToken: the connection never presented a token.
	CauseNoToken SessionCause = iota + 1
	// CauseUnresolved: the token expired or was revoked.
	CauseUnresolved
	// CauseAccountMismatch: the token now maps to another account than the cached one.
	CauseAccountMismatch
	// CauseInactive: the account was deactivated.
	CauseInactive
)

func (c SessionCause) String() string {
	switch c {
	case CauseNoToken:
		return "no_token"
	case CauseUnresolved:
		return "unresolved"
	case CauseAccountMismatch:
		return "account_mismatch"
	case CauseInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// SessionError reports an invalid session. It matches ErrSessionInvalid.
type SessionError struct {
	Cause SessionCause
}

func (e *SessionError) Error() string {
	return "session invalid: " + e.Cause.String()
}

func (e *SessionError) Unwrap() error {
	return ErrSessionInvalid
}

// SessionCauseOf extracts the cause from err, if it is a session error.
func SessionCauseOf(err error) (SessionCause, bool) {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Cause, true
	}
	return 0, false
}

// validate re-derives the account for a connection from its cached token.
// A connection whose token could not be resolved when it registered has no
// cached account yet; the first successful resolution becomes its account.
func (h *Hub) validate(ctx context.Context, state ClientState) (int64, error) {
	if state.SessionToken == "" {
		return 0, &SessionError{Cause: CauseNoToken}
	}

	accountID, ok, err := h.sessions.ResolveSession(ctx, state.SessionToken)
	if err != nil {
		return 0, unavailable(err)
	}
	if !ok {
		return 0, &SessionError{Cause: CauseUnresolved}
	}

	if state.AccountID != nil && *state.AccountID != accountID {
		return 0, &SessionError{Cause: CauseAccountMismatch}
	}

	account, err := h.store.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, &SessionError{Cause: CauseInactive}
		}
		return 0, unavailable(err)
	}
	if !account.Active() {
		return 0, &SessionError{Cause: CauseInactive}
	}

	return accountID, nil
}

// settle records a successful validation: a newly resolved account is
// cached and the next invalidation is announced again.
func (h *Hub) settle(entry Entry, accountID int64) {
	if entry.State.AccountID != nil && !entry.State.ReloadSent {
		return
	}
	h.registry.Update(entry.ID, entry.Gen, func(s *ClientState) {
		if s.AccountID == nil {
			s.AccountID = &accountID
		}
		s.ReloadSent = false
	})
}
