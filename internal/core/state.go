package core

import "maps"

// ClientState is the ephemeral view the engine keeps for one connection.
// It is owned by the Registry; everything outside it works on copies.
type ClientState struct {
	SessionToken string
	// AccountID is nil for anonymous connections.
	AccountID *int64
	Cursors   map[int64]Cursor
	// LastSeen holds the badge counts most recently observed for the account.
	LastSeen map[int64]int
	// Rooms is the joined set last pushed in a roomlist; nil until the first push.
	Rooms map[int64]struct{}
	// NeedsRoomList forces a roomlist push on the next tick.
	NeedsRoomList bool
	// ReloadSent suppresses repeated reload pushes from the poller.
	ReloadSent bool
}

func newClientState(token string, accountID *int64) *ClientState {
	return &ClientState{
		SessionToken: token,
		AccountID:    accountID,
		Cursors:      make(map[int64]Cursor),
		LastSeen:     make(map[int64]int),
	}
}

// Clone returns a deep copy.
func (s *ClientState) Clone() ClientState {
	out := ClientState{
		SessionToken:  s.SessionToken,
		Cursors:       make(map[int64]Cursor, len(s.Cursors)),
		LastSeen:      make(map[int64]int, len(s.LastSeen)),
		Rooms:         maps.Clone(s.Rooms),
		NeedsRoomList: s.NeedsRoomList,
		ReloadSent:    s.ReloadSent,
	}
	if s.AccountID != nil {
		id := *s.AccountID
		out.AccountID = &id
	}
	maps.Copy(out.Cursors, s.Cursors)
	maps.Copy(out.LastSeen, s.LastSeen)
	return out
}

// Authenticated reports whether an account is cached for the connection.
func (s *ClientState) Authenticated() bool {
	return s.AccountID != nil
}
