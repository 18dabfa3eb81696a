package types

import (
	"fmt"
	"strings"
)

type SessionState int

const (
	Disconnected SessionState = iota
	Connecting
	Connected
)

var sessionStateNames = map[SessionState]string{
	Disconnected: "disconnected",
	Connecting:   "connecting",
	Connected:    "connected",
}

func (s SessionState) String() string {
	if name, ok := sessionStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SessionState) UnmarshalText(text []byte) error {
	for state, name := range sessionStateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", string(text))
}

// Session is a point-in-time view of the wallet connection. Account and
// ChainId are set only while State is Connected.
type Session struct {
	State   SessionState
	Account string
	ChainId string
}

func EmptySession() Session {
	return Session{State: Disconnected}
}

func ConnectedSession(account, chainId string) Session {
	return Session{
		State:   Connected,
		Account: strings.ToLower(account),
		ChainId: chainId,
	}
}

func (s Session) IsConnected() bool {
	return s.State == Connected
}
