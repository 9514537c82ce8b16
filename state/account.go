package state

import (
	"encoding/json"

	"github.com/cometbft/cometbft/crypto/ed25519"
)

// Account is one known identity: a committee member, the platform
// authority, or a past member kept for audit. Member and Authority
// together decide privileged status; Nonce is the replay counter for
// signed envelopes.
type Account struct {
	Index     uint64 `json:"index"`
	PubKey    []byte `json:"pubKey"`
	Name      string `json:"name"`
	Member    bool   `json:"member"`
	Authority bool   `json:"authority"`
	Nonce     uint64 `json:"nonce"`
}

func (a *Account) MarshalJSON() (dat []byte, err error) {
	type alias Account
	return json.Marshal((*alias)(a))
}

func (a *Account) UnmarshalJSON(dat []byte) (err error) {
	type alias Account
	return json.Unmarshal(dat, (*alias)(a))
}

func (a *Account) Clone() *Account {
	n := *a
	n.PubKey = append([]byte(nil), a.PubKey...)
	return &n
}

// Privileged reports whether the account may touch registry state.
func (a *Account) Privileged() bool {
	return a.Member || a.Authority
}

func (a *Account) SetPubKey(pkey []byte) {
	if a.PubKey == nil {
		a.PubKey = make([]byte, len(pkey))
	}
	copy(a.PubKey, pkey)
}

func (a *Account) AddrBytes() []byte {
	pk := ed25519.PubKey(a.PubKey[:])
	return pk.Address()[:]
}

func (a *Account) Address() string {
	pk := ed25519.PubKey(a.PubKey[:])
	return pk.Address().String()
}

func (a *Account) Verify(msg []byte, sigs [][]byte) (succ bool) {
	if len(sigs) != 1 {
		return false
	}
	pk := ed25519.PubKey(a.PubKey[:])
	return pk.VerifySignature(msg, sigs[0])
}
