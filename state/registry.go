package state

import (
	"encoding/hex"
	"fmt"

	"github.com/edverse-labs/edugov/types"
)

// The signer registry: committee membership, threshold and the proposal
// counter. Mutations are gated on privileged callers; the proposal engine
// reaches the ungated apply functions only from the execution branch of an
// approved proposal.

func (s *State) InitGenesis(doc *types.GenesisDoc) error {
	switch n := len(doc.Signers); {
	case n == 0:
		return fmt.Errorf("%w: no signers", ErrInvalidConfiguration)
	case n > MaxSigners:
		return fmt.Errorf("%w: %d signers exceeds maximum of %d", ErrInvalidConfiguration, n, MaxSigners)
	}
	if doc.Threshold == 0 || doc.Threshold > uint32(len(doc.Signers)) {
		return fmt.Errorf("%w: threshold %d outside [1, %d]", ErrInvalidConfiguration, doc.Threshold, len(doc.Signers))
	}
	s.SetNetworkID(doc.NetworkID)
	for _, v := range doc.Signers {
		if v.PubKey == nil {
			return fmt.Errorf("%w: signer without pubkey", ErrInvalidConfiguration)
		}
		acnt := &Account{Name: v.Name, Member: true}
		acnt.SetPubKey(v.PubKey.Bytes())
		if err := s.AddAccount(acnt); err != nil {
			return fmt.Errorf("%w: duplicate signer %s", ErrInvalidConfiguration, v.PubKey.Address())
		}
		s.committee = append(s.committee, acnt.Index)
	}
	if doc.Authority != nil {
		acnt := &Account{Name: "authority", Authority: true}
		acnt.SetPubKey(doc.Authority.Bytes())
		if err := s.AddAccount(acnt); err != nil {
			return fmt.Errorf("%w: authority key collides with a signer", ErrInvalidConfiguration)
		}
	}
	s.committeeDirty = true
	s.header.Threshold = doc.Threshold
	return nil
}

func (s *State) requirePrivileged(actor uint64) (*Account, error) {
	a, err := s.GetAccount(actor)
	if err != nil || a == nil {
		return nil, ErrUnauthorized
	}
	if !a.Privileged() {
		return nil, ErrUnauthorized
	}
	return a, nil
}

func (s *State) requireSigner(actor uint64) (*Account, error) {
	a, err := s.GetAccount(actor)
	if err != nil || a == nil {
		return nil, ErrUnauthorized
	}
	if !a.Member {
		return nil, ErrUnauthorized
	}
	return a, nil
}

func (s *State) AddSigner(actor uint64, pubkey []byte, name string) (*types.EventSignerAdded, error) {
	if _, err := s.requirePrivileged(actor); err != nil {
		return nil, err
	}
	return s.applyAddSigner(pubkey, name)
}

func (s *State) applyAddSigner(pubkey []byte, name string) (event *types.EventSignerAdded, err error) {
	if len(s.committee) >= MaxSigners {
		return nil, ErrCommitteeFull
	}
	a, err := s.FindAccountByPubKey(pubkey)
	if err != nil {
		return nil, err
	}
	if a != nil {
		if a.Member {
			return nil, ErrDuplicateSigner
		}
		// known identity rejoining the committee
		a = a.Clone()
		a.Member = true
		a.Name = name
		s.markModified(a)
	} else {
		a = &Account{Name: name, Member: true}
		a.SetPubKey(pubkey)
		if err = s.AddAccount(a); err != nil {
			return nil, err
		}
	}
	s.committee = append(s.committee, a.Index)
	s.committeeDirty = true
	event = &types.EventSignerAdded{
		Signer:  a.Index,
		Address: a.Address(),
		Name:    name,
	}
	return
}

func (s *State) RemoveSigner(actor uint64, address string) (*types.EventSignerRemoved, error) {
	if _, err := s.requirePrivileged(actor); err != nil {
		return nil, err
	}
	return s.applyRemoveSigner(address)
}

func (s *State) applyRemoveSigner(address string) (event *types.EventSignerRemoved, err error) {
	addr, err := hex.DecodeString(address)
	if err != nil {
		return nil, fmt.Errorf("%w: bad address %q", ErrSignerNotFound, address)
	}
	a, err := s.FindAccount(addr)
	if err != nil {
		return nil, err
	}
	if a == nil || !a.Member {
		return nil, ErrSignerNotFound
	}
	// the committee must stay at least as large as the threshold
	if uint32(len(s.committee)-1) < s.header.Threshold {
		return nil, ErrQuorumUnsafe
	}
	pos := -1
	for i, idx := range s.committee {
		if idx == a.Index {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, ErrSignerNotFound
	}
	// swap with last and truncate; committee order is not stable
	last := len(s.committee) - 1
	s.committee[pos] = s.committee[last]
	s.committee = s.committee[:last]
	s.committeeDirty = true

	a = a.Clone()
	a.Member = false
	s.markModified(a)

	event = &types.EventSignerRemoved{
		Signer:  a.Index,
		Address: a.Address(),
	}
	return
}

func (s *State) ChangeThreshold(actor uint64, newThreshold uint32) (*types.EventThresholdChanged, error) {
	if _, err := s.requirePrivileged(actor); err != nil {
		return nil, err
	}
	return s.applyChangeThreshold(newThreshold)
}

func (s *State) applyChangeThreshold(newThreshold uint32) (*types.EventThresholdChanged, error) {
	if newThreshold == 0 || newThreshold > uint32(len(s.committee)) {
		return nil, fmt.Errorf("%w: %d outside [1, %d]", ErrInvalidThreshold, newThreshold, len(s.committee))
	}
	event := &types.EventThresholdChanged{
		OldThreshold: uint64(s.header.Threshold),
		NewThreshold: uint64(newThreshold),
	}
	s.header.Threshold = newThreshold
	return event, nil
}

// NextProposalID bumps the monotonic proposal counter. Privileged only;
// identifiers are never reused, even for proposals that fail validation
// later in the same call.
func (s *State) NextProposalID(actor uint64) (uint64, error) {
	if _, err := s.requirePrivileged(actor); err != nil {
		return 0, err
	}
	s.header.ProposalSeq += 1
	return s.header.ProposalSeq, nil
}

func (s *State) IsSigner(idx uint64) bool {
	a, err := s.GetAccount(idx)
	if err != nil || a == nil {
		return false
	}
	return a.Member
}

func (s *State) SignerCount() int {
	return len(s.committee)
}

func (s *State) Threshold() uint32 {
	return s.header.Threshold
}

// Committee returns the member account indices in committee order. The
// order changes across removals; callers must not rely on positions.
func (s *State) Committee() []uint64 {
	return append([]uint64(nil), s.committee...)
}

func (s *State) CommitteeAccounts() (accounts []*Account, err error) {
	for _, idx := range s.committee {
		a, err := s.GetAccount(idx)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}
