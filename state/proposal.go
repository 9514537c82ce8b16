package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/edverse-labs/edugov/tx"
	"github.com/edverse-labs/edugov/types"
	"github.com/syndtr/goleveldb/leveldb"
)

// maxDescriptionLength bounds the human-readable proposal description.
const maxDescriptionLength = 5000

// DomainExecutor carries an approved non-registry instruction across the
// collaborator boundary: token ledger, pause flags, educator and course
// registries, treasury. The engine only routes; it never interprets the
// payload. An executor error aborts the whole vote operation.
type DomainExecutor func(p *types.Proposal, ins types.Instruction) error

func (s *State) getProposal(idx uint64) (proposal *types.Proposal, err error) {
	if idx == 0 || idx > s.header.ProposalSeq {
		return nil, ErrProposalNotFound
	}
	if p, ok := s.modProposals[idx]; ok {
		return p, nil
	}
	key := fmt.Sprintf(KeyProposalBody, idx)
	val, err := s.db.Get([]byte(key))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrProposalNotFound
		}
		return nil, err
	}
	if val == nil {
		return nil, ErrProposalNotFound
	}
	proposal = new(types.Proposal)
	err = json.Unmarshal(val, proposal)
	return
}

// GetProposal returns a read-only snapshot.
func (s *State) GetProposal(idx uint64) (*types.Proposal, error) {
	p, err := s.getProposal(idx)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

func (s *State) MaxProposalIndex() uint64 {
	return s.header.ProposalSeq
}

// CreateProposal opens a new pending proposal. The proposer must be a
// current committee member; requiredApprovals is checked against the live
// threshold and then frozen into the proposal.
func (s *State) CreateProposal(proposer uint64, ptx *tx.CreateProposalTx, now time.Time, window time.Duration) (proposal *types.Proposal, event *types.EventProposal, err error) {
	a, err := s.requireSigner(proposer)
	if err != nil {
		return nil, nil, err
	}
	if len(ptx.Description) > maxDescriptionLength {
		return nil, nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrDescriptionTooLong, len(ptx.Description), maxDescriptionLength)
	}
	if ptx.RequiredApprovals == 0 || ptx.RequiredApprovals > s.header.Threshold {
		return nil, nil, fmt.Errorf("%w: %d outside (0, %d]", ErrInvalidApprovalRequirement, ptx.RequiredApprovals, s.header.Threshold)
	}
	ins, err := types.DecodeInstruction(ptx.Instruction, ptx.Payload)
	if err != nil {
		return nil, nil, fmt.Errorf("decode payload: %w", err)
	}
	if err = ins.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid payload: %w", err)
	}

	id, err := s.NextProposalID(proposer)
	if err != nil {
		return nil, nil, err
	}
	proposal = &types.Proposal{
		Index:             id,
		Proposer:          a.Index,
		ProposerAddress:   a.Address(),
		Instruction:       ptx.Instruction,
		Payload:           append([]byte(nil), ptx.Payload...),
		Description:       ptx.Description,
		RequiredApprovals: ptx.RequiredApprovals,
		Status:            types.ProposalStatusPending,
		CreatedAt:         now.Unix(),
		ExpireAt:          now.Add(window).Unix(),
		Approvers:         []types.Voter{},
		Rejectors:         []types.Voter{},
	}
	s.modProposals[id] = proposal

	a = a.Clone()
	a.Nonce += 1
	s.markModified(a)

	event = &types.EventProposal{
		ProposalIndex:     proposal.Index,
		Proposer:          a.Index,
		ProposerAddress:   proposal.ProposerAddress,
		Instruction:       uint64(proposal.Instruction),
		RequiredApprovals: uint64(proposal.RequiredApprovals),
		ExpireAt:          proposal.ExpireAt,
		Description:       proposal.Description,
	}
	return
}

func (s *State) voteChecks(voter uint64, idx uint64, now time.Time) (*Account, *types.Proposal, []types.Event, error) {
	a, err := s.requireSigner(voter)
	if err != nil {
		return nil, nil, nil, err
	}
	p, err := s.getProposal(idx)
	if err != nil {
		return nil, nil, nil, err
	}
	if p.Status.Terminal() {
		return nil, nil, nil, fmt.Errorf("%w: status %s", ErrInvalidProposalStatus, p.Status)
	}
	if now.Unix() >= p.ExpireAt {
		// the expiry transition is persisted even though the vote fails
		p.Status = types.ProposalStatusExpired
		s.modProposals[idx] = p
		ev := types.EncodeEventProposalSettled(&types.EventProposalSettled{
			ProposalIndex: idx,
			Status:        uint64(types.ProposalStatusExpired),
		})
		return nil, nil, []types.Event{ev}, ErrProposalExpired
	}
	if p.HasVoted(a.Index) {
		for _, v := range p.Approvers {
			if v.Index == a.Index {
				return nil, nil, nil, ErrAlreadyVoted
			}
		}
		return nil, nil, nil, ErrConflictingVote
	}
	return a, p, nil, nil
}

// ApproveProposal records an approval and, when the frozen approval bar is
// reached, executes the proposal's instruction in the same operation. The
// Executed branch is reachable only from Pending, which is what makes
// execution at-most-once.
func (s *State) ApproveProposal(voter uint64, idx uint64, now time.Time, exec DomainExecutor) (events []types.Event, err error) {
	s.logger.Debug("apply approve", "voter", voter, "proposal", idx)
	a, p, expiredEvents, err := s.voteChecks(voter, idx, now)
	if err != nil {
		if expiredEvents != nil {
			return expiredEvents, err
		}
		return nil, err
	}
	p.Approvers = append(p.Approvers, types.Voter{Index: a.Index, Address: a.Address()})
	s.modProposals[idx] = p

	a = a.Clone()
	a.Nonce += 1
	s.markModified(a)

	events = append(events, types.EncodeEventVote(&types.EventVote{
		ProposalIndex: idx,
		Voter:         a.Index,
		VoterAddress:  a.Address(),
		Approve:       true,
	}))

	if uint32(len(p.Approvers)) >= p.RequiredApprovals {
		execEvents, err := s.executeProposal(p, exec)
		if err != nil {
			return nil, err
		}
		events = append(events, execEvents...)
	}
	return events, nil
}

// RejectProposal records a rejection. The proposal flips to Rejected once
// rejections exceed half of the registry's current threshold; unlike the
// approval bar this reads the live threshold on every vote.
func (s *State) RejectProposal(voter uint64, idx uint64, now time.Time) (events []types.Event, err error) {
	s.logger.Debug("apply reject", "voter", voter, "proposal", idx)
	a, p, expiredEvents, err := s.voteChecksReject(voter, idx, now)
	if err != nil {
		if expiredEvents != nil {
			return expiredEvents, err
		}
		return nil, err
	}
	p.Rejectors = append(p.Rejectors, types.Voter{Index: a.Index, Address: a.Address()})
	s.modProposals[idx] = p

	a = a.Clone()
	a.Nonce += 1
	s.markModified(a)

	events = append(events, types.EncodeEventVote(&types.EventVote{
		ProposalIndex: idx,
		Voter:         a.Index,
		VoterAddress:  a.Address(),
		Approve:       false,
	}))

	if 2*uint32(len(p.Rejectors)) > s.header.Threshold {
		p.Status = types.ProposalStatusRejected
		events = append(events, types.EncodeEventProposalSettled(&types.EventProposalSettled{
			ProposalIndex: idx,
			Status:        uint64(types.ProposalStatusRejected),
		}))
	}
	return events, nil
}

func (s *State) voteChecksReject(voter uint64, idx uint64, now time.Time) (*Account, *types.Proposal, []types.Event, error) {
	a, p, expiredEvents, err := s.voteChecks(voter, idx, now)
	if err != nil {
		// swap the sentinel when the voter sits in the opposite list
		if err == ErrAlreadyVoted {
			err = ErrConflictingVote
		} else if err == ErrConflictingVote {
			err = ErrAlreadyVoted
		}
		return nil, nil, expiredEvents, err
	}
	return a, p, nil, nil
}

// executeProposal dispatches the stored instruction exactly once and
// freezes the proposal as Executed. Registry instructions mutate this
// state; everything else crosses the domain-executor boundary.
func (s *State) executeProposal(p *types.Proposal, exec DomainExecutor) (events []types.Event, err error) {
	p.Status = types.ProposalStatusExecuted
	ins, err := types.DecodeInstruction(p.Instruction, p.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	switch v := ins.(type) {
	case types.AddSignerInstruction:
		ev, err := s.applyAddSigner(v.PubKey, v.Name)
		if err != nil {
			return nil, err
		}
		events = append(events, types.EncodeEventSignerAdded(ev))
	case types.RemoveSignerInstruction:
		ev, err := s.applyRemoveSigner(v.Address)
		if err != nil {
			return nil, err
		}
		events = append(events, types.EncodeEventSignerRemoved(ev))
	case types.ChangeThresholdInstruction:
		ev, err := s.applyChangeThreshold(v.NewThreshold)
		if err != nil {
			return nil, err
		}
		events = append(events, types.EncodeEventThresholdChanged(ev))
	default:
		if exec == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoExecutor, p.Instruction)
		}
		if err = exec(p, ins); err != nil {
			return nil, fmt.Errorf("dispatch %s: %w", p.Instruction, err)
		}
		events = append(events, types.EncodeEventDomainAction(&types.EventDomainAction{
			ProposalIndex: p.Index,
			Instruction:   uint64(p.Instruction),
			Payload:       p.Payload,
		}))
	}
	events = append(events, types.EncodeEventProposalSettled(&types.EventProposalSettled{
		ProposalIndex: p.Index,
		Status:        uint64(types.ProposalStatusExecuted),
	}))
	return events, nil
}

// CheckProposalStatus lazily applies the expiry transition and returns the
// resulting status. Idempotent on terminal proposals: no second event.
func (s *State) CheckProposalStatus(idx uint64, now time.Time) (types.ProposalStatus, []types.Event, error) {
	p, err := s.getProposal(idx)
	if err != nil {
		return 0, nil, err
	}
	if p.Status == types.ProposalStatusPending && now.Unix() >= p.ExpireAt {
		p.Status = types.ProposalStatusExpired
		s.modProposals[idx] = p
		ev := types.EncodeEventProposalSettled(&types.EventProposalSettled{
			ProposalIndex: idx,
			Status:        uint64(types.ProposalStatusExpired),
		})
		return p.Status, []types.Event{ev}, nil
	}
	return p.Status, nil, nil
}

// ExpirePending walks every proposal and applies the expiry transition to
// the pending ones whose window has elapsed. Backs the active sweep.
func (s *State) ExpirePending(now time.Time) (events []types.Event, err error) {
	for idx := uint64(1); idx <= s.header.ProposalSeq; idx++ {
		p, err := s.getProposal(idx)
		if err != nil {
			return nil, err
		}
		if p.Status != types.ProposalStatusPending || now.Unix() < p.ExpireAt {
			continue
		}
		p.Status = types.ProposalStatusExpired
		s.modProposals[idx] = p
		events = append(events, types.EncodeEventProposalSettled(&types.EventProposalSettled{
			ProposalIndex: idx,
			Status:        uint64(types.ProposalStatusExpired),
		}))
	}
	return events, nil
}
