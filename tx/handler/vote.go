package handler

import (
	"context"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/edverse-labs/edugov/state"
	"github.com/edverse-labs/edugov/tx"
	"github.com/edverse-labs/edugov/types"
)

type VoteTxHandler struct {
	logger cmtlog.Logger

	exec  state.DomainExecutor
	check state.DomainExecutor
}

// NewVoteTxHandler takes two executors: exec carries the instruction to
// the collaborator on delivery, check only confirms one is registered.
// The check path must never reach the collaborator.
func NewVoteTxHandler(logger cmtlog.Logger, exec, check state.DomainExecutor) (h *VoteTxHandler) {
	logger = logger.With("module", "voteTx")
	h = &VoteTxHandler{
		logger: logger,
		exec:   exec,
		check:  check,
	}
	return
}

func (h *VoteTxHandler) Check(ctx context.Context, st *state.State, btx *tx.GovTx, now time.Time) error {
	stx := btx.Tx.(*tx.VoteTx)
	if !stx.Option.Valid() {
		return tx.ErrInvalidVoteOption
	}
	var err error
	cl := st.Clone()
	switch stx.Option {
	case tx.VoteApprove:
		_, err = cl.ApproveProposal(btx.Signer, stx.Proposal, now, h.check)
	case tx.VoteReject:
		_, err = cl.RejectProposal(btx.Signer, stx.Proposal, now)
	}
	if err != nil {
		h.logger.Info("check VoteTx fail", "proposal", stx.Proposal, "err", err)
		return err
	}
	return nil
}

// Apply records the vote. On an elapsed voting window the expiry
// transition still lands in the working state: the returned events carry
// it beside the ErrProposalExpired failure.
func (h *VoteTxHandler) Apply(ctx context.Context, st *state.State, btx *tx.GovTx, now time.Time) (events []types.Event, err error) {
	stx := btx.Tx.(*tx.VoteTx)
	if !stx.Option.Valid() {
		return nil, tx.ErrInvalidVoteOption
	}
	switch stx.Option {
	case tx.VoteApprove:
		events, err = st.ApproveProposal(btx.Signer, stx.Proposal, now, h.exec)
	case tx.VoteReject:
		events, err = st.RejectProposal(btx.Signer, stx.Proposal, now)
	}
	if err != nil {
		return events, err
	}
	h.logger.Info("vote recorded", "proposal", stx.Proposal, "voter", btx.Signer, "option", stx.Option)
	return
}
