package handler

import (
	"context"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/edverse-labs/edugov/state"
	"github.com/edverse-labs/edugov/tx"
	"github.com/edverse-labs/edugov/types"
)

type ProposalTxHandler struct {
	logger cmtlog.Logger

	window time.Duration
}

func NewProposalTxHandler(logger cmtlog.Logger, window time.Duration) (h *ProposalTxHandler) {
	logger = logger.With("module", "proposalTx")
	h = &ProposalTxHandler{
		logger: logger,
		window: window,
	}
	return
}

func (h *ProposalTxHandler) Check(ctx context.Context, st *state.State, btx *tx.GovTx, now time.Time) error {
	stx := btx.Tx.(*tx.CreateProposalTx)
	_, _, err := st.Clone().CreateProposal(btx.Signer, stx, now, h.window)
	if err != nil {
		h.logger.Info("check CreateProposalTx fail", "err", err)
		return err
	}
	return nil
}

func (h *ProposalTxHandler) Apply(ctx context.Context, st *state.State, btx *tx.GovTx, now time.Time) (events []types.Event, err error) {
	stx := btx.Tx.(*tx.CreateProposalTx)
	proposal, event, err := st.CreateProposal(btx.Signer, stx, now, h.window)
	if err != nil {
		return nil, err
	}
	h.logger.Info("proposal created", "proposal", proposal.Index, "proposer", proposal.ProposerAddress, "instruction", proposal.Instruction.String())
	events = []types.Event{types.EncodeEventProposal(event)}
	return
}
