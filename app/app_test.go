package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/require"

	"github.com/edverse-labs/edugov/config"
	"github.com/edverse-labs/edugov/state"
	"github.com/edverse-labs/edugov/tx"
	"github.com/edverse-labs/edugov/types"
)

const testNetworkID = "edugov-test"

func testConfig(t *testing.T, windowHours uint64) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig(t.TempDir())
	cfg.NetworkID = testNetworkID
	cfg.VotingWindowHours = windowHours
	cfg.SweepIntervalSeconds = 0
	require.NoError(t, cfg.EnsureDirs())
	return cfg
}

func testGenesisDoc(n int, threshold uint32) (*types.GenesisDoc, []ed25519.PrivKey) {
	privs := make([]ed25519.PrivKey, n)
	doc := &types.GenesisDoc{NetworkID: testNetworkID, Threshold: threshold}
	for i := range privs {
		privs[i] = ed25519.GenPrivKey()
		doc.Signers = append(doc.Signers, types.GenesisSigner{
			Address: privs[i].PubKey().Address(),
			PubKey:  privs[i].PubKey(),
			Name:    fmt.Sprintf("signer-%d", i),
		})
	}
	return doc, privs
}

func testApp(t *testing.T, windowHours uint64) (*GovApp, []ed25519.PrivKey) {
	t.Helper()
	cfg := testConfig(t, windowHours)
	govApp, err := NewGovApp(cfg, cmtlog.NewNopLogger())
	require.NoError(t, err)
	doc, privs := testGenesisDoc(3, 2)
	require.NoError(t, govApp.InitGenesis(doc))
	t.Cleanup(govApp.Stop)
	return govApp, privs
}

func signAndMarshal(t *testing.T, priv ed25519.PrivKey, btx *tx.GovTx) []byte {
	t.Helper()
	dat, err := btx.SigData([]byte(testNetworkID))
	require.NoError(t, err)
	sig, err := priv.Sign(dat)
	require.NoError(t, err)
	btx.Sig = [][]byte{sig}
	raw, err := tx.MarshalGovTx(btx)
	require.NoError(t, err)
	return raw
}

func rawCreateProposal(t *testing.T, priv ed25519.PrivKey, signer uint64, nonce uint64, ins types.Instruction, required uint32) []byte {
	t.Helper()
	payload, err := types.EncodeInstruction(ins)
	require.NoError(t, err)
	return signAndMarshal(t, priv, &tx.GovTx{
		Version: tx.GovTxVersion1,
		Type:    tx.GovTxTypeCreateProposal,
		Nonce:   nonce,
		Signer:  signer,
		Tx: &tx.CreateProposalTx{
			Instruction:       ins.Type(),
			Payload:           payload,
			Description:       "test proposal",
			RequiredApprovals: required,
		},
	})
}

func rawVote(t *testing.T, priv ed25519.PrivKey, signer uint64, nonce uint64, proposal uint64, option tx.VoteOption) []byte {
	t.Helper()
	return signAndMarshal(t, priv, &tx.GovTx{
		Version: tx.GovTxVersion1,
		Type:    tx.GovTxTypeVote,
		Nonce:   nonce,
		Signer:  signer,
		Tx:      &tx.VoteTx{Proposal: proposal, Option: option},
	})
}

func eventTypes(events []types.Event) (tps []string) {
	for _, ev := range events {
		tps = append(tps, ev.Type)
	}
	return
}

func TestDeliverTxLifecycle(t *testing.T) {
	govApp, privs := testApp(t, 72)
	ctx := context.Background()
	base := uint64(state.StartAccountIdx)
	newKey := ed25519.GenPrivKey()

	raw := rawCreateProposal(t, privs[0], base, 0,
		types.AddSignerInstruction{PubKey: newKey.PubKey().Bytes(), Name: "newcomer"}, 2)
	events, hash, err := govApp.DeliverTx(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, []string{types.EventProposalType}, eventTypes(events))
	require.NotZero(t, hash)

	// replaying the same envelope must fail on the consumed nonce
	_, _, err = govApp.DeliverTx(ctx, raw)
	require.ErrorIs(t, err, state.ErrTxNonceInvalid)

	events, _, err = govApp.DeliverTx(ctx, rawVote(t, privs[1], base+1, 0, 1, tx.VoteApprove))
	require.NoError(t, err)
	require.Equal(t, []string{types.EventVoteType}, eventTypes(events))

	events, _, err = govApp.DeliverTx(ctx, rawVote(t, privs[2], base+2, 0, 1, tx.VoteApprove))
	require.NoError(t, err)
	require.Equal(t, []string{
		types.EventVoteType, types.EventSignerAddedType, types.EventProposalSettledType,
	}, eventTypes(events))

	p, _, err := govApp.QueryProposal(1)
	require.NoError(t, err)
	require.Equal(t, types.ProposalStatusExecuted, p.Status)

	view, err := govApp.QueryCommittee()
	require.NoError(t, err)
	require.Len(t, view.Signers, 4)

	// three commits reached the indexer feed, heights ascending
	var heights []uint64
	for i := 0; i < 3; i++ {
		select {
		case committed := <-govApp.Events():
			heights = append(heights, committed.Height)
		default:
			t.Fatal("missing committed events")
		}
	}
	require.Equal(t, []uint64{1, 2, 3}, heights)
}

func TestDeliverTxDomainExecutor(t *testing.T) {
	govApp, privs := testApp(t, 72)
	ctx := context.Background()
	base := uint64(state.StartAccountIdx)

	calls := 0
	govApp.RegisterExecutor(types.InstructionMintTokens, func(p *types.Proposal, ins types.Instruction) error {
		calls++
		mint, ok := ins.(types.MintTokensInstruction)
		require.True(t, ok)
		require.Equal(t, uint64(500), mint.Amount)
		return nil
	})

	raw := rawCreateProposal(t, privs[0], base, 0,
		types.MintTokensInstruction{Recipient: "0xfeed", Amount: 500}, 1)
	_, _, err := govApp.DeliverTx(ctx, raw)
	require.NoError(t, err)

	events, _, err := govApp.DeliverTx(ctx, rawVote(t, privs[1], base+1, 0, 1, tx.VoteApprove))
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Contains(t, eventTypes(events), types.EventDomainActionType)
}

func TestDeliverTxExecutorFailure(t *testing.T) {
	govApp, privs := testApp(t, 72)
	ctx := context.Background()
	base := uint64(state.StartAccountIdx)

	boom := errors.New("treasury offline")
	govApp.RegisterExecutor(types.InstructionTreasuryWithdraw, func(*types.Proposal, types.Instruction) error {
		return boom
	})

	_, _, err := govApp.DeliverTx(ctx, rawCreateProposal(t, privs[0], base, 0,
		types.TreasuryWithdrawInstruction{Recipient: "0xfeed", Amount: 9}, 1))
	require.NoError(t, err)

	vote := rawVote(t, privs[1], base+1, 0, 1, tx.VoteApprove)
	_, _, err = govApp.DeliverTx(ctx, vote)
	require.ErrorIs(t, err, boom)

	// nothing was committed: still pending, voter nonce unconsumed
	p, _, err := govApp.QueryProposal(1)
	require.NoError(t, err)
	require.Equal(t, types.ProposalStatusPending, p.Status)
	require.Empty(t, p.Approvers)

	// once the collaborator recovers the very same envelope goes through
	govApp.RegisterExecutor(types.InstructionTreasuryWithdraw, func(*types.Proposal, types.Instruction) error {
		return nil
	})
	_, _, err = govApp.DeliverTx(ctx, vote)
	require.NoError(t, err)
	p, _, err = govApp.QueryProposal(1)
	require.NoError(t, err)
	require.Equal(t, types.ProposalStatusExecuted, p.Status)
}

func TestDeliverTxMissingExecutor(t *testing.T) {
	govApp, privs := testApp(t, 72)
	ctx := context.Background()
	base := uint64(state.StartAccountIdx)

	_, _, err := govApp.DeliverTx(ctx, rawCreateProposal(t, privs[0], base, 0,
		types.SetPauseFlagInstruction{Flag: "minting", Paused: true}, 1))
	require.NoError(t, err)

	_, _, err = govApp.DeliverTx(ctx, rawVote(t, privs[1], base+1, 0, 1, tx.VoteApprove))
	require.ErrorIs(t, err, state.ErrNoExecutor)
}

func TestDeliverTxExpiredVote(t *testing.T) {
	// a zero-hour window expires proposals immediately
	govApp, privs := testApp(t, 0)
	ctx := context.Background()
	base := uint64(state.StartAccountIdx)

	_, _, err := govApp.DeliverTx(ctx, rawCreateProposal(t, privs[0], base, 0,
		types.ChangeThresholdInstruction{NewThreshold: 1}, 1))
	require.NoError(t, err)

	events, hash, err := govApp.DeliverTx(ctx, rawVote(t, privs[1], base+1, 0, 1, tx.VoteApprove))
	require.ErrorIs(t, err, state.ErrProposalExpired)
	// the expiry transition commits even though the vote failed
	require.Equal(t, []string{types.EventProposalSettledType}, eventTypes(events))
	require.NotZero(t, hash)

	p, _, err := govApp.QueryProposal(1)
	require.NoError(t, err)
	require.Equal(t, types.ProposalStatusExpired, p.Status)

	// the failed vote consumed no nonce, so the envelope parses again but
	// lands on a settled proposal
	_, _, err = govApp.DeliverTx(ctx, rawVote(t, privs[1], base+1, 0, 1, tx.VoteApprove))
	require.ErrorIs(t, err, state.ErrInvalidProposalStatus)

	acnt, _, err := govApp.QueryAccountByIndex(base + 1)
	require.NoError(t, err)
	require.Equal(t, uint64(0), acnt.Nonce)
}

func TestSweepOnce(t *testing.T) {
	govApp, privs := testApp(t, 0)
	ctx := context.Background()
	base := uint64(state.StartAccountIdx)

	for i := 0; i < 2; i++ {
		_, _, err := govApp.DeliverTx(ctx, rawCreateProposal(t, privs[0], base, uint64(i),
			types.ChangeThresholdInstruction{NewThreshold: 1}, 1))
		require.NoError(t, err)
	}

	govApp.sweepOnce(time.Now())
	for idx := uint64(1); idx <= 2; idx++ {
		p, _, err := govApp.QueryProposal(idx)
		require.NoError(t, err)
		require.Equal(t, types.ProposalStatusExpired, p.Status)
	}

	// draining the feed: two creations plus one sweep commit
	var sweeps int
	for {
		select {
		case committed := <-govApp.Events():
			for _, ev := range committed.Events {
				if ev.Type == types.EventProposalSettledType {
					sweeps++
				}
			}
			continue
		default:
		}
		break
	}
	require.Equal(t, 2, sweeps)
}

func TestCheckTx(t *testing.T) {
	govApp, privs := testApp(t, 72)
	ctx := context.Background()
	base := uint64(state.StartAccountIdx)

	ins := types.ChangeThresholdInstruction{NewThreshold: 1}
	require.NoError(t, govApp.CheckTx(ctx, rawCreateProposal(t, privs[0], base, 0, ins, 1)))

	// the mempool check tolerates nonce gaps, delivery does not
	gapped := rawCreateProposal(t, privs[0], base, 5, ins, 1)
	require.NoError(t, govApp.CheckTx(ctx, gapped))
	_, _, err := govApp.DeliverTx(ctx, gapped)
	require.ErrorIs(t, err, state.ErrTxNonceInvalid)

	// checking commits nothing
	require.Equal(t, uint64(0), govApp.MaxProposalIndex())

	err = govApp.CheckTx(ctx, []byte(`{"type":9}`))
	require.ErrorIs(t, err, tx.ErrUnsupportedTxType)
}

func TestCheckTxDoesNotDispatch(t *testing.T) {
	govApp, privs := testApp(t, 72)
	ctx := context.Background()
	base := uint64(state.StartAccountIdx)

	calls := 0
	govApp.RegisterExecutor(types.InstructionMintTokens, func(*types.Proposal, types.Instruction) error {
		calls++
		return nil
	})

	_, _, err := govApp.DeliverTx(ctx, rawCreateProposal(t, privs[0], base, 0,
		types.MintTokensInstruction{Recipient: "0xfeed", Amount: 500}, 1))
	require.NoError(t, err)

	// a quorum-reaching approval in the mempool check must not reach the collaborator
	vote := rawVote(t, privs[1], base+1, 0, 1, tx.VoteApprove)
	require.NoError(t, govApp.CheckTx(ctx, vote))
	require.Equal(t, 0, calls)

	// a missing executor still surfaces at check time
	_, _, err = govApp.DeliverTx(ctx, rawCreateProposal(t, privs[0], base, 1,
		types.SetPauseFlagInstruction{Flag: "minting", Paused: true}, 1))
	require.NoError(t, err)
	err = govApp.CheckTx(ctx, rawVote(t, privs[2], base+2, 0, 2, tx.VoteApprove))
	require.ErrorIs(t, err, state.ErrNoExecutor)

	// delivery of the checked envelope dispatches exactly once
	_, _, err = govApp.DeliverTx(ctx, vote)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestInitGenesisIdempotent(t *testing.T) {
	cfg := testConfig(t, 72)
	doc, privs := testGenesisDoc(3, 2)

	govApp, err := NewGovApp(cfg, cmtlog.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, govApp.InitGenesis(doc))

	_, _, err = govApp.DeliverTx(context.Background(), rawCreateProposal(t, privs[0],
		state.StartAccountIdx, 0, types.ChangeThresholdInstruction{NewThreshold: 3}, 2))
	require.NoError(t, err)
	height := govApp.DB().Header().Height
	govApp.Stop()

	// a restart replays genesis as a no-op and keeps the committed state
	govApp, err = NewGovApp(cfg, cmtlog.NewNopLogger())
	require.NoError(t, err)
	defer govApp.Stop()
	require.NoError(t, govApp.InitGenesis(doc))
	require.Equal(t, height, govApp.DB().Header().Height)
	require.Equal(t, uint64(1), govApp.MaxProposalIndex())
}
