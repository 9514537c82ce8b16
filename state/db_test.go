package state

import (
	"sync"
	"testing"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/require"

	"github.com/edverse-labs/edugov/tx"
	"github.com/edverse-labs/edugov/types"
)

func TestStateDBRestartRecovery(t *testing.T) {
	dir := t.TempDir()
	logger := cmtlog.NewNopLogger()

	db, err := NewStateDB(dir, logger)
	require.NoError(t, err)

	doc, privs := testGenesisDoc(3, 2)
	st := db.NewState()
	require.NoError(t, st.InitGenesis(doc))

	payload, err := types.EncodeInstruction(types.ChangeThresholdInstruction{NewThreshold: 3})
	require.NoError(t, err)
	p, _, err := st.CreateProposal(StartAccountIdx, &tx.CreateProposalTx{
		Instruction:       types.InstructionChangeThreshold,
		Payload:           payload,
		Description:       "raise the bar",
		RequiredApprovals: 2,
	}, testNow, testWindow)
	require.NoError(t, err)
	_, err = st.ApproveProposal(StartAccountIdx+1, p.Index, testNow, nil)
	require.NoError(t, err)

	hash, err := st.Update()
	require.NoError(t, err)
	saved, err := db.SetState(st)
	require.NoError(t, err)
	require.Equal(t, hash, saved)

	committee, threshold := db.Committee()
	require.Len(t, committee, 3)
	require.Equal(t, uint32(2), threshold)
	require.NoError(t, db.Close())

	// reopen the same directory: everything committed must survive
	db2, err := NewStateDB(dir, logger)
	require.NoError(t, err)
	defer db2.Close()

	header := db2.Header()
	require.Equal(t, saved.Bytes(), header.Hash)
	require.Equal(t, testNetworkID, header.NetworkID)
	require.Equal(t, uint32(2), header.Threshold)
	require.Equal(t, uint64(1), header.ProposalSeq)
	require.Equal(t, uint64(StartAccountIdx+3), header.AccountIdx)

	committee2, threshold2 := db2.Committee()
	require.ElementsMatch(t, committee, committee2)
	require.Equal(t, threshold, threshold2)

	got, _, err := db2.GetProposal(p.Index)
	require.NoError(t, err)
	require.Equal(t, types.ProposalStatusPending, got.Status)
	require.Equal(t, "raise the bar", got.Description)
	require.Len(t, got.Approvers, 1)

	// accounts and the address index survive too
	acnt, _, err := db2.GetAccountByIndex(StartAccountIdx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), acnt.Nonce)
	byAddr, _, err := db2.GetAccountByAddress(acnt.AddrBytes())
	require.NoError(t, err)
	require.Equal(t, acnt.Index, byAddr.Index)

	// a signed envelope still verifies against the reloaded state
	btx := signedVoteTx(t, privs[2], StartAccountIdx+2, 0, testNetworkID)
	ok, err := db2.State().Verify(btx, false)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStateDBConcurrentAccountReads(t *testing.T) {
	dir := t.TempDir()
	logger := cmtlog.NewNopLogger()

	db, err := NewStateDB(dir, logger)
	require.NoError(t, err)
	doc, privs := testGenesisDoc(4, 2)
	st := db.NewState()
	require.NoError(t, st.InitGenesis(doc))
	_, err = st.Update()
	require.NoError(t, err)
	_, err = db.SetState(st)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// reopen so the lookup caches start cold and fill under contention
	db2, err := NewStateDB(dir, logger)
	require.NoError(t, err)
	defer db2.Close()

	errs := make(chan error, 2*10*len(privs))
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, priv := range privs {
				if _, _, err := db2.GetAccountByIndex(StartAccountIdx + uint64(i)); err != nil {
					errs <- err
				}
				if _, _, err := db2.GetAccountByAddress(priv.PubKey().Address()); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestStateDBNewStateHeight(t *testing.T) {
	dir := t.TempDir()
	db, err := NewStateDB(dir, cmtlog.NewNopLogger())
	require.NoError(t, err)
	defer db.Close()

	doc, _ := testGenesisDoc(1, 1)
	st := db.NewState()
	require.NoError(t, st.InitGenesis(doc))
	require.Equal(t, uint64(0), st.Header().Height)
	_, err = st.Update()
	require.NoError(t, err)
	_, err = db.SetState(st)
	require.NoError(t, err)

	// each committed state advances the height by one
	st = db.NewState()
	require.Equal(t, uint64(1), st.Header().Height)
	_, err = st.Update()
	require.NoError(t, err)
	_, err = db.SetState(st)
	require.NoError(t, err)
	require.Equal(t, uint64(1), db.Header().Height)
}
