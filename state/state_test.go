package state

import (
	"fmt"
	"testing"

	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/stretchr/testify/require"

	"github.com/edverse-labs/edugov/tx"
	"github.com/edverse-labs/edugov/types"
)

const testNetworkID = "edugov-test"

func testState(t *testing.T) *State {
	t.Helper()
	ldb, err := dbm.NewDB("test", "goleveldb", t.TempDir())
	require.NoError(t, err)
	tree := iavl.NewMutableTree(ldb, 128, true, Cometbft2CosmosLogger(cmtlog.NewNopLogger()))
	_, err = tree.Load()
	require.NoError(t, err)
	s := newState(tree, cmtlog.NewNopLogger())
	require.NoError(t, s.load())
	return s
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

func genesisCommittee(t *testing.T, s *State, n int, threshold uint32) []ed25519.PrivKey {
	t.Helper()
	doc, privs := testGenesisDoc(n, threshold)
	require.NoError(t, s.InitGenesis(doc))
	return privs
}

func signedVoteTx(t *testing.T, priv ed25519.PrivKey, signer uint64, nonce uint64, networkID string) *tx.GovTx {
	t.Helper()
	btx := &tx.GovTx{
		Version: tx.GovTxVersion1,
		Type:    tx.GovTxTypeVote,
		Nonce:   nonce,
		Signer:  signer,
		Tx:      &tx.VoteTx{Proposal: 1, Option: tx.VoteApprove},
	}
	dat, err := btx.SigData([]byte(networkID))
	require.NoError(t, err)
	sig, err := priv.Sign(dat)
	require.NoError(t, err)
	btx.Sig = [][]byte{sig}
	return btx
}

func TestVerifyEnvelope(t *testing.T) {
	s := testState(t)
	privs := genesisCommittee(t, s, 2, 1)

	btx := signedVoteTx(t, privs[0], StartAccountIdx, 0, testNetworkID)
	succ, err := s.Verify(btx, false)
	require.NoError(t, err)
	require.True(t, succ)

	// signer index must exist
	bad := signedVoteTx(t, privs[0], StartAccountIdx+9, 0, testNetworkID)
	_, err = s.Verify(bad, false)
	require.ErrorIs(t, err, ErrTxSignerNoexists)

	// nonce must match the stored counter exactly
	bad = signedVoteTx(t, privs[0], StartAccountIdx, 3, testNetworkID)
	_, err = s.Verify(bad, false)
	require.ErrorIs(t, err, ErrTxNonceInvalid)

	// a gap is tolerated in check mode only
	succ, err = s.Verify(bad, true)
	require.NoError(t, err)
	require.True(t, succ)

	// signature from the wrong key
	bad = signedVoteTx(t, privs[1], StartAccountIdx, 0, testNetworkID)
	_, err = s.Verify(bad, false)
	require.ErrorIs(t, err, ErrTxSigInvalid)

	// signature bound to another deployment
	bad = signedVoteTx(t, privs[0], StartAccountIdx, 0, "edugov-other")
	_, err = s.Verify(bad, false)
	require.ErrorIs(t, err, ErrTxSigInvalid)
}

func TestFindAccount(t *testing.T) {
	s := testState(t)
	privs := genesisCommittee(t, s, 2, 1)

	addr := privs[1].PubKey().Address()
	a, err := s.FindAccount(addr[:])
	require.NoError(t, err)
	require.NotNil(t, a)
	require.Equal(t, uint64(StartAccountIdx+1), a.Index)

	unknown := ed25519.GenPrivKey().PubKey().Address()
	a, err = s.FindAccount(unknown[:])
	require.NoError(t, err)
	require.Nil(t, a)
}
