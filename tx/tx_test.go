package tx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edverse-labs/edugov/types"
)

func TestUnmarshalGovTx(t *testing.T) {
	btx := &GovTx{
		Version: GovTxVersion1,
		Type:    GovTxTypeCreateProposal,
		Nonce:   7,
		Signer:  65536,
		Tx: &CreateProposalTx{
			Instruction:       types.InstructionChangeThreshold,
			Payload:           []byte(`{"new_threshold":3}`),
			Description:       "raise threshold",
			RequiredApprovals: 2,
		},
		Sig: [][]byte{[]byte("sig")},
	}
	dat, err := MarshalGovTx(btx)
	require.NoError(t, err)

	got, err := UnmarshalGovTx(dat)
	require.NoError(t, err)
	require.Equal(t, btx.Version, got.Version)
	require.Equal(t, btx.Nonce, got.Nonce)
	require.Equal(t, btx.Signer, got.Signer)
	require.Equal(t, btx.Sig, got.Sig)
	ptx, ok := got.Tx.(*CreateProposalTx)
	require.True(t, ok)
	require.Equal(t, btx.Tx, ptx)

	vote := &GovTx{
		Version: GovTxVersion1,
		Type:    GovTxTypeVote,
		Signer:  65537,
		Tx:      &VoteTx{Proposal: 4, Option: VoteReject},
	}
	dat, err = MarshalGovTx(vote)
	require.NoError(t, err)
	got, err = UnmarshalGovTx(dat)
	require.NoError(t, err)
	vtx, ok := got.Tx.(*VoteTx)
	require.True(t, ok)
	require.Equal(t, uint64(4), vtx.Proposal)
	require.Equal(t, VoteReject, vtx.Option)
}

func TestUnmarshalGovTxUnknownType(t *testing.T) {
	_, err := UnmarshalGovTx([]byte(`{"type":99}`))
	require.ErrorIs(t, err, ErrUnsupportedTxType)
	_, err = UnmarshalGovTx([]byte(`not json`))
	require.ErrorIs(t, err, ErrUnsupportedTxType)
}

func TestSigDataBindsNetworkID(t *testing.T) {
	btx := &GovTx{
		Version: GovTxVersion1,
		Type:    GovTxTypeVote,
		Nonce:   1,
		Signer:  65536,
		Tx:      &VoteTx{Proposal: 1, Option: VoteApprove},
		Sig:     [][]byte{[]byte("already signed")},
	}
	a, err := btx.SigData([]byte("net-a"))
	require.NoError(t, err)
	b, err := btx.SigData([]byte("net-b"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	// building the digest leaves the envelope's signature untouched
	require.Equal(t, [][]byte{[]byte("already signed")}, btx.Sig)
}

func TestVoteOptionValid(t *testing.T) {
	require.True(t, VoteApprove.Valid())
	require.True(t, VoteReject.Valid())
	require.False(t, VoteOption(0).Valid())
	require.False(t, VoteOption(3).Valid())
}
