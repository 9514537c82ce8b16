package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeInstruction(t *testing.T) {
	ins, err := DecodeInstruction(InstructionAddSigner, []byte(`{"pubkey":"YWJj","name":"alice"}`))
	require.NoError(t, err)
	add, ok := ins.(AddSignerInstruction)
	require.True(t, ok)
	require.Equal(t, []byte("abc"), add.PubKey)
	require.Equal(t, "alice", add.Name)

	ins, err = DecodeInstruction(InstructionMintTokens, []byte(`{"recipient":"0xfeed","amount":1000}`))
	require.NoError(t, err)
	mint, ok := ins.(MintTokensInstruction)
	require.True(t, ok)
	require.Equal(t, uint64(1000), mint.Amount)

	_, err = DecodeInstruction(InstructionUnknown, []byte(`{}`))
	require.ErrorIs(t, err, ErrUnknownInstruction)
	_, err = DecodeInstruction(InstructionType(200), []byte(`{}`))
	require.ErrorIs(t, err, ErrUnknownInstruction)
	_, err = DecodeInstruction(InstructionAddSigner, []byte(`not json`))
	require.Error(t, err)
}

func TestInstructionValidate(t *testing.T) {
	cases := []struct {
		name string
		ins  Instruction
		ok   bool
	}{
		{"add signer", AddSignerInstruction{PubKey: []byte("k"), Name: "n"}, true},
		{"add signer without key", AddSignerInstruction{Name: "n"}, false},
		{"remove signer without address", RemoveSignerInstruction{}, false},
		{"zero threshold", ChangeThresholdInstruction{}, false},
		{"mint", MintTokensInstruction{Recipient: "0xabc", Amount: 1}, true},
		{"mint zero amount", MintTokensInstruction{Recipient: "0xabc"}, false},
		{"pause without flag", SetPauseFlagInstruction{Paused: true}, false},
		{"educator without address", RegisterEducatorInstruction{Name: "bob"}, false},
		{"course without educator", RegisterCourseInstruction{CourseID: "c1"}, false},
		{"treasury withdraw", TreasuryWithdrawInstruction{Recipient: "0xabc", Amount: 5}, true},
		{"emergency without recipient", EmergencyWithdrawInstruction{Reason: "halt"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.ins.Validate()
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestEncodeInstructionRoundtrip(t *testing.T) {
	ins := RegisterCourseInstruction{CourseID: "go-101", Educator: "0xed", Name: "Intro"}
	dat, err := EncodeInstruction(ins)
	require.NoError(t, err)
	got, err := DecodeInstruction(InstructionRegisterCourse, dat)
	require.NoError(t, err)
	require.Equal(t, ins, got)

	// encoding refuses payloads that would fail at proposal creation
	_, err = EncodeInstruction(ChangeThresholdInstruction{})
	require.Error(t, err)
}

func TestInstructionTypeRegistry(t *testing.T) {
	require.True(t, InstructionAddSigner.Registry())
	require.True(t, InstructionRemoveSigner.Registry())
	require.True(t, InstructionChangeThreshold.Registry())
	require.False(t, InstructionMintTokens.Registry())
	require.False(t, InstructionEmergencyWithdraw.Registry())
	require.Equal(t, "mint_tokens", InstructionMintTokens.String())
	require.Equal(t, "unknown", InstructionUnknown.String())
}
