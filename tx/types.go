package tx

import (
	"errors"

	"github.com/edverse-labs/edugov/types"
)

// VoteOption is the ballot carried by a VoteTx.
type VoteOption uint8

const (
	VoteApprove VoteOption = 1
	VoteReject  VoteOption = 2
)

func (o VoteOption) Valid() bool {
	return o == VoteApprove || o == VoteReject
}

type GovTxType uint8

const (
	GovTxTypeUnknown        GovTxType = 0
	GovTxTypeCreateProposal GovTxType = 1
	GovTxTypeVote           GovTxType = 2
)

const (
	GovTxVersion0 uint8 = 0
	GovTxVersion1 uint8 = 1
)

var (
	ErrUnsupportedTxType = errors.New("unsupported tx type")
	ErrInvalidVoteOption = errors.New("invalid vote option")
)

// CreateProposalTx asks the engine to open a new proposal. Payload is the
// encoded instruction variant matching Instruction; RequiredApprovals is
// frozen into the proposal at creation.
type CreateProposalTx struct {
	Instruction       types.InstructionType `json:"instruction"`
	Payload           []byte                `json:"payload"`
	Description       string                `json:"description"`
	RequiredApprovals uint32                `json:"requiredApprovals"`
}

// VoteTx casts an approve or reject ballot on a pending proposal.
type VoteTx struct {
	Proposal uint64     `json:"proposal"`
	Option   VoteOption `json:"option"`
}
