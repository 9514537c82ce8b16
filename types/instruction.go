package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// InstructionType is the closed catalog of privileged actions a proposal
// may request. Execution dispatch switches over it exhaustively; unknown
// tags are rejected when the proposal is created.
type InstructionType uint8

const (
	InstructionUnknown         InstructionType = 0
	InstructionAddSigner       InstructionType = 1
	InstructionRemoveSigner    InstructionType = 2
	InstructionChangeThreshold InstructionType = 3

	InstructionMintTokens        InstructionType = 10
	InstructionSetPauseFlag      InstructionType = 11
	InstructionRegisterEducator  InstructionType = 12
	InstructionRegisterCourse    InstructionType = 13
	InstructionTreasuryWithdraw  InstructionType = 14
	InstructionEmergencyWithdraw InstructionType = 15
)

var ErrUnknownInstruction = errors.New("unknown instruction type")

func (t InstructionType) String() string {
	switch t {
	case InstructionAddSigner:
		return "add_signer"
	case InstructionRemoveSigner:
		return "remove_signer"
	case InstructionChangeThreshold:
		return "change_threshold"
	case InstructionMintTokens:
		return "mint_tokens"
	case InstructionSetPauseFlag:
		return "set_pause_flag"
	case InstructionRegisterEducator:
		return "register_educator"
	case InstructionRegisterCourse:
		return "register_course"
	case InstructionTreasuryWithdraw:
		return "treasury_withdraw"
	case InstructionEmergencyWithdraw:
		return "emergency_withdraw"
	}
	return "unknown"
}

// Registry reports whether the instruction mutates the signer registry
// itself rather than dispatching to a platform collaborator.
func (t InstructionType) Registry() bool {
	switch t {
	case InstructionAddSigner, InstructionRemoveSigner, InstructionChangeThreshold:
		return true
	}
	return false
}

// Instruction is one decoded payload variant. Validate covers only the
// shape of the payload; membership and threshold rules are enforced by the
// registry when the instruction is applied.
type Instruction interface {
	Type() InstructionType
	Validate() error
}

type AddSignerInstruction struct {
	PubKey []byte `json:"pubkey"`
	Name   string `json:"name"`
}

func (AddSignerInstruction) Type() InstructionType { return InstructionAddSigner }

func (ins AddSignerInstruction) Validate() error {
	if len(ins.PubKey) == 0 {
		return errors.New("empty signer pubkey")
	}
	return nil
}

type RemoveSignerInstruction struct {
	Address string `json:"address"`
}

func (RemoveSignerInstruction) Type() InstructionType { return InstructionRemoveSigner }

func (ins RemoveSignerInstruction) Validate() error {
	if ins.Address == "" {
		return errors.New("empty signer address")
	}
	return nil
}

type ChangeThresholdInstruction struct {
	NewThreshold uint32 `json:"new_threshold"`
}

func (ChangeThresholdInstruction) Type() InstructionType { return InstructionChangeThreshold }

func (ins ChangeThresholdInstruction) Validate() error {
	if ins.NewThreshold == 0 {
		return errors.New("threshold must be greater than 0")
	}
	return nil
}

type MintTokensInstruction struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

func (MintTokensInstruction) Type() InstructionType { return InstructionMintTokens }

func (ins MintTokensInstruction) Validate() error {
	if ins.Recipient == "" {
		return errors.New("empty recipient")
	}
	if ins.Amount == 0 {
		return errors.New("zero amount")
	}
	return nil
}

type SetPauseFlagInstruction struct {
	Flag   string `json:"flag"`
	Paused bool   `json:"paused"`
}

func (SetPauseFlagInstruction) Type() InstructionType { return InstructionSetPauseFlag }

func (ins SetPauseFlagInstruction) Validate() error {
	if ins.Flag == "" {
		return errors.New("empty pause flag")
	}
	return nil
}

type RegisterEducatorInstruction struct {
	Address        string `json:"address"`
	Name           string `json:"name"`
	DailyMintLimit uint64 `json:"daily_mint_limit"`
}

func (RegisterEducatorInstruction) Type() InstructionType { return InstructionRegisterEducator }

func (ins RegisterEducatorInstruction) Validate() error {
	if ins.Address == "" {
		return errors.New("empty educator address")
	}
	return nil
}

type RegisterCourseInstruction struct {
	CourseID string `json:"course_id"`
	Educator string `json:"educator"`
	Name     string `json:"name"`
}

func (RegisterCourseInstruction) Type() InstructionType { return InstructionRegisterCourse }

func (ins RegisterCourseInstruction) Validate() error {
	if ins.CourseID == "" {
		return errors.New("empty course id")
	}
	if ins.Educator == "" {
		return errors.New("empty educator address")
	}
	return nil
}

type TreasuryWithdrawInstruction struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

func (TreasuryWithdrawInstruction) Type() InstructionType { return InstructionTreasuryWithdraw }

func (ins TreasuryWithdrawInstruction) Validate() error {
	if ins.Recipient == "" {
		return errors.New("empty recipient")
	}
	if ins.Amount == 0 {
		return errors.New("zero amount")
	}
	return nil
}

type EmergencyWithdrawInstruction struct {
	Recipient string `json:"recipient"`
	Reason    string `json:"reason"`
}

func (EmergencyWithdrawInstruction) Type() InstructionType { return InstructionEmergencyWithdraw }

func (ins EmergencyWithdrawInstruction) Validate() error {
	if ins.Recipient == "" {
		return errors.New("empty recipient")
	}
	return nil
}

func decodeInstruction[T Instruction](dat []byte) (Instruction, error) {
	var ins T
	if err := json.Unmarshal(dat, &ins); err != nil {
		return nil, err
	}
	return ins, nil
}

// DecodeInstruction decodes an opaque proposal payload into its typed
// variant. Payloads are decoded once here, at the boundary; the engine
// stores the raw bytes and never inspects them elsewhere.
func DecodeInstruction(tp InstructionType, dat []byte) (Instruction, error) {
	switch tp {
	case InstructionAddSigner:
		return decodeInstruction[AddSignerInstruction](dat)
	case InstructionRemoveSigner:
		return decodeInstruction[RemoveSignerInstruction](dat)
	case InstructionChangeThreshold:
		return decodeInstruction[ChangeThresholdInstruction](dat)
	case InstructionMintTokens:
		return decodeInstruction[MintTokensInstruction](dat)
	case InstructionSetPauseFlag:
		return decodeInstruction[SetPauseFlagInstruction](dat)
	case InstructionRegisterEducator:
		return decodeInstruction[RegisterEducatorInstruction](dat)
	case InstructionRegisterCourse:
		return decodeInstruction[RegisterCourseInstruction](dat)
	case InstructionTreasuryWithdraw:
		return decodeInstruction[TreasuryWithdrawInstruction](dat)
	case InstructionEmergencyWithdraw:
		return decodeInstruction[EmergencyWithdrawInstruction](dat)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownInstruction, tp)
	}
}

// EncodeInstruction is the inverse boundary helper used by clients
// building proposals.
func EncodeInstruction(ins Instruction) ([]byte, error) {
	if err := ins.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(ins)
}
