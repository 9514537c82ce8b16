package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edverse-labs/edugov/crypto"
	"github.com/edverse-labs/edugov/tx"
	"github.com/edverse-labs/edugov/types"
)

type newProposalArguments struct {
	Url         string
	Index       uint64
	Nonce       uint64
	Skey        string
	Instruction uint64
	Payload     string
	Description string
	Required    uint32
	NoSend      bool
}

var newProposalArgs newProposalArguments

var newProposalCmd = &cobra.Command{
	Use:   "newproposal",
	Short: "",
	Long:  ``,
	Run:   newProposalRun,
}

func init() {
	urlFlag(newProposalCmd, &newProposalArgs.Url)
	newProposalCmd.Flags().Uint64VarP(&newProposalArgs.Index, "index", "i", 0, "account index")
	newProposalCmd.Flags().Uint64VarP(&newProposalArgs.Nonce, "nonce", "n", 0, "account nonce")
	newProposalCmd.Flags().StringVarP(&newProposalArgs.Skey, "skeyPath", "s", "./config/signer_key.json", "private key path")
	newProposalCmd.Flags().Uint64VarP(&newProposalArgs.Instruction, "instruction", "t", 0, "instruction type")
	newProposalCmd.Flags().StringVarP(&newProposalArgs.Payload, "payload", "p", "", "instruction payload json")
	newProposalCmd.Flags().StringVarP(&newProposalArgs.Description, "desc", "m", "", "proposal description")
	newProposalCmd.Flags().Uint32VarP(&newProposalArgs.Required, "required", "r", 1, "required approvals")
	newProposalCmd.Flags().BoolVarP(&newProposalArgs.NoSend, "nosend", "", false, "not send transaction but print signature")
}

func newProposalRun(cmd *cobra.Command, args []string) {
	networkID, err := queryNetworkID(newProposalArgs.Url)
	if err != nil {
		fmt.Printf("get network id err:%v\n", err)
		return
	}
	nonce := newProposalArgs.Nonce
	if nonce == 0 {
		act, err := queryAccount(newProposalArgs.Url, newProposalArgs.Index, "")
		if err != nil {
			return
		}
		nonce = act.Nonce
	}
	insType := types.InstructionType(newProposalArgs.Instruction)
	ins, err := types.DecodeInstruction(insType, []byte(newProposalArgs.Payload))
	if err != nil {
		fmt.Printf("invalid payload:%v\n", err)
		return
	}
	if err = ins.Validate(); err != nil {
		fmt.Printf("invalid payload:%v\n", err)
		return
	}
	btx := tx.GovTx{
		Version: tx.GovTxVersion1,
		Nonce:   nonce,
		Signer:  newProposalArgs.Index,
	}
	stx := &tx.CreateProposalTx{
		Instruction:       insType,
		Payload:           []byte(newProposalArgs.Payload),
		Description:       newProposalArgs.Description,
		RequiredApprovals: newProposalArgs.Required,
	}
	btx.Tx = stx
	btx.Type = tx.GovTxTypeCreateProposal
	dat, err := btx.SigData([]byte(networkID))
	if err != nil {
		fmt.Printf("tx sign data err:%v\n", err)
		return
	}
	println("data signed:", hex.EncodeToString(dat))
	pv := crypto.LoadFilePV(newProposalArgs.Skey)
	sig, err := pv.Sign(dat)
	if err != nil {
		fmt.Printf("sign tx err:%v\n", err)
		return
	}
	println("pubkey:", hex.EncodeToString(pv.PublicKey()))
	println("address:", pv.Address())
	if newProposalArgs.NoSend {
		fmt.Println("transaction signature:")
		fmt.Println(hex.EncodeToString(sig))
		return
	}
	btx.Sig = [][]byte{sig}
	sendGovTx(newProposalArgs.Url, &btx)
}
