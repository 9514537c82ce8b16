package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edverse-labs/edugov/crypto"
	"github.com/edverse-labs/edugov/tx"
)

type voteArguments struct {
	Url      string
	Index    uint64
	Nonce    uint64
	Skey     string
	Proposal uint64
	Reject   bool
	NoSend   bool
}

var voteArgs voteArguments

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "",
	Long:  ``,
	Run:   voteRun,
}

func init() {
	urlFlag(voteCmd, &voteArgs.Url)
	voteCmd.Flags().Uint64VarP(&voteArgs.Index, "index", "i", 0, "account index")
	voteCmd.Flags().Uint64VarP(&voteArgs.Nonce, "nonce", "n", 0, "account nonce")
	voteCmd.Flags().StringVarP(&voteArgs.Skey, "skeyPath", "s", "./config/signer_key.json", "private key path")
	voteCmd.Flags().Uint64VarP(&voteArgs.Proposal, "proposal", "p", 0, "proposal index")
	voteCmd.Flags().BoolVarP(&voteArgs.Reject, "reject", "", false, "cast a rejection instead of an approval")
	voteCmd.Flags().BoolVarP(&voteArgs.NoSend, "nosend", "", false, "not send transaction but print signature")
}

func voteRun(cmd *cobra.Command, args []string) {
	networkID, err := queryNetworkID(voteArgs.Url)
	if err != nil {
		fmt.Printf("get network id err:%v\n", err)
		return
	}
	nonce := voteArgs.Nonce
	if nonce == 0 {
		act, err := queryAccount(voteArgs.Url, voteArgs.Index, "")
		if err != nil {
			return
		}
		nonce = act.Nonce
	}
	option := tx.VoteApprove
	if voteArgs.Reject {
		option = tx.VoteReject
	}
	btx := tx.GovTx{
		Version: tx.GovTxVersion1,
		Nonce:   nonce,
		Signer:  voteArgs.Index,
	}
	btx.Tx = &tx.VoteTx{
		Proposal: voteArgs.Proposal,
		Option:   option,
	}
	btx.Type = tx.GovTxTypeVote
	dat, err := btx.SigData([]byte(networkID))
	if err != nil {
		fmt.Printf("tx sign data err:%v\n", err)
		return
	}
	pv := crypto.LoadFilePV(voteArgs.Skey)
	sig, err := pv.Sign(dat)
	if err != nil {
		fmt.Printf("sign tx err:%v\n", err)
		return
	}
	if voteArgs.NoSend {
		fmt.Println("transaction signature:")
		fmt.Println(hex.EncodeToString(sig))
		return
	}
	btx.Sig = [][]byte{sig}
	sendGovTx(voteArgs.Url, &btx)
}
