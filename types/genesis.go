package types

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
)

const (
	FlagHome      = "home"
	FlagNetworkID = "network-id"
	FlagOverwrite = "overwrite"
)

const ModuleName = "edugov"

// GenesisSigner is one founding committee member.
type GenesisSigner struct {
	Address crypto.Address `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	Name    string         `json:"name"`
}

// GenesisDoc defines the initial committee, the approval threshold and the
// platform authority of a governance deployment.
type GenesisDoc struct {
	GenesisTime time.Time       `json:"genesis_time"`
	NetworkID   string          `json:"network_id"`
	Signers     []GenesisSigner `json:"signers"`
	Threshold   uint32          `json:"threshold"`
	Authority   crypto.PubKey   `json:"authority,omitempty"`
}

// SaveAs is a utility method for saving a GenesisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := cmtjson.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, genDocBytes, 0o600)
}

func (genDoc *GenesisDoc) ValidateAndComplete() error {
	if genDoc.NetworkID == "" {
		return errors.New("genesis doc must include non-empty network_id")
	}
	if len(genDoc.Signers) == 0 {
		return errors.New("genesis doc must include at least one signer")
	}
	if genDoc.Threshold == 0 || genDoc.Threshold > uint32(len(genDoc.Signers)) {
		return fmt.Errorf("threshold %d outside [1, %d]", genDoc.Threshold, len(genDoc.Signers))
	}
	if genDoc.GenesisTime.IsZero() {
		genDoc.GenesisTime = time.Now().Round(0).UTC()
	}
	return nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}

func GenesisDocFromFile(genFile string) (*GenesisDoc, error) {
	dat, err := os.ReadFile(genFile)
	if err != nil {
		return nil, err
	}
	genDoc := new(GenesisDoc)
	if err := cmtjson.Unmarshal(dat, genDoc); err != nil {
		return nil, err
	}
	if err := genDoc.ValidateAndComplete(); err != nil {
		return nil, err
	}
	return genDoc, nil
}
