package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	app_config "github.com/edverse-labs/edugov/config"
	"github.com/edverse-labs/edugov/types"
)

type printInfo struct {
	NetworkID string `json:"network_id"`
	Address   string `json:"address"`
	PubKey    string `json:"pub_key"`
	GenFile   string `json:"genesis_file"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)

	return err
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize signer key, genesis and service configuration files",
	Long: `Creates the home directory layout with a fresh ed25519 signer key,
a single-signer genesis document and a default config.toml.`,
	Args: cobra.ExactArgs(0),
	RunE: initRun,
}

func init() {
	initCmd.Flags().BoolP(types.FlagOverwrite, "o", false, "overwrite the genesis.json file")
	initCmd.Flags().String(types.FlagNetworkID, "", "network id, if left blank will be randomly created")
	initCmd.Flags().String(types.FlagHome, "", "home directory")
}

func initRun(cmd *cobra.Command, args []string) error {
	home, _ := cmd.Flags().GetString(types.FlagHome)
	networkID, _ := cmd.Flags().GetString(types.FlagNetworkID)
	overwrite, _ := cmd.Flags().GetBool(types.FlagOverwrite)

	if networkID == "" {
		networkID = fmt.Sprintf("edugov-%v", rand.Uint64())
	}

	cfg := app_config.DefaultConfig(home)
	cfg.NetworkID = networkID

	pk, err := app_config.InitializeSignerFiles(cfg, nil)
	if err != nil {
		return err
	}

	genFile := cfg.GenesisFile()
	if _, err := os.Stat(genFile); err == nil && !overwrite {
		return fmt.Errorf("genesis.json file already exists: %v", genFile)
	}

	genesis := &types.GenesisDoc{
		GenesisTime: time.Now(),
		NetworkID:   networkID,
		Signers: []types.GenesisSigner{
			{Address: pk.Address(), PubKey: pk, Name: "genesis-signer"},
		},
		Threshold: 1,
	}
	if err = types.ExportGenesisFile(genesis, genFile); err != nil {
		return fmt.Errorf("failed to export genesis file %v", err)
	}
	app_config.WriteConfigFile(cfg.ConfigFile(), cfg)

	return displayInfo(printInfo{
		NetworkID: networkID,
		Address:   pk.Address().String(),
		PubKey:    fmt.Sprintf("%x", pk.Bytes()),
		GenFile:   genFile,
	})
}
