package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/spf13/cobra"

	"github.com/edverse-labs/edugov/app"
	app_config "github.com/edverse-labs/edugov/config"
	"github.com/edverse-labs/edugov/indexer"
	"github.com/edverse-labs/edugov/types"
)

var homeDir string

var clCmd = &cobra.Command{
	Use:   "edugov",
	Short: "Committee governance service for the education platform",
	Long: `Runs the permissioned governance layer: committee registry,
proposal lifecycle, indexer and HTTP API.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	clCmd.Flags().StringVarP(&homeDir, "homedir", "d", "", "home directory")
}

func run(cmd *cobra.Command, args []string) {
	if homeDir == "" {
		homeDir = os.ExpandEnv("$HOME/.edugov")
	}

	cfg, err := app_config.LoadConfig(homeDir)
	if err != nil {
		log.Fatalf("Reading config: %v", err)
	}

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err = cmtflags.ParseLogLevel(cfg.LogLevel, logger, cmtconfig.DefaultLogLevel)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}

	genDoc, err := types.GenesisDocFromFile(cfg.GenesisFile())
	if err != nil {
		log.Fatalf("read genesis: %v", err)
	}

	govApp, err := app.NewGovApp(cfg, logger)
	if err != nil {
		log.Fatalf("new App err:%v", err)
	}
	registerDomainExecutors(govApp, logger)

	if err = govApp.InitGenesis(genDoc); err != nil {
		log.Fatalf("init genesis err:%v", err)
	}
	govApp.Start()

	idx, err := indexer.NewGovIndexer(logger, cfg.IndexerFile(), govApp.Events())
	if err != nil {
		log.Fatalf("new indexer err:%v", err)
	}
	idx.Start()

	service := indexer.NewService(cfg.ListenAddr, govApp, idx)
	go service.Start()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	govApp.Stop()
	if err := idx.Close(); err != nil {
		logger.Error("close indexer fail", "err", err)
	}
}

// registerDomainExecutors wires the downstream collaborators. Until the
// token ledger and registry services expose their internal APIs here, the
// executors acknowledge dispatch and the indexer records the action.
func registerDomainExecutors(govApp *app.GovApp, logger cmtlog.Logger) {
	logger = logger.With("module", "dispatch")
	for _, tp := range []types.InstructionType{
		types.InstructionMintTokens,
		types.InstructionSetPauseFlag,
		types.InstructionRegisterEducator,
		types.InstructionRegisterCourse,
		types.InstructionTreasuryWithdraw,
		types.InstructionEmergencyWithdraw,
	} {
		tp := tp
		govApp.RegisterExecutor(tp, func(p *types.Proposal, ins types.Instruction) error {
			logger.Info("approved instruction dispatched", "proposal", p.Index, "instruction", tp.String())
			return nil
		})
	}
}
