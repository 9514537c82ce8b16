package app

import (
	"context"
	"errors"
	"sync"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"

	"github.com/edverse-labs/edugov/config"
	"github.com/edverse-labs/edugov/state"
	"github.com/edverse-labs/edugov/tx"
	"github.com/edverse-labs/edugov/tx/handler"
	"github.com/edverse-labs/edugov/types"
)

var ErrUnsupportedTx = errors.New("unsupported tx")

// CommittedEvents is one committed state transition as seen by the
// indexer: the new height, the new state hash and the emitted events.
type CommittedEvents struct {
	Height uint64
	Hash   common.Hash
	Events []types.Event
}

// GovApp owns the governance state machine. All writes funnel through its
// mutex: transaction delivery, lazy expiry checks and the background
// sweep never interleave.
type GovApp struct {
	cfg    *config.Config
	logger cmtlog.Logger

	db        *state.StateDB
	txHdlrs   map[tx.GovTxType]handler.TxHandler
	executors map[types.InstructionType]state.DomainExecutor

	mtx sync.Mutex

	eventCh chan CommittedEvents
	quitCh  chan struct{}
	wg      sync.WaitGroup
}

func NewGovApp(cfg *config.Config, logger cmtlog.Logger) (app *GovApp, err error) {
	logger = logger.With("module", "app")

	db, err := state.NewStateDB(cfg.DataDir(), logger)
	if err != nil {
		return nil, err
	}

	app = &GovApp{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		txHdlrs:   make(map[tx.GovTxType]handler.TxHandler),
		executors: make(map[types.InstructionType]state.DomainExecutor),
		eventCh:   make(chan CommittedEvents, 256),
		quitCh:    make(chan struct{}),
	}
	app.registerTxHandler()
	return
}

func (app *GovApp) registerTxHandler() {
	app.txHdlrs = map[tx.GovTxType]handler.TxHandler{
		tx.GovTxTypeCreateProposal: handler.NewProposalTxHandler(app.logger, app.cfg.VotingWindow()),
		tx.GovTxTypeVote:           handler.NewVoteTxHandler(app.logger, app.dispatch, app.checkDispatch),
	}
}

// RegisterExecutor binds a domain collaborator to a non-registry
// instruction type. Must be called before Start.
func (app *GovApp) RegisterExecutor(tp types.InstructionType, fn state.DomainExecutor) {
	app.executors[tp] = fn
}

func (app *GovApp) dispatch(p *types.Proposal, ins types.Instruction) error {
	fn, ok := app.executors[ins.Type()]
	if !ok {
		return state.ErrNoExecutor
	}
	return fn(p, ins)
}

// checkDispatch stands in for dispatch on validation paths: it reports a
// missing executor without invoking the registered one.
func (app *GovApp) checkDispatch(p *types.Proposal, ins types.Instruction) error {
	if _, ok := app.executors[ins.Type()]; !ok {
		return state.ErrNoExecutor
	}
	return nil
}

// Events is the committed-transition feed consumed by the indexer.
func (app *GovApp) Events() <-chan CommittedEvents {
	return app.eventCh
}

func (app *GovApp) DB() *state.StateDB {
	return app.db
}

func (app *GovApp) Start() {
	if app.cfg.SweepInterval() > 0 {
		app.wg.Add(1)
		go app.sweepLoop()
	}
}

func (app *GovApp) Stop() {
	close(app.quitCh)
	app.wg.Wait()
	if err := app.db.Close(); err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	close(app.eventCh)
	app.logger.Info("governance app stopped")
}

// InitGenesis seeds the registry from the genesis document. A no-op when
// state already exists on disk.
func (app *GovApp) InitGenesis(doc *types.GenesisDoc) error {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	if app.db.Header().Hash != nil {
		app.logger.Info("state exists, skip genesis", "height", app.db.Header().Height)
		return nil
	}
	st := app.db.NewState()
	st.SetNetworkID(doc.NetworkID)
	if err := st.InitGenesis(doc); err != nil {
		app.logger.Error("init genesis fail", "err", err)
		return err
	}
	if _, err := st.Update(); err != nil {
		app.logger.Error("init genesis update state fail", "err", err)
		return err
	}
	h, err := app.db.SetState(st)
	if err != nil {
		app.logger.Error("init genesis apply state fail", "err", err)
		return err
	}
	app.logger.Info("genesis initialized", "signers", st.SignerCount(), "threshold", st.Threshold(), "hash", h)
	return nil
}

func (app *GovApp) parseTx(txDat []byte, allowNonceGap bool) (btx *tx.GovTx, err error) {
	btx, err = tx.UnmarshalGovTx(txDat)
	if err != nil {
		return
	}
	if btx != nil {
		_, err = app.db.State().Verify(btx, allowNonceGap)
	}
	return
}

// CheckTx validates a raw transaction against a throwaway state without
// committing anything.
func (app *GovApp) CheckTx(ctx context.Context, txDat []byte) error {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	btx, err := app.parseTx(txDat, true)
	if err != nil {
		app.logger.Info("parse tx fail", "err", err)
		return err
	}
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		app.logger.Error("unsupported tx", "type", btx.Type)
		return ErrUnsupportedTx
	}
	return h.Check(ctx, app.db.State(), btx, time.Now())
}

// DeliverTx verifies, applies and commits a raw transaction. On error the
// working state is discarded and nothing reaches disk, with one
// exception: a vote that lands after the proposal's window has elapsed
// commits the expiry transition and still reports ErrProposalExpired.
func (app *GovApp) DeliverTx(ctx context.Context, txDat []byte) (events []types.Event, hash common.Hash, err error) {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	btx, err := app.parseTx(txDat, false)
	if err != nil {
		app.logger.Info("deliver tx parse fail", "err", err)
		return nil, common.Hash{}, err
	}
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		app.logger.Error("unsupported tx", "type", btx.Type)
		return nil, common.Hash{}, ErrUnsupportedTx
	}

	st := app.db.NewState()
	events, applyErr := h.Apply(ctx, st, btx, time.Now())
	if applyErr != nil && !(errors.Is(applyErr, state.ErrProposalExpired) && len(events) > 0) {
		return nil, common.Hash{}, applyErr
	}
	hash, err = app.commit(st, events)
	if err != nil {
		return nil, common.Hash{}, err
	}
	return events, hash, applyErr
}

// CheckProposalStatus applies the lazy expiry transition for one proposal
// and returns its current status.
func (app *GovApp) CheckProposalStatus(idx uint64) (types.ProposalStatus, error) {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	st := app.db.NewState()
	status, events, err := st.CheckProposalStatus(idx, time.Now())
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return status, nil
	}
	if _, err = app.commit(st, events); err != nil {
		return 0, err
	}
	return status, nil
}

// commit flushes the working state and publishes its events. Caller holds
// the app mutex.
func (app *GovApp) commit(st *state.State, events []types.Event) (hash common.Hash, err error) {
	if _, err = st.Update(); err != nil {
		app.logger.Error("state update fail", "err", err)
		return
	}
	hash, err = app.db.SetState(st)
	if err != nil {
		app.logger.Error("apply state fail", "err", err)
		return
	}
	if len(events) > 0 {
		select {
		case app.eventCh <- CommittedEvents{Height: st.Header().Height, Hash: hash, Events: events}:
		case <-app.quitCh:
		}
	}
	return
}

func (app *GovApp) sweepLoop() {
	defer app.wg.Done()
	ticker := time.NewTicker(app.cfg.SweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			app.sweepOnce(time.Now())
		case <-app.quitCh:
			return
		}
	}
}

func (app *GovApp) sweepOnce(now time.Time) {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	st := app.db.NewState()
	events, err := st.ExpirePending(now)
	if err != nil {
		app.logger.Error("expiry sweep fail", "err", err)
		return
	}
	if len(events) == 0 {
		return
	}
	if _, err = app.commit(st, events); err != nil {
		return
	}
	app.logger.Info("expired proposals settled", "count", len(events))
}
