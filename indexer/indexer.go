package indexer

import (
	"errors"
	"sync"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"

	"github.com/edverse-labs/edugov/app"
	"github.com/edverse-labs/edugov/types"
)

// GovIndexer folds the app's committed-event feed into a sqlite read
// model. It is the query side only; state truth stays in the iavl tree.
type GovIndexer struct {
	logger        cmtlog.Logger
	Height        uint64
	db            *gorm.DB
	events        <-chan app.CommittedEvents
	eventHandlers map[string]eventHandler

	wg sync.WaitGroup
}

type eventHandler func(event types.Event, height uint64)

func NewGovIndexer(logger cmtlog.Logger, dbPath string, events <-chan app.CommittedEvents) (*GovIndexer, error) {
	logger.Info("NewGovIndexer", "dbPath", dbPath)
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Height{}, &Proposal{}, &Vote{}, &Signer{}, &ThresholdChange{}, &DomainAction{}).Error; err != nil {
		return nil, err
	}
	h := Height{Id: 1}
	if err = db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	c := GovIndexer{
		logger:        logger.With("module", "indexer"),
		Height:        h.Height,
		db:            db,
		events:        events,
		eventHandlers: map[string]eventHandler{},
	}
	c.eventHandlers = map[string]eventHandler{
		types.EventProposalType:         c.handleEventProposal,
		types.EventVoteType:             c.handleEventVote,
		types.EventProposalSettledType:  c.handleEventProposalSettled,
		types.EventSignerAddedType:      c.handleEventSignerAdded,
		types.EventSignerRemovedType:    c.handleEventSignerRemoved,
		types.EventThresholdChangedType: c.handleEventThresholdChanged,
		types.EventDomainActionType:     c.handleEventDomainAction,
	}
	return &c, nil
}

// Start consumes the event feed until the app closes it.
func (c *GovIndexer) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for committed := range c.events {
			if committed.Height <= c.Height {
				// already indexed before a restart
				continue
			}
			for _, ev := range committed.Events {
				c.handleEvent(ev, committed.Height)
			}
			c.Height = committed.Height
			if err := c.db.Save(&Height{Id: 1, Height: c.Height}).Error; err != nil {
				c.logger.Error("save height fail", "err", err)
			}
		}
	}()
}

func (c *GovIndexer) Wait() {
	c.wg.Wait()
}

func (c *GovIndexer) Close() error {
	c.wg.Wait()
	return c.db.Close()
}

func (c *GovIndexer) handleEvent(event types.Event, height uint64) {
	if h, ok := c.eventHandlers[event.Type]; ok {
		h(event, height)
	}
}

func (c *GovIndexer) handleEventProposal(event types.Event, height uint64) {
	ev := types.DecodeEventProposal(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	proposal := Proposal{
		Id:                ev.ProposalIndex,
		ProposerIndex:     ev.Proposer,
		ProposerAddress:   ev.ProposerAddress,
		Instruction:       ev.Instruction,
		Description:       ev.Description,
		RequiredApprovals: ev.RequiredApprovals,
		NewHeight:         height,
		Status:            uint64(types.ProposalStatusPending),
		CreateTimestamp:   time.Now().Unix(),
		ExpireTimestamp:   ev.ExpireAt,
	}
	if err := c.db.Save(&proposal).Error; err != nil {
		c.logger.Error("save proposal fail", "err", err)
	}
}

func (c *GovIndexer) handleEventVote(event types.Event, height uint64) {
	ev := types.DecodeEventVote(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	vote := Vote{
		Proposal:     ev.ProposalIndex,
		VoterIndex:   ev.Voter,
		VoterAddress: ev.VoterAddress,
		Height:       height,
		Approve:      ev.Approve,
	}
	if err := c.db.Save(&vote).Error; err != nil {
		c.logger.Error("save vote fail", "err", err)
	}
}

func (c *GovIndexer) handleEventProposalSettled(event types.Event, height uint64) {
	ev := types.DecodeEventProposalSettled(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	var proposal Proposal
	if err := c.db.First(&proposal, ev.ProposalIndex).Error; err != nil {
		c.logger.Error("get proposal fail", "err", err)
		return
	}
	proposal.Status = ev.Status
	proposal.SettleHeight = height
	if err := c.db.Save(&proposal).Error; err != nil {
		c.logger.Error("save proposal fail", "err", err)
	}
}

func (c *GovIndexer) handleEventSignerAdded(event types.Event, height uint64) {
	ev := types.DecodeEventSignerAdded(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	signer := Signer{
		Id:      ev.Signer,
		Address: ev.Address,
		Name:    ev.Name,
		Height:  height,
		Active:  true,
	}
	if err := c.db.Save(&signer).Error; err != nil {
		c.logger.Error("save signer fail", "err", err)
	}
}

func (c *GovIndexer) handleEventSignerRemoved(event types.Event, height uint64) {
	ev := types.DecodeEventSignerRemoved(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	var signer Signer
	if err := c.db.First(&signer, ev.Signer).Error; err != nil {
		c.logger.Error("get signer fail", "err", err)
		return
	}
	signer.Active = false
	signer.Height = height
	if err := c.db.Save(&signer).Error; err != nil {
		c.logger.Error("save signer fail", "err", err)
	}
}

func (c *GovIndexer) handleEventThresholdChanged(event types.Event, height uint64) {
	ev := types.DecodeEventThresholdChanged(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	change := ThresholdChange{
		OldThreshold: ev.OldThreshold,
		NewThreshold: ev.NewThreshold,
		Height:       height,
	}
	if err := c.db.Save(&change).Error; err != nil {
		c.logger.Error("save threshold change fail", "err", err)
	}
}

func (c *GovIndexer) handleEventDomainAction(event types.Event, height uint64) {
	ev := types.DecodeEventDomainAction(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	action := DomainAction{
		Proposal:    ev.ProposalIndex,
		Instruction: ev.Instruction,
		Payload:     string(ev.Payload),
		Height:      height,
	}
	if err := c.db.Save(&action).Error; err != nil {
		c.logger.Error("save domain action fail", "err", err)
	}
}

func (c *GovIndexer) getProposals(page int, pageSize int) ([]Proposal, uint64, error) {
	var proposals []Proposal
	err := c.db.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&proposals).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Proposal{}).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *GovIndexer) getProposalById(proposalId uint64) (Proposal, error) {
	var proposal Proposal
	err := c.db.Where("id = ?", proposalId).First(&proposal).Error
	if err != nil {
		return Proposal{}, err
	}
	return proposal, nil
}

func (c *GovIndexer) getProposalsByStatus(status uint64, page int, pageSize int) ([]Proposal, uint64, error) {
	var proposals []Proposal
	err := c.db.Where("status = ?", status).Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&proposals).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Proposal{}).Where("status = ?", status).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *GovIndexer) getProposalsByProposerAddr(proposerAddr string, page int, pageSize int) ([]Proposal, uint64, error) {
	var proposals []Proposal
	err := c.db.Where("proposer_address = ?", proposerAddr).Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&proposals).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Proposal{}).Where("proposer_address = ?", proposerAddr).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *GovIndexer) getVotesByProposal(proposal uint64, page int, pageSize int) ([]Vote, uint64, error) {
	var votes []Vote
	err := c.db.Where("proposal = ?", proposal).Order("id asc").Offset(page * pageSize).Limit(pageSize).Find(&votes).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Vote{}).Where("proposal = ?", proposal).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return votes, total, nil
}

func (c *GovIndexer) getSigners(activeOnly bool) ([]Signer, error) {
	var signers []Signer
	q := c.db.Order("id asc")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Find(&signers).Error; err != nil {
		return nil, err
	}
	return signers, nil
}

func (c *GovIndexer) getDomainActionsByProposal(proposal uint64) ([]DomainAction, error) {
	var actions []DomainAction
	if err := c.db.Where("proposal = ?", proposal).Order("id asc").Find(&actions).Error; err != nil {
		return nil, err
	}
	return actions, nil
}
