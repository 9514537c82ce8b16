package app

import (
	"github.com/edverse-labs/edugov/state"
	"github.com/edverse-labs/edugov/types"
)

// CommitteeView is the committee snapshot returned to API clients.
type CommitteeView struct {
	Height    uint64           `json:"height"`
	Threshold uint32           `json:"threshold"`
	Signers   []*state.Account `json:"signers"`
}

func (app *GovApp) QueryAccountByIndex(idx uint64) (*state.Account, uint64, error) {
	return app.db.GetAccountByIndex(idx)
}

func (app *GovApp) QueryAccountByAddress(addr []byte) (*state.Account, uint64, error) {
	return app.db.GetAccountByAddress(addr)
}

// QueryProposal settles an elapsed voting window before answering, so a
// read never reports Pending for a proposal that can no longer pass.
func (app *GovApp) QueryProposal(idx uint64) (*types.Proposal, uint64, error) {
	if _, err := app.CheckProposalStatus(idx); err != nil {
		return nil, 0, err
	}
	return app.db.GetProposal(idx)
}

func (app *GovApp) QueryCommittee() (*CommitteeView, error) {
	st := app.db.State()
	accounts, err := st.CommitteeAccounts()
	if err != nil {
		return nil, err
	}
	return &CommitteeView{
		Height:    st.Header().Height,
		Threshold: st.Threshold(),
		Signers:   accounts,
	}, nil
}

func (app *GovApp) MaxProposalIndex() uint64 {
	return app.db.State().MaxProposalIndex()
}
