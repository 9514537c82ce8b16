package indexer

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primaryKey" json:"id"`
	Height uint64 `json:"height"`
}

type Proposal struct {
	Id                uint64 `gorm:"primaryKey" json:"id"`
	ProposerIndex     uint64 `json:"proposer_index"`
	ProposerAddress   string `json:"proposer_address"`
	Instruction       uint64 `json:"instruction"`
	Description       string `json:"description"`
	RequiredApprovals uint64 `json:"required_approvals"`
	NewHeight         uint64 `json:"new_height"`
	SettleHeight      uint64 `json:"settle_height"`
	Status            uint64 `json:"status"`
	CreateTimestamp   int64  `json:"create_timestamp"`
	ExpireTimestamp   int64  `json:"expire_timestamp"`
}

type Vote struct {
	Id           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Proposal     uint64 `json:"proposal"`
	VoterIndex   uint64 `json:"voter_index"`
	VoterAddress string `json:"voter_address"`
	Height       uint64 `json:"height"`
	Approve      bool   `json:"approve"`
}

type Signer struct {
	Id      uint64 `gorm:"primaryKey" json:"id"`
	Address string `json:"address"`
	Name    string `json:"name"`
	Height  uint64 `json:"height"`
	Active  bool   `json:"active"`
}

type ThresholdChange struct {
	Id           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OldThreshold uint64 `json:"old_threshold"`
	NewThreshold uint64 `json:"new_threshold"`
	Height       uint64 `json:"height"`
}

type DomainAction struct {
	Id          uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Proposal    uint64 `json:"proposal"`
	Instruction uint64 `json:"instruction"`
	Payload     string `json:"payload"`
	Height      uint64 `json:"height"`
}
