package types

// Voter is an audit back-reference to the committee member that cast a
// vote. Index is the member's account index, Address its display address.
type Voter struct {
	Index   uint64 `json:"index"`
	Address string `json:"address"`
}

type Proposal struct {
	Index             uint64          `json:"index"`
	Proposer          uint64          `json:"proposer"`
	ProposerAddress   string          `json:"proposer_address"`
	Instruction       InstructionType `json:"instruction"`
	Payload           []byte          `json:"payload"`
	Description       string          `json:"description"`
	RequiredApprovals uint32          `json:"required_approvals"`
	Status            ProposalStatus  `json:"status"`
	CreatedAt         int64           `json:"created_at"`
	ExpireAt          int64           `json:"expire_at"`
	Approvers         []Voter         `json:"approvers"`
	Rejectors         []Voter         `json:"rejectors"`
}

type ProposalStatus uint64

const (
	ProposalStatusPending  ProposalStatus = 1
	ProposalStatusExecuted ProposalStatus = 2
	ProposalStatusRejected ProposalStatus = 3
	ProposalStatusExpired  ProposalStatus = 4
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusPending:
		return "pending"
	case ProposalStatusExecuted:
		return "executed"
	case ProposalStatusRejected:
		return "rejected"
	case ProposalStatusExpired:
		return "expired"
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s ProposalStatus) Terminal() bool {
	return s == ProposalStatusExecuted || s == ProposalStatusRejected || s == ProposalStatusExpired
}

// HasVoted scans both vote lists; a member may appear in at most one.
func (p *Proposal) HasVoted(index uint64) bool {
	for _, v := range p.Approvers {
		if v.Index == index {
			return true
		}
	}
	for _, v := range p.Rejectors {
		if v.Index == index {
			return true
		}
	}
	return false
}

func (p *Proposal) Clone() *Proposal {
	n := *p
	n.Payload = append([]byte(nil), p.Payload...)
	n.Approvers = append([]Voter(nil), p.Approvers...)
	n.Rejectors = append([]Voter(nil), p.Rejectors...)
	return &n
}
