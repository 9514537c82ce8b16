package types

import (
	"fmt"
	"strconv"
)

const (
	EventProposalType         = "proposal"
	EventVoteType             = "vote"
	EventProposalSettledType  = "settle_proposal"
	EventSignerAddedType      = "signer_added"
	EventSignerRemovedType    = "signer_removed"
	EventThresholdChangedType = "threshold_changed"
	EventDomainActionType     = "domain_action"
)

// Event is the key-value record emitted for every accepted state
// mutation. The indexer is its only consumer.
type Event struct {
	Type       string           `json:"type"`
	Attributes []EventAttribute `json:"attributes"`
}

type EventAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Index bool   `json:"index"`
}

type EventProposal struct {
	ProposalIndex     uint64 `json:"proposalIndex"`
	Proposer          uint64 `json:"proposerIndex"`
	ProposerAddress   string `json:"proposerAddress"`
	Instruction       uint64 `json:"instruction"`
	RequiredApprovals uint64 `json:"requiredApprovals"`
	ExpireAt          int64  `json:"expireAt"`
	Description       string `json:"description"`
}

func EncodeEventProposal(event *EventProposal) Event {
	return Event{
		Type: EventProposalType,
		Attributes: []EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.ProposalIndex), Index: true},
			{Key: "proposer", Value: fmt.Sprintf("%v", event.Proposer), Index: true},
			{Key: "proposerAddress", Value: event.ProposerAddress, Index: false},
			{Key: "instruction", Value: fmt.Sprintf("%v", event.Instruction), Index: false},
			{Key: "requiredApprovals", Value: fmt.Sprintf("%v", event.RequiredApprovals), Index: false},
			{Key: "expireAt", Value: fmt.Sprintf("%v", event.ExpireAt), Index: false},
			{Key: "description", Value: event.Description, Index: false},
		},
	}
}

func DecodeEventProposal(originEvent Event) *EventProposal {
	event := &EventProposal{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.ProposalIndex = proposal
		case "proposer":
			proposer, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Proposer = proposer
		case "proposerAddress":
			event.ProposerAddress = v.Value
		case "instruction":
			ins, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Instruction = ins
		case "requiredApprovals":
			required, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.RequiredApprovals = required
		case "expireAt":
			expire, err := strconv.ParseInt(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.ExpireAt = expire
		case "description":
			event.Description = v.Value
		}
	}
	return event
}

type EventVote struct {
	ProposalIndex uint64 `json:"proposalIndex"`
	Voter         uint64 `json:"voterIndex"`
	VoterAddress  string `json:"voterAddress"`
	Approve       bool   `json:"approve"`
}

func EncodeEventVote(event *EventVote) Event {
	return Event{
		Type: EventVoteType,
		Attributes: []EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.ProposalIndex), Index: true},
			{Key: "voter", Value: fmt.Sprintf("%v", event.Voter), Index: true},
			{Key: "voterAddress", Value: event.VoterAddress, Index: false},
			{Key: "approve", Value: fmt.Sprintf("%v", event.Approve), Index: false},
		},
	}
}

func DecodeEventVote(originEvent Event) *EventVote {
	event := &EventVote{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.ProposalIndex = proposal
		case "voter":
			voter, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Voter = voter
		case "voterAddress":
			event.VoterAddress = v.Value
		case "approve":
			approve, err := strconv.ParseBool(v.Value)
			if err != nil {
				return nil
			}
			event.Approve = approve
		}
	}
	return event
}

type EventProposalSettled struct {
	ProposalIndex uint64 `json:"proposalIndex"`
	Status        uint64 `json:"status"`
}

func EncodeEventProposalSettled(event *EventProposalSettled) Event {
	return Event{
		Type: EventProposalSettledType,
		Attributes: []EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.ProposalIndex), Index: true},
			{Key: "status", Value: fmt.Sprintf("%v", event.Status), Index: false},
		},
	}
}

func DecodeEventProposalSettled(originEvent Event) *EventProposalSettled {
	event := &EventProposalSettled{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.ProposalIndex = proposal
		case "status":
			status, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Status = status
		}
	}
	return event
}

type EventSignerAdded struct {
	Signer  uint64 `json:"signerIndex"`
	Address string `json:"address"`
	Name    string `json:"name"`
}

func EncodeEventSignerAdded(event *EventSignerAdded) Event {
	return Event{
		Type: EventSignerAddedType,
		Attributes: []EventAttribute{
			{Key: "signer", Value: fmt.Sprintf("%v", event.Signer), Index: true},
			{Key: "addr", Value: event.Address, Index: false},
			{Key: "name", Value: event.Name, Index: false},
		},
	}
}

func DecodeEventSignerAdded(originEvent Event) *EventSignerAdded {
	event := &EventSignerAdded{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "signer":
			signer, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Signer = signer
		case "addr":
			event.Address = v.Value
		case "name":
			event.Name = v.Value
		}
	}
	return event
}

type EventSignerRemoved struct {
	Signer  uint64 `json:"signerIndex"`
	Address string `json:"address"`
}

func EncodeEventSignerRemoved(event *EventSignerRemoved) Event {
	return Event{
		Type: EventSignerRemovedType,
		Attributes: []EventAttribute{
			{Key: "signer", Value: fmt.Sprintf("%v", event.Signer), Index: true},
			{Key: "addr", Value: event.Address, Index: false},
		},
	}
}

func DecodeEventSignerRemoved(originEvent Event) *EventSignerRemoved {
	event := &EventSignerRemoved{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "signer":
			signer, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Signer = signer
		case "addr":
			event.Address = v.Value
		}
	}
	return event
}

type EventThresholdChanged struct {
	OldThreshold uint64 `json:"oldThreshold"`
	NewThreshold uint64 `json:"newThreshold"`
}

func EncodeEventThresholdChanged(event *EventThresholdChanged) Event {
	return Event{
		Type: EventThresholdChangedType,
		Attributes: []EventAttribute{
			{Key: "old", Value: fmt.Sprintf("%v", event.OldThreshold), Index: false},
			{Key: "new", Value: fmt.Sprintf("%v", event.NewThreshold), Index: false},
		},
	}
}

func DecodeEventThresholdChanged(originEvent Event) *EventThresholdChanged {
	event := &EventThresholdChanged{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "old":
			old, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.OldThreshold = old
		case "new":
			nw, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.NewThreshold = nw
		}
	}
	return event
}

type EventDomainAction struct {
	ProposalIndex uint64 `json:"proposalIndex"`
	Instruction   uint64 `json:"instruction"`
	Payload       []byte `json:"payload"`
}

func EncodeEventDomainAction(event *EventDomainAction) Event {
	return Event{
		Type: EventDomainActionType,
		Attributes: []EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.ProposalIndex), Index: true},
			{Key: "instruction", Value: fmt.Sprintf("%v", event.Instruction), Index: true},
			{Key: "payload", Value: string(event.Payload), Index: false},
		},
	}
}

func DecodeEventDomainAction(originEvent Event) *EventDomainAction {
	event := &EventDomainAction{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.ProposalIndex = proposal
		case "instruction":
			ins, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Instruction = ins
		case "payload":
			event.Payload = []byte(v.Value)
		}
	}
	return event
}
