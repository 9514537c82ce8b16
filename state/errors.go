package state

import "errors"

// ErrNotFound is a storage-level miss, distinct from the business-rule
// sentinels below.
var ErrNotFound = errors.New("not found")

// Registry and proposal rule violations. The operation was rejected;
// only ErrProposalExpired leaves a trace, the expiry transition itself.
var (
	ErrUnauthorized               = errors.New("caller lacks signer privilege")
	ErrInvalidConfiguration       = errors.New("invalid committee configuration")
	ErrInvalidThreshold           = errors.New("threshold outside committee bounds")
	ErrInvalidApprovalRequirement = errors.New("required approvals outside threshold bounds")
	ErrDuplicateSigner            = errors.New("signer already in committee")
	ErrSignerNotFound             = errors.New("signer not in committee")
	ErrCommitteeFull              = errors.New("committee at maximum size")
	ErrQuorumUnsafe               = errors.New("removal would make quorum unreachable")

	ErrProposalNotFound      = errors.New("proposal noexists")
	ErrInvalidProposalStatus = errors.New("proposal not pending")
	ErrProposalExpired       = errors.New("proposal expired")
	ErrAlreadyVoted          = errors.New("already voted")
	ErrConflictingVote       = errors.New("conflicting vote")
	ErrDescriptionTooLong    = errors.New("description too long")
	ErrNoExecutor            = errors.New("no executor registered for instruction")
)

// Envelope verification failures.
var (
	ErrTxSignerNoexists = errors.New("signer account noexists")
	ErrTxNonceInvalid   = errors.New("nonce invalid")
	ErrTxSigInvalid     = errors.New("signature invalid")
)
