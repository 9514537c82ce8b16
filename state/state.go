package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/edverse-labs/edugov/tx"
	"github.com/edverse-labs/edugov/types"
)

const (
	StartAccountIdx = 65536

	ModifiedFlagNew = 1 << 0
	ModifiedFlagMod = 1 << 1
	ModifiedFlagPK  = 1 << 2

	// MaxSigners caps the committee size; addSigner past it fails.
	MaxSigners = 100
)

var (
	KeyState        = "s"
	KeyAccountIndex = "i%s"
	KeyAccountBody  = "a%x"
	KeyCommittee    = "c"
	KeyProposalBody = "p%v"
)

// StateHeader is the committed root record: chain position, registry
// threshold and the registry-owned proposal counter.
type StateHeader struct {
	Height      uint64 `json:"height"`
	Hash        []byte `json:"hash"`
	RootHash    []byte `json:"root_hash"`
	NetworkID   string `json:"network_id"`
	AccountIdx  uint64 `json:"account_idx"`
	Threshold   uint32 `json:"threshold"`
	ProposalSeq uint64 `json:"proposal_seq"`
}

func (h *StateHeader) Clone() *StateHeader {
	n := *h
	n.Hash = append([]byte(nil), h.Hash...)
	n.RootHash = append([]byte(nil), h.RootHash...)
	return &n
}

// State is one working view over the iavl tree. Mutations accumulate in
// the in-memory caches and reach the tree only in Update; a State that is
// never Updated leaves the tree untouched, which is what makes every
// operation all-or-nothing.
type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	dbVer  int64

	header *StateHeader
	// cacheMtx guards idxs and acnts. The committed state serves
	// concurrent readers that fill both caches lazily.
	cacheMtx sync.Mutex
	idxs     map[string]uint64
	acnts    map[uint64]*Account

	modifiedAcnts  map[uint64]uint32
	committee      []uint64
	committeeDirty bool
	modProposals   map[uint64]*types.Proposal
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	s := &State{
		logger:        logger,
		db:            db,
		dbVer:         0,
		header:        new(StateHeader),
		idxs:          make(map[string]uint64),
		acnts:         make(map[uint64]*Account),
		modifiedAcnts: make(map[uint64]uint32),
		committee:     nil,
		modProposals:  make(map[uint64]*types.Proposal),
	}
	s.header.AccountIdx = StartAccountIdx
	return s
}

func (s *State) nextState() *State {
	n := &State{
		logger:        s.logger,
		db:            s.db,
		dbVer:         s.dbVer,
		idxs:          make(map[string]uint64),
		acnts:         make(map[uint64]*Account),
		modifiedAcnts: make(map[uint64]uint32),
		committee:     append([]uint64(nil), s.committee...),
		modProposals:  make(map[uint64]*types.Proposal),
	}
	n.header = s.header.Clone()
	if s.header.Hash != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

func (s *State) Clone() *State {
	n := s.nextState()
	s.cacheMtx.Lock()
	for k, v := range s.idxs {
		n.idxs[k] = v
	}
	for k, v := range s.acnts {
		n.acnts[k] = v.Clone()
	}
	s.cacheMtx.Unlock()
	for k, v := range s.modifiedAcnts {
		n.modifiedAcnts[k] = v
	}
	for k, v := range s.modProposals {
		n.modProposals[k] = v.Clone()
	}
	n.committeeDirty = s.committeeDirty
	n.header = s.header.Clone()
	return n
}

func (s *State) load() (err error) {
	val, err := s.db.Get([]byte(KeyCommittee))
	if err != nil {
		if err != leveldb.ErrNotFound {
			return err
		}
	}
	if val != nil {
		if err = json.Unmarshal(val, &s.committee); err != nil {
			return err
		}
	}
	val, err = s.db.Get([]byte(KeyState))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil
		}
		return err
	}
	if val != nil {
		err = json.Unmarshal(val, s.header)
		if err != nil {
			return
		}
		h := s.db.Hash()
		if h != nil {
			s.calcHash(h, true)
		}
	}
	return
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		if s.header.RootHash == nil {
			s.header.RootHash = make([]byte, len(rootHash))
		}
		copy(s.header.RootHash, rootHash)
		if s.header.Hash == nil {
			s.header.Hash = make([]byte, len(h))
		}
		copy(s.header.Hash, h[:])
	}
	return
}

// Update flushes the accumulated mutations into the working tree and
// returns the would-be state hash. The tree is rolled back when any
// write fails.
func (s *State) Update() (h common.Hash, err error) {
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	var val []byte
	val, err = json.Marshal(s.header)
	if err != nil {
		return
	}
	_, err = s.db.Set([]byte(KeyState), val)
	if err != nil {
		return
	}

	if s.committeeDirty {
		val, err = json.Marshal(s.committee)
		if err != nil {
			return
		}
		_, err = s.db.Set([]byte(KeyCommittee), val)
		if err != nil {
			return
		}
	}

	for _, p := range s.modProposals {
		key := fmt.Sprintf(KeyProposalBody, p.Index)
		var proposalBz []byte
		proposalBz, err = json.Marshal(p)
		if err != nil {
			return
		}
		_, err = s.db.Set([]byte(key), proposalBz)
		if err != nil {
			return
		}
	}

	n := len(s.modifiedAcnts)
	if n > 0 {
		idxs := make([]uint64, n)
		i := 0
		for idx := range s.modifiedAcnts {
			idxs[i] = idx
			i += 1
		}
		sort.Slice(idxs, func(i, j int) bool {
			return idxs[i] < idxs[j]
		})
		for _, idx := range idxs {
			flag := s.modifiedAcnts[idx]
			acnt := s.acnts[idx]
			key := fmt.Sprintf(KeyAccountBody, acnt.Index)
			val, err = json.Marshal(acnt)
			if err != nil {
				return
			}
			_, err = s.db.Set([]byte(key), val)
			if err != nil {
				return
			}
			if (flag&ModifiedFlagNew == ModifiedFlagNew) || (flag&ModifiedFlagPK == ModifiedFlagPK) {
				key = fmt.Sprintf(KeyAccountIndex, acnt.Address())
				val, err = rlp.EncodeToBytes(acnt.Index)
				if err != nil {
					return
				}
				_, err = s.db.Set([]byte(key), val)
				if err != nil {
					return
				}
			}
		}
	}
	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.modifiedAcnts = make(map[uint64]uint32)
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}
	s.dbVer = ver
	h = s.calcHash(hash, true)
	return
}

func (s *State) GetAccount(idx uint64) (acnt *Account, err error) {
	if idx >= s.header.AccountIdx {
		err = ErrTxSignerNoexists
		return
	}
	s.cacheMtx.Lock()
	acnt = s.acnts[idx]
	s.cacheMtx.Unlock()
	if acnt != nil {
		return
	}
	key := fmt.Sprintf(KeyAccountBody, idx)
	val, err := s.db.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	if val == nil {
		err = ErrNotFound
		return
	}
	acnt = new(Account)
	err = json.Unmarshal(val, acnt)
	if err != nil {
		acnt = nil
		return
	}
	s.cacheMtx.Lock()
	s.acnts[idx] = acnt
	s.cacheMtx.Unlock()
	return
}

func (s *State) FindAccount(addr []byte) (acnt *Account, err error) {
	saddr := cmtcrypto.Address(addr).String()
	s.cacheMtx.Lock()
	idx, ok := s.idxs[saddr]
	s.cacheMtx.Unlock()
	if !ok {
		key := fmt.Sprintf(KeyAccountIndex, saddr)
		val, err := s.db.Get([]byte(key))
		if err != nil {
			if err == leveldb.ErrNotFound {
				return nil, nil
			}
			return nil, err
		}
		if val == nil {
			// not indexed yet, scan the working set
			s.cacheMtx.Lock()
			for _, acc := range s.acnts {
				if bytes.Equal(acc.AddrBytes(), addr) {
					s.cacheMtx.Unlock()
					return acc, nil
				}
			}
			s.cacheMtx.Unlock()
			return nil, nil
		}
		err = rlp.DecodeBytes(val, &idx)
		if err != nil {
			return nil, err
		}
		s.cacheMtx.Lock()
		s.idxs[saddr] = idx
		s.cacheMtx.Unlock()
	}
	acnt, err = s.GetAccount(idx)
	return
}

// FindAccountByPubKey resolves the account registered for an ed25519 key.
func (s *State) FindAccountByPubKey(pubkey []byte) (*Account, error) {
	addr := ed25519.PubKey(pubkey).Address()
	return s.FindAccount(addr[:])
}

func (s *State) AddAccount(acnt *Account) (err error) {
	a, err := s.FindAccount(acnt.AddrBytes())
	if err != nil {
		return err
	}
	if a != nil {
		return ErrDuplicateSigner
	}
	acnt.Index = s.header.AccountIdx
	s.header.AccountIdx += 1
	s.acnts[acnt.Index] = acnt.Clone()
	s.idxs[acnt.Address()] = acnt.Index
	s.modifiedAcnts[acnt.Index] = ModifiedFlagNew
	return
}

func (s *State) markModified(a *Account) {
	v := s.modifiedAcnts[a.Index]
	v |= ModifiedFlagMod
	s.modifiedAcnts[a.Index] = v
	s.acnts[a.Index] = a.Clone()
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetNetworkID(networkID string) {
	s.header.NetworkID = networkID
}

// Verify checks the envelope signature and replay nonce against the
// signer's registered account.
func (s *State) Verify(btx *tx.GovTx, allowNonceGap bool) (succ bool, err error) {
	a, err := s.GetAccount(btx.Signer)
	if err != nil {
		return succ, err
	}
	if a == nil {
		err = ErrTxSignerNoexists
		return
	}
	if !(a.Nonce == btx.Nonce || (allowNonceGap && a.Nonce < btx.Nonce)) {
		err = ErrTxNonceInvalid
		return
	}
	dat, err := btx.SigData([]byte(s.header.NetworkID))
	if err != nil {
		return succ, err
	}
	succ = a.Verify(dat, btx.Sig)
	if !succ {
		err = ErrTxSigInvalid
	}
	return
}
