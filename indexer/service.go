package indexer

import (
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edverse-labs/edugov/app"
)

// Service is the HTTP surface: transaction submission against the app
// plus read queries against the indexed read model.
type Service struct {
	engine     *gin.Engine
	app        *app.GovApp
	indexer    *GovIndexer
	listenAddr string
}

func NewService(listenAddr string, govApp *app.GovApp, indexer *GovIndexer) *Service {
	r := gin.Default()
	s := &Service{
		engine:     r,
		app:        govApp,
		indexer:    indexer,
		listenAddr: listenAddr,
	}
	s.engine.POST("/sendTx", s.handleSendTx)
	s.engine.POST("/checkTx", s.handleCheckTx)
	s.engine.POST("/getProposals", s.handleGetProposals)
	s.engine.POST("/getVotes", s.handleGetVotes)
	s.engine.POST("/getSigners", s.handleGetSigners)
	s.engine.GET("/status", s.handleStatus)
	s.engine.GET("/committee", s.handleGetCommittee)
	s.engine.GET("/proposal/:id", s.handleGetProposal)
	s.engine.GET("/account", s.handleGetAccount)
	return s
}

func (s *Service) Start() {
	s.engine.Run(s.listenAddr)
}

type SendTxResponse struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}

func (s *Service) handleSendTx(c *gin.Context) {
	txDat, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_, hash, err := s.app.DeliverTx(c.Request.Context(), txDat)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, SendTxResponse{
		Height: s.app.DB().Header().Height,
		Hash:   hash.Hex(),
	})
}

func (s *Service) handleCheckTx(c *gin.Context) {
	txDat, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.app.CheckTx(c.Request.Context(), txDat); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type VoteInfo struct {
	Approve      bool   `json:"approve"`
	VoterIndex   uint64 `json:"voter_index"`
	VoterAddress string `json:"voter_address"`
	Height       uint64 `json:"height"`
}

type ProposalInfo struct {
	Proposal Proposal   `json:"proposal"`
	Votes    []VoteInfo `json:"votes"`
}

type GetProposalsReq struct {
	ProposalId      uint64 `json:"proposalId"`
	ProposerAddress string `json:"proposer"`
	Status          uint64 `json:"status"`
	Page            int    `json:"page"`
	PageSize        int    `json:"pageSize"`
}

type GetProposalResponse struct {
	Proposals []ProposalInfo `json:"proposals"`
	Total     uint64         `json:"total"`
}

func votesToVoteInfo(votes []Vote) []VoteInfo {
	infos := make([]VoteInfo, 0, len(votes))
	for _, v := range votes {
		infos = append(infos, VoteInfo{
			Approve:      v.Approve,
			VoterIndex:   v.VoterIndex,
			VoterAddress: v.VoterAddress,
			Height:       v.Height,
		})
	}
	return infos
}

func (s *Service) handleGetProposals(c *gin.Context) {
	var response GetProposalResponse
	response.Proposals = make([]ProposalInfo, 0)
	var requestData GetProposalsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if requestData.PageSize == 0 {
		requestData.PageSize = 20
	}

	if requestData.ProposalId != 0 {
		proposal, err := s.indexer.getProposalById(requestData.ProposalId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		votes, _, err := s.indexer.getVotesByProposal(requestData.ProposalId, 0, 1000)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Proposals = append(response.Proposals, ProposalInfo{
			Proposal: proposal,
			Votes:    votesToVoteInfo(votes),
		})
		response.Total = 1
		c.JSON(http.StatusOK, response)
		return
	}

	var proposals []Proposal
	var total uint64
	var err error
	switch {
	case requestData.ProposerAddress != "":
		proposals, total, err = s.indexer.getProposalsByProposerAddr(requestData.ProposerAddress, requestData.Page, requestData.PageSize)
	case requestData.Status != 0:
		proposals, total, err = s.indexer.getProposalsByStatus(requestData.Status, requestData.Page, requestData.PageSize)
	default:
		proposals, total, err = s.indexer.getProposals(requestData.Page, requestData.PageSize)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response.Total = total
	for _, proposal := range proposals {
		votes, _, err := s.indexer.getVotesByProposal(proposal.Id, 0, 1000)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Proposals = append(response.Proposals, ProposalInfo{
			Proposal: proposal,
			Votes:    votesToVoteInfo(votes),
		})
	}
	c.JSON(http.StatusOK, response)
}

type GetVotesReq struct {
	ProposalId uint64 `json:"proposalId"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
}

type GetVotesResponse struct {
	Votes []VoteInfo `json:"votes"`
	Total uint64     `json:"total"`
}

func (s *Service) handleGetVotes(c *gin.Context) {
	var requestData GetVotesReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if requestData.ProposalId == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proposalId is required"})
		return
	}
	if requestData.PageSize == 0 {
		requestData.PageSize = 100
	}
	votes, total, err := s.indexer.getVotesByProposal(requestData.ProposalId, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetVotesResponse{Votes: votesToVoteInfo(votes), Total: total})
}

type GetSignersReq struct {
	ActiveOnly bool `json:"activeOnly"`
}

type GetSignersResponse struct {
	Signers []Signer `json:"signers"`
}

func (s *Service) handleGetSigners(c *gin.Context) {
	var requestData GetSignersReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	signers, err := s.indexer.getSigners(requestData.ActiveOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetSignersResponse{Signers: signers})
}

func (s *Service) handleStatus(c *gin.Context) {
	header := s.app.DB().Header()
	c.JSON(http.StatusOK, gin.H{
		"network_id": header.NetworkID,
		"height":     header.Height,
		"hash":       hex.EncodeToString(header.Hash),
	})
}

func (s *Service) handleGetCommittee(c *gin.Context) {
	view, err := s.app.QueryCommittee()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleGetProposal reads the live state, settling an elapsed voting
// window first so the answer is never a stale Pending.
func (s *Service) handleGetProposal(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	proposal, height, err := s.app.QueryProposal(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposal": proposal, "height": height})
}

func (s *Service) handleGetAccount(c *gin.Context) {
	if idxStr := c.Query("index"); idxStr != "" {
		idx, err := strconv.ParseUint(idxStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		acnt, height, err := s.app.QueryAccountByIndex(idx)
		if err != nil || acnt == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"account": acnt, "height": height})
		return
	}
	if addrStr := c.Query("address"); addrStr != "" {
		addr, err := hex.DecodeString(addrStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		acnt, height, err := s.app.QueryAccountByAddress(addr)
		if err != nil || acnt == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"account": acnt, "height": height})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "index or address is required"})
}
