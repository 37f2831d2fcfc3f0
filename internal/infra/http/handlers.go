package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"certichain/internal/domain"
	"certichain/internal/infra/auth/rbac"
	"certichain/internal/usecase"
	"certichain/pkg/commitment"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

type revokeResponse struct {
	RecordID uint64 `json:"record_id"`
	domain.TxReceipt
}

type registerInstitutionRequest struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

type institutionsResponse struct {
	Owner        common.Address       `json:"owner"`
	Institutions []domain.Institution `json:"institutions"`
}

type historyResponse struct {
	Events []domain.LedgerEvent `json:"events"`
}

type issuancesResponse struct {
	Entries []usecase.IssuanceEntry `json:"entries"`
}

func (s *Server) handleNoRoute(c *gin.Context) {
	if c.Request.Method == http.MethodPost {
		switch c.Request.URL.Path {
		case "/v1/certificates:verify":
			s.handleVerifyByData(c)
			return
		case "/v1/certificates:issue":
			s.handleIssue(c)
			return
		}
	}
	writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
}

func (s *Server) handleVerifyByID(c *gin.Context) {
	if s.verifyUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if !s.enforceRateLimit(c, domain.RouteForPath(domain.PathByID)) {
		return
	}
	id, err := usecase.ParseRecordID(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	verdict, err := s.verifyUC.ByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	writeVerdict(c, verdict)
}

func (s *Server) handleVerifyByData(c *gin.Context) {
	if s.verifyUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if !s.enforceRateLimit(c, domain.RouteForPath(domain.PathByData)) {
		return
	}
	var data commitment.Data
	if err := c.ShouldBindJSON(&data); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	verdict, err := s.verifyUC.ByData(c.Request.Context(), data)
	if err != nil {
		writeError(c, err)
		return
	}
	writeVerdict(c, verdict)
}

// writeVerdict answers 503 for transient verdicts so clients retry; every
// other verdict, not_found included, is a successful answer.
func writeVerdict(c *gin.Context, verdict domain.Verdict) {
	status := http.StatusOK
	if verdict.Status == domain.VerdictTransient {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, verdict)
}

func (s *Server) handleIssue(c *gin.Context) {
	if s.issueUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if _, ok := s.requireAuth(c, rbac.PermissionIssue); !ok {
		return
	}
	var req usecase.IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	result, err := s.issueUC.Execute(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) handleRevoke(c *gin.Context) {
	if s.revokeUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if _, ok := s.requireAuth(c, rbac.PermissionRevoke); !ok {
		return
	}
	id, err := usecase.ParseRecordID(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req revokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	receipt, err := s.revokeUC.Execute(c.Request.Context(), id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, revokeResponse{RecordID: id, TxReceipt: receipt})
}

func (s *Server) handleCommitment(c *gin.Context) {
	if !s.enforceRateLimit(c, domain.RouteCommitments) {
		return
	}
	var data commitment.Data
	if err := c.ShouldBindJSON(&data); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	out, err := s.engine.CommitData(data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleListInstitutions(c *gin.Context) {
	if s.institutions == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	ctx := c.Request.Context()
	owner, err := s.institutions.Owner(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := s.institutions.List(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, institutionsResponse{Owner: owner, Institutions: list})
}

func (s *Server) handleInstitutionStatus(c *gin.Context) {
	if s.institutions == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	addr, err := usecase.ParseAddress(c.Param("address"))
	if err != nil {
		writeError(c, err)
		return
	}
	inst, err := s.institutions.Status(c.Request.Context(), addr)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (s *Server) handleRegisterInstitution(c *gin.Context) {
	if s.institutions == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if _, ok := s.requireAuth(c, rbac.PermissionInstitutionWrite); !ok {
		return
	}
	var req registerInstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	addr, err := usecase.ParseAddress(req.Address)
	if err != nil {
		writeError(c, err)
		return
	}
	receipt, err := s.institutions.Register(c.Request.Context(), addr, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

func (s *Server) handleRemoveInstitution(c *gin.Context) {
	if s.institutions == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if _, ok := s.requireAuth(c, rbac.PermissionInstitutionWrite); !ok {
		return
	}
	addr, err := usecase.ParseAddress(c.Param("address"))
	if err != nil {
		writeError(c, err)
		return
	}
	receipt, err := s.institutions.Remove(c.Request.Context(), addr)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	filter := usecase.HistoryFilter{Kind: domain.EventKind(strings.TrimSpace(c.Query("kind")))}
	if raw := c.Query("record_id"); raw != "" {
		id, err := usecase.ParseRecordID(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		filter.RecordID = &id
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_INPUT", "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}
	events, err := s.history.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	if events == nil {
		events = []domain.LedgerEvent{}
	}
	c.JSON(http.StatusOK, historyResponse{Events: events})
}

func (s *Server) handleIssuances(c *gin.Context) {
	if s.issuances == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if _, ok := s.requireAuth(c, rbac.PermissionJournalRead); !ok {
		return
	}
	commit, err := commitment.ParseDigest(c.Query("commitment"))
	if err != nil {
		writeError(c, err)
		return
	}
	entries, err := s.issuances.ListByCommitment(c.Request.Context(), commit)
	if err != nil {
		writeError(c, err)
		return
	}
	if entries == nil {
		entries = []usecase.IssuanceEntry{}
	}
	c.JSON(http.StatusOK, issuancesResponse{Entries: entries})
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInputValidation), errors.Is(err, commitment.ErrInvalidInput):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, domain.ErrNotIssuer):
		status, code = http.StatusForbidden, "NOT_ISSUER"
	case errors.Is(err, domain.ErrNotOwner):
		status, code = http.StatusForbidden, "NOT_OWNER"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusForbidden, "INSTITUTION_NOT_AUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrDuplicateCommitment):
		status, code = http.StatusConflict, "DUPLICATE_COMMITMENT"
	case errors.Is(err, domain.ErrAlreadyRevoked):
		status, code = http.StatusConflict, "ALREADY_REVOKED"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrTransient),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		status, code = http.StatusServiceUnavailable, "LEDGER_UNAVAILABLE"
	case errors.Is(err, domain.ErrReadOnly):
		status, code = http.StatusServiceUnavailable, "READ_ONLY"
	case errors.Is(err, domain.ErrLedgerRejected):
		status, code = http.StatusUnprocessableEntity, "LEDGER_REJECTED"
	}
	message := domain.Display(err)
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeErrorCode(c, status, code, message)
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
