// Package api exposes the protocol over HTTP. Mutating endpoints take the
// acting identity from the X-Identity header; authorization itself is
// enforced by the coordinator's capability checks.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nwuledger/internal/ledger"
	"nwuledger/internal/logger"
	"nwuledger/internal/protocol"
)

const (
	// maxBodySize is the maximum request body size in bytes.
	maxBodySize = 1 << 20 // 1 MB

	// identityHeader carries the acting identity on mutating requests.
	identityHeader = "X-Identity"
)

// Server is the HTTP API server.
type Server struct {
	addr     string
	ledger   *protocol.Coordinator
	gatherer prometheus.Gatherer
	server   *http.Server
}

// New creates a new HTTP API server. The gatherer backs the /metrics
// endpoint and may be nil to disable it.
func New(addr string, coordinator *protocol.Coordinator, gatherer prometheus.Gatherer) *Server {
	return &Server{
		addr:     addr,
		ledger:   coordinator,
		gatherer: gatherer,
	}
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /contributions", s.handleSubmit)
	mux.HandleFunc("GET /contributions/{id}", s.handleGetContribution)
	mux.HandleFunc("POST /contributions/{id}/verify", s.handleVerify)
	mux.HandleFunc("POST /rewards/claim", s.handleClaim)
	mux.HandleFunc("GET /rewards/{identity}", s.handleRewardAccount)
	mux.HandleFunc("GET /certificates/{id}", s.handleGetCertificate)
	mux.HandleFunc("GET /balances/{identity}", s.handleBalance)
	mux.HandleFunc("GET /contributors/{identity}/stats", s.handleStats)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)

	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// submitRequest is the POST /contributions payload.
type submitRequest struct {
	ContentID   string `json:"contentId"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// handleSubmit handles POST /contributions requests.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	record, err := s.ledger.SubmitContribution(identity, req.ContentID, req.Description, req.Category)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// verifyRequest is the POST /contributions/{id}/verify payload.
type verifyRequest struct {
	Score int `json:"score"`
}

// handleVerify handles POST /contributions/{id}/verify requests.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req verifyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	v, err := s.ledger.VerifyContribution(identity, ledger.ContributionID(id), req.Score)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// handleClaim handles POST /rewards/claim requests.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	amount, err := s.ledger.ClaimReward(identity)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]uint64{"amount": uint64(amount)})
}

// handleGetContribution handles GET /contributions/{id} requests.
func (s *Server) handleGetContribution(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	record, found := s.ledger.Contribution(ledger.ContributionID(id))
	if !found {
		writeError(w, http.StatusNotFound, "contribution not found")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleGetCertificate handles GET /certificates/{id} requests.
func (s *Server) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	cert, found := s.ledger.Certificate(ledger.CertificateID(id))
	if !found {
		writeError(w, http.StatusNotFound, "certificate not found")
		return
	}

	writeJSON(w, http.StatusOK, cert)
}

// handleBalance handles GET /balances/{identity} requests.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	identity := ledger.Identity(r.PathValue("identity"))

	writeJSON(w, http.StatusOK, map[string]uint64{
		"balance": uint64(s.ledger.Balance(identity)),
	})
}

// handleRewardAccount handles GET /rewards/{identity} requests.
func (s *Server) handleRewardAccount(w http.ResponseWriter, r *http.Request) {
	identity := ledger.Identity(r.PathValue("identity"))

	writeJSON(w, http.StatusOK, s.ledger.RewardAccount(identity))
}

// handleStats handles GET /contributors/{identity}/stats requests.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	identity := ledger.Identity(r.PathValue("identity"))

	total, passed, average := s.ledger.ContributorStats(identity)
	summary := s.ledger.ScoreSummary(identity)

	writeJSON(w, http.StatusOK, map[string]any{
		"total":        total,
		"passed":       passed,
		"averageScore": average,
		"median":       summary.Median,
		"stdDev":       summary.StdDev,
	})
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleStatus handles GET /status requests.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	totals := s.ledger.Totals()

	writeJSON(w, http.StatusOK, map[string]any{
		"contributions":      totals.Contributions,
		"verified":           totals.Verified,
		"rewardsDistributed": uint64(totals.RewardsDistributed),
		"totalSupply":        uint64(s.ledger.TotalSupply()),
		"paused":             s.ledger.Paused(),
		"stateHash":          s.ledger.StateHash(),
	})
}

// handleSnapshot handles GET /snapshot requests, streaming a compressed
// state snapshot.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := s.ledger.ExportSnapshot()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "snapshot failed")
		return
	}

	w.Header().Set("Content-Type", "application/zstd")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// callerIdentity extracts the acting identity from the request header.
func callerIdentity(w http.ResponseWriter, r *http.Request) (ledger.Identity, bool) {
	identity := r.Header.Get(identityHeader)
	if identity == "" {
		writeError(w, http.StatusBadRequest, "missing "+identityHeader+" header")
		return "", false
	}

	return ledger.Identity(identity), true
}

// pathID parses the {id} path segment.
func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}

	return id, true
}

// decodeBody parses a JSON request body.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	return true
}

// writeLedgerError maps ledger errors to HTTP status codes.
func writeLedgerError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrNothingToClaim),
		errors.Is(err, ledger.ErrNothingToRelease):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrPaused):
		status = http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrSupplyExhausted):
		status = http.StatusConflict
	}

	writeError(w, status, err.Error())
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
