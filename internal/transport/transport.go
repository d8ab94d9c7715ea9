// Package transport exposes the ledger core over HTTP/JSON: REGISTER,
// GET_CERTIFICATE, SEND_TRANSACTION, GET_CHAIN, and GET_BALANCE, per
// REGISTER, GET_CERTIFICATE, SEND_TRANSACTION, GET_CHAIN, and GET_BALANCE. It is grounded on
// BigBossBooling-Empower1-Re-Start's and orbas1-Synnergy's api_node.go
// handler shape (decode-validate-dispatch-encode, MaxBytesReader-limited
// bodies, strict-field JSON decoding), routed with chi instead of a bare
// http.ServeMux so the five actions read as a flat route table. It is a
// pure marshaling layer: every invariant lives in internal/certs and
// internal/ledger, not here.
package transport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/infosec-bank/ledger/internal/bankerr"
	"github.com/infosec-bank/ledger/internal/certs"
	"github.com/infosec-bank/ledger/internal/config"
	"github.com/infosec-bank/ledger/internal/ledger"
)

const maxRequestBody = 1 << 20 // 1MB, matching the reference handler's limit

// Server wires the ledger core's packages to HTTP routes. It holds no
// state of its own beyond references to the CA and chain it fronts.
type Server struct {
	cfg *config.Config
	ca  *certs.CA
	bc  *ledger.Blockchain
}

// NewServer builds a Server backed by ca and bc.
func NewServer(cfg *config.Config, ca *certs.CA, bc *ledger.Blockchain) *Server {
	return &Server{cfg: cfg, ca: ca, bc: bc}
}

// Router returns the chi router implementing the five actions above.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/register", s.handleRegister)
	r.Get("/certificate/{userID}", s.handleGetCertificate)
	r.Post("/transaction", s.handleSendTransaction)
	r.Get("/chain", s.handleGetChain)
	r.Get("/balance/{userID}", s.handleGetBalance)

	return r
}

type registerRequest struct {
	UserID    string `json:"user_id"`
	PublicKey string `json:"public_key"`
}

type registerResponse struct {
	Certificate certs.Certificate `json:"certificate"`
}

// handleRegister implements REGISTER: issues a certificate for a
// wallet-supplied public key, then credits the new account with a signed
// system deposit so it starts with the configured default balance.
func (s *Server) handleRegister(w http.ResponseWriter, req *http.Request) {
	var body registerRequest
	if !decodeJSON(w, req, &body) {
		return
	}

	if config.IsReserved(body.UserID) {
		writeError(w, http.StatusBadRequest, bankerr.ErrReservedUsername)
		return
	}
	if _, ok := s.ca.LookupBySubject(body.UserID); ok {
		writeError(w, http.StatusConflict, bankerr.ErrUserAlreadyExists)
		return
	}

	cert, err := s.ca.Issue(body.UserID, body.PublicKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if err := s.creditSystemDeposit(body.UserID, config.DefaultBalance); err != nil {
		log.WithError(err).Error("transport: failed to credit default balance")
	}

	writeJSON(w, http.StatusCreated, registerResponse{Certificate: cert})
}

func (s *Server) creditSystemDeposit(userID string, amount float64) error {
	sysCert, ok := s.ca.SystemCertificate()
	if !ok {
		return bankerr.ErrInvalidCertificate
	}
	tx := ledger.NewSystemDeposit(&sysCert, userID, amount, "welcome deposit")
	if err := tx.SignAsSystem(s.ca); err != nil {
		return err
	}
	_, err := s.bc.AddBlock(*tx)
	return err
}

// handleGetCertificate implements GET_CERTIFICATE.
func (s *Server) handleGetCertificate(w http.ResponseWriter, req *http.Request) {
	userID := chi.URLParam(req, "userID")
	cert, ok := s.ca.LookupBySubject(userID)
	if !ok {
		writeError(w, http.StatusNotFound, bankerr.ErrUnknownRecipient)
		return
	}
	writeJSON(w, http.StatusOK, registerResponse{Certificate: cert})
}

type sendTransactionResponse struct {
	Block ledger.Block `json:"block"`
}

// handleSendTransaction implements SEND_TRANSACTION: the caller submits an
// already-signed transaction (built client-side by internal/wallet), and
// this handler's only job is to validate and mine it into a block.
func (s *Server) handleSendTransaction(w http.ResponseWriter, req *http.Request) {
	var tx ledger.Transaction
	if !decodeJSON(w, req, &tx) {
		return
	}

	if !tx.Validate(s.ca) {
		writeError(w, http.StatusUnauthorized, bankerr.ErrTransactionInvalid)
		return
	}

	block, err := s.bc.AddBlock(tx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sendTransactionResponse{Block: block})
}

type getChainResponse struct {
	Blocks        []ledger.Block `json:"blocks"`
	Valid         bool           `json:"valid"`
	FirstBadIndex int            `json:"first_bad_index"`
}

// handleGetChain implements GET_CHAIN.
func (s *Server) handleGetChain(w http.ResponseWriter, req *http.Request) {
	valid, firstBadIndex := s.bc.IsValid(s.ca)
	writeJSON(w, http.StatusOK, getChainResponse{
		Blocks:        s.bc.Blocks(),
		Valid:         valid,
		FirstBadIndex: firstBadIndex,
	})
}

type getBalanceResponse struct {
	UserID  string  `json:"user_id"`
	Balance float64 `json:"balance"`
}

// handleGetBalance implements GET_BALANCE by replaying the chain rather
// than reading a separately maintained balance table.
func (s *Server) handleGetBalance(w http.ResponseWriter, req *http.Request) {
	userID := chi.URLParam(req, "userID")
	if _, ok := s.ca.LookupBySubject(userID); !ok {
		writeError(w, http.StatusNotFound, bankerr.ErrUnknownRecipient)
		return
	}
	balance := ledger.ReplayBalances(s.bc, s.ca, userID)
	writeJSON(w, http.StatusOK, getBalanceResponse{UserID: userID, Balance: balance})
}

// decodeJSON decodes req's body into dst, rejecting unknown fields and
// capping body size at maxRequestBody. Writes a 400 response and returns
// false on failure so the caller can simply return.
func decodeJSON(w http.ResponseWriter, req *http.Request, dst interface{}) bool {
	req.Body = http.MaxBytesReader(w, req.Body, maxRequestBody)
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("transport: failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
