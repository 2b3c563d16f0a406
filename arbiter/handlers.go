package arbiter

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/gorilla/mux"

	"github.com/vkarov/stateduel"
)

// wireMove is the JSON form of a signed move. Binary fields travel as hex.
type wireMove struct {
	GameID   uint64   `json:"game_id"`
	Nonce    uint64   `json:"nonce"`
	Player   string   `json:"player"`
	OldState string   `json:"old_state"`
	NewState string   `json:"new_state"`
	Data     string   `json:"data"`
	Sigs     []string `json:"sigs"`
}

func (w *wireMove) decode() (*stateduel.SignedMove, error) {
	var sm stateduel.SignedMove
	sm.Move.GameID = w.GameID
	sm.Move.Nonce = w.Nonce
	if err := sm.Move.Player.FromString(w.Player); err != nil {
		return nil, err
	}
	var err error
	if sm.Move.OldState, err = hex.DecodeString(w.OldState); err != nil {
		return nil, err
	}
	if sm.Move.NewState, err = hex.DecodeString(w.NewState); err != nil {
		return nil, err
	}
	if sm.Move.Data, err = hex.DecodeString(w.Data); err != nil {
		return nil, err
	}
	for _, s := range w.Sigs {
		sig, err := hex.DecodeString(s)
		if err != nil {
			return nil, err
		}
		sm.Sigs = append(sm.Sigs, sig)
	}
	return &sm, nil
}

type proposeReq struct {
	Caller     string `json:"caller"`
	Rules      string `json:"rules"`
	SessionKey string `json:"session_key,omitempty"`
	StakeAtoms int64  `json:"stake_atoms"`
}

type acceptReq struct {
	Caller     string `json:"caller"`
	SessionKey string `json:"session_key,omitempty"`
	StakeAtoms int64  `json:"stake_atoms"`
}

type callerReq struct {
	Caller string `json:"caller"`
}

type chainReq struct {
	Caller    string      `json:"caller"`
	Chain     [2]wireMove `json:"chain"`
	BondAtoms int64       `json:"bond_atoms,omitempty"`
}

type moveReq struct {
	Caller string   `json:"caller"`
	Move   wireMove `json:"move"`
}

type sessionResp struct {
	ID              uint64    `json:"id"`
	Rules           string    `json:"rules"`
	Players         [2]string `json:"players"`
	StakeAtoms      int64     `json:"stake_atoms"`
	EscrowAtoms     int64     `json:"escrow_atoms"`
	Started         bool      `json:"started"`
	Finished        bool      `json:"finished"`
	TimeoutOpen     bool      `json:"timeout_open"`
	TimeoutDeadline string    `json:"timeout_deadline,omitempty"`
}

// Router returns the HTTP surface over the arbiter. Every mutating call maps
// one-to-one onto an arbiter entry point.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/v1/games", s.handlePropose).Methods("POST")
	r.HandleFunc("/v1/games/{id:[0-9]+}", s.handleSession).Methods("GET")
	r.HandleFunc("/v1/games/{id:[0-9]+}/accept", s.handleAccept).Methods("POST")
	r.HandleFunc("/v1/games/{id:[0-9]+}/resign", s.handleResign).Methods("POST")
	r.HandleFunc("/v1/games/{id:[0-9]+}/finish", s.handleFinish).Methods("POST")
	r.HandleFunc("/v1/games/{id:[0-9]+}/timeout/init", s.handleInitTimeout).Methods("POST")
	r.HandleFunc("/v1/games/{id:[0-9]+}/timeout/finalize", s.handleFinalizeTimeout).Methods("POST")
	r.HandleFunc("/v1/disputes", s.handleDispute).Methods("POST")
	r.HandleFunc("/v1/timeouts/resolve", s.handleResolveTimeout).Methods("POST")
	return r
}

func (s *Server) handlePropose(w http.ResponseWriter, r *http.Request) {
	var req proposeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	caller, sessionKey, err := decodeIdentities(req.Caller, req.SessionKey)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := s.ProposeGame(r.Context(), caller, req.Rules, sessionKey, dcrutil.Amount(req.StakeAtoms))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]uint64{"game_id": id})
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	id, err := pathGameID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req acceptReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	caller, sessionKey, err := decodeIdentities(req.Caller, req.SessionKey)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.AcceptGame(r.Context(), caller, id, sessionKey, dcrutil.Amount(req.StakeAtoms)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"accepted": true})
}

func (s *Server) handleResign(w http.ResponseWriter, r *http.Request) {
	id, err := pathGameID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req callerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	var caller stateduel.PlayerID
	if err := caller.FromString(req.Caller); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Resign(r.Context(), caller, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"resigned": true})
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	id, err := pathGameID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	caller, chain, _, err := decodeChainReq(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if chain[0].Move.GameID != id {
		writeError(w, ErrUnknownGame)
		return
	}
	if err := s.FinishGame(r.Context(), caller, chain); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"finished": true})
}

func (s *Server) handleInitTimeout(w http.ResponseWriter, r *http.Request) {
	id, err := pathGameID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	caller, chain, bond, err := decodeChainReq(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if chain[0].Move.GameID != id {
		writeError(w, ErrUnknownGame)
		return
	}
	if err := s.InitTimeout(r.Context(), caller, chain, bond); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"timeout_open": true})
}

func (s *Server) handleFinalizeTimeout(w http.ResponseWriter, r *http.Request) {
	id, err := pathGameID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.FinalizeTimeout(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"finalized": true})
}

func (s *Server) handleDispute(w http.ResponseWriter, r *http.Request) {
	caller, sm, err := decodeMoveReq(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.DisputeMove(r.Context(), caller, sm); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"dispute_upheld": true})
}

func (s *Server) handleResolveTimeout(w http.ResponseWriter, r *http.Request) {
	caller, sm, err := decodeMoveReq(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.ResolveTimeout(r.Context(), caller, sm); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"resolved": true})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathGameID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	inf, err := s.Session(id)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := sessionResp{
		ID:          inf.ID,
		Rules:       inf.Rules,
		StakeAtoms:  int64(inf.Stake),
		EscrowAtoms: int64(inf.Escrow),
		Started:     inf.Started,
		Finished:    inf.Finished,
		TimeoutOpen: inf.TimeoutOpen,
	}
	for i, p := range inf.Players {
		if !p.IsZero() {
			resp.Players[i] = p.String()
		}
	}
	if inf.TimeoutOpen {
		resp.TimeoutDeadline = inf.TimeoutDeadline.UTC().Format("2006-01-02T15:04:05Z")
	}
	writeJSON(w, resp)
}

func decodeIdentities(caller, sessionKey string) (stateduel.PlayerID, *stateduel.PlayerID, error) {
	var id stateduel.PlayerID
	if err := id.FromString(caller); err != nil {
		return id, nil, err
	}
	if sessionKey == "" {
		return id, nil, nil
	}
	var sk stateduel.PlayerID
	if err := sk.FromString(sessionKey); err != nil {
		return id, nil, err
	}
	return id, &sk, nil
}

func decodeChainReq(r *http.Request) (stateduel.PlayerID, [2]*stateduel.SignedMove, dcrutil.Amount, error) {
	var caller stateduel.PlayerID
	var chain [2]*stateduel.SignedMove
	var req chainReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return caller, chain, 0, err
	}
	if err := caller.FromString(req.Caller); err != nil {
		return caller, chain, 0, err
	}
	for i := range req.Chain {
		sm, err := req.Chain[i].decode()
		if err != nil {
			return caller, chain, 0, err
		}
		chain[i] = sm
	}
	return caller, chain, dcrutil.Amount(req.BondAtoms), nil
}

func decodeMoveReq(r *http.Request) (stateduel.PlayerID, *stateduel.SignedMove, error) {
	var caller stateduel.PlayerID
	var req moveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return caller, nil, err
	}
	if err := caller.FromString(req.Caller); err != nil {
		return caller, nil, err
	}
	sm, err := req.Move.decode()
	if err != nil {
		return caller, nil, err
	}
	return caller, sm, nil
}

func pathGameID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusBadRequest
	switch {
	case errors.Is(err, ErrUnknownGame):
		code = http.StatusNotFound
	case errors.Is(err, ErrGameFinished),
		errors.Is(err, ErrGameAlreadyStarted),
		errors.Is(err, ErrTimeoutAlreadyOpen):
		code = http.StatusConflict
	case errors.Is(err, ErrNotParticipant),
		errors.Is(err, ErrUnauthorizedSigner):
		code = http.StatusForbidden
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
