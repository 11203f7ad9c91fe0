package rpc

import (
	"net/http"

	"vaultchain/core/types"
	"vaultchain/crypto"
	"vaultchain/native/fees"
)

// roleCall covers the operations that only need the acting address.
func (s *Server) roleCall(w http.ResponseWriter, req *RPCRequest, fn func(crypto.Address) error) {
	var params callerParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, rpcErr := parseAddressField("caller", params.Caller)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	if err := fn(caller); err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handlePause(w http.ResponseWriter, req *RPCRequest) {
	s.roleCall(w, req, s.node.Pause)
}

func (s *Server) handleUnpause(w http.ResponseWriter, req *RPCRequest) {
	s.roleCall(w, req, s.node.Unpause)
}

func (s *Server) handlePanic(w http.ResponseWriter, req *RPCRequest) {
	s.roleCall(w, req, s.node.Panic)
}

func (s *Server) handleRetire(w http.ResponseWriter, req *RPCRequest) {
	s.roleCall(w, req, s.node.Retire)
}

func (s *Server) handleSweep(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Caller string `json:"caller"`
		Token  string `json:"token"`
		To     string `json:"to"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, rpcErr := parseAddressField("caller", params.Caller)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	to, rpcErr := parseAddressField("recipient", params.To)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	swept, err := s.node.SweepStuckToken(caller, types.Token(params.Token), to)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"token": params.Token, "swept": bigString(swept)})
}

type bpsParams struct {
	Caller string `json:"caller"`
	Bps    uint64 `json:"bps"`
}

// bpsCall covers the basis-point parameter setters.
func (s *Server) bpsCall(w http.ResponseWriter, req *RPCRequest, fn func(crypto.Address, uint64) error) {
	var params bpsParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, rpcErr := parseAddressField("caller", params.Caller)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	if err := fn(caller, params.Bps); err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleSetDepositFee(w http.ResponseWriter, req *RPCRequest) {
	s.bpsCall(w, req, s.node.SetDepositFee)
}

func (s *Server) handleSetIdleBuffer(w http.ResponseWriter, req *RPCRequest) {
	s.bpsCall(w, req, s.node.SetIdleBuffer)
}

func (s *Server) handleSetWithdrawFee(w http.ResponseWriter, req *RPCRequest) {
	s.bpsCall(w, req, s.node.SetWithdrawFee)
}

func (s *Server) handleSetHarvestMinOut(w http.ResponseWriter, req *RPCRequest) {
	s.bpsCall(w, req, s.node.SetHarvestMinOut)
}

func (s *Server) handleSetDepositCap(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Caller string `json:"caller"`
		Cap    string `json:"cap"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, rpcErr := parseAddressField("caller", params.Caller)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	cap, rpcErr := parseAmountField("cap", params.Cap)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	if err := s.node.SetDepositCap(caller, cap); err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleSetHarvestFees(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Caller           string `json:"caller"`
		TotalFeeBps      uint64 `json:"totalFeeBps"`
		CallFeeBps       uint64 `json:"callFeeBps"`
		TreasuryFeeBps   uint64 `json:"treasuryFeeBps"`
		StrategistFeeBps uint64 `json:"strategistFeeBps"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, rpcErr := parseAddressField("caller", params.Caller)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	cfg := fees.HarvestConfig{
		TotalFeeBps:      params.TotalFeeBps,
		CallFeeBps:       params.CallFeeBps,
		TreasuryFeeBps:   params.TreasuryFeeBps,
		StrategistFeeBps: params.StrategistFeeBps,
	}
	if err := s.node.SetHarvestFees(caller, cfg); err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleSetTargetLTV(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Caller       string `json:"caller"`
		TargetBps    uint64 `json:"targetBps"`
		ToleranceBps uint64 `json:"toleranceBps"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, rpcErr := parseAddressField("caller", params.Caller)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	if err := s.node.SetTargetLTV(caller, params.TargetBps, params.ToleranceBps); err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

// assignCall covers the role-assignment operations.
func (s *Server) assignCall(w http.ResponseWriter, req *RPCRequest, field string, fn func(caller, assigned crypto.Address) error) {
	var params struct {
		Caller  string `json:"caller"`
		Address string `json:"address"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, rpcErr := parseAddressField("caller", params.Caller)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	assigned, rpcErr := parseAddressField(field, params.Address)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	if err := fn(caller, assigned); err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleSetStrategist(w http.ResponseWriter, req *RPCRequest) {
	s.assignCall(w, req, "strategist", s.node.SetStrategist)
}

func (s *Server) handleSetTreasury(w http.ResponseWriter, req *RPCRequest) {
	s.assignCall(w, req, "treasury", s.node.SetTreasury)
}

func (s *Server) handleTransferOwnership(w http.ResponseWriter, req *RPCRequest) {
	s.assignCall(w, req, "owner", s.node.TransferOwnership)
}

func (s *Server) handleInitiateUpgrade(w http.ResponseWriter, req *RPCRequest) {
	var params callerParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, rpcErr := parseAddressField("caller", params.Caller)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	record, err := s.node.InitiateUpgradeCooldown(caller)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, UpgradeStatusResult{
		Pending:      record.Pending,
		InitiatedAt:  record.InitiatedAt,
		LogicVersion: record.LogicVersion,
	})
}

func (s *Server) handleExecuteUpgrade(w http.ResponseWriter, req *RPCRequest) {
	var params callerParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, rpcErr := parseAddressField("caller", params.Caller)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	version, err := s.node.ExecuteUpgrade(caller)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"logicVersion": version})
}

func (s *Server) handleUpgradeStatus(w http.ResponseWriter, req *RPCRequest) {
	record, readyAt, err := s.node.UpgradeStatus()
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, UpgradeStatusResult{
		Pending:      record.Pending,
		InitiatedAt:  record.InitiatedAt,
		ReadyAt:      readyAt,
		LogicVersion: record.LogicVersion,
	})
}

func (s *Server) handleMint(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Caller string `json:"caller"`
		To     string `json:"to"`
		Amount string `json:"amount"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, rpcErr := parseAddressField("caller", params.Caller)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	to, rpcErr := parseAddressField("recipient", params.To)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	amount, rpcErr := parseAmountField("mint", params.Amount)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	if err := s.node.MintWant(caller, to, amount); err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}
