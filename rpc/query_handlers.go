package rpc

import (
	"net/http"

	"vaultchain/core/types"
)

const defaultEventLimit = 50

func (s *Server) handleGetAccount(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Address string `json:"address"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	addr, rpcErr := parseAddressField("account", params.Address)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	account, err := s.node.Account(addr)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, AccountResult{
		Address:        addr.String(),
		Nonce:          account.Nonce,
		BalanceWant:    bigString(account.BalanceWant),
		BalanceReward:  bigString(account.BalanceReward),
		BalanceWrapped: bigString(account.BalanceWrapped),
	})
}

func (s *Server) handleRoles(w http.ResponseWriter, req *RPCRequest) {
	roles, err := s.node.RolesInfo()
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, roles)
}

func (s *Server) handlePaused(w http.ResponseWriter, req *RPCRequest) {
	writeResult(w, req.ID, map[string][]string{"paused": s.node.Paused()})
}

func (s *Server) handleEvents(w http.ResponseWriter, req *RPCRequest) {
	limit := defaultEventLimit
	if len(req.Params) > 0 {
		var params struct {
			Limit *int `json:"limit"`
		}
		if rpcErr := decodeParams(req, &params); rpcErr != nil {
			writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
			return
		}
		if params.Limit != nil {
			if *params.Limit <= 0 {
				writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "limit must be positive", nil)
				return
			}
			limit = *params.Limit
		}
	}
	events := s.node.Events(limit)
	if events == nil {
		events = []*types.Event{}
	}
	writeResult(w, req.ID, events)
}

func (s *Server) handleFarmPoolInfo(w http.ResponseWriter, req *RPCRequest) {
	pool, err := s.node.FarmPoolInfo()
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, pool)
}

func (s *Server) handlePairInfo(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		TokenA string `json:"tokenA"`
		TokenB string `json:"tokenB"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	pair, err := s.node.PairInfo(types.Token(params.TokenA), types.Token(params.TokenB))
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, pair)
}
