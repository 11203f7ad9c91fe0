package rpc

import (
	"math/big"
	"net/http"
)

type depositParams struct {
	Holder string `json:"holder"`
	Amount string `json:"amount"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, req *RPCRequest) {
	var params depositParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	holder, rpcErr := parseAddressField("holder", params.Holder)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	amount, rpcErr := parseAmountField("deposit", params.Amount)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}

	minted, err := s.node.Deposit(holder, amount)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, SharesResult{Address: holder.String(), Shares: bigString(minted)})
}

type withdrawParams struct {
	Holder string `json:"holder"`
	Shares string `json:"shares"`
}

func (s *Server) handleWithdraw(w http.ResponseWriter, req *RPCRequest) {
	var params withdrawParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	holder, rpcErr := parseAddressField("holder", params.Holder)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	shares, rpcErr := parseAmountField("share", params.Shares)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}

	payout, err := s.node.Withdraw(holder, shares)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"address": holder.String(), "payout": bigString(payout)})
}

type holderParams struct {
	Holder string `json:"holder"`
}

func (s *Server) handleWithdrawAll(w http.ResponseWriter, req *RPCRequest) {
	var params holderParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	holder, rpcErr := parseAddressField("holder", params.Holder)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}

	payout, err := s.node.WithdrawAll(holder)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"address": holder.String(), "payout": bigString(payout)})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, req *RPCRequest) {
	balance, err := s.node.Balance()
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	price, err := s.node.PricePerFullShare()
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, BalanceResult{Balance: bigString(balance), PricePerFullShare: bigString(price)})
}

func (s *Server) handleGetPrice(w http.ResponseWriter, req *RPCRequest) {
	price, err := s.node.PricePerFullShare()
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"pricePerFullShare": bigString(price)})
}

func (s *Server) handleGetShares(w http.ResponseWriter, req *RPCRequest) {
	var params holderParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	holder, rpcErr := parseAddressField("holder", params.Holder)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	shares, err := s.node.HolderShares(holder)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, SharesResult{Address: holder.String(), Shares: bigString(shares)})
}

func (s *Server) handleVaultInfo(w http.ResponseWriter, req *RPCRequest) {
	info, err := s.node.VaultInfo()
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, VaultInfoResult{
		PoolID:        info.PoolID,
		TotalShares:   bigString(info.TotalShares),
		DepositFeeBps: info.DepositFeeBps,
		DepositCap:    bigString(info.DepositCap),
		IdleBufferBps: info.IdleBufferBps,
		FeeReserve:    bigString(info.FeeReserve),
	})
}

type callerParams struct {
	Caller string `json:"caller"`
}

func (s *Server) handleHarvest(w http.ResponseWriter, req *RPCRequest) {
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

	result, err := s.node.Harvest(caller)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, HarvestCallResult{
		WantCompounded: bigString(result.WantCompounded),
		TotalFee:       bigString(result.Split.TotalFee),
		CallFee:        bigString(result.Split.CallFee),
		Strategist:     bigString(result.Split.Strategist),
		Treasury:       bigString(result.Split.Treasury),
	})
}

func (s *Server) handleEstimateHarvest(w http.ResponseWriter, req *RPCRequest) {
	profit, callFee, err := s.node.EstimateHarvest()
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	if profit == nil {
		profit = big.NewInt(0)
	}
	writeResult(w, req.ID, EstimateResult{Profit: bigString(profit), CallFee: bigString(callFee)})
}

func (s *Server) handleStrategyInfo(w http.ResponseWriter, req *RPCRequest) {
	info, err := s.node.StrategyInfo()
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, info)
}

func (s *Server) handleLTV(w http.ResponseWriter, req *RPCRequest) {
	ltv, err := s.node.CalculateLTV()
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"ltvBps": ltv})
}
