package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"vaultchain/core"
	"vaultchain/crypto"
)

// BalanceResult reports the pooled want under management.
type BalanceResult struct {
	Balance           string `json:"balance"`
	PricePerFullShare string `json:"pricePerFullShare"`
}

// SharesResult reports one holder's position.
type SharesResult struct {
	Address string `json:"address"`
	Shares  string `json:"shares"`
}

// VaultInfoResult mirrors the persisted vault record.
type VaultInfoResult struct {
	PoolID        uint64 `json:"poolId"`
	TotalShares   string `json:"totalShares"`
	DepositFeeBps uint64 `json:"depositFeeBps"`
	DepositCap    string `json:"depositCap"`
	IdleBufferBps uint64 `json:"idleBufferBps"`
	FeeReserve    string `json:"feeReserve"`
}

// HarvestCallResult summarises an executed harvest.
type HarvestCallResult struct {
	WantCompounded string `json:"wantCompounded"`
	TotalFee       string `json:"totalFee"`
	CallFee        string `json:"callFee"`
	Strategist     string `json:"strategist"`
	Treasury       string `json:"treasury"`
}

// EstimateResult previews the next harvest.
type EstimateResult struct {
	Profit  string `json:"profit"`
	CallFee string `json:"callFee"`
}

// AccountResult reports the three token balances of one account.
type AccountResult struct {
	Address        string `json:"address"`
	Nonce          uint64 `json:"nonce"`
	BalanceWant    string `json:"balanceWant"`
	BalanceReward  string `json:"balanceReward"`
	BalanceWrapped string `json:"balanceWrapped"`
}

// UpgradeStatusResult reports the timelock state.
type UpgradeStatusResult struct {
	Pending      bool   `json:"pending"`
	InitiatedAt  uint64 `json:"initiatedAt,omitempty"`
	ReadyAt      uint64 `json:"readyAt,omitempty"`
	LogicVersion uint64 `json:"logicVersion"`
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// decodeParams unmarshals the first positional parameter into out.
func decodeParams(req *RPCRequest, out interface{}) *RPCError {
	if len(req.Params) == 0 {
		return &RPCError{Code: codeInvalidParams, Message: "params object required"}
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "invalid params", Data: err.Error()}
	}
	return nil
}

func parseAddressField(name, value string) (crypto.Address, *RPCError) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return crypto.Address{}, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid %s address", name), Data: err.Error()}
	}
	return addr, nil
}

func parseAmountField(name, value string) (*big.Int, *RPCError) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid %s amount", name)}
	}
	return amount, nil
}

// writeNodeError maps node failures onto the JSON-RPC error surface. Role
// rejections surface as unauthorized; everything else is a server error the
// caller can inspect through the message.
func writeNodeError(w http.ResponseWriter, id interface{}, err error) {
	if errors.Is(err, core.ErrUnauthorized) {
		writeError(w, http.StatusForbidden, id, codeUnauthorized, err.Error(), nil)
		return
	}
	writeError(w, http.StatusBadRequest, id, codeServerError, err.Error(), nil)
}
