package observability

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// VaultMetrics records ledger activity for the metrics endpoint. Amounts are
// exported as floats; they are operational telemetry, not accounting truth.
type VaultMetrics struct {
	deposits      prometheus.Counter
	withdrawals   prometheus.Counter
	harvests      prometheus.Counter
	harvestedWant prometheus.Counter
	feesPaid      *prometheus.CounterVec
	pricePerShare prometheus.Gauge
	totalBalance  prometheus.Gauge
	upgrades      prometheus.Counter
	rpcRequests   *prometheus.CounterVec
}

var (
	vaultMetricsOnce sync.Once
	vaultRegistry    *VaultMetrics
)

// Metrics returns the lazily-initialised vault metrics registry.
func Metrics() *VaultMetrics {
	vaultMetricsOnce.Do(func() {
		vaultRegistry = &VaultMetrics{
			deposits: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "vaultchain",
				Subsystem: "vault",
				Name:      "deposits_total",
				Help:      "Total accepted deposits.",
			}),
			withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "vaultchain",
				Subsystem: "vault",
				Name:      "withdrawals_total",
				Help:      "Total completed withdrawals.",
			}),
			harvests: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "vaultchain",
				Subsystem: "strategy",
				Name:      "harvests_total",
				Help:      "Total completed harvests.",
			}),
			harvestedWant: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "vaultchain",
				Subsystem: "strategy",
				Name:      "harvested_want_total",
				Help:      "Cumulative want compounded by harvests.",
			}),
			feesPaid: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vaultchain",
				Subsystem: "strategy",
				Name:      "fees_paid_total",
				Help:      "Cumulative harvest fees segmented by recipient.",
			}, []string{"recipient"}),
			pricePerShare: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "vaultchain",
				Subsystem: "vault",
				Name:      "price_per_full_share",
				Help:      "Current price per full share in want units, 1e18 fixed point.",
			}),
			totalBalance: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "vaultchain",
				Subsystem: "vault",
				Name:      "total_balance_want",
				Help:      "Total want under management.",
			}),
			upgrades: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "vaultchain",
				Subsystem: "upgrade",
				Name:      "executed_total",
				Help:      "Total executed logic upgrades.",
			}),
			rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vaultchain",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
		}
		prometheus.MustRegister(
			vaultRegistry.deposits,
			vaultRegistry.withdrawals,
			vaultRegistry.harvests,
			vaultRegistry.harvestedWant,
			vaultRegistry.feesPaid,
			vaultRegistry.pricePerShare,
			vaultRegistry.totalBalance,
			vaultRegistry.upgrades,
			vaultRegistry.rpcRequests,
		)
	})
	return vaultRegistry
}

// ObserveDeposit counts a completed deposit.
func (m *VaultMetrics) ObserveDeposit() {
	if m == nil {
		return
	}
	m.deposits.Inc()
}

// ObserveWithdrawal counts a completed withdrawal.
func (m *VaultMetrics) ObserveWithdrawal() {
	if m == nil {
		return
	}
	m.withdrawals.Inc()
}

// ObserveHarvest records a harvest and the want it compounded.
func (m *VaultMetrics) ObserveHarvest(compounded *big.Int) {
	if m == nil {
		return
	}
	m.harvests.Inc()
	m.harvestedWant.Add(bigFloat(compounded))
}

// ObserveFee records a harvest fee payout to the named recipient: "caller",
// "strategist" or "treasury".
func (m *VaultMetrics) ObserveFee(recipient string, amount *big.Int) {
	if m == nil {
		return
	}
	m.feesPaid.WithLabelValues(recipient).Add(bigFloat(amount))
}

// SetPricePerShare publishes the current share price.
func (m *VaultMetrics) SetPricePerShare(price *big.Int) {
	if m == nil {
		return
	}
	m.pricePerShare.Set(bigFloat(price))
}

// SetTotalBalance publishes the total want under management.
func (m *VaultMetrics) SetTotalBalance(balance *big.Int) {
	if m == nil {
		return
	}
	m.totalBalance.Set(bigFloat(balance))
}

// ObserveUpgrade counts an executed upgrade.
func (m *VaultMetrics) ObserveUpgrade() {
	if m == nil {
		return
	}
	m.upgrades.Inc()
}

// ObserveRPC counts a served RPC request.
func (m *VaultMetrics) ObserveRPC(method, outcome string) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(method, outcome).Inc()
}

func bigFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
