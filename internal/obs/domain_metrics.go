package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// TransactionSaveTotal counts transaction create/update outcomes.
	TransactionSaveTotal *prometheus.CounterVec
	// RefundProcessedTotal counts test lines marked refunded at save time.
	RefundProcessedTotal prometheus.Counter
	// ExcessRefundTotal counts transactions saved while carrying excess-refund entries.
	ExcessRefundTotal prometheus.Counter
	// ReceiptCheckTotal counts MC#/OR# uniqueness probe outcomes.
	ReceiptCheckTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		TransactionSaveTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transaction_save_total",
			Help:      "Count of transaction save outcomes.",
		}, []string{"op", "result"})
		RefundProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refund_processed_total",
			Help:      "Number of test lines marked refunded at save time.",
		})
		ExcessRefundTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "excess_refund_saved_total",
			Help:      "Number of saves carrying excess-refund entries.",
		})
		ReceiptCheckTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_check_total",
			Help:      "Count of MC#/OR# uniqueness probe outcomes.",
		}, []string{"result"})

		mustRegisterCollector(reg, TransactionSaveTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				TransactionSaveTotal = v
			}
		})
		mustRegisterCollector(reg, RefundProcessedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				RefundProcessedTotal = v
			}
		})
		mustRegisterCollector(reg, ExcessRefundTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ExcessRefundTotal = v
			}
		})
		mustRegisterCollector(reg, ReceiptCheckTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReceiptCheckTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
