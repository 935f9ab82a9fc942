// Package metrics exposes the handful of business counters operations cares
// about. Registration happens once at init; services increment unconditionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CarcassesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meatflow_carcasses_received_total",
		Help: "Carcasses received into the system.",
	})

	SessionsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meatflow_cutting_sessions_completed_total",
		Help: "Cutting sessions completed.",
	})

	SalesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meatflow_sales_completed_total",
		Help: "Sales completed at the POS.",
	})

	SalesVoided = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meatflow_sales_voided_total",
		Help: "Sales voided after completion.",
	})

	ClosingsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meatflow_daily_closings_completed_total",
		Help: "Daily closings completed.",
	})

	StockSoldKg = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meatflow_stock_sold_kg_total",
		Help: "Total weight sold, in kilograms.",
	})
)
