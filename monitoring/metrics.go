package monitoring

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_attempts_total",
			Help: "Purchase attempts by final outcome",
		},
		[]string{"outcome"},
	)

	reservationConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_write_conflicts_total",
			Help: "Write conflicts detected during reservation, including retried ones",
		},
	)

	ticketsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Purchased tickets minted by committed reservations",
		},
	)

	renderFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artifact_render_failures_total",
			Help: "Non-fatal artifact rendering failures",
		},
	)

	stockMoves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_stock_moves_total",
			Help: "Units debited from / credited to the inventory ledger",
		},
		[]string{"direction"},
	)

	redemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redemptions_total",
			Help: "Ticket redemption attempts by result",
		},
		[]string{"result"},
	)

	wristbandScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wristband_scans_total",
			Help: "Wristband scan attempts by result",
		},
		[]string{"result"},
	)

	ticketTypeStock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ticket_type_stock",
			Help: "Current stock per ticket type",
		},
		[]string{"ticket_type"},
	)
)

func TrackReservation(outcome string)     { reservationAttempts.WithLabelValues(outcome).Inc() }
func TrackWriteConflict()                 { reservationConflicts.Inc() }
func TrackTicketsIssued(n int)            { ticketsIssued.Add(float64(n)) }
func TrackRenderFailure()                 { renderFailures.Inc() }
func TrackStockDebit(units int)           { stockMoves.WithLabelValues("debit").Add(float64(units)) }
func TrackStockCredit(units int)          { stockMoves.WithLabelValues("credit").Add(float64(units)) }
func TrackRedemption(result string)       { redemptions.WithLabelValues(result).Inc() }
func TrackWristbandScan(result string)    { wristbandScans.WithLabelValues(result).Inc() }

// Monitor periodically samples per-ticket-type stock into a gauge.
type Monitor struct {
	app core.App
}

func NewMonitor(app core.App) *Monitor {
	return &Monitor{app: app}
}

func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectStock()
		}
	}
}

func (m *Monitor) collectStock() {
	var rows []struct {
		ID    string `db:"id"`
		Stock int    `db:"stock"`
	}
	err := m.app.DB().NewQuery("SELECT id, stock FROM tickets").All(&rows)
	if err != nil && err != sql.ErrNoRows {
		slog.Warn("stock metrics collection failed", "error", err)
		return
	}
	for _, row := range rows {
		ticketTypeStock.WithLabelValues(row.ID).Set(float64(row.Stock))
	}
}
