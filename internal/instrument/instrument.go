// Package instrument holds the prometheus collectors of the relay client.
package instrument

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	handlesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mterelay_engine_handles_created_total",
			Help: "Number of engine handles created by the pool",
		},
		[]string{"kind"},
	)
	checkouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mterelay_engine_checkouts_total",
			Help: "Number of engine handle checkouts",
		},
		[]string{"kind"},
	)
	idleHandles = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mterelay_engine_idle_handles",
			Help: "Number of idle engine handles in the pool",
		},
		[]string{"kind"},
	)
	pairings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mterelay_pairings_total",
			Help: "Number of pairing attempts by outcome",
		},
		[]string{"outcome"},
	)
	cipherFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mterelay_cipher_failures_total",
			Help: "Number of non-success engine statuses by operation",
		},
		[]string{"op"},
	)
	relayRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mterelay_protected_requests_total",
			Help: "Number of protected requests sent through the relay",
		},
	)
)

var once sync.Once

// Init registers the collectors with the default registry.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(handlesCreated, checkouts, idleHandles, pairings, cipherFailures, relayRequests)
	})
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// HandleCreated counts a handle created on a pool miss or fill.
func HandleCreated(kind string) { handlesCreated.WithLabelValues(kind).Inc() }

// Checkout counts a handle checkout.
func Checkout(kind string) { checkouts.WithLabelValues(kind).Inc() }

// IdleHandles records the idle count of a pool.
func IdleHandles(kind string, n int) { idleHandles.WithLabelValues(kind).Set(float64(n)) }

// PairingCompleted counts a successful pairing.
func PairingCompleted() { pairings.WithLabelValues("completed").Inc() }

// PairingFailed counts an aborted pairing.
func PairingFailed() { pairings.WithLabelValues("failed").Inc() }

// CipherFailure counts a non-success engine status.
func CipherFailure(op string) { cipherFailures.WithLabelValues(op).Inc() }

// ProtectedRequest counts a request sent through the relay.
func ProtectedRequest() { relayRequests.Inc() }
