package sockets

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// socketOps counts engine operations by op and result ("ok", "rejected", "error").
	socketOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socketcraft_socket_operations_total",
		Help: "Socket engine operations by op and result",
	}, []string{"op", "result"})

	returnFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socketcraft_inventory_return_failures_total",
		Help: "Unsocketed gems that could not be returned to inventory",
	})
)
