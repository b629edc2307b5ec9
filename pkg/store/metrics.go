package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeReads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saveit_store_reads_total",
		Help: "Item documents read from the store.",
	})
	storeWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saveit_store_writes_total",
		Help: "Item documents written to the store.",
	})
	storeDeletes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saveit_store_deletes_total",
		Help: "Item documents deleted from the store.",
	})
	storeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saveit_store_errors_total",
		Help: "Store operation failures by kind.",
	}, []string{"op"})
	legacyMigrated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saveit_store_legacy_migrated_total",
		Help: "Legacy link records rewritten into the canonical namespace.",
	})
)
