// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// StatSource is the part of [pgxpool.Pool] the collector reads.
type StatSource interface {
	Stat() *pgxpool.Stat
}

// PoolCollector exports pool occupancy as essence_db_pool_* metrics.
type PoolCollector struct {
	pool StatSource

	acquired  *prometheus.Desc
	idle      *prometheus.Desc
	total     *prometheus.Desc
	max       *prometheus.Desc
	waits     *prometheus.Desc
	waitTotal *prometheus.Desc
}

// NewPoolCollector builds a collector over pool. Register it with the metrics registry.
func NewPoolCollector(pool StatSource) *PoolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("essence_db_pool_"+name, help, nil, nil)
	}

	return &PoolCollector{
		pool:      pool,
		acquired:  desc("acquired_conns", "Connections currently checked out."),
		idle:      desc("idle_conns", "Idle connections."),
		total:     desc("total_conns", "Open connections."),
		max:       desc("max_conns", "Configured connection ceiling."),
		waits:     desc("empty_acquire_total", "Acquires that had to wait for a connection."),
		waitTotal: desc("acquire_wait_seconds_total", "Time spent waiting for a connection."),
	}
}

// Describe implements [prometheus.Collector].
func (collector *PoolCollector) Describe(descs chan<- *prometheus.Desc) {
	descs <- collector.acquired
	descs <- collector.idle
	descs <- collector.total
	descs <- collector.max
	descs <- collector.waits
	descs <- collector.waitTotal
}

// Collect implements [prometheus.Collector].
func (collector *PoolCollector) Collect(metrics chan<- prometheus.Metric) {
	stat := collector.pool.Stat()

	metrics <- prometheus.MustNewConstMetric(collector.acquired, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	metrics <- prometheus.MustNewConstMetric(collector.idle, prometheus.GaugeValue, float64(stat.IdleConns()))
	metrics <- prometheus.MustNewConstMetric(collector.total, prometheus.GaugeValue, float64(stat.TotalConns()))
	metrics <- prometheus.MustNewConstMetric(collector.max, prometheus.GaugeValue, float64(stat.MaxConns()))
	metrics <- prometheus.MustNewConstMetric(collector.waits, prometheus.CounterValue, float64(stat.EmptyAcquireCount()))
	metrics <- prometheus.MustNewConstMetric(collector.waitTotal, prometheus.CounterValue, stat.EmptyAcquireWaitTime().Seconds())
}
