// Copyright © 2017 Genome Research Limited
// Author: Sendu Bala <sb10@sanger.ac.uk>.
//
//  This file is part of dlcache.
//
//  dlcache is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Lesser General Public License as published by
//  the Free Software Foundation, either version 3 of the License, or
//  (at your option) any later version.
//
//  dlcache is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Lesser General Public License for more details.
//
//  You should have received a copy of the GNU Lesser General Public License
//  along with dlcache. If not, see <http://www.gnu.org/licenses/>.

package dlcache

import "github.com/prometheus/client_golang/prometheus"

// Metrics is a prometheus.Collector exposing a Manager's operational
// counters. It is not registered with the default registry automatically;
// call prometheus.MustRegister(mgr.Metrics()) if you want it exposed.
type Metrics struct {
	materializations     prometheus.Counter
	cacheHits            prometheus.Counter
	staleRemoteArtifacts prometheus.Counter
	evictions            prometheus.Counter
	bytesOnDisk          prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		materializations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dlcache",
			Name:      "materializations_total",
			Help:      "Number of times an artifact was copied from the remote filesystem and (re)extracted.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dlcache",
			Name:      "cache_hits_total",
			Help:      "Number of Acquire calls served from an already-fresh local copy.",
		}),
		staleRemoteArtifacts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dlcache",
			Name:      "stale_remote_artifacts_total",
			Help:      "Number of Acquire calls that failed because the remote artifact changed since the job was configured.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dlcache",
			Name:      "evictions_total",
			Help:      "Number of cache entries removed by reclaim or purge.",
		}),
		bytesOnDisk: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dlcache",
			Name:      "bytes_on_disk",
			Help:      "Most recently measured total size of the cache base directory.",
		}),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.materializations.Describe(ch)
	m.cacheHits.Describe(ch)
	m.staleRemoteArtifacts.Describe(ch)
	m.evictions.Describe(ch)
	m.bytesOnDisk.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.materializations.Collect(ch)
	m.cacheHits.Collect(ch)
	m.staleRemoteArtifacts.Collect(ch)
	m.evictions.Collect(ch)
	m.bytesOnDisk.Collect(ch)
}
