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

import "net/url"

// freshness is the result of isFreshAndPresent: either the entry can be
// reused as-is, or it must be (re)materialized, or the job's expectation
// has diverged from reality and the call must fail fatally.
type freshness int

const (
	freshnessStale freshness = iota
	freshnessFresh
	freshnessJobStale // StaleRemoteArtifact: fatal, caller must not proceed
)

// isFreshAndPresent determines whether entry can be reused as-is against
// the remote's current modification time, or must be (re)materialized, or
// the job's expectation has diverged from reality. Caller must already
// hold entry.entryLock.
func (m *Manager) isFreshAndPresent(uri *url.URL, entry *CacheStatus, expectedStamp int64, preStat *RemoteStat) (freshness, int64, error) {
	if !entry.materialized {
		return freshnessStale, 0, nil
	}

	var dfsStamp int64
	if preStat != nil {
		dfsStamp = preStat.MTime
	} else {
		stat, err := m.remote.Stat(uri)
		if err != nil {
			return freshnessStale, 0, err
		}
		dfsStamp = stat.MTime
	}

	if dfsStamp != expectedStamp {
		return freshnessJobStale, dfsStamp, nil
	}
	if dfsStamp != entry.mtime {
		return freshnessStale, dfsStamp, nil
	}
	return freshnessFresh, dfsStamp, nil
}
