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

import (
	"net/url"

	"golang.org/x/sync/errgroup"
)

// Release decrements the refcount of the cache entry matching uri, floored
// at zero. Releasing an artifact that was never acquired (or already fully
// released) is a no-op, not an error.
func (m *Manager) Release(uri *url.URL) error {
	_, span := startSpan(nil, "dlcache.release")
	defer span.End()

	cid, err := cacheID(uri, m.remote.DefaultHost())
	if err != nil {
		return err
	}
	span.SetAttr("cacheId", cid)

	entry, ok := m.reg.lookup(cid)
	if !ok {
		return nil
	}

	if err := entry.lock(); err != nil {
		return newIOError(cid, err)
	}
	defer func() {
		_ = entry.unlock()
	}()

	if entry.refcount > 0 {
		entry.refcount--
	}
	m.Logger.Debug("released", "uri", uri.String(), "refcount", entry.refcount)
	return nil
}

// reclaim performs opportunistic eviction under the disk-size bound: every
// idle (refcount == 0), materialized entry is a candidate for removal;
// entries that were never materialized are left alone. Candidates are
// deleted concurrently via golang.org/x/sync/errgroup.
func (m *Manager) reclaim() error {
	_, span := startSpan(nil, "dlcache.reclaim")
	defer span.End()

	entries := m.reg.snapshot()

	var g errgroup.Group
	for cid, entry := range entries {
		cid, entry := cid, entry
		g.Go(func() error {
			return m.reclaimOne(cid, entry)
		})
	}
	return g.Wait()
}

func (m *Manager) reclaimOne(cid string, entry *CacheStatus) error {
	if err := entry.lock(); err != nil {
		return newIOError(cid, err)
	}
	defer func() {
		_ = entry.unlock()
	}()

	if entry.refcount > 0 {
		return nil
	}
	if !entry.materialized {
		return nil
	}

	if err := removeAll(entry.localLoadPath); err != nil {
		return newIOError(cid, err)
	}
	entry.materialized = false
	entry.mtime = -1
	m.reg.remove(cid)
	m.metrics.evictions.Inc()
	m.Logger.Info("evicted idle cache entry", "cacheId", cid)
	return nil
}

// Purge unconditionally removes every cache entry this Manager knows
// about, regardless of refcount, and resets its registry. Intended for
// administrative use, not for use by a running job (the out-of-process
// dlcache-admin CLI's purge subcommand uses PurgeMatching instead). Errors
// removing individual entries are logged
// and skipped rather than aborting the whole purge.
func (m *Manager) Purge() error {
	_, span := startSpan(nil, "dlcache.purge")
	defer span.End()

	entries := m.reg.snapshot()
	for cid, entry := range entries {
		if err := entry.lock(); err != nil {
			m.Logger.Warn("failed to lock cache entry for purge", "cacheId", cid, "err", err)
			continue
		}
		if err := removeAll(entry.localLoadPath); err != nil {
			m.Logger.Warn("failed to purge cache entry", "cacheId", cid, "err", err)
		} else {
			m.metrics.evictions.Inc()
		}
		_ = entry.unlock()
		m.reg.remove(cid)
	}
	return nil
}
