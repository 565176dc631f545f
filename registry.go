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
	"path/filepath"
	"sync"

	"github.com/alexflint/go-filemutex"
)

// CacheStatus is the per-localized-artifact record tracked for one cacheId.
// All of its mutable fields (everything but localLoadPath) must only be
// touched while entryLock is held.
type CacheStatus struct {
	// localLoadPath is the local directory allocated to this entry. It
	// never changes after creation.
	localLoadPath string

	// materialized is false until the first successful localization.
	materialized bool

	// refcount counts live acquirers; it is never negative.
	refcount int

	// mtime is the remote modification timestamp captured at the last
	// successful materialization, or -1 if never materialized.
	mtime int64

	// entryLock serializes everything that touches localLoadPath and the
	// fields above for this one cacheId. Backed by a real file lock
	// (rather than a bare sync.Mutex) so the at-most-once-materialization
	// guarantee holds even across two worker processes sharing baseDir.
	entryLock *filemutex.FileMutex
}

// LocalLoadPath returns the entry's allocated local directory.
func (c *CacheStatus) LocalLoadPath() string { return c.localLoadPath }

// Materialized reports whether this entry has ever been successfully
// localized. Safe to call without the entry lock only for diagnostics;
// acquire/release hold it internally.
func (c *CacheStatus) Materialized() bool { return c.materialized }

// Refcount returns the current refcount. Same caveat as Materialized.
func (c *CacheStatus) Refcount() int { return c.refcount }

// Mtime returns the mtime recorded at last materialization, or -1.
func (c *CacheStatus) Mtime() int64 { return c.mtime }

func (c *CacheStatus) lock() error   { return c.entryLock.Lock() }
func (c *CacheStatus) unlock() error { return c.entryLock.Unlock() }

// registry is the Manager-wide cacheId -> *CacheStatus map. Its mutex
// guards only map membership. It is not held across an entry's copy,
// extract or delete work, but getOrCreate does hold it while creating a new
// entry's parent directory and opening its lock file. It is never held
// while an entry's own lock is held (lock hierarchy: registry lock before
// entry lock, never the reverse).
type registry struct {
	mu      sync.Mutex
	entries map[string]*CacheStatus
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]*CacheStatus)}
}

// getOrCreate returns the existing entry for id, or inserts and returns a
// fresh one rooted at baseDir/id.
func (r *registry) getOrCreate(id, baseDir string) (*CacheStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[id]; ok {
		return entry, nil
	}

	localLoadPath := filepath.Join(baseDir, filepath.FromSlash(id))
	lockPath := localLoadPath + ".lock"
	if err := ensureParentDir(lockPath); err != nil {
		return nil, newIOError(id, err)
	}
	fm, err := filemutex.New(lockPath)
	if err != nil {
		return nil, newIOError(id, err)
	}

	entry := &CacheStatus{
		localLoadPath: localLoadPath,
		mtime:         -1,
		entryLock:     fm,
	}
	r.entries[id] = entry
	return entry, nil
}

// lookup returns the entry for id without creating it.
func (r *registry) lookup(id string) (*CacheStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	return entry, ok
}

// remove drops id from the registry. Caller is responsible for any disk
// cleanup; this only mutates map membership.
func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// snapshot returns a stable copy of (id, entry) pairs to iterate outside
// the registry lock, used by reclaim and purge.
func (r *registry) snapshot() map[string]*CacheStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*CacheStatus, len(r.entries))
	for id, entry := range r.entries {
		out[id] = entry
	}
	return out
}

func ensureParentDir(path string) error {
	return mkdirAll(filepath.Dir(path))
}
