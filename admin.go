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
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// EntryInfo describes one on-disk cache entry, for administrative
// inspection (cmd/dlcache-admin's stats/purge) out-of-process from any
// running Manager: these functions walk baseDir directly rather than
// consulting a live registry, since an admin invocation is ordinarily a
// separate process from the worker that populated the cache.
type EntryInfo struct {
	// CacheID is the entry's registry key, reconstructed from its path
	// under baseDir.
	CacheID string

	// Bytes is the entry's on-disk size.
	Bytes int64
}

// ListEntries walks baseDir and reports the size of every top-level-host
// cache entry found, for "dlcache-admin stats".
func ListEntries(baseDir string) ([]EntryInfo, error) {
	var entries []EntryInfo

	hosts, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, newIOError(baseDir, err)
	}

	for _, host := range hosts {
		if !host.IsDir() {
			continue
		}
		hostDir := filepath.Join(baseDir, host.Name())
		err := filepath.WalkDir(hostDir, func(path string, d os.DirEntry, werr error) error {
			if werr != nil {
				return werr
			}
			if path == hostDir || !d.IsDir() || !hasEntryLockFile(path) {
				return nil
			}
			size, serr := diskUsage(path)
			if serr != nil {
				return serr
			}
			rel, rerr := filepath.Rel(baseDir, path)
			if rerr != nil {
				return rerr
			}
			entries = append(entries, EntryInfo{
				CacheID: filepath.ToSlash(rel),
				Bytes:   size,
			})
			return filepath.SkipDir
		})
		if err != nil {
			return nil, newIOError(hostDir, err)
		}
	}
	return entries, nil
}

// hasEntryLockFile reports whether path is a cache entry's localLoadPath:
// registry.getOrCreate always creates a "<localLoadPath>.lock" file
// alongside it, which is otherwise the only on-disk trace of the registry
// structure an out-of-process admin tool can see.
func hasEntryLockFile(path string) bool {
	_, err := os.Stat(path + ".lock")
	return err == nil
}

// PurgeMatching deletes every on-disk cache entry under baseDir whose
// CacheID matches the doublestar glob pattern (e.g. "nodeA/jobs/42/**"),
// returning the CacheIDs it removed. An empty pattern matches everything,
// equivalent to Manager.Purge() but usable from a separate admin process.
func PurgeMatching(baseDir, pattern string) ([]string, error) {
	entries, err := ListEntries(baseDir)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, e := range entries {
		matched := pattern == ""
		if !matched {
			matched, err = doublestar.Match(pattern, e.CacheID)
			if err != nil {
				return removed, newConfigError(pattern, err)
			}
		}
		if !matched {
			continue
		}
		if err := removeAll(filepath.Join(baseDir, filepath.FromSlash(e.CacheID))); err != nil {
			return removed, newIOError(e.CacheID, err)
		}
		removed = append(removed, e.CacheID)
	}
	return removed, nil
}
