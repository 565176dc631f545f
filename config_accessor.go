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
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/go-ini/ini"
)

// the ten job configuration keys recognized by ConfigAccessor.
const (
	keyCacheArchives           = "mapred.cache.archives"
	keyCacheFiles              = "mapred.cache.files"
	keyCacheArchivesTimestamps = "mapred.cache.archives.timestamps"
	keyCacheFilesTimestamps    = "mapred.cache.files.timestamps"
	keyLocalCacheArchives      = "mapred.cache.localArchives"
	keyLocalCacheFiles         = "mapred.cache.localFiles"
	keyClasspathFiles          = "mapred.job.classpath.files"
	keyClasspathArchives       = "mapred.job.classpath.archives"
	keyCreateSymlink           = "mapred.create.symlink"
	keyCacheSize               = "local.cache.size"

	defaultCacheSizeLimit = int64(1048576) // 1 MiB
)

// JobConfigStore is the narrow, string-keyed external configuration map a
// job description is read from and written back to. ConfigAccessor is the
// typed surface built on top of it.
type JobConfigStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// MapConfigStore is an in-memory JobConfigStore, the reference
// implementation used by tests and simple embedders.
type MapConfigStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMapConfigStore returns an empty MapConfigStore.
func NewMapConfigStore() *MapConfigStore {
	return &MapConfigStore{data: make(map[string]string)}
}

func (m *MapConfigStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MapConfigStore) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// IniJobConfigStore reads a go-ini-shaped properties file's "[mapred]"
// section into a JobConfigStore. Set() writes are held in memory only; the
// file on disk is not rewritten.
func IniJobConfigStore(path string) (JobConfigStore, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, newConfigError(path, err)
	}
	store := NewMapConfigStore()
	section := cfg.Section("mapred")
	for _, key := range section.Keys() {
		store.Set("mapred."+key.Name(), key.String())
	}
	return store, nil
}

// ConfigAccessor is the typed view over a JobConfigStore: all encode/decode
// logic for the ten recognized keys lives here, and nowhere else.
type ConfigAccessor struct {
	store JobConfigStore
}

// NewConfigAccessor wraps store.
func NewConfigAccessor(store JobConfigStore) *ConfigAccessor {
	return &ConfigAccessor{store: store}
}

func (c *ConfigAccessor) getCSV(key string) []string {
	v, ok := c.store.Get(key)
	if !ok || v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

func (c *ConfigAccessor) setCSV(key string, values []string) {
	c.store.Set(key, strings.Join(values, ","))
}

func parseURIList(raw []string) ([]*url.URL, error) {
	uris := make([]*url.URL, 0, len(raw))
	for _, s := range raw {
		u, err := parseArtifactURI(s)
		if err != nil {
			return nil, err
		}
		uris = append(uris, u)
	}
	return uris, nil
}

func encodeURIList(uris []*url.URL) []string {
	out := make([]string, len(uris))
	for i, u := range uris {
		out[i] = u.String()
	}
	return out
}

// CacheFiles returns the URIs of mapred.cache.files.
func (c *ConfigAccessor) CacheFiles() ([]*url.URL, error) {
	return parseURIList(c.getCSV(keyCacheFiles))
}

// SetCacheFiles encodes uris into mapred.cache.files.
func (c *ConfigAccessor) SetCacheFiles(uris []*url.URL) {
	c.setCSV(keyCacheFiles, encodeURIList(uris))
}

// CacheArchives returns the URIs of mapred.cache.archives.
func (c *ConfigAccessor) CacheArchives() ([]*url.URL, error) {
	return parseURIList(c.getCSV(keyCacheArchives))
}

// SetCacheArchives encodes uris into mapred.cache.archives.
func (c *ConfigAccessor) SetCacheArchives(uris []*url.URL) {
	c.setCSV(keyCacheArchives, encodeURIList(uris))
}

func parseTimestamps(raw []string, key string) ([]int64, error) {
	out := make([]int64, 0, len(raw))
	for _, s := range raw {
		ts, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, newConfigError(key, err)
		}
		out = append(out, ts)
	}
	return out, nil
}

func encodeTimestamps(ts []int64) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = strconv.FormatInt(t, 10)
	}
	return out
}

// FileTimestamps returns mapred.cache.files.timestamps, positional with
// CacheFiles().
func (c *ConfigAccessor) FileTimestamps() ([]int64, error) {
	return parseTimestamps(c.getCSV(keyCacheFilesTimestamps), keyCacheFilesTimestamps)
}

// SetFileTimestamps encodes ts into mapred.cache.files.timestamps.
func (c *ConfigAccessor) SetFileTimestamps(ts []int64) {
	c.setCSV(keyCacheFilesTimestamps, encodeTimestamps(ts))
}

// ArchiveTimestamps returns mapred.cache.archives.timestamps, positional
// with CacheArchives().
func (c *ConfigAccessor) ArchiveTimestamps() ([]int64, error) {
	return parseTimestamps(c.getCSV(keyCacheArchivesTimestamps), keyCacheArchivesTimestamps)
}

// SetArchiveTimestamps encodes ts into mapred.cache.archives.timestamps.
func (c *ConfigAccessor) SetArchiveTimestamps(ts []int64) {
	c.setCSV(keyCacheArchivesTimestamps, encodeTimestamps(ts))
}

// LocalCacheFiles returns mapred.cache.localFiles.
func (c *ConfigAccessor) LocalCacheFiles() []string {
	return c.getCSV(keyLocalCacheFiles)
}

// SetLocalCacheFiles encodes paths into mapred.cache.localFiles.
func (c *ConfigAccessor) SetLocalCacheFiles(paths []string) {
	c.setCSV(keyLocalCacheFiles, paths)
}

// LocalCacheArchives returns mapred.cache.localArchives.
func (c *ConfigAccessor) LocalCacheArchives() []string {
	return c.getCSV(keyLocalCacheArchives)
}

// SetLocalCacheArchives encodes paths into mapred.cache.localArchives.
func (c *ConfigAccessor) SetLocalCacheArchives(paths []string) {
	c.setCSV(keyLocalCacheArchives, paths)
}

func (c *ConfigAccessor) getClasspath(key string) []string {
	v, ok := c.store.Get(key)
	if !ok || v == "" {
		return nil
	}
	return strings.Split(v, string(filepath.ListSeparator))
}

func (c *ConfigAccessor) setClasspath(key string, paths []string) {
	c.store.Set(key, strings.Join(paths, string(filepath.ListSeparator)))
}

// ClasspathFiles returns mapred.job.classpath.files, split on the host OS
// path-list separator.
func (c *ConfigAccessor) ClasspathFiles() []string {
	return c.getClasspath(keyClasspathFiles)
}

// SetClasspathFiles encodes paths into mapred.job.classpath.files.
func (c *ConfigAccessor) SetClasspathFiles(paths []string) {
	c.setClasspath(keyClasspathFiles, paths)
}

// ClasspathArchives returns mapred.job.classpath.archives.
func (c *ConfigAccessor) ClasspathArchives() []string {
	return c.getClasspath(keyClasspathArchives)
}

// SetClasspathArchives encodes paths into mapred.job.classpath.archives.
func (c *ConfigAccessor) SetClasspathArchives(paths []string) {
	c.setClasspath(keyClasspathArchives, paths)
}

// SymlinksEnabled reports whether mapred.create.symlink == "yes".
func (c *ConfigAccessor) SymlinksEnabled() bool {
	v, _ := c.store.Get(keyCreateSymlink)
	return v == "yes"
}

// SetSymlinksEnabled encodes enabled into mapred.create.symlink.
func (c *ConfigAccessor) SetSymlinksEnabled(enabled bool) {
	if enabled {
		c.store.Set(keyCreateSymlink, "yes")
	} else {
		c.store.Set(keyCreateSymlink, "no")
	}
}

// CacheSizeLimit returns local.cache.size, defaulting to 1 MiB.
func (c *ConfigAccessor) CacheSizeLimit() int64 {
	v, ok := c.store.Get(keyCacheSize)
	if !ok || v == "" {
		return defaultCacheSizeLimit
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultCacheSizeLimit
	}
	return n
}

// SetCacheSizeLimit encodes limit into local.cache.size.
func (c *ConfigAccessor) SetCacheSizeLimit(limit int64) {
	c.store.Set(keyCacheSize, strconv.FormatInt(limit, 10))
}

// BuildClasspath joins localized file and archive paths with the host OS
// path-list separator, assembling a task's classpath from exactly these
// two localized-path lists.
func BuildClasspath(files, archives []string) string {
	all := make([]string, 0, len(files)+len(archives))
	all = append(all, files...)
	all = append(all, archives...)
	return strings.Join(all, string(filepath.ListSeparator))
}
