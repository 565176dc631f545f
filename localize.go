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

/*
Package dlcache is a pure Go library implementing a distributed file
localization cache: given a set of read-only artifacts (plain files and
archives) residing in a remote distributed filesystem, it materializes
them on the local node of a worker so that tasks can read them from a
local path. Artifacts are shared across tasks of the same job (and
potentially across jobs on the same node), fetched at most once per
logical identity, reference-counted while in use, and garbage-collected
when a configured local-disk budget is exceeded.

Usage

	mgr, err := dlcache.New(&dlcache.Config{
	    BaseDir: "/var/lib/worker/dlcache",
	    Remote:  myRemoteFS,
	})
	if err != nil {
	    log.Fatal(err)
	}

	localPath, err := mgr.Acquire(dlcache.AcquireRequest{
	    URI:           uri, // dfs://host/path/to/file.dat#linkname
	    ExpectedStamp: jobRecordedMtime,
	    IsArchive:     false,
	    WorkDir:       taskWorkDir,
	})
	// ... task reads localPath ...
	mgr.Release(uri)

You might check Logs() afterwards.
*/
package dlcache

import (
	"fmt"
	"net/url"
	"os"

	"github.com/google/uuid"
	"github.com/inconshreveable/log15"
	"github.com/mitchellh/go-homedir"
	"github.com/sb10/l15h"
)

// Config configures a Manager: BaseDir is the on-disk cache root, Remote is
// the distributed-filesystem collaborator, and Retries/SizeLimit/Verbose
// and the two extractors tune its behavior.
type Config struct {
	// BaseDir is the root local directory under which all cache entries
	// live. A leading "~" is expanded. Defaults to the current working
	// directory.
	BaseDir string

	// Remote is the external distributed-filesystem collaborator.
	// Required.
	Remote RemoteFS

	// Retries is the number of times to automatically retry a failed
	// remote stat/copy. 0 means don't retry.
	Retries int

	// SizeLimit is the byte budget for BaseDir (local.cache.size).
	// 0 means use the default (1 MiB).
	SizeLimit int64

	// Verbose results in every operation getting an entry in Logs().
	// Errors always appear there.
	Verbose bool

	// ZipExtractor and JarExtractor are the opaque archive extractors.
	// Both default to the standard library's archive/zip-backed
	// implementation.
	ZipExtractor Extractor
	JarExtractor Extractor
}

// Manager is the local cache manager: one process-wide value tracking
// localized artifacts for one baseDir.
type Manager struct {
	log15.Logger
	logStore *l15h.Store

	baseDir      string
	remote       RemoteFS
	sizeLimit    int64
	zipExtractor Extractor
	jarExtractor Extractor

	reg *registry

	metrics *Metrics
}

// New constructs a Manager. It does not touch disk beyond creating BaseDir.
func New(cfg *Config) (*Manager, error) {
	if cfg.Remote == nil {
		return nil, newConfigError("", fmt.Errorf("no RemoteFS configured"))
	}

	baseDir := cfg.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, newConfigError("", err)
		}
		baseDir = wd
	}
	expanded, err := homedir.Expand(baseDir)
	if err != nil {
		return nil, newConfigError(baseDir, err)
	}
	if err := mkdirAll(expanded); err != nil {
		return nil, newIOError(expanded, err)
	}

	sizeLimit := cfg.SizeLimit
	if sizeLimit <= 0 {
		sizeLimit = defaultCacheSizeLimit
	}

	zipX := cfg.ZipExtractor
	if zipX == nil {
		zipX = defaultZipExtractor
	}
	jarX := cfg.JarExtractor
	if jarX == nil {
		jarX = defaultJarExtractor
	}

	logger, store := newLogStore(expanded, cfg.Verbose)

	m := &Manager{
		Logger:       logger,
		logStore:     store,
		baseDir:      expanded,
		remote:       withBackoff(cfg.Remote, cfg.Retries+1),
		sizeLimit:    sizeLimit,
		zipExtractor: zipX,
		jarExtractor: jarX,
		reg:          newRegistry(),
		metrics:      newMetrics(),
	}
	return m, nil
}

// Logs returns messages generated by this Manager; by default these are
// only errors, but a Config.Verbose Manager also logs every operation.
func (m *Manager) Logs() []string {
	return m.logStore.Logs()
}

// BaseDir returns the root directory this Manager materializes entries
// under.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Metrics returns the Prometheus collector for this Manager; register it
// with your own registry to expose it, e.g. prometheus.MustRegister(m.Metrics()).
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// AcquireRequest bundles the arguments to Acquire. BaseDir is fixed at
// Manager construction instead of being passed per call.
type AcquireRequest struct {
	// URI identifies the artifact: scheme://host[:port]/absolute/path[#fragment].
	URI *url.URL

	// ExpectedStamp is the job's recorded remote modification timestamp.
	ExpectedStamp int64

	// IsArchive marks this as an archive to be extracted (.zip/.jar)
	// rather than left as a single file.
	IsArchive bool

	// WorkDir is the task's working directory, used only when URI has a
	// non-empty fragment and SymlinksEnabled is set.
	WorkDir string

	// RemoteStat, if non-nil, is a pre-fetched remote stat (saves a round
	// trip); otherwise the remote is stat'ed during the freshness check.
	RemoteStat *RemoteStat

	// SymlinksEnabled mirrors mapred.create.symlink == "yes".
	SymlinksEnabled bool
}

func (m *Manager) nextRequestID() string {
	return uuid.NewString()
}

// Acquire localizes the artifact identified by req.URI, returning its local
// path. It is safe for concurrent use; at most one materialization runs per
// cacheId at a time.
func (m *Manager) Acquire(req AcquireRequest) (string, error) {
	_, span := startSpan(nil, "dlcache.acquire")
	defer span.End()

	reqID := m.nextRequestID()
	log := m.Logger.New("req", reqID, "uri", req.URI.String())

	cid, err := cacheID(req.URI, m.remote.DefaultHost())
	if err != nil {
		log.Error("could not derive cacheId", "err", err)
		return "", err
	}
	span.SetAttr("cacheId", cid)
	span.SetAttr("expectedStamp", req.ExpectedStamp)

	entry, err := m.reg.getOrCreate(cid, m.baseDir)
	if err != nil {
		log.Error("could not register entry", "err", err)
		return "", err
	}

	if err := entry.lock(); err != nil {
		return "", newIOError(cid, err)
	}
	defer func() {
		if uerr := entry.unlock(); uerr != nil {
			log.Warn("failed to unlock cache entry", "err", uerr)
		}
	}()

	fresh, dfsStamp, err := m.isFreshAndPresent(req.URI, entry, req.ExpectedStamp, req.RemoteStat)
	if err != nil {
		log.Error("stat failed", "err", err)
		return "", newIOError(req.URI.String(), err)
	}

	switch fresh {
	case freshnessJobStale:
		log.Crit("remote artifact changed since job was configured", "expected", req.ExpectedStamp, "actual", dfsStamp)
		m.metrics.staleRemoteArtifacts.Inc()
		return "", newStaleRemoteArtifact(req.URI.String(), req.ExpectedStamp, dfsStamp)

	case freshnessStale:
		if entry.refcount >= 1 && entry.materialized {
			log.Warn("refresh blocked: cache entry in use", "refcount", entry.refcount)
			return "", newCacheInUse(req.URI.String())
		}
		if err := m.materialize(log, req, entry, cid); err != nil {
			return "", err
		}
		m.metrics.materializations.Inc()

	case freshnessFresh:
		m.metrics.cacheHits.Inc()
		log.Info("reusing materialized cache entry")
	}

	resultPath := entry.localLoadPath
	if !req.IsArchive {
		resultPath = joinLocalLoadPath(entry.localLoadPath)
	}

	if req.SymlinksEnabled && req.URI.Fragment != "" {
		if err := createSymlink(req.WorkDir, req.URI.Fragment, resultPath); err != nil {
			log.Warn("could not create symlink", "err", err)
			return "", err
		}
	}

	entry.refcount++
	log.Info("acquired", "refcount", entry.refcount, "path", resultPath)

	if usage, err := diskUsage(m.baseDir); err == nil {
		m.metrics.bytesOnDisk.Set(float64(usage))
		if usage > m.sizeLimit {
			log.Info("cache size exceeds budget, reclaiming idle entries", "usage", usage, "limit", m.sizeLimit)
			if rerr := m.reclaim(); rerr != nil {
				log.Warn("reclaim failed", "err", rerr)
			}
		}
	}

	return resultPath, nil
}

// joinLocalLoadPath returns localLoadPath/basename(localLoadPath), the
// result path returned for a single-file (non-archive) cache entry.
func joinLocalLoadPath(localLoadPath string) string {
	return localLoadPath + string(os.PathSeparator) + basename(localLoadPath)
}

// materialize performs the copy+extract+chmod sequence that brings a cache
// entry up to date. Caller must hold entry.entryLock.
func (m *Manager) materialize(log log15.Logger, req AcquireRequest, entry *CacheStatus, cid string) error {
	if err := removeAll(entry.localLoadPath); err != nil {
		return newIOError(req.URI.String(), err)
	}
	if err := mkdirAll(entry.localLoadPath); err != nil {
		return newIOError(req.URI.String(), err)
	}

	parchive := joinLocalLoadPath(entry.localLoadPath)

	if err := m.remote.CopyToLocal(req.URI, parchive); err != nil {
		return newIOError(req.URI.String(), err)
	}

	if req.IsArchive {
		name := objectBasename(req.URI)
		isZip, isJar := isArchiveName(name)
		switch {
		case isJar:
			if err := m.jarExtractor.Extract(parchive, entry.localLoadPath); err != nil {
				return err
			}
		case isZip:
			if err := m.zipExtractor.Extract(parchive, entry.localLoadPath); err != nil {
				return err
			}
		default:
			// non-extractable archive extension: no-op, not an error.
			log.Info("archive has no recognized extension, leaving file in place", "name", name)
		}
	}

	chmodExecutableRecursive(parchive, func(msg string, ctx ...interface{}) {
		log.Warn(msg, ctx...)
	})

	stat, err := m.remote.Stat(req.URI)
	if err != nil {
		return newIOError(req.URI.String(), err)
	}

	entry.materialized = true
	entry.mtime = stat.MTime
	return nil
}
