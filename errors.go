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

import "fmt"

// Kind categorises a *CacheError so callers can treat StaleRemoteArtifact
// as fatal to the job without string-matching messages.
type Kind int

const (
	// ConfigError means the caller's configuration is invalid: a missing
	// default filesystem host, a malformed URI, or a missing timestamp for
	// a listed URI.
	ConfigError Kind = iota

	// IOError means a remote stat/copy, local mkdir/delete, or extractor
	// operation failed.
	IOError

	// StaleRemoteArtifact means the remote file's mtime differs from the
	// expectedStamp the job recorded. Fatal: the caller must not retry.
	StaleRemoteArtifact

	// CacheInUse means a refresh was required but the stale entry's
	// refcount is still >= 1.
	CacheInUse

	// PermissionSetInterrupted means chmod was interrupted; it is logged,
	// never returned by Acquire.
	PermissionSetInterrupted
)

func (k Kind) String() string {
	switch k {
	case ConfigError:
		return "ConfigError"
	case IOError:
		return "IOError"
	case StaleRemoteArtifact:
		return "StaleRemoteArtifact"
	case CacheInUse:
		return "CacheInUse"
	case PermissionSetInterrupted:
		return "PermissionSetInterrupted"
	default:
		return "UnknownError"
	}
}

// CacheError is the error type returned by every exported operation in this
// package that can fail. Check Kind (or use Is) instead of matching on
// Error() text.
type CacheError struct {
	Kind Kind
	URI  string // the offending URI, if any
	Err  error  // wrapped underlying error, if any
}

func (e *CacheError) Error() string {
	if e.URI != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s [%s]: %s", e.Kind, e.URI, e.Err)
		}
		return fmt.Sprintf("%s [%s]", e.Kind, e.URI)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// Is reports whether e's Kind matches k.
func (e *CacheError) Is(k Kind) bool {
	return e.Kind == k
}

func newConfigError(uri string, err error) *CacheError {
	return &CacheError{Kind: ConfigError, URI: uri, Err: err}
}

func newIOError(uri string, err error) *CacheError {
	return &CacheError{Kind: IOError, URI: uri, Err: err}
}

func newStaleRemoteArtifact(uri string, expected, actual int64) *CacheError {
	return &CacheError{
		Kind: StaleRemoteArtifact,
		URI:  uri,
		Err:  fmt.Errorf("remote mtime %d no longer matches the job's expected mtime %d", actual, expected),
	}
}

func newCacheInUse(uri string) *CacheError {
	return &CacheError{
		Kind: CacheInUse,
		URI:  uri,
		Err:  fmt.Errorf("stale cache entry is still referenced by other tasks"),
	}
}
