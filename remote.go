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
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/minio/minio-go"
)

// RemoteStat is the subset of remote file metadata the cache needs: its
// modification time. A caller of Acquire may pass one in if it already
// has a fresh stat, saving a round trip.
type RemoteStat struct {
	MTime int64
}

// RemoteFS is the external collaborator providing resolution of URIs,
// copy-to-local, and stat for modification time. The cache core only ever
// talks to this interface; DefaultHost supplies the host substituted for
// scheme-less/host-less URIs.
type RemoteFS interface {
	DefaultHost() string
	Stat(uri *url.URL) (RemoteStat, error)
	CopyToLocal(uri *url.URL, destPath string) error
}

// withBackoff wraps a RemoteFS so that Stat and CopyToLocal are retried
// with exponential backoff on failure. maxAttempts <= 1 means no retrying.
func withBackoff(fs RemoteFS, maxAttempts int) RemoteFS {
	if maxAttempts <= 1 {
		return fs
	}
	return &backoffRemoteFS{
		RemoteFS:    fs,
		maxAttempts: maxAttempts,
		b: &backoff.Backoff{
			Min:    100 * time.Millisecond,
			Max:    10 * time.Second,
			Factor: 3,
			Jitter: true,
		},
	}
}

type backoffRemoteFS struct {
	RemoteFS
	maxAttempts int
	b           *backoff.Backoff
}

func (b *backoffRemoteFS) Stat(uri *url.URL) (stat RemoteStat, err error) {
	b.b.Reset()
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		stat, err = b.RemoteFS.Stat(uri)
		if err == nil {
			return
		}
		if attempt < b.maxAttempts {
			time.Sleep(b.b.Duration())
		}
	}
	return
}

func (b *backoffRemoteFS) CopyToLocal(uri *url.URL, destPath string) (err error) {
	b.b.Reset()
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		err = b.RemoteFS.CopyToLocal(uri, destPath)
		if err == nil {
			return
		}
		if attempt < b.maxAttempts {
			time.Sleep(b.b.Duration())
		}
	}
	return
}

// LocalRemoteFS treats an already-local directory tree as the "remote"
// filesystem: uri.Path is resolved directly against the local disk. This
// is the degenerate case of a distributed filesystem that happens to be
// NFS-mounted (or, in tests, a plain temp directory).
type LocalRemoteFS struct {
	// Host is returned by DefaultHost; set it to whatever name you want
	// scheme-less/host-less URIs resolved against.
	Host string
}

func (l *LocalRemoteFS) DefaultHost() string { return l.Host }

func (l *LocalRemoteFS) Stat(uri *url.URL) (RemoteStat, error) {
	info, err := os.Stat(uri.Path)
	if err != nil {
		return RemoteStat{}, newIOError(uri.String(), err)
	}
	return RemoteStat{MTime: info.ModTime().Unix()}, nil
}

func (l *LocalRemoteFS) CopyToLocal(uri *url.URL, destPath string) error {
	in, err := os.Open(uri.Path)
	if err != nil {
		return newIOError(uri.String(), err)
	}
	defer in.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return newIOError(uri.String(), err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return newIOError(uri.String(), err)
	}
	if err := out.Sync(); err != nil {
		return newIOError(uri.String(), err)
	}
	return nil
}

// S3RemoteFS is a RemoteFS backed by an S3-compatible object store: the
// bucket is the first path component, the object key is the rest, and a
// single *minio.Client is built once and reused for every Stat/CopyToLocal
// call.
type S3RemoteFS struct {
	Host      string
	client    *minio.Client
	secure    bool
	accessKey string
	secretKey string
	region    string
}

// NewS3RemoteFS builds an S3RemoteFS against host using the given
// credentials.
func NewS3RemoteFS(host, accessKey, secretKey string, secure bool, region string) (*S3RemoteFS, error) {
	var client *minio.Client
	var err error
	if region != "" {
		client, err = minio.NewWithRegion(host, accessKey, secretKey, secure, region)
	} else {
		client, err = minio.New(host, accessKey, secretKey, secure)
	}
	if err != nil {
		return nil, newConfigError(host, err)
	}
	return &S3RemoteFS{Host: host, client: client, secure: secure, accessKey: accessKey, secretKey: secretKey, region: region}, nil
}

func (s *S3RemoteFS) DefaultHost() string { return s.Host }

// bucketAndKey splits a URI path "/bucket/some/key" into a bucket name and
// an object key.
func bucketAndKey(uri *url.URL) (bucket, key string) {
	trimmed := strings.TrimPrefix(uri.Path, "/")
	parts := strings.SplitN(trimmed, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		key = parts[1]
	}
	return
}

func (s *S3RemoteFS) Stat(uri *url.URL) (RemoteStat, error) {
	bucket, key := bucketAndKey(uri)
	info, err := s.client.StatObject(bucket, key)
	if err != nil {
		return RemoteStat{}, newIOError(uri.String(), err)
	}
	return RemoteStat{MTime: info.LastModified.Unix()}, nil
}

func (s *S3RemoteFS) CopyToLocal(uri *url.URL, destPath string) error {
	bucket, key := bucketAndKey(uri)
	if err := s.client.FGetObject(bucket, key, destPath, minio.GetObjectOptions{}); err != nil {
		return newIOError(uri.String(), err)
	}
	return nil
}

// objectBasename returns the final path element, whose extension decides
// which extractor an archive is given to (and which is named in log lines).
func objectBasename(uri *url.URL) string {
	return path.Base(uri.Path)
}
