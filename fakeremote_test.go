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
	"os"
	"sync"
)

// fakeRemote is an in-memory RemoteFS used throughout this package's
// tests to simulate a distributed filesystem without touching one.
type fakeRemote struct {
	mu      sync.Mutex
	host    string
	content map[string][]byte
	mtime   map[string]int64
	statErr map[string]error
	copyErr map[string]error
	calls   int
}

func newFakeRemote(host string) *fakeRemote {
	return &fakeRemote{
		host:    host,
		content: make(map[string][]byte),
		mtime:   make(map[string]int64),
		statErr: make(map[string]error),
		copyErr: make(map[string]error),
	}
}

func (f *fakeRemote) DefaultHost() string { return f.host }

func (f *fakeRemote) put(path string, data []byte, mtime int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content[path] = data
	f.mtime[path] = mtime
}

func (f *fakeRemote) Stat(uri *url.URL) (RemoteStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.statErr[uri.Path]; ok {
		return RemoteStat{}, err
	}
	mt, ok := f.mtime[uri.Path]
	if !ok {
		return RemoteStat{}, newIOError(uri.String(), os.ErrNotExist)
	}
	return RemoteStat{MTime: mt}, nil
}

func (f *fakeRemote) CopyToLocal(uri *url.URL, destPath string) error {
	f.mu.Lock()
	data, ok := f.content[uri.Path]
	err, hasErr := f.copyErr[uri.Path]
	f.mu.Unlock()

	if hasErr {
		return err
	}
	if !ok {
		return newIOError(uri.String(), os.ErrNotExist)
	}
	return os.WriteFile(destPath, data, os.FileMode(fileMode))
}
