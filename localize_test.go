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
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAcquire(t *testing.T) {
	Convey("Given a Manager backed by a fake remote with one file", t, func() {
		baseDir, err := os.MkdirTemp("", "dlcache-acquire-test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(baseDir)

		remote := newFakeRemote("nodeA")
		remote.put("/data/input.txt", []byte("hello world"), 100)

		mgr, err := New(&Config{BaseDir: baseDir, Remote: remote})
		So(err, ShouldBeNil)

		u, err := url.Parse("dfs://nodeA/data/input.txt")
		So(err, ShouldBeNil)

		Convey("Acquire materializes the file and returns its local path", func() {
			path, err := mgr.Acquire(AcquireRequest{URI: u, ExpectedStamp: 100})
			So(err, ShouldBeNil)

			data, rerr := os.ReadFile(path)
			So(rerr, ShouldBeNil)
			So(string(data), ShouldEqual, "hello world")
		})

		Convey("A second Acquire for the same artifact is a cache hit, not a re-copy", func() {
			_, err := mgr.Acquire(AcquireRequest{URI: u, ExpectedStamp: 100})
			So(err, ShouldBeNil)
			callsAfterFirst := remote.calls

			_, err = mgr.Acquire(AcquireRequest{URI: u, ExpectedStamp: 100})
			So(err, ShouldBeNil)
			So(remote.calls, ShouldEqual, callsAfterFirst+1)

			entry, ok := mgr.reg.lookup("nodeA/data/input.txt")
			So(ok, ShouldBeTrue)
			So(entry.Refcount(), ShouldEqual, 2)
		})

		Convey("Acquire with a stale expectedStamp fails with StaleRemoteArtifact", func() {
			_, err := mgr.Acquire(AcquireRequest{URI: u, ExpectedStamp: 100})
			So(err, ShouldBeNil)

			remote.put("/data/input.txt", []byte("changed"), 200)

			_, err = mgr.Acquire(AcquireRequest{URI: u, ExpectedStamp: 100})
			So(err, ShouldNotBeNil)
			cerr, ok := err.(*CacheError)
			So(ok, ShouldBeTrue)
			So(cerr.Is(StaleRemoteArtifact), ShouldBeTrue)
		})

		Convey("Acquiring an archive extracts it and returns the entry directory", func() {
			zipPath := buildTestZip(t, map[string]string{"inner.txt": "zipped content"})
			zipBytes, rerr := os.ReadFile(zipPath)
			So(rerr, ShouldBeNil)
			remote.put("/data/bundle.zip", zipBytes, 300)

			zu, perr := url.Parse("dfs://nodeA/data/bundle.zip")
			So(perr, ShouldBeNil)

			path, err := mgr.Acquire(AcquireRequest{URI: zu, ExpectedStamp: 300, IsArchive: true})
			So(err, ShouldBeNil)

			data, rerr2 := os.ReadFile(path + "/inner.txt")
			So(rerr2, ShouldBeNil)
			So(string(data), ShouldEqual, "zipped content")
		})

		Convey("Acquire with symlinks enabled projects into the work directory", func() {
			workDir, werr := os.MkdirTemp("", "dlcache-workdir-test")
			So(werr, ShouldBeNil)
			defer os.RemoveAll(workDir)

			lu, perr := url.Parse("dfs://nodeA/data/input.txt#mylink")
			So(perr, ShouldBeNil)

			_, err := mgr.Acquire(AcquireRequest{
				URI:             lu,
				ExpectedStamp:   100,
				WorkDir:         workDir,
				SymlinksEnabled: true,
			})
			So(err, ShouldBeNil)

			target, lerr := os.Readlink(workDir + "/mylink")
			So(lerr, ShouldBeNil)
			So(target, ShouldNotBeEmpty)
		})

		Convey("A refresh is blocked while the stale entry is still in use", func() {
			_, err := mgr.Acquire(AcquireRequest{URI: u, ExpectedStamp: 100})
			So(err, ShouldBeNil)

			entry, ok := mgr.reg.lookup("nodeA/data/input.txt")
			So(ok, ShouldBeTrue)

			remote.mu.Lock()
			remote.mtime["/data/input.txt"] = 150
			remote.mu.Unlock()

			_, err = mgr.Acquire(AcquireRequest{URI: u, ExpectedStamp: 150})
			So(err, ShouldNotBeNil)
			cerr, ok := err.(*CacheError)
			So(ok, ShouldBeTrue)
			So(cerr.Is(CacheInUse), ShouldBeTrue)
			So(entry.Refcount(), ShouldEqual, 1)
		})
	})
}
