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
	"testing"
)

func TestConfigAccessorRoundTrips(t *testing.T) {
	acc := NewConfigAccessor(NewMapConfigStore())

	files := []*url.URL{
		mustParseURL(t, "dfs://nodeA/data/a.txt"),
		mustParseURL(t, "dfs://nodeA/data/b.txt#blink"),
	}
	acc.SetCacheFiles(files)
	got, err := acc.CacheFiles()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(got) != 2 || got[1].Fragment != "blink" {
		t.Fatalf("CacheFiles() round trip failed: %#v", got)
	}

	acc.SetFileTimestamps([]int64{10, 20})
	ts, err := acc.FileTimestamps()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(ts) != 2 || ts[0] != 10 || ts[1] != 20 {
		t.Fatalf("FileTimestamps() round trip failed: %#v", ts)
	}

	acc.SetLocalCacheFiles([]string{"/local/a", "/local/b"})
	if got := acc.LocalCacheFiles(); len(got) != 2 || got[0] != "/local/a" {
		t.Fatalf("LocalCacheFiles() round trip failed: %#v", got)
	}

	acc.SetClasspathFiles([]string{"/cp/a.jar", "/cp/b.jar"})
	if got := acc.ClasspathFiles(); len(got) != 2 {
		t.Fatalf("ClasspathFiles() round trip failed: %#v", got)
	}

	acc.SetSymlinksEnabled(true)
	if !acc.SymlinksEnabled() {
		t.Fatal("SymlinksEnabled() should be true after SetSymlinksEnabled(true)")
	}
	acc.SetSymlinksEnabled(false)
	if acc.SymlinksEnabled() {
		t.Fatal("SymlinksEnabled() should be false after SetSymlinksEnabled(false)")
	}

	if acc.CacheSizeLimit() != defaultCacheSizeLimit {
		t.Fatalf("CacheSizeLimit() default = %d, want %d", acc.CacheSizeLimit(), defaultCacheSizeLimit)
	}
	acc.SetCacheSizeLimit(2048)
	if acc.CacheSizeLimit() != 2048 {
		t.Fatalf("CacheSizeLimit() = %d, want 2048", acc.CacheSizeLimit())
	}
}

func TestBuildClasspath(t *testing.T) {
	cp := BuildClasspath([]string{"/a/b.jar"}, []string{"/c/d"})
	want := "/a/b.jar" + string(filepath.ListSeparator) + "/c/d"
	if cp != want {
		t.Fatalf("BuildClasspath() = %q, want %q", cp, want)
	}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("test fixture URL failed to parse: %s", err)
	}
	return u
}
