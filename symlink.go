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
	"path/filepath"
	"strings"
)

// createSymlink projects target into workDir under linkName (the URI
// fragment). Idempotent: a link that already points at target is left
// alone and reported as success; anything else occupying linkName is an
// IOError, never silently clobbered.
func createSymlink(workDir, linkName, target string) error {
	if workDir == "" || linkName == "" {
		return nil
	}
	linkPath := filepath.Join(workDir, linkName)

	if existing, err := os.Readlink(linkPath); err == nil {
		if existing == target {
			return nil
		}
		return newIOError(linkPath, &linkConflictError{path: linkPath, existing: existing, wanted: target})
	} else if !os.IsNotExist(err) {
		return newIOError(linkPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(linkPath), os.FileMode(dirMode)); err != nil {
		return newIOError(linkPath, err)
	}
	if err := os.Symlink(target, linkPath); err != nil {
		return newIOError(linkPath, err)
	}
	return nil
}

type linkConflictError struct {
	path, existing, wanted string
}

func (e *linkConflictError) Error() string {
	return "symlink " + e.path + " already points at " + e.existing + ", wanted " + e.wanted
}

// checkURIs is a pre-flight check: every artifact in the combined
// files+archives list must carry a non-empty fragment, and no two may
// resolve to the same symlink name (fragment), case-insensitively, since
// they'd collide in the task's working directory.
func checkURIs(files, archives []*url.URL) bool {
	seen := make(map[string]struct{}, len(files)+len(archives))
	check := func(u *url.URL) bool {
		frag := strings.ToLower(u.Fragment)
		if frag == "" {
			return false
		}
		if _, dup := seen[frag]; dup {
			return false
		}
		seen[frag] = struct{}{}
		return true
	}
	for _, u := range files {
		if !check(u) {
			return false
		}
	}
	for _, u := range archives {
		if !check(u) {
			return false
		}
	}
	return true
}

// projectAll is a convenience bulk-symlink helper built on Acquire's
// per-artifact createSymlink call: given the already-localized paths for a
// set of URIs (positional with uris), it symlinks each into workDir under
// its fragment name. Artifacts without a fragment are skipped.
func projectAll(workDir string, uris []*url.URL, localPaths []string) error {
	for i, u := range uris {
		if u.Fragment == "" {
			continue
		}
		if err := createSymlink(workDir, u.Fragment, localPaths[i]); err != nil {
			return err
		}
	}
	return nil
}
