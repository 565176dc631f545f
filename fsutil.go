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
	"io/fs"
	"os"
	"path/filepath"
)

const (
	dirMode  = 0700
	fileMode = 0600
)

func mkdirAll(path string) error {
	return os.MkdirAll(path, os.FileMode(dirMode))
}

func removeAll(path string) error {
	return os.RemoveAll(path)
}

// diskUsage sums the size of every regular file under root, a du-equivalent
// walk used in place of a running byte counter so no metadata needs to
// survive a restart.
func diskUsage(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, ierr := d.Info()
		if ierr != nil {
			return ierr
		}
		total += info.Size()
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return total, err
	}
	return total, nil
}

// chmodExecutableRecursive best-effort adds the executable bit to every
// file under root. A failed chmod (interruption included) is logged and
// swallowed; paths the walk cannot read are skipped without logging.
// PermissionSetInterrupted is never surfaced to the caller.
func chmodExecutableRecursive(root string, warn func(msg string, ctx ...interface{})) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort: keep walking past errors
		}
		info, ierr := d.Info()
		if ierr != nil {
			return nil //nolint:nilerr
		}
		mode := info.Mode()
		newMode := mode | 0111
		if newMode != mode {
			if cerr := os.Chmod(path, newMode); cerr != nil {
				warn("permission set interrupted", "path", path, "err", cerr)
			}
		}
		return nil
	})
	if err != nil {
		warn("permission set interrupted", "root", root, "err", err)
	}
}
