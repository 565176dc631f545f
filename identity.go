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
	"path"
	"strings"
)

// distributedFSScheme is the URI scheme denoting the distributed
// filesystem itself. Any other scheme (including none) is folded onto the
// configured default filesystem host, even when that URI already carries
// its own host.
const distributedFSScheme = "dfs"

// cacheID derives the stable registry key for uri: "<host><absolute-path>".
// uri's own host is kept only when uri.Scheme is distributedFSScheme;
// every other scheme unconditionally substitutes the default filesystem
// host, reproducing the host-folding behavior the cache's identity scheme
// depends on for non-distributed-filesystem URIs. The fragment
// ("#linkname") is never part of the identity.
//
// Failure: if neither uri nor the default filesystem yields a host, the
// caller's configuration is invalid.
func cacheID(uri *url.URL, defaultFSHost string) (string, error) {
	host := uri.Host
	if uri.Scheme != distributedFSScheme || host == "" {
		host = defaultFSHost
	}
	if host == "" {
		return "", newConfigError(uri.String(), errNoHost)
	}

	p := uri.Path
	if !path.IsAbs(p) {
		p = "/" + p
	}
	return host + p, nil
}

var errNoHost = &hostError{}

type hostError struct{}

func (*hostError) Error() string {
	return "neither the URI nor the configured default filesystem specifies a host"
}

// parseArtifactURI parses raw in the "scheme://host[:port]/absolute/path[#fragment]"
// form. A missing scheme or host is left empty for the caller to resolve
// against the configured default filesystem: non-default-filesystem schemes
// unconditionally take the default filesystem's host.
func parseArtifactURI(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, newConfigError(raw, err)
	}
	if u.Path == "" {
		return nil, newConfigError(raw, errNoPath)
	}
	return u, nil
}

var errNoPath = &pathError{}

type pathError struct{}

func (*pathError) Error() string {
	return "URI has no path component"
}

// basename returns the last path component, used both for the name of the
// copied file under localLoadPath (assumed to equal the cacheId's last
// component) and for deriving a fragment-less symlink name.
func basename(p string) string {
	return path.Base(p)
}

// isArchiveName reports whether name's lowercased extension marks it as an
// extractable archive.
func isArchiveName(name string) (zip, jar bool) {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".zip"), strings.HasSuffix(lower, ".jar")
}
