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
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func buildTestZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s: %s", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write %s: %s", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip writer: %s", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "test.zip")
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatalf("failed to write zip file: %s", err)
	}
	return path
}

func TestZipExtractorExtractsFiles(t *testing.T) {
	zipPath := buildTestZip(t, map[string]string{
		"a.txt":        "hello",
		"sub/b.txt":    "world",
	})
	destDir := t.TempDir()

	if err := defaultZipExtractor.Extract(zipPath, destDir); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	a, err := os.ReadFile(filepath.Join(destDir, "a.txt"))
	if err != nil || string(a) != "hello" {
		t.Fatalf("a.txt not extracted correctly: %v, %q", err, a)
	}
	b, err := os.ReadFile(filepath.Join(destDir, "sub", "b.txt"))
	if err != nil || string(b) != "world" {
		t.Fatalf("sub/b.txt not extracted correctly: %v, %q", err, b)
	}
}

func TestJarExtractorUsesSameContainerFormat(t *testing.T) {
	zipPath := buildTestZip(t, map[string]string{"META-INF/MANIFEST.MF": "Manifest-Version: 1.0"})
	destDir := t.TempDir()

	if err := defaultJarExtractor.Extract(zipPath, destDir); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if _, err := os.Stat(filepath.Join(destDir, "META-INF", "MANIFEST.MF")); err != nil {
		t.Fatalf("expected manifest to be extracted: %s", err)
	}
}

func TestZipExtractorRejectsPathEscape(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("../escape.txt")
	if err != nil {
		t.Fatalf("failed to add escaping entry: %s", err)
	}
	if _, err := w.Write([]byte("pwned")); err != nil {
		t.Fatalf("failed to write escaping entry: %s", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip writer: %s", err)
	}

	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	if err := os.WriteFile(zipPath, buf.Bytes(), 0600); err != nil {
		t.Fatalf("failed to write zip file: %s", err)
	}

	destDir := filepath.Join(dir, "dest")
	if err := os.MkdirAll(destDir, 0700); err != nil {
		t.Fatalf("failed to make dest dir: %s", err)
	}

	if err := defaultZipExtractor.Extract(zipPath, destDir); err == nil {
		t.Fatal("expected an error extracting a path-escaping zip entry")
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); err == nil {
		t.Fatal("escaping entry should not have been written outside destDir")
	}
}
