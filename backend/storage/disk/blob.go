// Copyright (C) 2025 parley.chat <dev@parley.chat>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package disk stores attachment blobs on the local filesystem under a
// single root, addressed by relative paths.
package disk

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type Store struct {
	root    string
	baseURL string
}

func NewStore(root, baseURL string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// validRelPath rejects anything that could escape the root.
func validRelPath(p string) bool {
	if p == "" || p == "." || filepath.IsAbs(p) {
		return false
	}
	clean := filepath.Clean(p)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}

func (s *Store) Store(r io.Reader, dir, filename string) (string, error) {
	rel := filepath.Join(dir, filename)
	if !validRelPath(rel) {
		return "", fmt.Errorf("invalid blob path %q", rel)
	}

	abs := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}

	f, err := os.Create(abs)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(abs)
		return "", err
	}

	return filepath.ToSlash(rel), nil
}

func (s *Store) Delete(path string) error {
	if !validRelPath(path) {
		return fmt.Errorf("invalid blob path %q", path)
	}
	err := os.Remove(filepath.Join(s.root, path))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *Store) DeleteDirectory(dir string) error {
	if !validRelPath(dir) {
		return fmt.Errorf("invalid blob directory %q", dir)
	}
	return os.RemoveAll(filepath.Join(s.root, dir))
}

func (s *Store) Exists(path string) (bool, error) {
	if !validRelPath(path) {
		return false, nil
	}
	_, err := os.Stat(filepath.Join(s.root, path))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) URLFor(path string) string {
	return s.baseURL + "/" + filepath.ToSlash(path)
}
