/*
Copyright the Velero contributors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package test

import (
	"io"
	"os"
	"sync"

	"github.com/spf13/afero"

	"github.com/walbis/tkkube/pkg/util/filesystem"
)

// FakeFileSystem is an in-memory filesystem.Interface.
type FakeFileSystem struct {
	fs afero.Fs

	mu             sync.Mutex
	RemoveAllCalls []string
}

var _ filesystem.Interface = &FakeFileSystem{}

func NewFakeFileSystem() *FakeFileSystem {
	return &FakeFileSystem{
		fs: afero.NewMemMapFs(),
	}
}

func (fs *FakeFileSystem) Glob(path string) ([]string, error) {
	return afero.Glob(fs.fs, path)
}

func (fs *FakeFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return fs.fs.MkdirAll(path, perm)
}

func (fs *FakeFileSystem) Create(name string) (io.WriteCloser, error) {
	return fs.fs.Create(name)
}

func (fs *FakeFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return afero.WriteFile(fs.fs, name, data, perm)
}

func (fs *FakeFileSystem) RemoveAll(path string) error {
	fs.mu.Lock()
	fs.RemoveAllCalls = append(fs.RemoveAllCalls, path)
	fs.mu.Unlock()
	return fs.fs.RemoveAll(path)
}

// RemovedPaths returns a copy of RemoveAllCalls.
func (fs *FakeFileSystem) RemovedPaths() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.RemoveAllCalls...)
}

func (fs *FakeFileSystem) ReadDir(dirname string) ([]os.FileInfo, error) {
	return afero.ReadDir(fs.fs, dirname)
}

func (fs *FakeFileSystem) ReadFile(filename string) ([]byte, error) {
	return afero.ReadFile(fs.fs, filename)
}

func (fs *FakeFileSystem) DirExists(path string) (bool, error) {
	return afero.DirExists(fs.fs, path)
}

func (fs *FakeFileSystem) Stat(path string) (os.FileInfo, error) {
	return fs.fs.Stat(path)
}
