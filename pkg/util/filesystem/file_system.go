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
package filesystem

import (
	"io"
	"os"
	"path/filepath"
)

// Interface defines methods for interacting with an
// underlying file system.
type Interface interface {
	MkdirAll(path string, perm os.FileMode) error
	Create(name string) (io.WriteCloser, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	RemoveAll(path string) error
	ReadDir(dirname string) ([]os.FileInfo, error)
	ReadFile(filename string) ([]byte, error)
	DirExists(path string) (bool, error)
	Stat(path string) (os.FileInfo, error)
	Glob(path string) ([]string, error)
}

func NewFileSystem() Interface {
	return &osFileSystem{}
}

type osFileSystem struct{}

func (*osFileSystem) Glob(path string) ([]string, error) {
	return filepath.Glob(path)
}

func (*osFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (*osFileSystem) Create(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

func (*osFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (*osFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (*osFileSystem) ReadDir(dirname string) ([]os.FileInfo, error) {
	var fileInfos []os.FileInfo
	dirInfos, err := os.ReadDir(dirname)
	if err != nil {
		return fileInfos, err
	}
	for _, dirInfo := range dirInfos {
		fileInfo, err := dirInfo.Info()
		if err == nil {
			fileInfos = append(fileInfos, fileInfo)
		}
	}
	return fileInfos, nil
}

func (*osFileSystem) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

func (*osFileSystem) DirExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (*osFileSystem) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}
