package internal

import (
	"os"
)

// FileSystem defines the subset of os package functions fragment sources need.
type FileSystem interface {
	Stat(name string) (os.FileInfo, error)
	Open(name string) (*os.File, error)
}

// RealOS is the default implementation that delegates to the real os package.
type RealOS struct{}

func (RealOS) Stat(name string) (os.FileInfo, error) { return os.Stat(name) } //nolint:revive
func (RealOS) Open(name string) (*os.File, error)    { return os.Open(name) } //nolint:revive
