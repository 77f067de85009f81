// Package fs provides the reference-counted open-file and directory handles
// shared between processes. Only reference bookkeeping is modelled; file
// contents and path resolution belong to the file system proper.
package fs

import (
	"fmt"
	"sync"
)

// File is an open file shared by every process holding a reference to it
type File struct {
	Name string
	mux  sync.Mutex
	ref  int
}

// Open returns a new file with one reference
func Open(name string) *File {
	return &File{Name: name, ref: 1}
}

// Dup increments the reference count and returns f
func (f *File) Dup() *File {
	f.mux.Lock()
	defer f.mux.Unlock()
	if f.ref < 1 {
		panic(fmt.Sprintf("filedup: %s closed", f.Name))
	}
	f.ref++
	return f
}

// Close drops one reference; it reports true when the last reference was released
func (f *File) Close() bool {
	f.mux.Lock()
	defer f.mux.Unlock()
	if f.ref < 1 {
		panic(fmt.Sprintf("fileclose: %s closed", f.Name))
	}
	f.ref--
	return f.ref == 0
}

// Refs returns the current reference count
func (f *File) Refs() int {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.ref
}

// Inode is an in-memory directory reference
type Inode struct {
	Path string
	mux  sync.Mutex
	ref  int
}

// Dup increments the reference count and returns i
func (i *Inode) Dup() *Inode {
	i.mux.Lock()
	defer i.mux.Unlock()
	i.ref++
	return i
}

// Put drops one reference
func (i *Inode) Put() {
	i.mux.Lock()
	defer i.mux.Unlock()
	if i.ref < 1 {
		panic(fmt.Sprintf("iput: %s has no references", i.Path))
	}
	i.ref--
}

// Refs returns the current reference count
func (i *Inode) Refs() int {
	i.mux.Lock()
	defer i.mux.Unlock()
	return i.ref
}

// Namespace resolves directory paths to shared inodes
type Namespace struct {
	mux    sync.Mutex
	inodes map[string]*Inode
}

// NewNamespace creates an empty namespace
func NewNamespace() *Namespace {
	return &Namespace{inodes: make(map[string]*Inode)}
}

// Namei returns the inode for path with one more reference
func (n *Namespace) Namei(path string) *Inode {
	n.mux.Lock()
	inode, ok := n.inodes[path]
	if !ok {
		inode = &Inode{Path: path}
		n.inodes[path] = inode
	}
	n.mux.Unlock()
	return inode.Dup()
}
