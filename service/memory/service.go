package memory

import (
	"errors"
	"fmt"
	"sync"
)

// ErrOutOfMemory is returned when the page pool cannot satisfy an allocation
var ErrOutOfMemory = errors.New("memory: out of memory")

const DefaultPageSize = 4096

// Config represents page pool configuration
type Config struct {
	Pages    int `json:"pages" yaml:"pages"`
	PageSize int `json:"pageSize" yaml:"pageSize"`
}

// DefaultConfig returns the default page pool configuration
func DefaultConfig() Config {
	return Config{
		Pages:    1024,
		PageSize: DefaultPageSize,
	}
}

// Stack is a kernel stack: one page holding the saved context and trap frame
type Stack struct {
	page int
	Size int
}

// AddressSpace is an exclusively owned process address space
type AddressSpace struct {
	id    int
	root  int   // page directory
	pages []int // user pages in address order
}

// ID returns the address space identifier
func (a *AddressSpace) ID() int { return a.id }

// Pages returns the number of user pages mapped
func (a *AddressSpace) Pages() int { return len(a.pages) }

// Service hands out pages from a fixed pool. It is safe for concurrent use.
type Service struct {
	config  Config
	mux     sync.Mutex
	free    []int
	data    map[int][]byte
	spaceID int
}

// New creates a page pool
func New(config Config) *Service {
	defaults := DefaultConfig()
	if config.PageSize <= 0 {
		config.PageSize = defaults.PageSize
	}
	if config.Pages < 0 {
		config.Pages = 0
	}
	ret := &Service{
		config: config,
		free:   make([]int, 0, config.Pages),
		data:   make(map[int][]byte),
	}
	for page := config.Pages - 1; page >= 0; page-- {
		ret.free = append(ret.free, page)
	}
	return ret
}

// PageSize returns the page size in bytes
func (s *Service) PageSize() int { return s.config.PageSize }

// FreePages returns the number of unallocated pages
func (s *Service) FreePages() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return len(s.free)
}

func (s *Service) alloc() (int, bool) {
	if len(s.free) == 0 {
		return 0, false
	}
	page := s.free[len(s.free)-1]
	s.free = s.free[:len(s.free)-1]
	s.data[page] = make([]byte, s.config.PageSize)
	return page, true
}

func (s *Service) release(page int) {
	if _, ok := s.data[page]; !ok {
		panic(fmt.Sprintf("memory: freeing unallocated page %d", page))
	}
	delete(s.data, page)
	s.free = append(s.free, page)
}

// AllocStack allocates a kernel stack
func (s *Service) AllocStack() (*Stack, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	page, ok := s.alloc()
	if !ok {
		return nil, ErrOutOfMemory
	}
	return &Stack{page: page, Size: s.config.PageSize}, nil
}

// FreeStack returns a kernel stack to the pool
func (s *Service) FreeStack(stack *Stack) {
	if stack == nil {
		return
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	s.release(stack.page)
}

// SetupVM creates an empty address space (page directory only)
func (s *Service) SetupVM() (*AddressSpace, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	root, ok := s.alloc()
	if !ok {
		return nil, ErrOutOfMemory
	}
	s.spaceID++
	return &AddressSpace{id: s.spaceID, root: root}, nil
}

// InitVM loads image into the first page of an empty address space and returns the new size
func (s *Service) InitVM(space *AddressSpace, image []byte) (int, error) {
	if len(image) > s.config.PageSize {
		return 0, fmt.Errorf("memory: image of %d bytes exceeds one page", len(image))
	}
	if len(space.pages) > 0 {
		return 0, fmt.Errorf("memory: address space %d already initialised", space.id)
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	page, ok := s.alloc()
	if !ok {
		return 0, ErrOutOfMemory
	}
	copy(s.data[page], image)
	space.pages = append(space.pages, page)
	return s.config.PageSize, nil
}

// CopyVM duplicates the first size bytes of parent into a new address space.
// On failure nothing stays allocated.
func (s *Service) CopyVM(parent *AddressSpace, size int) (*AddressSpace, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	root, ok := s.alloc()
	if !ok {
		return nil, ErrOutOfMemory
	}
	s.spaceID++
	child := &AddressSpace{id: s.spaceID, root: root}
	count := s.pagesFor(size)
	if count > len(parent.pages) {
		count = len(parent.pages)
	}
	for i := 0; i < count; i++ {
		page, ok := s.alloc()
		if !ok {
			s.freeSpace(child)
			return nil, ErrOutOfMemory
		}
		copy(s.data[page], s.data[parent.pages[i]])
		child.pages = append(child.pages, page)
	}
	return child, nil
}

// ResizeVM grows or shrinks space from oldSize to newSize bytes and returns the new size
func (s *Service) ResizeVM(space *AddressSpace, oldSize, newSize int) (int, error) {
	if newSize < 0 {
		return oldSize, fmt.Errorf("memory: negative size %d", newSize)
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	want := s.pagesFor(newSize)
	var added []int
	for len(space.pages)+len(added) < want {
		page, ok := s.alloc()
		if !ok {
			for _, p := range added {
				s.release(p)
			}
			return oldSize, ErrOutOfMemory
		}
		added = append(added, page)
	}
	space.pages = append(space.pages, added...)
	for len(space.pages) > want {
		last := space.pages[len(space.pages)-1]
		space.pages = space.pages[:len(space.pages)-1]
		s.release(last)
	}
	return newSize, nil
}

// FreeVM releases every page of space including its page directory
func (s *Service) FreeVM(space *AddressSpace) {
	if space == nil {
		return
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	s.freeSpace(space)
}

func (s *Service) freeSpace(space *AddressSpace) {
	if space.root < 0 {
		return
	}
	for _, page := range space.pages {
		s.release(page)
	}
	space.pages = nil
	s.release(space.root)
	space.root = -1
}

func (s *Service) pagesFor(size int) int {
	return (size + s.config.PageSize - 1) / s.config.PageSize
}
