package kernel

// DefaultInitName names the root process
const DefaultInitName = "initcode"

// Image is the program the root process starts from
type Image struct {
	Name string
	// Code is loaded into the first page of the root address space
	Code []byte
	// EntryPoint is recorded in the root trap frame
	EntryPoint int
	// Entry runs as the root process; it must never return
	Entry Entry
}

// initCode is the embedded user program: exec("/init", argv); for(;;) exit();
var initCode = []byte{
	0x68, 0x24, 0x00, 0x00, 0x00, 0x68, 0x1c, 0x00, 0x00, 0x00,
	0x6a, 0x00, 0xb8, 0x07, 0x00, 0x00, 0x00, 0xcd, 0x40, 0xb8,
	0x02, 0x00, 0x00, 0x00, 0xcd, 0x40, 0xeb, 0xf7, 0x2f, 0x69,
	0x6e, 0x69, 0x74, 0x00, 0x00, 0x1c, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00,
}

// InitImage returns the default root program, which reaps children forever
func InitImage() Image {
	code := make([]byte, len(initCode))
	copy(code, initCode)
	return Image{Name: DefaultInitName, Code: code, Entry: ReapForever}
}

// ReapForever waits for children in a loop and parks while there are none
func ReapForever(p *Proc) {
	for {
		if _, err := p.Wait(); err != nil {
			p.kernel.park(p.p)
		}
	}
}

// park sleeps on the caller's own channel unless it has children. The check
// and the sleep happen under the table lock, so a child handed over by exit
// cannot be missed.
func (k *Kernel) park(p *proc) {
	k.lock.Lock()
	if !k.hasChildren(p.slot) {
		k.sleep(p, procChan(p.slot), &k.lock)
	}
	k.lock.Unlock()
}

func (k *Kernel) hasChildren(slot int) bool {
	for i := range k.procs {
		if k.procs[i].parent == slot {
			return true
		}
	}
	return false
}
