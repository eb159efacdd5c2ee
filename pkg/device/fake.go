package device

import (
	"sync"

	pkgerrors "github.com/pkg/errors"
)

// FakeFrame is what a Fake reports for one Open.
type FakeFrame struct {
	Readings []UnitReading
	// UnitsErr makes Units fail, so callers fall back to probing.
	UnitsErr error
	// UnitErrs makes Unit fail for the given indexes.
	UnitErrs map[int]error
}

var _ Device = &Fake{}

// Fake is an in-memory Device. Each Open consumes the next frame; the last
// frame repeats once the script is exhausted.
type Fake struct {
	OpenErr error

	mu     sync.Mutex
	frames []FakeFrame
	next   int
	opened int
	closed int
}

// NewFake returns a Fake that plays frames in order.
func NewFake(frames ...FakeFrame) *Fake {
	return &Fake{frames: frames}
}

func (f *Fake) DefaultPath() string {
	return "/dev/fake-battery"
}

func (f *Fake) Open(path string) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.OpenErr != nil {
		return nil, pkgerrors.Wrapf(f.OpenErr, "failed to open %s", path)
	}

	var frame FakeFrame
	if len(f.frames) > 0 {
		i := f.next
		if i >= len(f.frames) {
			i = len(f.frames) - 1
		}
		frame = f.frames[i]
		f.next++
	}
	f.opened++

	return &fakeHandle{fake: f, frame: frame}, nil
}

// Opened returns how many handles were opened.
func (f *Fake) Opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened
}

// Closed returns how many handles were closed.
func (f *Fake) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeHandle struct {
	fake   *Fake
	frame  FakeFrame
	closed bool
}

func (h *fakeHandle) Units() (int, error) {
	if h.frame.UnitsErr != nil {
		return 0, h.frame.UnitsErr
	}
	return len(h.frame.Readings), nil
}

func (h *fakeHandle) Unit(unit int) (UnitReading, error) {
	if err, ok := h.frame.UnitErrs[unit]; ok {
		return UnitReading{}, err
	}
	if unit < 0 || unit >= len(h.frame.Readings) {
		return UnitReading{}, pkgerrors.Wrapf(ErrNoUnit, "unit %d", unit)
	}
	r := h.frame.Readings[unit]
	r.Unit = unit
	return r, nil
}

func (h *fakeHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true

	h.fake.mu.Lock()
	h.fake.closed++
	h.fake.mu.Unlock()
	return nil
}
