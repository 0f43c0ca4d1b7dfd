package pmm

import (
	"testing"

	"github.com/yfblock/oskernel2022-byte-os/kernel/mem"
)

func TestFrameMethods(t *testing.T) {
	for frameIndex := uint64(0); frameIndex < 128; frameIndex++ {
		frame := Frame(frameIndex)

		if !frame.IsValid() {
			t.Errorf("expected frame %d to be valid", frameIndex)
		}

		if exp, got := uintptr(frameIndex<<mem.PageShift), frame.Address(); got != exp {
			t.Errorf("expected frame (%d, index: %d) call to Address() to return %x; got %x", frame, frameIndex, exp, got)
		}

		if exp, got := mem.DirectMapBase+uintptr(frameIndex<<mem.PageShift), frame.DirectMapped(); got != exp {
			t.Errorf("expected frame (%d, index: %d) call to DirectMapped() to return %x; got %x", frame, frameIndex, exp, got)
		}
	}

	invalidFrame := InvalidFrame
	if invalidFrame.IsValid() {
		t.Error("expected InvalidFrame.IsValid() to return false")
	}
}

func TestFrameFromAddress(t *testing.T) {
	specs := []struct {
		addr     uintptr
		expFrame Frame
	}{
		{0, Frame(0)},
		{uintptr(mem.PageSize) - 1, Frame(0)},
		{uintptr(mem.PageSize), Frame(1)},
		{uintptr(mem.PageSize) + 123, Frame(1)},
	}

	for i, spec := range specs {
		if got := FrameFromAddress(spec.addr); got != spec.expFrame {
			t.Errorf("[spec %d] expected %v; got %v", i, spec.expFrame, got)
		}
	}
}
