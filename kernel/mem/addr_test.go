package mem

import "testing"

func TestVirtAddrIndices(t *testing.T) {
	specs := []struct {
		addr   VirtAddr
		l2     uint64
		l1     uint64
		l0     uint64
		offset uintptr
	}{
		{0, 0, 0, 0, 0},
		{VirtAddr(PageSize), 0, 0, 1, 0},
		{VirtAddr(1 << (PageShift + Sv39IndexBits)), 0, 1, 0, 0},
		{VirtAddr(1 << (PageShift + 2*Sv39IndexBits)), 1, 0, 0, 0},
		{VirtAddr(0x1000 + 0x42), 0, 0, 1, 0x42},
	}

	for i, spec := range specs {
		if got := spec.addr.L2(); got != spec.l2 {
			t.Errorf("[spec %d] L2: expected %d; got %d", i, spec.l2, got)
		}
		if got := spec.addr.L1(); got != spec.l1 {
			t.Errorf("[spec %d] L1: expected %d; got %d", i, spec.l1, got)
		}
		if got := spec.addr.L0(); got != spec.l0 {
			t.Errorf("[spec %d] L0: expected %d; got %d", i, spec.l0, got)
		}
		if got := spec.addr.Offset(); got != spec.offset {
			t.Errorf("[spec %d] Offset: expected %#x; got %#x", i, spec.offset, got)
		}
	}
}

func TestVirtAddrFromVPNRoundTrip(t *testing.T) {
	for vpn := uint64(0); vpn < 1024; vpn++ {
		addr := VirtAddrFromVPN(vpn)
		if got := addr.VPN(); got != vpn {
			t.Errorf("expected VPN round-trip for %d; got %d", vpn, got)
		}
	}
}

func TestPhysAddrDirectMapped(t *testing.T) {
	a := PhysAddr(0x8020_0000)
	if got, exp := a.DirectMapped(), DirectMapBase+uintptr(a); got != exp {
		t.Errorf("expected DirectMapped() to be %#x; got %#x", exp, got)
	}
	if got, exp := a.Frame(), uint64(0x8020_0000)>>PageShift; got != exp {
		t.Errorf("expected Frame() to be %d; got %d", exp, got)
	}
}

func TestPageAlign(t *testing.T) {
	specs := []struct {
		in       uintptr
		expDown  uintptr
		expUp    uintptr
	}{
		{0, 0, 0},
		{1, 0, uintptr(PageSize)},
		{uintptr(PageSize), uintptr(PageSize), uintptr(PageSize)},
		{uintptr(PageSize) + 1, uintptr(PageSize), 2 * uintptr(PageSize)},
	}

	for i, spec := range specs {
		if got := PageAlignDown(spec.in); got != spec.expDown {
			t.Errorf("[spec %d] PageAlignDown(%#x): expected %#x; got %#x", i, spec.in, spec.expDown, got)
		}
		if got := PageAlignUp(spec.in); got != spec.expUp {
			t.Errorf("[spec %d] PageAlignUp(%#x): expected %#x; got %#x", i, spec.in, spec.expUp, got)
		}
	}
}
