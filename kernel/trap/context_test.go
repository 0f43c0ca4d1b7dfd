package trap

import "testing"

func TestClassifyCause(t *testing.T) {
	specs := []struct {
		scause uint64
		exp    Cause
	}{
		{excBreakpoint, CauseBreakpoint},
		{excUserEnvCall, CauseUserEnvCall},
		{excStorePageFault, CauseStorePageFault},
		{excStoreFault, CauseStoreFault},
		{excLoadPageFault, CauseLoadPageFault},
		{excInstructionPageFault, CauseInstructionPageFault},
		{excStoreMisaligned, CauseStoreMisaligned},
		{excIllegalInstruction, CauseIllegalInstruction},
		{scauseInterruptBit | intSupervisorTimer, CauseSupervisorTimer},
		{scauseInterruptBit | 1, CauseUnknown},
		{999, CauseUnknown},
	}

	for i, spec := range specs {
		if got := ClassifyCause(spec.scause); got != spec.exp {
			t.Errorf("[spec %d] ClassifyCause(%#x) = %v; want %v", i, spec.scause, got, spec.exp)
		}
	}
}

func TestSyscallArgDecoding(t *testing.T) {
	var ctx Context
	ctx.X[RegA7] = 172 // getpid
	ctx.X[RegA0] = 11
	ctx.X[RegA1] = 22

	if got := ctx.SyscallNumber(); got != 172 {
		t.Errorf("expected syscall number 172; got %d", got)
	}
	if got := ctx.SyscallArg(0); got != 11 {
		t.Errorf("expected arg0 11; got %d", got)
	}
	if got := ctx.SyscallArg(1); got != 22 {
		t.Errorf("expected arg1 22; got %d", got)
	}

	ctx.SetReturnValue(0xdead)
	if ctx.X[RegA0] != 0xdead {
		t.Errorf("expected SetReturnValue to write x10; got %#x", ctx.X[RegA0])
	}
}

func TestAdvancePastEcallAndBreakpoint(t *testing.T) {
	var ctx Context
	ctx.Sepc = 0x1000
	ctx.AdvancePastEcall()
	if ctx.Sepc != 0x1004 {
		t.Errorf("expected sepc to advance by 4; got %#x", ctx.Sepc)
	}

	ctx.Sepc = 0x2000
	ctx.AdvancePastBreakpoint()
	if ctx.Sepc != 0x2002 {
		t.Errorf("expected sepc to advance by 2; got %#x", ctx.Sepc)
	}
}
