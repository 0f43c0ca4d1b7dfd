// Package console declares and implements the Console collaborator
// (spec.md §1): the byte-oriented put/get/shutdown/set-timer surface
// kernel/kfmt/early and the boot sequence use for output, replacing the
// teacher's EGA-framebuffer-and-VGA-text-mode hal/driver/tty stack, which
// has no equivalent on the Sv39 target this core runs on.
//
// Grounded on original_source/src/sbi.rs's sbi_call legacy SBI extension
// IDs (console_putchar/console_getchar/set_timer/shutdown), issued through
// kernel/cpu.SBICall the same way kernel/cpu already exposes every other
// bodyless CSR/asm primitive.
package console

import "github.com/yfblock/oskernel2022-byte-os/kernel/cpu"

// Legacy SBI extension IDs (original_source/src/sbi.rs).
const (
	sbiSetTimer       = 0
	sbiConsolePutChar = 1
	sbiConsoleGetChar = 2
	sbiShutdown       = 8
)

var sbiCallFn = cpu.SBICall

// Console is the collaborator interface every byte-oriented output/input
// path in this core is built against, never a concrete driver directly.
type Console interface {
	PutByte(b byte)
	GetByte() (byte, bool)
	SetTimer(deadline uint64)
	Shutdown()
}

// SBI is the Console implementation this core boots with: every call is a
// single `ecall` trap into firmware, per the legacy SBI calling
// convention.
type SBI struct{}

// PutByte writes one byte to the firmware console.
func (SBI) PutByte(b byte) {
	sbiCallFn(sbiConsolePutChar, uintptr(b), 0, 0)
}

// GetByte polls the firmware console for one byte. The legacy SBI
// extension returns -1 (as all bits set) when nothing is available.
func (SBI) GetByte() (byte, bool) {
	v := sbiCallFn(sbiConsoleGetChar, 0, 0, 0)
	if int(v) < 0 {
		return 0, false
	}
	return byte(v), true
}

// SetTimer schedules the next supervisor timer interrupt at the given
// absolute `time` CSR value.
func (SBI) SetTimer(deadline uint64) {
	sbiCallFn(sbiSetTimer, uintptr(deadline), 0, 0)
}

// Shutdown powers off the machine (QEMU exits); never returns.
func (SBI) Shutdown() {
	sbiCallFn(sbiShutdown, 0, 0, 0)
}

// Write sends every byte of data to c through PutByte and reports
// len(data) with a nil error. It is a plain function over a Console, not
// an io.Writer method; kernel/kfmt/early's Printf writes through it.
func Write(c Console, data []byte) (int, error) {
	for _, b := range data {
		c.PutByte(b)
	}
	return len(data), nil
}

// ActiveConsole is the console kernel/kfmt/early and the boot sequence
// write through; it starts as SBI{} and nothing in the boot sequence
// reassigns it (mirrors hal.ActiveTerminal's role
// in the teacher, but against the Console interface instead of a concrete
// *tty.Vt).
var ActiveConsole Console = SBI{}
