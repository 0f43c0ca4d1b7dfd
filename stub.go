package main

import "github.com/yfblock/oskernel2022-byte-os/kernel/kmain"

var kernelStart, kernelEnd uintptr

// main makes a dummy call to the actual kernel main entrypoint function. It
// is intentionally defined to prevent the Go compiler from optimizing away the
// real kernel code.
//
// Global variables are passed as arguments to Kmain to prevent the compiler
// from inlining the actual call and removing Kmain from the generated .o file.
// The rt0 assembly trampoline (out of scope per spec.md §1) calls Kmain
// directly with the real kernelStart/kernelEnd physical addresses; this
// stub only exists so `go build` has a main package to link.
func main() {
	kmain.Kmain(kernelStart, kernelEnd)
}
