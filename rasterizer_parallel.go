//go:build !wasm

package glyphatlas

// parallelSupported is true on every platform except wasm: WebAssembly
// (without the threads/atomics build) has no real goroutine
// parallelism, so the work-stealing pool in internal/parallel would
// buy nothing and the multithread option is silently ignored there
// (spec.md §4.5, §9). This mirrors the build-tag split the teacher
// itself uses for platform-conditional features (cache/ebiten_yes.go
// vs cache/ebiten_no.go).
const parallelSupported = true

func (d *rasterizerDriver) runParallel(tasks []rasterizeTask) []rasterizeResult {
	return d.runParallelViaPool(tasks)
}
