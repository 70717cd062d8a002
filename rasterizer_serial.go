//go:build wasm

package glyphatlas

// parallelSupported is false on wasm: see rasterizer_parallel.go for
// the rationale. The multithread option is accepted at construction
// but has no effect on this platform.
const parallelSupported = false

func (d *rasterizerDriver) runParallel(tasks []rasterizeTask) []rasterizeResult {
	return d.runSerial(tasks)
}
