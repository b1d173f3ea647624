//go:build opencl

package kernel

/*
#cgo linux LDFLAGS: -lOpenCL
#cgo darwin LDFLAGS: -framework OpenCL
#cgo windows LDFLAGS: -lOpenCL

#ifdef __APPLE__
#include <OpenCL/opencl.h>
#else
#include <CL/cl.h>
#endif

#include <stdlib.h>
*/
import "C"

import (
	"context"
	_ "embed"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sync/errgroup"

	"github.com/Amr-9/omnivanity/pkg/kernel/keccak"
)

//go:embed kernels/lanes.cl
var laneSource string

// OpenCLBackend runs lanes on the first OpenCL GPU. The device has no
// curve arithmetic: searches derive public keys on the host and hand them
// to the device for hashing, matching and the result claim. Full-pipeline
// benchmarks report ErrRuntimeUnavailable.
type OpenCLBackend struct {
	mu sync.Mutex

	platform C.cl_platform_id
	device   C.cl_device_id
	context  C.cl_context
	queue    C.cl_command_queue
	program  C.cl_program
	bench    C.cl_kernel
	batch    C.cl_kernel
	search   C.cl_kernel
	digest   C.cl_kernel

	pipeline *Pipeline
	info     Device
}

// NewOpenCLBackend initialises OpenCL and builds the lane programs.
func NewOpenCLBackend() (*OpenCLBackend, error) {
	b := &OpenCLBackend{pipeline: NewPipeline(keccak.Lane64)}
	if err := b.init(); err != nil {
		b.Close()
		return nil, unavailable("opencl", err)
	}
	return b, nil
}

func (b *OpenCLBackend) init() error {
	var ret C.cl_int
	var numPlatforms C.cl_uint
	if C.clGetPlatformIDs(0, nil, &numPlatforms) != C.CL_SUCCESS || numPlatforms == 0 {
		return fmt.Errorf("no OpenCL platforms")
	}
	platforms := make([]C.cl_platform_id, numPlatforms)
	C.clGetPlatformIDs(numPlatforms, &platforms[0], nil)
	b.platform = platforms[0]

	var numDevices C.cl_uint
	if C.clGetDeviceIDs(b.platform, C.CL_DEVICE_TYPE_GPU, 0, nil, &numDevices) != C.CL_SUCCESS || numDevices == 0 {
		return fmt.Errorf("no GPU devices")
	}
	devices := make([]C.cl_device_id, numDevices)
	C.clGetDeviceIDs(b.platform, C.CL_DEVICE_TYPE_GPU, numDevices, &devices[0], nil)
	b.device = devices[0]
	b.info = b.describe()

	b.context = C.clCreateContext(nil, 1, &b.device, nil, nil, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("create context: %d", ret)
	}
	b.queue = C.clCreateCommandQueue(b.context, b.device, 0, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("create queue: %d", ret)
	}

	src := C.CString(laneSource)
	defer C.free(unsafe.Pointer(src))
	length := C.size_t(len(laneSource))
	b.program = C.clCreateProgramWithSource(b.context, 1, &src, &length, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("create program: %d", ret)
	}
	if C.clBuildProgram(b.program, 1, &b.device, nil, nil, nil) != C.CL_SUCCESS {
		var logSize C.size_t
		C.clGetProgramBuildInfo(b.program, b.device, C.CL_PROGRAM_BUILD_LOG, 0, nil, &logSize)
		buildLog := make([]byte, logSize+1)
		C.clGetProgramBuildInfo(b.program, b.device, C.CL_PROGRAM_BUILD_LOG, logSize, unsafe.Pointer(&buildLog[0]), nil)
		return fmt.Errorf("build program: %s", string(buildLog[:logSize]))
	}

	if b.bench, ret = b.kernel("bench_keccak"); ret != C.CL_SUCCESS {
		return fmt.Errorf("create kernel bench_keccak: %d", ret)
	}
	if b.batch, ret = b.kernel("pattern_match_batch"); ret != C.CL_SUCCESS {
		return fmt.Errorf("create kernel pattern_match_batch: %d", ret)
	}
	if b.search, ret = b.kernel("search_lanes"); ret != C.CL_SUCCESS {
		return fmt.Errorf("create kernel search_lanes: %d", ret)
	}
	if b.digest, ret = b.kernel("digest_batch"); ret != C.CL_SUCCESS {
		return fmt.Errorf("create kernel digest_batch: %d", ret)
	}
	return nil
}

func (b *OpenCLBackend) kernel(name string) (C.cl_kernel, C.cl_int) {
	var ret C.cl_int
	n := C.CString(name)
	defer C.free(unsafe.Pointer(n))
	k := C.clCreateKernel(b.program, n, &ret)
	return k, ret
}

func (b *OpenCLBackend) describe() Device {
	var name, vendor [256]C.char
	var units C.cl_uint
	var mem C.cl_ulong
	C.clGetDeviceInfo(b.device, C.CL_DEVICE_NAME, C.size_t(len(name)), unsafe.Pointer(&name[0]), nil)
	C.clGetDeviceInfo(b.device, C.CL_DEVICE_VENDOR, C.size_t(len(vendor)), unsafe.Pointer(&vendor[0]), nil)
	C.clGetDeviceInfo(b.device, C.CL_DEVICE_MAX_COMPUTE_UNITS, C.size_t(unsafe.Sizeof(units)), unsafe.Pointer(&units), nil)
	C.clGetDeviceInfo(b.device, C.CL_DEVICE_GLOBAL_MEM_SIZE, C.size_t(unsafe.Sizeof(mem)), unsafe.Pointer(&mem), nil)
	return Device{
		Name:         C.GoString(&name[0]),
		Vendor:       C.GoString(&vendor[0]),
		ComputeUnits: int(units),
		GlobalMem:    uint64(mem),
		Native64:     true,
	}
}

// Name returns "opencl".
func (b *OpenCLBackend) Name() string { return string(KindOpenCL) }

// Device describes the selected GPU.
func (b *OpenCLBackend) Device() Device { return b.info }

// searchItems bounds the public keys uploaded per launch.
const searchItems = 1 << 18

// slotBytes is the device lane slot: key, then address.
const slotBytes = 32 + keccak.Size

// Search runs a search dispatch. Public keys are derived on the host in
// chunks of at most searchItems keys; each chunk is one device launch, and
// the dispatch ends after the first chunk in which a lane claims the result.
func (b *OpenCLBackend) Search(ctx context.Context, d *Dispatch) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	lanes := len(d.Seeds)
	stride := max(1, min(int(d.Params.KeysPerLane), searchItems/lanes))
	var (
		starts = make([]CandidateKey, lanes)
		next   = make([]uint64, lanes)
		counts = make([]uint32, lanes)
		pubs   = make([]byte, lanes*stride*PublicKeySize)
		keys   = make([]byte, lanes*stride*32)
		slots  = make([]byte, lanes*slotBytes)
		hits   = make([]uint32, lanes)
	)
	for lane := range starts {
		starts[lane] = LaneStart(d.Seeds[lane], uint32(lane), d.Params.IterationOffset)
	}

	for {
		if !b.derive(d, starts, next, counts, stride, pubs, keys) {
			return nil
		}
		winner, err := b.launchSearch(d, counts, stride, pubs, keys, slots, hits)
		if err != nil {
			return err
		}
		if winner == 0 {
			continue
		}
		// the device winner claims first, the other hits keep their slots
		publish := func(lane int) {
			slot := slots[lane*slotBytes:]
			key := [32]byte(slot[:32])
			d.Result.Publish(uint32(lane), &key, slot[32:32+d.AddressLen])
		}
		publish(int(winner - 1))
		for lane, hit := range hits {
			if hit != 0 && lane != int(winner-1) {
				publish(lane)
			}
		}
		return nil
	}
}

// derive fills the next chunk of public keys for every lane and reports
// whether any lane has keys left.
func (b *OpenCLBackend) derive(d *Dispatch, starts []CandidateKey, next []uint64, counts []uint32, stride int, pubs, keys []byte) bool {
	limit := uint64(d.Params.KeysPerLane)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for lane := range starts {
		g.Go(func() error {
			var (
				k   CandidateKey
				pub [PublicKeySize]byte
			)
			n := 0
			for ; n < stride && next[lane] < limit; n++ {
				k.Step(&starts[lane], uint32(next[lane]))
				next[lane] += uint64(b.pipeline.Deriver.Public(&k, &pub)) + 1
				item := lane*stride + n
				copy(pubs[item*PublicKeySize:], pub[:])
				key := k.Bytes()
				copy(keys[item*32:], key[:])
			}
			counts[lane] = uint32(n)
			return nil
		})
	}
	_ = g.Wait()
	for _, n := range counts {
		if n > 0 {
			return true
		}
	}
	return false
}

// launchSearch runs search_lanes over one chunk and returns the winner word.
func (b *OpenCLBackend) launchSearch(d *Dispatch, counts []uint32, stride int, pubs, keys, slots []byte, hits []uint32) (uint32, error) {
	lanes := len(counts)
	pattern := d.Pattern.Units
	var winner uint32

	bufPubs, err := b.buffer(C.CL_MEM_READ_ONLY|C.CL_MEM_COPY_HOST_PTR, len(pubs), unsafe.Pointer(&pubs[0]))
	if err != nil {
		return 0, err
	}
	defer C.clReleaseMemObject(bufPubs)
	bufKeys, err := b.buffer(C.CL_MEM_READ_ONLY|C.CL_MEM_COPY_HOST_PTR, len(keys), unsafe.Pointer(&keys[0]))
	if err != nil {
		return 0, err
	}
	defer C.clReleaseMemObject(bufKeys)
	bufCounts, err := b.buffer(C.CL_MEM_READ_ONLY|C.CL_MEM_COPY_HOST_PTR, lanes*4, unsafe.Pointer(&counts[0]))
	if err != nil {
		return 0, err
	}
	defer C.clReleaseMemObject(bufCounts)
	bufPattern, err := b.buffer(C.CL_MEM_READ_ONLY|C.CL_MEM_COPY_HOST_PTR, len(pattern), unsafe.Pointer(&pattern[0]))
	if err != nil {
		return 0, err
	}
	defer C.clReleaseMemObject(bufPattern)
	bufSlots, err := b.buffer(C.CL_MEM_READ_WRITE|C.CL_MEM_COPY_HOST_PTR, len(slots), unsafe.Pointer(&slots[0]))
	if err != nil {
		return 0, err
	}
	defer C.clReleaseMemObject(bufSlots)
	bufHits, err := b.buffer(C.CL_MEM_READ_WRITE|C.CL_MEM_COPY_HOST_PTR, lanes*4, unsafe.Pointer(&hits[0]))
	if err != nil {
		return 0, err
	}
	defer C.clReleaseMemObject(bufHits)
	bufWinner, err := b.buffer(C.CL_MEM_READ_WRITE|C.CL_MEM_COPY_HOST_PTR, 4, unsafe.Pointer(&winner))
	if err != nil {
		return 0, err
	}
	defer C.clReleaseMemObject(bufWinner)

	cStride := C.cl_uint(stride)
	cAddrLen := C.cl_uint(d.AddressLen)
	cLen := C.cl_uint(d.Pattern.Len)
	cMode := C.cl_uint(d.Pattern.Mode)
	cNibbles, cCI := patternFlags(d.Pattern)
	err = b.setArgs(b.search, []kernelArg{
		{unsafe.Sizeof(bufPubs), unsafe.Pointer(&bufPubs)},
		{unsafe.Sizeof(bufKeys), unsafe.Pointer(&bufKeys)},
		{unsafe.Sizeof(bufCounts), unsafe.Pointer(&bufCounts)},
		{unsafe.Sizeof(cStride), unsafe.Pointer(&cStride)},
		{unsafe.Sizeof(cAddrLen), unsafe.Pointer(&cAddrLen)},
		{unsafe.Sizeof(bufPattern), unsafe.Pointer(&bufPattern)},
		{unsafe.Sizeof(cLen), unsafe.Pointer(&cLen)},
		{unsafe.Sizeof(cMode), unsafe.Pointer(&cMode)},
		{unsafe.Sizeof(cNibbles), unsafe.Pointer(&cNibbles)},
		{unsafe.Sizeof(cCI), unsafe.Pointer(&cCI)},
		{unsafe.Sizeof(bufSlots), unsafe.Pointer(&bufSlots)},
		{unsafe.Sizeof(bufHits), unsafe.Pointer(&bufHits)},
		{unsafe.Sizeof(bufWinner), unsafe.Pointer(&bufWinner)},
	})
	if err != nil {
		return 0, err
	}

	if err := b.run(b.search, lanes); err != nil {
		return 0, err
	}
	if err := b.read(bufWinner, 4, unsafe.Pointer(&winner)); err != nil {
		return 0, err
	}
	if winner == 0 {
		return 0, nil
	}
	if err := b.read(bufHits, lanes*4, unsafe.Pointer(&hits[0])); err != nil {
		return 0, err
	}
	if err := b.read(bufSlots, len(slots), unsafe.Pointer(&slots[0])); err != nil {
		return 0, err
	}
	return winner, nil
}

// Digest hashes public-key blocks on the device.
func (b *OpenCLBackend) Digest(ctx context.Context, blocks [][PublicKeySize]byte) ([][keccak.Size]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][keccak.Size]byte, len(blocks))
	if len(blocks) == 0 {
		return out, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bufIn, err := b.buffer(C.CL_MEM_READ_ONLY|C.CL_MEM_COPY_HOST_PTR, len(blocks)*PublicKeySize, unsafe.Pointer(&blocks[0]))
	if err != nil {
		return nil, err
	}
	defer C.clReleaseMemObject(bufIn)
	bufOut, err := b.buffer(C.CL_MEM_WRITE_ONLY, len(out)*keccak.Size, nil)
	if err != nil {
		return nil, err
	}
	defer C.clReleaseMemObject(bufOut)

	err = b.setArgs(b.digest, []kernelArg{
		{unsafe.Sizeof(bufIn), unsafe.Pointer(&bufIn)},
		{unsafe.Sizeof(bufOut), unsafe.Pointer(&bufOut)},
	})
	if err != nil {
		return nil, err
	}
	if err := b.run(b.digest, len(blocks)); err != nil {
		return nil, err
	}
	if err := b.read(bufOut, len(out)*keccak.Size, unsafe.Pointer(&out[0])); err != nil {
		return nil, err
	}
	return out, nil
}

// Benchmark runs the permutation-only benchmark on the device.
func (b *OpenCLBackend) Benchmark(ctx context.Context, d *BenchDispatch) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if d.FullPipeline {
		return unavailable("opencl", fmt.Errorf("full pipeline needs curve arithmetic"))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	seeds := make([]uint32, 0, len(d.Seeds)*KeyLimbs)
	for _, s := range d.Seeds {
		seeds = append(seeds, s[:]...)
	}
	var counters [2]C.cl_ulong

	bufSeeds, err := b.buffer(C.CL_MEM_READ_ONLY|C.CL_MEM_COPY_HOST_PTR, len(seeds)*4, unsafe.Pointer(&seeds[0]))
	if err != nil {
		return err
	}
	defer C.clReleaseMemObject(bufSeeds)
	bufCounter, err := b.buffer(C.CL_MEM_READ_WRITE|C.CL_MEM_COPY_HOST_PTR, 8, unsafe.Pointer(&counters[0]))
	if err != nil {
		return err
	}
	defer C.clReleaseMemObject(bufCounter)
	bufSink, err := b.buffer(C.CL_MEM_READ_WRITE|C.CL_MEM_COPY_HOST_PTR, 8, unsafe.Pointer(&counters[1]))
	if err != nil {
		return err
	}
	defer C.clReleaseMemObject(bufSink)

	offset := C.cl_ulong(d.Params.IterationOffset)
	keys := C.cl_uint(d.Params.KeysPerLane)
	C.clSetKernelArg(b.bench, 0, C.size_t(unsafe.Sizeof(bufSeeds)), unsafe.Pointer(&bufSeeds))
	C.clSetKernelArg(b.bench, 1, C.size_t(unsafe.Sizeof(offset)), unsafe.Pointer(&offset))
	C.clSetKernelArg(b.bench, 2, C.size_t(unsafe.Sizeof(keys)), unsafe.Pointer(&keys))
	C.clSetKernelArg(b.bench, 3, C.size_t(unsafe.Sizeof(bufCounter)), unsafe.Pointer(&bufCounter))
	C.clSetKernelArg(b.bench, 4, C.size_t(unsafe.Sizeof(bufSink)), unsafe.Pointer(&bufSink))

	if err := b.run(b.bench, len(d.Seeds)); err != nil {
		return err
	}
	if err := b.read(bufCounter, 8, unsafe.Pointer(&counters[0])); err != nil {
		return err
	}
	if err := b.read(bufSink, 8, unsafe.Pointer(&counters[1])); err != nil {
		return err
	}
	d.Counter.keys.Add(uint64(counters[0]))
	d.Counter.sink.Add(uint64(counters[1]))
	return nil
}

// MatchBatch matches a batch of addresses on the device.
func (b *OpenCLBackend) MatchBatch(ctx context.Context, d *BatchDispatch) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	n := len(d.Addresses)
	if n == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	stride := 1
	for _, a := range d.Addresses {
		stride = max(stride, len(a))
	}
	packed := make([]byte, n*stride)
	lens := make([]uint32, n)
	for i, a := range d.Addresses {
		copy(packed[i*stride:], a)
		lens[i] = uint32(len(a))
	}
	pattern := d.Pattern.Units
	first := uint32(0xffffffff)

	bufAddrs, err := b.buffer(C.CL_MEM_READ_ONLY|C.CL_MEM_COPY_HOST_PTR, len(packed), unsafe.Pointer(&packed[0]))
	if err != nil {
		return err
	}
	defer C.clReleaseMemObject(bufAddrs)
	bufLens, err := b.buffer(C.CL_MEM_READ_ONLY|C.CL_MEM_COPY_HOST_PTR, n*4, unsafe.Pointer(&lens[0]))
	if err != nil {
		return err
	}
	defer C.clReleaseMemObject(bufLens)
	bufPattern, err := b.buffer(C.CL_MEM_READ_ONLY|C.CL_MEM_COPY_HOST_PTR, len(pattern), unsafe.Pointer(&pattern[0]))
	if err != nil {
		return err
	}
	defer C.clReleaseMemObject(bufPattern)
	bufFlags, err := b.buffer(C.CL_MEM_READ_WRITE|C.CL_MEM_COPY_HOST_PTR, n*4, unsafe.Pointer(&d.Result.Flags[0]))
	if err != nil {
		return err
	}
	defer C.clReleaseMemObject(bufFlags)
	bufFirst, err := b.buffer(C.CL_MEM_READ_WRITE|C.CL_MEM_COPY_HOST_PTR, 4, unsafe.Pointer(&first))
	if err != nil {
		return err
	}
	defer C.clReleaseMemObject(bufFirst)

	cStride := C.cl_uint(stride)
	cLen := C.cl_uint(d.Pattern.Len)
	cMode := C.cl_uint(d.Pattern.Mode)
	cNibbles, cCI := patternFlags(d.Pattern)
	err = b.setArgs(b.batch, []kernelArg{
		{unsafe.Sizeof(bufAddrs), unsafe.Pointer(&bufAddrs)},
		{unsafe.Sizeof(bufLens), unsafe.Pointer(&bufLens)},
		{unsafe.Sizeof(cStride), unsafe.Pointer(&cStride)},
		{unsafe.Sizeof(bufPattern), unsafe.Pointer(&bufPattern)},
		{unsafe.Sizeof(cLen), unsafe.Pointer(&cLen)},
		{unsafe.Sizeof(cMode), unsafe.Pointer(&cMode)},
		{unsafe.Sizeof(cNibbles), unsafe.Pointer(&cNibbles)},
		{unsafe.Sizeof(cCI), unsafe.Pointer(&cCI)},
		{unsafe.Sizeof(bufFlags), unsafe.Pointer(&bufFlags)},
		{unsafe.Sizeof(bufFirst), unsafe.Pointer(&bufFirst)},
	})
	if err != nil {
		return err
	}

	if err := b.run(b.batch, n); err != nil {
		return err
	}
	if err := b.read(bufFlags, n*4, unsafe.Pointer(&d.Result.Flags[0])); err != nil {
		return err
	}
	if err := b.read(bufFirst, 4, unsafe.Pointer(&first)); err != nil {
		return err
	}
	d.Result.first.Store(first)
	return nil
}

type kernelArg struct {
	size uintptr
	ptr  unsafe.Pointer
}

func (b *OpenCLBackend) setArgs(k C.cl_kernel, args []kernelArg) error {
	for i, a := range args {
		if ret := C.clSetKernelArg(k, C.cl_uint(i), C.size_t(a.size), a.ptr); ret != C.CL_SUCCESS {
			return unavailable("opencl", fmt.Errorf("set arg %d: %d", i, ret))
		}
	}
	return nil
}

func patternFlags(p *PatternSpec) (nibbles, ci C.cl_uint) {
	if p.Granularity == Nibbles {
		nibbles = 1
	}
	if p.CaseInsensitive {
		ci = 1
	}
	return nibbles, ci
}

func (b *OpenCLBackend) buffer(flags C.cl_mem_flags, size int, host unsafe.Pointer) (C.cl_mem, error) {
	var ret C.cl_int
	mem := C.clCreateBuffer(b.context, flags, C.size_t(size), host, &ret)
	if ret != C.CL_SUCCESS {
		return nil, unavailable("opencl", fmt.Errorf("create buffer of %d bytes: %d", size, ret))
	}
	return mem, nil
}

func (b *OpenCLBackend) run(k C.cl_kernel, items int) error {
	global := C.size_t(items)
	if ret := C.clEnqueueNDRangeKernel(b.queue, k, 1, nil, &global, nil, 0, nil, nil); ret != C.CL_SUCCESS {
		return unavailable("opencl", fmt.Errorf("enqueue kernel: %d", ret))
	}
	if ret := C.clFinish(b.queue); ret != C.CL_SUCCESS {
		return unavailable("opencl", fmt.Errorf("finish: %d", ret))
	}
	return nil
}

func (b *OpenCLBackend) read(mem C.cl_mem, size int, dst unsafe.Pointer) error {
	if ret := C.clEnqueueReadBuffer(b.queue, mem, C.CL_TRUE, 0, C.size_t(size), dst, 0, nil, nil); ret != C.CL_SUCCESS {
		return unavailable("opencl", fmt.Errorf("read buffer: %d", ret))
	}
	return nil
}

// Close releases the OpenCL objects.
func (b *OpenCLBackend) Close() error {
	for _, k := range []*C.cl_kernel{&b.search, &b.digest} {
		if *k != nil {
			C.clReleaseKernel(*k)
			*k = nil
		}
	}
	if b.batch != nil {
		C.clReleaseKernel(b.batch)
		b.batch = nil
	}
	if b.bench != nil {
		C.clReleaseKernel(b.bench)
		b.bench = nil
	}
	if b.program != nil {
		C.clReleaseProgram(b.program)
		b.program = nil
	}
	if b.queue != nil {
		C.clReleaseCommandQueue(b.queue)
		b.queue = nil
	}
	if b.context != nil {
		C.clReleaseContext(b.context)
		b.context = nil
	}
	return nil
}
