// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package nvml

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ebitengine/purego"

	"github.com/gpuscope-project/gpuscope/lib/gputelem"
)

// Library names tried in order. The unversioned name is the normal
// dynamic-linker path; some distributions package only the versioned
// soname without the dev symlink, so that is the one-time fallback.
const (
	defaultLibrary  = "libnvidia-ml.so"
	fallbackLibrary = "libnvidia-ml.so.1"
)

// NVML return codes consumed here. Everything else is an opaque
// failure rendered through nvmlErrorString.
const (
	retSuccess          = 0
	retInsufficientSize = 7
)

// nvmlTemperatureGPU selects the on-die sensor in the temperature
// query.
const nvmlTemperatureGPU = 0

// deviceNameBufferSize matches NVML_DEVICE_NAME_V2_BUFFER_SIZE.
const deviceNameBufferSize = 96

// Struct mirrors of the NVML ABI, from nvml.h. Field order and the
// explicit padding are load-bearing: NVML writes these buffers raw.
type nvmlMemory struct {
	total uint64
	free  uint64
	used  uint64
}

// nvmlProcessInfoV1 is the legacy process list entry.
type nvmlProcessInfoV1 struct {
	pid           uint32
	_             uint32
	usedGpuMemory uint64
}

// nvmlProcessInfoV2 adds MIG instance fields to the process entry.
type nvmlProcessInfoV2 struct {
	pid               uint32
	_                 uint32
	usedGpuMemory     uint64
	gpuInstanceID     uint32
	computeInstanceID uint32
}

// nvmlUtilizationSample mirrors nvmlProcessUtilizationSample_t.
type nvmlUtilizationSample struct {
	pid       uint32
	_         uint32
	timeStamp uint64
	smUtil    uint32
	memUtil   uint32
	encUtil   uint32
	decUtil   uint32
}

// api holds the resolved NVML entry points. Optional symbols (absent
// on older drivers) stay nil and surface as per-pass errors rather
// than load failures.
type api struct {
	errorString func(ret uint32) string

	initV2                 func() uint32
	deviceGetCount         func(count *uint32) uint32
	deviceGetHandleByIndex func(index uint32, handle *uintptr) uint32
	deviceGetName          func(handle uintptr, name *byte, length uint32) uint32

	deviceGetMemoryInfo           func(handle uintptr, memory *nvmlMemory) uint32
	deviceGetTemperature          func(handle uintptr, sensor uint32, celsius *uint32) uint32
	deviceGetPowerUsage           func(handle uintptr, milliwatts *uint32) uint32
	deviceGetPowerManagementLimit func(handle uintptr, milliwatts *uint32) uint32

	deviceGetProcessUtilization  func(handle uintptr, samples *nvmlUtilizationSample, count *uint32, lastSeen uint64) uint32
	deviceGetComputeProcessesV2  func(handle uintptr, count *uint32, infos *nvmlProcessInfoV2) uint32
	deviceGetComputeProcessesV1  func(handle uintptr, count *uint32, infos *nvmlProcessInfoV1) uint32
	deviceGetGraphicsProcessesV1 func(handle uintptr, count *uint32, infos *nvmlProcessInfoV1) uint32
	deviceGetGraphicsProcessesV2 func(handle uintptr, count *uint32, infos *nvmlProcessInfoV2) uint32
}

// realSession is the dlopen-backed session. One exists per process.
type realSession struct {
	api api
}

// sharedSession memoizes the process-wide NVML session. NVML init is
// expensive and the handle is deliberately never shut down — the
// library stays loaded for the life of the process.
var sharedSession = sync.OnceValues(initSession)

// NewProbe returns the NVIDIA probe backed by the process-wide NVML
// session. The library is not touched until the first harvest that
// demands a vertical.
func NewProbe(logger *slog.Logger, filter *gputelem.Filter) *Probe {
	return newProbe(logger, filter, sharedSession)
}

// initSession loads libnvidia-ml, resolves entry points, and calls
// nvmlInit_v2. Runs at most once per process via sharedSession.
func initSession() (session, error) {
	lib, err := purego.Dlopen(defaultLibrary, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		lib, err = purego.Dlopen(fallbackLibrary, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultLibrary, err)
		}
	}

	sess := &realSession{}
	a := &sess.api

	required := []struct {
		fptr any
		name string
	}{
		{&a.initV2, "nvmlInit_v2"},
		{&a.deviceGetCount, "nvmlDeviceGetCount_v2"},
		{&a.deviceGetHandleByIndex, "nvmlDeviceGetHandleByIndex_v2"},
		{&a.deviceGetName, "nvmlDeviceGetName"},
	}
	for _, symbol := range required {
		if !bind(symbol.fptr, lib, symbol.name) {
			return nil, fmt.Errorf("nvml: missing required symbol %s", symbol.name)
		}
	}

	// Per-vertical and per-pass symbols. Any of these may be absent
	// on old drivers; the corresponding query then fails item-level.
	bind(&a.errorString, lib, "nvmlErrorString")
	bind(&a.deviceGetMemoryInfo, lib, "nvmlDeviceGetMemoryInfo")
	bind(&a.deviceGetTemperature, lib, "nvmlDeviceGetTemperature")
	bind(&a.deviceGetPowerUsage, lib, "nvmlDeviceGetPowerUsage")
	bind(&a.deviceGetPowerManagementLimit, lib, "nvmlDeviceGetPowerManagementLimit")
	bind(&a.deviceGetProcessUtilization, lib, "nvmlDeviceGetProcessUtilization")
	bind(&a.deviceGetComputeProcessesV2, lib, "nvmlDeviceGetComputeRunningProcesses_v2")
	bind(&a.deviceGetComputeProcessesV1, lib, "nvmlDeviceGetComputeRunningProcesses")
	bind(&a.deviceGetGraphicsProcessesV1, lib, "nvmlDeviceGetGraphicsRunningProcesses")
	bind(&a.deviceGetGraphicsProcessesV2, lib, "nvmlDeviceGetGraphicsRunningProcesses_v2")

	if ret := a.initV2(); ret != retSuccess {
		return nil, fmt.Errorf("nvmlInit_v2: %s", a.errText(ret))
	}
	return sess, nil
}

// bind resolves one symbol into fptr, reporting whether it exists.
// RegisterLibFunc panics on missing symbols, so existence is checked
// with Dlsym first.
func bind(fptr any, lib uintptr, name string) bool {
	if _, err := purego.Dlsym(lib, name); err != nil {
		return false
	}
	purego.RegisterLibFunc(fptr, lib, name)
	return true
}

// errText renders an NVML return code for error messages.
func (a *api) errText(ret uint32) string {
	if a.errorString != nil {
		return a.errorString(ret)
	}
	return fmt.Sprintf("nvml error %d", ret)
}

func (s *realSession) deviceCount() (uint32, error) {
	var count uint32
	if ret := s.api.deviceGetCount(&count); ret != retSuccess {
		return 0, fmt.Errorf("nvmlDeviceGetCount: %s", s.api.errText(ret))
	}
	return count, nil
}

func (s *realSession) deviceByIndex(index uint32) (device, error) {
	var handle uintptr
	if ret := s.api.deviceGetHandleByIndex(index, &handle); ret != retSuccess {
		return nil, fmt.Errorf("nvmlDeviceGetHandleByIndex(%d): %s", index, s.api.errText(ret))
	}
	return &realDevice{session: s, handle: handle}, nil
}

// realDevice wraps one NVML device handle. Device handles are owned
// by the library, not the caller — there is nothing to release, and
// they stay valid for the life of the session.
type realDevice struct {
	session *realSession
	handle  uintptr
}

func (d *realDevice) name() (string, error) {
	var buffer [deviceNameBufferSize]byte
	ret := d.session.api.deviceGetName(d.handle, &buffer[0], deviceNameBufferSize)
	if ret != retSuccess {
		return "", fmt.Errorf("nvmlDeviceGetName: %s", d.session.api.errText(ret))
	}
	length := 0
	for length < len(buffer) && buffer[length] != 0 {
		length++
	}
	return string(buffer[:length]), nil
}

func (d *realDevice) memoryInfo() (memoryInfo, error) {
	if d.session.api.deviceGetMemoryInfo == nil {
		return memoryInfo{}, errUnsupported("nvmlDeviceGetMemoryInfo")
	}
	var memory nvmlMemory
	if ret := d.session.api.deviceGetMemoryInfo(d.handle, &memory); ret != retSuccess {
		return memoryInfo{}, fmt.Errorf("nvmlDeviceGetMemoryInfo: %s", d.session.api.errText(ret))
	}
	return memoryInfo{totalBytes: memory.total, usedBytes: memory.used}, nil
}

func (d *realDevice) temperature() (uint32, error) {
	if d.session.api.deviceGetTemperature == nil {
		return 0, errUnsupported("nvmlDeviceGetTemperature")
	}
	var celsius uint32
	ret := d.session.api.deviceGetTemperature(d.handle, nvmlTemperatureGPU, &celsius)
	if ret != retSuccess {
		return 0, fmt.Errorf("nvmlDeviceGetTemperature: %s", d.session.api.errText(ret))
	}
	return celsius, nil
}

func (d *realDevice) powerUsage() (uint32, error) {
	if d.session.api.deviceGetPowerUsage == nil {
		return 0, errUnsupported("nvmlDeviceGetPowerUsage")
	}
	var milliwatts uint32
	if ret := d.session.api.deviceGetPowerUsage(d.handle, &milliwatts); ret != retSuccess {
		return 0, fmt.Errorf("nvmlDeviceGetPowerUsage: %s", d.session.api.errText(ret))
	}
	return milliwatts, nil
}

func (d *realDevice) powerManagementLimit() (uint32, error) {
	if d.session.api.deviceGetPowerManagementLimit == nil {
		return 0, errUnsupported("nvmlDeviceGetPowerManagementLimit")
	}
	var milliwatts uint32
	ret := d.session.api.deviceGetPowerManagementLimit(d.handle, &milliwatts)
	if ret != retSuccess {
		return 0, fmt.Errorf("nvmlDeviceGetPowerManagementLimit: %s", d.session.api.errText(ret))
	}
	return milliwatts, nil
}

func (d *realDevice) processUtilization() ([]utilizationSample, error) {
	call := d.session.api.deviceGetProcessUtilization
	if call == nil {
		return nil, errUnsupported("nvmlDeviceGetProcessUtilization")
	}

	// Count query first: NVML reports the needed buffer size through
	// an "insufficient size" return.
	var count uint32
	ret := call(d.handle, nil, &count, 0)
	if ret == retSuccess || count == 0 {
		return nil, nil
	}
	if ret != retInsufficientSize {
		return nil, fmt.Errorf("nvmlDeviceGetProcessUtilization: %s", d.session.api.errText(ret))
	}

	// Headroom for processes that started between the two calls.
	count += 8
	buffer := make([]nvmlUtilizationSample, count)
	ret = call(d.handle, &buffer[0], &count, 0)
	if ret != retSuccess {
		return nil, fmt.Errorf("nvmlDeviceGetProcessUtilization: %s", d.session.api.errText(ret))
	}
	if int(count) > len(buffer) {
		count = uint32(len(buffer))
	}

	samples := make([]utilizationSample, 0, count)
	for _, raw := range buffer[:count] {
		samples = append(samples, utilizationSample{
			pid:     raw.pid,
			smUtil:  raw.smUtil,
			encUtil: raw.encUtil,
			decUtil: raw.decUtil,
		})
	}
	return samples, nil
}

func (d *realDevice) computeProcesses() ([]processMemory, error) {
	if d.session.api.deviceGetComputeProcessesV2 != nil {
		return d.readProcessListV2("nvmlDeviceGetComputeRunningProcesses_v2",
			d.session.api.deviceGetComputeProcessesV2)
	}
	if d.session.api.deviceGetComputeProcessesV1 != nil {
		return d.readProcessListV1("nvmlDeviceGetComputeRunningProcesses",
			d.session.api.deviceGetComputeProcessesV1)
	}
	return nil, errUnsupported("nvmlDeviceGetComputeRunningProcesses")
}

func (d *realDevice) graphicsProcesses() ([]processMemory, error) {
	if d.session.api.deviceGetGraphicsProcessesV1 == nil {
		return nil, errUnsupported("nvmlDeviceGetGraphicsRunningProcesses")
	}
	return d.readProcessListV1("nvmlDeviceGetGraphicsRunningProcesses",
		d.session.api.deviceGetGraphicsProcessesV1)
}

func (d *realDevice) graphicsProcessesV2() ([]processMemory, error) {
	if d.session.api.deviceGetGraphicsProcessesV2 == nil {
		return nil, errUnsupported("nvmlDeviceGetGraphicsRunningProcesses_v2")
	}
	return d.readProcessListV2("nvmlDeviceGetGraphicsRunningProcesses_v2",
		d.session.api.deviceGetGraphicsProcessesV2)
}

// readProcessListV2 runs the count-then-fetch protocol for a process
// list with the v2 entry layout.
func (d *realDevice) readProcessListV2(symbol string, call func(uintptr, *uint32, *nvmlProcessInfoV2) uint32) ([]processMemory, error) {
	var count uint32
	ret := call(d.handle, &count, nil)
	if ret == retSuccess || count == 0 {
		return nil, nil
	}
	if ret != retInsufficientSize {
		return nil, fmt.Errorf("%s: %s", symbol, d.session.api.errText(ret))
	}

	count += 8
	buffer := make([]nvmlProcessInfoV2, count)
	ret = call(d.handle, &count, &buffer[0])
	if ret != retSuccess {
		return nil, fmt.Errorf("%s: %s", symbol, d.session.api.errText(ret))
	}
	if int(count) > len(buffer) {
		count = uint32(len(buffer))
	}

	procs := make([]processMemory, 0, count)
	for _, raw := range buffer[:count] {
		procs = append(procs, processMemory{pid: raw.pid, usedBytes: raw.usedGpuMemory})
	}
	return procs, nil
}

// readProcessListV1 is readProcessListV2 for the legacy entry layout.
func (d *realDevice) readProcessListV1(symbol string, call func(uintptr, *uint32, *nvmlProcessInfoV1) uint32) ([]processMemory, error) {
	var count uint32
	ret := call(d.handle, &count, nil)
	if ret == retSuccess || count == 0 {
		return nil, nil
	}
	if ret != retInsufficientSize {
		return nil, fmt.Errorf("%s: %s", symbol, d.session.api.errText(ret))
	}

	count += 8
	buffer := make([]nvmlProcessInfoV1, count)
	ret = call(d.handle, &count, &buffer[0])
	if ret != retSuccess {
		return nil, fmt.Errorf("%s: %s", symbol, d.session.api.errText(ret))
	}
	if int(count) > len(buffer) {
		count = uint32(len(buffer))
	}

	procs := make([]processMemory, 0, count)
	for _, raw := range buffer[:count] {
		procs = append(procs, processMemory{pid: raw.pid, usedBytes: raw.usedGpuMemory})
	}
	return procs, nil
}

// errUnsupported marks a query whose symbol the loaded driver does
// not export.
func errUnsupported(symbol string) error {
	return fmt.Errorf("%s: not exported by this driver", symbol)
}
