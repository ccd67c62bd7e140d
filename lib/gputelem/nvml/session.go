// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package nvml

// session is the narrow slice of NVML the probe consumes. The real
// implementation (dlopen-backed, see session_linux.go) lives behind
// this interface so the probe and merger can be exercised against
// fakes on any platform.
type session interface {
	deviceCount() (uint32, error)
	deviceByIndex(index uint32) (device, error)
}

// device is one enumerated GPU. Each method maps to a single NVML
// query; every one can fail independently on real hardware (sensor
// not present, API not supported by the driver, insufficient
// permissions), so callers treat each call as its own failure domain.
type device interface {
	name() (string, error)
	memoryInfo() (memoryInfo, error)
	temperature() (uint32, error)
	powerUsage() (uint32, error)
	powerManagementLimit() (uint32, error)

	// processUtilization returns per-process engine busy percentages
	// accumulated since the last driver-side sample window.
	processUtilization() ([]utilizationSample, error)

	// computeProcesses, graphicsProcesses, and graphicsProcessesV2
	// are the three overlapping per-process memory lists. The
	// graphics list exists in a legacy (v1) and a v2 flavor; old
	// drivers export only v1.
	computeProcesses() ([]processMemory, error)
	graphicsProcesses() ([]processMemory, error)
	graphicsProcessesV2() ([]processMemory, error)
}

// memoryInfo mirrors the total/used byte counts from the NVML memory
// query.
type memoryInfo struct {
	totalBytes uint64
	usedBytes  uint64
}

// utilizationSample is one process's engine utilization: busy
// percentages for the shader (SM), encoder, and decoder engines.
type utilizationSample struct {
	pid     uint32
	smUtil  uint32
	encUtil uint32
	decUtil uint32
}

// memoryUnavailable is NVML's sentinel for "used memory not known"
// (reported on Windows display driver model, and by some virtual
// GPUs). The merger maps it to zero.
const memoryUnavailable = ^uint64(0)

// processMemory is one process's entry in a compute or graphics
// process list. usedBytes may be memoryUnavailable.
type processMemory struct {
	pid       uint32
	usedBytes uint64
}
