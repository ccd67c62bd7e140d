// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package nvml

import (
	"github.com/gpuscope-project/gpuscope/lib/gputelem"
)

// mergeProcessUsage reconciles the four per-process usage sources for
// one device into a single per-pid map. The sources overlap and
// disagree; the merge rules are:
//
//  1. Engine utilization samples seed the utilization field (SM,
//     encoder, and decoder percentages summed). No later pass ever
//     writes utilization — the process lists carry no utilization
//     data, and a process missing from the sample window is genuinely
//     idle, not unknown.
//
//  2. The compute, legacy graphics, and v2 graphics lists each write
//     the memory field unconditionally, creating entries (with zero
//     utilization) for pids the sample window missed. The
//     "unavailable" sentinel maps to zero.
//
//  3. The legacy graphics list is consulted before v2, so when both
//     report the same pid the v2 value lands last and wins. v2 is the
//     higher-fidelity source: the legacy list is kept only for
//     drivers that predate v2 and would otherwise contribute nothing.
//
// A source that fails (unsupported API, permission denied, no
// processes) is simply a skipped pass; the map is built from whatever
// sources answered.
func mergeProcessUsage(dev device) map[uint32]gputelem.ProcessUsage {
	usage := make(map[uint32]gputelem.ProcessUsage)

	if samples, err := dev.processUtilization(); err == nil {
		for _, sample := range samples {
			usage[sample.pid] = gputelem.ProcessUsage{
				UtilizationPercent: sample.smUtil + sample.encUtil + sample.decUtil,
			}
		}
	}

	applyMemoryPass(usage, dev.computeProcesses)
	applyMemoryPass(usage, dev.graphicsProcesses)
	applyMemoryPass(usage, dev.graphicsProcessesV2)

	return usage
}

// applyMemoryPass folds one process-memory list into the usage map:
// memory overwrites unconditionally, utilization is preserved (zero
// for entries this pass creates).
func applyMemoryPass(usage map[uint32]gputelem.ProcessUsage, list func() ([]processMemory, error)) {
	procs, err := list()
	if err != nil {
		return
	}
	for _, proc := range procs {
		memory := proc.usedBytes
		if memory == memoryUnavailable {
			memory = 0
		}
		entry := usage[proc.pid]
		entry.MemoryBytes = memory
		usage[proc.pid] = entry
	}
}
