// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package nvml

import "errors"

// fakeSession is an in-memory session for probe tests. It counts
// every call so tests can assert the resource-conservation contract:
// an unrequested vertical triggers no native query at all.
type fakeSession struct {
	devices []*fakeDevice

	countErr  error
	countCall int
	byIndex   int
}

func (s *fakeSession) deviceCount() (uint32, error) {
	s.countCall++
	if s.countErr != nil {
		return 0, s.countErr
	}
	return uint32(len(s.devices)), nil
}

func (s *fakeSession) deviceByIndex(index uint32) (device, error) {
	s.byIndex++
	if int(index) >= len(s.devices) {
		return nil, errors.New("index out of range")
	}
	dev := s.devices[index]
	if dev == nil {
		return nil, errors.New("device handle lost")
	}
	return dev, nil
}

// fakeDevice returns canned values per query, with per-query error
// injection and call counters.
type fakeDevice struct {
	deviceName string
	nameErr    error

	memory    memoryInfo
	memoryErr error

	celsius uint32
	tempErr error

	powerMilliwatts uint32
	powerErr        error
	limitMilliwatts uint32
	limitErr        error

	utilization    []utilizationSample
	utilizationErr error
	compute        []processMemory
	computeErr     error
	graphicsV1     []processMemory
	graphicsV1Err  error
	graphicsV2     []processMemory
	graphicsV2Err  error

	nameCalls    int
	memoryCalls  int
	tempCalls    int
	powerCalls   int
	limitCalls   int
	processCalls int
}

func (d *fakeDevice) name() (string, error) {
	d.nameCalls++
	return d.deviceName, d.nameErr
}

func (d *fakeDevice) memoryInfo() (memoryInfo, error) {
	d.memoryCalls++
	return d.memory, d.memoryErr
}

func (d *fakeDevice) temperature() (uint32, error) {
	d.tempCalls++
	return d.celsius, d.tempErr
}

func (d *fakeDevice) powerUsage() (uint32, error) {
	d.powerCalls++
	return d.powerMilliwatts, d.powerErr
}

func (d *fakeDevice) powerManagementLimit() (uint32, error) {
	d.limitCalls++
	return d.limitMilliwatts, d.limitErr
}

func (d *fakeDevice) processUtilization() ([]utilizationSample, error) {
	d.processCalls++
	return d.utilization, d.utilizationErr
}

func (d *fakeDevice) computeProcesses() ([]processMemory, error) {
	d.processCalls++
	return d.compute, d.computeErr
}

func (d *fakeDevice) graphicsProcesses() ([]processMemory, error) {
	d.processCalls++
	return d.graphicsV1, d.graphicsV1Err
}

func (d *fakeDevice) graphicsProcessesV2() ([]processMemory, error) {
	d.processCalls++
	return d.graphicsV2, d.graphicsV2Err
}
