// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package iokit

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ebitengine/purego"
)

const (
	iokitFramework = "/System/Library/Frameworks/IOKit.framework/IOKit"
	cfFramework    = "/System/Library/Frameworks/CoreFoundation.framework/CoreFoundation"

	// acceleratorClass is the IOKit service class for GPU
	// accelerators on both Intel and Apple Silicon.
	acceleratorClass = "IOAccelerator"

	kernSuccess  = 0
	ioObjectNull = 0

	// serviceNameBufferSize matches the io_name_t fixed capacity.
	serviceNameBufferSize = 128

	cfStringEncodingUTF8 = 0x08000100
	cfNumberFloat64Type  = 6
)

// frameworks holds the resolved IOKit and CoreFoundation entry
// points. Loaded once per process on first use; never unloaded.
type frameworks struct {
	// IOKit.
	serviceMatching                 func(className string) uintptr
	serviceGetMatchingServices      func(mainPort uint32, matching uintptr, existing *uint32) int32
	iteratorNext                    func(iterator uint32) uint32
	registryEntryGetName            func(entry uint32, name *byte) int32
	registryEntryCreateCFProperties func(entry uint32, properties *uintptr, allocator uintptr, options uint32) int32
	objectRelease                   func(object uint32) int32

	// CoreFoundation.
	stringCreateWithCString func(allocator uintptr, cString string, encoding uint32) uintptr
	release                 func(object uintptr)
	dictionaryGetValue      func(dictionary, key uintptr) uintptr
	getTypeID               func(object uintptr) uintptr
	dictionaryGetTypeID     func() uintptr
	numberGetTypeID         func() uintptr
	numberGetValue          func(number uintptr, numberType int, value *float64) bool
}

// loadFrameworks memoizes the dlopen of both frameworks for the life
// of the process.
var loadFrameworks = sync.OnceValues(func() (*frameworks, error) {
	iokitLib, err := purego.Dlopen(iokitFramework, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("loading IOKit: %w", err)
	}
	cfLib, err := purego.Dlopen(cfFramework, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("loading CoreFoundation: %w", err)
	}

	fw := &frameworks{}
	purego.RegisterLibFunc(&fw.serviceMatching, iokitLib, "IOServiceMatching")
	purego.RegisterLibFunc(&fw.serviceGetMatchingServices, iokitLib, "IOServiceGetMatchingServices")
	purego.RegisterLibFunc(&fw.iteratorNext, iokitLib, "IOIteratorNext")
	purego.RegisterLibFunc(&fw.registryEntryGetName, iokitLib, "IORegistryEntryGetName")
	purego.RegisterLibFunc(&fw.registryEntryCreateCFProperties, iokitLib, "IORegistryEntryCreateCFProperties")
	purego.RegisterLibFunc(&fw.objectRelease, iokitLib, "IOObjectRelease")

	purego.RegisterLibFunc(&fw.stringCreateWithCString, cfLib, "CFStringCreateWithCString")
	purego.RegisterLibFunc(&fw.release, cfLib, "CFRelease")
	purego.RegisterLibFunc(&fw.dictionaryGetValue, cfLib, "CFDictionaryGetValue")
	purego.RegisterLibFunc(&fw.getTypeID, cfLib, "CFGetTypeID")
	purego.RegisterLibFunc(&fw.dictionaryGetTypeID, cfLib, "CFDictionaryGetTypeID")
	purego.RegisterLibFunc(&fw.numberGetTypeID, cfLib, "CFNumberGetTypeID")
	purego.RegisterLibFunc(&fw.numberGetValue, cfLib, "CFNumberGetValue")

	return fw, nil
})

// NewProbe returns the IOKit-backed Apple GPU probe. The frameworks
// are not loaded until the first harvest that demands metrics.
func NewProbe(logger *slog.Logger) *Probe {
	return newProbeWith(logger, darwinRegistry{})
}

// darwinRegistry is the real IOKit registry.
type darwinRegistry struct{}

func (darwinRegistry) acceleratorServices() (serviceIterator, error) {
	fw, err := loadFrameworks()
	if err != nil {
		return nil, err
	}

	// The matching dictionary is consumed by
	// IOServiceGetMatchingServices — no release on our side.
	matching := fw.serviceMatching(acceleratorClass)
	if matching == 0 {
		return nil, errors.New("IOServiceMatching returned no criterion")
	}

	// Main port 0 selects the default registry port on every macOS
	// version (kIOMasterPortDefault and its kIOMainPortDefault
	// rename are both the null port).
	var iterator uint32
	if kr := fw.serviceGetMatchingServices(0, matching, &iterator); kr != kernSuccess {
		return nil, fmt.Errorf("IOServiceGetMatchingServices: kern_return %#x", kr)
	}
	return &darwinIterator{fw: fw, iterator: iterator}, nil
}

type darwinIterator struct {
	fw       *frameworks
	iterator uint32
}

func (it *darwinIterator) next() (service, bool) {
	object := it.fw.iteratorNext(it.iterator)
	if object == ioObjectNull {
		return nil, false
	}
	return &darwinService{fw: it.fw, object: object}, true
}

func (it *darwinIterator) release() {
	it.fw.objectRelease(it.iterator)
}

type darwinService struct {
	fw     *frameworks
	object uint32
}

func (s *darwinService) name() (string, error) {
	var buffer [serviceNameBufferSize]byte
	if kr := s.fw.registryEntryGetName(s.object, &buffer[0]); kr != kernSuccess {
		return "", fmt.Errorf("IORegistryEntryGetName: kern_return %#x", kr)
	}
	length := 0
	for length < len(buffer) && buffer[length] != 0 {
		length++
	}
	// Permissive decode: a mangled vendor name is still a usable key.
	return strings.ToValidUTF8(string(buffer[:length]), "�"), nil
}

func (s *darwinService) properties() (propertySet, error) {
	var dictionary uintptr
	kr := s.fw.registryEntryCreateCFProperties(s.object, &dictionary, 0, 0)
	if kr != kernSuccess || dictionary == 0 {
		return nil, fmt.Errorf("IORegistryEntryCreateCFProperties: kern_return %#x", kr)
	}
	return &darwinProperties{fw: s.fw, dictionary: dictionary}, nil
}

func (s *darwinService) release() {
	s.fw.objectRelease(s.object)
}

type darwinProperties struct {
	fw         *frameworks
	dictionary uintptr
}

func (p *darwinProperties) performanceStatistics() (statsDict, bool) {
	value := p.fw.lookupKey(p.dictionary, "PerformanceStatistics")
	if value == 0 || p.fw.getTypeID(value) != p.fw.dictionaryGetTypeID() {
		return nil, false
	}
	// Borrowed from the property set (get rule): released with it.
	return &darwinStats{fw: p.fw, dictionary: value}, true
}

func (p *darwinProperties) release() {
	p.fw.release(p.dictionary)
}

type darwinStats struct {
	fw         *frameworks
	dictionary uintptr
}

func (s *darwinStats) number(key string) (float64, bool) {
	value := s.fw.lookupKey(s.dictionary, key)
	if value == 0 || s.fw.getTypeID(value) != s.fw.numberGetTypeID() {
		return 0, false
	}
	// Float64 conversion covers both floating and integral CFNumbers.
	var out float64
	if !s.fw.numberGetValue(value, cfNumberFloat64Type, &out) {
		return 0, false
	}
	return out, true
}

// lookupKey fetches a dictionary value under a Go string key,
// creating and releasing the transient CFString.
func (fw *frameworks) lookupKey(dictionary uintptr, key string) uintptr {
	cfKey := fw.stringCreateWithCString(0, key, cfStringEncodingUTF8)
	if cfKey == 0 {
		return 0
	}
	defer fw.release(cfKey)
	return fw.dictionaryGetValue(dictionary, cfKey)
}
