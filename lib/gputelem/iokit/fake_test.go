// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package iokit

import "errors"

var errFake = errors.New("fake failure")

// fakeRegistry hands out a single iterator over canned services and
// counts how often the probe asks for one.
type fakeRegistry struct {
	services []*fakeService
	err      error

	enumerations int
	iterator     *fakeIterator
}

func (r *fakeRegistry) acceleratorServices() (serviceIterator, error) {
	r.enumerations++
	if r.err != nil {
		return nil, r.err
	}
	r.iterator = &fakeIterator{services: r.services}
	return r.iterator, nil
}

type fakeIterator struct {
	services []*fakeService
	pos      int
	releases int
}

func (it *fakeIterator) next() (service, bool) {
	if it.pos >= len(it.services) {
		return nil, false
	}
	svc := it.services[it.pos]
	it.pos++
	return svc, true
}

func (it *fakeIterator) release() { it.releases++ }

// fakeService is one canned registry entry. Any of nameErr or
// propertiesErr makes the corresponding read fail; props nil means
// the service carries no property table object at all (distinct from
// a table without statistics).
type fakeService struct {
	serviceName   string
	nameErr       error
	props         *fakeProperties
	propertiesErr error

	releases int
}

func (s *fakeService) name() (string, error) {
	if s.nameErr != nil {
		return "", s.nameErr
	}
	return s.serviceName, nil
}

func (s *fakeService) properties() (propertySet, error) {
	if s.propertiesErr != nil {
		return nil, s.propertiesErr
	}
	return s.props, nil
}

func (s *fakeService) release() { s.releases++ }

type fakeProperties struct {
	stats    *fakeStats
	releases int
}

func (p *fakeProperties) performanceStatistics() (statsDict, bool) {
	if p.stats == nil {
		return nil, false
	}
	return p.stats, true
}

func (p *fakeProperties) release() { p.releases++ }

// fakeStats records which keys were consulted, in order.
type fakeStats struct {
	values map[string]float64
	asked  []string
}

func (s *fakeStats) number(key string) (float64, bool) {
	s.asked = append(s.asked, key)
	value, ok := s.values[key]
	return value, ok
}
