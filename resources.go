// resources.go: process memory and CPU sampling
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package celeris

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// MemoryUsage is a process-wide memory snapshot in bytes.
type MemoryUsage struct {
	// HeapUsed is the heap memory in use (runtime HeapAlloc)
	HeapUsed uint64

	// HeapTotal is the heap memory obtained from the OS (runtime HeapSys)
	HeapTotal uint64

	// External is the runtime memory obtained from the OS outside the heap
	// (stacks, GC metadata, buffers)
	External uint64
}

// CPUUsage is an amount of CPU time split by mode.
type CPUUsage struct {
	User   time.Duration
	System time.Duration
}

// Total returns User + System.
func (c CPUUsage) Total() time.Duration {
	return c.User + c.System
}

// sub returns the CPU time spent between since and c, clamped at zero.
func (c CPUUsage) sub(since CPUUsage) CPUUsage {
	d := CPUUsage{User: c.User - since.User, System: c.System - since.System}
	if d.User < 0 {
		d.User = 0
	}
	if d.System < 0 {
		d.System = 0
	}
	return d
}

// ResourceSample is one reading of a ResourceSampler.
type ResourceSample struct {
	Memory MemoryUsage

	// CPU is the cumulative CPU time of the process
	CPU CPUUsage
}

// SystemSample is published periodically to Config.OnSystemSample.
type SystemSample struct {
	Timestamp        time.Time
	Memory           MemoryUsage
	CPUPercent       float64
	Goroutines       int
	ActiveOperations int
}

// processSampler reads memory from the Go runtime and CPU times through gopsutil.
type processSampler struct {
	once   sync.Once
	proc   *process.Process
	logger Logger
}

func newProcessSampler(logger Logger) ResourceSampler {
	return &processSampler{logger: logger}
}

// Sample implements ResourceSampler.
func (s *processSampler) Sample() ResourceSample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	sample := ResourceSample{
		Memory: MemoryUsage{
			HeapUsed:  ms.HeapAlloc,
			HeapTotal: ms.HeapSys,
		},
	}
	if ms.Sys > ms.HeapSys {
		sample.Memory.External = ms.Sys - ms.HeapSys
	}

	s.once.Do(func() {
		proc, err := process.NewProcess(int32(os.Getpid())) // #nosec G115 - pid fits in int32
		if err != nil {
			s.logger.Warn("process CPU sampling unavailable", "error", err)
			return
		}
		s.proc = proc
	})
	if s.proc == nil {
		return sample
	}

	times, err := s.proc.Times()
	if err != nil {
		s.logger.Debug("process CPU sample failed", "error", err)
		return sample
	}
	sample.CPU = CPUUsage{
		User:   secondsToDuration(times.User),
		System: secondsToDuration(times.System),
	}
	return sample
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// cpuPercent returns the share of wall time spent on CPU, in percent.
// Values above 100 are possible on multi-core machines.
func cpuPercent(cpu CPUUsage, wall time.Duration) float64 {
	if wall <= 0 {
		return 0
	}
	return float64(cpu.Total()) / float64(wall) * 100
}
