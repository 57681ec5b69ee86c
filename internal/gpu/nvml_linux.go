//go:build linux

package gpu

import (
	"bytes"
	"fmt"

	"github.com/ebitengine/purego"
)

// NVML constants. Return code 0 is NVML_SUCCESS; the buffer size matches
// NVML_DEVICE_NAME_V2_BUFFER_SIZE.
const (
	nvmlSuccess        = 0
	nvmlNameBufferSize = 96
)

// nvmlDetector queries the NVIDIA Management Library via dlopen.
// Linking happens at probe time, so binaries run fine on hosts without
// the driver installed.
type nvmlDetector struct{}

func platformDetector() Detector {
	return &nvmlDetector{}
}

func (d *nvmlDetector) Detect() Info {
	none := Info{Available: false, Description: NoGPUInfo}

	lib, err := purego.Dlopen("libnvidia-ml.so.1", purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return none
	}
	defer purego.Dlclose(lib)

	// Resolve symbols by hand: RegisterLibFunc panics on a missing
	// symbol, and a stripped-down driver must degrade, not crash.
	var (
		nvmlInit             func() int32
		nvmlShutdown         func() int32
		deviceGetCount       func(*uint32) int32
		deviceGetHandleByIdx func(uint32, *uintptr) int32
		deviceGetName        func(uintptr, *byte, uint32) int32
	)
	for _, fn := range []struct {
		ptr  any
		name string
	}{
		{&nvmlInit, "nvmlInit_v2"},
		{&nvmlShutdown, "nvmlShutdown"},
		{&deviceGetCount, "nvmlDeviceGetCount_v2"},
		{&deviceGetHandleByIdx, "nvmlDeviceGetHandleByIndex_v2"},
		{&deviceGetName, "nvmlDeviceGetName"},
	} {
		addr, err := purego.Dlsym(lib, fn.name)
		if err != nil || addr == 0 {
			return none
		}
		purego.RegisterFunc(fn.ptr, addr)
	}

	if nvmlInit() != nvmlSuccess {
		return none
	}
	defer nvmlShutdown()

	var count uint32
	if deviceGetCount(&count) != nvmlSuccess || count == 0 {
		return none
	}

	var device uintptr
	if deviceGetHandleByIdx(0, &device) != nvmlSuccess {
		return none
	}

	var buf [nvmlNameBufferSize]byte
	name := "unknown device"
	if deviceGetName(device, &buf[0], nvmlNameBufferSize) == nvmlSuccess {
		if i := bytes.IndexByte(buf[:], 0); i > 0 {
			name = string(buf[:i])
		}
	}

	return Info{
		Available:   true,
		Description: fmt.Sprintf("CUDA available: %s", name),
	}
}
