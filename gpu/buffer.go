package gpu

import (
	"context"
	"time"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/openfluke/wgcompute/logging"
)

// Usage sets for the buffers a dispatch creates.
const (
	usageReadOnlyInput = wgpu.BufferUsageStorage
	usageUniformInput  = wgpu.BufferUsageUniform
	usageInPlace       = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst
	usageOutput        = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc
	usageStaging       = wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst
)

// newInitBuffer creates a device buffer holding a copy of contents.
func (c *Context) newInitBuffer(label string, contents []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := c.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: contents,
		Usage:    usage,
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// newBuffer creates a zero-filled device buffer.
func (c *Context) newBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	return c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
}

// readStaging maps a staging buffer that already has a copy submitted into it and returns
// a host copy of its first size bytes. The mapping is released before returning.
//
// The map callback is the only writer of done. Device.Poll pumps the callback; between
// polls the loop sleeps for pollEvery so other device callbacks get a chance to run.
func (c *Context) readStaging(ctx context.Context, staging *wgpu.Buffer, size uint64, timeout, pollEvery time.Duration) ([]byte, error) {
	done := make(chan wgpu.BufferMapAsyncStatus, 1)
	err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		done <- status
	})
	if err != nil {
		return nil, wrapf(KindExecution, err, "map staging buffer")
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var status wgpu.BufferMapAsyncStatus
Loop:
	for {
		c.Device.Poll(false, nil)
		select {
		case status = <-done:
			break Loop
		case <-deadline.C:
			return nil, errorf(KindExecution, "read-back timed out after %s", timeout)
		case <-ctx.Done():
			return nil, wrapf(KindExecution, ctx.Err(), "read-back abandoned")
		default:
			time.Sleep(pollEvery)
		}
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, errorf(KindExecution, "map failed with status %d", status)
	}

	return copyMapped(staging, size)
}

// mappedBuffer is the part of a mapped *wgpu.Buffer read-back needs.
type mappedBuffer interface {
	GetMappedRange(offset, size uint) []byte
	Unmap() error
}

// copyMapped copies the first size bytes out of a mapped buffer and unmaps it.
func copyMapped(b mappedBuffer, size uint64) ([]byte, error) {
	data := b.GetMappedRange(0, uint(size))
	if data == nil {
		if err := b.Unmap(); err != nil {
			logging.Get().WithError(err).Debug("unmap staging buffer")
		}
		return nil, errorf(KindExecution, "staging buffer has no mapped range")
	}
	out := make([]byte, size)
	copy(out, data)
	if err := b.Unmap(); err != nil {
		return nil, wrapf(KindExecution, err, "unmap staging buffer")
	}
	return out, nil
}
