package gpu

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/openfluke/webgpu/wgpu"
	"github.com/sirupsen/logrus"

	"github.com/openfluke/wgcompute/logging"
)

const (
	// DefaultTimeout bounds the read-back wait of a dispatch.
	DefaultTimeout = 5 * time.Second
	// DefaultPollInterval is the sleep between device polls while waiting.
	DefaultPollInterval = time.Millisecond
)

// Request is one dispatch: a program, its inputs, the output to read back and the grid.
type Request struct {
	Program Program
	Inputs  []Input
	Output  Output
	Grid    Grid
}

// Stats are running totals for a Dispatcher. BuffersAllocated equals BuffersReleased
// whenever no dispatch is in flight.
type Stats struct {
	Dispatches       uint64
	Failures         uint64
	BuffersAllocated uint64
	BuffersReleased  uint64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout sets how long a dispatch waits for its read-back.
func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.timeout = d
		}
	}
}

// WithPollInterval sets the sleep between device polls.
func WithPollInterval(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.pollEvery = d
		}
	}
}

// Dispatcher runs compute programs on one Context. It is safe for concurrent use;
// dispatches on the same Context are serialized.
type Dispatcher struct {
	ctx       *Context
	timeout   time.Duration
	pollEvery time.Duration

	dispatches atomic.Uint64
	failures   atomic.Uint64
	allocated  atomic.Uint64
	released   atomic.Uint64
}

// NewDispatcher returns a Dispatcher bound to c.
func NewDispatcher(c *Context, opts ...Option) *Dispatcher {
	d := &Dispatcher{ctx: c, timeout: DefaultTimeout, pollEvery: DefaultPollInterval}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Context returns the device context the dispatcher runs on.
func (d *Dispatcher) Context() *Context { return d.ctx }

// Stats returns a snapshot of the dispatcher's counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Dispatches:       d.dispatches.Load(),
		Failures:         d.failures.Load(),
		BuffersAllocated: d.allocated.Load(),
		BuffersReleased:  d.released.Load(),
	}
}

// Dispatch compiles req.Program, uploads the inputs, runs the grid and returns a host
// copy of the output buffer. Every device object it creates is released before it
// returns, whether it succeeds or not.
//
// Program and binding mistakes that can be seen in the program text are reported
// before anything is created on the device.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (out []byte, err error) {
	d.dispatches.Add(1)
	defer func() {
		if err != nil {
			d.failures.Add(1)
		}
	}()

	id := uuid.New()
	log := logging.Get().WithFields(logrus.Fields{
		"dispatch": id.String()[:8],
		"program":  req.Program.name(),
	})

	mod, ep, err := req.Program.reflect()
	if err != nil {
		return nil, err
	}
	plans, err := planBindings(mod, req.Inputs, req.Output)
	if err != nil {
		return nil, err
	}
	if d.ctx == nil {
		return nil, errorf(KindExecution, "dispatcher has no context")
	}
	grid := req.Grid.normalized()
	if err := grid.validate(d.ctx.MaxWorkgroupsPerDimension()); err != nil {
		return nil, err
	}
	if d.ctx.Device == nil || d.ctx.Queue == nil {
		return nil, errorf(KindExecution, "context has no device")
	}
	if err := ctx.Err(); err != nil {
		return nil, wrapf(KindExecution, err, "dispatch %s not started", req.Program.name())
	}

	d.ctx.mu.Lock()
	defer d.ctx.mu.Unlock()

	label := req.Program.name() + "_" + id.String()[:8]
	log.WithFields(logrus.Fields{
		"grid":      grid.String(),
		"workgroup": ep.WorkgroupSize,
		"bindings":  len(plans),
		"output":    humanize.Bytes(req.Output.Size),
	}).Debug("dispatch start")
	start := time.Now()

	pipe, err := d.ctx.compile(req.Program, label, plans)
	if err != nil {
		log.WithError(err).Debug("compile failed")
		return nil, err
	}
	defer pipe.release()

	res := &resources{d: d}
	defer res.release()

	var output *wgpu.Buffer
	entries := make([]wgpu.BindGroupEntry, len(plans))
	for i, p := range plans {
		var buf *wgpu.Buffer
		if p.data != nil {
			buf, err = d.ctx.newInitBuffer(label+"_In", p.data, p.usage)
		} else {
			buf, err = d.ctx.newBuffer(label+"_Out", p.size, p.usage)
		}
		if err != nil {
			return nil, wrapf(KindExecution, err, "allocate %s buffer at @binding(%d)", humanize.Bytes(p.size), p.slot)
		}
		res.add(buf)
		if p.output {
			output = buf
		}
		entries[i] = wgpu.BindGroupEntry{Binding: p.slot, Buffer: buf, Size: p.size}
	}

	staging, err := d.ctx.newBuffer(label+"_Staging", req.Output.Size, usageStaging)
	if err != nil {
		return nil, wrapf(KindExecution, err, "allocate staging buffer")
	}
	res.add(staging)

	group, err := d.ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label + "_Bind",
		Layout:  pipe.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, wrapf(KindBinding, err, "bind group for %q", req.Program.name())
	}
	defer group.Release()

	enc, err := d.ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, wrapf(KindExecution, err, "create command encoder")
	}
	defer enc.Release()

	pass := enc.BeginComputePass(nil)
	pass.SetPipeline(pipe.pipeline)
	pass.SetBindGroup(bindGroup, group, nil)
	pass.DispatchWorkgroups(grid.X, grid.Y, grid.Z)
	pass.End()
	pass.Release()

	enc.CopyBufferToBuffer(output, 0, staging, 0, req.Output.Size)
	cmd, err := enc.Finish(nil)
	if err != nil {
		return nil, wrapf(KindExecution, err, "command encoder finish")
	}
	defer cmd.Release()
	d.ctx.Queue.Submit(cmd)

	out, err = d.ctx.readStaging(ctx, staging, req.Output.Size, d.timeout, d.pollEvery)
	if err != nil {
		log.WithError(err).Debug("read-back failed")
		return nil, err
	}
	log.WithField("elapsed", time.Since(start)).Debug("dispatch done")
	return out, nil
}

// resources tracks the buffers of one dispatch and releases them in reverse order.
type resources struct {
	d       *Dispatcher
	buffers []*wgpu.Buffer
}

func (r *resources) add(b *wgpu.Buffer) {
	r.buffers = append(r.buffers, b)
	r.d.allocated.Add(1)
}

func (r *resources) release() {
	for i := len(r.buffers) - 1; i >= 0; i-- {
		b := r.buffers[i]
		b.Destroy()
		b.Release()
		r.d.released.Add(1)
	}
	r.buffers = nil
}
