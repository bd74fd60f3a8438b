package gpu

import (
	"strings"
	"sync"

	"github.com/openfluke/webgpu/wgpu"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/openfluke/wgcompute/logging"
)

// Power preferences accepted by Options.PowerPreference.
const (
	PowerHighPerformance = "high-performance"
	PowerLowPower        = "low-power"
)

// Options controls adapter selection.
type Options struct {
	// PowerPreference is PowerHighPerformance, PowerLowPower or empty for the default.
	PowerPreference string
	// Adapter, if set, is matched case-insensitively against adapter and vendor names
	// of all enumerated adapters before falling back to a power preference request.
	Adapter string
	// ForceFallback asks for the software fallback adapter.
	ForceFallback bool
}

// DefaultOptions prefers a high-performance adapter, like every example in this module.
func DefaultOptions() Options {
	return Options{PowerPreference: PowerHighPerformance}
}

// Context is a device/queue pair plus the adapter it came from. Sequential dispatches
// share one Context; concurrent ones are serialized on it.
type Context struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue

	Name        string
	Vendor      string
	Backend     string
	AdapterType string
	Limits      wgpu.SupportedLimits

	// mu serializes use of Queue from submission through read-back.
	mu sync.Mutex
}

var (
	defaultCtx  *Context
	defaultErr  error
	defaultOnce sync.Once
)

// Default returns the process-wide Context, acquiring it with DefaultOptions on first use.
func Default() (*Context, error) {
	defaultOnce.Do(func() {
		defaultCtx, defaultErr = Acquire(DefaultOptions())
	})
	return defaultCtx, defaultErr
}

// Acquire selects an adapter and creates a device and queue on it.
func Acquire(opts Options) (*Context, error) {
	log := logging.Get()

	inst := wgpu.CreateInstance(nil)
	if inst == nil {
		return nil, errorf(KindAdapterAcquisition, "failed to create WebGPU instance")
	}

	adapter, err := selectAdapter(inst, opts, log)
	if err != nil {
		inst.Release()
		return nil, err
	}

	c := &Context{Instance: inst, Adapter: adapter}
	info := adapter.GetInfo()
	c.Name = strings.TrimSpace(info.Name)
	c.Vendor = strings.TrimSpace(info.VendorName)
	c.Backend = info.BackendType.String()
	c.AdapterType = info.AdapterType.String()
	c.Limits = adapter.GetLimits()
	log.WithFields(logrus.Fields{
		"adapter": c.Name,
		"vendor":  c.Vendor,
		"backend": c.Backend,
	}).Info("using GPU adapter")

	c.Device, err = adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "wgcompute"})
	if err != nil || c.Device == nil {
		adapter.Release()
		inst.Release()
		if err == nil {
			err = errors.New("adapter returned no device")
		}
		return nil, wrapf(KindDeviceCreation, err, "request device on %q", c.Name)
	}
	c.Queue = c.Device.GetQueue()
	if c.Queue == nil {
		c.Device.Release()
		adapter.Release()
		inst.Release()
		return nil, errorf(KindDeviceCreation, "device on %q has no queue", c.Name)
	}
	return c, nil
}

func selectAdapter(inst *wgpu.Instance, opts Options, log *logrus.Logger) (*wgpu.Adapter, error) {
	if want := strings.ToLower(strings.TrimSpace(opts.Adapter)); want != "" {
		var chosen *wgpu.Adapter
		for _, a := range inst.EnumerateAdapters(nil) {
			info := a.GetInfo()
			log.Debugf("found adapter %s (vendor %s, device 0x%X, type %s)", info.Name, info.VendorName, info.DeviceId, info.AdapterType)
			if chosen == nil && (strings.Contains(strings.ToLower(info.Name), want) ||
				strings.Contains(strings.ToLower(info.VendorName), want)) {
				chosen = a
				continue
			}
			a.Release()
		}
		if chosen != nil {
			return chosen, nil
		}
		log.Warnf("no adapter matches %q, falling back to power preference", opts.Adapter)
	}

	attempts := []*wgpu.RequestAdapterOptions{}
	switch opts.PowerPreference {
	case PowerHighPerformance:
		attempts = append(attempts,
			&wgpu.RequestAdapterOptions{PowerPreference: wgpu.PowerPreferenceHighPerformance, ForceFallbackAdapter: opts.ForceFallback},
			&wgpu.RequestAdapterOptions{PowerPreference: wgpu.PowerPreferenceLowPower, ForceFallbackAdapter: opts.ForceFallback})
	case PowerLowPower:
		attempts = append(attempts,
			&wgpu.RequestAdapterOptions{PowerPreference: wgpu.PowerPreferenceLowPower, ForceFallbackAdapter: opts.ForceFallback})
	case "":
	default:
		return nil, errorf(KindAdapterAcquisition, "unknown power preference %q", opts.PowerPreference)
	}
	attempts = append(attempts, &wgpu.RequestAdapterOptions{ForceFallbackAdapter: opts.ForceFallback})

	var lastErr error
	for _, o := range attempts {
		a, err := inst.RequestAdapter(o)
		if err == nil && a != nil {
			return a, nil
		}
		if err == nil {
			err = errors.New("no adapter returned")
		}
		log.Debugf("adapter request (power %d) failed: %v", o.PowerPreference, err)
		lastErr = err
	}
	return nil, wrapf(KindAdapterAcquisition, lastErr, "all adapter attempts failed")
}

// Release frees the queue, device, adapter and instance.
func (c *Context) Release() {
	if c == nil {
		return
	}
	if c.Queue != nil {
		c.Queue.Release()
		c.Queue = nil
	}
	if c.Device != nil {
		c.Device.Release()
		c.Device = nil
	}
	if c.Adapter != nil {
		c.Adapter.Release()
		c.Adapter = nil
	}
	if c.Instance != nil {
		c.Instance.Release()
		c.Instance = nil
	}
}

// MaxWorkgroupsPerDimension reports the device limit, or 0 if unknown.
func (c *Context) MaxWorkgroupsPerDimension() uint32 {
	return c.Limits.Limits.MaxComputeWorkgroupsPerDimension
}
