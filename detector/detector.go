// Package detector reports what the acquired adapter can do for compute dispatches.
package detector

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openfluke/webgpu/wgpu"
	"github.com/pkg/errors"

	"github.com/openfluke/wgcompute/gpu"
)

// BudgetEnv overrides the staging budget in the report, in MiB.
const BudgetEnv = "WGCOMPUTE_BUDGET_MB"

// Report is a portable summary of the current adapter/device caps.
type Report struct {
	WhenISO     string            `json:"when_iso"`
	Backend     string            `json:"backend"`
	AdapterType string            `json:"adapter_type"`
	VendorID    string            `json:"vendor_id_hex"`
	DeviceID    string            `json:"device_id_hex"`
	Name        string            `json:"name"`
	Vendor      string            `json:"vendor"`
	Driver      string            `json:"driver"`
	Recommended Recommendations   `json:"recommended"`
	Limits      Limits            `json:"limits"`
	Features    []string          `json:"features"`
	Env         map[string]string `json:"env,omitempty"`
}

type Limits struct {
	MaxComputeInvocationsPerWorkgroup uint32 `json:"max_compute_invocations_per_workgroup"`
	MaxComputeWorkgroupSizeX          uint32 `json:"max_compute_workgroup_size_x"`
	MaxComputeWorkgroupSizeY          uint32 `json:"max_compute_workgroup_size_y"`
	MaxComputeWorkgroupSizeZ          uint32 `json:"max_compute_workgroup_size_z"`
	MaxComputeWorkgroupsPerDimension  uint32 `json:"max_compute_workgroups_per_dimension"`
	MaxComputeWorkgroupStorageSize    uint32 `json:"max_compute_workgroup_storage_size"`
	MaxStorageBuffersPerShaderStage   uint32 `json:"max_storage_buffers_per_shader_stage"`
	MaxStorageBufferBindingSize       uint64 `json:"max_storage_buffer_binding_size"`
	MaxUniformBufferBindingSize       uint64 `json:"max_uniform_buffer_binding_size"`
	MaxBufferSize                     uint64 `json:"max_buffer_size"`
}

type Recommendations struct {
	// Conservative 1D workgroup that should run everywhere.
	WorkgroupX uint32 `json:"workgroup_x"`
	WorkgroupY uint32 `json:"workgroup_y"`
	WorkgroupZ uint32 `json:"workgroup_z"`

	// Square 2D workgroup for matrix kernels.
	TileX uint32 `json:"tile_x"`
	TileY uint32 `json:"tile_y"`

	// Soft budget in bytes for the buffers of one dispatch.
	BudgetBytes uint64 `json:"budget_bytes"`
}

// Detect builds a report for the adapter c was acquired on.
func Detect(c *gpu.Context) (*Report, error) {
	if c == nil || c.Adapter == nil {
		return nil, errors.New("detector: context has no adapter")
	}
	info := c.Adapter.GetInfo()

	var feats []string
	for _, f := range c.Adapter.EnumerateFeatures() {
		feats = append(feats, f.String())
	}
	sort.Strings(feats)

	l := c.Limits.Limits
	wgX, wgY, wgZ := chooseWorkgroup(c.Limits)
	tileX, tileY := chooseTile(c.Limits)

	return &Report{
		WhenISO:     time.Now().UTC().Format(time.RFC3339),
		Backend:     info.BackendType.String(),
		AdapterType: info.AdapterType.String(),
		VendorID:    fmt.Sprintf("0x%04x", info.VendorId),
		DeviceID:    fmt.Sprintf("0x%04x", info.DeviceId),
		Name:        strings.TrimSpace(info.Name),
		Vendor:      c.Vendor,
		Driver:      strings.TrimSpace(info.DriverDescription),
		Limits: Limits{
			MaxComputeInvocationsPerWorkgroup: l.MaxComputeInvocationsPerWorkgroup,
			MaxComputeWorkgroupSizeX:          l.MaxComputeWorkgroupSizeX,
			MaxComputeWorkgroupSizeY:          l.MaxComputeWorkgroupSizeY,
			MaxComputeWorkgroupSizeZ:          l.MaxComputeWorkgroupSizeZ,
			MaxComputeWorkgroupsPerDimension:  l.MaxComputeWorkgroupsPerDimension,
			MaxComputeWorkgroupStorageSize:    l.MaxComputeWorkgroupStorageSize,
			MaxStorageBuffersPerShaderStage:   l.MaxStorageBuffersPerShaderStage,
			MaxStorageBufferBindingSize:       l.MaxStorageBufferBindingSize,
			MaxUniformBufferBindingSize:       l.MaxUniformBufferBindingSize,
			MaxBufferSize:                     l.MaxBufferSize,
		},
		Features: feats,
		Recommended: Recommendations{
			WorkgroupX: wgX, WorkgroupY: wgY, WorkgroupZ: wgZ,
			TileX: tileX, TileY: tileY,
			BudgetBytes: budget(l.MaxBufferSize),
		},
		Env: pickEnv([]string{BudgetEnv}),
	}, nil
}

// JSON returns the report as indented JSON.
func (r *Report) JSON() (string, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "detector: marshal report")
	}
	return string(b), nil
}

// Field is one labeled line of the text form of a report.
type Field struct {
	Label string
	Value string
}

// Fields returns the report as label/value pairs with sizes humanized.
func (r *Report) Fields() []Field {
	l := r.Limits
	return []Field{
		{"Adapter", r.Name},
		{"Vendor", fmt.Sprintf("%s (%s)", r.Vendor, r.VendorID)},
		{"Device", r.DeviceID},
		{"Type", r.AdapterType},
		{"Backend", r.Backend},
		{"Driver", r.Driver},
		{"Workgroup size", fmt.Sprintf("%d x %d x %d", l.MaxComputeWorkgroupSizeX, l.MaxComputeWorkgroupSizeY, l.MaxComputeWorkgroupSizeZ)},
		{"Invocations/workgroup", humanize.Comma(int64(l.MaxComputeInvocationsPerWorkgroup))},
		{"Workgroups/dimension", humanize.Comma(int64(l.MaxComputeWorkgroupsPerDimension))},
		{"Workgroup storage", humanize.IBytes(uint64(l.MaxComputeWorkgroupStorageSize))},
		{"Storage buffers/stage", strconv.FormatUint(uint64(l.MaxStorageBuffersPerShaderStage), 10)},
		{"Storage binding", humanize.IBytes(l.MaxStorageBufferBindingSize)},
		{"Uniform binding", humanize.IBytes(l.MaxUniformBufferBindingSize)},
		{"Max buffer", humanize.IBytes(l.MaxBufferSize)},
		{"Recommended workgroup", fmt.Sprintf("%d x %d x %d", r.Recommended.WorkgroupX, r.Recommended.WorkgroupY, r.Recommended.WorkgroupZ)},
		{"Recommended tile", fmt.Sprintf("%d x %d", r.Recommended.TileX, r.Recommended.TileY)},
		{"Dispatch budget", humanize.IBytes(r.Recommended.BudgetBytes)},
		{"Features", strconv.Itoa(len(r.Features))},
	}
}

func chooseWorkgroup(l wgpu.SupportedLimits) (uint32, uint32, uint32) {
	maxX := l.Limits.MaxComputeWorkgroupSizeX
	maxTot := l.Limits.MaxComputeInvocationsPerWorkgroup

	candidates := []uint32{256, 128, 64, 32, 16, 8, 4, 1}
	for _, c := range candidates {
		if c <= maxX && c <= maxTot {
			return c, 1, 1
		}
	}
	return 1, 1, 1
}

// chooseTile picks the largest square power-of-two workgroup the limits allow.
func chooseTile(l wgpu.SupportedLimits) (uint32, uint32) {
	maxX, maxY := l.Limits.MaxComputeWorkgroupSizeX, l.Limits.MaxComputeWorkgroupSizeY
	maxTot := l.Limits.MaxComputeInvocationsPerWorkgroup
	for _, t := range []uint32{16, 8, 4, 2} {
		if t <= maxX && t <= maxY && t*t <= maxTot {
			return t, t
		}
	}
	return 1, 1
}

// budget is the env override, else a quarter of the largest buffer capped at 256 MiB.
func budget(maxBuffer uint64) uint64 {
	if mbStr := os.Getenv(BudgetEnv); mbStr != "" {
		if mb, err := strconv.Atoi(mbStr); err == nil && mb > 0 {
			return uint64(mb) * humanize.MiByte
		}
	}
	b := uint64(256 * humanize.MiByte)
	if q := maxBuffer / 4; q > 0 && q < b {
		b = q
	}
	return b
}

func pickEnv(keys []string) map[string]string {
	out := map[string]string{}
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
