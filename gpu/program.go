package gpu

import (
	"github.com/openfluke/webgpu/wgpu"

	"github.com/openfluke/wgcompute/wgsl"
)

// Program is WGSL source plus the compute entry point to run.
type Program struct {
	// Label names device objects created for the program; optional.
	Label      string
	Source     string
	EntryPoint string
}

// reflect parses the program text and checks the entry point exists and is a compute
// entry point. Nothing is created on the device.
func (p Program) reflect() (*wgsl.Module, wgsl.EntryPoint, error) {
	if p.EntryPoint == "" {
		return nil, wgsl.EntryPoint{}, errorf(KindCompile, "no entry point named")
	}
	mod, err := wgsl.Parse(p.Source)
	if err != nil {
		return nil, wgsl.EntryPoint{}, wrapf(KindCompile, err, "program %q", p.name())
	}
	ep, ok := mod.EntryPoint(p.EntryPoint)
	if !ok {
		return nil, ep, errorf(KindCompile, "program %q has no entry point %q", p.name(), p.EntryPoint)
	}
	if ep.Stage != wgsl.StageCompute {
		return nil, ep, errorf(KindCompile, "entry point %q is a %s entry point, not compute", p.EntryPoint, ep.Stage)
	}
	return mod, ep, nil
}

func (p Program) name() string {
	if p.Label != "" {
		return p.Label
	}
	return p.EntryPoint
}

// pipeline is a compiled program with the explicit layout for one binding set.
type pipeline struct {
	module   *wgpu.ShaderModule
	layout   *wgpu.BindGroupLayout
	pipeline *wgpu.ComputePipeline
}

// compile builds the shader module, bind group layout, pipeline layout and compute
// pipeline. Whatever was created is released on failure.
func (c *Context) compile(p Program, label string, plans []slotPlan) (*pipeline, error) {
	out := &pipeline{}
	var err error

	out.module, err = c.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label + "_Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: p.Source},
	})
	if err != nil {
		return nil, wrapf(KindCompile, err, "shader module %q", p.name())
	}

	// Explicit layout; "auto" layouts drop bindings the entry point never touches.
	out.layout, err = c.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label + "_BGL",
		Entries: layoutEntries(plans),
	})
	if err != nil {
		out.release()
		return nil, wrapf(KindCompile, err, "bind group layout for %q", p.name())
	}

	pipelineLayout, err := c.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label + "_Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{out.layout},
	})
	if err != nil {
		out.release()
		return nil, wrapf(KindCompile, err, "pipeline layout for %q", p.name())
	}
	defer pipelineLayout.Release()

	out.pipeline, err = c.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  label + "_Pipe",
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     out.module,
			EntryPoint: p.EntryPoint,
		},
	})
	if err != nil || out.pipeline == nil {
		out.release()
		if err == nil {
			return nil, errorf(KindCompile, "compute pipeline for %q was not created", p.name())
		}
		return nil, wrapf(KindCompile, err, "compute pipeline for %q", p.name())
	}
	return out, nil
}

func (p *pipeline) release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}
