package render

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// quadShaderWGSL samples the glyph texture and multiplies it by the tint.
// Tint alpha carries the opacity; background fills where coverage is zero.
const quadShaderWGSL = `
struct Uniforms {
    transform: vec4<f32>,
    tint: vec4<f32>,
    background: vec4<f32>,
}

@group(0) @binding(0) var<uniform> uniforms: Uniforms;
@group(0) @binding(1) var glyph_texture: texture_2d<f32>;
@group(0) @binding(2) var glyph_sampler: sampler;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) texcoord: vec2<f32>,
}

@vertex
fn vs_main(@location(0) position: vec2<f32>, @location(1) texcoord: vec2<f32>) -> VertexOutput {
    var out: VertexOutput;
    let p = position * uniforms.transform.xy + uniforms.transform.zw;
    out.position = vec4<f32>(p, 0.0, 1.0);
    out.texcoord = texcoord;
    return out;
}

@fragment
fn fs_main(input: VertexOutput) -> @location(0) vec4<f32> {
    let texel = textureSample(glyph_texture, glyph_sampler, input.texcoord);
    let rgb = texel.rgb * uniforms.tint.rgb + uniforms.background.rgb * (1.0 - texel.r);
    return vec4<f32>(rgb, texel.a * uniforms.tint.a);
}
`

// Shader entry points
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)

// ShaderError reports a failed program compilation
type ShaderError struct {
	Stage string
	Log   string
	Err   error
}

func (e *ShaderError) Error() string {
	if e.Log != "" {
		return fmt.Sprintf("render: %s shader compilation failed: %s", e.Stage, e.Log)
	}
	return fmt.Sprintf("render: %s shader compilation failed", e.Stage)
}

func (e *ShaderError) Unwrap() error { return e.Err }

// compileFunc is swapped in tests
var compileFunc = func(source string) ([]byte, error) {
	return naga.Compile(source)
}

// compileProgram compiles WGSL to SPIR-V words and returns the module
// descriptor devices receive
func compileProgram(label, source string) (*hal.ShaderModuleDescriptor, []uint32, error) {
	spirvBytes, err := compileFunc(source)
	if err != nil {
		return nil, nil, &ShaderError{Stage: "wgsl", Log: err.Error(), Err: err}
	}
	if len(spirvBytes)%4 != 0 {
		return nil, nil, &ShaderError{Stage: "spirv", Log: fmt.Sprintf("module size %d is not word aligned", len(spirvBytes))}
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	desc := &hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{WGSL: source, SPIRV: words},
	}
	return desc, words, nil
}
