// Package record implements a headless gfx.Device that validates and
// records every call. Sample tests run against it, and the -headless mode
// of the sample binaries uses it to run without a GPU.
package record

import (
	"fmt"
	"log"

	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/samples/gfx"
)

type Op int

const (
	OpMakeBuffer Op = iota
	OpMakeImage
	OpUpdateImage
	OpMakeShader
	OpMakePipeline
	OpBeginPass
	OpApplyDrawState
	OpApplyUniforms
	OpDraw
	OpEndPass
	OpCommitFrame
	OpShutdown
)

var opNames = [...]string{
	OpMakeBuffer:     "MakeBuffer",
	OpMakeImage:      "MakeImage",
	OpUpdateImage:    "UpdateImage",
	OpMakeShader:     "MakeShader",
	OpMakePipeline:   "MakePipeline",
	OpBeginPass:      "BeginPass",
	OpApplyDrawState: "ApplyDrawState",
	OpApplyUniforms:  "ApplyUniforms",
	OpDraw:           "Draw",
	OpEndPass:        "EndPass",
	OpCommitFrame:    "CommitFrame",
	OpShutdown:       "Shutdown",
}

func (o Op) String() string {
	if o >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Call is one recorded facade call. Only the fields relevant to Op are set.
type Call struct {
	Op    Op
	Frame int
	// Label of the created or bound resource.
	Label string

	Action    gfx.PassAction
	DrawState gfx.DrawState

	Stage    gfx.ShaderStage
	Slot     int
	Uniforms any
	Data     []byte

	Base      int
	Count     int
	Instances int
}

func (c Call) String() string {
	switch c.Op {
	case OpApplyUniforms:
		return fmt.Sprintf("%d:%s(%s, %d, %d bytes)", c.Frame, c.Op, c.Stage, c.Slot, len(c.Data))
	case OpDraw:
		return fmt.Sprintf("%d:%s(%d, %d, %d)", c.Frame, c.Op, c.Base, c.Count, c.Instances)
	case OpApplyDrawState:
		return fmt.Sprintf("%d:%s(%s)", c.Frame, c.Op, c.Label)
	}
	if c.Label != "" {
		return fmt.Sprintf("%d:%s(%s)", c.Frame, c.Op, c.Label)
	}
	return fmt.Sprintf("%d:%s", c.Frame, c.Op)
}

type Options struct {
	// Features reported as supported. Nil means every feature.
	Features []gfx.Feature
	// QuitAfter makes QuitRequested true once this many frames were
	// committed. Zero never requests a quit on its own.
	QuitAfter int
	// Logger traces every call when set.
	Logger *log.Logger
}

type pipelineRecord struct {
	desc   gfx.PipelineDesc
	shader gfx.ShaderDesc
}

type Device struct {
	opts  Options
	setup gfx.Setup
	open  bool

	buffers   gfx.Pool[gfx.BufferDesc]
	images    gfx.Pool[gfx.ImageDesc]
	shaders   gfx.Pool[gfx.ShaderDesc]
	pipelines gfx.Pool[pipelineRecord]

	// framebuffer size after Resize, zero until then.
	fbWidth, fbHeight int

	tracker  gfx.Tracker
	current  pipelineRecord
	frame    int
	quit     bool
	shutdown bool
	calls    []Call
}

func New(opts Options) *Device {
	return &Device{opts: opts}
}

// Open is a gfx.OpenFunc that records the setup and hands out the device.
// A device can only be opened once.
func (d *Device) Open(setup gfx.Setup) (gfx.Device, error) {
	if d.open {
		return nil, errors.New("record: device already opened")
	}
	if setup.SampleCount < 1 {
		setup.SampleCount = 1
	}
	d.open = true
	d.setup = setup
	d.logf("open %dx%d %q msaa=%d", setup.Width, setup.Height, setup.Title, setup.SampleCount)
	return d, nil
}

func (d *Device) logf(format string, args ...any) {
	if d.opts.Logger != nil {
		d.opts.Logger.Printf("record: "+format, args...)
	}
}

func (d *Device) record(call Call) {
	call.Frame = d.frame
	d.calls = append(d.calls, call)
	d.logf("%s", call)
}

func (d *Device) Setup() gfx.Setup {
	return d.setup
}

func (d *Device) Opened() bool {
	return d.open
}

func (d *Device) IsShutdown() bool {
	return d.shutdown
}

// Frames committed so far.
func (d *Device) Frames() int {
	return d.frame
}

func (d *Device) RequestQuit() {
	d.quit = true
}

// Resize changes the framebuffer size DisplayAttrs reports, the way a window
// resize does. Setup keeps the size the device was opened with.
func (d *Device) Resize(width, height int) {
	d.fbWidth, d.fbHeight = width, height
	d.logf("resize %dx%d", width, height)
}

func (d *Device) Calls() []Call {
	return d.calls
}

// FrameCalls returns the calls recorded while frame was being built,
// including its CommitFrame.
func (d *Device) FrameCalls(frame int) []Call {
	var calls []Call
	for _, call := range d.calls {
		if call.Frame == frame {
			calls = append(calls, call)
		}
	}
	return calls
}

// Pass is the run of calls between a BeginPass and its EndPass.
type Pass struct {
	Frame  int
	Action gfx.PassAction
	Calls  []Call
}

// Draws returns the pass' draw calls.
func (p Pass) Draws() []Call {
	return p.filter(OpDraw)
}

func (p Pass) DrawStates() []Call {
	return p.filter(OpApplyDrawState)
}

func (p Pass) filter(op Op) []Call {
	var calls []Call
	for _, call := range p.Calls {
		if call.Op == op {
			calls = append(calls, call)
		}
	}
	return calls
}

func (d *Device) Passes() []Pass {
	var passes []Pass
	var current *Pass
	for _, call := range d.calls {
		switch call.Op {
		case OpBeginPass:
			passes = append(passes, Pass{Frame: call.Frame, Action: call.Action})
			current = &passes[len(passes)-1]
		case OpEndPass:
			current = nil
		default:
			if current != nil {
				current.Calls = append(current.Calls, call)
			}
		}
	}
	return passes
}

func (d *Device) BufferDesc(buf gfx.Buffer) (gfx.BufferDesc, bool) {
	return d.buffers.Lookup(gfx.ID(buf))
}

func (d *Device) ImageDesc(img gfx.Image) (gfx.ImageDesc, bool) {
	return d.images.Lookup(gfx.ID(img))
}

func (d *Device) ShaderDesc(shd gfx.Shader) (gfx.ShaderDesc, bool) {
	return d.shaders.Lookup(gfx.ID(shd))
}

func (d *Device) PipelineDesc(pip gfx.Pipeline) (gfx.PipelineDesc, bool) {
	rec, ok := d.pipelines.Lookup(gfx.ID(pip))
	return rec.desc, ok
}

func (d *Device) QueryFeature(f gfx.Feature) bool {
	if d.opts.Features == nil {
		return true
	}
	for _, supported := range d.opts.Features {
		if supported == f {
			return true
		}
	}
	return false
}

func (d *Device) DisplayAttrs() gfx.DisplayAttrs {
	attrs := gfx.DisplayAttrs{
		FramebufferWidth:  d.setup.Width,
		FramebufferHeight: d.setup.Height,
		SampleCount:       d.setup.SampleCount,
		WindowTitle:       d.setup.Title,
	}
	if d.fbWidth > 0 && d.fbHeight > 0 {
		attrs.FramebufferWidth = d.fbWidth
		attrs.FramebufferHeight = d.fbHeight
	}
	return attrs
}

func (d *Device) QuitRequested() bool {
	return d.quit || (d.opts.QuitAfter > 0 && d.frame >= d.opts.QuitAfter)
}

func (d *Device) alive() error {
	if !d.open {
		return errors.New("record: device not opened")
	}
	if d.shutdown {
		return gfx.ErrShutdown
	}
	return nil
}

func (d *Device) MakeBuffer(desc gfx.BufferDesc) (gfx.Buffer, error) {
	if err := d.alive(); err != nil {
		return 0, err
	}
	if desc.Size == 0 {
		desc.Size = len(desc.Content)
	}
	if desc.Size <= 0 {
		return 0, errors.Newf("record: buffer %q has no size", desc.Label)
	}
	if len(desc.Content) > desc.Size {
		return 0, errors.Newf("record: buffer %q content %d bytes exceeds size %d", desc.Label, len(desc.Content), desc.Size)
	}

	id, err := d.buffers.Alloc(desc)
	if err != nil {
		return 0, err
	}
	d.record(Call{Op: OpMakeBuffer, Label: desc.Label})
	return gfx.Buffer(id), nil
}

func (d *Device) MakeImage(desc gfx.ImageDesc) (gfx.Image, error) {
	if err := d.alive(); err != nil {
		return 0, err
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return 0, errors.Newf("record: image %q has invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	if desc.Type == gfx.ImageArray && !d.QueryFeature(gfx.FeatureTextureArray) {
		return 0, errors.Wrapf(gfx.ErrUnsupported, "record: image %q is an array texture", desc.Label)
	}
	if desc.Content != nil && len(desc.Content) != desc.ByteSize() {
		return 0, errors.Newf("record: image %q content is %d bytes, want %d", desc.Label, len(desc.Content), desc.ByteSize())
	}

	id, err := d.images.Alloc(desc)
	if err != nil {
		return 0, err
	}
	d.record(Call{Op: OpMakeImage, Label: desc.Label})
	return gfx.Image(id), nil
}

func (d *Device) UpdateImage(img gfx.Image, content []byte) error {
	if err := d.alive(); err != nil {
		return err
	}
	desc, ok := d.images.Lookup(gfx.ID(img))
	if !ok {
		return gfx.ErrInvalidHandle
	}
	if !desc.Dynamic {
		return errors.Newf("record: image %q is not dynamic", desc.Label)
	}
	if len(content) != desc.ByteSize() {
		return errors.Newf("record: image %q update is %d bytes, want %d", desc.Label, len(content), desc.ByteSize())
	}

	desc.Content = append([]byte(nil), content...)
	d.images.Replace(gfx.ID(img), desc)
	d.record(Call{Op: OpUpdateImage, Label: desc.Label, Data: desc.Content})
	return nil
}

func (d *Device) MakeShader(desc gfx.ShaderDesc) (gfx.Shader, error) {
	if err := d.alive(); err != nil {
		return 0, err
	}
	if desc.Name == "" {
		return 0, errors.New("record: shader without name")
	}
	for i, block := range desc.UniformBlocks {
		if block.Size <= 0 {
			return 0, errors.Newf("record: shader %q uniform block %d has no size", desc.Name, i)
		}
	}

	id, err := d.shaders.Alloc(desc)
	if err != nil {
		return 0, err
	}
	d.record(Call{Op: OpMakeShader, Label: desc.Name})
	return gfx.Shader(id), nil
}

func (d *Device) MakePipeline(desc gfx.PipelineDesc) (gfx.Pipeline, error) {
	if err := d.alive(); err != nil {
		return 0, err
	}
	shader, ok := d.shaders.Lookup(gfx.ID(desc.Shader))
	if !ok {
		return 0, errors.Wrapf(gfx.ErrInvalidHandle, "record: pipeline %q shader", desc.Label)
	}
	if desc.Layout.Empty() {
		return 0, errors.Newf("record: pipeline %q has no vertex layout", desc.Label)
	}
	if desc.SampleCount == 0 {
		desc.SampleCount = d.setup.SampleCount
	}
	if desc.SampleCount != d.setup.SampleCount {
		return 0, errors.Newf("record: pipeline %q sample count %d does not match display %d", desc.Label, desc.SampleCount, d.setup.SampleCount)
	}

	id, err := d.pipelines.Alloc(pipelineRecord{desc: desc, shader: shader})
	if err != nil {
		return 0, err
	}
	d.record(Call{Op: OpMakePipeline, Label: desc.Label})
	return gfx.Pipeline(id), nil
}

func (d *Device) BeginPass(action gfx.PassAction) {
	if err := d.alive(); err != nil {
		d.tracker.Fail(err)
		return
	}
	if !d.tracker.BeginPass() {
		return
	}
	d.record(Call{Op: OpBeginPass, Action: action})
}

func (d *Device) ApplyDrawState(ds gfx.DrawState) {
	if !d.tracker.InPass() {
		return
	}

	rec, ok := d.pipelines.Lookup(gfx.ID(ds.Pipeline))
	if !ok {
		d.tracker.SetDrawState(false)
		d.tracker.Fail(errors.Wrap(gfx.ErrInvalidHandle, "record: draw state pipeline"))
		return
	}
	if err := d.checkDrawState(rec, ds); err != nil {
		d.tracker.SetDrawState(false)
		d.tracker.Fail(err)
		return
	}

	d.current = rec
	d.tracker.SetDrawState(true)
	ds.Images = append([]gfx.Image(nil), ds.Images...)
	d.record(Call{Op: OpApplyDrawState, Label: rec.desc.Label, DrawState: ds})
}

func (d *Device) checkDrawState(rec pipelineRecord, ds gfx.DrawState) error {
	vb, ok := d.buffers.Lookup(gfx.ID(ds.VertexBuffer))
	if !ok || vb.Type != gfx.VertexBuffer {
		return errors.Wrapf(gfx.ErrInvalidHandle, "record: pipeline %q vertex buffer", rec.desc.Label)
	}
	if rec.desc.IndexType != gfx.IndexNone {
		ib, ok := d.buffers.Lookup(gfx.ID(ds.IndexBuffer))
		if !ok || ib.Type != gfx.IndexBuffer {
			return errors.Wrapf(gfx.ErrInvalidHandle, "record: pipeline %q index buffer", rec.desc.Label)
		}
	}
	if len(ds.Images) != len(rec.shader.Images) {
		return errors.Newf("record: pipeline %q expects %d images, got %d", rec.desc.Label, len(rec.shader.Images), len(ds.Images))
	}
	for i, img := range ds.Images {
		desc, ok := d.images.Lookup(gfx.ID(img))
		if !ok {
			return errors.Wrapf(gfx.ErrInvalidHandle, "record: pipeline %q image %d", rec.desc.Label, i)
		}
		if desc.Type != rec.shader.Images[i].Type {
			return errors.Newf("record: pipeline %q image %d is %s, shader wants %s", rec.desc.Label, i, desc.Type, rec.shader.Images[i].Type)
		}
	}
	return nil
}

func (d *Device) ApplyUniforms(stage gfx.ShaderStage, slot int, block any) {
	data, err := gfx.EncodeUniforms(block)
	if err != nil {
		d.tracker.Fail(err)
		return
	}
	if _, ok := d.tracker.CheckUniforms(d.current.shader, stage, slot, len(data)); !ok {
		return
	}
	d.record(Call{Op: OpApplyUniforms, Label: d.current.desc.Label, Stage: stage, Slot: slot, Uniforms: block, Data: data})
}

func (d *Device) Draw(base, count, instances int) {
	if !d.tracker.HasDrawState() {
		return
	}
	if base < 0 || count < 0 || instances < 0 {
		d.tracker.Fail(errors.Newf("record: invalid draw range base=%d count=%d instances=%d", base, count, instances))
		return
	}
	d.record(Call{Op: OpDraw, Label: d.current.desc.Label, Base: base, Count: count, Instances: instances})
}

func (d *Device) EndPass() {
	if !d.tracker.EndPass() {
		return
	}
	d.current = pipelineRecord{}
	d.record(Call{Op: OpEndPass})
}

func (d *Device) CommitFrame() error {
	if err := d.alive(); err != nil {
		return err
	}
	err := d.tracker.Commit()
	d.current = pipelineRecord{}
	d.record(Call{Op: OpCommitFrame})
	d.frame++
	return err
}

func (d *Device) Shutdown() error {
	if err := d.alive(); err != nil {
		return err
	}
	d.shutdown = true
	d.record(Call{Op: OpShutdown})
	return nil
}
