package artifact

import (
	"fmt"

	"github.com/wippyai/weaver/artifact/internal/binary"
	"github.com/wippyai/weaver/errors"
	"github.com/wippyai/weaver/ir"
)

const (
	flagStatic byte = 1 << iota
	flagHidden
)

// maxTypeDepth bounds nested seq/future element types.
const maxTypeDepth = 32

func encodeMethods(methods []*ir.Method) ([]byte, error) {
	w := binary.NewWriter()
	w.WriteU32(uint32(len(methods)))
	for _, m := range methods {
		if err := encodeMethod(w, m); err != nil {
			return nil, errors.New(errors.PhaseEncode, errors.KindInvalidData).
				Method(m.Name).Cause(err).Detail("encode method").Build()
		}
	}
	return w.Bytes(), nil
}

func encodeMethod(w *binary.Writer, m *ir.Method) error {
	w.WriteName(m.Name)
	var flags byte
	if m.Static {
		flags |= flagStatic
	}
	if m.Hidden {
		flags |= flagHidden
	}
	w.Byte(flags)

	w.WriteU32(uint32(len(m.Params)))
	for _, p := range m.Params {
		w.WriteName(p.Name)
		encodeType(w, p.Type)
		w.Byte(byte(p.Mode))
	}
	encodeType(w, m.Return)

	w.WriteU32(uint32(len(m.Locals)))
	for _, t := range m.Locals {
		encodeType(w, t)
	}

	w.WriteU32(uint32(len(m.Aspects)))
	for _, a := range m.Aspects {
		w.WriteName(a)
	}

	w.WriteU32(uint32(len(m.Blocks)))
	for bi, b := range m.Blocks {
		w.WriteU32(uint32(len(b.Instrs)))
		for ii, in := range b.Instrs {
			if err := encodeInstr(w, in); err != nil {
				return fmt.Errorf("block %d instr %d: %w", bi, ii, err)
			}
		}
	}

	w.WriteU32(uint32(len(m.Regions)))
	for _, r := range m.Regions {
		encodeRange(w, r.Try)
		w.WriteU32(uint32(len(r.Catches)))
		for _, c := range r.Catches {
			w.WriteName(c.Type)
			encodeRange(w, c.Handler)
		}
		w.Bool(r.Finally != nil)
		if r.Finally != nil {
			encodeRange(w, *r.Finally)
		}
	}
	return nil
}

func encodeType(w *binary.Writer, t ir.Type) {
	w.Byte(byte(t.Kind))
	if t.Kind == ir.Sequence || t.Kind == ir.Future {
		w.Bool(t.Elem != nil)
		if t.Elem != nil {
			encodeType(w, *t.Elem)
		}
	}
}

func encodeRange(w *binary.Writer, r ir.BlockRange) {
	w.WriteU32(r.Start)
	w.WriteU32(r.End)
}

func encodeInstr(w *binary.Writer, in ir.Instruction) error {
	w.Byte(byte(in.Op))
	switch imm := in.Imm.(type) {
	case nil:
	case ir.ConstImm:
		data, err := MarshalValue(imm.Value)
		if err != nil {
			return err
		}
		w.WriteBlob(data)
	case ir.LocalImm:
		w.WriteU32(imm.Index)
	case ir.ParamImm:
		w.WriteU32(imm.Index)
	case ir.CountImm:
		w.WriteU32(imm.N)
	case ir.CallImm:
		w.WriteName(imm.Method)
		w.WriteU32(imm.Argc)
	case ir.BranchImm:
		w.WriteU32(imm.Target)
	case ir.CondBranchImm:
		w.WriteU32(imm.Then)
		w.WriteU32(imm.Else)
	case ir.NewExceptionImm:
		w.WriteName(imm.Type)
	case ir.SuspendImm:
		w.Byte(byte(imm.Kind))
	case ir.ContextImm:
		w.WriteU32(imm.Local)
		w.Bool(imm.Interception)
	case ir.AdviceImm:
		w.WriteU32(imm.Local)
		w.WriteU32(imm.Aspect)
		w.Byte(byte(imm.Hook))
	case ir.InterceptImm:
		w.WriteName(imm.Target)
		w.WriteU32(imm.Local)
		w.WriteU32(imm.Aspect)
		w.Bool(imm.Async)
	default:
		return fmt.Errorf("%s: unsupported immediate %T", in.Op, in.Imm)
	}
	return nil
}

func decodeMethods(payload []byte) ([]*ir.Method, error) {
	r := binary.NewReader(payload)
	n, err := r.ReadLen()
	if err != nil {
		return nil, decodeErr(r.WrapError("methods", err), "read method count")
	}
	methods := make([]*ir.Method, 0, n)
	for i := 0; i < n; i++ {
		m, err := decodeMethod(r)
		if err != nil {
			return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
				Path(fmt.Sprintf("method %d", i)).Cause(err).Detail("decode method").Build()
		}
		methods = append(methods, m)
	}
	if r.Len() != 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, []string{"methods"},
			fmt.Sprintf("%d trailing bytes", r.Len()))
	}
	return methods, nil
}

// decoder reads one method and remembers the first error.
type decoder struct {
	r   *binary.Reader
	err error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = d.r.WrapError("methods", err)
	}
}

func (d *decoder) u32() uint32 {
	if d.err != nil {
		return 0
	}
	v, err := d.r.ReadU32()
	if err != nil {
		d.fail(err)
	}
	return v
}

func (d *decoder) count() int {
	if d.err != nil {
		return 0
	}
	n, err := d.r.ReadLen()
	if err != nil {
		d.fail(err)
	}
	return n
}

func (d *decoder) u8() byte {
	if d.err != nil {
		return 0
	}
	b, err := d.r.ReadByte()
	if err != nil {
		d.fail(err)
	}
	return b
}

func (d *decoder) flag() bool {
	if d.err != nil {
		return false
	}
	b, err := d.r.ReadBool()
	if err != nil {
		d.fail(err)
	}
	return b
}

func (d *decoder) name() string {
	if d.err != nil {
		return ""
	}
	s, err := d.r.ReadName()
	if err != nil {
		d.fail(err)
	}
	return s
}

func (d *decoder) blob() []byte {
	n := d.count()
	if d.err != nil {
		return nil
	}
	b, err := d.r.ReadBytes(n)
	if err != nil {
		d.fail(err)
	}
	return b
}

func (d *decoder) typ(depth int) ir.Type {
	if depth > maxTypeDepth {
		d.fail(fmt.Errorf("type nesting deeper than %d", maxTypeDepth))
		return ir.Type{}
	}
	t := ir.Type{Kind: ir.TypeKind(d.u8())}
	if t.Kind > ir.Future {
		d.fail(fmt.Errorf("unknown type kind %d", t.Kind))
		return t
	}
	if (t.Kind == ir.Sequence || t.Kind == ir.Future) && d.flag() {
		elem := d.typ(depth + 1)
		t.Elem = &elem
	}
	return t
}

func (d *decoder) rng() ir.BlockRange {
	start := d.u32()
	end := d.u32()
	return ir.Range(start, end)
}

func decodeMethod(r *binary.Reader) (*ir.Method, error) {
	d := &decoder{r: r}
	m := &ir.Method{Name: d.name()}
	flags := d.u8()
	m.Static = flags&flagStatic != 0
	m.Hidden = flags&flagHidden != 0

	for i, n := 0, d.count(); i < n && d.err == nil; i++ {
		p := ir.Param{Name: d.name(), Type: d.typ(0)}
		p.Mode = ir.PassingMode(d.u8())
		m.Params = append(m.Params, p)
	}
	m.Return = d.typ(0)

	for i, n := 0, d.count(); i < n && d.err == nil; i++ {
		m.Locals = append(m.Locals, d.typ(0))
	}
	for i, n := 0, d.count(); i < n && d.err == nil; i++ {
		m.Aspects = append(m.Aspects, d.name())
	}

	for i, n := 0, d.count(); i < n && d.err == nil; i++ {
		var b ir.Block
		for j, k := 0, d.count(); j < k && d.err == nil; j++ {
			b.Instrs = append(b.Instrs, d.instr())
		}
		m.Blocks = append(m.Blocks, b)
	}

	for i, n := 0, d.count(); i < n && d.err == nil; i++ {
		reg := ir.ExceptionRegion{Try: d.rng()}
		for j, k := 0, d.count(); j < k && d.err == nil; j++ {
			reg.Catches = append(reg.Catches, ir.CatchClause{Type: d.name(), Handler: d.rng()})
		}
		if d.flag() {
			f := d.rng()
			reg.Finally = &f
		}
		m.Regions = append(m.Regions, reg)
	}

	if d.err != nil {
		return nil, d.err
	}
	return m, nil
}

func (d *decoder) instr() ir.Instruction {
	in := ir.Instruction{Op: ir.Op(d.u8())}
	if d.err != nil {
		return in
	}
	if !in.Op.Known() {
		d.fail(fmt.Errorf("unknown opcode 0x%02x", byte(in.Op)))
		return in
	}

	switch in.Op {
	case ir.OpConst:
		data := d.blob()
		if d.err != nil {
			return in
		}
		v, err := UnmarshalValue(data)
		if err != nil {
			d.fail(err)
		}
		in.Imm = ir.ConstImm{Value: v}
	case ir.OpLoadLocal, ir.OpStoreLocal, ir.OpLocalRef,
		ir.OpArgsApply, ir.OpArgsSync, ir.OpArgsWriteBack, ir.OpSetReturn, ir.OpLoadReturn,
		ir.OpSetException, ir.OpRethrowIfSet, ir.OpSetYield, ir.OpLoadYield:
		in.Imm = ir.LocalImm{Index: d.u32()}
	case ir.OpLoadParam, ir.OpStoreParam, ir.OpParamRef:
		in.Imm = ir.ParamImm{Index: d.u32()}
	case ir.OpMakeSeq:
		in.Imm = ir.CountImm{N: d.u32()}
	case ir.OpCall:
		in.Imm = ir.CallImm{Method: d.name(), Argc: d.u32()}
	case ir.OpBr, ir.OpLeave:
		in.Imm = ir.BranchImm{Target: d.u32()}
	case ir.OpBrIf:
		in.Imm = ir.CondBranchImm{Then: d.u32(), Else: d.u32()}
	case ir.OpNewException:
		in.Imm = ir.NewExceptionImm{Type: d.name()}
	case ir.OpSuspend:
		in.Imm = ir.SuspendImm{Kind: ir.SuspendKind(d.u8())}
	case ir.OpContextNew:
		in.Imm = ir.ContextImm{Local: d.u32(), Interception: d.flag()}
	case ir.OpAdvice:
		in.Imm = ir.AdviceImm{Local: d.u32(), Aspect: d.u32(), Hook: ir.Hook(d.u8())}
	case ir.OpIntercept:
		in.Imm = ir.InterceptImm{Target: d.name(), Local: d.u32(), Aspect: d.u32(), Async: d.flag()}
	}
	return in
}
