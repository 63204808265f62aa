package classify

import (
	"testing"

	"github.com/wippyai/weaver/errors"
	"github.com/wippyai/weaver/ir"
	"github.com/wippyai/weaver/value"
)

func method(ret ir.Type, body ...ir.Instruction) *ir.Method {
	b := ir.NewBuilder("M").Returns(ret)
	b.Block(append(body, ir.Ret())...)
	return b.Method()
}

func TestClassify(t *testing.T) {
	none := ir.Const(value.None())
	tests := []struct {
		name    string
		m       *ir.Method
		want    Shape
		wantErr bool
	}{
		{"plain void", method(ir.T(ir.Void)), Plain, false},
		{"plain returning sequence", method(ir.SequenceOf(ir.T(ir.Int))), Plain, false},
		{"generator", method(ir.SequenceOf(ir.T(ir.Int)), none, ir.Yield()), Generator, false},
		{"continuation", method(ir.FutureOf(ir.T(ir.Int)), none, ir.Await(), ir.Pop()), Continuation, false},
		{"void continuation", method(ir.VoidFuture(), none, ir.Await(), ir.Pop()), Continuation, false},
		{"mixed", method(ir.SequenceOf(ir.T(ir.Int)), none, ir.Yield(), none, ir.Await(), ir.Pop()), 0, true},
		{"yield with future return", method(ir.FutureOf(ir.T(ir.Int)), none, ir.Yield()), 0, true},
		{"await with sequence return", method(ir.SequenceOf(ir.T(ir.Int)), none, ir.Await(), ir.Pop()), 0, true},
		{"yield with scalar return", method(ir.T(ir.Int), none, ir.Yield()), 0, true},
		{"yield with untyped sequence", method(ir.Type{Kind: ir.Sequence}, none, ir.Yield()), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.m)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected classification error, got %v", got)
				}
				if errors.KindOf(err) != errors.KindClassification {
					t.Errorf("kind = %q", errors.KindOf(err))
				}
				if errors.IsFatal(err) {
					t.Error("classification errors are local")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	m := method(ir.SequenceOf(ir.T(ir.Int)), ir.Const(value.Int(1)), ir.Yield())
	first, err1 := Classify(m)
	second, err2 := Classify(m)
	if first != second || err1 != nil || err2 != nil {
		t.Fatalf("Classify not stable: %v/%v, %v/%v", first, second, err1, err2)
	}
}

func TestResultType(t *testing.T) {
	cont := method(ir.FutureOf(ir.T(ir.String)))
	if got := ResultType(cont, Continuation); got.Kind != ir.String {
		t.Errorf("continuation result = %v", got)
	}
	gen := method(ir.SequenceOf(ir.T(ir.Int)))
	if got := ResultType(gen, Generator); !got.IsVoid() {
		t.Errorf("generator result = %v", got)
	}
}
