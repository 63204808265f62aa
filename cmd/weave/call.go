package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wippyai/weaver/builtin"
	"github.com/wippyai/weaver/ir"
	"github.com/wippyai/weaver/value"
	"github.com/wippyai/weaver/vm"
)

// callTimeout bounds how long a continuation may take in interactive mode.
const callTimeout = 10 * time.Second

type callResult struct {
	result string
	params []string
	trace  []string
}

// callMethod runs m on machine with arguments parsed from inputs, one per
// parameter that is not Out. Generators are drained and continuations
// awaited.
func callMethod(ctx context.Context, machine *vm.Machine, trace *builtin.Trace, m *ir.Method, inputs []string) (*callResult, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	cells := make([]*value.Cell, len(m.Params))
	next := 0
	for i, p := range m.Params {
		if p.Mode == ir.Out {
			cells[i] = value.Unassigned()
			continue
		}
		if next >= len(inputs) {
			return nil, fmt.Errorf("missing argument %q", p.Name)
		}
		v, err := parseArg(inputs[next], p.Type)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", p.Name, err)
		}
		cells[i] = value.NewCell(v)
		next++
	}

	if trace != nil {
		trace.Reset()
	}
	v, err := machine.Invoke(ctx, m.Name, value.None(), cells)
	if err == nil {
		v, err = settle(ctx, v)
	}

	res := &callResult{}
	if trace != nil {
		for _, e := range trace.Events() {
			res.trace = append(res.trace, e.String())
		}
	}
	if err != nil {
		return res, err
	}
	res.result = v.String()
	for i, p := range m.Params {
		if p.Mode == ir.ByRef || p.Mode == ir.Out {
			res.params = append(res.params, p.Name+" = "+formatCell(cells[i]))
		}
	}
	return res, nil
}

// settle drains iterators and waits for futures.
func settle(ctx context.Context, v value.Value) (value.Value, error) {
	if it, ok := v.AsIterator(); ok {
		items, err := value.Collect(ctx, it)
		if err != nil {
			return value.None(), err
		}
		return value.Seq(items...), nil
	}
	if f, ok := v.AsFuture(); ok {
		return f.Wait(ctx)
	}
	return v, nil
}

func formatCell(c *value.Cell) string {
	if !c.Assigned() {
		return "<unassigned>"
	}
	return c.Load().String()
}

// parseArg converts text typed by the user into a value of type t.
func parseArg(s string, t ir.Type) (value.Value, error) {
	s = strings.TrimSpace(s)
	switch t.Kind {
	case ir.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return value.None(), err
		}
		return value.Bool(b), nil
	case ir.Int:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return value.None(), err
		}
		return value.Int(i), nil
	case ir.Float:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return value.None(), err
		}
		return value.Float(f), nil
	case ir.Char:
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError || size != len(s) {
			return value.None(), fmt.Errorf("%q is not a single character", s)
		}
		return value.Char(r), nil
	case ir.String:
		return value.String(s), nil
	case ir.Sequence:
		if s == "" {
			return value.Seq(), nil
		}
		parts := strings.Split(s, ",")
		items := make([]value.Value, len(parts))
		for i, p := range parts {
			v, err := parseArg(p, t.ElemType())
			if err != nil {
				return value.None(), err
			}
			items[i] = v
		}
		return value.Seq(items...), nil
	case ir.Void:
		return value.None(), nil
	}

	if s == "" {
		return value.None(), nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.Int(i), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.Float(f), nil
	}
	return value.String(s), nil
}
