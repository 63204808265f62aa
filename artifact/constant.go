package artifact

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/weaver/value"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("artifact: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// constant is the CBOR form of a const operand. Only data kinds can be
// serialized; objects, errors, futures and iterators exist at run time only.
type constant struct {
	Items []constant `cbor:"7,keyasint,omitempty"`
	Text  string     `cbor:"5,keyasint,omitempty"`
	Int   int64      `cbor:"2,keyasint,omitempty"`
	Uint  uint64     `cbor:"3,keyasint,omitempty"`
	Float float64    `cbor:"4,keyasint,omitempty"`
	Kind  value.Kind `cbor:"1,keyasint"`
	Bool  bool       `cbor:"6,keyasint,omitempty"`
}

func toConstant(v value.Value) (constant, error) {
	c := constant{Kind: v.Kind()}
	switch v.Kind() {
	case value.KindNone:
	case value.KindBool:
		c.Bool, _ = v.AsBool()
	case value.KindInt:
		c.Int, _ = v.AsInt()
	case value.KindUint:
		c.Uint, _ = v.AsUint()
	case value.KindFloat:
		c.Float, _ = v.AsFloat()
	case value.KindChar:
		r, _ := v.AsChar()
		c.Int = int64(r)
	case value.KindString:
		c.Text, _ = v.AsString()
	case value.KindSequence:
		items, _ := v.AsSeq()
		c.Items = make([]constant, len(items))
		for i, it := range items {
			ci, err := toConstant(it)
			if err != nil {
				return constant{}, err
			}
			c.Items[i] = ci
		}
	default:
		return constant{}, fmt.Errorf("%s values cannot be serialized", v.Kind())
	}
	return c, nil
}

func (c constant) value() (value.Value, error) {
	switch c.Kind {
	case value.KindNone:
		return value.None(), nil
	case value.KindBool:
		return value.Bool(c.Bool), nil
	case value.KindInt:
		return value.Int(c.Int), nil
	case value.KindUint:
		return value.Uint(c.Uint), nil
	case value.KindFloat:
		return value.Float(c.Float), nil
	case value.KindChar:
		return value.Char(rune(c.Int)), nil
	case value.KindString:
		return value.String(c.Text), nil
	case value.KindSequence:
		items := make([]value.Value, len(c.Items))
		for i, ci := range c.Items {
			v, err := ci.value()
			if err != nil {
				return value.None(), err
			}
			items[i] = v
		}
		return value.Seq(items...), nil
	}
	return value.None(), fmt.Errorf("constant of kind %s", c.Kind)
}

// MarshalValue encodes a constant value as canonical CBOR.
func MarshalValue(v value.Value) ([]byte, error) {
	c, err := toConstant(v)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(c)
}

// UnmarshalValue decodes a constant produced by MarshalValue.
func UnmarshalValue(data []byte) (value.Value, error) {
	var c constant
	if err := cbor.Unmarshal(data, &c); err != nil {
		return value.None(), fmt.Errorf("unmarshal constant: %w", err)
	}
	return c.value()
}
