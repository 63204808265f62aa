package artifact

import (
	"bytes"
	"fmt"
	"os"

	"github.com/wippyai/weaver/artifact/internal/binary"
	"github.com/wippyai/weaver/errors"
	"github.com/wippyai/weaver/ir"
)

// Magic starts every artifact.
var Magic = []byte{0x00, 'w', 'v', 'r'}

// Version is the format version written by Encode.
const Version uint32 = 1

// Section ids.
const (
	SectionCustom  byte = 0
	SectionMethods byte = 1
)

// Custom is an opaque named section.
type Custom struct {
	Name string
	Data []byte
}

// Artifact is a decoded container.
type Artifact struct {
	Module *ir.Module
	Custom []Custom
}

// Decode parses an artifact.
func Decode(data []byte) (*Artifact, error) {
	r := binary.NewReader(data)

	magic, err := r.ReadBytes(len(Magic))
	if err != nil || !bytes.Equal(magic, Magic) {
		return nil, errors.InvalidData(errors.PhaseDecode, []string{"header"}, "not a weaver artifact")
	}
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, r.WrapError("header", err), "read version")
	}
	if version != Version {
		return nil, errors.Unsupported(errors.PhaseDecode, fmt.Sprintf("artifact version %d", version))
	}

	a := &Artifact{Module: &ir.Module{}}
	seenMethods := false
	for r.Len() > 0 {
		id, err := r.ReadByte()
		if err != nil {
			return nil, decodeErr(r.WrapError("section", err), "read section id")
		}
		size, err := r.ReadLen()
		if err != nil {
			return nil, decodeErr(r.WrapError("section", err), "read section size")
		}
		payload, err := r.ReadBytes(size)
		if err != nil {
			return nil, decodeErr(r.WrapError("section", err), "read section payload")
		}

		switch id {
		case SectionCustom:
			c, err := decodeCustom(payload)
			if err != nil {
				return nil, err
			}
			a.Custom = append(a.Custom, c)
		case SectionMethods:
			if seenMethods {
				return nil, errors.InvalidData(errors.PhaseDecode, []string{"methods"}, "duplicate methods section")
			}
			seenMethods = true
			methods, err := decodeMethods(payload)
			if err != nil {
				return nil, err
			}
			a.Module.Methods = methods
		default:
			return nil, errors.InvalidData(errors.PhaseDecode, []string{fmt.Sprintf("section %d", id)}, "unknown section id")
		}
	}
	return a, nil
}

// Encode serializes a. The methods section comes first, followed by the
// custom sections in order.
func Encode(a *Artifact) ([]byte, error) {
	w := binary.NewWriter()
	w.WriteBytes(Magic)
	w.WriteU32LE(Version)

	var methods []*ir.Method
	if a.Module != nil {
		methods = a.Module.Methods
	}
	payload, err := encodeMethods(methods)
	if err != nil {
		return nil, err
	}
	w.Section(SectionMethods, payload)

	for _, c := range a.Custom {
		cw := binary.NewWriter()
		cw.WriteName(c.Name)
		cw.WriteBytes(c.Data)
		w.Section(SectionCustom, cw.Bytes())
	}
	return w.Bytes(), nil
}

// Load reads and decodes the artifact at path.
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load(fmt.Sprintf("read %s", path), err)
	}
	a, err := Decode(data)
	if err != nil {
		return nil, errors.Load(path, err)
	}
	return a, nil
}

// Save encodes a and writes it to path.
func Save(path string, a *Artifact) error {
	data, err := Encode(a)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, fmt.Sprintf("write %s", path))
	}
	return nil
}

func decodeCustom(payload []byte) (Custom, error) {
	r := binary.NewReader(payload)
	name, err := r.ReadName()
	if err != nil {
		return Custom{}, decodeErr(r.WrapError("custom", err), "read custom section name")
	}
	data, _ := r.ReadBytes(r.Len())
	return Custom{Name: name, Data: data}, nil
}

func decodeErr(err error, detail string) error {
	return errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, detail)
}
