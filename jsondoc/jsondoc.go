// Copyright 2025 Juan Font
// BSD-3-Clause

// Package jsondoc reads and writes loosely-typed JSON documents while keeping
// object keys in the order they appear on disk. Credential templates and the
// customhcl file are edited by operators, so prompts and rewritten files have
// to follow the file's own ordering.
package jsondoc

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	ojson "github.com/virtuald/go-ordered-json"
	"gopkg.in/yaml.v3"
)

// Indent matches the four-space layout the lab files have always used.
const Indent = "    "

// Number is a JSON number kept as written.
type Number = ojson.Number

var (
	ErrInvalid   = errors.New("invalid json")
	ErrNotObject = errors.New("json document is not an object")
)

type invalidError struct {
	cause error
}

func (e *invalidError) Error() string        { return "invalid json: " + e.cause.Error() }
func (e *invalidError) Unwrap() error        { return e.cause }
func (e *invalidError) Is(target error) bool { return target == ErrInvalid }

// Object is a JSON object that remembers key order.
type Object struct {
	members ojson.OrderedObject
}

func NewObject() *Object {
	return &Object{}
}

func (o *Object) Len() int {
	return len(o.members)
}

// Keys returns the keys in document order.
func (o *Object) Keys() []string {
	keys := make([]string, len(o.members))
	for i, m := range o.members {
		keys[i] = m.Key
	}
	return keys
}

func (o *Object) index(key string) int {
	for i, m := range o.members {
		if m.Key == key {
			return i
		}
	}
	return -1
}

func (o *Object) Get(key string) (interface{}, bool) {
	if i := o.index(key); i >= 0 {
		return o.members[i].Value, true
	}
	return nil, false
}

// Set replaces the value of an existing key in place or appends a new key.
func (o *Object) Set(key string, value interface{}) {
	if i := o.index(key); i >= 0 {
		o.members[i].Value = value
		return
	}
	o.members = append(o.members, ojson.Member{Key: key, Value: value})
}

// Object returns the nested object stored under key.
func (o *Object) Object(key string) (*Object, bool) {
	v, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	obj, ok := v.(*Object)
	return obj, ok
}

// String returns a scalar under key rendered as text. Objects, lists and
// null are reported as missing.
func (o *Object) String(key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// Clone returns a deep copy.
func (o *Object) Clone() *Object {
	out := &Object{members: make(ojson.OrderedObject, len(o.members))}
	for i, m := range o.members {
		out.members[i] = ojson.Member{Key: m.Key, Value: Clone(m.Value)}
	}
	return out
}

// Clone deep-copies any decoded JSON value.
func Clone(v interface{}) interface{} {
	switch t := v.(type) {
	case *Object:
		return t.Clone()
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = Clone(t[i])
		}
		return out
	}
	return v
}

// MarshalYAML keeps key order when an Object is rendered as YAML.
func (o *Object) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, m := range o.members {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m.Key}
		valNode := &yaml.Node{}
		if err := valNode.Encode(yamlValue(m.Value)); err != nil {
			return nil, errors.Wrapf(err, "key %q", m.Key)
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

func yamlValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = yamlValue(t[i])
		}
		return out
	}
	return v
}

// toOrdered turns Objects back into the encoder's ordered representation.
func toOrdered(v interface{}) interface{} {
	switch t := v.(type) {
	case *Object:
		out := make(ojson.OrderedObject, len(t.members))
		for i, m := range t.members {
			out[i] = ojson.Member{Key: m.Key, Value: toOrdered(m.Value)}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = toOrdered(t[i])
		}
		return out
	}
	return v
}

func fromOrdered(v interface{}) interface{} {
	switch t := v.(type) {
	case ojson.OrderedObject:
		obj := &Object{members: make(ojson.OrderedObject, len(t))}
		for i, m := range t {
			obj.members[i] = ojson.Member{Key: m.Key, Value: fromOrdered(m.Value)}
		}
		return obj
	case []interface{}:
		for i := range t {
			t[i] = fromOrdered(t[i])
		}
		return t
	}
	return v
}

func encode(v interface{}, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := ojson.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(toOrdered(v)); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode reads exactly one JSON value from r. Objects decode to *Object,
// arrays to []interface{} and numbers to Number.
func Decode(r io.Reader) (interface{}, error) {
	dec := ojson.NewDecoder(r)
	dec.UseOrderedObject()
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, &invalidError{cause: err}
	}
	var extra interface{}
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, &invalidError{cause: fmt.Errorf("unexpected data after top-level value")}
	}
	return fromOrdered(v), nil
}

func DecodeBytes(b []byte) (interface{}, error) {
	return Decode(bytes.NewReader(b))
}

// ReadObject loads a file whose top-level value must be an object.
func ReadObject(fs afero.Fs, path string) (*Object, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	v, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	obj, ok := v.(*Object)
	if !ok {
		return nil, errors.Wrapf(ErrNotObject, "read %s", path)
	}
	return obj, nil
}

// Marshal renders v indented with four spaces and a trailing newline.
func Marshal(v interface{}) ([]byte, error) {
	b, err := encode(v, Indent)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// WriteFile marshals v to path, creating the parent directory. The file is
// only readable by its owner.
func WriteFile(fs afero.Fs, path string, v interface{}) error {
	b, err := Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create directory %s", dir)
		}
	}
	if err := afero.WriteFile(fs, path, b, 0o600); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// IsNotExist unwraps err and reports whether a file was missing.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// Format renders a value for display: strings as-is, everything else as
// compact JSON.
func Format(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := encode(v, "")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
