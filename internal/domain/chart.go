/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ChartField is one key/value pair of a chart data point.
type ChartField struct {
	Key   string
	Value any
}

// ChartPoint is an ordered set of fields. Field order is kept through JSON round
// trips so that documents stay diff friendly.
type ChartPoint struct {
	Fields []ChartField
}

// NewChartPoint builds a point from alternating key, value arguments.
func NewChartPoint(kv ...any) ChartPoint {
	var p ChartPoint
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		p.Set(k, kv[i+1])
	}
	return p
}

// Get returns the value stored under key.
func (p ChartPoint) Get(key string) (any, bool) {
	for _, f := range p.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set stores v under key, appending the key when it is new.
func (p *ChartPoint) Set(key string, v any) {
	for i := range p.Fields {
		if p.Fields[i].Key == key {
			p.Fields[i].Value = v
			return
		}
	}
	p.Fields = append(p.Fields, ChartField{Key: key, Value: v})
}

// Rename moves the value stored under from to the key to, keeping its position.
// A field already named to is replaced. Nothing happens when from is absent.
func (p *ChartPoint) Rename(from, to string) {
	if from == to {
		return
	}
	idx := -1
	for i, f := range p.Fields {
		if f.Key == from {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	out := make([]ChartField, 0, len(p.Fields))
	for i, f := range p.Fields {
		if f.Key == to {
			continue
		}
		if i == idx {
			f.Key = to
		}
		out = append(out, f)
	}
	p.Fields = out
}

// Name returns the label stored under key formatted as text.
func (p ChartPoint) Name(key string) string {
	v, ok := p.Get(key)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Value returns the numeric value stored under key; non-numeric values read as 0.
func (p ChartPoint) Value(key string) float64 {
	v, ok := p.Get(key)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return finiteOrZero(t)
	case int:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return finiteOrZero(f)
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return finiteOrZero(f)
	default:
		return 0
	}
}

func finiteOrZero(f float64) float64 {
	if !Finite(f) {
		return 0
	}
	return f
}

// Clone returns a copy that shares no field slice with p.
func (p ChartPoint) Clone() ChartPoint {
	return ChartPoint{Fields: append([]ChartField(nil), p.Fields...)}
}

func (p ChartPoint) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("chart field %q: %w", f.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var errChartPointNotObject = errors.New("chart point must be a JSON object")

func (p *ChartPoint) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errChartPointNotObject
	}
	p.Fields = nil
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		p.Set(key, v)
	}
	_, err = dec.Token()
	return err
}
