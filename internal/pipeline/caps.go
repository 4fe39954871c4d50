package pipeline

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// MaxInt is the upper bound used by open integer ranges in caps.
const MaxInt = math.MaxInt32

// IntRange is an inclusive integer range field value.
type IntRange struct {
	Min, Max int
}

// Fraction is a rational field value such as a frame rate.
type Fraction struct {
	Num, Den int
}

func (f Fraction) rat() *big.Rat {
	den := f.Den
	if den == 0 {
		den = 1
	}
	return big.NewRat(int64(f.Num), int64(den))
}

// Cmp compares f and g as rationals.
func (f Fraction) Cmp(g Fraction) int {
	return f.rat().Cmp(g.rat())
}

// FractionRange is an inclusive fraction range field value.
type FractionRange struct {
	Min, Max Fraction
}

// Field is a named value in a Structure. Values are int, IntRange,
// Fraction, FractionRange, string or bool.
type Field struct {
	Name  string
	Value any
}

// Structure is a media type name with typed fields.
type Structure struct {
	Name   string
	Fields []Field
}

// NewStructure builds a structure from alternating field names and values.
func NewStructure(name string, kv ...any) *Structure {
	if len(kv)%2 != 0 {
		panic("pipeline: odd number of structure arguments")
	}
	s := &Structure{Name: name}
	for i := 0; i < len(kv); i += 2 {
		s.Set(kv[i].(string), kv[i+1])
	}
	return s
}

// Set adds or replaces a field.
func (s *Structure) Set(name string, v any) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			s.Fields[i].Value = v
			return
		}
	}
	s.Fields = append(s.Fields, Field{Name: name, Value: v})
}

// Value returns the value of a field.
func (s *Structure) Value(name string) (any, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Int returns a fixed integer field.
func (s *Structure) Int(name string) (int, bool) {
	v, ok := s.Value(name)
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	return n, ok
}

// Fraction returns a fixed fraction field.
func (s *Structure) Fraction(name string) (Fraction, bool) {
	v, ok := s.Value(name)
	if !ok {
		return Fraction{}, false
	}
	f, ok := v.(Fraction)
	return f, ok
}

func (s *Structure) fixed() bool {
	for _, f := range s.Fields {
		switch f.Value.(type) {
		case IntRange, FractionRange:
			return false
		}
	}
	return true
}

// intersect returns the common subset of s and o, or nil. Fields present
// in only one of them are kept as is.
func (s *Structure) intersect(o *Structure) *Structure {
	if s.Name != o.Name {
		return nil
	}
	out := &Structure{Name: s.Name}
	for _, f := range s.Fields {
		v, ok := o.Value(f.Name)
		if !ok {
			out.Fields = append(out.Fields, f)
			continue
		}
		iv, ok := intersectValue(f.Value, v)
		if !ok {
			return nil
		}
		out.Fields = append(out.Fields, Field{Name: f.Name, Value: iv})
	}
	for _, f := range o.Fields {
		if _, ok := s.Value(f.Name); !ok {
			out.Fields = append(out.Fields, f)
		}
	}
	return out
}

func intersectValue(a, b any) (any, bool) {
	switch av := a.(type) {
	case int:
		switch bv := b.(type) {
		case int:
			return av, av == bv
		case IntRange:
			return av, av >= bv.Min && av <= bv.Max
		}
	case IntRange:
		switch bv := b.(type) {
		case int:
			return intersectValue(bv, av)
		case IntRange:
			lo, hi := max(av.Min, bv.Min), min(av.Max, bv.Max)
			if lo > hi {
				return nil, false
			}
			if lo == hi {
				return lo, true
			}
			return IntRange{lo, hi}, true
		}
	case Fraction:
		switch bv := b.(type) {
		case Fraction:
			return av, av.Cmp(bv) == 0
		case FractionRange:
			return av, av.Cmp(bv.Min) >= 0 && av.Cmp(bv.Max) <= 0
		}
	case FractionRange:
		switch bv := b.(type) {
		case Fraction:
			return intersectValue(bv, av)
		case FractionRange:
			lo, hi := av.Min, av.Max
			if bv.Min.Cmp(lo) > 0 {
				lo = bv.Min
			}
			if bv.Max.Cmp(hi) < 0 {
				hi = bv.Max
			}
			switch c := lo.Cmp(hi); {
			case c > 0:
				return nil, false
			case c == 0:
				return lo, true
			}
			return FractionRange{lo, hi}, true
		}
	case string, bool:
		return av, av == b
	}
	return nil, false
}

// Caps describes the media formats a pad can handle, as a list of
// alternative structures. Caps without structures are empty.
type Caps struct {
	Structures []*Structure
}

// NewCaps returns caps holding the given alternatives.
func NewCaps(s ...*Structure) *Caps {
	return &Caps{Structures: s}
}

// IsEmpty reports whether c describes no format at all.
func (c *Caps) IsEmpty() bool {
	return c == nil || len(c.Structures) == 0
}

// IsFixed reports whether c describes exactly one concrete format.
func (c *Caps) IsFixed() bool {
	return c != nil && len(c.Structures) == 1 && c.Structures[0].fixed()
}

// Structure returns the i-th alternative.
func (c *Caps) Structure(i int) *Structure {
	return c.Structures[i]
}

// Intersect returns the formats described by both c and o.
func (c *Caps) Intersect(o *Caps) *Caps {
	out := &Caps{}
	if c.IsEmpty() || o.IsEmpty() {
		return out
	}
	for _, a := range c.Structures {
		for _, b := range o.Structures {
			if s := a.intersect(b); s != nil {
				out.Structures = append(out.Structures, s)
			}
		}
	}
	return out
}

// CanIntersect reports whether c and o share a format.
func (c *Caps) CanIntersect(o *Caps) bool {
	return !c.Intersect(o).IsEmpty()
}

func (c *Caps) String() string {
	if c.IsEmpty() {
		return "EMPTY"
	}
	parts := make([]string, len(c.Structures))
	for i, s := range c.Structures {
		parts[i] = s.String()
	}
	return strings.Join(parts, "; ")
}

func (s *Structure) String() string {
	var sb strings.Builder
	sb.WriteString(s.Name)
	for _, f := range s.Fields {
		fmt.Fprintf(&sb, ", %s=%s", f.Name, formatValue(f.Value))
	}
	return sb.String()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case int:
		return fmt.Sprintf("(int)%d", v)
	case IntRange:
		return fmt.Sprintf("(int)[ %d, %d ]", v.Min, v.Max)
	case Fraction:
		return fmt.Sprintf("(fraction)%d/%d", v.Num, v.Den)
	case FractionRange:
		return fmt.Sprintf("(fraction)[ %d/%d, %d/%d ]", v.Min.Num, v.Min.Den, v.Max.Num, v.Max.Den)
	case string:
		return fmt.Sprintf("(string)%s", v)
	case bool:
		return fmt.Sprintf("(boolean)%t", v)
	}
	return fmt.Sprintf("%v", v)
}
