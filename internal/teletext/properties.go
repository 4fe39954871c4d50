package teletext

import "github.com/pkg/errors"

// Property names.
const (
	PropPage    = "page"
	PropSubpage = "subpage"
)

// ParamSpec describes an integer property.
type ParamSpec struct {
	Name    string
	Nick    string
	Blurb   string
	Min     int
	Max     int
	Default int
}

// Properties lists the element's properties.
var Properties = []ParamSpec{
	{
		Name:    PropPage,
		Nick:    "Page number",
		Blurb:   "Number of page that should be displayed",
		Min:     0x100,
		Max:     0x8FF,
		Default: DefaultPage,
	},
	{
		Name:    PropSubpage,
		Nick:    "Sub-page number",
		Blurb:   "Number of sub-page that should be displayed (-1 for all)",
		Min:     -1,
		Max:     0x99,
		Default: DefaultSubpage,
	},
}

// Property errors.
var (
	ErrUnknownProperty = errors.New("teletext: unknown property")
	ErrOutOfRange      = errors.New("teletext: property value out of range")
)

// FindProperty returns the spec of a property.
func FindProperty(name string) (ParamSpec, bool) {
	for _, p := range Properties {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// SetProperty changes a property. A new page selection applies to pages
// received from now on; pages already waiting are still rendered.
func (d *Decoder) SetProperty(name string, value int) error {
	spec, ok := FindProperty(name)
	if !ok {
		return errors.Wrap(ErrUnknownProperty, name)
	}
	if value < spec.Min || value > spec.Max {
		return errors.Wrapf(ErrOutOfRange, "%s: %#x not in [%#x, %#x]", name, value, spec.Min, spec.Max)
	}

	switch name {
	case PropPage:
		d.pageno.Store(int32(value))
	case PropSubpage:
		d.subno.Store(int32(value))
	}
	d.log.Debug("property changed", "name", name, "value", value)
	return nil
}

// Property returns the value of a property.
func (d *Decoder) Property(name string) (int, error) {
	switch name {
	case PropPage:
		return int(d.pageno.Load()), nil
	case PropSubpage:
		return int(d.subno.Load()), nil
	}
	return 0, errors.Wrap(ErrUnknownProperty, name)
}
