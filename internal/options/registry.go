// Package options implements a typed engine option table: insertion-ordered,
// case-insensitive by name, with bounds validation on assignment and
// per-option change hooks.
package options

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates the UCI option types.
type Kind int

const (
	Check Kind = iota
	Spin
	Combo
	Button
	String
)

func (k Kind) String() string {
	switch k {
	case Check:
		return "check"
	case Spin:
		return "spin"
	case Combo:
		return "combo"
	case Button:
		return "button"
	default:
		return "string"
	}
}

var (
	ErrUnknownOption = errors.New("options: unknown option")
	ErrInvalidValue  = errors.New("options: invalid value")
)

// OnChange runs after an option's value has been updated (or, for buttons,
// after the button press). An error aborts the Set call that triggered it.
type OnChange func(o *Option) error

// Option is one entry in the table. Min/Max bound spin options; Vars lists
// combo alternatives.
type Option struct {
	Name    string
	Kind    Kind
	Default string
	Min     int
	Max     int
	Vars    []string

	value string
	hooks []OnChange
}

// Value returns the current textual value.
func (o *Option) Value() string {
	return o.value
}

// Bool reads a check option.
func (o *Option) Bool() bool {
	return o.value == "true"
}

// Int reads a spin option.
func (o *Option) Int() int {
	n, err := strconv.Atoi(o.value)
	if err != nil {
		return 0
	}
	return n
}

// Registry is the option table. Options keep their insertion order for
// listing; lookup is case-insensitive.
type Registry struct {
	order []*Option
	byKey map[string]*Option
}

func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]*Option)}
}

func (r *Registry) add(o *Option) *Option {
	r.order = append(r.order, o)
	r.byKey[strings.ToLower(o.Name)] = o
	return o
}

func (r *Registry) AddCheck(name string, def bool) *Option {
	text := "false"
	if def {
		text = "true"
	}
	return r.add(&Option{Name: name, Kind: Check, Default: text, value: text})
}

func (r *Registry) AddSpin(name string, def, min, max int) *Option {
	text := strconv.Itoa(def)
	return r.add(&Option{Name: name, Kind: Spin, Default: text, Min: min, Max: max, value: text})
}

func (r *Registry) AddCombo(name, def string, vars ...string) *Option {
	return r.add(&Option{Name: name, Kind: Combo, Default: def, Vars: vars, value: def})
}

func (r *Registry) AddButton(name string) *Option {
	return r.add(&Option{Name: name, Kind: Button})
}

func (r *Registry) AddString(name, def string) *Option {
	return r.add(&Option{Name: name, Kind: String, Default: def, value: def})
}

// Get looks an option up by case-insensitive name.
func (r *Registry) Get(name string) (*Option, bool) {
	o, ok := r.byKey[strings.ToLower(name)]
	return o, ok
}

// OnChange appends a hook to the named option. Hooks run in registration
// order on every successful Set.
func (r *Registry) OnChange(name string, fn OnChange) error {
	o, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOption, name)
	}
	o.hooks = append(o.hooks, fn)
	return nil
}

// Set assigns a value to the named option and fires its hooks. Unknown
// names, malformed values, out-of-range spins, and unlisted combo choices
// are all rejected with an error and leave the option untouched. Buttons
// ignore the value and only fire hooks.
func (r *Registry) Set(name, value string) error {
	o, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOption, name)
	}

	switch o.Kind {
	case Button:
		// no value to store
	case Check:
		if value != "true" && value != "false" {
			return fmt.Errorf("%w: option %s wants true or false, got %q", ErrInvalidValue, o.Name, value)
		}
		o.value = value
	case Spin:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: option %s wants an integer, got %q", ErrInvalidValue, o.Name, value)
		}
		if n < o.Min || n > o.Max {
			return fmt.Errorf("%w: option %s value %d out of range %d..%d", ErrInvalidValue, o.Name, n, o.Min, o.Max)
		}
		o.value = strconv.Itoa(n)
	case Combo:
		matched := ""
		for _, v := range o.Vars {
			if strings.EqualFold(v, value) {
				matched = v
				break
			}
		}
		if matched == "" {
			return fmt.Errorf("%w: option %s value %q is not one of %s", ErrInvalidValue, o.Name, value, strings.Join(o.Vars, ", "))
		}
		o.value = matched
	default:
		o.value = value
	}

	for _, fn := range o.hooks {
		if err := fn(o); err != nil {
			return fmt.Errorf("option %s: %w", o.Name, err)
		}
	}
	return nil
}

// Int reads a spin option by name, zero when absent.
func (r *Registry) Int(name string) int {
	o, ok := r.Get(name)
	if !ok {
		return 0
	}
	return o.Int()
}

// Bool reads a check option by name, false when absent.
func (r *Registry) Bool(name string) bool {
	o, ok := r.Get(name)
	if !ok {
		return false
	}
	return o.Bool()
}

// Value reads any option's text by name, empty when absent.
func (r *Registry) Value(name string) string {
	o, ok := r.Get(name)
	if !ok {
		return ""
	}
	return o.value
}

// Options lists the table in insertion order.
func (r *Registry) Options() []*Option {
	return append([]*Option(nil), r.order...)
}

// String renders the table in the UCI "option name ..." wire form, in
// insertion order.
func (r *Registry) String() string {
	var sb strings.Builder
	for _, o := range r.order {
		sb.WriteString("option name ")
		sb.WriteString(o.Name)
		sb.WriteString(" type ")
		sb.WriteString(o.Kind.String())
		switch o.Kind {
		case Spin:
			fmt.Fprintf(&sb, " default %s min %d max %d", o.Default, o.Min, o.Max)
		case Check, String:
			sb.WriteString(" default ")
			sb.WriteString(o.Default)
		case Combo:
			sb.WriteString(" default ")
			sb.WriteString(o.Default)
			for _, v := range o.Vars {
				sb.WriteString(" var ")
				sb.WriteString(v)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
