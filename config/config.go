package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/pflag"
)

// Value is the typed storage behind a config variable. Set parses a string from a flag or the
// environment; SetValue takes a value decoded from a config file.
type Value interface {
	Set(s string) error
	SetValue(v interface{}) error
	String() string
	Type() string
}

type setBy int

const (
	byDefault setBy = iota
	byEnv
	byConfig
	byFlag
)

func (by setBy) String() string {
	switch by {
	case byDefault:
		return "default"
	case byEnv:
		return "env"
	case byConfig:
		return "config"
	case byFlag:
		return "flag"
	}
	return fmt.Sprintf("set-by(%d)", int(by))
}

// Config is a set of named variables. A variable is set, from highest to lowest precedence,
// by a command line flag, by a config file, by an environment variable, or by its default.
type Config struct {
	fs   *pflag.FlagSet
	vars map[string]*Variable
}

type Variable struct {
	cfg      *Config
	name     string
	ptr      interface{}
	val      Value
	usage    string
	env      string
	noConfig bool
	by       setBy
}

func NewConfig(fs *pflag.FlagSet) *Config {
	return &Config{
		fs:   fs,
		vars: map[string]*Variable{},
	}
}

// Var starts the definition of a variable stored at ptr; the definition is finished by
// calling the method for the type of ptr, such as Int for a *int.
func (c *Config) Var(ptr interface{}, name string) *Variable {
	if _, ok := c.vars[name]; ok {
		panic(fmt.Sprintf("config: variable redefined: %s", name))
	}
	return &Variable{
		cfg:  c,
		name: name,
		ptr:  ptr,
	}
}

func (v *Variable) Usage(usage string) *Variable {
	v.usage = usage
	return v
}

// Env names the environment variable which sets the variable.
func (v *Variable) Env(env string) *Variable {
	v.env = env
	return v
}

// NoConfig prevents the variable from being set in a config file.
func (v *Variable) NoConfig() *Variable {
	v.noConfig = true
	return v
}

func (v *Variable) define(val Value) {
	v.val = val
	v.cfg.vars[v.name] = v
	if v.cfg.fs != nil {
		v.cfg.fs.Var(flagValue{v}, v.name, v.usage)
		if val.Type() == "bool" {
			v.cfg.fs.Lookup(v.name).NoOptDefVal = "true"
		}
	}
}

func (v *Variable) Bool(b bool) *bool {
	p := v.ptr.(*bool)
	*p = b
	v.define((*boolValue)(p))
	return p
}

func (v *Variable) Int(i int) *int {
	p := v.ptr.(*int)
	*p = i
	v.define((*intValue)(p))
	return p
}

func (v *Variable) Int64(i int64) *int64 {
	p := v.ptr.(*int64)
	*p = i
	v.define((*int64Value)(p))
	return p
}

func (v *Variable) Uint64(u uint64) *uint64 {
	p := v.ptr.(*uint64)
	*p = u
	v.define((*uint64Value)(p))
	return p
}

func (v *Variable) String(s string) *string {
	p := v.ptr.(*string)
	*p = s
	v.define((*stringValue)(p))
	return p
}

func (v *Variable) Duration(d time.Duration) *time.Duration {
	p := v.ptr.(*time.Duration)
	*p = d
	v.define((*durationValue)(p))
	return p
}

func (v *Variable) Name() string {
	return v.name
}

func (v *Variable) Value() string {
	return v.val.String()
}

// By returns where the current value came from: default, env, config, or flag.
func (v *Variable) By() string {
	return v.by.String()
}

type flagValue struct {
	v *Variable
}

func (fv flagValue) Set(s string) error {
	err := fv.v.val.Set(s)
	if err != nil {
		return err
	}
	fv.v.by = byFlag
	return nil
}

func (fv flagValue) String() string {
	if fv.v == nil || fv.v.val == nil {
		return ""
	}
	return fv.v.val.String()
}

func (fv flagValue) Type() string {
	return fv.v.val.Type()
}

// Env sets each variable still at its default from its environment variable, if that is set.
func (c *Config) Env() error {
	for _, v := range c.vars {
		if v.env == "" || v.by != byDefault {
			continue
		}
		s, ok := os.LookupEnv(v.env)
		if !ok {
			continue
		}
		err := v.val.Set(s)
		if err != nil {
			return fmt.Errorf("config: %s: %s", v.env, err)
		}
		v.by = byEnv
	}
	return nil
}

func (c *Config) Lookup(name string) (*Variable, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// Set changes a variable as if it had been set by a flag.
func (c *Config) Set(name, val string) error {
	v, ok := c.vars[name]
	if !ok {
		return fmt.Errorf("config: %s is not a config variable", name)
	}
	return flagValue{v}.Set(val)
}

// Vars returns the variables sorted by name.
func (c *Config) Vars() []*Variable {
	vars := make([]*Variable, 0, len(c.vars))
	for _, v := range c.vars {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].name < vars[j].name })
	return vars
}
