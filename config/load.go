package config

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/hashicorp/hcl"
)

// Load sets variables from an HCL config file; variables set by a flag are left alone.
func (c *Config) Load(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	err = c.load(f)
	if err != nil {
		return fmt.Errorf("config: %s: %s", filename, err)
	}
	return nil
}

func (c *Config) load(r io.Reader) error {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return err
	}

	var cfg map[string]interface{}
	err = hcl.Decode(&cfg, string(b))
	if err != nil {
		return err
	}
	for name, val := range cfg {
		v, ok := c.vars[name]
		if !ok {
			return fmt.Errorf("%s is not a config variable", name)
		}
		if v.noConfig {
			return fmt.Errorf("%s can't be set in config file", name)
		}

		if v.by < byConfig {
			err := v.val.SetValue(val)
			if err != nil {
				return fmt.Errorf("%s: %s", v.name, err)
			}
			v.by = byConfig
		}
	}

	return nil
}
