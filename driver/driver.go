// Copyright 2025 Juan Font
// BSD-3-Clause

package driver

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// VM is a virtual machine as written to the inventory file.
type VM struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

type ConnectConfig struct {
	// The fully qualified domain name or IP address of the server, optionally
	// with a port.
	Host string `mapstructure:"host"`
	// The organization to log into. Only used by vCD.
	Org string `mapstructure:"org"`
	// The username to authenticate with.
	Username string `mapstructure:"username"`
	// The password to authenticate with.
	Password string `mapstructure:"password"`
	// An API token, used by vCD instead of username and password.
	Token string `mapstructure:"token"`

	// Do not validate the certificate of the server. Lab appliances usually
	// run with self-signed certificates.
	InsecureConnection bool `mapstructure:"insecure_connection"`
}

func (c *ConnectConfig) Prepare() []error {
	var errs []error

	c.Host = strings.TrimPrefix(c.Host, "https://")
	c.Host = strings.TrimPrefix(c.Host, "http://")
	c.Host = strings.TrimSuffix(c.Host, "/")

	if c.Host == "" {
		errs = append(errs, fmt.Errorf("'host' is required"))
	}
	if c.Token == "" {
		if c.Username == "" {
			errs = append(errs, fmt.Errorf("'username' is required if 'token' is not provided"))
		}
		if c.Password == "" {
			errs = append(errs, fmt.Errorf("'password' is required if 'token' is not provided"))
		}
	}

	return errs
}

// PrepareVCD validates the settings needed to log into a vCD organization.
func (c *ConnectConfig) PrepareVCD() []error {
	errs := c.Prepare()
	if c.Org == "" {
		errs = append(errs, fmt.Errorf("'org' is required"))
	}
	return errs
}

// Validation folds the result of Prepare into a single error.
func Validation(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return errors.Errorf("invalid connection settings: %s", strings.Join(msgs, "; "))
}
