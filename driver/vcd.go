// Copyright 2025 Juan Font
// BSD-3-Clause

package driver

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/vmware/go-vcloud-director/v3/govcd"
	"github.com/vmware/go-vcloud-director/v3/types/v56"
)

const vcdAPIVersion = "38.1"

// VCDVM is a virtual machine as reported by a vCD query.
type VCDVM struct {
	Name      string `json:"name"`
	VApp      string `json:"vapp"`
	Status    string `json:"status"`
	GuestOS   string `json:"guest_os,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

type VCDDriver struct {
	client *govcd.VCDClient
	org    string
}

func NewVCDDriver(config *ConnectConfig) (*VCDDriver, error) {
	if err := Validation(config.PrepareVCD()); err != nil {
		return nil, err
	}

	apiURL, err := url.Parse(fmt.Sprintf("https://%s/api", config.Host))
	if err != nil {
		return nil, errors.Wrapf(err, "parse vcd url for %s", config.Host)
	}

	client, err := newClient(*apiURL, config.Org, config.Username, config.Password, config.Token, config.InsecureConnection)
	if err != nil {
		return nil, err
	}
	log.Info().Str("host", config.Host).Str("org", config.Org).Msg("connected to vCD")

	return &VCDDriver{
		client: client,
		org:    config.Org,
	}, nil
}

// ListVMs queries the VMs of the organization, restricted to one VDC when
// vdc is not empty.
func (d *VCDDriver) ListVMs(_ context.Context, vdc string) ([]VCDVM, error) {
	org, err := d.client.GetOrgByName(d.org)
	if err != nil {
		return nil, errors.Wrapf(err, "get org %s", d.org)
	}

	var records []*types.QueryResultVMRecordType
	if vdc != "" {
		v, err := org.GetVDCByName(vdc, false)
		if err != nil {
			return nil, errors.Wrapf(err, "get vdc %s", vdc)
		}
		records, err = v.QueryVmList(types.VmQueryFilterOnlyDeployed)
		if err != nil {
			return nil, errors.Wrapf(err, "query vms in vdc %s", vdc)
		}
	} else {
		records, err = org.QueryVmList(types.VmQueryFilterOnlyDeployed)
		if err != nil {
			return nil, errors.Wrapf(err, "query vms in org %s", d.org)
		}
	}

	vms := make([]VCDVM, 0, len(records))
	for _, r := range records {
		vms = append(vms, VCDVM{
			Name:      r.Name,
			VApp:      r.ContainerName,
			Status:    r.Status,
			GuestOS:   r.GuestOS,
			IPAddress: r.IpAddress,
		})
	}
	sort.Slice(vms, func(i, j int) bool {
		if vms[i].VApp != vms[j].VApp {
			return vms[i].VApp < vms[j].VApp
		}
		return vms[i].Name < vms[j].Name
	})
	return vms, nil
}

func (d *VCDDriver) Cleanup() error {
	if err := d.client.Disconnect(); err != nil {
		return errors.Wrap(err, "disconnect from vCD")
	}
	return nil
}

func newClient(apiURL url.URL, org string, username string, password string, token string, insecure bool) (*govcd.VCDClient, error) {
	client := &govcd.VCDClient{
		Client: govcd.Client{
			VCDHREF:    apiURL,
			APIVersion: vcdAPIVersion,
			Http: http.Client{
				Transport: &http.Transport{
					TLSClientConfig: &tls.Config{
						InsecureSkipVerify: insecure,
					},
					Proxy:               http.ProxyFromEnvironment,
					TLSHandshakeTimeout: 120 * time.Second,
				},
				Timeout: 600 * time.Second,
			},
			MaxRetryTimeout: 60,
		},
	}

	if token != "" {
		err := client.SetToken(org, govcd.ApiTokenHeader, token)
		if err != nil {
			return nil, fmt.Errorf("unable to authenticate to Org \"%s\": %s", org, err)
		}
	} else {
		err := client.Authenticate(username, password, org)
		if err != nil {
			return nil, fmt.Errorf("unable to authenticate to Org \"%s\": %s", org, err)
		}
	}

	return client, nil
}
