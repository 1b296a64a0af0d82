// Copyright 2025 Juan Font
// BSD-3-Clause

package driver

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/vapi/rest"
	"github.com/vmware/govmomi/vapi/tags"
	"github.com/vmware/govmomi/view"
	"github.com/vmware/govmomi/vim25/mo"
)

// VCenterDriver holds a SOAP session and, when the appliance offers it, a
// vAPI session used for tagging.
type VCenterDriver struct {
	client *govmomi.Client
	rest   *rest.Client
	tags   *tags.Manager
}

func NewVCenterDriver(ctx context.Context, config *ConnectConfig) (*VCenterDriver, error) {
	if err := Validation(config.Prepare()); err != nil {
		return nil, err
	}

	u, err := url.Parse(fmt.Sprintf("https://%s/sdk", config.Host))
	if err != nil {
		return nil, errors.Wrapf(err, "parse vcenter url for %s", config.Host)
	}
	userInfo := url.UserPassword(config.Username, config.Password)
	u.User = userInfo

	client, err := govmomi.NewClient(ctx, u, config.InsecureConnection)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to vCenter %s", config.Host)
	}
	log.Info().Str("host", config.Host).Msg("connected to vCenter")

	d := &VCenterDriver{client: client}

	restClient := rest.NewClient(client.Client)
	if err := restClient.Login(ctx, userInfo); err != nil {
		log.Warn().Err(err).Msg("unable to retrieve tags, ensure vCenter supports tagging (vSphere 6.5+)")
	} else {
		d.rest = restClient
		d.tags = tags.NewManager(restClient)
	}

	return d, nil
}

// TaggingAvailable reports whether the vAPI login succeeded.
func (d *VCenterDriver) TaggingAvailable() bool {
	return d.tags != nil
}

// ListVMs returns every virtual machine in the inventory with the names of
// its attached tags, sorted by name.
func (d *VCenterDriver) ListVMs(ctx context.Context) ([]VM, error) {
	m := view.NewManager(d.client.Client)
	v, err := m.CreateContainerView(ctx, d.client.ServiceContent.RootFolder, []string{"VirtualMachine"}, true)
	if err != nil {
		return nil, errors.Wrap(err, "create virtual machine view")
	}
	defer func() {
		if err := v.Destroy(ctx); err != nil {
			log.Debug().Err(err).Msg("destroy container view")
		}
	}()

	var vms []mo.VirtualMachine
	if err := v.Retrieve(ctx, []string{"VirtualMachine"}, []string{"name"}, &vms); err != nil {
		return nil, errors.Wrap(err, "retrieve virtual machines")
	}

	list := make([]VM, 0, len(vms))
	for _, vm := range vms {
		list = append(list, VM{
			Name: vm.Name,
			Tags: d.vmTags(ctx, vm),
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	return list, nil
}

func (d *VCenterDriver) vmTags(ctx context.Context, vm mo.VirtualMachine) []string {
	names := []string{}
	if d.tags == nil {
		return names
	}

	attached, err := d.tags.GetAttachedTags(ctx, vm.Self)
	if err != nil {
		log.Error().Err(err).Str("vm", vm.Name).Msg("error fetching tags")
		return names
	}
	for _, tag := range attached {
		names = append(names, tag.Name)
	}
	sort.Strings(names)
	return names
}

// Cleanup logs out of both sessions. Failures are logged only.
func (d *VCenterDriver) Cleanup(ctx context.Context) {
	if d.rest != nil {
		if err := d.rest.Logout(ctx); err != nil {
			log.Warn().Err(err).Msg("error logging out of vAPI session")
		}
	}
	if err := d.client.Logout(ctx); err != nil {
		log.Warn().Err(err).Msg("error disconnecting from vCenter")
		return
	}
	log.Info().Msg("disconnected from vCenter")
}
