//go:build !linux

package firewall

import "errors"

// ErrUnsupportedPlatform is returned by every Controller operation on
// platforms without an nftables-equivalent packet filter wired in. The
// Darwin hypervisor backend (pkg/hypervisor) never attaches a network
// device to begin with, but Spawn still fails on this error unless the
// Manager allows degraded isolation, in which case the handle is marked
// degraded and VerifyIsolation reports false; see pkg/vmhandle.
var ErrUnsupportedPlatform = errors.New("firewall controller not supported on this platform")

type Controller struct {
	vmID      string
	chainName string
}

func New(vmID string) (*Controller, error) {
	name, err := ChainName(vmID)
	if err != nil {
		return nil, err
	}
	return &Controller{vmID: vmID, chainName: name}, nil
}

func (c *Controller) ChainName() string { return c.chainName }

func (c *Controller) ConfigureIsolation() error    { return ErrUnsupportedPlatform }
func (c *Controller) BlockInterface(string) error  { return ErrUnsupportedPlatform }
func (c *Controller) VerifyIsolation() bool        { return false }
func (c *Controller) Cleanup() error               { return nil }
