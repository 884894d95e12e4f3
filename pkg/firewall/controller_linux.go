//go:build linux

// Package firewall guarantees that a spawned VM has no IP-level reach to
// the host or the outside world beyond its side-channel socket, regardless
// of what the guest or hypervisor network configuration might otherwise
// permit.
package firewall

import (
	"github.com/google/nftables"
	"github.com/google/nftables/expr"

	"github.com/ironclaw/runtime/internal/errx"
)

const (
	filterTable = "ironclaw_filter"
	inputChain  = "input"
	fwdChain    = "forward"
)

// Controller owns one per-VM isolation chain and, on block_interface, jump
// rules in the host's base input/forward chains pointing at it.
type Controller struct {
	vmID      string
	chainName string
	conn      *nftables.Conn
}

// New builds a Controller for vmID without touching the kernel; call
// ConfigureIsolation to actually create the chain.
func New(vmID string) (*Controller, error) {
	name, err := ChainName(vmID)
	if err != nil {
		return nil, err
	}
	return &Controller{vmID: vmID, chainName: name}, nil
}

// ChainName returns this controller's derived chain name.
func (c *Controller) ChainName() string {
	return c.chainName
}

func (c *Controller) connect() (*nftables.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := nftables.New()
	if err != nil {
		return nil, errx.Wrap(ErrConnectFailed, err)
	}
	c.conn = conn
	return conn, nil
}

// ConfigureIsolation creates the shared filter table and its base
// input/forward chains if absent, creates this VM's drop chain, and
// appends an unconditional drop rule to it.
func (c *Controller) ConfigureIsolation() error {
	conn, err := c.connect()
	if err != nil {
		return err
	}

	table := conn.AddTable(&nftables.Table{
		Family: nftables.TableFamilyIPv4,
		Name:   filterTable,
	})
	conn.AddChain(&nftables.Chain{
		Name:     inputChain,
		Table:    table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookInput,
		Priority: nftables.ChainPriorityFilter,
	})
	conn.AddChain(&nftables.Chain{
		Name:     fwdChain,
		Table:    table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookForward,
		Priority: nftables.ChainPriorityFilter,
	})

	vmChain := conn.AddChain(&nftables.Chain{
		Name:  c.chainName,
		Table: table,
	})
	conn.AddRule(&nftables.Rule{
		Table: table,
		Chain: vmChain,
		Exprs: []expr.Any{
			&expr.Verdict{Kind: expr.VerdictDrop},
		},
	})

	if err := conn.Flush(); err != nil {
		return errx.Wrap(ErrConfigureFailed, err)
	}
	return nil
}

// BlockInterface inserts, at the top of the shared input and forward base
// chains, a jump to this VM's drop chain for packets carried on ifname.
func (c *Controller) BlockInterface(ifname string) error {
	conn, err := c.connect()
	if err != nil {
		return err
	}
	table := &nftables.Table{Family: nftables.TableFamilyIPv4, Name: filterTable}

	for _, chainName := range []string{inputChain, fwdChain} {
		chain := &nftables.Chain{Name: chainName, Table: table}
		conn.InsertRule(&nftables.Rule{
			Table: table,
			Chain: chain,
			Exprs: []expr.Any{
				&expr.Meta{Key: expr.MetaKeyIIFNAME, Register: 1},
				&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: ifnameBytes(ifname)},
				&expr.Verdict{Kind: expr.VerdictJump, Chain: c.chainName},
			},
		})
	}

	if err := conn.Flush(); err != nil {
		return errx.Wrap(ErrBlockFailed, err)
	}
	return nil
}

// VerifyIsolation lists this VM's chain and reports true iff at least one
// drop rule is present. Any error listing the chain (including lack of
// privilege) is treated as "not verified", never as "verified".
func (c *Controller) VerifyIsolation() bool {
	conn, err := c.connect()
	if err != nil {
		return false
	}
	table := &nftables.Table{Family: nftables.TableFamilyIPv4, Name: filterTable}
	chain := &nftables.Chain{Name: c.chainName, Table: table}

	rules, err := conn.GetRules(table, chain)
	if err != nil {
		return false
	}
	for _, rule := range rules {
		for _, e := range rule.Exprs {
			if v, ok := e.(*expr.Verdict); ok && v.Kind == expr.VerdictDrop {
				return true
			}
		}
	}
	return false
}

// Cleanup removes every jump rule referencing this VM's chain from the
// shared input/forward chains, then flushes and deletes the chain itself.
// Every step is idempotent and safe to call multiple times or after a
// partial prior failure.
func (c *Controller) Cleanup() error {
	conn, err := c.connect()
	if err != nil {
		return err
	}
	table := &nftables.Table{Family: nftables.TableFamilyIPv4, Name: filterTable}

	for _, chainName := range []string{inputChain, fwdChain} {
		chain := &nftables.Chain{Name: chainName, Table: table}
		rules, err := conn.GetRules(table, chain)
		if err != nil {
			continue
		}
		for _, rule := range rules {
			if ruleJumpsTo(rule, c.chainName) {
				_ = conn.DelRule(rule)
			}
		}
	}

	vmChain := &nftables.Chain{Name: c.chainName, Table: table}
	conn.FlushChain(vmChain)
	conn.DelChain(vmChain)

	if err := conn.Flush(); err != nil {
		return errx.Wrap(ErrCleanupFailed, err)
	}
	return nil
}

func ruleJumpsTo(rule *nftables.Rule, chainName string) bool {
	for _, e := range rule.Exprs {
		if v, ok := e.(*expr.Verdict); ok && v.Kind == expr.VerdictJump && v.Chain == chainName {
			return true
		}
	}
	return false
}

func ifnameBytes(n string) []byte {
	b := make([]byte, 16)
	copy(b, n)
	return b
}
