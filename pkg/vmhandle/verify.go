package vmhandle

// VerifyIsolation reports whether h's isolation boundaries are currently
// confirmed: a configured firewall chain with its drop rule still present,
// and no opt-in to degraded isolation at spawn time. A handle spawned with
// AllowDegradedIsolation and no firewall chain never reports true, even if
// it is otherwise running correctly — isolation must be demonstrated, not
// assumed.
func (h *VmHandle) VerifyIsolation() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateRunning {
		return false
	}
	if h.degradedIsolation {
		return false
	}
	if h.fw == nil {
		return false
	}
	return h.fw.VerifyIsolation()
}
