package broker

// ClientState is the broker's per-connection lifecycle phase.
type ClientState string

const (
	StateCreated      ClientState = "created"
	StateInitializing ClientState = "initializing"
	StateReady        ClientState = "ready"
	StateDisconnected ClientState = "disconnected"
)

// legalFrom reports whether method may be called while the connection is
// in state s. initialize is legal only from Created; list_tools and
// call_tool are legal only from Ready. Disconnected accepts nothing.
func legalFrom(s ClientState, method string) bool {
	switch method {
	case "initialize":
		return s == StateCreated
	default:
		return s == StateReady
	}
}
