package params

type ListenerConfig struct {
	// Network is "tcp", "tcp4", "tcp6" or "unix".
	Network string `json:"network"`
	// Address is the address to listen on. Empty disables the listener.
	Address string `json:"address"`
}
