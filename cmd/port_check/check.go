package main

import (
	"fmt"
	"net"
)

// PortStatus es el resultado de sondear un puerto local.
type PortStatus struct {
	Port int
	Free bool
	Err  error
}

// checkPort intenta reservar el puerto en loopback. Libre significa que la
// API (o el frontend) puede levantarse ahí.
func checkPort(port int) PortStatus {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return PortStatus{Port: port, Free: false, Err: err}
	}
	ln.Close()
	return PortStatus{Port: port, Free: true}
}

func describe(st PortStatus) string {
	if st.Free {
		return fmt.Sprintf("[LIVRE]   porta %d disponível", st.Port)
	}
	return fmt.Sprintf("[OCUPADA] porta %d em uso", st.Port)
}
