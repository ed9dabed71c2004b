package supervisor

import (
	"fmt"
	"net"
	"strconv"

	"github.com/app-tools/appwarden/pkg/errors"
)

// checkPortAvailable verifies the service's listen address can be bound
// before anything is launched. An occupied port fails Start outright
// instead of leaving the failure to surface later as probe noise.
func checkPortAvailable(host string, port int) error {
	address := net.JoinHostPort(host, strconv.Itoa(port))

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.NewBindError(
			fmt.Sprintf("listen address %s is not available", address), err).
			WithContext("host", host).
			WithContext("port", port)
	}
	listener.Close()

	return nil
}
