package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/app-tools/appwarden/pkg/logging"
)

type tcpProber struct {
	config  TCPConfig
	timeout time.Duration
	id      string
	logger  logging.Logger
}

// Check dials the configured address once. A completed handshake is healthy.
func (p *tcpProber) Check(ctx context.Context) Result {
	start := time.Now()

	address := net.JoinHostPort(p.config.Address, strconv.Itoa(p.config.Port))

	p.logger.Debugf("Performing TCP probe, id: %s, address: %s", p.id, address)

	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return newResult(start, false, fmt.Sprintf("TCP connection failed: %v", err))
	}
	conn.Close()

	return newResult(start, true, fmt.Sprintf("TCP connection successful to %s", address))
}
