package collector

import (
	"errors"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
)

const maxDatagram = 65535

// Listener receives game server log traffic over UDP. Game servers are
// pointed at it with logaddress_add and then stream one log line per
// datagram.
type Listener struct {
	conn *net.UDPConn
	log  *logrus.Entry
}

// NewListener binds the UDP log socket
func NewListener(listenAddr string, port int) (*Listener, error) {
	addr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", listenAddr, port))
	if err != nil {
		return nil, fmt.Errorf("resolving socket address: %w", err)
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("binding log socket: %w", err)
	}

	log := logrus.WithField("component", "collector")
	log.WithField("addr", conn.LocalAddr().String()).Info("log socket listening")

	return &Listener{conn: conn, log: log}, nil
}

// Run reads datagrams until the listener is closed. Each datagram carries
// one log line; handle is called with the sender's host:port and the raw
// payload.
func (l *Listener) Run(handle func(addr, text string)) {
	buf := make([]byte, maxDatagram)
	for {
		n, remote, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.log.WithField("error", err.Error()).Warn("log socket read failed")
			continue
		}
		handle(remote.String(), string(buf[:n]))
	}
}

// Provoke sends a throwaway datagram to a game server. SRCDS will not start
// streaming log traffic to a socket it has never heard from.
func (l *Listener) Provoke(addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return fmt.Errorf("resolving server address: %w", err)
	}
	if _, err := l.conn.WriteToUDP([]byte("INIT"), udpAddr); err != nil {
		return fmt.Errorf("sending init datagram: %w", err)
	}
	return nil
}

// Close shuts the socket down, unblocking Run
func (l *Listener) Close() error {
	return l.conn.Close()
}
