package network

import (
	"fmt"
	"net"
	"time"

	"github.com/huin/goupnp/dcps/internetgateway1"
	natpmp "github.com/jackpal/go-nat-pmp"
	"github.com/jackpal/gateway"

	"github.com/timecoin/timecoin/utils/logging"
)

// MapPort attempts inbound NAT traversal for port, trying UPnP, then
// gateway discovery plus NAT-PMP, in that order (spec.md §4.8). Each
// step is best-effort; failure just falls through to the next, and a
// node with no NAT in front of it (or no reachable gateway) runs with
// MapPort never succeeding, which is not fatal to participation.
func MapPort(port uint16, log *logging.Logger) error {
	if err := mapUPnP(port); err == nil {
		log.Info("network: mapped port %d via UPnP", port)
		return nil
	}

	if err := mapNATPMP(port); err == nil {
		log.Info("network: mapped port %d via NAT-PMP", port)
		return nil
	}

	log.Warn("network: no NAT traversal method succeeded for port %d; relying on manual forwarding", port)
	return fmt.Errorf("network: all NAT traversal methods failed for port %d", port)
}

func mapUPnP(port uint16) error {
	clients, errs, err := internetgateway1.NewWANIPConnection1Clients()
	if err != nil {
		return err
	}
	if len(clients) == 0 {
		if len(errs) > 0 {
			return errs[0]
		}
		return fmt.Errorf("network: no UPnP internet gateway found")
	}
	client := clients[0]
	return client.AddPortMapping("", port, "TCP", port, localIP(), true, "timecoin", 0)
}

func mapNATPMP(port uint16) error {
	gatewayIP, err := gateway.DiscoverGateway()
	if err != nil {
		return err
	}
	client := natpmp.NewClient(gatewayIP)
	_, err = client.AddPortMapping("tcp", int(port), int(port), 3600)
	return err
}

func localIP() string {
	conn, err := net.DialTimeout("udp", "8.8.8.8:80", 2*time.Second)
	if err != nil {
		return "0.0.0.0"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}
