// ABOUTME: mDNS advertisement of the level feed
// ABOUTME: Publishes and discovers the feed as a _peakmeter._tcp service
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service type of the level feed.
const ServiceType = "_peakmeter._tcp"

// Advertiser announces the feed on the local network.
type Advertiser struct {
	name string
	port int

	mu     sync.Mutex
	server *mdns.Server
}

// NewAdvertiser announces name on port. An empty name uses the hostname.
func NewAdvertiser(name string, port int) *Advertiser {
	if name == "" {
		if host, err := os.Hostname(); err == nil {
			name = host
		} else {
			name = "peakmeter"
		}
	}
	return &Advertiser{name: name, port: port}
}

// Start begins answering mDNS queries.
func (a *Advertiser) Start() error {
	ips, err := localIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(a.name, ServiceType, "", "", a.port, ips,
		[]string{"path=" + Path})
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	a.mu.Lock()
	a.server = server
	a.mu.Unlock()

	slog.Info("advertising level feed", "name", a.name, "port", a.port, "type", ServiceType)
	return nil
}

// Stop withdraws the advertisement.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// localIPs returns the IPv4 addresses of up, non-loopback interfaces.
func localIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil && !ipnet.IP.IsLoopback() {
				ips = append(ips, ipnet.IP)
			}
		}
	}
	return ips, nil
}

// Endpoint is a feed found on the network.
type Endpoint struct {
	Name string
	Host string
	Port int
}

// Addr returns host:port for Dial.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Discover queries for advertised feeds for up to timeout.
func Discover(ctx context.Context, timeout time.Duration) ([]Endpoint, error) {
	entries := make(chan *mdns.ServiceEntry, 10)
	var found []Endpoint
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			if entry.AddrV4 == nil {
				continue
			}
			ep := Endpoint{Name: entry.Name, Host: entry.AddrV4.String(), Port: entry.Port}
			slog.Debug("discovered level feed", "name", ep.Name, "addr", ep.Addr())
			found = append(found, ep)
		}
	}()

	params := &mdns.QueryParam{
		Service:     ServiceType,
		Domain:      "local",
		Timeout:     timeout,
		Entries:     entries,
		DisableIPv6: true,
	}
	err := mdns.QueryContext(ctx, params)
	close(entries)
	<-done

	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("mdns query failed: %w", err)
	}
	return found, nil
}
