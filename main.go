package main

import (
	"net"

	"github.com/insomniacslk/dhcp/dhcpv6"
	"github.com/insomniacslk/dhcp/dhcpv6/server6"
	"github.com/insomniacslk/dhcp/iana"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	prefix           = pflag.StringP("prefix", "p", "fec0::", "IPv6 /64 prefix to derive EUI-64 addresses from")
	networkInterface = pflag.StringP("interface", "i", "eth0", "Interface to listen on")
	resolverAddrs    = pflag.StringSliceP("resolver", "r", nil, "DNS resolver to hand out; repeat to round-robin between several")
	listenAddr       = pflag.StringP("listen", "l", ":8080", "Address for the HTTP event stream")
	history          = pflag.Int("history", 50, "Number of lease events to keep per machine")
	logDev           = pflag.Bool("log-dev", false, "Use human-readable development logging")
)

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newHandler(iface *net.Interface, logger *zap.Logger) (*DHCPv6Handler, *Machines, error) {
	base := net.ParseIP(*prefix)
	if base == nil || base.To4() != nil {
		return nil, nil, errors.Errorf("config: prefix %q is not an IPv6 address", *prefix)
	}

	if *history <= 0 {
		return nil, nil, errors.Errorf("config: history must be > 0, got %d", *history)
	}

	resolvers, err := ParseResolvers(*resolverAddrs)
	if err != nil {
		return nil, nil, errors.Wrap(err, "config")
	}

	machines := NewMachines(NewBroker[IdentifiedEvent](8), *history)

	return &DHCPv6Handler{
		prefix: base,
		serverDuid: dhcpv6.DUIDLLT{
			HWType:        iana.HWTypeEthernet,
			LinkLayerAddr: iface.HardwareAddr,
			Time:          dhcpv6.GetTime(),
		},
		resolvers: resolvers,
		machines:  machines,
		logger:    logger,
	}, machines, nil
}

func main() {
	pflag.Parse()

	logger, err := newLogger(*logDev)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	iface, err := net.InterfaceByName(*networkInterface)
	if err != nil {
		logger.Fatal("Could not find interface.", zap.String("interface", *networkInterface), zap.Error(err))
	}

	handler, machines, err := newHandler(iface, logger)
	if err != nil {
		logger.Fatal("Invalid configuration.", zap.Error(err))
	}

	laddr := &net.UDPAddr{
		IP:   net.IPv6unspecified,
		Port: dhcpv6.DefaultServerPort,
	}

	server, err := server6.NewServer(*networkInterface, laddr, handler.Handler)
	if err != nil {
		logger.Fatal("Could not start DHCPv6 server.", zap.Error(err))
	}

	go func() {
		if err := webserver(*listenAddr, newMux(machines, handler.resolvers, logger), logger); err != nil {
			logger.Fatal("HTTP server stopped.", zap.Error(err))
		}
	}()

	logger.Info("Listening for DHCPv6.",
		zap.Stringer("addr", laddr),
		zap.String("interface", *networkInterface),
		zap.Int("resolvers", handler.resolvers.Len()),
	)

	if err := server.Serve(); err != nil {
		logger.Fatal("DHCPv6 server stopped.", zap.Error(err))
	}
}
