package main

import (
	"context"
	"net"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv6"
	"github.com/insomniacslk/dhcp/iana"
	"github.com/mdlayher/netx/eui64"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type DHCPv6Handler struct {
	prefix     net.IP
	serverDuid dhcpv6.DUIDLLT
	resolvers  *Resolvers
	machines   *Machines
	logger     *zap.Logger
}

// Handler implements a server6.Handler.
func (h *DHCPv6Handler) Handler(conn net.PacketConn, peer net.Addr, m dhcpv6.DHCPv6) {
	if err := h.handleMsg(context.Background(), conn, peer, m); err != nil {
		h.logger.Warn("Dropped DHCPv6 message.", zap.Stringer("peer", peer), zap.Error(err))
	}
}

func (s *DHCPv6Handler) handleMsg(ctx context.Context, conn net.PacketConn, peer net.Addr,
	req dhcpv6.DHCPv6) error {

	msg, err := req.GetInnerMessage()
	if err != nil {
		return errors.Wrap(err, "dhcpv6: get inner message")
	}

	if err := s.checkClientID(msg); err != nil {
		return err
	}

	if err := s.checkServerID(msg); err != nil {
		return err
	}

	resp, err := s.newResponse(msg)
	if err != nil {
		return err
	}

	resp.AddOption(dhcpv6.OptServerID(&s.serverDuid))

	if err := s.process(msg, resp); err != nil {
		return err
	}

	s.logger.Debug("Replying.", zap.Stringer("peer", peer), zap.String("reply", resp.Summary()))

	if _, err := conn.WriteTo(resp.ToBytes(), peer); err != nil {
		return errors.Wrap(err, "dhcpv6: write reply")
	}

	return s.advance(ctx, msg)
}

func (s *DHCPv6Handler) newResponse(msg *dhcpv6.Message) (dhcpv6.DHCPv6, error) {
	switch msg.Type() {
	case dhcpv6.MessageTypeSolicit:
		if msg.GetOneOption(dhcpv6.OptionRapidCommit) != nil {
			resp, err := dhcpv6.NewReplyFromMessage(msg)
			return resp, errors.Wrap(err, "dhcpv6: new reply from message")
		}
		resp, err := dhcpv6.NewAdvertiseFromSolicit(msg)
		return resp, errors.Wrap(err, "dhcpv6: new advertise from solicit")
	case dhcpv6.MessageTypeRequest, dhcpv6.MessageTypeConfirm,
		dhcpv6.MessageTypeRenew, dhcpv6.MessageTypeRebind,
		dhcpv6.MessageTypeRelease, dhcpv6.MessageTypeInformationRequest:

		resp, err := dhcpv6.NewReplyFromMessage(msg)
		return resp, errors.Wrap(err, "dhcpv6: new reply from message")
	default:
		return nil, errors.Errorf("dhcpv6: unknown message type %s", msg.Type())
	}
}

// Check Client ID
func (s *DHCPv6Handler) checkClientID(msg *dhcpv6.Message) error {
	if msg.Options.ClientID() == nil {
		return errors.New("dhcpv6: no ClientID option in request")
	}

	return nil
}

// Check the message has a matching server ID
func (s *DHCPv6Handler) checkServerID(msg *dhcpv6.Message) error {
	sid := msg.Options.ServerID()

	switch msg.Type() {
	case dhcpv6.MessageTypeSolicit,
		dhcpv6.MessageTypeConfirm,
		dhcpv6.MessageTypeRebind:

		if sid != nil {
			return errors.Errorf("dhcpv6: drop packet: ServerID option in message %s", msg.Type())
		}
	case dhcpv6.MessageTypeRequest,
		dhcpv6.MessageTypeRenew,
		dhcpv6.MessageTypeRelease,
		dhcpv6.MessageTypeDecline:
		if sid == nil {
			return errors.Errorf("dhcpv6: drop packet: no ServerID option in message %s", msg.Type())
		}

		if !sid.Equal(&s.serverDuid) {
			return errors.Errorf("dhcpv6: drop packet: mismatched ServerID option in message %s: %s",
				msg.Type(), sid)
		}
	}

	return nil
}

func (s *DHCPv6Handler) checkIA(msg *dhcpv6.Message, expectedIP net.IP) error {
	switch msg.Type() {
	case dhcpv6.MessageTypeRequest,
		dhcpv6.MessageTypeConfirm,
		dhcpv6.MessageTypeRenew,
		dhcpv6.MessageTypeRebind:

		oia := msg.Options.OneIANA()
		if oia == nil {
			return errors.Errorf("no IANA option in %s", msg.Type())
		}

		oiaAddr := oia.Options.OneAddress()
		if oiaAddr == nil {
			return errors.Errorf("no IANA.Addr option in %s", msg.Type())
		}

		if !oiaAddr.IPv6Addr.Equal(expectedIP) {
			return errors.Errorf("invalid IANA.Addr option in %s", msg.Type())
		}
	}
	return nil
}

// leaseFor derives the client's address from its MAC.
func (s *DHCPv6Handler) leaseFor(msg *dhcpv6.Message) (net.HardwareAddr, net.IP, error) {
	mac, err := dhcpv6.ExtractMAC(msg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "dhcpv6: no MAC address in request")
	}
	ip, err := eui64.ParseMAC(s.prefix, mac)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "dhcpv6: derive EUI-64 address for %s", mac)
	}
	return mac, ip, nil
}

// addResolvers attaches the DNS option, rotating the resolver order for the
// next reply.
func (s *DHCPv6Handler) addResolvers(resp dhcpv6.DHCPv6) {
	if s.resolvers == nil || s.resolvers.Len() == 0 {
		return
	}
	resp.AddOption(dhcpv6.OptDNS(s.resolvers.Next()...))
}

func addSuccess(resp dhcpv6.DHCPv6) {
	resp.AddOption(&dhcpv6.OptStatusCode{
		StatusCode:    iana.StatusSuccess,
		StatusMessage: "success",
	})
}

func (s *DHCPv6Handler) process(msg *dhcpv6.Message, resp dhcpv6.DHCPv6) error {
	switch msg.Type() {
	case dhcpv6.MessageTypeInformationRequest:
		s.addResolvers(resp)
		addSuccess(resp)
		return nil
	case dhcpv6.MessageTypeRelease:
		addSuccess(resp)
		return nil
	case dhcpv6.MessageTypeSolicit, dhcpv6.MessageTypeRequest,
		dhcpv6.MessageTypeConfirm, dhcpv6.MessageTypeRenew,
		dhcpv6.MessageTypeRebind:
	default:
		return errors.Errorf("dhcpv6: ignoring message type %s", msg.Type())
	}

	mac, leasedIP, err := s.leaseFor(msg)
	if err != nil {
		return err
	}
	s.logger.Info("Assigning address.", zap.Stringer("ip", leasedIP), zap.Stringer("mac", mac))

	if err := s.checkIA(msg, leasedIP); err != nil {
		return errors.Wrap(err, "dhcpv6: checking the IA")
	}

	oia := &dhcpv6.OptIANA{
		T1: 600 * time.Second,
		T2: 1050 * time.Second,
	}

	if roia := msg.Options.OneIANA(); roia != nil {
		copy(oia.IaId[:], roia.IaId[:])
	} else {
		copy(oia.IaId[:], []byte("DSYS"))
	}

	oia.Options = dhcpv6.IdentityOptions{
		Options: []dhcpv6.Option{
			&dhcpv6.OptIAAddress{
				IPv6Addr:          leasedIP,
				PreferredLifetime: 600 * time.Second,
				ValidLifetime:     600 * time.Second,
			},
		},
	}

	resp.AddOption(oia)
	s.addResolvers(resp)

	if fqdn := msg.GetOneOption(dhcpv6.OptionFQDN); fqdn != nil {
		resp.AddOption(fqdn)
	}

	addSuccess(resp)
	return nil
}

// lifecycle lists the lease machine events a message drives, in order.
func lifecycle(msg *dhcpv6.Message) []string {
	switch msg.Type() {
	case dhcpv6.MessageTypeSolicit:
		if msg.GetOneOption(dhcpv6.OptionRapidCommit) != nil {
			return []string{stateSolicit, stateRequest, stateBound}
		}
		return []string{stateSolicit}
	case dhcpv6.MessageTypeRequest:
		return []string{stateRequest, stateBound}
	case dhcpv6.MessageTypeRenew:
		return []string{stateRenew, stateBound}
	case dhcpv6.MessageTypeRebind:
		return []string{stateRebind, stateBound}
	case dhcpv6.MessageTypeConfirm:
		return []string{stateConfirm, stateBound}
	case dhcpv6.MessageTypeRelease:
		return []string{stateRelease}
	}
	return nil
}

func (s *DHCPv6Handler) advance(ctx context.Context, msg *dhcpv6.Message) error {
	events := lifecycle(msg)
	if len(events) == 0 || s.machines == nil {
		return nil
	}

	mac, err := dhcpv6.ExtractMAC(msg)
	if err != nil {
		return errors.Wrap(err, "dhcpv6: no MAC address in request")
	}

	machine := s.machines.GetOrInitMachine(mac)
	for _, event := range events {
		if err := machine.Event(ctx, event); err != nil {
			return errors.Wrapf(err, "lease %s: %s", mac, event)
		}
	}
	return nil
}
