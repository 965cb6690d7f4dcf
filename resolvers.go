package main

import (
	"encoding/json"
	"net"

	"github.com/pkg/errors"

	"github.com/DeterminateSystems/vecrotate/vecrotate"
)

// Resolvers hands out the configured DNS resolvers in round-robin order, so
// each reply leads with a different resolver.
type Resolvers struct {
	order *vecrotate.Locked[net.IP]
}

func ParseResolvers(addrs []string) (*Resolvers, error) {
	ips := make([]net.IP, 0, len(addrs))
	for _, addr := range addrs {
		ip := net.ParseIP(addr)
		if ip == nil || ip.To4() != nil {
			return nil, errors.Errorf("resolvers: %q is not an IPv6 address", addr)
		}
		ips = append(ips, ip)
	}
	return &Resolvers{order: vecrotate.NewLocked(ips)}, nil
}

// Next returns the current order and advances it by one.
func (r *Resolvers) Next() (ips []net.IP) {
	r.order.Do(func(v *vecrotate.VecRotate[net.IP]) {
		ips = v.Slice()
		v.ShiftBackward(1)
	})
	return
}

// Current returns the order the next reply will use.
func (r *Resolvers) Current() []net.IP {
	return r.order.Slice()
}

func (r *Resolvers) Len() int {
	return r.order.Len()
}

func (r *Resolvers) MarshalJSON() ([]byte, error) {
	current := r.Current()
	out := make([]string, len(current))
	for i, ip := range current {
		out[i] = ip.String()
	}
	return json.Marshal(out)
}
