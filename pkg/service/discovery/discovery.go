// Zaparoo Timekeeper
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Timekeeper.
//
// Zaparoo Timekeeper is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Timekeeper is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Timekeeper.  If not, see <http://www.gnu.org/licenses/>.

// Package discovery advertises the time API over mDNS so clients on the
// network can find a timekeeper without knowing its address.
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/config"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/helpers/syncutil"
	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog/log"
)

const (
	ServiceType      = "_zaparoo-time._tcp"
	retryInterval    = 30 * time.Second
	maxRetryDuration = 5 * time.Minute
)

var virtualInterfacePrefixes = []string{
	"docker", "br-", "veth", "virbr", "lxc", "lxd",
	"cni", "flannel", "cali", "tunl", "wg",
}

// filterInterfaces keeps interfaces that are up, multicast capable, not
// loopback and not virtual.
func filterInterfaces(ifaces []net.Interface) []net.Interface {
	var preferred []net.Interface
	for _, iface := range ifaces {
		switch {
		case iface.Flags&net.FlagUp == 0,
			iface.Flags&net.FlagLoopback != 0,
			iface.Flags&net.FlagMulticast == 0,
			isVirtualInterface(iface.Name):
			continue
		}
		preferred = append(preferred, iface)
	}
	return preferred
}

func isVirtualInterface(name string) bool {
	lowerName := strings.ToLower(name)
	for _, prefix := range virtualInterfacePrefixes {
		if strings.HasPrefix(lowerName, prefix) {
			return true
		}
	}
	return false
}

// Advertisable reports whether an API bound to addr can be reached from
// other hosts.
func Advertisable(addr net.Addr) bool {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return false
	}
	return tcp.IP == nil || !tcp.IP.IsLoopback()
}

type Options struct {
	InstanceName string
	Port         int
}

// Service manages the mDNS registration, retrying in the background while
// the network is not ready.
type Service struct {
	server       *zeroconf.Server
	cancelFunc   context.CancelFunc
	register     func(name string, port int, txt []string, ifaces []net.Interface) (*zeroconf.Server, error)
	interfaces   func() ([]net.Interface, error)
	instanceName string
	port         int
	stopped      bool
	mu           syncutil.Mutex
}

func New(opts Options) *Service {
	return &Service{
		instanceName: opts.InstanceName,
		port:         opts.Port,
		register: func(name string, port int, txt []string, ifaces []net.Interface) (*zeroconf.Server, error) {
			return zeroconf.Register(name, ServiceType, "local.", port, txt, ifaces)
		},
		interfaces: net.Interfaces,
	}
}

// Start registers the service, falling back to a retry loop if the first
// attempt fails.
func (s *Service) Start() {
	if s.instanceName == "" {
		s.instanceName = resolveInstanceName()
	}

	if s.tryRegister() {
		return
	}

	log.Info().
		Dur("retryInterval", retryInterval).
		Msg("mDNS registration failed, retrying in background")

	ctx, cancel := context.WithTimeout(context.Background(), maxRetryDuration)
	s.mu.Lock()
	s.cancelFunc = cancel
	s.mu.Unlock()

	go s.retryLoop(ctx)
}

func (s *Service) tryRegister() bool {
	all, err := s.interfaces()
	if err != nil {
		log.Debug().Err(err).Msg("failed to list network interfaces")
		return false
	}
	ifaces := filterInterfaces(all)
	if len(ifaces) == 0 {
		log.Debug().Msg("no suitable network interfaces found for mDNS")
		return false
	}

	txt := []string{
		"version=" + config.AppVersion,
		"path=/api/time",
	}
	server, err := s.register(s.instanceName, s.port, txt, ifaces)
	if err != nil {
		log.Debug().Err(err).Msg("mDNS registration attempt failed")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		if server != nil {
			server.Shutdown()
		}
		return false
	}
	s.server = server

	log.Info().
		Str("instance", s.instanceName).
		Int("port", s.port).
		Str("type", ServiceType).
		Msg("mDNS service advertising started")
	return true
}

func (s *Service) retryLoop(ctx context.Context) {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.tryRegister() {
				return
			}
		case <-ctx.Done():
			log.Warn().Msg("mDNS registration retry timed out")
			return
		}
	}
}

// Stop sends goodbye packets and ends any retry loop.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	if s.server != nil {
		s.server.Shutdown()
		s.server = nil
	}
}

func (s *Service) InstanceName() string {
	return s.instanceName
}

func resolveInstanceName() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		log.Warn().Err(err).Msg("failed to get hostname, using fallback")
		return "timekeeper"
	}
	return fmt.Sprintf("timekeeper-%s", hostname)
}
