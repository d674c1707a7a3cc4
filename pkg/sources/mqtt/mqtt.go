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

// Package mqtt receives time shared by other nodes of the mesh over an MQTT
// topic. Such time is second hand and is offered as QualityFromNet.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/rtc"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/sources"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	connectTimeout = 5 * time.Second
	reconnectDelay = 30 * time.Second
)

// ClientFactory builds a client from options.
type ClientFactory func(opts *mqtt.ClientOptions) mqtt.Client

// DefaultClientFactory creates real paho clients.
//
//nolint:ireturn // paho returns an interface
func DefaultClientFactory(opts *mqtt.ClientOptions) mqtt.Client {
	return mqtt.NewClient(opts)
}

type Source struct {
	sink          sources.Sink
	clientFactory ClientFactory
	clock         clockwork.Clock
	creds         Credentials
	path          string
}

func New(sink sources.Sink, path string, creds Credentials) *Source {
	return &Source{
		sink:          sink,
		path:          path,
		creds:         creds,
		clientFactory: DefaultClientFactory,
		clock:         clockwork.NewRealClock(),
	}
}

func (s *Source) Name() string {
	return "mqtt:" + s.path
}

// Run stays subscribed until ctx is cancelled. paho handles reconnects once
// connected; the initial connection is retried here.
func (s *Source) Run(ctx context.Context) error {
	opts, topic, err := NewClientOptions(s.path, s.creds)
	if err != nil {
		return fmt.Errorf("invalid mqtt broker: %w", err)
	}

	opts.OnConnect = func(client mqtt.Client) {
		token := client.Subscribe(topic, 1, s.handleMessage)
		if token.Wait() && token.Error() != nil {
			log.Error().Err(token.Error()).Msgf("mqtt: failed to subscribe to %s", topic)
			return
		}
		log.Info().Msgf("mqtt: subscribed to %s", topic)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt: connection lost")
	}

	for {
		client, err := s.connect(opts)
		if err == nil {
			<-ctx.Done()
			client.Disconnect(250)
			return ctx.Err()
		}
		log.Warn().Err(err).Msgf("mqtt: retrying in %s", reconnectDelay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(reconnectDelay):
		}
	}
}

//nolint:ireturn // paho client interface
func (s *Source) connect(opts *mqtt.ClientOptions) (mqtt.Client, error) {
	client := s.clientFactory(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		client.Disconnect(0)
		return nil, errors.New("failed to connect to MQTT broker: connection timeout")
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return client, nil
}

func (s *Source) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	// a retained time was true when it was published, not now
	if msg.Retained() {
		log.Debug().Msgf("mqtt: ignoring retained message on %s", msg.Topic())
		return
	}

	epoch, err := ParsePayload(msg.Payload())
	if err != nil {
		log.Debug().Err(err).Msg("mqtt: ignoring message")
		return
	}

	res := s.sink.SubmitTime(rtc.QualityFromNet, epoch, false)
	log.Debug().Msgf("mqtt: mesh time %d: %s", epoch, res)
}
