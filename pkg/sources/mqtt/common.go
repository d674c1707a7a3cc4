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

package mqtt

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ParseMQTTPath splits a "broker:port/topic" connection string, with an
// optional mqtt:// or mqtts:// scheme, into broker address and topic.
func ParseMQTTPath(path string) (broker, topic string, err error) {
	if path == "" {
		return "", "", errors.New("path cannot be empty")
	}

	urlStr := path
	if !strings.Contains(path, "://") {
		urlStr = "mqtt://" + path
	}

	u, err := url.Parse(urlStr)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse MQTT URL: %w", err)
	}
	if u.Host == "" {
		return "", "", errors.New("broker address (host:port) is required")
	}

	topic = strings.TrimLeft(u.Path, "/")
	if topic == "" {
		return "", "", errors.New("topic is required")
	}
	return u.Host, topic, nil
}

// brokerURL returns the paho broker URL for a connection string, mapping
// mqtts:// and ssl:// to TLS.
func brokerURL(path, broker string) (string, bool) {
	scheme, _, ok := strings.Cut(path, "://")
	if ok && (scheme == "mqtts" || scheme == "ssl") {
		return "ssl://" + broker, true
	}
	return "tcp://" + broker, false
}

// Credentials authenticate against the broker. Empty fields are not sent.
type Credentials struct {
	Username string
	Password string
}

// NewClientOptions configures a client for path. Each connection gets a
// random client ID so several devices can share a broker.
func NewClientOptions(path string, creds Credentials) (*mqtt.ClientOptions, string, error) {
	broker, topic, err := ParseMQTTPath(path)
	if err != nil {
		return nil, "", err
	}
	addr, useTLS := brokerURL(path, broker)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(addr)
	opts.SetClientID("timekeeper-" + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetOrderMatters(false)

	if creds.Username != "" {
		opts.SetUsername(creds.Username)
		opts.SetPassword(creds.Password)
		log.Debug().Msgf("mqtt: using authentication for %s", broker)
	}
	if useTLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
		log.Debug().Msgf("mqtt: using TLS for %s", broker)
	}
	return opts, topic, nil
}
