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

// Package client talks to a running timekeeper's local API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/config"
)

const requestTimeout = 5 * time.Second

var ErrNotRunning = errors.New("timekeeper api is not reachable")

type Client struct {
	http *http.Client
	base string
}

// New returns a client for an API listening on listen. An empty or
// wildcard host is reached over loopback.
func New(listen string) *Client {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		host, port = "", listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return &Client{
		http: &http.Client{Timeout: requestTimeout},
		base: "http://" + net.JoinHostPort(host, port),
	}
}

// LocalClient returns a client for the API configured in cfg.
func LocalClient(cfg *config.Instance) *Client {
	return New(cfg.API().Listen)
}

func (c *Client) Time(ctx context.Context) (models.TimeResponse, error) {
	var resp models.TimeResponse
	err := c.do(ctx, http.MethodGet, "/api/time", nil, &resp)
	return resp, err
}

func (c *Client) SetTime(ctx context.Context, params models.SetTimeParams) (models.SetTimeResponse, error) {
	var resp models.SetTimeResponse
	err := c.do(ctx, http.MethodPost, "/api/time", params, &resp)
	return resp, err
}

func (c *Client) SetTimezone(ctx context.Context, tz string) (models.TimezoneResponse, error) {
	var resp models.TimezoneResponse
	err := c.do(ctx, http.MethodPut, "/api/timezone", models.SetTimezoneParams{Timezone: tz}, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotRunning, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var apiErr models.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("api error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("api error: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
