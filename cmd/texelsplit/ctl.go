// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/texelsplit/ctl.go
// Summary: `texelsplit ctl` sends one command to a running server.
// Usage: texelsplit ctl new_split direction=right
//        texelsplit ctl '{"type":"list_panes"}'

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/framegrace/texelsplit/client"
)

const socketEnv = "TEXELSPLIT_SOCKET"

func newCtlCmd() *cobra.Command {
	var socket string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "ctl <json> | ctl <type> [key=value...]",
		Short: "Send one command to a running server and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if socket == "" {
				socket = os.Getenv(socketEnv)
			}
			if socket == "" {
				return fmt.Errorf("ctl: no socket; pass --socket or set %s", socketEnv)
			}
			payload, err := buildCommand(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			conn, err := client.NewSimpleClient(socket).Connect(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()
			reply, err := conn.Call(ctx, payload)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := printReply(out, reply.Raw, isTerminal(out)); err != nil {
				return err
			}
			return reply.Err()
		},
	}
	cmd.Flags().StringVar(&socket, "socket", "", "control socket path (default $"+socketEnv+")")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "round-trip timeout")
	return cmd
}

// buildCommand turns CLI arguments into a command object. A single argument
// starting with '{' is sent as is. Otherwise the first argument is the type
// and the rest are key=value pairs whose values are JSON when they parse as
// JSON and plain strings when they do not.
func buildCommand(args []string) (json.RawMessage, error) {
	if len(args) == 0 {
		return nil, errors.New("ctl: missing command")
	}
	if len(args) == 1 && strings.HasPrefix(strings.TrimSpace(args[0]), "{") {
		raw := json.RawMessage(args[0])
		if !json.Valid(raw) {
			return nil, errors.New("ctl: argument is not valid JSON")
		}
		return raw, nil
	}
	cmd := map[string]any{"type": args[0]}
	for _, kv := range args[1:] {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("ctl: expected key=value, got %q", kv)
		}
		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			v = value
		}
		cmd[key] = v
	}
	return json.Marshal(cmd)
}

func printReply(w io.Writer, raw json.RawMessage, pretty bool) error {
	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err == nil {
			raw = buf.Bytes()
		}
	}
	_, err := fmt.Fprintln(w, string(raw))
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
