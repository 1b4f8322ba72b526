// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/talia-ai/webchat/chat"
	"github.com/talia-ai/webchat/lib/config"
)

// headlessViewportLines is the MemoryView height. Nothing is drawn, so
// it only has to keep the view pinned to the bottom.
const headlessViewportLines = 1000

func runHeadless(ctx context.Context, cfg *config.Config, baseURL string, logger *slog.Logger, input io.Reader, output io.Writer) error {
	client, store, err := newBackend(ctx, cfg, baseURL, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	err = headlessChat(ctx, sessionConfig{
		Config:  cfg,
		Backend: client,
		Store:   store,
		Logger:  logger,
	}, input, output)

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.CloseTimeout+time.Second)
	defer cancel()
	if shutdownErr := client.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("waiting for closure notice", "error", shutdownErr)
	}
	return err
}

// headlessChat prints the resumed history, then submits each input
// line and prints what arrived after it: the reply, and any operator
// messages. The visitor's own lines are not echoed back.
func headlessChat(ctx context.Context, config sessionConfig, input io.Reader, output io.Writer) error {
	view := chat.NewMemoryView(1, headlessViewportLines)
	config.View = view
	session := newSession(config)
	if err := session.Start(ctx); err != nil {
		return err
	}

	printed := 0
	printNew := func(includeUser bool) error {
		messages := view.Messages()
		printed = min(printed, len(messages))
		for _, message := range messages[printed:] {
			if message.Role == chat.RoleUser && !includeUser {
				continue
			}
			if err := writeMessage(output, message); err != nil {
				return err
			}
		}
		printed = len(messages)
		return nil
	}

	var runErr error
	if err := printNew(true); err != nil {
		runErr = err
	}

	scanner := bufio.NewScanner(input)
	for runErr == nil && scanner.Scan() {
		if !session.Submit(scanner.Text()) {
			continue
		}
		if err := session.Flush(ctx); err != nil {
			runErr = err
			break
		}
		runErr = printNew(false)
	}
	if runErr == nil {
		runErr = scanner.Err()
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), config.Config.CloseTimeout)
	defer cancel()
	if err := session.Close(closeCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// writeMessage prints one message as "role: content", preceded by the
// operator notice when there is one.
func writeMessage(output io.Writer, message chat.Message) error {
	if label := message.Label(); label != "" {
		if _, err := fmt.Fprintf(output, "[%s]\n", label); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(output, "%s: %s\n", message.Role, message.Content)
	return err
}
