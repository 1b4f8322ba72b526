// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// talia-webchat-mock serves the webchat HTTP API from memory, for
// trying the chat client and for tests that need a real server. Every
// message is answered by echoing it back, optionally after a delay.
// The operator endpoints under /operator switch a session to manual
// mode and post messages as a human agent.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/spf13/pflag"

	"github.com/talia-ai/webchat/lib/clock"
	"github.com/talia-ai/webchat/lib/mockbackend"
	"github.com/talia-ai/webchat/lib/netutil"
	"github.com/talia-ai/webchat/lib/process"
	"github.com/talia-ai/webchat/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		listen     string
		basePath   string
		replyDelay time.Duration
		failSends  int
		debug      bool
		compress   bool
	)
	flagSet := pflag.NewFlagSet("talia-webchat-mock", pflag.ContinueOnError)
	flagSet.StringVar(&listen, "listen", "127.0.0.1:8080", "address to serve on")
	flagSet.StringVar(&basePath, "base-path", mockbackend.DefaultBasePath, "path prefix of the webchat API")
	flagSet.DurationVar(&replyDelay, "reply-delay", 0, "wait this long before answering each message")
	flagSet.IntVar(&failSends, "fail-sends", 0, "answer the first N messages with 503")
	flagSet.BoolVar(&debug, "debug", false, "log every request")
	flagSet.BoolVar(&compress, "gzip", true, "gzip responses for clients that accept it")
	showVersion := flagSet.Bool("version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return &process.Exit{Code: 2, Message: err.Error()}
	}
	if *showVersion {
		version.Print("talia-webchat-mock")
		return nil
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	gin.SetMode(gin.ReleaseMode)
	backendClock := clock.Real()
	backend := mockbackend.New(mockbackend.Config{
		BasePath:  basePath,
		Responder: delayedResponder(backendClock, replyDelay),
		Clock:     backendClock,
		Logger:    logger,
	})
	backend.FailSends(failSends)

	handler := backend.Handler()
	if compress {
		handler = gzhttp.GzipHandler(handler)
	}
	server := &http.Server{
		Addr:              listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second + replyDelay,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveDone := make(chan error, 1)
	go func() {
		logger.Info("webchat mock listening",
			"address", listen,
			"base_path", basePath,
			"version", version.Info(),
		)
		serveDone <- server.ListenAndServe()
	}()

	select {
	case err := <-serveDone:
		if netutil.IsExpectedCloseError(err) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", listen, err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-serveDone; !netutil.IsExpectedCloseError(err) {
		return fmt.Errorf("serving %s: %w", listen, err)
	}
	return nil
}

// delayedResponder wraps the echo responder with a fixed delay that
// ends early when the request is cancelled.
func delayedResponder(clk clock.Clock, delay time.Duration) mockbackend.Responder {
	if delay <= 0 {
		return mockbackend.EchoResponder
	}
	return func(ctx context.Context, sessionID, content string) (string, error) {
		select {
		case <-clk.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return mockbackend.EchoResponder(ctx, sessionID, content)
	}
}
