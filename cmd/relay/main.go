package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"relaychat/internal/app"
	"relaychat/internal/conn"
	"relaychat/internal/relay"
)

func main() {
	listen := pflag.String("listen", ":7878", "address to listen on")
	users := pflag.String("users", "users.json", "user directory file")
	certFile := pflag.String("tls-cert", "", "PEM certificate; TLS is off when empty")
	keyFile := pflag.String("tls-key", "", "PEM private key")
	level := pflag.String("log-level", "info", "debug, info, warn or error")
	pflag.Parse()

	logger, err := app.NewLogger(*level, os.Stderr)
	if err != nil {
		log.Fatal("bad log level", "err", err)
	}

	dir, err := relay.LoadDirectory(*users)
	if err != nil {
		logger.Fatal("load users", "path", *users, "err", err)
	}

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		logger.Fatal("listen", "addr", *listen, "err", err)
	}
	if *certFile != "" {
		cfg, err := conn.ServerTLSConfig(*certFile, *keyFile)
		if err != nil {
			logger.Fatal("tls", "err", err)
		}
		ln = tls.NewListener(ln, cfg)
	}

	srv := relay.New(dir, logger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	logger.Debug("starting relay", "users", *users, "tls", *certFile != "")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Fatal("serve", "err", err)
	}
}
