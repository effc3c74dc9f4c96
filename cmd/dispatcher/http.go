package main

import (
	"context"
	"errors"
	"net/http"
	_ "net/http/pprof"

	"github.com/labstack/echo/v4"
	"github.com/srand/multinode/pkg/dispatcher"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/utils"
)

// Serves statistics, metrics and upgraded protocol connections over HTTP.
func serveHttp(ctx context.Context, stats dispatcher.StatisticsProvider, handler dispatcher.ConnectionHandler, address string) error {
	host, err := utils.ParseHttpUrl(address)
	if err != nil {
		return err
	}

	r := echo.New()
	r.HideBanner = true
	r.HidePort = true
	r.Use(utils.HttpLogger)
	r.Add(echo.GET, "/debug/pprof/*", echo.WrapHandler(http.DefaultServeMux))

	dispatcher.NewHttpHandler(stats, handler, r)

	server := &http.Server{Addr: host, Handler: r}
	stop := context.AfterFunc(ctx, func() {
		server.Close()
	})
	defer stop()

	log.Info("Listening on http", host)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
