// Package natsconn establishes the service's NATS connectivity: external
// servers when a URL is configured, otherwise an embedded server when the
// build carries one.
package natsconn

import (
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/textrec/text-recognition-service/internal/config"
)

var errNatsNotEmbedded = errors.New("NATS has not been embedded in this build")

// Setup connects the service to NATS.
// Depending on the config an embedded NATS server is started.
func Setup(conf config.TrsConfig, log *slog.Logger) (*nats.Conn, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if conf.NatsUrl == "" {
		return ConnectToEmbeddedNatsServer(conf)
	}
	var nc *nats.Conn
	var err error
	var attempts int = 0

	log.Info("Try connecting to NATS", "url", conf.NatsUrl, "timeoutSecs", conf.NatsTimeout.Seconds(), "count", attempts)
	for nc == nil {
		attempts++
		nc, err = nats.Connect(conf.NatsUrl, nats.Name("TRS"), nats.Timeout(conf.NatsTimeout))
		if err != nil {
			log.Error("Connecting to NATS failed",
				"url", conf.NatsUrl,
				"timeoutSecs", conf.NatsTimeout.Seconds(),
				"err", err,
				"count", attempts,
				"maxRetries", conf.NatsConnectRetries)
			if attempts > conf.NatsConnectRetries {
				log.Error("Connecting to NATS failed. Retry count exceeded", "err", err, "maxRetries", conf.NatsConnectRetries)
				return nil, err
			}
			time.Sleep(time.Second)
		} else {
			return nc, nil
		}
	}

	return nc, err
}
