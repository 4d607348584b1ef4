//go:build embed_nats

package natsconn

import (
	"errors"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/textrec/text-recognition-service/internal/config"
)

const NatsEmbedded bool = true

func ConnectToEmbeddedNatsServer(conf config.TrsConfig) (*nats.Conn, error) {
	ns, err := server.NewServer(
		&server.Options{
			JetStream:  true,
			MaxPayload: conf.NatsMaxPayload,
			TLS:        false,
			DontListen: !conf.ExposeNats,
			Host:       conf.NatsHost,
			Port:       conf.NatsPort,
			StoreDir:   conf.NatsStoreDir,
		})
	if err != nil {
		return nil, err
	}
	ns.ConfigureLogger()
	ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		return nil, errors.New("embedded NATS not ready")
	}

	return nats.Connect("", nats.InProcessServer(ns))
}
