//go:build !embed_nats

package natsconn

import (
	"github.com/nats-io/nats.go"

	"github.com/textrec/text-recognition-service/internal/config"
)

const NatsEmbedded bool = false

func ConnectToEmbeddedNatsServer(_ config.TrsConfig) (*nats.Conn, error) {
	return nil, errNatsNotEmbedded
}
