package service

import (
	"context"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/textrec/text-recognition-service/pkg/overlay"
)

func (s *Service) RegisterNatsService(nc *nats.Conn) {
	recognizeService, err := micro.AddService(nc, micro.Config{
		Name:        "recognize-text",
		Version:     "1.0.0",
		Description: "Returns the text recognized in images and scanned documents",
	})

	if err != nil {
		panic(err)
	}
	recognizeService.AddEndpoint("recognize-remote",
		micro.HandlerFunc(s.handleUrl),
		micro.WithEndpointQueueGroup("text-recognition-service"))
	recognizeService.AddEndpoint("warm-model",
		micro.HandlerFunc(s.handleWarm),
		micro.WithEndpointQueueGroup("text-recognition-service"))
}

// handleUrl replies to a NATS request with the serialized recognition result
func (s *Service) handleUrl(req micro.Request) {
	d := req.Data()
	var params RequestParams
	err := json.Unmarshal(d, &params)
	if err != nil {
		req.Error("invalid_params", err.Error(), nil)
		return
	}
	s.log.Info("Received Nats request", "params", params)
	res, metadata, err := s.recognizeUrl(context.Background(), params.Url, params.NoCache)
	if err != nil {
		req.Error("failed", err.Error(), nil)
		return
	}
	if params.Overlay {
		for i := range res.Pages {
			res.Pages[i].Shapes = overlay.Build(res.Pages[i].Result)
		}
	}
	body, err := json.Marshal(res)
	if err != nil {
		req.Error("failed", err.Error(), nil)
		return
	}
	headers := micro.Headers{}
	for k, v := range metadata {
		headers[k] = []string{v}
	}
	req.Respond(body, micro.WithHeaders(headers))
	s.enqueueSave(params.Url, res, metadata)
}

// handleWarm provisions the trained models and responds with 'ready' once
// the model is usable
func (s *Service) handleWarm(req micro.Request) {
	s.log.Info("Received Nats request", "endpoint", "warm-model")
	if _, err := s.models.EnsureReady(context.Background()); err != nil {
		req.Error("failed", err.Error(), nil)
		return
	}
	req.Respond([]byte("ready"))
}
