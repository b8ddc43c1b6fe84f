package server

import (
	"context"

	"autoposter/internal/pkg/telegram"
	"autoposter/internal/service"

	"github.com/go-kratos/kratos/v2/log"
)

// BotServer runs the bot's long-polling loop as an application server.
type BotServer struct {
	client *telegram.Client
	svc    *service.BotService
	log    *log.Helper
}

// NewBotServer creates a new BotServer.
func NewBotServer(client *telegram.Client, svc *service.BotService, logger log.Logger) *BotServer {
	return &BotServer{
		client: client,
		svc:    svc,
		log:    log.NewHelper(logger),
	}
}

// Start registers the handlers and begins polling for updates.
func (s *BotServer) Start(ctx context.Context) error {
	s.svc.RegisterHandlers(s.client.Bot())
	s.log.Info("bot polling started")
	go s.client.Bot().Start()
	return nil
}

// Stop shuts the polling loop down.
func (s *BotServer) Stop(ctx context.Context) error {
	s.log.Info("bot polling stopping")
	s.client.Bot().Stop()
	return nil
}
