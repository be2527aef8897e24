package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/bed-alerts/internal/application/notification"
	"github.com/bed-alerts/internal/config"
	"github.com/bed-alerts/internal/domain"
	"github.com/bed-alerts/internal/infrastructure/amqp"
	"github.com/bed-alerts/internal/infrastructure/directory"
	"github.com/bed-alerts/internal/infrastructure/dynamo"
	"github.com/bed-alerts/internal/infrastructure/logsink"
	"github.com/bed-alerts/internal/infrastructure/memory"
	"github.com/bed-alerts/internal/infrastructure/redisstream"
	s3infra "github.com/bed-alerts/internal/infrastructure/s3"
	"github.com/bed-alerts/internal/infrastructure/sns"
	"github.com/bed-alerts/internal/logger"
)

// app is the wired service plus the connections it owns.
type app struct {
	service notification.Service
	closers []io.Closer
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logger.WarnKV(ctx, "close failed", "error", err)
		}
	}
}

// newApp selects and connects the backends named in cfg.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.close(ctx)
		}
	}()

	var snsClient sns.API
	snsOnce := func() (sns.API, error) {
		if snsClient != nil {
			return snsClient, nil
		}
		c, err := sns.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		snsClient = c
		return c, nil
	}

	var collab domain.Collaborators
	switch cfg.SignalBackend {
	case config.BackendSNS:
		c, err := snsOnce()
		if err != nil {
			return nil, err
		}
		collab.SignalSender = sns.NewSignalSender(c)
	default:
		collab.SignalSender = logsink.SignalSender{}
	}

	switch cfg.PublisherBackend {
	case config.BackendSNS:
		c, err := snsOnce()
		if err != nil {
			return nil, err
		}
		collab.Publisher = sns.NewTopicPublisher(c, cfg.SNSTopicARN)
	case config.BackendAMQP:
		p, err := amqp.Dial(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p)
		collab.Publisher = p
	case config.BackendRedis:
		client, err := redisstream.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		collab.Publisher = redisstream.NewPublisher(client, cfg.RedisStream)
	default:
		collab.Publisher = logsink.Publisher{}
	}

	var repo domain.NotificationRepository
	switch cfg.StoreBackend {
	case config.BackendDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		repo = dynamo.NewNotificationRepo(client, cfg.NotificationsTable, collab)
	default:
		repo = memory.NewNotificationRepo()
	}

	dir, err := directory.Load(cfg.DirectoryFile)
	if err != nil {
		return nil, fmt.Errorf("load directory: %w", err)
	}

	deps := notification.ServiceDeps{
		Repo:          repo,
		Directory:     dir,
		Collaborators: collab,
	}
	if cfg.ArchiveEnabled {
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.Archive = s3infra.NewStore(client, cfg.S3BucketName)
	}

	logger.InfoKV(ctx, "backends selected",
		"store", cfg.StoreBackend,
		"signals", cfg.SignalBackend,
		"publisher", cfg.PublisherBackend,
		"archive", cfg.ArchiveEnabled,
	)
	a.service = notification.NewService(deps)
	ok = true
	return a, nil
}
