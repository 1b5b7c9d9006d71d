package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/bookhub/store-service/pkg/kafka"
	"github.com/bookhub/store-service/pkg/logger"
	"github.com/bookhub/store-service/pkg/postgres"
	"github.com/bookhub/store-service/store/config"
	"github.com/bookhub/store-service/store/internal/handler"
	"github.com/bookhub/store-service/store/internal/repository"
	"github.com/bookhub/store-service/store/internal/server"
	"github.com/bookhub/store-service/store/internal/service"
	"github.com/bookhub/store-service/store/migrations"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "store")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}

	var producer sarama.AsyncProducer
	if len(cfg.Kafka.Addrs) > 0 {
		if producer, err = kafka.NewAsyncProducer(cfg.Kafka); err != nil {
			log.Fatal("kafka.NewAsyncProducer", zap.Error(err))
		}
	} else {
		log.Warn("kafka disabled: no brokers configured")
	}

	svc := service.NewService(repo, service.NewStatsLog(producer, kafka.StatsTopic), log)
	var handlerOps []handler.Option
	if cfg.Server.TrustGatewayHeaders {
		handlerOps = append(handlerOps, handler.WithGatewayAuth())
	}
	h := handler.New(svc, log, handlerOps...)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	if producer != nil {
		_ = producer.Close()
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}
