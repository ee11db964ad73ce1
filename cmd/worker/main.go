// Package main (in worker-subfolder) launches the background job processor
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"photomark/internal/kafka"
	"photomark/internal/repository"
	"photomark/internal/service"
	"photomark/internal/storage"
	"photomark/internal/worker"
)

func main() {
	// Config from env / .env file
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Fatalf("Failed to load envs: %s\nExiting app...", err)
	}

	zlog.InitConsole()
	if err := zlog.SetLevel("info"); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	dbConn := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	strg := storage.NewImgStorage(appConfig, 10*time.Second)
	jobRepo := repository.NewPostgresJobRepo(dbConn)
	tplRepo := repository.NewPostgresTemplateRepo(dbConn)
	var svc JobWorkerService = service.NewJobService(jobRepo, tplRepo, NoopPublisher{}, strg)

	broker := appConfig.GetString("KAFKA_BROKER")
	kafka.WaitKafkaReady(broker)

	queue := make(chan kafkago.Message)
	retryStrategy := retry.Strategy{
		Attempts: 5,
		Delay:    2 * time.Second,
		Backoff:  1.5,
	}
	topic := appConfig.GetString("KAFKA_TOPIC")
	groupID := appConfig.GetString("KAFKA_GROUPID")
	cons := wbfkafka.NewConsumer([]string{broker}, topic, groupID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cons.StartConsuming(ctx, queue, retryStrategy)

	renderWorkers, err := strconv.Atoi(appConfig.GetString("RENDER_WORKERS"))
	if err != nil || renderWorkers < 1 {
		renderWorkers = 4
	}

	go worker.NewWorkerInstance(strg, svc, queue, cons, "results/", renderWorkers).StartWorker(ctx)

	// Waiting for interruption to stop context to start Graceful shutdown
	<-ctx.Done()

	shutdown(cons, dbConn)
	log.Println("Exiting worker...")
}

func shutdown(cons *wbfkafka.Consumer, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	// Closing Kafka connection:
	if err := cons.Close(); err != nil {
		log.Println("Failed to close Kafka-reader:", err)
	}
	log.Println("Kafka-consumer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
