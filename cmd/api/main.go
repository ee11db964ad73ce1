// Package main (in api-subfolder) provides launch of the whole application except worker
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"

	"photomark/internal/kafka"
	"photomark/internal/mwlogger"
	"photomark/internal/repository"
	"photomark/internal/service"
	"photomark/internal/storage"
	"photomark/internal/transport"
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

	// App-wide context cancelled on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	repository.MigrateWithRetries(dbConn.Master, "./migrations", 10, 15*time.Second)

	strg := storage.NewImgStorage(appConfig, 10*time.Second)
	jobRepo := repository.NewPostgresJobRepo(dbConn)
	tplRepo := repository.NewPostgresTemplateRepo(dbConn)

	broker := appConfig.GetString("KAFKA_BROKER")
	kafka.WaitKafkaReady(broker)
	topic := appConfig.GetString("KAFKA_TOPIC")
	kafka.InitKafkaTopics(ctx, broker, 10*time.Second, topic)
	pub := wbfkafka.NewProducer([]string{broker}, topic)

	var svc JobAPIService = service.NewJobService(jobRepo, tplRepo, pub, strg)
	handlers := transport.NewJobHandler(svc)

	mode := appConfig.GetString("GIN_MODE")
	engine := ginext.New(mode)

	engine.GET("/ping", handlers.SimplePinger)
	engine.POST("/jobs", handlers.Create)                    // new batch job from multipart upload
	engine.GET("/jobs", handlers.GetAllJobs)                 // paginated/sorted job list
	engine.GET("/jobs/:id", handlers.GetJob)                 // single record with progress counts
	engine.GET("/jobs/:id/files/:name", handlers.LoadResult) // download one rendered file
	engine.DELETE("/jobs/:id", handlers.Delete)

	engine.POST("/templates", handlers.SaveTemplate)
	engine.GET("/templates", handlers.GetAllTemplates)
	engine.GET("/templates/:name", handlers.GetTemplate)
	engine.DELETE("/templates/:name", handlers.DeleteTemplate)

	srv := &http.Server{
		Addr:    ":" + appConfig.GetString("APP_PORT"),
		Handler: mwlogger.New(engine),
	}

	// Server launch
	go func() {
		log.Printf("Server running on http://localhost%s\n", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				log.Println("Server gracefully stopping...")
			default:
				log.Printf("Server stopped: %v", err)
				stop()
			}
		}
	}()

	// Background loop re-enqueues jobs that got stuck
	go recoveryLoop(ctx, svc)

	<-ctx.Done()

	shutdown(pub, dbConn)
	log.Println("Exiting API...")
}

func recoveryLoop(ctx context.Context, svc JobAPIService) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("Recovery loop crashed:", r)
		}
	}()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.ReviveOrphans(context.Background(), 20)
		}
	}
}

func shutdown(pub *wbfkafka.Producer, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	// Closing Kafka connection:
	if err := pub.Close(); err != nil {
		log.Println("Failed to close Kafka-producer:", err)
	}
	log.Println("Kafka-producer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
