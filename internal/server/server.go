package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/cache"
	"github.com/toolsforexperiments/lab-dragon-sub000/internal/compress"
	"github.com/toolsforexperiments/lab-dragon-sub000/internal/config"
	"github.com/toolsforexperiments/lab-dragon-sub000/internal/jobs"
	"github.com/toolsforexperiments/lab-dragon-sub000/internal/service"
	"github.com/toolsforexperiments/lab-dragon-sub000/internal/store"
)

// Server represents the REST server
type Server struct {
	httpPort string
}

// NewServer creates a new server
func NewServer(httpPort string) *Server {
	return &Server{
		httpPort: httpPort,
	}
}

// Start starts the server
func (s *Server) Start() {
	if err := Start(s.httpPort); err != nil {
		logrus.Fatalf("error starting server: %v", err)
	}
}

// Start starts the REST server and blocks until interrupted.
func Start(httpPort string) error {
	httpPort = ":" + httpPort

	cnf := config.LoadConfig()
	rdb := config.GetDb(cnf)

	rl, err := net.Listen("tcp", httpPort)
	if err != nil {
		return err
	}

	entityStore := store.NewGormStore(rdb)
	err = entityStore.Migrate()
	if err != nil {
		return err
	}

	redis, err := cache.NewRedis(compress.NewLZ4())
	if err != nil {
		return err
	}

	entities := service.NewEntityService(entityStore, redis, cnf.MediaDir)
	users := service.NewUserService(entityStore)
	buckets := service.NewBucketService(entityStore, entities)

	apiMux := NewRouter(entities, users, buckets)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // All origins are allowed
		AllowedMethods:   []string{"GET", "POST", "DELETE", "PUT", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	restServer := &http.Server{
		Addr:    httpPort,
		Handler: c.Handler(RequestTimeMiddleware(apiMux)),
	}

	// background cache warmer keeps recently touched entities hot
	executor := jobs.NewTaskExecutor(nil, []jobs.CronJob{
		jobs.NewCacheWarm(entityStore, redis),
	})
	executor.Run()

	// make sure to wait for the server to stop before exiting
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logrus.Info("starting rest server on: ", httpPort)
		if err := restServer.Serve(rl); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logrus.Errorf("error starting rest server: %v", err)
			}
		}
		logrus.Infof("rest server stopped")
	}()

	logrus.Infof("Press Ctrl+C to stop the server")

	// listen for interrupt signal to gracefully shut down the server
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGTERM, unix.SIGINT, unix.SIGTSTP)
	<-sigs
	// clean Ctrl+C output
	fmt.Println()

	executor.Stop()
	err = restServer.Shutdown(context.Background())
	if err != nil {
		logrus.Errorf("error stopping rest server: %v", err)
	}

	wg.Wait()

	return nil
}
