package main

import (
	"blog/api/handlers"
	"blog/api/routes"
	"blog/config"
	"blog/db"
	"blog/services"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	err := config.LoadConfig(configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	command := "serve"
	args := flag.Args()
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "serve":
		err = serve()
	case "migrate":
		err = migrate()
	case "clear-cache":
		err = clearCache()
	case "seed":
		err = seed(args)
	default:
		log.Fatalf("Unknown command: %s", command)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", command, err)
	}
}

func migrate() error {
	if err := db.ConnectDB(); err != nil {
		return err
	}
	defer db.Close()
	log.Println("Migrations applied")
	return nil
}

// newPageCache возвращает Redis-кеш, если он включен и доступен, иначе кеш в памяти процесса
func newPageCache() services.PageCache {
	if !config.AppConfig.Redis.Enabled {
		return services.NewMemoryCache()
	}
	client, err := services.InitRedis()
	if err != nil {
		log.Printf("ERROR: %v, falling back to in-memory page cache", err)
		return services.NewMemoryCache()
	}
	return services.NewRedisCache(client)
}

func clearCache() error {
	if !config.AppConfig.Redis.Enabled {
		log.Println("Page cache is in-memory, restart the server to drop it")
		return nil
	}
	client, err := services.InitRedis()
	if err != nil {
		return err
	}
	defer client.Close()
	if err := services.NewRedisCache(client).Clear(context.Background()); err != nil {
		return err
	}
	log.Println("Page cache cleared")
	return nil
}

func serve() error {
	conf := config.AppConfig
	if err := db.ConnectDB(); err != nil {
		return fmt.Errorf("failed to connect to the database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := services.NewGormStore()
	conns := services.NewWSConnManager()
	fanout := services.NewFeedFanout(store, conns)

	var events services.PostEventPublisher = fanout
	if conf.RabbitMQ.URL != "" {
		rabbit, err := services.DialRabbitMQ(conf.RabbitMQ.URL)
		if err != nil {
			log.Printf("ERROR: %v, post events are delivered in-process", err)
		} else {
			defer rabbit.Close()
			if err := rabbit.StartPostEventConsumer(ctx, conf.RabbitMQ.Queue, fanout); err != nil {
				return err
			}
			events = rabbit
		}
	}

	cache := newPageCache()
	if mem, ok := cache.(*services.MemoryCache); ok && conf.Cache.IndexTTL > 0 {
		go mem.Run(ctx, conf.Cache.IndexTTL)
	}
	h :=handlers.NewHandler(handlers.Deps{
		Store:        store,
		Media:        services.NewMediaStore(conf.Media.Root),
		Events:       events,
		Cache:        cache,
		Conns:        conns,
		PageSize:     conf.Pagination.PageSize,
		MaxImageSize: conf.Media.MaxImageSize,
	})

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	routes.Setup(router, h, routes.Options{
		ServiceName:     "blog",
		LoginURL:        conf.Auth.LoginURL,
		IndexTTL:        conf.Cache.IndexTTL,
		TrustUserHeader: conf.Auth.TrustUserHeader,
		CorsOrigins:     conf.Backend.CorsOrigins,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.Backend.Host, conf.Backend.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("ERROR: server shutdown: %v", err)
		}
	}()

	log.Printf("Starting server on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Println("Server stopped")
	return nil
}
