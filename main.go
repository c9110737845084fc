package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"channelchat-backend/internal/blob"
	"channelchat-backend/internal/database"
	"channelchat-backend/internal/gateway"
	"channelchat-backend/internal/handlers"
	"channelchat-backend/internal/hub"
	"channelchat-backend/internal/ingest"
	"channelchat-backend/internal/jwt"
	"channelchat-backend/internal/keyValue"
	"channelchat-backend/internal/membership"
	"channelchat-backend/internal/models"
	"channelchat-backend/internal/snowflake"
	"channelchat-backend/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func setupLogger(cfg *models.ConfigFile) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	if cfg.LogToFile {
		config.OutputPaths = append(config.OutputPaths, "app.log")
	}

	level := zapcore.DebugLevel
	if cfg.LogLevel != "" {
		var err error
		level, err = zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
	}
	config.Level = zap.NewAtomicLevelAt(level)

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger.Sugar(), nil
}

func readConfigFile() (models.ConfigFile, error) {
	var cfg models.ConfigFile

	configFile, err := os.Open("config.json")
	if err != nil {
		return cfg, err
	}
	defer configFile.Close()

	bytes, err := io.ReadAll(configFile)
	if err != nil {
		return cfg, err
	}

	err = json.Unmarshal(bytes, &cfg)
	return cfg, err
}

func setupRedis(cfg *models.ConfigFile) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddress,
	})

	err := rdb.Ping(context.Background()).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func main() {
	fmt.Println("Reading config file...")
	cfg, err := readConfigFile()
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println("Setting up logger...")
	sugar, err := setupLogger(&cfg)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer sugar.Sync()

	fmt.Println("Connecting to database...")
	db, err := database.Setup(&cfg)
	if err != nil {
		sugar.Fatal(err)
	}

	var redisClient *redis.Client
	if !cfg.SelfContained {
		fmt.Println("Connecting to redis...")
		redisClient, err = setupRedis(&cfg)
		if err != nil {
			sugar.Fatal(err)
		}
	}
	keyValue.Setup(sugar, redisClient, cfg.SelfContained)

	err = snowflake.Setup(cfg.SnowflakeWorkerID)
	if err != nil {
		sugar.Fatal(err)
	}

	isHttps := cfg.TlsCert != "" && cfg.TlsKey != ""
	jwt.Setup(cfg.JwtSecret, isHttps)

	files, err := blob.NewDiskStore(cfg.FilesDir, cfg.FileSignSecret, sugar)
	if err != nil {
		sugar.Fatal(err)
	}

	registry := hub.New(sugar)
	authority := membership.New(db, sugar)
	messages := store.NewMessageStore(db)
	pipeline := ingest.New(messages, authority, messages, registry, sugar)
	realtime := gateway.New(jwt.Authenticator{}, authority, registry, sugar)

	// close live connections on shutdown; messages are durable before they
	// are broadcast, so in-flight fan-outs may be abandoned
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		sugar.Info("Shutting down, closing realtime connections")
		registry.Shutdown()
		os.Exit(0)
	}()

	var httpProtocol string
	if isHttps {
		httpProtocol = "https"
	} else {
		httpProtocol = "http"
	}
	fmt.Printf("Server is running on %s://%s:%s\n", httpProtocol, cfg.Address, cfg.Port)

	err = handlers.Setup(isHttps, handlers.Deps{
		Cfg:       &cfg,
		Sugar:     sugar,
		DB:        db,
		Registry:  registry,
		Authority: authority,
		Messages:  messages,
		Pipeline:  pipeline,
		Files:     files,
		Realtime:  realtime,
	})
	if err != nil {
		sugar.Fatal(err)
	}
}
