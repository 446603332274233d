package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/event"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/generator"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/handler"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/lookup"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/repository"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/trigger"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	pingCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// 数据表由合同管理服务负责建立，这里只验证库确实可用，
	// 库不可用时直接拒绝启动而不是带病运行
	if err := dbpool.PingContext(pingCtx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	/**********************************************
	 * 创建 repository
	 **********************************************/
	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 连接 rabbitmq
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 rabbitmq", "error", err)
		return
	}
	defer conn.Close()

	// 查询和事件各用一个通道
	lookupCh, err := conn.Channel()
	if err != nil {
		logger.Error("无法建立通道", "error", err)
		return
	}
	defer lookupCh.Close()

	eventCh, err := conn.Channel()
	if err != nil {
		logger.Error("无法建立通道", "error", err)
		return
	}
	defer eventCh.Close()

	lookupClient, err := lookup.NewClient(cfg, lookupCh)
	if err != nil {
		logger.Error("无法创建查询客户端", "error", err)
		return
	}

	publisher, err := event.NewPublisher(cfg, eventCh)
	if err != nil {
		logger.Error("无法创建事件发布器", "error", err)
		return
	}

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	/**********************************************
	 * 创建生成引擎和定时触发器
	 **********************************************/
	engine := generator.NewEngine(repo, lookupClient, lookupClient, publisher)
	locker := trigger.NewRedisLocker(cfg, rdb)

	trig, err := trigger.New(cfg, repo, lookupClient, engine, locker)
	if err != nil {
		logger.Error("无法创建定时触发器", "error", err)
		return
	}

	triggerCtx, stopTrigger := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		trig.Run(triggerCtx)
	}()

	/**********************************************
	 * 启动 HTTP 服务器
	 **********************************************/
	hdl, err := handler.NewHandler(cfg, repo, lookupClient, engine, locker, rdb)
	if err != nil {
		logger.Error("无法创建 handler", "error", err)
		stopTrigger()
		return
	}
	hdl.RegisterRoutes()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      hdl.Mux,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("正在启动服务器...", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("无法启动服务器", slog.String("error", err.Error()))
			return
		}
	}()

	<-quit
	logger.Info("正在关闭服务器...")

	// 先停定时循环，取消会立刻打断正在进行的等待
	stopTrigger()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭服务器失败", slog.String("error", err.Error()))
	}
	logger.Info("服务器已成功关闭")
}
