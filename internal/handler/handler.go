package handler

import (
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/repository"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/trigger"
)

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	translator  ut.Translator
	fetcher     trigger.ScheduleFetcher
	engine      trigger.Generator
	locker      trigger.Locker
	redisClient *redis.Client
	tz          *time.Location

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, fetcher trigger.ScheduleFetcher, engine trigger.Generator, locker trigger.Locker, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	tz, err := time.LoadLocation(cfg.Trigger.Timezone)
	if err != nil {
		return nil, fmt.Errorf("无法加载时区 %q: %w", cfg.Trigger.Timezone, err)
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		fetcher:     fetcher,
		engine:      engine,
		locker:      locker,
		redisClient: rdb,
		tz:          tz,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Route("/shift-generation", func(r chi.Router) {
		// 在定时任务之外手动执行一次生成
		r.Post("/trigger", h.TriggerGeneration)
		// 运维诊断
		r.Get("/diagnosis", h.GetAggregateDiagnosis)
		r.Get("/contracts/{id}/diagnosis", h.GetContractDiagnosis)
	})
}
