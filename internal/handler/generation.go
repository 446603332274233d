package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/generator"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/repository"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/trigger"
)

// TriggerGeneration 在定时任务之外手动执行一次生成
func (h *Handler) TriggerGeneration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID     int64   `json:"actorID" validate:"required"`
		TemplateIDs []int64 `json:"templateIDs" validate:"required,min=1"`
		FromDate    string  `json:"fromDate" validate:"omitempty,datetime=2006-01-02"`
		Days        int     `json:"days" validate:"omitempty,min=1,max=366"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 校验操作人及其权限
	actor, err := h.repository.GetUserByID(req.ActorID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "操作人不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}
	if !actor.CanGenerateShifts() {
		h.errorResponse(w, r, "该用户没有生成班次的权限")
		return
	}

	// 模板必须属于同一个合同
	contractID, err := h.repository.GetContractIDForTemplates(req.TemplateIDs)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "排班模板不存在")
		case errors.Is(err, repository.ErrTemplatesAcrossContracts):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 与定时任务共用合同级生成锁，避免两边同时生成
	acquired, err := h.locker.Acquire(r.Context(), contractID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !acquired {
		h.errorResponse(w, r, "该合同已有生成任务在进行")
		return
	}
	defer func() {
		if err := h.locker.Release(context.WithoutCancel(r.Context()), contractID); err != nil {
			slog.Warn("生成锁释放失败", "contractID", contractID, "error", err)
		}
	}()

	reply, err := h.fetcher.FetchContractSchedule(r.Context(), contractID)
	if err != nil {
		h.errorResponse(w, r, "无法拉取合同排班信息: "+err.Error())
		return
	}

	window, err := h.manualWindow(reply.Contract, req.FromDate, req.Days)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	result, err := h.engine.Generate(r.Context(), &generator.Input{
		Contract:    reply.Contract,
		Templates:   reply.Templates,
		Locations:   reply.Locations,
		Window:      window,
		ActorID:     actor.ID,
		TemplateIDs: req.TemplateIDs,
	})
	if err != nil {
		switch {
		case errors.Is(err, generator.ErrNoTemplates):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "生成完成", result)
}

// manualWindow 计算手动触发的生成窗口：fromDate 覆盖起点，days 覆盖推进天数，
// 都不传时与定时任务的规则一致
func (h *Handler) manualWindow(contract *domain.Contract, fromDate string, days int) (domain.GenerationWindow, error) {
	today := generator.DateOnly(time.Now().In(h.tz))

	advanceDays := h.config.Trigger.AdvanceDays
	if days > 0 {
		advanceDays = days
	}

	var latest *time.Time
	if fromDate != "" {
		from, err := time.ParseInLocation("2006-01-02", fromDate, h.tz)
		if err != nil {
			return domain.GenerationWindow{}, errors.New("无效的起始日期")
		}
		// 复用窗口算法：起点的前一天视作已有最晚班次
		dayBefore := from.AddDate(0, 0, -1)
		latest = &dayBefore
		today = from
	} else {
		var err error
		latest, err = h.repository.GetLatestShiftDate(contract.ID)
		if err != nil {
			return domain.GenerationWindow{}, err
		}
	}

	window, ok := generator.ComputeWindow(latest, today, advanceDays, contract.EndDate)
	if !ok {
		return domain.GenerationWindow{}, errors.New("生成窗口为空，班次可能已生成至合同结束日")
	}

	return window, nil
}

// GetContractDiagnosis 返回单个合同的生成诊断信息
func (h *Handler) GetContractDiagnosis(w http.ResponseWriter, r *http.Request) {
	contractIDParam := chi.URLParam(r, "id")
	contractID, err := strconv.ParseInt(contractIDParam, 10, 64)
	if err != nil {
		h.errorResponse(w, r, "合同ID无效")
		return
	}

	reply, err := h.fetcher.FetchContractSchedule(r.Context(), contractID)
	if err != nil {
		h.errorResponse(w, r, "无法拉取合同排班信息: "+err.Error())
		return
	}

	stats, err := h.repository.GetShiftStatistics(contractID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	today := generator.DateOnly(time.Now().In(h.tz))

	daysRemaining := 0
	if stats.LatestDate != nil {
		latest := generator.DateOnly((*stats.LatestDate).In(h.tz))
		if latest.After(today) {
			daysRemaining = int(latest.Sub(today).Hours() / 24)
		}
	}

	hasActiveTemplate := false
	for _, template := range reply.Templates {
		if template.IsActive {
			hasActiveTemplate = true
			break
		}
	}

	willTrigger, reason := trigger.Evaluate(reply.Contract, hasActiveTemplate, stats.LatestDate, today, h.config.Trigger.LookaheadDays, h.config.Trigger.AdvanceDays)

	h.successResponse(w, r, "", map[string]any{
		"contract":  reply.Contract,
		"templates": reply.Templates,
		"statistics": map[string]any{
			"count":         stats.Count,
			"earliestDate":  stats.EarliestDate,
			"latestDate":    stats.LatestDate,
			"daysRemaining": daysRemaining,
		},
		"willTrigger": willTrigger,
		"reason":      reason,
	})
}

const aggregateDiagnosisCacheKey = "shift_generation_diagnosis"

// GetAggregateDiagnosis 返回生成子系统的全局诊断信息，结果在 redis 中短暂缓存
func (h *Handler) GetAggregateDiagnosis(w http.ResponseWriter, r *http.Request) {
	cached, err := h.redisClient.Get(r.Context(), aggregateDiagnosisCacheKey).Bytes()
	if err == nil {
		h.successResponse(w, r, "", json.RawMessage(cached))
		return
	}
	if !errors.Is(err, redis.Nil) {
		// 缓存不可用时直接回源
		slog.Warn("诊断缓存读取失败", "error", err)
	}

	now := time.Now().In(h.tz)
	today := generator.DateOnly(now)

	activeTemplates, err := h.repository.CountActiveTemplates()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	needingGeneration, err := h.repository.CountContractsNeedingGeneration(today.AddDate(0, 0, h.config.Trigger.LookaheadDays))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	createdLast24h, err := h.repository.CountShiftsCreatedSince(now.Add(-24 * time.Hour))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	createdLast7d, err := h.repository.CountShiftsCreatedSince(now.AddDate(0, 0, -7))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	permitted, err := h.repository.GetUsersWithGenerationPermission()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	data := map[string]any{
		"activeTemplates":            activeTemplates,
		"contractsNeedingGeneration": needingGeneration,
		"shiftsCreatedLast24h":       createdLast24h,
		"shiftsCreatedLast7d":        createdLast7d,
		"permittedUsers":             len(permitted),
	}

	if body, err := json.Marshal(data); err == nil {
		expiration := time.Duration(h.config.Redis.DiagnosisCacheExpiration) * time.Second
		if err := h.redisClient.Set(r.Context(), aggregateDiagnosisCacheKey, body, expiration).Err(); err != nil {
			slog.Warn("诊断缓存写入失败", "error", err)
		}
	}

	h.successResponse(w, r, "", data)
}
