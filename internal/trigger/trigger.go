package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/generator"
)

type Store interface {
	GetContractsNeedingGeneration(before time.Time) ([]*domain.GenerationCandidate, error)
	GetUserByID(id int64) (*domain.User, error)
	GetUsersWithGenerationPermission() ([]*domain.User, error)
}

type ScheduleFetcher interface {
	FetchContractSchedule(ctx context.Context, contractID int64) (*domain.ContractScheduleReply, error)
}

type Generator interface {
	Generate(ctx context.Context, input *generator.Input) (*domain.GenerationResult, error)
}

type Locker interface {
	Acquire(ctx context.Context, contractID int64) (bool, error)
	Release(ctx context.Context, contractID int64) error
}

// RunSummary 汇总一轮定时生成的处理结果
type RunSummary struct {
	Total         int      `json:"total"`
	Succeeded     int      `json:"succeeded"`
	Skipped       int      `json:"skipped"`
	Failed        int      `json:"failed"`
	CreatedShifts int      `json:"createdShifts"`
	Failures      []string `json:"failures"`
}

// Trigger 是每天在固定时刻醒来一次的常驻循环，
// 负责发现需要补充班次的合同并逐个调用生成引擎
type Trigger struct {
	cfg     *config.Config
	store   Store
	fetcher ScheduleFetcher
	engine  Generator
	locker  Locker

	tz        *time.Location
	runHour   int
	runMinute int
	now       func() time.Time
}

func New(cfg *config.Config, store Store, fetcher ScheduleFetcher, engine Generator, locker Locker) (*Trigger, error) {
	tz, err := time.LoadLocation(cfg.Trigger.Timezone)
	if err != nil {
		return nil, fmt.Errorf("无法加载时区 %q: %w", cfg.Trigger.Timezone, err)
	}

	var runHour, runMinute int
	if _, err := fmt.Sscanf(cfg.Trigger.RunAt, "%d:%d", &runHour, &runMinute); err != nil {
		return nil, fmt.Errorf("无效的触发时刻 %q: %w", cfg.Trigger.RunAt, err)
	}
	if runHour < 0 || runHour > 23 || runMinute < 0 || runMinute > 59 {
		return nil, fmt.Errorf("无效的触发时刻 %q", cfg.Trigger.RunAt)
	}

	return &Trigger{
		cfg:       cfg,
		store:     store,
		fetcher:   fetcher,
		engine:    engine,
		locker:    locker,
		tz:        tz,
		runHour:   runHour,
		runMinute: runMinute,
		now:       time.Now,
	}, nil
}

// NextRunTime 计算下一次触发时刻：当天的触发时刻还没过就取当天，否则取次日
func NextRunTime(now time.Time, runHour int, runMinute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), runHour, runMinute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run 阻塞运行触发循环，直到 ctx 被取消。取消会立刻打断等待
func (t *Trigger) Run(ctx context.Context) {
	for {
		now := t.now().In(t.tz)
		next := NextRunTime(now, t.runHour, t.runMinute)
		slog.Info("等待下一次定时生成", "next", next.Format(time.RFC3339))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("定时生成循环已退出")
			return
		case <-timer.C:
		}

		summary, err := t.RunOnce(ctx)
		if err != nil {
			// 致命错误（例如数据库不可用）等下一次触发或手动触发时重试
			slog.Error("本轮定时生成失败", "error", err)
			continue
		}

		slog.Info("本轮定时生成结束",
			"total", summary.Total,
			"succeeded", summary.Succeeded,
			"skipped", summary.Skipped,
			"failed", summary.Failed,
			"createdShifts", summary.CreatedShifts,
		)
	}
}

// RunOnce 执行一轮完整的发现与生成。单个合同的失败只计入汇总，
// 不影响其余合同的处理
func (t *Trigger) RunOnce(ctx context.Context) (*RunSummary, error) {
	today := generator.DateOnly(t.now().In(t.tz))
	before := today.AddDate(0, 0, t.cfg.Trigger.LookaheadDays)

	candidates, err := t.store.GetContractsNeedingGeneration(before)
	if err != nil {
		return nil, fmt.Errorf("无法查询待生成的合同: %w", err)
	}

	summary := &RunSummary{
		Total:    len(candidates),
		Failures: make([]string, 0),
	}

	for _, candidate := range candidates {
		// 进程关停时不再处理剩余合同
		if ctx.Err() != nil {
			break
		}

		result, skipReason, err := t.processContract(ctx, candidate, today)
		switch {
		case err != nil:
			summary.Failed++
			summary.Failures = append(summary.Failures, fmt.Sprintf("合同 %d: %v", candidate.ContractID, err))
			slog.Error("合同生成失败", "contractID", candidate.ContractID, "error", err)
		case skipReason != "":
			summary.Skipped++
			slog.Info("合同本轮跳过", "contractID", candidate.ContractID, "reason", skipReason)
		default:
			summary.Succeeded++
			summary.CreatedShifts += result.CreatedCount
			slog.Info("合同生成完成",
				"contractID", candidate.ContractID,
				"created", result.CreatedCount,
				"skipped", result.SkippedCount,
				"errors", len(result.Errors),
			)
		}
	}

	return summary, nil
}

// processContract 处理单个候选合同，返回生成结果或跳过原因
func (t *Trigger) processContract(ctx context.Context, candidate *domain.GenerationCandidate, today time.Time) (*domain.GenerationResult, string, error) {
	acquired, err := t.locker.Acquire(ctx, candidate.ContractID)
	if err != nil {
		return nil, "", fmt.Errorf("无法获取生成锁: %w", err)
	}
	if !acquired {
		return nil, "已有生成任务在进行", nil
	}
	defer func() {
		if err := t.locker.Release(context.WithoutCancel(ctx), candidate.ContractID); err != nil {
			slog.Warn("生成锁释放失败", "contractID", candidate.ContractID, "error", err)
		}
	}()

	// 合同的排班信息是生成的前提，拉取失败时该合同本轮按失败处理
	reply, err := t.fetcher.FetchContractSchedule(ctx, candidate.ContractID)
	if err != nil {
		return nil, "", fmt.Errorf("无法拉取合同排班信息: %w", err)
	}

	contract := reply.Contract
	switch {
	case !contract.IsActive:
		return nil, "合同未启用", nil
	case generator.DateOnly(contract.EndDate.In(today.Location())).Before(today):
		return nil, "合同已过期", nil
	case !contract.AutoGenerate:
		return nil, "合同未开启自动生成", nil
	}

	window, ok := generator.ComputeWindow(candidate.LatestShiftDate, today, t.cfg.Trigger.AdvanceDays, contract.EndDate)
	if !ok {
		return nil, "班次已生成至合同结束日", nil
	}

	actor, err := t.resolveActor(contract)
	if err != nil {
		return nil, "", err
	}

	result, err := t.engine.Generate(ctx, &generator.Input{
		Contract:  contract,
		Templates: reply.Templates,
		Locations: reply.Locations,
		Window:    window,
		ActorID:   actor.ID,
	})
	if err != nil {
		return nil, "", err
	}

	return result, "", nil
}

// resolveActor 确定本次生成的责任人：优先使用合同的客户经理，
// 经理没有生成权限时退回到任意一个有权限的用户
func (t *Trigger) resolveActor(contract *domain.Contract) (*domain.User, error) {
	manager, err := t.store.GetUserByID(contract.ManagerID)
	if err == nil && manager.CanGenerateShifts() {
		return manager, nil
	}

	permitted, err := t.store.GetUsersWithGenerationPermission()
	if err != nil {
		return nil, fmt.Errorf("无法查询具有生成权限的用户: %w", err)
	}
	if len(permitted) == 0 {
		return nil, errors.New("没有具有生成权限的用户")
	}

	return permitted[0], nil
}

// Evaluate 判断定时任务是否会为该合同触发生成，供诊断接口使用
func Evaluate(contract *domain.Contract, hasActiveTemplate bool, latest *time.Time, today time.Time, lookaheadDays int, advanceDays int) (bool, string) {
	today = generator.DateOnly(today)

	switch {
	case !contract.IsActive:
		return false, "合同未启用"
	case generator.DateOnly(contract.EndDate.In(today.Location())).Before(today):
		return false, "合同已过期"
	case !contract.AutoGenerate:
		return false, "合同未开启自动生成"
	case !hasActiveTemplate:
		return false, "没有启用的排班模板"
	}

	if latest != nil && generator.DateOnly((*latest).In(today.Location())).After(today.AddDate(0, 0, lookaheadDays)) {
		return false, "剩余班次充足"
	}

	if _, ok := generator.ComputeWindow(latest, today, advanceDays, contract.EndDate); !ok {
		return false, "班次已生成至合同结束日"
	}

	return true, "满足触发条件"
}
