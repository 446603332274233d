package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/domain"
)

// ErrNoTemplates 表示合同下没有任何可用的排班模板，本次调用无法生成，
// 重试也不会成功
var ErrNoTemplates = errors.New("没有可用于生成的排班模板")

type ShiftStore interface {
	GetShiftKeysInWindow(contractID int64, from time.Time, to time.Time) (map[string]struct{}, error)
	CreateShift(shift *domain.Shift) error
}

type HolidayResolver interface {
	CheckHoliday(ctx context.Context, date time.Time) (*domain.HolidayCheckReply, error)
}

type ClosureResolver interface {
	CheckLocationClosed(ctx context.Context, locationID int64, date time.Time) (*domain.LocationClosedReply, error)
}

type EventPublisher interface {
	PublishGenerationCompleted(ctx context.Context, event *domain.GenerationCompletedEvent) error
}

// Engine 把排班模板在一个日期窗口内物化为具体班次
type Engine struct {
	store    ShiftStore
	holidays HolidayResolver
	closures ClosureResolver
	events   EventPublisher // 可以为 nil，此时不发布完成事件
}

func NewEngine(store ShiftStore, holidays HolidayResolver, closures ClosureResolver, events EventPublisher) *Engine {
	return &Engine{
		store:    store,
		holidays: holidays,
		closures: closures,
		events:   events,
	}
}

// Input 是一次物化调用的全部输入，模板和驻点由调用方一次性取好
type Input struct {
	Contract    *domain.Contract
	Templates   []*domain.ShiftTemplate
	Locations   []*domain.Location
	Window      domain.GenerationWindow
	ActorID     int64
	TemplateIDs []int64 // 手动触发时限定的模板，为空表示全部
}

func (e *Engine) Generate(ctx context.Context, input *Input) (*domain.GenerationResult, error) {
	templates := e.selectTemplates(input)
	if len(templates) == 0 {
		return nil, ErrNoTemplates
	}

	result := &domain.GenerationResult{
		ContractID:  input.Contract.ID,
		Window:      input.Window,
		CreatedIDs:  make([]int64, 0),
		SkipReasons: make([]domain.SkipReason, 0),
		Errors:      make([]string, 0),
	}

	// 一次性取出窗口内已有的班次键用于去重，本次新建的键也会加入这个集合，
	// 防止两个时间段相同的模板在同一驻点重复建班
	existing, err := e.store.GetShiftKeysInWindow(input.Contract.ID, input.Window.From, input.Window.To)
	if err != nil {
		return nil, fmt.Errorf("无法读取已有班次: %w", err)
	}

	// 整个窗口的节假日信息在进入主循环前一次性解析好，
	// 主循环内只查表，后续换成批量查询时这里是唯一需要改动的地方
	holidayByDate := e.resolveHolidays(ctx, input.Window)

	// 每个模板只构建一次星期适用表
	weekdayTables := make(map[int64][8]bool, len(templates))
	for _, template := range templates {
		weekdayTables[template.ID] = template.WeekdayTable()
	}

	// 同一天对同一驻点的闭馆查询只发一次
	closureCache := make(map[string]*domain.LocationClosedReply)

	for date := input.Window.From; date.Before(input.Window.To); date = date.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		holiday := holidayByDate[date.Format("2006-01-02")]
		weekday := WeekdayNumber(date)

		for _, template := range templates {
			if !template.EffectiveOn(date) {
				continue
			}

			// 单个 (模板, 日期) 的失败只记录，不中断整个合同的生成
			if err := e.expandTemplate(ctx, input, template, weekdayTables[template.ID], date, weekday, holiday, existing, closureCache, result); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("模板 %d 日期 %s: %v", template.ID, date.Format("2006-01-02"), err))
			}
		}
	}

	if result.CreatedCount > 0 && e.events != nil {
		event := &domain.GenerationCompletedEvent{
			ContractID:   result.ContractID,
			From:         result.Window.From.Format("2006-01-02"),
			To:           result.Window.To.Format("2006-01-02"),
			CreatedCount: result.CreatedCount,
			SkippedCount: result.SkippedCount,
			SkipReasons:  result.DistinctSkipReasons(),
			GeneratedAt:  time.Now(),
		}
		if err := e.events.PublishGenerationCompleted(ctx, event); err != nil {
			// 事件发布失败不影响已经落库的班次
			slog.Warn("生成完成事件发布失败", "contractID", result.ContractID, "error", err)
		}
	}

	return result, nil
}

// selectTemplates 过滤出启用的模板，手动触发时再按传入的模板 ID 过滤
func (e *Engine) selectTemplates(input *Input) []*domain.ShiftTemplate {
	templates := make([]*domain.ShiftTemplate, 0, len(input.Templates))

	for _, template := range input.Templates {
		if !template.IsActive {
			continue
		}
		if len(input.TemplateIDs) > 0 && !slices.Contains(input.TemplateIDs, template.ID) {
			continue
		}
		templates = append(templates, template)
	}

	return templates
}

// resolveHolidays 解析窗口内每一天的节假日状态，
// 单日查询失败时降级为非节假日并记录警告，不中断生成
func (e *Engine) resolveHolidays(ctx context.Context, window domain.GenerationWindow) map[string]*domain.HolidayCheckReply {
	holidayByDate := make(map[string]*domain.HolidayCheckReply, window.Days())

	for date := window.From; date.Before(window.To); date = date.AddDate(0, 0, 1) {
		reply, err := e.holidays.CheckHoliday(ctx, date)
		if err != nil {
			slog.Warn("节假日查询失败，默认按非节假日处理", "date", date.Format("2006-01-02"), "error", err)
			reply = &domain.HolidayCheckReply{}
		}
		holidayByDate[date.Format("2006-01-02")] = reply
	}

	return holidayByDate
}

func (e *Engine) expandTemplate(
	ctx context.Context,
	input *Input,
	template *domain.ShiftTemplate,
	weekdayTable [8]bool,
	date time.Time,
	weekday int,
	holiday *domain.HolidayCheckReply,
	existing map[string]struct{},
	closureCache map[string]*domain.LocationClosedReply,
	result *domain.GenerationResult,
) error {
	// 确定目标驻点：绑定了驻点的模板只作用于该驻点，否则作用于合同下所有驻点
	locations := make([]*domain.Location, 0, len(input.Locations))
	for _, location := range input.Locations {
		if template.AppliesTo(location.ID) {
			locations = append(locations, location)
		}
	}
	if template.LocationID != nil && len(locations) == 0 {
		return fmt.Errorf("模板绑定的驻点 %d 不在合同驻点列表中", *template.LocationID)
	}

	skip := func(locationID int64, reason string) {
		result.SkippedCount++
		result.SkipReasons = append(result.SkipReasons, domain.SkipReason{
			Date:       date,
			LocationID: locationID,
			TemplateID: template.ID,
			Reason:     reason,
		})
	}

	for _, location := range locations {
		if !weekdayTable[weekday] {
			skip(location.ID, fmt.Sprintf("模板「%s」不适用于%s", template.Name, weekdayName(weekday)))
			continue
		}

		if holiday != nil && holiday.IsHoliday && !template.AppliesOnHolidays {
			skip(location.ID, fmt.Sprintf("节假日「%s」不排班", holiday.Name))
			continue
		}

		if (weekday == 6 || weekday == 7) && !template.AppliesOnWeekends {
			skip(location.ID, fmt.Sprintf("模板「%s」周末不排班", template.Name))
			continue
		}

		if template.SkipWhenLocationClosed {
			closed := e.checkClosure(ctx, closureCache, location.ID, date)
			if closed != nil && closed.IsClosed {
				reason := closed.Reason
				if reason == "" {
					reason = "闭馆"
				}
				skip(location.ID, fmt.Sprintf("驻点「%s」当日关闭: %s", location.Name, reason))
				continue
			}
		}

		start, end, err := shiftTimes(template, date)
		if err != nil {
			return err
		}

		key := domain.ShiftKey(location.ID, date, start, end)
		if _, exists := existing[key]; exists {
			// 已有同键班次属于正常的稳态情况，静默跳过
			continue
		}

		shift := buildShift(input, template, location, date, start, end)
		if err := e.store.CreateShift(shift); err != nil {
			return fmt.Errorf("班次入库失败: %w", err)
		}

		existing[key] = struct{}{}
		result.CreatedIDs = append(result.CreatedIDs, shift.ID)
		result.CreatedCount++
	}

	return nil
}

// checkClosure 查询驻点闭馆状态，查询失败时降级为未闭馆（宁可多排不可漏排）
func (e *Engine) checkClosure(ctx context.Context, cache map[string]*domain.LocationClosedReply, locationID int64, date time.Time) *domain.LocationClosedReply {
	cacheKey := strconv.FormatInt(locationID, 10) + "|" + date.Format("2006-01-02")
	if reply, exists := cache[cacheKey]; exists {
		return reply
	}

	reply, err := e.closures.CheckLocationClosed(ctx, locationID, date)
	if err != nil {
		slog.Warn("驻点闭馆查询失败，默认按未闭馆处理", "locationID", locationID, "date", date.Format("2006-01-02"), "error", err)
		reply = &domain.LocationClosedReply{}
	}

	cache[cacheKey] = reply
	return reply
}

func parseClock(value string) (int, int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("无效的时刻 %q", value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("无效的时刻 %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("无效的时刻 %q", value)
	}

	return hour, minute, nil
}

// shiftTimes 把模板的时刻字段落到具体日期上，跨天模板的结束时间顺延一天
func shiftTimes(template *domain.ShiftTemplate, date time.Time) (time.Time, time.Time, error) {
	startHour, startMinute, err := parseClock(template.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endHour, endMinute, err := parseClock(template.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	start := time.Date(date.Year(), date.Month(), date.Day(), startHour, startMinute, 0, 0, date.Location())
	end := time.Date(date.Year(), date.Month(), date.Day(), endHour, endMinute, 0, 0, date.Location())
	if template.CrossesMidnight {
		end = end.AddDate(0, 0, 1)
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("结束时刻 %s 不晚于开始时刻 %s", template.EndTime, template.StartTime)
	}

	return start, end, nil
}

func buildShift(input *Input, template *domain.ShiftTemplate, location *domain.Location, date time.Time, start time.Time, end time.Time) *domain.Shift {
	totalMinutes := int32(end.Sub(start).Minutes())
	workMinutes := totalMinutes - template.BreakMinutes
	if workMinutes < 0 {
		workMinutes = 0
	}

	nightHours, dayHours := SplitNightDay(start, end)

	shift := &domain.Shift{
		ContractID:     input.Contract.ID,
		LocationID:     location.ID,
		ShiftDate:      date,
		StartTime:      start,
		EndTime:        end,
		TotalMinutes:   totalMinutes,
		BreakMinutes:   template.BreakMinutes,
		WorkMinutes:    workMinutes,
		NightHours:     nightHours,
		DayHours:       dayHours,
		GuardsRequired: template.GuardsPerShift,
		GuardsAssigned: 0,
		Status:         domain.ShiftStatusScheduled,
		CreatedBy:      input.ActorID,
	}
	FillDateParts(shift, date)

	return shift
}

var weekdayNames = [8]string{"", "周一", "周二", "周三", "周四", "周五", "周六", "周日"}

func weekdayName(weekday int) string {
	return weekdayNames[weekday]
}
