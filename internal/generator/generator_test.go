package generator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/domain"
)

type fakeStore struct {
	existing  map[string]struct{}
	created   []*domain.Shift
	nextID    int64
	keysErr   error
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{existing: make(map[string]struct{})}
}

func (s *fakeStore) GetShiftKeysInWindow(contractID int64, from time.Time, to time.Time) (map[string]struct{}, error) {
	if s.keysErr != nil {
		return nil, s.keysErr
	}
	keys := make(map[string]struct{}, len(s.existing))
	for key := range s.existing {
		keys[key] = struct{}{}
	}
	return keys, nil
}

func (s *fakeStore) CreateShift(shift *domain.Shift) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	shift.ID = s.nextID
	s.existing[shift.Key()] = struct{}{}
	s.created = append(s.created, shift)
	return nil
}

type fakeHolidays struct {
	byDate map[string]*domain.HolidayCheckReply
	err    error
	calls  int
}

func (h *fakeHolidays) CheckHoliday(ctx context.Context, date time.Time) (*domain.HolidayCheckReply, error) {
	h.calls++
	if h.err != nil {
		return nil, h.err
	}
	if reply, exists := h.byDate[date.Format("2006-01-02")]; exists {
		return reply, nil
	}
	return &domain.HolidayCheckReply{}, nil
}

type fakeClosures struct {
	byKey map[string]*domain.LocationClosedReply
	err   error
	calls int
}

func (c *fakeClosures) CheckLocationClosed(ctx context.Context, locationID int64, date time.Time) (*domain.LocationClosedReply, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	key := fmt.Sprintf("%d|%s", locationID, date.Format("2006-01-02"))
	if reply, exists := c.byKey[key]; exists {
		return reply, nil
	}
	return &domain.LocationClosedReply{}, nil
}

type fakePublisher struct {
	events []*domain.GenerationCompletedEvent
	err    error
}

func (p *fakePublisher) PublishGenerationCompleted(ctx context.Context, event *domain.GenerationCompletedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func testContract() *domain.Contract {
	return &domain.Contract{
		ID:           1,
		Name:         "测试合同",
		ManagerID:    10,
		StartDate:    day(2026, 1, 1),
		EndDate:      day(2026, 12, 31),
		IsActive:     true,
		AutoGenerate: true,
	}
}

// 工作日白班模板：周一到周五 08:00-17:00，休息 60 分钟
func dayShiftTemplate(id int64) *domain.ShiftTemplate {
	return &domain.ShiftTemplate{
		ID:               id,
		ContractID:       1,
		Name:             "白班",
		StartTime:        "08:00",
		EndTime:          "17:00",
		BreakMinutes:     60,
		GuardsPerShift:   2,
		AppliesMonday:    true,
		AppliesTuesday:   true,
		AppliesWednesday: true,
		AppliesThursday:  true,
		AppliesFriday:    true,
		EffectiveFrom:    day(2020, 1, 1),
		ScheduleType:     "固定班",
		IsActive:         true,
	}
}

type testEnv struct {
	store    *fakeStore
	holidays *fakeHolidays
	closures *fakeClosures
	events   *fakePublisher
	engine   *Engine
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store:    newFakeStore(),
		holidays: &fakeHolidays{byDate: make(map[string]*domain.HolidayCheckReply)},
		closures: &fakeClosures{byKey: make(map[string]*domain.LocationClosedReply)},
		events:   &fakePublisher{},
	}
	env.engine = NewEngine(env.store, env.holidays, env.closures, env.events)
	return env
}

func (env *testEnv) input(templates ...*domain.ShiftTemplate) *Input {
	return &Input{
		Contract:  testContract(),
		Templates: templates,
		Locations: []*domain.Location{{ID: 100, ContractID: 1, Name: "东门岗"}},
		// 2026-01-05 是周一，一周窗口覆盖周一到周日
		Window:  domain.GenerationWindow{From: day(2026, 1, 5), To: day(2026, 1, 12)},
		ActorID: 10,
	}
}

func TestGenerateWeekdayTemplateOverOneWeek(t *testing.T) {
	env := newTestEnv()

	result, err := env.engine.Generate(context.Background(), env.input(dayShiftTemplate(1)))

	require.NoError(t, err)
	assert.Equal(t, 5, result.CreatedCount)
	assert.Len(t, result.CreatedIDs, 5)
	assert.Equal(t, 2, result.SkippedCount) // 周六和周日
	assert.Empty(t, result.Errors)

	for _, shift := range env.store.created {
		assert.Equal(t, int32(540), shift.TotalMinutes)
		assert.Equal(t, int32(480), shift.WorkMinutes)
		assert.Equal(t, float64(0), shift.NightHours)
		assert.Equal(t, float64(9), shift.DayHours)
		assert.Equal(t, domain.ShiftStatusScheduled, shift.Status)
		assert.Equal(t, int64(10), shift.CreatedBy)
	}

	require.Len(t, env.events.events, 1)
	event := env.events.events[0]
	assert.Equal(t, int64(1), event.ContractID)
	assert.Equal(t, 5, event.CreatedCount)
	assert.Equal(t, 2, event.SkippedCount)
	assert.Len(t, event.SkipReasons, 2) // 周六和周日各一条，去重后仍是两条不同原因
}

func TestGenerateSkipsHolidayWithName(t *testing.T) {
	env := newTestEnv()
	env.holidays.byDate["2026-01-07"] = &domain.HolidayCheckReply{IsHoliday: true, Name: "腊八节", Category: "法定节假日"}

	result, err := env.engine.Generate(context.Background(), env.input(dayShiftTemplate(1)))

	require.NoError(t, err)
	assert.Equal(t, 4, result.CreatedCount)

	var holidaySkip *domain.SkipReason
	for i := range result.SkipReasons {
		if result.SkipReasons[i].Date.Equal(day(2026, 1, 7)) {
			holidaySkip = &result.SkipReasons[i]
		}
	}
	require.NotNil(t, holidaySkip)
	assert.Contains(t, holidaySkip.Reason, "腊八节")
}

func TestGenerateHolidayAllowedWhenTemplateAppliesOnHolidays(t *testing.T) {
	env := newTestEnv()
	env.holidays.byDate["2026-01-07"] = &domain.HolidayCheckReply{IsHoliday: true, Name: "腊八节"}

	template := dayShiftTemplate(1)
	template.AppliesOnHolidays = true

	result, err := env.engine.Generate(context.Background(), env.input(template))

	require.NoError(t, err)
	assert.Equal(t, 5, result.CreatedCount)
}

func TestGenerateWeekendGate(t *testing.T) {
	template := dayShiftTemplate(1)
	template.AppliesSaturday = true
	template.AppliesSunday = true

	env := newTestEnv()
	result, err := env.engine.Generate(context.Background(), env.input(template))
	require.NoError(t, err)
	// 星期表适用但未开启周末排班，周六周日仍被排除
	assert.Equal(t, 5, result.CreatedCount)
	assert.Equal(t, 2, result.SkippedCount)

	template.AppliesOnWeekends = true
	env = newTestEnv()
	result, err = env.engine.Generate(context.Background(), env.input(template))
	require.NoError(t, err)
	assert.Equal(t, 7, result.CreatedCount)
	assert.Equal(t, 0, result.SkippedCount)
}

func TestGenerateHolidayLookupFailureDegradesOpen(t *testing.T) {
	env := newTestEnv()
	env.holidays.err = errors.New("查询超时")

	result, err := env.engine.Generate(context.Background(), env.input(dayShiftTemplate(1)))

	// 节假日查询失败按非节假日处理，生成照常进行
	require.NoError(t, err)
	assert.Equal(t, 5, result.CreatedCount)
	assert.Empty(t, result.Errors)
}

func TestGenerateClosureSkipAndFailOpen(t *testing.T) {
	template := dayShiftTemplate(1)
	template.SkipWhenLocationClosed = true

	env := newTestEnv()
	env.closures.byKey["100|2026-01-06"] = &domain.LocationClosedReply{IsClosed: true, Reason: "馆内检修"}

	result, err := env.engine.Generate(context.Background(), env.input(template))

	require.NoError(t, err)
	assert.Equal(t, 4, result.CreatedCount)

	found := false
	for _, sr := range result.SkipReasons {
		if sr.Date.Equal(day(2026, 1, 6)) {
			found = true
			assert.Contains(t, sr.Reason, "东门岗")
			assert.Contains(t, sr.Reason, "馆内检修")
		}
	}
	assert.True(t, found)

	// 闭馆查询失败时降级为未闭馆，班次照常创建
	env = newTestEnv()
	env.closures.err = errors.New("rabbitmq 不可用")

	result, err = env.engine.Generate(context.Background(), env.input(template))
	require.NoError(t, err)
	assert.Equal(t, 5, result.CreatedCount)
	assert.Empty(t, result.Errors)
}

func TestGenerateClosureQueriedOncePerLocationAndDay(t *testing.T) {
	first := dayShiftTemplate(1)
	first.SkipWhenLocationClosed = true

	second := dayShiftTemplate(2)
	second.Name = "夜班"
	second.StartTime = "20:00"
	second.EndTime = "08:00"
	second.CrossesMidnight = true
	second.SkipWhenLocationClosed = true

	env := newTestEnv()
	_, err := env.engine.Generate(context.Background(), env.input(first, second))

	require.NoError(t, err)
	// 两个模板作用于同一驻点，同一天只发一次闭馆查询；周末被星期表挡住不查
	assert.Equal(t, 5, env.closures.calls)
}

func TestGenerateIsIdempotentWithinWindow(t *testing.T) {
	env := newTestEnv()
	input := env.input(dayShiftTemplate(1))

	first, err := env.engine.Generate(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 5, first.CreatedCount)

	second, err := env.engine.Generate(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 0, second.CreatedCount)
	// 重复班次静默跳过，不记录排除原因，也不发布事件
	assert.Equal(t, 2, second.SkippedCount)
	assert.Len(t, env.store.created, 5)
	assert.Len(t, env.events.events, 1)
}

func TestGenerateCrossMidnightShift(t *testing.T) {
	template := dayShiftTemplate(1)
	template.Name = "夜班"
	template.StartTime = "20:00"
	template.EndTime = "06:00"
	template.CrossesMidnight = true
	template.BreakMinutes = 0

	env := newTestEnv()
	input := env.input(template)
	input.Window = domain.GenerationWindow{From: day(2026, 1, 5), To: day(2026, 1, 6)}

	result, err := env.engine.Generate(context.Background(), input)

	require.NoError(t, err)
	require.Equal(t, 1, result.CreatedCount)

	shift := env.store.created[0]
	assert.Equal(t, at(2026, 1, 5, 20, 0), shift.StartTime)
	assert.Equal(t, at(2026, 1, 6, 6, 0), shift.EndTime)
	assert.Equal(t, int32(600), shift.TotalMinutes)
	assert.InDelta(t, 8.0, shift.NightHours, 0.001)
	assert.InDelta(t, 2.0, shift.DayHours, 0.001)
	// 班次归属于开始日期
	assert.Equal(t, day(2026, 1, 5), shift.ShiftDate)
}

func TestGenerateNoUsableTemplates(t *testing.T) {
	inactive := dayShiftTemplate(1)
	inactive.IsActive = false

	env := newTestEnv()
	_, err := env.engine.Generate(context.Background(), env.input(inactive))

	assert.ErrorIs(t, err, ErrNoTemplates)

	_, err = env.engine.Generate(context.Background(), env.input())
	assert.ErrorIs(t, err, ErrNoTemplates)
}

func TestGenerateTemplateIDFilter(t *testing.T) {
	first := dayShiftTemplate(1)
	second := dayShiftTemplate(2)
	second.Name = "夜班"
	second.StartTime = "20:00"
	second.EndTime = "08:00"
	second.CrossesMidnight = true

	env := newTestEnv()
	input := env.input(first, second)
	input.TemplateIDs = []int64{2}

	result, err := env.engine.Generate(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, 5, result.CreatedCount)
	for _, shift := range env.store.created {
		assert.Equal(t, at(shift.ShiftDate.Year(), shift.ShiftDate.Month(), shift.ShiftDate.Day(), 20, 0), shift.StartTime)
	}
}

func TestGenerateTemplateErrorDoesNotHaltOthers(t *testing.T) {
	broken := dayShiftTemplate(1)
	broken.StartTime = "25:00"

	env := newTestEnv()
	result, err := env.engine.Generate(context.Background(), env.input(broken, dayShiftTemplate(2)))

	require.NoError(t, err)
	// 好的模板照常产出，坏模板每个适用日记录一条错误
	assert.Equal(t, 5, result.CreatedCount)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "模板 1")
	assert.Contains(t, result.Errors[0], "无效的时刻")
}

func TestGenerateEndNotAfterStart(t *testing.T) {
	template := dayShiftTemplate(1)
	template.StartTime = "20:00"
	template.EndTime = "08:00"
	// 未标记跨天，结束时刻不晚于开始时刻，应当报错

	env := newTestEnv()
	result, err := env.engine.Generate(context.Background(), env.input(template))

	require.NoError(t, err)
	assert.Equal(t, 0, result.CreatedCount)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "不晚于开始时刻")
}

func TestGenerateBoundLocationNotInContract(t *testing.T) {
	missing := int64(999)
	template := dayShiftTemplate(1)
	template.LocationID = &missing

	env := newTestEnv()
	result, err := env.engine.Generate(context.Background(), env.input(template))

	require.NoError(t, err)
	assert.Equal(t, 0, result.CreatedCount)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "999")
}

func TestGenerateTemplateBoundToSingleLocation(t *testing.T) {
	bound := int64(100)
	template := dayShiftTemplate(1)
	template.LocationID = &bound

	env := newTestEnv()
	input := env.input(template)
	input.Locations = append(input.Locations, &domain.Location{ID: 101, ContractID: 1, Name: "西门岗"})

	result, err := env.engine.Generate(context.Background(), input)

	require.NoError(t, err)
	// 只在绑定的驻点上建班，另一个驻点不受影响
	assert.Equal(t, 5, result.CreatedCount)
	for _, shift := range env.store.created {
		assert.Equal(t, int64(100), shift.LocationID)
	}
}

func TestGenerateRespectsEffectiveRange(t *testing.T) {
	until := day(2026, 1, 7)
	template := dayShiftTemplate(1)
	template.EffectiveFrom = day(2026, 1, 6)
	template.EffectiveTo = &until

	env := newTestEnv()
	result, err := env.engine.Generate(context.Background(), env.input(template))

	require.NoError(t, err)
	// 只有 1 月 6 日和 7 日落在生效期内
	assert.Equal(t, 2, result.CreatedCount)
}

func TestGenerateFailsWhenExistingKeysUnavailable(t *testing.T) {
	env := newTestEnv()
	env.store.keysErr = errors.New("连接中断")

	_, err := env.engine.Generate(context.Background(), env.input(dayShiftTemplate(1)))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "无法读取已有班次")
}

func TestGenerateStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	env := newTestEnv()
	result, err := env.engine.Generate(ctx, env.input(dayShiftTemplate(1)))

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 0, result.CreatedCount)
}

func TestGeneratePublisherFailureDoesNotFailGeneration(t *testing.T) {
	env := newTestEnv()
	env.events.err = errors.New("通道已关闭")

	result, err := env.engine.Generate(context.Background(), env.input(dayShiftTemplate(1)))

	require.NoError(t, err)
	assert.Equal(t, 5, result.CreatedCount)
}
