package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var roles = []domain.Role{
	domain.RoleManager,
	domain.RoleDispatcher,
	domain.RoleGuard,
}

func GenerateRandomRole() domain.Role {
	return roles[rand.Intn(len(roles))]
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, py := range pinyinArray {
		length := rand.Intn(len(py)) + 1
		username += py[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         GenerateRandomRole(),
	}

	return user, nil
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

// GenerateRandomID 生成由 letterLength 个字母和 digitLength 个数字组成的随机串
func GenerateRandomID(letterLength int, digitLength int) string {
	randomID := make([]rune, letterLength+digitLength)
	for i := range randomID {
		if i < letterLength {
			randomID[i] = letters[rand.Intn(len(letters))]
		} else {
			randomID[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(randomID)
}

var customerNames = []string{
	"恒信物业", "嘉华商场", "蓝海科技园", "中天写字楼", "东港物流园",
	"凯旋酒店", "金岸银行", "绿洲社区", "启明学校", "滨江医院",
}

func GenerateRandomContract(managerID int64, today time.Time) *domain.Contract {
	customer := customerNames[rand.Intn(len(customerNames))]
	start := today.AddDate(0, 0, -rand.Intn(180))
	end := today.AddDate(0, rand.Intn(12)+3, 0)

	return &domain.Contract{
		Name:         fmt.Sprintf("%s安保服务合同", customer),
		CustomerName: customer,
		ManagerID:    managerID,
		StartDate:    start,
		EndDate:      end,
		IsActive:     true,
		AutoGenerate: true,
	}
}

var locationNames = []string{"东门岗", "西门岗", "南门岗", "北门岗", "大堂岗", "监控室", "地库岗"}

func GenerateRandomLocation(contractID int64) *domain.Location {
	name := locationNames[rand.Intn(len(locationNames))]
	return &domain.Location{
		ContractID: contractID,
		Name:       name,
		Address:    fmt.Sprintf("大学城中环东路%d号", rand.Intn(200)+1),
	}
}

func GenerateRandomShiftTemplate(contractID int64, effectiveFrom time.Time) *domain.ShiftTemplate {
	dayShift := rand.Intn(2) == 0

	template := &domain.ShiftTemplate{
		ContractID:        contractID,
		BreakMinutes:      int32(rand.Intn(3)) * 30,
		GuardsPerShift:    int32(rand.Intn(3)) + 1,
		AppliesMonday:     true,
		AppliesTuesday:    true,
		AppliesWednesday:  true,
		AppliesThursday:   true,
		AppliesFriday:     true,
		AppliesSaturday:   rand.Intn(2) == 0,
		AppliesSunday:     rand.Intn(2) == 0,
		AppliesOnHolidays: rand.Intn(2) == 0,
		EffectiveFrom:     effectiveFrom,
		IsActive:          true,
	}
	template.AppliesOnWeekends = template.AppliesSaturday || template.AppliesSunday

	if dayShift {
		template.Name = "白班"
		template.StartTime = "08:00"
		template.EndTime = "20:00"
		template.ScheduleType = "day"
	} else {
		template.Name = "夜班"
		template.StartTime = "20:00"
		template.EndTime = "08:00"
		template.CrossesMidnight = true
		template.ScheduleType = "night"
		template.SkipWhenLocationClosed = rand.Intn(2) == 0
	}

	return template
}
