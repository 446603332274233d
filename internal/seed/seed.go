package seed

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/repository"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/utils"
)

// SeedDemoData 构造一套可以直接跑通生成流程的演示数据：
// 若干用户（至少一个客户经理）、合同、每个合同两三个驻点和一两个排班模板
func SeedDemoData(cfg *config.Config, repo *repository.Repository, contractCount int) {
	today := time.Now()

	// 保证至少存在一个有生成权限的用户，作为所有合同的客户经理
	manager, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Seed.EmailDomain)
	if err != nil {
		slog.Error("无法生成随机用户", "error", err)
		return
	}
	manager.Role = domain.RoleManager

	if err := repo.CreateUser(manager); err != nil {
		slog.Error("无法插入客户经理", "error", err)
		return
	}
	slog.Info("已插入客户经理", "username", manager.Username, "fullName", manager.FullName)

	for i := 0; i < contractCount; i++ {
		contract := utils.GenerateRandomContract(manager.ID, today)
		if err := repo.CreateContract(contract); err != nil {
			slog.Error("无法插入合同", "error", err)
			continue
		}

		locationCount := rand.Intn(2) + 2
		locations := make([]*domain.Location, 0, locationCount)
		for j := 0; j < locationCount; j++ {
			location := utils.GenerateRandomLocation(contract.ID)
			if err := repo.CreateLocation(location); err != nil {
				slog.Error("无法插入驻点", "error", err)
				continue
			}
			locations = append(locations, location)
		}

		templateCount := rand.Intn(2) + 1
		for j := 0; j < templateCount; j++ {
			template := utils.GenerateRandomShiftTemplate(contract.ID, contract.StartDate)
			// 一半的模板绑定到具体驻点
			if len(locations) > 0 && rand.Intn(2) == 0 {
				template.LocationID = &locations[rand.Intn(len(locations))].ID
			}
			if err := repo.CreateShiftTemplate(template); err != nil {
				slog.Error("无法插入排班模板", "error", err)
				continue
			}
		}

		slog.Info("已插入合同", "contractID", contract.ID, "name", contract.Name, "locations", len(locations), "templates", templateCount)
	}
}
