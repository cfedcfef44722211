package services

import (
	"fmt"

	"rentdesk/pkg/logger"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// OccupancyReconciler 入住计数对账调度器
// 租客写入和计数写入虽在同一事务，但历史数据或直接改库仍可能造成偏差，
// 定期按Active租客数重算作为纠偏手段
type OccupancyReconciler struct {
	occupancy *OccupancyService
	cron      *cron.Cron
	spec      string
	running   bool
}

// NewOccupancyReconciler 创建对账调度器
func NewOccupancyReconciler(db *gorm.DB, spec string) *OccupancyReconciler {
	return &OccupancyReconciler{
		occupancy: NewOccupancyService(db),
		cron:      cron.New(),
		spec:      spec,
	}
}

// Start 启动调度器，cron表达式为空时不启动
func (r *OccupancyReconciler) Start() error {
	if r.running {
		return fmt.Errorf("对账调度器已经在运行")
	}
	if r.spec == "" {
		logger.GetLogger().Info("未配置对账cron表达式，跳过入住计数对账调度")
		return nil
	}

	if _, err := r.cron.AddFunc(r.spec, r.runOnce); err != nil {
		return fmt.Errorf("无效的cron表达式 %s: %v", r.spec, err)
	}

	r.cron.Start()
	r.running = true
	logger.GetLogger().Infof("入住计数对账调度器启动成功，cron: %s", r.spec)
	return nil
}

// Stop 停止调度器
func (r *OccupancyReconciler) Stop() {
	if !r.running {
		return
	}
	r.cron.Stop()
	r.running = false
	logger.GetLogger().Info("入住计数对账调度器已停止")
}

func (r *OccupancyReconciler) runOnce() {
	result, err := r.occupancy.RecountAll()
	if err != nil {
		logger.GetLogger().Errorf("入住计数对账失败: %v", err)
		return
	}
	if result.Corrected > 0 {
		logger.GetLogger().Warnf("对账 %s 完成: 检查 %d 个房产，纠正 %d 处偏差",
			result.RunID, result.Checked, result.Corrected)
	} else {
		logger.GetLogger().Infof("对账 %s 完成: 检查 %d 个房产，无偏差",
			result.RunID, result.Checked)
	}
}
