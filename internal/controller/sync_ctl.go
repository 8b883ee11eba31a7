package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"qoo10_sync_v1_202609/internal/api/dto"
	"qoo10_sync_v1_202609/internal/service"
)

type SyncController struct {
	syncSvc *service.SyncService
}

func NewSyncController(syncSvc *service.SyncService) *SyncController {
	return &SyncController{syncSvc: syncSvc}
}

// RunSync 手动触发一轮同步
// POST /api/sync/run
// 同步执行，适合运营小批量验证；大批量走定时任务
func (c *SyncController) RunSync(ctx *gin.Context) {
	var req dto.SyncRunReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	summary, err := c.syncSvc.RunBatch(ctx.Request.Context(), req.Limit, req.DryRun)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, dto.SyncRunResp{
		RunID:     summary.RunID,
		Total:     summary.Total,
		DryRun:    summary.DryRun,
		Counts:    summary.Counts,
		Decisions: summary.Decision,
	})
}
