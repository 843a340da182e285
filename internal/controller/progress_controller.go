package controller

import (
	"net/http"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/model"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/service"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

type progressResponse struct {
	Completed bool `json:"completed"`
}

// @Summary 上报观看进度
// @Description 播放器定期上报的观看快照。学员与组织取自 token，观看时长按最大值合并
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param progress body service.ProgressUpdate true "观看快照"
// @Success 200 {object} progressResponse
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/progress [post]
func (c *ProgressController) RecordProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ProgressUpdate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	rec, err := c.ProgressService.RecordProgress(ctx.Request.Context(), user.LearnerID, user.OrganizationID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, progressResponse{Completed: rec.Completed})
}

// @Summary 获取模块进度
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param moduleId path int true "模块ID"
// @Success 200 {object} model.ProgressView
// @Failure 404 {object} util.Response
// @Router /api/progress/{moduleId} [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	moduleID, err := util.ParseID(ctx.Param("moduleId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	rec, err := c.ProgressService.GetProgress(ctx.Request.Context(), user.LearnerID, user.OrganizationID, moduleID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, rec.View())
}

// @Summary 我的全部进度
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.ProgressView
// @Router /api/progress [get]
func (c *ProgressController) ListProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	records, err := c.ProgressService.ListProgress(ctx.Request.Context(), user.LearnerID, user.OrganizationID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	views := make([]model.ProgressView, 0, len(records))
	for i := range records {
		views = append(views, records[i].View())
	}
	ctx.JSON(http.StatusOK, views)
}
