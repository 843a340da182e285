package controller

import (
	"net/http"
	"strconv"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/service"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/util"

	"github.com/gin-gonic/gin"
)

type EvaluationController struct {
	EvaluationService *service.EvaluationService
	AttemptService    *service.AttemptService
}

func NewEvaluationController(evaluationService *service.EvaluationService, attemptService *service.AttemptService) *EvaluationController {
	return &EvaluationController{EvaluationService: evaluationService, AttemptService: attemptService}
}

// @Summary 获取模块测评
// @Description 题目与选项按顺序返回，不包含正确答案
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param moduleId path int true "模块ID"
// @Success 200 {object} model.DefinitionView
// @Failure 404 {object} util.Response
// @Router /api/evaluation/{moduleId} [get]
func (c *EvaluationController) GetDefinition(ctx *gin.Context) {
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

	view, err := c.EvaluationService.GetDefinition(ctx.Request.Context(), user.LearnerID, user.OrganizationID, moduleID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// @Summary 提交测评
// @Description 评分并记录一次新的尝试；通过时同时标记模块完成。409 表示编号冲突，可整体重试
// @Tags 测评
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param moduleId path int true "模块ID"
// @Param attempt body service.SubmitRequest true "作答"
// @Success 200 {object} model.AttemptResult
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/evaluation/{moduleId}/attempts [post]
func (c *EvaluationController) SubmitAttempt(ctx *gin.Context) {
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

	var req service.SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	attempt, err := c.AttemptService.Submit(ctx.Request.Context(), user.LearnerID, user.OrganizationID, moduleID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, attempt.Result())
}

// @Summary 我的测评记录
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param moduleId path int true "模块ID"
// @Success 200 {array} model.Attempt
// @Router /api/evaluation/{moduleId}/attempts [get]
func (c *EvaluationController) ListAttempts(ctx *gin.Context) {
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

	attempts, err := c.AttemptService.ListAttempts(ctx.Request.Context(), user.LearnerID, user.OrganizationID, moduleID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, attempts)
}

// @Summary 测评记录详情
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param moduleId path int true "模块ID"
// @Param attemptNumber path int true "尝试编号"
// @Success 200 {object} model.Attempt
// @Failure 404 {object} util.Response
// @Router /api/evaluation/{moduleId}/attempts/{attemptNumber} [get]
func (c *EvaluationController) GetAttempt(ctx *gin.Context) {
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
	number, err := strconv.Atoi(ctx.Param("attemptNumber"))
	if err != nil {
		util.BadRequest(ctx, "invalid attempt number")
		return
	}

	attempt, err := c.AttemptService.GetAttempt(ctx.Request.Context(), user.LearnerID, user.OrganizationID, moduleID, number)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, attempt)
}

// @Summary 获取测评定义（编辑）
// @Description 包含正确答案与分值
// @Tags 测评管理
// @Produce json
// @Security BearerAuth
// @Param moduleId path int true "模块ID"
// @Success 200 {object} model.DefinitionView
// @Router /api/admin/evaluation/{moduleId} [get]
func (c *EvaluationController) GetAuthoringDefinition(ctx *gin.Context) {
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

	view, err := c.EvaluationService.GetAuthoringDefinition(ctx.Request.Context(), user.OrganizationID, moduleID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

type replaceDefinitionRequest struct {
	Questions []service.QuestionRequest `json:"questions"`
}

// @Summary 替换测评定义
// @Description 删除模块现有的全部题目与选项并写入新的一组，在同一事务内完成
// @Tags 测评管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param moduleId path int true "模块ID"
// @Param definition body replaceDefinitionRequest true "题目列表"
// @Success 200 {object} model.DefinitionView
// @Failure 400 {object} util.Response
// @Router /api/admin/evaluation/{moduleId} [put]
func (c *EvaluationController) ReplaceDefinition(ctx *gin.Context) {
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

	var req replaceDefinitionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.EvaluationService.ReplaceDefinition(ctx.Request.Context(), user.OrganizationID, moduleID, req.Questions)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}
