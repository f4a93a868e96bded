package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/codex-employee-api/internal/core/employee"
	"github.com/ogurasousui/codex-employee-api/internal/platform/logger"
)

// EmployeeHandler は社員 API の HTTP 実装です。
type EmployeeHandler struct {
	svc employee.UseCase
	log *slog.Logger
}

// NewEmployeeHandler は EmployeeHandler を生成します。
func NewEmployeeHandler(svc employee.UseCase, log *slog.Logger) *EmployeeHandler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &EmployeeHandler{svc: svc, log: log}
}

// Register は /api/employees 配下のルートを登録します。
func (h *EmployeeHandler) Register(r gin.IRouter) {
	g := r.Group("/api/employees")
	g.GET("", h.ListEmployees)
	g.GET("/:id", h.GetEmployee)
	g.POST("", h.CreateEmployee)
	g.PUT("/:id", h.UpdateEmployee)
	g.DELETE("/:id", h.DeleteEmployee)
}

// ListEmployees は社員の一覧を返します。
func (h *EmployeeHandler) ListEmployees(c *gin.Context) {
	list, err := h.svc.ListEmployees(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toEmployeeResponses(list))
}

// GetEmployee は社員を 1 件返します。
func (h *EmployeeHandler) GetEmployee(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	found, err := h.svc.GetEmployee(c.Request.Context(), employee.GetEmployeeInput{ID: id})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toEmployeeResponse(found))
}

// CreateEmployee は社員を作成し 201 を返します。
func (h *EmployeeHandler) CreateEmployee(c *gin.Context) {
	fields, ok := h.bindFields(c)
	if !ok {
		return
	}

	created, err := h.svc.CreateEmployee(c.Request.Context(), employee.CreateEmployeeInput{Fields: fields})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/api/employees/%d", created.ID))
	c.JSON(http.StatusCreated, toEmployeeResponse(created))
}

// UpdateEmployee は社員の全項目を置き換えます。
func (h *EmployeeHandler) UpdateEmployee(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	fields, ok := h.bindFields(c)
	if !ok {
		return
	}

	updated, err := h.svc.UpdateEmployee(c.Request.Context(), employee.UpdateEmployeeInput{ID: id, Fields: fields})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toEmployeeResponse(updated))
}

// DeleteEmployee は社員を削除し 204 を返します。
func (h *EmployeeHandler) DeleteEmployee(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteEmployee(c.Request.Context(), employee.DeleteEmployeeInput{ID: id}); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EmployeeHandler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "id must be a positive integer"})
		return 0, false
	}
	return id, true
}

func (h *EmployeeHandler) bindFields(c *gin.Context) (employee.Fields, bool) {
	var req EmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: bindingMessage(err)})
		return employee.Fields{}, false
	}

	fields, err := req.toFields()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return employee.Fields{}, false
	}
	return fields, true
}

func (h *EmployeeHandler) fail(c *gin.Context, err error) {
	code := toHTTPStatus(err)
	if code == http.StatusInternalServerError {
		h.log.ErrorContext(c.Request.Context(), "employee request failed",
			slog.String("route", c.FullPath()),
			logger.Err(err),
		)
		c.AbortWithStatusJSON(code, errorResponse{Error: http.StatusText(code)})
		return
	}
	c.AbortWithStatusJSON(code, errorResponse{Error: err.Error()})
}
