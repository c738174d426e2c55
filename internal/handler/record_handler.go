package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pbessa/diario-turma-api/internal/service"
	appErrors "github.com/pbessa/diario-turma-api/pkg/errors"
	"github.com/pbessa/diario-turma-api/pkg/response"
)

// RecordHandler exposes the daily attendance record endpoints.
type RecordHandler struct {
	service *service.RecordService
}

// NewRecordHandler constructs a record handler.
func NewRecordHandler(svc *service.RecordService) *RecordHandler {
	return &RecordHandler{service: svc}
}

// Roster godoc
// @Summary Class roster with the day's records
// @Tags Records
// @Produce json
// @Param classId path string true "Class ID"
// @Param date path string true "Date YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/records/{date} [get]
func (h *RecordHandler) Roster(c *gin.Context) {
	roster, err := h.service.Roster(c.Request.Context(), c.Param("classId"), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// Get godoc
// @Summary One student's record for a date
// @Tags Records
// @Produce json
// @Param classId path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Param date path string true "Date YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/students/{studentId}/records/{date} [get]
func (h *RecordHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("classId"), c.Param("studentId"), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Save godoc
// @Summary Save a record, merging into whatever is stored
// @Tags Records
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Param date path string true "Date YYYY-MM-DD"
// @Param payload body service.SaveRecordRequest true "Record flags"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/students/{studentId}/records/{date} [put]
func (h *RecordHandler) Save(c *gin.Context) {
	var req service.SaveRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.service.Save(c.Request.Context(), c.Param("classId"), c.Param("studentId"), c.Param("date"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Toggle godoc
// @Summary Flip one record flag
// @Tags Records
// @Produce json
// @Param classId path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Param date path string true "Date YYYY-MM-DD"
// @Param field path string true "isPresent | broughtHomework | broughtBackpack"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/students/{studentId}/records/{date}/toggle/{field} [post]
func (h *RecordHandler) Toggle(c *gin.Context) {
	record, err := h.service.Toggle(c.Request.Context(), c.Param("classId"), c.Param("studentId"), c.Param("date"), c.Param("field"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
