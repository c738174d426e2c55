package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pbessa/diario-turma-api/internal/service"
	appErrors "github.com/pbessa/diario-turma-api/pkg/errors"
	"github.com/pbessa/diario-turma-api/pkg/response"
)

// StatsHandler exposes the aggregation endpoints the dashboard charts read.
type StatsHandler struct {
	service *service.StatsService
}

// NewStatsHandler constructs a stats handler.
func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// Class godoc
// @Summary Full-history statistics for one class
// @Tags Statistics
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /stats/classes/{classId} [get]
func (h *StatsHandler) Class(c *gin.Context) {
	stats, err := h.service.AggregateClass(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Year godoc
// @Summary Year-wide statistics with per-class comparison
// @Tags Statistics
// @Produce json
// @Param year query int true "School year"
// @Success 200 {object} response.Envelope
// @Router /stats/year [get]
func (h *StatsHandler) Year(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year query parameter is required"))
		return
	}
	stats, err := h.service.AggregateYear(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Day godoc
// @Summary Statistics for one calendar day
// @Tags Statistics
// @Produce json
// @Param date path string true "Date YYYY-MM-DD"
// @Param year query int true "School year"
// @Success 200 {object} response.Envelope
// @Router /stats/days/{date} [get]
func (h *StatsHandler) Day(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year query parameter is required"))
		return
	}
	stats, err := h.service.AggregateDay(c.Request.Context(), c.Param("date"), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Month godoc
// @Summary Monthly averages with daily series
// @Tags Statistics
// @Produce json
// @Param year query int true "School year"
// @Param month query int true "Month 1-12"
// @Success 200 {object} response.Envelope
// @Router /stats/month [get]
func (h *StatsHandler) Month(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year query parameter is required"))
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month query parameter is required"))
		return
	}
	stats, err := h.service.AggregateMonth(c.Request.Context(), year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Trend godoc
// @Summary Trailing 30-day daily series
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/trend [get]
func (h *StatsHandler) Trend(c *gin.Context) {
	series, err := h.service.AggregateTrend(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, series, nil)
}

// Student godoc
// @Summary One student's statistics and chart series
// @Tags Statistics
// @Produce json
// @Param classId path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /stats/classes/{classId}/students/{studentId} [get]
func (h *StatsHandler) Student(c *gin.Context) {
	stats, err := h.service.AggregateStudent(c.Request.Context(), c.Param("classId"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
