package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-academic-api/internal/dto"
	"github.com/noah-isme/sma-academic-api/internal/middleware"
	"github.com/noah-isme/sma-academic-api/internal/models"
	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// periodFromQuery reads ?academicYear=2024/2025&semester=1.
func periodFromQuery(c *gin.Context) (models.AcademicPeriod, error) {
	var q dto.PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return models.AcademicPeriod{}, appErrors.Validation(err, "invalid academic period")
	}
	if q.AcademicYear == "" || q.Semester < 1 || q.Semester > 2 {
		return models.AcademicPeriod{}, appErrors.Clone(appErrors.ErrValidation, "academicYear and semester (1 or 2) are required")
	}
	return q.Period(), nil
}

func pageFromQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}

func invalidPayload(err error) error {
	return appErrors.Validation(err, "invalid payload")
}
