package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
)

type updateSettingRequest struct {
	Value string         `json:"value" binding:"required"`
	Type  db.SettingType `json:"type" binding:"required,setting_type"`
}

func (server *Server) listSettings(c *gin.Context) {
	items, err := server.settingsService.List(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

func (server *Server) getSetting(c *gin.Context) {
	setting, err := server.dbStore.GetSetting(c, c.Param("key"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, setting)
}

// updateSetting creates or updates a setting.
// The value is checked against its type and allowed range. Cached copies are dropped.
func (server *Server) updateSetting(c *gin.Context) {
	var req updateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	setting, err := server.settingsService.Set(c, c.Param("key"), req.Value, req.Type)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, setting)
}
