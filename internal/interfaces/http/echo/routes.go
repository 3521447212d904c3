package echo

import e "github.com/labstack/echo/v4"

func RegisterRoutes(server *e.Echo, importHandler *ImportHandler, profileHandler *ProfileHandler) {
	if importHandler != nil {
		imports := server.Group("/api/v1/imports")
		imports.POST("/profiles", importHandler.Upload)
		imports.GET("/:id", importHandler.GetSession)
		imports.DELETE("/:id", importHandler.Discard)
		imports.POST("/:id/apply", importHandler.Apply)
		imports.POST("/:id/pause", importHandler.Pause)
		imports.POST("/:id/resume", importHandler.Resume)
		imports.POST("/:id/cancel", importHandler.Cancel)
		imports.GET("/:id/errors.csv", importHandler.ErrorReport)
		imports.GET("/:id/validation-errors.csv", importHandler.ValidationReport)
	}

	if profileHandler != nil {
		server.GET("/api/v1/profiles/export", profileHandler.Export)
		server.GET("/api/v1/profiles/:id", profileHandler.GetProfileByID)
	}
}
