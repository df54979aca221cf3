package router

import (
	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/screening-queue/internal/api/handler"
)

const serviceName = "screening-queue"

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", handler.NewHealthHandler(serviceName, deps.HealthChecks).Health)

	if deps.WebSocket != nil {
		r.GET("/ws", gin.WrapH(deps.WebSocket))
	}

	h := handler.NewQueueHandler(deps)
	screenerOnly := h.RequireScreener()

	student := r.Group("/student")
	{
		student.POST("/login", h.StudentLogin)
		student.POST("/logout", h.StudentLogout)
		student.GET("/jobInfo", h.JobInfo)
		student.POST("/changeJob", screenerOnly, h.ChangeJob)
		student.POST("/remove", screenerOnly, h.RemoveStudent)
		student.POST("/verify", screenerOnly, h.VerifyStudent)
		student.GET("/result", screenerOnly, h.ScreeningResult)
	}

	queue := r.Group("/queue", screenerOnly)
	{
		queue.GET("/jobs", h.ListJobs)
		queue.GET("/statistics", h.Statistics)
		queue.POST("/reset", h.ResetQueue)
	}

	r.GET("/screener/info", screenerOnly, h.ScreenerInfo)
	r.GET("/statistics/logs", screenerOnly, h.QueueLogs)

	return r
}
