package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"practicum/backend/config"
	"practicum/backend/internal/api/handler"
	"practicum/backend/internal/api/middleware"
	"practicum/backend/internal/model"
	"practicum/backend/pkg/jwt"
	"practicum/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
//
// 管理员路由在此处按角色拦截一次，Service 层仍会基于调用方身份再次校验。
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	adminOnly := middleware.RoleAuth(model.RoleAdmin)
	supervisorOnly := middleware.RoleAuth(model.RoleSchoolSupervisor, model.RoleIndustrySupervisor)

	// ── API v1（全部需要认证） ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
	{
		// 实习期与报名
		sessions := v1.Group("/sessions")
		{
			sessions.GET("", h.Session.ListSessions)
			sessions.GET("/:id", h.Session.GetSession)
			sessions.POST("", adminOnly, h.Session.CreateSession)
			sessions.POST("/:id/close", adminOnly, h.Session.CloseSession)

			sessions.GET("/:id/enrollments", adminOnly, h.Session.ListEnrollments)
			sessions.POST("/:id/enrollments", adminOnly, h.Session.Enroll)
			sessions.POST("/:id/enrollments/batch", adminOnly, h.Session.BatchEnroll)
			sessions.DELETE("/:id/enrollments/:student_id", adminOnly, h.Session.Withdraw)

			// 分配
			sessions.GET("/:id/assignments", adminOnly, h.Allocation.ListAssignments)
			sessions.POST("/:id/assignments", adminOnly, h.Allocation.ManualAssign)
			sessions.POST("/:id/assignments/auto",
				adminOnly,
				middleware.RateLimit(rdb, cfg.Workflow.AutoAssignRateLimit, cfg.Workflow.AutoAssignRateWindow),
				h.Allocation.AutoAssign,
			)
			sessions.GET("/:id/workload", adminOnly, h.Allocation.WorkloadReport)
			sessions.POST("/:id/workload/rebuild", adminOnly, h.Allocation.RebuildLoads)
			sessions.GET("/:id/allocation-runs", adminOnly, h.Allocation.ListRuns)

			// 周记与终评
			sessions.GET("/:id/weeks", h.Logbook.ListWeeks)
			sessions.GET("/:id/evaluations", h.Evaluation.ListFinalEvaluations)
			sessions.POST("/:id/evaluations", supervisorOnly, h.Evaluation.AddFinalComment)
		}

		v1.DELETE("/assignments/:id", adminOnly, h.Allocation.RemoveAssignment)

		// 周记状态机
		weeks := v1.Group("/weeks")
		{
			weeks.GET("/:id", h.Logbook.GetWeek)
			weeks.PUT("/:id/entries", h.Logbook.SaveEntry)
			weeks.POST("/:id/review-request", h.Logbook.RequestReview)
			weeks.POST("/:id/comments", supervisorOnly, h.Logbook.AddWeeklyComment)
			weeks.POST("/:id/lock", supervisorOnly, h.Logbook.LockWeek)
			weeks.POST("/:id/unlock", supervisorOnly, h.Logbook.UnlockWeek)
		}

		// 名册
		students := v1.Group("/students")
		{
			students.GET("", adminOnly, h.Roster.ListStudents)
			students.GET("/:id", h.Roster.GetStudent) // 管理员 / 本人 / 分配过的导师（Service 层鉴权）
			students.POST("", adminOnly, h.Roster.CreateStudent)
			students.POST("/batch", adminOnly, h.Roster.BatchCreateStudents)
			students.POST("/import", adminOnly, h.Roster.ImportStudents)
		}

		supervisors := v1.Group("/supervisors")
		{
			supervisors.GET("", adminOnly, h.Roster.ListSupervisors)
			supervisors.POST("", adminOnly, h.Roster.CreateSupervisor)
			supervisors.POST("/batch", adminOnly, h.Roster.BatchCreateSupervisors)
			supervisors.POST("/import", adminOnly, h.Roster.ImportSupervisors)
			supervisors.POST("/:id/deactivate", adminOnly, h.Roster.DeactivateSupervisor)
			supervisors.PUT("/:id/capacity", adminOnly, h.Roster.UpdateSupervisorCapacity)
		}
	}

	return r
}
