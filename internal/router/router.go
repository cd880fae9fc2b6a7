package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/kanvas-api/internal/handler"
	internalmiddleware "github.com/noah-isme/kanvas-api/internal/middleware"
	"github.com/noah-isme/kanvas-api/internal/models"
	"github.com/noah-isme/kanvas-api/internal/service"
	"github.com/noah-isme/kanvas-api/pkg/config"
	"github.com/noah-isme/kanvas-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/kanvas-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/kanvas-api/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth       *handler.AuthHandler
	User       *handler.UserHandler
	Term       *handler.TermHandler
	Course     *handler.CourseHandler
	Offering   *handler.OfferingHandler
	Enrollment *handler.EnrollmentHandler
	Assignment *handler.AssignmentHandler
	Submission *handler.SubmissionHandler
	Grade      *handler.GradeHandler
	Material   *handler.MaterialHandler
	Metrics    *handler.MetricsHandler
}

// Setup builds the gin engine with global middleware and all routes.
func Setup(cfg *config.Config, h Handlers, tokens internalmiddleware.TokenValidator, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())
	r.Use(internalmiddleware.Audit())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	if prefix == "/" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)

	auth := api.Group("/auth")
	auth.POST("/register/student", h.Auth.RegisterStudent)
	auth.POST("/register/teacher", h.Auth.RegisterTeacher)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/logout", h.Auth.Logout)
	auth.POST("/forgot-password", h.Auth.ForgotPassword)
	auth.GET("/reset-password/check", h.Auth.CheckResetToken)
	auth.POST("/reset-password", h.Auth.ResetPassword)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(tokens))
	Mount(secured, h)

	return r
}

// Mount registers the authenticated routes on group. Role gates are coarse;
// offering ownership is enforced by the services.
func Mount(secured *gin.RouterGroup, h Handlers) {
	students := internalmiddleware.RequireRoles(models.RoleStudent)
	staff := internalmiddleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)
	admins := internalmiddleware.RequireRoles(models.RoleAdmin)

	secured.GET("/auth/me", h.Auth.Me)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)

	users := secured.Group("/users")
	users.GET("/me", h.User.Me)
	users.PUT("/me/majors", students, h.User.UpdateMajors)
	users.GET("/:id", admins, h.User.Get)

	terms := secured.Group("/terms")
	terms.GET("", h.Term.List)
	terms.GET("/current", h.Term.Current)
	terms.GET("/next", h.Term.Next)

	courses := secured.Group("/courses")
	courses.GET("", h.Course.List)
	courses.GET("/:id", h.Course.Get)
	courses.POST("", admins, h.Course.Create)
	courses.PATCH("/:id", admins, h.Course.Update)

	offerings := secured.Group("/offerings")
	offerings.GET("", h.Offering.List)
	offerings.GET("/mine", h.Offering.Mine)
	offerings.GET("/:id", h.Offering.Get)
	offerings.POST("", staff, h.Offering.Create)
	offerings.PATCH("/:id", staff, h.Offering.Update)
	offerings.DELETE("/:id", staff, h.Offering.Delete)
	offerings.POST("/:id/prereqs", staff, h.Offering.AddPrereq)
	offerings.DELETE("/:id/prereqs/:prereqId", staff, h.Offering.RemovePrereq)
	offerings.GET("/:id/eligibility", students, h.Offering.SelfEligibility)
	offerings.GET("/:id/eligibility/:studentId", staff, h.Offering.StudentEligibility)
	offerings.GET("/:id/classmates", h.Offering.Classmates)

	enrollments := secured.Group("/enrollments")
	enrollments.POST("/waitlist", students, h.Enrollment.RequestWaitlist)
	enrollments.DELETE("/waitlist", students, h.Enrollment.CancelWaitlist)
	enrollments.POST("/approve", staff, h.Enrollment.Approve)
	enrollments.POST("/deny", staff, h.Enrollment.Deny)
	enrollments.POST("/drop", staff, h.Enrollment.Drop)
	enrollments.POST("/complete", staff, h.Enrollment.Complete)
	enrollments.GET("/:offeringId/seats-left", h.Enrollment.SeatsLeft)
	enrollments.GET("/:offeringId/waitlist", staff, h.Enrollment.Waitlist)
	enrollments.GET("/:offeringId/enrolled", staff, h.Enrollment.Enrolled)

	assignments := secured.Group("/assignments")
	assignments.GET("/calendar.ics", students, h.Assignment.Calendar)
	assignments.POST("", staff, h.Assignment.Create)
	assignments.PATCH("/:id", staff, h.Assignment.Update)
	assignments.DELETE("/:id", staff, h.Assignment.Delete)
	assignments.PATCH("/:id/open", staff, h.Assignment.Open)
	assignments.PATCH("/:id/close", staff, h.Assignment.Close)
	assignments.GET("/offering/:offeringId", h.Assignment.ListByOffering)
	assignments.GET("/:id", h.Assignment.Get)

	submissions := secured.Group("/submissions")
	submissions.POST("", students, h.Submission.Submit)
	submissions.POST("/grade", staff, h.Submission.Grade)
	submissions.GET("/teacher/all", staff, h.Submission.TeacherAll)
	submissions.GET("/offering/:offeringId", staff, h.Submission.ByOffering)
	submissions.GET("/my/:offeringId", students, h.Submission.Mine)

	grades := secured.Group("/grades")
	grades.GET("/finals", h.Grade.Finals)
	grades.GET("/gpa/by-course", h.Grade.GPAByCourse)
	grades.GET("/gpa/cumulative", h.Grade.Cumulative)
	grades.GET("/transcript", h.Grade.Transcript)
	grades.PATCH("/final", staff, h.Grade.UpdateFinal)
	grades.GET("/:offeringId/breakdown", h.Grade.Breakdown)
	grades.GET("/:offeringId/current", h.Grade.Current)

	materials := secured.Group("/materials")
	materials.POST("", staff, h.Material.Create)
	materials.GET("/offering/:offeringId", h.Material.ListByOffering)
	materials.DELETE("/:id", staff, h.Material.Delete)
}
