package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"famledger/internal/handlers"
	"famledger/internal/middleware"

	_ "famledger/internal/docs" // swagger docs
)

// NewRouter builds the gin engine with every API route registered.
func NewRouter(svc Services, jwtManager *middleware.JWTManager) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Users, jwtManager, svc.Audit)
	accountHandler := handlers.NewAccountHandler(svc.Accounts, svc.Audit)
	categoryHandler := handlers.NewCategoryHandler(svc.Categories, svc.Audit)
	transactionHandler := handlers.NewTransactionHandler(svc.Transactions, svc.Audit)
	transferHandler := handlers.NewTransferHandler(svc.Transfers, svc.Audit)
	billHandler := handlers.NewBillHandler(svc.Bills, svc.Audit)
	scheduledHandler := handlers.NewScheduledHandler(svc.Scheduled, svc.Audit)
	goalHandler := handlers.NewGoalHandler(svc.Goals, svc.Audit)
	budgetHandler := handlers.NewMonthlyBudgetHandler(svc.MonthlyBudget, svc.Audit)
	sharingHandler := handlers.NewSharingHandler(svc.Sharing, svc.Audit)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(jwtManager))

	protected.GET("/profile", authHandler.GetProfile)

	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetUserAccounts)
	accounts.GET("/:id", accountHandler.GetAccountByID)
	accounts.PUT("/:id", accountHandler.UpdateAccount)
	accounts.DELETE("/:id", accountHandler.DeleteAccount)
	accounts.POST("/:id/recalculate", accountHandler.RecalculateBalance)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.SearchTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	transfers := protected.Group("/transfers")
	transfers.POST("", transferHandler.CreateTransfer)
	transfers.GET("", transferHandler.GetUserTransfers)
	transfers.GET("/:id", transferHandler.GetTransferByID)
	transfers.POST("/:id/cancel", transferHandler.CancelTransfer)
	transfers.DELETE("/:id", transferHandler.DeleteTransfer)

	bills := protected.Group("/bills")
	bills.POST("", billHandler.CreateBill)
	bills.GET("", billHandler.GetUserBills)
	bills.GET("/:id", billHandler.GetBillByID)
	bills.PUT("/:id", billHandler.UpdateBill)
	bills.DELETE("/:id", billHandler.DeleteBill)
	bills.POST("/:id/pay", billHandler.PayBill)
	bills.POST("/:id/unpay", billHandler.UnpayBill)

	scheduled := protected.Group("/scheduled-transactions")
	scheduled.POST("", scheduledHandler.CreateScheduled)
	scheduled.GET("", scheduledHandler.GetUserScheduled)
	scheduled.GET("/due", scheduledHandler.GetDueOccurrences)
	scheduled.GET("/:id", scheduledHandler.GetScheduledByID)
	scheduled.PUT("/:id", scheduledHandler.UpdateScheduled)
	scheduled.DELETE("/:id", scheduledHandler.DeleteScheduled)
	scheduled.POST("/:id/execute", scheduledHandler.ExecuteNow)

	goals := protected.Group("/goals")
	goals.POST("", goalHandler.CreateGoal)
	goals.GET("", goalHandler.GetUserGoals)
	goals.GET("/:id", goalHandler.GetGoalByID)
	goals.PUT("/:id", goalHandler.UpdateGoal)
	goals.DELETE("/:id", goalHandler.DeleteGoal)
	goals.POST("/:id/contributions", goalHandler.Contribute)
	goals.GET("/:id/contributions", goalHandler.GetContributions)
	goals.DELETE("/:id/contributions/:cid", goalHandler.DeleteContribution)

	protected.GET("/monthly-budget", budgetHandler.GetMonthlyBudget)
	protected.PUT("/monthly-budget", budgetHandler.SaveMonthlyBudget)

	workspaces := protected.Group("/workspaces")
	workspaces.POST("", sharingHandler.CreateWorkspace)
	workspaces.POST("/:id/members", sharingHandler.AddWorkspaceMember)

	families := protected.Group("/families")
	families.POST("", sharingHandler.CreateFamily)
	families.POST("/:id/members", sharingHandler.AddFamilyMember)
	families.PUT("/:id/members/:member_id/permissions", sharingHandler.SetMemberPermissions)

	return router
}
