package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the account service API under /v1.
func RegisterRoutes(r gin.IRouter, accounts *AccountHandler, movements *MovementHandler, reports *ReportHandler) {
	v1 := r.Group("/v1")

	acc := v1.Group("/accounts")
	{
		acc.POST("", accounts.OpenAccount)
		acc.GET("", accounts.ListAccounts)
		acc.GET("/number/:accountNumber", accounts.GetAccountByNumber)
		acc.GET("/:accountId", accounts.GetAccount)
		acc.PATCH("/:accountId", accounts.UpdateAccount)
		acc.DELETE("/:accountId", accounts.DeleteAccount)
		acc.POST("/:accountId/close", accounts.CloseAccount)
		acc.POST("/:accountId/deposits", accounts.Deposit)
		acc.POST("/:accountId/withdrawals", accounts.Withdraw)
		acc.GET("/:accountId/movements", movements.ListAccountMovements)
	}

	v1.GET("/customers/:customerId/accounts", accounts.ListCustomerAccounts)
	v1.GET("/reports", reports.GetStatement)

	mov := v1.Group("/movements")
	{
		mov.POST("", movements.RecordMovement)
		mov.GET("", movements.ListAllMovements)
		mov.GET("/:movementId", movements.GetMovement)
		mov.PATCH("/:movementId", movements.CorrectMovement)
		mov.DELETE("/:movementId", movements.DeleteMovement)
	}
}
