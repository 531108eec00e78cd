package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ReportStudio/internal/models"
)

// formatUser renders a user without the password hash.
func formatUser(user *models.User) gin.H {
	return gin.H{
		"id":                   user.ID,
		"username":             user.Username,
		"email":                user.Email,
		"firstName":            user.FirstName,
		"lastName":             user.LastName,
		"subscriptionTier":     user.SubscriptionTier,
		"stripeCustomerId":     user.StripeCustomerID,
		"stripeSubscriptionId": user.StripeSubscriptionID,
		"apiUsage":             user.APIUsage,
		"apiLimit":             user.APILimit,
		"usagePeriodStart":     user.UsagePeriodStart,
		"createdAt":            user.CreatedAt,
		"updatedAt":            user.UpdatedAt,
	}
}

// formatDataSource renders a data source. OAuth tokens never leave the server.
func formatDataSource(source *models.DataSource) gin.H {
	return gin.H{
		"id":          source.ID,
		"userId":      source.UserID,
		"name":        source.Name,
		"type":        source.Type,
		"isConnected": source.IsConnected,
		"lastSyncAt":  source.LastSyncAt,
		"createdAt":   source.CreatedAt,
		"updatedAt":   source.UpdatedAt,
	}
}

func formatReport(report *models.Report) gin.H {
	out := gin.H{
		"id":           report.ID,
		"userId":       report.UserID,
		"title":        report.Title,
		"description":  report.Description,
		"dataSourceId": report.DataSourceID,
		"components":   rawOrNull(report.Components),
		"status":       report.Status,
		"aiPrompt":     report.AIPrompt,
		"pageCount":    report.PageCount,
		"createdAt":    report.CreatedAt,
		"updatedAt":    report.UpdatedAt,
	}
	out["generatedContent"] = rawOrNull(report.GeneratedContent)
	return out
}

func formatReports(rows []models.Report) []gin.H {
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatReport(&rows[i]))
	}
	return out
}

func rawOrNull(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(raw)
}
