package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/repository"
	"github.com/gaganhb01/Expense-Reimbursement-System/internal/service"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	pair, user, err := s.authSvc.Login(req.Username, req.Password, c.ClientIP())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": pair, "user": user})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}

	pair, err := s.authSvc.Refresh(req.RefreshToken)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": pair})
}

func (s *Server) handleMe(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

// handleSubmitExpense accepts a multipart form: claim fields plus an
// optional bill file under the "bill" key
func (s *Server) handleSubmitExpense(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	amount, err := strconv.ParseFloat(c.PostForm("amount"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a number"})
		return
	}
	expenseDate, err := time.Parse("2006-01-02", c.PostForm("expense_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expense_date must be YYYY-MM-DD"})
		return
	}

	input := service.SubmitExpenseInput{
		Category:          models.Category(c.PostForm("category")),
		Amount:            amount,
		Currency:          c.PostForm("currency"),
		ExpenseDate:       expenseDate,
		Description:       c.PostForm("description"),
		TravelMode:        models.TravelMode(c.PostForm("travel_mode")),
		TravelFrom:        c.PostForm("travel_from"),
		TravelTo:          c.PostForm("travel_to"),
		IsSelfDeclaration: c.PostForm("is_self_declaration") == "true",
		DeclarationReason: c.PostForm("declaration_reason"),
		IPAddress:         c.ClientIP(),
	}

	if fileHeader, err := c.FormFile("bill"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read bill upload"})
			return
		}
		defer file.Close()

		content, err := io.ReadAll(io.LimitReader(file, int64(fileHeader.Size)+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read bill upload"})
			return
		}
		input.BillFileName = fileHeader.Filename
		input.BillContent = content
	}

	expense, err := s.expenseSvc.Submit(c.Request.Context(), user, input)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, expense)
}

func (s *Server) handleListExpenses(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	filter := parseExpenseFilter(c)
	expenses, err := s.expenseSvc.ListOwn(user, filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expenses": expenses})
}

func (s *Server) handleGetExpense(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	expense, err := s.expenseSvc.Get(user, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, expense)
}

func (s *Server) handleDeleteExpense(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.expenseSvc.Delete(user, id, c.ClientIP()); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) handleDownloadBill(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	content, filename, err := s.expenseSvc.BillFile(user, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/octet-stream", content)
}

func (s *Server) handleExpenseAudit(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	trail, err := s.expenseSvc.AuditTrail(user, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit": trail})
}

type decisionRequest struct {
	Comments string `json:"comments"`
}

func (s *Server) handleApprove(c *gin.Context) {
	s.handleDecision(c, models.OutcomeApprove)
}

func (s *Server) handleReject(c *gin.Context) {
	s.handleDecision(c, models.OutcomeReject)
}

func (s *Server) handleDecision(c *gin.Context, outcome models.Outcome) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req decisionRequest
	_ = c.ShouldBindJSON(&req) // comments are optional on approve

	expense, err := s.approvalSvc.Decide(user, service.DecideInput{
		ExpenseID: id,
		Outcome:   outcome,
		Comments:  req.Comments,
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, expense)
}

func (s *Server) handleMarkPaid(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	expense, err := s.approvalSvc.MarkPaid(user, id, c.ClientIP())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, expense)
}

func (s *Server) handlePendingQueue(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	limit, offset := parsePagination(c, 50)
	queue, err := s.approvalSvc.PendingQueue(user, limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": queue})
}

func (s *Server) handleListNotifications(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	limit, _ := parsePagination(c, 100)
	unreadOnly := c.Query("unread") == "true"
	notifications, err := s.notifications.ListForUser(user.ID, unreadOnly, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (s *Server) handleUnreadCount(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	count, err := s.notifications.UnreadCount(user.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

func (s *Server) handleMarkNotificationRead(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.notifications.MarkRead(user.ID, id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": true})
}

func (s *Server) handleMarkAllRead(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	count, err := s.notifications.MarkAllRead(user.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": count})
}

func (s *Server) handleSearch(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	result, err := s.reports.Search(user, parseExpenseFilter(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSummary(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	dimension := c.DefaultQuery("by", "status")
	rows, err := s.reports.Summary(user, dimension, parseExpenseFilter(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": rows})
}

func (s *Server) handleExport(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	data, err := s.reports.ExportExcel(user, parseExpenseFilter(c))
	if err != nil {
		s.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("expenses_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func parsePagination(c *gin.Context, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

func parseExpenseFilter(c *gin.Context) repository.ExpenseFilter {
	filter := repository.ExpenseFilter{
		Search:   c.Query("q"),
		Category: models.Category(c.Query("category")),
	}
	filter.Limit, filter.Offset = parsePagination(c, 50)

	if status := c.Query("status"); status != "" {
		filter.Statuses = []models.Status{models.Status(status)}
	}
	if v, err := time.Parse("2006-01-02", c.Query("date_from")); err == nil {
		filter.DateFrom = &v
	}
	if v, err := time.Parse("2006-01-02", c.Query("date_to")); err == nil {
		filter.DateTo = &v
	}
	if v, err := strconv.ParseFloat(c.Query("min_amount"), 64); err == nil {
		filter.MinAmount = &v
	}
	if v, err := strconv.ParseFloat(c.Query("max_amount"), 64); err == nil {
		filter.MaxAmount = &v
	}
	if v, err := strconv.ParseInt(c.Query("employee_id"), 10, 64); err == nil {
		filter.EmployeeID = &v
	}
	return filter
}
