package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"gridx-backend/models"
	"gridx-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultTopicLimit = 50
	maxTopicLimit     = 200
)

type CommunityController struct {
	db *gorm.DB
}

func NewCommunityController(db *gorm.DB) *CommunityController {
	return &CommunityController{db: db}
}

type CreateTopicInput struct {
	Title   string `json:"title" binding:"required,max=255"`
	Content string `json:"content" binding:"required,max=10000"`
}

type SupportInput struct {
	Name    string `json:"name" binding:"required,max=255"`
	Email   string `json:"email" binding:"required,email,max=255"`
	Message string `json:"message" binding:"required,max=5000"`
}

type TopicView struct {
	ID         uint      `json:"id"`
	UserID     uint      `json:"userId"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	AuthorName string    `json:"authorName"`
}

func (cc *CommunityController) CreateTopic(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var input CreateTopicInput
	if !bindJSON(c, &input) {
		return
	}

	topic := models.ForumTopic{
		UserID:  userID,
		Title:   strings.TrimSpace(input.Title),
		Content: strings.TrimSpace(input.Content),
	}
	if err := cc.db.WithContext(c.Request.Context()).Create(&topic).Error; err != nil {
		zap.L().Error("Failed to create forum topic", zap.Uint("user_id", userID), zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create topic")
		return
	}
	c.JSON(http.StatusCreated, topic)
}

// ListTopics returns the newest topics with their author's name.
func (cc *CommunityController) ListTopics(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultTopicLimit)))
	if err != nil || limit <= 0 {
		limit = defaultTopicLimit
	}
	if limit > maxTopicLimit {
		limit = maxTopicLimit
	}

	var topics []TopicView
	err = cc.db.WithContext(c.Request.Context()).
		Table("forum_topics AS ft").
		Select("ft.id, ft.user_id, ft.title, ft.content, ft.created_at, u.full_name AS author_name").
		Joins("JOIN users u ON u.id = ft.user_id").
		Order("ft.created_at DESC").
		Order("ft.id DESC").
		Limit(limit).
		Scan(&topics).Error
	if err != nil {
		zap.L().Error("Failed to list forum topics", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch topics")
		return
	}
	if topics == nil {
		topics = []TopicView{}
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics})
}

func (cc *CommunityController) SubmitSupport(c *gin.Context) {
	var input SupportInput
	if !bindJSON(c, &input) {
		return
	}

	request := models.SupportRequest{
		Name:    strings.TrimSpace(input.Name),
		Email:   models.NormalizeEmail(input.Email),
		Message: strings.TrimSpace(input.Message),
	}
	if err := cc.db.WithContext(c.Request.Context()).Create(&request).Error; err != nil {
		zap.L().Error("Failed to store support request", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to submit support request")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Support request received", "id": request.ID})
}

// ListSupport is limited to installers.
func (cc *CommunityController) ListSupport(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	db := cc.db.WithContext(c.Request.Context())

	var user models.User
	if err := db.Select("id", "is_installer").First(&user, userID).Error; err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "User not found")
		return
	}
	if !user.IsInstaller {
		utils.RespondWithError(c, http.StatusForbidden, "Only installers can view support requests")
		return
	}

	var requests []models.SupportRequest
	if err := db.Order("created_at DESC").Order("id DESC").Find(&requests).Error; err != nil {
		zap.L().Error("Failed to list support requests", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch support requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}
