package comments

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"forum/auth"
	"forum/common"
	"forum/likes"
	"forum/models"
)

const maxCommentLength = 5000

var (
	ErrCommentNotFound = common.NotFound("Comment not found")
	ErrPostNotFound    = common.NotFound("Post not found")
)

type CommentsModule struct {
	db *gorm.DB
}

func NewCommentsModule(db *gorm.DB) *CommentsModule {
	return &CommentsModule{db: db}
}

func (m *CommentsModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/posts/:id/comments", m.list)
	router.POST("/posts/:id/comments", m.create)

	commentsGroup := router.Group("/comments")
	{
		commentsGroup.POST("/:id/like", m.like)
		commentsGroup.DELETE("/:id", m.delete)
	}
}

type CommentView struct {
	models.Comment
	Username    string `json:"username"`
	LikedByUser bool   `json:"liked_by_user"`
}

type commentRequest struct {
	Content string `json:"content"`
}

func postExists(db *gorm.DB, postID uint) (bool, error) {
	var n int64
	err := db.Model(&models.Post{}).Where("id = ?", postID).Count(&n).Error
	return n > 0, err
}

// List returns a post's comments, most liked first and oldest first on ties.
func (m *CommentsModule) List(viewer, postID uint) ([]CommentView, error) {
	ok, err := postExists(m.db, postID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPostNotFound
	}

	views := []CommentView{}
	err = m.db.Table("comments").
		Select("comments.*, users.username AS username, "+
			"EXISTS (SELECT 1 FROM comment_likes WHERE comment_likes.comment_id = comments.id AND comment_likes.user_id = ?) AS liked_by_user", viewer).
		Joins("JOIN users ON users.id = comments.user_id").
		Where("comments.post_id = ?", postID).
		Order("comments.likes_count DESC, comments.created_at ASC, comments.id ASC").
		Scan(&views).Error
	return views, err
}

// Create adds a comment and bumps the post's comments_count atomically.
func (m *CommentsModule) Create(id *auth.Identity, postID uint, content string) (*models.Comment, error) {
	if err := auth.RequireUser(id); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, common.InvalidInput("Content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, common.InvalidInput("Comment must be at most 5000 characters")
	}

	comment := models.Comment{Content: content, PostID: postID, UserID: id.ID}
	err := m.db.Transaction(func(tx *gorm.DB) error {
		ok, err := postExists(tx, postID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrPostNotFound
		}

		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("comments_count", gorm.Expr("comments_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes a comment and its likes, then decrements the parent
// post's comments_count, all in one transaction.
func DeleteComment(db *gorm.DB, commentID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.First(&comment, commentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCommentNotFound
			}
			return err
		}

		if err := tx.Where("comment_id = ?", commentID).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comments_count", gorm.Expr("CASE WHEN comments_count > 0 THEN comments_count - 1 ELSE 0 END")).Error
	})
}

func (m *CommentsModule) list(c *gin.Context) {
	postID, err := common.ParamID(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	var viewer uint
	if id, ok := auth.CurrentIdentity(c); ok && auth.IsUser(id) {
		viewer = id.ID
	}

	views, err := m.List(viewer, postID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": views})
}

func (m *CommentsModule) create(c *gin.Context) {
	id, err := auth.MustIdentity(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	postID, err := common.ParamID(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	var req commentRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}

	comment, err := m.Create(id, postID, req.Content)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Comment created successfully",
		"comment": CommentView{Comment: *comment, Username: id.Username},
	})
}

func (m *CommentsModule) like(c *gin.Context) {
	id, err := auth.MustIdentity(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	if err := auth.RequireUser(id); err != nil {
		common.RespondError(c, err)
		return
	}

	commentID, err := common.ParamID(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	result, err := likes.Toggle(m.db, likes.CommentTarget, commentID, id.ID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     result.Message(likes.CommentTarget),
		"liked":       result.Liked,
		"likes_count": result.LikesCount,
	})
}

func (m *CommentsModule) delete(c *gin.Context) {
	id, err := auth.MustIdentity(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	if err := auth.RequireAdmin(id); err != nil {
		common.RespondError(c, err)
		return
	}

	commentID, err := common.ParamID(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	if err := DeleteComment(m.db, commentID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
