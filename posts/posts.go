package posts

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"forum/auth"
	"forum/common"
	"forum/likes"
	"forum/models"
)

const (
	defaultPage      = 1
	defaultLimit     = 10
	maxLimit         = 100
	maxTitleLength   = 200
	maxContentLength = 10000
)

var ErrPostNotFound = common.NotFound("Post not found")

type PostsModule struct {
	db *gorm.DB
}

func NewPostsModule(db *gorm.DB) *PostsModule {
	return &PostsModule{db: db}
}

func (p *PostsModule) RegisterRoutes(router *gin.Engine) {
	postsGroup := router.Group("/posts")
	{
		postsGroup.GET("", p.list)
		postsGroup.POST("", p.create)
		postsGroup.GET("/:id", p.get)
		postsGroup.PUT("/:id", p.update)
		postsGroup.DELETE("/:id", p.delete)
		postsGroup.POST("/:id/like", p.like)
	}
}

// PostView is a post as the API shows it to one viewer.
type PostView struct {
	models.Post
	Username    string `json:"username"`
	LikedByUser bool   `json:"liked_by_user"`
	ContentHTML string `gorm:"-" json:"content_html"`
}

type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// viewerID returns the users.id that liked_by_user is computed for. Admin
// identities have none.
func viewerID(id *auth.Identity) uint {
	if auth.IsUser(id) {
		return id.ID
	}
	return 0
}

func (p *PostsModule) viewQuery(viewer uint) *gorm.DB {
	return p.db.Table("posts").
		Select("posts.*, users.username AS username, "+
			"EXISTS (SELECT 1 FROM post_likes WHERE post_likes.post_id = posts.id AND post_likes.user_id = ?) AS liked_by_user", viewer).
		Joins("JOIN users ON users.id = posts.user_id")
}

// List returns one page of posts, most liked first, newest first on ties.
func (p *PostsModule) List(viewer uint, page, limit int) ([]PostView, error) {
	views := []PostView{}
	err := p.viewQuery(viewer).
		Order("posts.likes_count DESC, posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	for i := range views {
		views[i].ContentHTML = renderMarkdown(views[i].Content)
	}
	return views, nil
}

func (p *PostsModule) Get(viewer, postID uint) (*PostView, error) {
	var view PostView
	result := p.viewQuery(viewer).Where("posts.id = ?", postID).Scan(&view)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrPostNotFound
	}
	view.ContentHTML = renderMarkdown(view.Content)
	return &view, nil
}

func (p *PostsModule) Create(id *auth.Identity, title, content string) (*models.Post, error) {
	if err := auth.RequireUser(id); err != nil {
		return nil, err
	}
	title, content, err := validatePost(title, content)
	if err != nil {
		return nil, err
	}

	post := models.Post{Title: title, Content: content, UserID: id.ID}
	if err := p.db.Create(&post).Error; err != nil {
		return nil, common.Internal("creating post", err)
	}
	return &post, nil
}

// Update changes title and content; only the post's author may do so.
func (p *PostsModule) Update(id *auth.Identity, postID uint, title, content string) error {
	title, content, err := validatePost(title, content)
	if err != nil {
		return err
	}

	var post models.Post
	if err := p.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return err
	}

	if err := auth.AuthorizePostEdit(id, &post); err != nil {
		return err
	}

	return p.db.Model(&post).Updates(map[string]interface{}{
		"title":            title,
		"content":          content,
		"last_modified_at": time.Now(),
	}).Error
}

// DeletePost removes a post and everything hanging off it, dependents first,
// in one transaction.
func DeletePost(db *gorm.DB, postID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", postID)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
}

func validatePost(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)

	if title == "" || content == "" {
		return "", "", common.InvalidInput("Title and content are required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", "", common.InvalidInput("Title must be at most 200 characters")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return "", "", common.InvalidInput("Content must be at most 10000 characters")
	}
	return title, content, nil
}

func parsePagination(c *gin.Context) (int, int, error) {
	page, err := queryInt(c, "page", defaultPage)
	if err != nil {
		return 0, 0, err
	}
	limit, err := queryInt(c, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, common.InvalidInput("Invalid " + key + " parameter")
	}
	return n, nil
}

func (p *PostsModule) list(c *gin.Context) {
	page, limit, err := parsePagination(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	id, _ := auth.CurrentIdentity(c)
	views, err := p.List(viewerID(id), page, limit)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": views,
		"page":  page,
		"limit": limit,
	})
}

func (p *PostsModule) get(c *gin.Context) {
	postID, err := common.ParamID(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	id, _ := auth.CurrentIdentity(c)
	view, err := p.Get(viewerID(id), postID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": view})
}

func (p *PostsModule) create(c *gin.Context) {
	id, err := auth.MustIdentity(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	var req postRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}

	post, err := p.Create(id, req.Title, req.Content)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	view, err := p.Get(id.ID, post.ID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Post created successfully",
		"post":    view,
	})
}

func (p *PostsModule) update(c *gin.Context) {
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

	var req postRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}

	if err := p.Update(id, postID, req.Title, req.Content); err != nil {
		common.RespondError(c, err)
		return
	}

	view, err := p.Get(viewerID(id), postID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Post updated successfully",
		"post":    view,
	})
}

func (p *PostsModule) delete(c *gin.Context) {
	id, err := auth.MustIdentity(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	if err := auth.RequireAdmin(id); err != nil {
		common.RespondError(c, err)
		return
	}

	postID, err := common.ParamID(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	if err := DeletePost(p.db, postID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

func (p *PostsModule) like(c *gin.Context) {
	id, err := auth.MustIdentity(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	if err := auth.RequireUser(id); err != nil {
		common.RespondError(c, err)
		return
	}

	postID, err := common.ParamID(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	result, err := likes.Toggle(p.db, likes.PostTarget, postID, id.ID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     result.Message(likes.PostTarget),
		"liked":       result.Liked,
		"likes_count": result.LikesCount,
	})
}
