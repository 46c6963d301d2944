package comments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"forum/auth"
	"forum/common"
	"forum/models"
)

var testTokens = auth.NewTokens("test-secret", time.Hour)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := common.ConnectDb(common.Config{
		DatabaseDriver:   "sqlite",
		DatabaseURL:      ":memory:",
		DatabaseLogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(auth.RequireToken(testTokens))
	NewCommentsModule(db).RegisterRoutes(router)
	return router
}

func createUser(t *testing.T, db *gorm.DB, username string) *auth.Identity {
	t.Helper()
	user := models.User{Username: username, PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&user).Error)
	return &auth.Identity{ID: user.ID, Username: user.Username, Role: user.Role}
}

func createPost(t *testing.T, db *gorm.DB, author *auth.Identity) *models.Post {
	t.Helper()
	post := models.Post{Title: "post", Content: "body", UserID: author.ID}
	require.NoError(t, db.Create(&post).Error)
	return &post
}

func tokenFor(t *testing.T, id *auth.Identity) string {
	t.Helper()
	token, err := testTokens.Issue(*id)
	require.NoError(t, err)
	return token
}

func adminToken(t *testing.T) string {
	return tokenFor(t, &auth.Identity{ID: 1, Username: "admin1", Role: models.RoleAdmin})
}

func doJSON(router *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func commentsCount(t *testing.T, db *gorm.DB, postID uint) int {
	t.Helper()
	var post models.Post
	require.NoError(t, db.First(&post, postID).Error)
	return post.CommentsCount
}

func TestCreateComment(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	alice := createUser(t, db, "alice")
	post := createPost(t, db, alice)
	path := fmt.Sprintf("/posts/%d/comments", post.ID)

	w := doJSON(router, "POST", path, gin.H{"content": "  first!  "}, tokenFor(t, alice))
	require.Equal(t, http.StatusCreated, w.Code)

	var response struct {
		Message string      `json:"message"`
		Comment CommentView `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Comment created successfully", response.Message)
	assert.Equal(t, "first!", response.Comment.Content)
	assert.Equal(t, "alice", response.Comment.Username)
	assert.Equal(t, post.ID, response.Comment.PostID)
	assert.Equal(t, 1, commentsCount(t, db, post.ID))

	w = doJSON(router, "POST", path, gin.H{"content": "second"}, tokenFor(t, alice))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 2, commentsCount(t, db, post.ID))
}

func TestCreateComment_Rejected(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	alice := createUser(t, db, "alice")
	post := createPost(t, db, alice)
	path := fmt.Sprintf("/posts/%d/comments", post.ID)

	w := doJSON(router, "POST", path, gin.H{"content": "   "}, tokenFor(t, alice))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, "POST", "/posts/999/comments", gin.H{"content": "hello"}, tokenFor(t, alice))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Post not found"}`, w.Body.String())

	w = doJSON(router, "POST", path, gin.H{"content": "hello"}, adminToken(t))
	assert.Equal(t, http.StatusForbidden, w.Code)

	var n int64
	db.Model(&models.Comment{}).Count(&n)
	assert.Equal(t, int64(0), n)
	assert.Equal(t, 0, commentsCount(t, db, post.ID))
}

func TestListComments(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	post := createPost(t, db, alice)

	base := time.Now().Add(-time.Hour)
	fixtures := []models.Comment{
		{Content: "early quiet", UserID: alice.ID, CreatedAt: base},
		{Content: "late popular", UserID: bob.ID, LikesCount: 3, CreatedAt: base.Add(2 * time.Minute)},
		{Content: "late quiet", UserID: bob.ID, CreatedAt: base.Add(time.Minute)},
	}
	for i := range fixtures {
		fixtures[i].PostID = post.ID
		require.NoError(t, db.Create(&fixtures[i]).Error)
	}
	require.NoError(t, db.Create(&models.CommentLike{CommentID: fixtures[1].ID, UserID: alice.ID}).Error)

	w := doJSON(router, "GET", fmt.Sprintf("/posts/%d/comments", post.ID), nil, tokenFor(t, alice))
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Comments []CommentView `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Comments, 3)
	assert.Equal(t, "late popular", response.Comments[0].Content)
	assert.Equal(t, "early quiet", response.Comments[1].Content)
	assert.Equal(t, "late quiet", response.Comments[2].Content)
	assert.Equal(t, "bob", response.Comments[0].Username)
	assert.True(t, response.Comments[0].LikedByUser)
	assert.False(t, response.Comments[1].LikedByUser)

	w = doJSON(router, "GET", "/posts/999/comments", nil, tokenFor(t, alice))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListComments_EmptyIsArray(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	alice := createUser(t, db, "alice")
	post := createPost(t, db, alice)

	w := doJSON(router, "GET", fmt.Sprintf("/posts/%d/comments", post.ID), nil, tokenFor(t, alice))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"comments":[]}`, w.Body.String())
}

func TestLikeComment_Toggle(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	post := createPost(t, db, alice)
	comment := models.Comment{Content: "nice", PostID: post.ID, UserID: alice.ID}
	require.NoError(t, db.Create(&comment).Error)
	path := fmt.Sprintf("/comments/%d/like", comment.ID)

	w := doJSON(router, "POST", path, nil, tokenFor(t, bob))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Comment liked","liked":true,"likes_count":1}`, w.Body.String())

	w = doJSON(router, "POST", path, nil, tokenFor(t, alice))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Comment liked","liked":true,"likes_count":2}`, w.Body.String())

	w = doJSON(router, "POST", path, nil, tokenFor(t, bob))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Comment unliked","liked":false,"likes_count":1}`, w.Body.String())

	w = doJSON(router, "POST", "/comments/999/like", nil, tokenFor(t, bob))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Comment not found"}`, w.Body.String())
}

func TestDeleteComment(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	post := createPost(t, db, alice)
	m := NewCommentsModule(db)

	comment, err := m.Create(bob, post.ID, "to be removed")
	require.NoError(t, err)
	_, err = m.Create(bob, post.ID, "stays")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.CommentLike{CommentID: comment.ID, UserID: alice.ID}).Error)
	require.Equal(t, 2, commentsCount(t, db, post.ID))

	path := fmt.Sprintf("/comments/%d", comment.ID)

	w := doJSON(router, "DELETE", path, nil, tokenFor(t, bob))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(router, "DELETE", path, nil, adminToken(t))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Comment deleted successfully"}`, w.Body.String())

	assert.Equal(t, 1, commentsCount(t, db, post.ID))
	var likes int64
	db.Model(&models.CommentLike{}).Count(&likes)
	assert.Equal(t, int64(0), likes)

	w = doJSON(router, "DELETE", path, nil, adminToken(t))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteComment_CounterDoesNotGoNegative(t *testing.T) {
	db := setupTestDB(t)
	alice := createUser(t, db, "alice")
	post := createPost(t, db, alice)
	comment := models.Comment{Content: "orphaned count", PostID: post.ID, UserID: alice.ID}
	require.NoError(t, db.Create(&comment).Error)

	require.NoError(t, DeleteComment(db, comment.ID))
	assert.Equal(t, 0, commentsCount(t, db, post.ID))
}
