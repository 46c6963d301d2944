package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"forum/common"
	"forum/models"
)

const (
	minUsernameLength = 2
	maxUsernameLength = 50
	minPasswordLength = 6
)

var (
	ErrInvalidInviteCode     = common.InvalidInput("Invalid invite code")
	ErrInviteCodeAlreadyUsed = common.InvalidInput("Invite code has already been used")
	ErrUsernameTaken         = common.Conflict("Username already exists")
	ErrInvalidCredentials    = common.Unauthorized("Invalid credentials")
)

type AuthModule struct {
	db     *gorm.DB
	tokens *Tokens
}

func NewAuthModule(db *gorm.DB, tokens *Tokens) *AuthModule {
	return &AuthModule{db: db, tokens: tokens}
}

func (a *AuthModule) RegisterRoutes(router *gin.Engine) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", a.register)
		authGroup.POST("/login", a.login)
		authGroup.POST("/admin/login", a.adminLogin)
		authGroup.GET("/me", Authenticate(a.tokens), a.me)
	}
}

type RegisterRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	InviteCode string `json:"invite_code"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register redeems an invite code and creates the user in one transaction.
// Either both writes land or neither does.
func (a *AuthModule) Register(req RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	code := strings.TrimSpace(req.InviteCode)
	password := req.Password

	if username == "" || strings.TrimSpace(password) == "" || code == "" {
		return nil, common.InvalidInput("Username, password, and invite code are required")
	}
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return nil, common.InvalidInput("Username must be between 2 and 50 characters")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, common.InvalidInput("Password must be at least 6 characters")
	}

	var invite models.InviteCode
	if err := a.db.Where("code = ?", code).First(&invite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, common.Internal("looking up invite code", err)
	}
	if invite.IsUsed {
		return nil, ErrInviteCodeAlreadyUsed
	}

	var taken int64
	if err := a.db.Model(&models.User{}).Where("username = ?", username).Count(&taken).Error; err != nil {
		return nil, common.Internal("checking username", err)
	}
	if taken > 0 {
		return nil, ErrUsernameTaken
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, common.Internal("hashing password", err)
	}

	user := models.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
	}

	err = a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUsernameTaken
			}
			return err
		}

		// The is_used condition makes a concurrent redemption of the same
		// code affect zero rows instead of relinking it.
		result := tx.Model(&models.InviteCode{}).
			Where("id = ? AND is_used = ?", invite.ID, false).
			Updates(map[string]interface{}{
				"is_used":         true,
				"used_by_user_id": user.ID,
				"used_at":         time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return ErrInviteCodeAlreadyUsed
		}
		return nil
	})
	if err != nil {
		if common.KindOf(err) == common.KindInternal {
			return nil, common.Internal("registration failed", err)
		}
		return nil, err
	}

	log.Printf("registered user %s (id %d)", user.Username, user.ID)
	return &user, nil
}

// Login checks user credentials and issues a token. Unknown usernames and
// wrong passwords fail identically.
func (a *AuthModule) Login(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", common.InvalidInput("Username and password are required")
	}

	var user models.User
	if err := a.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			burnPasswordCheck(password)
			return "", ErrInvalidCredentials
		}
		return "", common.Internal("looking up user", err)
	}

	if !CheckPasswordHash(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return a.issue(Identity{ID: user.ID, Username: user.Username, Role: user.Role})
}

// AdminLogin is Login against the admin_accounts credential space.
func (a *AuthModule) AdminLogin(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", common.InvalidInput("Username and password are required")
	}

	var admin models.AdminAccount
	if err := a.db.Where("username = ?", username).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			burnPasswordCheck(password)
			return "", ErrInvalidCredentials
		}
		return "", common.Internal("looking up admin account", err)
	}

	if !CheckPasswordHash(password, admin.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return a.issue(Identity{ID: admin.ID, Username: admin.Username, Role: models.RoleAdmin})
}

func (a *AuthModule) issue(id Identity) (string, error) {
	token, err := a.tokens.Issue(id)
	if err != nil {
		return "", common.Internal("signing token", err)
	}
	return token, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnPasswordCheck spends the same bcrypt work as a real comparison so a
// missing account is not distinguishable by response time.
func burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = HashPassword("not-a-real-password")
	})
	CheckPasswordHash(password, dummyHash)
}

func (a *AuthModule) register(c *gin.Context) {
	var req RegisterRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}

	user, err := a.Register(req)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
	})
}

func (a *AuthModule) login(c *gin.Context) {
	var req LoginRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}

	token, err := a.Login(req.Username, req.Password)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (a *AuthModule) adminLogin(c *gin.Context) {
	var req LoginRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}

	token, err := a.AdminLogin(req.Username, req.Password)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (a *AuthModule) me(c *gin.Context) {
	id, err := MustIdentity(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": id})
}
