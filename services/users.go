package services

import (
	"blog/db"
	"blog/models"
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	IsStaff   bool
}

type UserService struct{}

func NewUserService() *UserService {
	return &UserService{}
}

func HashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

func CheckPassword(stored, password string) (bool, error) {
	parts := strings.Split(stored, "$")
	if len(parts) != 2 {
		return false, errors.New("invalid password format")
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false, err
	}
	want, err := hex.DecodeString(parts[1])
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func (us *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, errors.New("username and password are required")
	}

	var alreadyExists int64
	err := db.GetReadOnlyDB(ctx).Model(&models.User{}).Where("username = ?", username).Count(&alreadyExists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if alreadyExists > 0 {
		return nil, ErrUserExists
	}

	passwordHash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:  username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  passwordHash,
		IsStaff:   in.IsStaff,
	}
	if err := db.GetWriteDB(ctx).Create(user).Error; err != nil {
		// параллельная регистрация того же имени между проверкой и вставкой
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	log.Printf("DEBUG: registered user %s with id=%d", user.Username, user.ID)
	return user, nil
}

// Login проверяет пароль и выдает новый токен, старые токены удаляются
func (us *UserService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to get user: %w", err)
	}

	ok, err := CheckPassword(user.Password, password)
	if err != nil {
		log.Printf("ERROR: stored password of user %d is malformed: %v", user.ID, err)
		return "", nil, ErrInvalidCredentials
	}
	if !ok {
		return "", nil, ErrInvalidCredentials
	}

	tokenBytes := make([]byte, 32)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", nil, err
	}
	token := hex.EncodeToString(tokenBytes)

	err = db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserTokens{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.UserTokens{UserID: user.ID, Token: token}).Error
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to store token: %w", err)
	}
	return token, &user, nil
}

func (us *UserService) Logout(ctx context.Context, token string) error {
	return db.GetWriteDB(ctx).Where("token = ?", token).Delete(&models.UserTokens{}).Error
}

// UserByToken returns ErrNotFound for unknown or revoked tokens.
func (us *UserService) UserByToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("token: %w", ErrNotFound)
	}
	var user models.User
	err := db.GetReadOnlyDB(ctx).
		Joins("JOIN user_tokens ON user_tokens.user_id = users.id").
		Where("user_tokens.token = ?", token).
		First(&user).Error
	if err != nil {
		return nil, notFound(err, "token")
	}
	return &user, nil
}

func (us *UserService) UserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := db.GetReadOnlyDB(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}
