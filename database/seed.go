package database

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"

	"forum/auth"
	"forum/models"

	"gorm.io/gorm"
)

const (
	inviteCodeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	inviteCodeLength      = 8
	adminPasswordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*()"
	adminPasswordLength   = 12
	seedBatchSize         = 500
)

// AdminCredential is a generated admin login, only available at seed time.
type AdminCredential struct {
	Username string
	Password string
}

// Seed fills the invite_codes and admin_accounts tables on first bootstrap.
// Each table is only seeded while it is empty.
func Seed(db *gorm.DB, inviteCodes, admins int) error {
	n, err := SeedInviteCodes(db, inviteCodes)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("Seeded %d invite codes", n)
	}

	creds, err := SeedAdminAccounts(db, admins)
	if err != nil {
		return err
	}
	for _, cred := range creds {
		log.Printf("Seeded admin account %s with password %s", cred.Username, cred.Password)
	}
	return nil
}

func SeedInviteCodes(db *gorm.DB, count int) (int, error) {
	var existing int64
	if err := db.Model(&models.InviteCode{}).Count(&existing).Error; err != nil {
		return 0, fmt.Errorf("counting invite codes: %w", err)
	}
	if existing > 0 || count <= 0 {
		return 0, nil
	}

	codes, err := GenerateInviteCodes(count)
	if err != nil {
		return 0, err
	}

	rows := make([]models.InviteCode, len(codes))
	for i, code := range codes {
		rows[i] = models.InviteCode{Code: code}
	}

	if err := db.CreateInBatches(rows, seedBatchSize).Error; err != nil {
		return 0, fmt.Errorf("inserting invite codes: %w", err)
	}
	return len(rows), nil
}

func SeedAdminAccounts(db *gorm.DB, count int) ([]AdminCredential, error) {
	var existing int64
	if err := db.Model(&models.AdminAccount{}).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("counting admin accounts: %w", err)
	}
	if existing > 0 || count <= 0 {
		return nil, nil
	}

	creds := make([]AdminCredential, 0, count)
	accounts := make([]models.AdminAccount, 0, count)
	for i := 1; i <= count; i++ {
		password, err := randomString(adminPasswordAlphabet, adminPasswordLength)
		if err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hashing admin password: %w", err)
		}

		username := fmt.Sprintf("admin%d", i)
		creds = append(creds, AdminCredential{Username: username, Password: password})
		accounts = append(accounts, models.AdminAccount{Username: username, PasswordHash: hash})
	}

	if err := db.Create(&accounts).Error; err != nil {
		return nil, fmt.Errorf("inserting admin accounts: %w", err)
	}
	return creds, nil
}

// GenerateInviteCodes returns count distinct random codes.
func GenerateInviteCodes(count int) ([]string, error) {
	seen := make(map[string]struct{}, count)
	codes := make([]string, 0, count)
	for len(codes) < count {
		code, err := randomString(inviteCodeAlphabet, inviteCodeLength)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

func randomString(alphabet string, length int) (string, error) {
	base := big.NewInt(int64(len(alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("failed to generate random string: %w", err)
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}

// UnusedInviteCodes lists up to limit codes that can still be redeemed.
func UnusedInviteCodes(db *gorm.DB, limit int) ([]models.InviteCode, error) {
	var codes []models.InviteCode
	err := db.Where("is_used = ?", false).Order("id ASC").Limit(limit).Find(&codes).Error
	return codes, err
}
