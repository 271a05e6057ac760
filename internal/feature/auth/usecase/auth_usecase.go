// Package usecase はauthフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"portal_backend/internal/feature/auth/domain/entity"

	"golang.org/x/crypto/bcrypt"
)

const (
	// minPasswordLength はパスワードの最低文字数を定義します。
	minPasswordLength = 6

	// MaxPasswordBytes はbcryptが受け付けるパスワードの最大バイト数です。
	MaxPasswordBytes = 72

	// dummyPasswordHash はユーザーが存在しない場合のタイミング攻撃緩和用ダミーハッシュです。
	dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
)

// UserRepository はユーザーエンティティの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type UserRepository interface {
	// Create は新しいユーザーをストレージに永続化し、user.IDを設定します。
	// 同じユーザー名のユーザーが既に存在する場合、ErrDuplicateUsernameを返します。
	Create(ctx context.Context, user *entity.User) error

	// FindByUsername は指定されたユーザー名に完全一致するユーザーを取得します。
	// ユーザーが存在しない場合、ErrUserNotFoundを返します。
	FindByUsername(ctx context.Context, username string) (*entity.User, error)

	// FindByID は指定されたIDに一致するユーザーを取得します。
	// ユーザーが存在しない場合、ErrUserNotFoundを返します。
	FindByID(ctx context.Context, id string) (*entity.User, error)
}

// authUsecase は認証ビジネスロジックを実装します。
type authUsecase struct {
	users      UserRepository
	bcryptCost int
}

// NewAuthUsecase はauthUsecaseの新しいインスタンスを生成します。
// bcryptCostが0以下の場合、bcrypt.DefaultCostを使用します。
func NewAuthUsecase(users UserRepository, bcryptCost int) *authUsecase {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &authUsecase{
		users:      users,
		bcryptCost: bcryptCost,
	}
}

// validatePassword はパスワードがセキュリティ要件を満たしているかチェックします。
func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return fmt.Errorf("%w: at least %d characters required", ErrPasswordTooShort, minPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("%w: at most %d bytes allowed", ErrPasswordTooLong, MaxPasswordBytes)
	}
	return nil
}

// Signup はハッシュ化されたパスワードで新規ユーザーを登録し、採番されたIDを返します。
// ユーザー名の一意性はストアのユニーク制約に委ねます（事前チェックは行いません）。
func (u *authUsecase) Signup(ctx context.Context, username, password string) (string, error) {
	// パスワード強度を検証
	if err := validatePassword(password); err != nil {
		return "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), u.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	user := &entity.User{Username: username, PasswordHash: string(hashed)}
	if err := u.users.Create(ctx, user); err != nil {
		return "", err
	}
	return user.ID, nil
}

// Login はユーザーを認証し、成功時にユーザーエンティティを返します。
// ユーザー未検出とパスワード不一致はどちらもErrInvalidCredentialsになります。
// タイミング攻撃を防止するため、ユーザーが存在しない場合でもbcrypt比較を実行します。
func (u *authUsecase) Login(ctx context.Context, username, password string) (*entity.User, error) {
	user, err := u.users.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		// ストア障害は認証失敗として扱わない
		return nil, err
	}

	passwordHash := dummyPasswordHash
	if err == nil {
		passwordHash = user.PasswordHash
	}

	// 第1引数はハッシュ化パスワード、第2引数は平文パスワード
	compareErr := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))

	if err != nil || compareErr != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
