package ws

import (
	"context"
	"errors"
)

// ErrAuthFailed は認証ハンドシェイクの失敗を表します。
var ErrAuthFailed = errors.New("authentication failed")

// Identity はハンドシェイクから信頼できるプレイヤーIDを導出する境界です。
// 本実装ではプラットフォームのチケット検証に差し替えることを想定しています。
type Identity interface {
	Verify(ctx context.Context, ticket, claimedID string) (string, error)
}

// TrustIdentity はクレームされたIDをそのまま信頼するスタブ実装。
type TrustIdentity struct{}

func (TrustIdentity) Verify(_ context.Context, _ string, claimedID string) (string, error) {
	if claimedID == "" {
		return "", ErrAuthFailed
	}
	return claimedID, nil
}
