// StoryBoard - Task Tracking for Cross-Project Work
// Copyright 2026 OpenStack Infrastructure Team
// SPDX-License-Identifier: Apache-2.0
// https://opendev.org/openstack-infra/storyboard

// Package auth implements the OAuth authorization code and bearer token
// flow. Codes are short-lived and single-use; access tokens pair with at
// most one refresh token.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/openstack-infra/storyboard-sub001/internal/database"
	"github.com/openstack-infra/storyboard-sub001/internal/models"
)

// Token lifetimes in seconds.
const (
	CodeTTL         = 300
	AccessTokenTTL  = 3600
	RefreshTokenTTL = 604800
)

// Service mints authorization codes and exchanges them for token pairs.
type Service struct {
	store *database.Store
}

func NewService(store *database.Store) *Service {
	return &Service{store: store}
}

// TokenResponse is the OAuth token endpoint payload.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// MintCode issues a single-use authorization code for the user.
func (s *Service) MintCode(ctx context.Context, session *database.Session, userID int64, state string) (*models.AuthorizationCode, error) {
	code := &models.AuthorizationCode{
		Code:      randomToken(),
		State:     state,
		UserID:    userID,
		ExpiresIn: CodeTTL,
	}
	if err := session.CreateAuthorizationCode(ctx, code); err != nil {
		return nil, fmt.Errorf("minting authorization code: %w", err)
	}
	return code, nil
}

// Exchange trades a valid authorization code for a fresh token pair. The
// code is deactivated whether or not it had already expired.
func (s *Service) Exchange(ctx context.Context, session *database.Session, code string) (*TokenResponse, error) {
	authCode, err := session.GetAuthorizationCode(ctx, code)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, database.NewClientError("invalid authorization code")
		}
		return nil, err
	}
	if err := session.ConsumeAuthorizationCode(ctx, authCode.ID); err != nil {
		return nil, err
	}
	if authCode.Expired(models.Now()) {
		return nil, database.NewClientError("authorization code expired")
	}
	return s.mintPair(ctx, session, authCode.UserID)
}

// Refresh trades a refresh token for a new pair. The old access token is
// deleted, which cascades to the presented refresh token.
func (s *Service) Refresh(ctx context.Context, session *database.Session, refreshToken string) (*TokenResponse, error) {
	refresh, err := session.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, database.NewClientError("invalid refresh token")
		}
		return nil, err
	}
	if err := session.DeleteAccessToken(ctx, refresh.AccessTokenID); err != nil {
		return nil, err
	}
	if refresh.Expired(models.Now()) {
		return nil, database.NewClientError("refresh token expired")
	}
	return s.mintPair(ctx, session, refresh.UserID)
}

func (s *Service) mintPair(ctx context.Context, session *database.Session, userID int64) (*TokenResponse, error) {
	access := &models.AccessToken{
		AccessToken: randomToken(),
		UserID:      userID,
		ExpiresIn:   AccessTokenTTL,
	}
	if err := session.CreateAccessToken(ctx, access); err != nil {
		return nil, fmt.Errorf("minting access token: %w", err)
	}
	refresh := &models.RefreshToken{
		RefreshToken:  randomToken(),
		AccessTokenID: access.ID,
		UserID:        userID,
		ExpiresIn:     RefreshTokenTTL,
	}
	if err := session.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("minting refresh token: %w", err)
	}
	return &TokenResponse{
		AccessToken:  access.AccessToken,
		RefreshToken: refresh.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    AccessTokenTTL,
	}, nil
}

func randomToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(buf)
}
