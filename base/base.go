// Package base implements the service layer: every operation the HTTP
// handlers expose lives here, on top of the storage interfaces.
package base

import (
	"context"
	"fmt"
	"time"

	"github.com/HiveCTF/cyberhive"
	"github.com/HiveCTF/cyberhive/internal/config"
	"github.com/HiveCTF/cyberhive/internal/ratelimit"
	"github.com/Yiling-J/theine-go"
	"github.com/sashabaranov/go-openai"
)

type BaseAPI struct {
	store cyberhive.Store
	cfg   *config.Config

	sessionUserCache *theine.LoadingCache[string, *cyberhive.UserFull]

	limiter ratelimit.Limiter

	llm *openai.Client
}

func New(cfg *config.Config, store cyberhive.Store, limiter ratelimit.Limiter) (*BaseAPI, error) {
	base := &BaseAPI{
		store:   store,
		cfg:     cfg,
		limiter: limiter,
	}

	sUserCache, err := theine.NewBuilder[string, *cyberhive.UserFull](500).BuildWithLoader(func(ctx context.Context, token string) (theine.Loaded[*cyberhive.UserFull], error) {
		user, err := base.sessionUser(ctx, token)
		if err != nil {
			return theine.Loaded[*cyberhive.UserFull]{}, err
		}
		return theine.Loaded[*cyberhive.UserFull]{
			Value: user,
			Cost:  1,
			TTL:   20 * time.Second,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not build session user cache: %w", err)
	}
	base.sessionUserCache = sUserCache

	if cfg.OpenAI.Enabled && cfg.OpenAI.APIKey != "" {
		base.llm = openai.NewClient(cfg.OpenAI.APIKey)
	}

	return base, nil
}

func (s *BaseAPI) Close() error {
	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("couldn't close store: %w", err)
		}
	}
	return nil
}
