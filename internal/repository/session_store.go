package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/DEV-OpenSCI/desci-form/internal/model"
	"github.com/DEV-OpenSCI/desci-form/pkg/redis"
)

// ErrSessionNotFound 会话不存在或已过期
var ErrSessionNotFound = errors.New("会话不存在或已过期")

// SessionStore 表单会话存储：填写码会话与草稿快照，均按会话 ID 隔离
type SessionStore interface {
	SaveAccess(ctx context.Context, sessionID string, access *model.AccessSession) error
	GetAccess(ctx context.Context, sessionID string) (*model.AccessSession, error)
	DeleteAccess(ctx context.Context, sessionID string) error

	SaveDraft(ctx context.Context, sessionID string, snap *model.DraftSnapshot) error
	GetDraft(ctx context.Context, sessionID string) (*model.DraftSnapshot, error)
	DeleteDraft(ctx context.Context, sessionID string) error
}

const (
	accessKeyPrefix = "desci:session:access:"
	draftKeyPrefix  = "desci:session:draft:"
)

// ── Redis 实现 ──

type redisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSessionStore 创建基于 Redis 的会话存储
func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration) SessionStore {
	return &redisSessionStore{rdb: rdb, ttl: ttl}
}

func (s *redisSessionStore) SaveAccess(ctx context.Context, sessionID string, access *model.AccessSession) error {
	return s.rdb.SetJSON(ctx, accessKeyPrefix+sessionID, access, s.ttl)
}

func (s *redisSessionStore) GetAccess(ctx context.Context, sessionID string) (*model.AccessSession, error) {
	var access model.AccessSession
	if err := s.rdb.GetJSON(ctx, accessKeyPrefix+sessionID, &access); err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &access, nil
}

func (s *redisSessionStore) DeleteAccess(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, accessKeyPrefix+sessionID)
}

func (s *redisSessionStore) SaveDraft(ctx context.Context, sessionID string, snap *model.DraftSnapshot) error {
	return s.rdb.SetJSON(ctx, draftKeyPrefix+sessionID, snap, s.ttl)
}

func (s *redisSessionStore) GetDraft(ctx context.Context, sessionID string) (*model.DraftSnapshot, error) {
	var snap model.DraftSnapshot
	if err := s.rdb.GetJSON(ctx, draftKeyPrefix+sessionID, &snap); err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &snap, nil
}

func (s *redisSessionStore) DeleteDraft(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, draftKeyPrefix+sessionID)
}

// ── 内存实现（Redis 不可用时降级，CLI 使用）──

// MemorySessionStore 基于 ttlcache 的进程内会话存储
type MemorySessionStore struct {
	access *ttlcache.Cache[string, model.AccessSession]
	drafts *ttlcache.Cache[string, model.DraftSnapshot]
}

// NewMemorySessionStore 创建内存会话存储并启动过期清理
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	s := &MemorySessionStore{
		access: ttlcache.New(ttlcache.WithTTL[string, model.AccessSession](ttl)),
		drafts: ttlcache.New(ttlcache.WithTTL[string, model.DraftSnapshot](ttl)),
	}
	go s.access.Start()
	go s.drafts.Start()
	return s
}

// Stop 停止过期清理
func (s *MemorySessionStore) Stop() {
	s.access.Stop()
	s.drafts.Stop()
}

func (s *MemorySessionStore) SaveAccess(_ context.Context, sessionID string, access *model.AccessSession) error {
	s.access.Set(sessionID, *access, ttlcache.DefaultTTL)
	return nil
}

func (s *MemorySessionStore) GetAccess(_ context.Context, sessionID string) (*model.AccessSession, error) {
	item := s.access.Get(sessionID)
	if item == nil {
		return nil, ErrSessionNotFound
	}
	access := item.Value()
	return &access, nil
}

func (s *MemorySessionStore) DeleteAccess(_ context.Context, sessionID string) error {
	s.access.Delete(sessionID)
	return nil
}

func (s *MemorySessionStore) SaveDraft(_ context.Context, sessionID string, snap *model.DraftSnapshot) error {
	stored := *snap
	if snap.Draft != nil {
		stored.Draft = snap.Draft.Clone()
	}
	s.drafts.Set(sessionID, stored, ttlcache.DefaultTTL)
	return nil
}

func (s *MemorySessionStore) GetDraft(_ context.Context, sessionID string) (*model.DraftSnapshot, error) {
	item := s.drafts.Get(sessionID)
	if item == nil {
		return nil, ErrSessionNotFound
	}
	snap := item.Value()
	if snap.Draft != nil {
		snap.Draft = snap.Draft.Clone()
	}
	return &snap, nil
}

func (s *MemorySessionStore) DeleteDraft(_ context.Context, sessionID string) error {
	s.drafts.Delete(sessionID)
	return nil
}
