package options

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/DEV-OpenSCI/desci-form/pkg/apiclient"
)

// Fetcher 后端选项接口
type Fetcher interface {
	GetOptions(ctx context.Context, cred apiclient.Credential, kind, language string) ([]apiclient.SelectOption, error)
}

// cacheKey 选项按语言与类别分别缓存
type cacheKey struct {
	locale string
	kind   Kind
}

func (k cacheKey) String() string { return k.locale + "/" + string(k.kind) }

// Remote 带 TTL 缓存的后端选项来源。
// 同一类别的并发加载合并为一次上游请求。
type Remote struct {
	fetcher Fetcher
	cache   *ttlcache.Cache[cacheKey, []Option]
	group   singleflight.Group
}

// NewRemote 创建远程来源
func NewRemote(fetcher Fetcher, ttl time.Duration) *Remote {
	return &Remote{
		fetcher: fetcher,
		cache: ttlcache.New(
			ttlcache.WithTTL[cacheKey, []Option](ttl),
			ttlcache.WithDisableTouchOnHit[cacheKey, []Option](),
		),
	}
}

// Get 读取某语言某类别的选项，缓存未命中时向后端拉取
func (r *Remote) Get(ctx context.Context, cred apiclient.Credential, locale string, kind Kind) ([]Option, error) {
	key := cacheKey{locale: locale, kind: kind}
	if item := r.cache.Get(key); item != nil {
		return append([]Option(nil), item.Value()...), nil
	}

	v, err, _ := r.group.Do(key.String(), func() (interface{}, error) {
		remote, err := r.fetcher.GetOptions(ctx, cred, string(kind), locale)
		if err != nil {
			return nil, err
		}
		opts := make([]Option, 0, len(remote))
		for _, o := range remote {
			opts = append(opts, Option{Value: o.Value, Label: o.Label, Description: o.Description})
		}
		r.cache.Set(key, opts, ttlcache.DefaultTTL)
		return opts, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]Option(nil), v.([]Option)...), nil
}

// LoadAll 并发拉取某语言的全部后端类别
func (r *Remote) LoadAll(ctx context.Context, cred apiclient.Credential, locale string) (map[Kind][]Option, error) {
	var mu sync.Mutex
	out := make(map[Kind][]Option, len(RemoteKinds))

	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range RemoteKinds {
		g.Go(func() error {
			opts, err := r.Get(gctx, cred, locale, kind)
			if err != nil {
				return err
			}
			mu.Lock()
			out[kind] = opts
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Refresh 拉取全部后端类别并写入 catalog 的 locale 分区
func (r *Remote) Refresh(ctx context.Context, cred apiclient.Credential, catalog *Catalog, locale string) error {
	all, err := r.LoadAll(ctx, cred, locale)
	if err != nil {
		return err
	}
	for kind, opts := range all {
		catalog.Replace(locale, kind, opts)
	}
	return nil
}

// Invalidate 清空缓存
func (r *Remote) Invalidate() {
	r.cache.DeleteAll()
}
