package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/DEV-OpenSCI/desci-form/config"
	"github.com/DEV-OpenSCI/desci-form/internal/repository"
	"github.com/DEV-OpenSCI/desci-form/pkg/apiclient"
)

// ── Fake 申请后端 ──

// fakeUpstream 记录调用顺序，各接口行为可按用例替换
type fakeUpstream struct {
	mu    sync.Mutex
	calls []string

	validateFn func(code string) (*apiclient.FillCodeValidation, error)
	submitFn   func(ctx context.Context, p *apiclient.ApplicationPayload) (*apiclient.SubmitResponse, error)
	presignFn  func(req *apiclient.PresignedURLRequest) (*apiclient.PresignedURLResponse, error)
	uploadErr  error
	parseFn    func(docType string) (string, error)

	uploaded     []byte
	lastCodes    []string
	lastPayloads []*apiclient.ApplicationPayload
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		validateFn: func(code string) (*apiclient.FillCodeValidation, error) {
			exp := "2030-01-01T00:00:00Z"
			return &apiclient.FillCodeValidation{Valid: true, ExpireTime: &exp}, nil
		},
		submitFn: func(context.Context, *apiclient.ApplicationPayload) (*apiclient.SubmitResponse, error) {
			return &apiclient.SubmitResponse{ApplicationNo: "APP-2025-000123"}, nil
		},
		presignFn: func(req *apiclient.PresignedURLRequest) (*apiclient.PresignedURLResponse, error) {
			return &apiclient.PresignedURLResponse{UploadURL: "https://s3.example.com/put", S3Key: "resumes/" + req.FileName, ExpiresIn: 300}, nil
		},
		parseFn: func(docType string) (string, error) { return "parsed " + docType, nil },
	}
}

func (f *fakeUpstream) record(name string, cred apiclient.Credential) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if cred != nil {
		f.lastCodes = append(f.lastCodes, cred.FillCode())
	}
}

func (f *fakeUpstream) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeUpstream) count(name string) int {
	n := 0
	for _, c := range f.callList() {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeUpstream) ValidateFillCode(_ context.Context, code string) (*apiclient.FillCodeValidation, error) {
	f.record("validate", nil)
	return f.validateFn(code)
}

func (f *fakeUpstream) SubmitApplication(ctx context.Context, cred apiclient.Credential, p *apiclient.ApplicationPayload) (*apiclient.SubmitResponse, error) {
	f.record("submit", cred)
	f.mu.Lock()
	f.lastPayloads = append(f.lastPayloads, p)
	f.mu.Unlock()
	return f.submitFn(ctx, p)
}

func (f *fakeUpstream) PresignedURL(_ context.Context, cred apiclient.Credential, req *apiclient.PresignedURLRequest) (*apiclient.PresignedURLResponse, error) {
	f.record("presign", cred)
	return f.presignFn(req)
}

func (f *fakeUpstream) UploadObject(_ context.Context, cred apiclient.Credential, _, _ string, body io.Reader, _ int64) error {
	f.record("put", cred)
	if f.uploadErr != nil {
		return f.uploadErr
	}
	b, err := io.ReadAll(body)
	f.mu.Lock()
	f.uploaded = b
	f.mu.Unlock()
	return err
}

func (f *fakeUpstream) ParseDocument(_ context.Context, cred apiclient.Credential, _ string, _ io.Reader, docType, _ string) (string, error) {
	f.record("parse", cred)
	return f.parseFn(docType)
}

// ── 测试辅助 ──

func testFormConfig() *config.FormConfig {
	return &config.FormConfig{
		BypassCode:       "nocode",
		CountdownSeconds: 10,
		CountdownPeriod:  time.Second,
		ResumeMaxBytes:   10 << 20,
		ParseMaxBytes:    20 << 20,
		DefaultLocale:    "zh",
	}
}

func newTestRepo(t *testing.T) *repository.Repository {
	t.Helper()
	store := repository.NewMemorySessionStore(time.Hour)
	t.Cleanup(store.Stop)
	return repository.NewRepository(store, nil)
}

var nopLogger = zap.NewNop()
