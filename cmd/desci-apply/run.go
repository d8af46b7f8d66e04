package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/DEV-OpenSCI/desci-form/config"
	"github.com/DEV-OpenSCI/desci-form/internal/form"
	"github.com/DEV-OpenSCI/desci-form/internal/model"
	"github.com/DEV-OpenSCI/desci-form/internal/options"
	"github.com/DEV-OpenSCI/desci-form/internal/repository"
	"github.com/DEV-OpenSCI/desci-form/internal/service"
	"github.com/DEV-OpenSCI/desci-form/pkg/apiclient"
)

// errInvalid 草稿未通过本地校验
var errInvalid = errors.New("草稿未通过校验")

const cliSession = "cli"

// run 执行一次填写：加载草稿 → 校验 → 提交（或打印报文）
func run(ctx context.Context, opts *Options, out io.Writer, logger *zap.Logger) error {
	now := time.Now()
	if opts.Template {
		return writeDraft(out, form.ExampleDraft(now))
	}

	draft := form.ExampleDraft(now)
	if !opts.Example {
		d, err := loadDraft(opts.DraftFile)
		if err != nil {
			return err
		}
		draft = d
	}

	validator := form.NewValidator(options.Default()).ForLocale(opts.Locale)

	if opts.DryRun {
		if errs := validator.ValidateAll(draft); !errs.Empty() {
			printIssues(out, errs)
			return errInvalid
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(service.BuildWirePayload(draft))
	}

	formCfg := &config.FormConfig{BypassCode: "nocode", DefaultLocale: opts.Locale}
	store := repository.NewMemorySessionStore(time.Hour)
	defer store.Stop()
	repo := repository.NewRepository(store, nil)

	client := apiclient.New(opts.BaseURL, opts.Timeout, logger, apiclient.WithLocale(opts.Locale))
	fillCode := service.NewFillCodeService(formCfg, repo, client, logger)
	submission := service.NewSubmissionService(repo, client, logger)

	access, err := fillCode.Validate(ctx, cliSession, opts.Code, opts.Locale)
	if err != nil {
		return err
	}

	ctrl := form.NewController(validator,
		form.SubmitterFunc(func(ctx context.Context, d *model.ApplicationDraft) (string, error) {
			return submission.Submit(ctx, cliSession, access, d)
		}),
		form.WithDraft(draft),
		form.AtStep(form.LastStep),
	)
	defer ctrl.Close()

	errs, err := ctrl.Submit(ctx)
	if err != nil {
		return err
	}
	if !errs.Empty() {
		printIssues(out, errs)
		return errInvalid
	}

	totals := ctrl.Totals()
	fmt.Fprintf(out, "提交成功，申请编号: %s\n", ctrl.State().ApplicationNo)
	fmt.Fprintf(out, "捐赠合计: %.2f  自筹合计: %.2f\n", totals.Donation, totals.SelfFunded)
	return nil
}

func loadDraft(path string) (*model.ApplicationDraft, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开草稿文件失败: %w", err)
	}
	defer f.Close()

	draft := form.NewDraft()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(draft); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("解析草稿文件 %s 失败: %w", path, err)
	}
	return draft, nil
}

func writeDraft(out io.Writer, d *model.ApplicationDraft) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return err
	}
	return enc.Close()
}

func printIssues(out io.Writer, errs *form.ErrorTree) {
	fmt.Fprintf(out, "共 %d 处需要修改:\n", errs.Count())
	for _, is := range errs.Issues() {
		fmt.Fprintf(out, "  [%s] %s: %s\n", is.Path.Step(), is.Path, is.Message)
	}
}
