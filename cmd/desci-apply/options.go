package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Options 命令行参数
type Options struct {
	DraftFile string        // YAML 草稿文件
	Example   bool          // 使用内置示例数据（测试模式）
	Template  bool          // 输出示例草稿 YAML 后退出
	Code      string        // 填写码
	BaseURL   string        // 申请后端地址
	Timeout   time.Duration // 单次请求超时
	Locale    string        // 文案语言
	DryRun    bool          // 仅本地校验并打印报文，不提交
	LogLevel  string
}

// NewOptions 默认参数
func NewOptions() *Options {
	return &Options{
		BaseURL:  "http://localhost:8000/api/project-form",
		Timeout:  30 * time.Second,
		Locale:   "zh",
		LogLevel: "warn",
	}
}

// AddFlags 绑定命令行参数
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.DraftFile, "draft", "f", o.DraftFile, "YAML 草稿文件路径")
	fs.BoolVar(&o.Example, "example", o.Example, "使用内置示例数据填写")
	fs.BoolVar(&o.Template, "template", o.Template, "输出示例草稿 YAML 后退出")
	fs.StringVarP(&o.Code, "code", "c", o.Code, "填写码（免码通道为 nocode）")
	fs.StringVar(&o.BaseURL, "base-url", o.BaseURL, "申请后端 REST 地址")
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout, "单次请求超时")
	fs.StringVar(&o.Locale, "locale", o.Locale, "提示语言: zh 或 en")
	fs.BoolVar(&o.DryRun, "dry-run", o.DryRun, "仅校验并打印提交报文，不请求后端")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "日志级别")
}

// Validate 参数组合校验
func (o *Options) Validate() error {
	if o.Template {
		return nil
	}
	if (o.DraftFile == "") == !o.Example {
		return errors.New("--draft 与 --example 必须且只能指定一个")
	}
	if o.Locale != "zh" && o.Locale != "en" {
		return fmt.Errorf("无效的 --locale %q: 仅支持 zh 或 en", o.Locale)
	}
	if o.DryRun {
		return nil
	}
	if o.Code == "" {
		return errors.New("提交时必须指定 --code")
	}
	if o.BaseURL == "" {
		return errors.New("--base-url 不能为空")
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("无效的 --timeout %s: 必须大于 0", o.Timeout)
	}
	return nil
}
