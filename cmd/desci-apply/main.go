// desci-apply 在命令行中填写并提交 DeSci 项目申请
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/DEV-OpenSCI/desci-form/config"
	applogger "github.com/DEV-OpenSCI/desci-form/pkg/logger"
)

func main() {
	opts := NewOptions()
	fs := pflag.NewFlagSet("desci-apply", pflag.ExitOnError)
	opts.AddFlags(fs)
	_ = fs.Parse(os.Args[1:])

	if err := opts.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "参数错误: %v\n", err)
		fs.Usage()
		os.Exit(2)
	}

	logger, err := applogger.NewLogger(&config.LogConfig{Level: opts.LogLevel, Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout, logger); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		if errors.Is(err, errInvalid) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}
