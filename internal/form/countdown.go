package form

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// countdown 提交成功后的倒计时任务。
// ticker 在 start 返回前创建，stop 可重复调用。
type countdown struct {
	stopCh   chan struct{}
	stopOnce sync.Once
}

func startCountdown(clk clock.WithTicker, ticks int, period time.Duration, onTick func(remaining int), onZero func()) *countdown {
	cd := &countdown{stopCh: make(chan struct{})}
	ticker := clk.NewTicker(period)

	go func() {
		defer ticker.Stop()
		remaining := ticks
		for {
			select {
			case <-cd.stopCh:
				return
			case <-ticker.C():
				remaining--
				onTick(remaining)
				if remaining <= 0 {
					onZero()
					return
				}
			}
		}
	}()
	return cd
}

func (cd *countdown) stop() {
	if cd == nil {
		return
	}
	cd.stopOnce.Do(func() { close(cd.stopCh) })
}
