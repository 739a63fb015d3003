package logic

import "fmt"

// WakeCause mirrors the low-level wake-cause register. Values follow the
// ESP-IDF numbering so persisted causes stay comparable across targets.
type WakeCause int

const (
	WakeUndefined WakeCause = 0
	WakeExt0      WakeCause = 2
	WakeExt1      WakeCause = 3
	WakeTimer     WakeCause = 4
	WakeTouchpad  WakeCause = 5
	WakeULP       WakeCause = 6
)

// WakeKind is the coarse wake reason recorded in the boot context.
type WakeKind string

const (
	WakeKindColdBoot       WakeKind = "COLD_BOOT"
	WakeKindExternalSignal WakeKind = "EXTERNAL_SIGNAL"
	WakeKindTimer          WakeKind = "TIMER"
	WakeKindOther          WakeKind = "OTHER"
)

// FirstBoot is the classification for the first execution after power-on.
const FirstBoot = "First boot"

// ClassifyWake returns the human-readable reason the node is running.
// A boot count of 1 always means a cold boot: the cause register is
// meaningless then.
func ClassifyWake(bootCount int, cause WakeCause) string {
	if bootCount == 1 {
		return FirstBoot
	}

	switch cause {
	case WakeExt0:
		return "Wakeup caused by external signal using RTC_IO"
	case WakeExt1:
		return "Wakeup caused by external signal using RTC_CNTL"
	case WakeTimer:
		return "Wakeup caused by timer"
	case WakeTouchpad:
		return "Wakeup caused by touchpad"
	case WakeULP:
		return "Wakeup caused by ULP program"
	default:
		return fmt.Sprintf("Wakeup caused by %d", int(cause))
	}
}

// KindOf collapses a boot count and cause into the coarse wake kind.
func KindOf(bootCount int, cause WakeCause) WakeKind {
	if bootCount == 1 {
		return WakeKindColdBoot
	}
	switch cause {
	case WakeExt0, WakeExt1:
		return WakeKindExternalSignal
	case WakeTimer:
		return WakeKindTimer
	default:
		return WakeKindOther
	}
}
