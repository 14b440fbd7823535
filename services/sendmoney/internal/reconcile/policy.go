package reconcile

import "example.com/send-money/services/sendmoney/internal/domain"

// CaptureAction — решение по платежу в статусе capturable.
type CaptureAction int

const (
	// CaptureNow — списать сейчас.
	CaptureNow CaptureAction = iota

	// CaptureDefer — ждать вердикта проверки, повторить в следующем проходе.
	CaptureDefer

	// CaptureReject — не списывать; шлюз сам переведёт платёж в конечный статус.
	CaptureReject
)

func (a CaptureAction) String() string {
	switch a {
	case CaptureNow:
		return "capture"
	case CaptureDefer:
		return "defer"
	case CaptureReject:
		return "reject"
	default:
		return "unknown"
	}
}

// CapturePolicy решает судьбу отложенного платежа по проверке безопасности.
type CapturePolicy struct {
	// SecurityCheckRequired — без проверки платёж не списывается.
	SecurityCheckRequired bool
}

// Decide возвращает действие для платежа в статусе capturable.
func (p CapturePolicy) Decide(payment *domain.Payment) CaptureAction {
	if payment.Security == nil {
		if p.SecurityCheckRequired {
			return CaptureDefer
		}
		return CaptureNow
	}

	switch payment.Security.Status {
	case domain.SecurityCheckAccepted:
		return CaptureNow
	case domain.SecurityCheckRejected:
		return CaptureReject
	default:
		return CaptureDefer
	}
}
