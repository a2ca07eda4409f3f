package service

import (
	"errors"
	"fmt"
	"time"

	"linkbio/internal/domain"
)

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeError   NoticeLevel = "error"
)

// quotaRedirectDelay is how long the quota notice stays before the editor
// opens the upgrade page.
const quotaRedirectDelay = 2 * time.Second

// Notice is a user-facing message. RedirectURL, when set, is opened after
// RedirectAfter.
type Notice struct {
	Level         NoticeLevel   `json:"level"`
	Message       string        `json:"message"`
	RedirectURL   string        `json:"redirectUrl,omitempty"`
	RedirectAfter time.Duration `json:"redirectAfter,omitempty"`
}

func successNotice(msg string) Notice {
	return Notice{Level: NoticeSuccess, Message: msg}
}

// NoticeFor maps an operation error to the message shown to the user.
func NoticeFor(err error) Notice {
	var qe *domain.QuotaError
	switch {
	case errors.As(err, &qe):
		return Notice{
			Level:         NoticeError,
			Message:       "Você não tem permissão para adicionar mais elementos. Atualize seu plano para desbloquear recursos.",
			RedirectURL:   qe.UpgradeURL,
			RedirectAfter: quotaRedirectDelay,
		}
	case errors.Is(err, domain.ErrFeatureLocked):
		return Notice{Level: NoticeError, Message: "Recurso disponível apenas no plano premium."}
	case errors.Is(err, domain.ErrAssetTooLarge):
		return Notice{Level: NoticeError, Message: fmt.Sprintf("O arquivo deve ser menor que %dMB.", domain.MaxImageBytes>>20)}
	case errors.Is(err, domain.ErrUploadFailed):
		return Notice{Level: NoticeError, Message: "Erro ao enviar imagem. Tente novamente."}
	case errors.Is(err, domain.ErrNoLatestPage):
		return Notice{Level: NoticeError, Message: "Nenhuma página publicada encontrada."}
	case errors.Is(err, domain.ErrNotSignedIn):
		return Notice{Level: NoticeError, Message: "Faça login para continuar."}
	case errors.Is(err, domain.ErrPublishInProgress):
		return Notice{Level: NoticeInfo, Message: "Publicação em andamento."}
	case errors.Is(err, domain.ErrInvalidValue), errors.Is(err, domain.ErrKindMismatch),
		errors.Is(err, domain.ErrUnknownKind), errors.Is(err, domain.ErrUnknownPlatform):
		return Notice{Level: NoticeError, Message: "Valor inválido: " + err.Error()}
	default:
		return Notice{Level: NoticeError, Message: "Algo deu errado. Tente novamente."}
	}
}
