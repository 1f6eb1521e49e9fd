package service

import (
	"context"
	"fmt"
	"time"

	"github.com/turuturu/turuturu/internal/config"
	"github.com/turuturu/turuturu/internal/notification/domain"
	obsmetrics "github.com/turuturu/turuturu/internal/observability/metrics"
	profiledomain "github.com/turuturu/turuturu/internal/profile/domain"
	"github.com/turuturu/turuturu/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sendTimeout = 10 * time.Second

type Params struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	Email      email.Provider
	Profiles   profiledomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

// Sink delivers emails after the triggering transaction committed. It
// runs detached from the request so a slow SMTP server cannot stall a
// webhook ack, and it swallows every failure by contract.
type Sink struct {
	cfg        config.Config
	log        *zap.Logger
	email      email.Provider
	profiles   profiledomain.Service
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Sink {
	return &Sink{
		cfg:        p.Config,
		log:        p.Log.Named("notification.sink"),
		email:      p.Email,
		profiles:   p.Profiles,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Sink) Send(ctx context.Context, event domain.Event) {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	go func() {
		defer cancel()
		s.deliver(detached, event)
	}()
}

func (s *Sink) deliver(ctx context.Context, event domain.Event) {
	to, name, err := s.recipient(ctx, event)
	if err != nil {
		s.log.Warn("notification dropped",
			zap.String("kind", string(event.Kind)),
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
		s.obsMetrics.RecordEmail(string(event.Kind), false)
		return
	}
	if to == "" {
		return
	}

	subject, body := render(event, name)
	if err := s.email.Send(ctx, []string{to}, subject, body); err != nil {
		s.log.Warn("notification send failed",
			zap.String("kind", string(event.Kind)),
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
		s.obsMetrics.RecordEmail(string(event.Kind), false)
		return
	}
	s.obsMetrics.RecordEmail(string(event.Kind), true)
	s.log.Debug("notification sent",
		zap.String("kind", string(event.Kind)),
		zap.String("user_id", event.UserID),
	)
}

func (s *Sink) recipient(ctx context.Context, event domain.Event) (string, string, error) {
	if event.Kind == domain.KindAdminAlert {
		return s.cfg.AdminEmail, "", nil
	}
	profile, err := s.profiles.GetByID(ctx, event.UserID)
	if err != nil {
		return "", "", err
	}
	name := ""
	if profile.Name != nil {
		name = *profile.Name
	}
	return profile.Email, name, nil
}

func render(event domain.Event, name string) (string, string) {
	if name == "" {
		name = "Cliente"
	}
	orderID := event.Data["order_id"]

	switch event.Kind {
	case domain.KindOrderConfirmation:
		return "Pedido de Música Confirmado - TuruTuru App",
			fmt.Sprintf(`<p>Olá, <strong>%s</strong>!</p>
<p>Recebemos seu pedido de música personalizada e ele foi confirmado com sucesso.</p>
<p><strong>Número do Pedido:</strong> %s</p>
<p>Você receberá atualizações por email conforme sua música avança na produção.</p>`, name, orderID)

	case domain.KindStatusUpdate:
		status := statusText(event.Data["status"])
		return fmt.Sprintf("Atualização do Pedido - %s", status),
			fmt.Sprintf(`<p>Olá, <strong>%s</strong>!</p>
<p>Seu pedido <strong>%s</strong> mudou de status: <strong>%s</strong>.</p>`, name, orderID, status)

	case domain.KindDelivery:
		return "Sua Música Está Pronta! 🎵 - TuruTuru App",
			fmt.Sprintf(`<p>Olá, <strong>%s</strong>!</p>
<p>Sua música personalizada está pronta! Acesse seu pedido <strong>%s</strong> para ouvir e baixar.</p>`, name, orderID)

	case domain.KindCreditPurchase:
		return "Compra de Créditos Confirmada - TuruTuru App",
			fmt.Sprintf(`<p>Olá, <strong>%s</strong>!</p>
<p>Sua compra de <strong>%s</strong> créditos (%s) foi confirmada.</p>`, name, event.Data["credits"], event.Data["package_name"])

	case domain.KindAdminAlert:
		return "Pagamento Confirmado - Pedido Pronto para Produção",
			fmt.Sprintf(`<p>O pedido <strong>%s</strong> foi pago e está pronto para produção.</p>`, orderID)

	default:
		return "Notificação - TuruTuru App", fmt.Sprintf("<p>Olá, <strong>%s</strong>!</p>", name)
	}
}

func statusText(status string) string {
	switch status {
	case "PENDING":
		return "Pedido Pendente"
	case "IN_PRODUCTION":
		return "Em Produção"
	case "COMPLETED":
		return "Música Pronta"
	case "CANCELED":
		return "Pedido Cancelado"
	default:
		return status
	}
}

var Module = fx.Module("notification.sink",
	fx.Provide(New),
)
