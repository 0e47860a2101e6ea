package listeners

import (
	"CrowdGuard/internal/models"
	"CrowdGuard/pkg/logger"
	"CrowdGuard/pkg/metrics"
	"CrowdGuard/pkg/util"

	"go.uber.org/zap"
)

// Register connects the domain event handlers to sig. m may be nil.
func Register(sig *util.Signals, m *metrics.Metrics) {
	sig.Connect(models.SigUserCreate, func(sender any, params ...any) {
		user, ok := sender.(*models.User)
		if !ok {
			return
		}
		logger.Info("user registered", zap.Uint("id", user.ID), zap.String("email", user.Email), zap.Bool("staff", user.IsStaff))
		if m != nil {
			m.RecordBusinessOperation("user_register", "success")
		}
	})

	sig.Connect(models.SigSosCreated, func(sender any, params ...any) {
		sos, ok := sender.(*models.SosRequest)
		if !ok {
			return
		}
		logger.Warn("sos request raised",
			zap.Uint("id", sos.ID),
			zap.String("type", sos.SosType),
			zap.String("user_email", sos.UserEmail),
			zap.Float64("latitude", sos.Latitude),
			zap.Float64("longitude", sos.Longitude),
		)
		if m != nil {
			m.RecordSosCreated(sos.SosType)
		}
	})

	sig.Connect(models.SigInvitationCreated, func(sender any, params ...any) {
		inv, ok := sender.(*models.FamilyInvitation)
		if !ok {
			return
		}
		logger.Info("family invitation created",
			zap.Uint("id", inv.ID),
			zap.String("inviter", inv.InviterEmail),
			zap.String("invitee", inv.InviteeEmail),
			zap.Time("expires_at", inv.ExpiresAt),
		)
		if m != nil {
			m.RecordInvitation("created")
		}
	})

	sig.Connect(models.SigInvitationAccepted, func(sender any, params ...any) {
		inv, ok := sender.(*models.FamilyInvitation)
		if !ok {
			return
		}
		outcome := "accepted"
		if len(params) > 0 {
			if res, ok := params[0].(*models.AcceptResult); ok && res.AlreadyMember {
				outcome = "already_member"
			}
		}
		logger.Info("family invitation accepted",
			zap.Uint("id", inv.ID),
			zap.String("inviter", inv.InviterEmail),
			zap.String("invitee", inv.InviteeEmail),
			zap.String("outcome", outcome),
		)
		if m != nil {
			m.RecordInvitation(outcome)
		}
	})
}
