package listeners

import (
	"CrowdGuard/internal/models"
	"CrowdGuard/pkg/metrics"
	"CrowdGuard/pkg/util"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func scrape(m *metrics.Metrics) string {
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return w.Body.String()
}

func TestListenersCountDomainEvents(t *testing.T) {
	sig := util.NewSignals()
	m := metrics.NewMetrics()
	Register(sig, m)

	sig.Emit(models.SigSosCreated, &models.SosRequest{ID: 1, SosType: "medical"})
	inv := &models.FamilyInvitation{ID: 2, InviterEmail: "a@x.com", InviteeEmail: "b@x.com"}
	sig.Emit(models.SigInvitationCreated, inv)
	sig.Emit(models.SigInvitationAccepted, inv, &models.AcceptResult{Invitation: inv})
	sig.Emit(models.SigInvitationAccepted, inv, &models.AcceptResult{AlreadyMember: true, Invitation: inv})
	sig.Emit(models.SigUserCreate, &models.User{ID: 3, Email: "c@x.com"})

	body := scrape(m)
	assert.Contains(t, body, `sos_requests_created_total{sos_type="medical"} 1`)
	assert.Contains(t, body, `family_invitations_total{outcome="created"} 1`)
	assert.Contains(t, body, `family_invitations_total{outcome="accepted"} 1`)
	assert.Contains(t, body, `family_invitations_total{outcome="already_member"} 1`)
	assert.Contains(t, body, `business_operations_total{operation="user_register",status="success"} 1`)
}

func TestListenersIgnoreUnexpectedSenders(t *testing.T) {
	sig := util.NewSignals()
	Register(sig, nil)
	assert.NotPanics(t, func() {
		sig.Emit(models.SigSosCreated, "not a request")
		sig.Emit(models.SigInvitationAccepted, nil)
		sig.Emit(models.SigUserCreate, &models.SosRequest{})
	})
}
