package handlers

import (
	"CrowdGuard/internal/models"
	"CrowdGuard/pkg/logger"
	"CrowdGuard/pkg/middleware"
	"CrowdGuard/pkg/response"
	"CrowdGuard/pkg/util"
	"crypto/subtle"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	sessionName     = "crowdguard_admin"
	sessionEmailKey = "admin_email"
	sessionCSRFKey  = "csrf_token"
	csrfField       = "csrf_token"
	loginPath       = "/admin-login/"
	dashboardPath   = "/dashboard/"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageFuncs = template.FuncMap{
	"datetime": func(t time.Time) string { return t.Format("02 Jan 2006 15:04") },
	"deref": func(p *float64) any {
		if p == nil {
			return "-"
		}
		return *p
	},
}

func parsePageTemplates() *template.Template {
	return template.Must(template.New("").Funcs(pageFuncs).ParseFS(templateFS, "templates/*.html"))
}

func (h *Handlers) sessionStore() sessions.Store {
	secret := h.cfg.SessionSecret
	if secret == "" {
		secret, _ = util.RandomToken(32)
		logger.Warn("SESSION_SECRET is not set; admin sessions will not survive a restart")
	}
	days := h.cfg.SessionExpireDays
	if days <= 0 {
		days = 7
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   days * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

func (h *Handlers) registerPages(engine *gin.Engine) {
	engine.SetHTMLTemplate(parsePageTemplates())

	pages := engine.Group("/")
	pages.Use(
		sessions.Sessions(sessionName, h.sessionStore()),
		middleware.LanguageMiddleware(h.cfg.LanguageDefault),
	)
	{
		pages.GET("/", h.handleAdminLoginPage)
		pages.POST("/", h.handleAdminLogin)
		pages.GET(loginPath, h.handleAdminLoginPage)
		pages.POST(loginPath, h.handleAdminLogin)
		pages.GET("/logout/", h.handleAdminLogout)

		pages.GET("/invite/", h.handleInvitePage)
		pages.POST("/invite/", h.handleInviteAccept)
	}

	dash := pages.Group("/dashboard", h.staffSession)
	{
		dash.GET("/", h.handleDashboard)
		dash.GET("/sos-requests/", h.handleDashboardSos)
		dash.GET("/sos-requests/export", h.handleExportSos)
		dash.POST("/sos-requests/:id/status", h.csrfProtect, h.handleDashboardSosStatus)
		dash.GET("/lost-found/", h.handleDashboardLostFound)
		dash.GET("/lost-found/export", h.handleExportLostFound)
		dash.GET("/amenities/", h.handleDashboardAmenities)
		dash.GET("/crowding-zones/", h.handleDashboardZones)
	}
}

// staffSession resolves the session into an active staff user on the request
// context, redirecting everyone else to the login page.
func (h *Handlers) staffSession(c *gin.Context) {
	session := sessions.Default(c)
	email, _ := session.Get(sessionEmailKey).(string)
	if email != "" {
		user, err := models.GetUserByEmail(h.db, email)
		if err == nil && user.IsActive && user.IsStaff {
			models.SetCurrentUser(c, user)
			c.Next()
			return
		}
		session.Delete(sessionEmailKey)
		_ = session.Save()
	}
	c.Redirect(http.StatusFound, loginPath)
	c.Abort()
}

// csrfToken returns the form token bound to the session, minting one on first use.
func csrfToken(c *gin.Context) string {
	session := sessions.Default(c)
	if tok, ok := session.Get(sessionCSRFKey).(string); ok && tok != "" {
		return tok
	}
	tok, err := util.RandomToken(32)
	if err != nil {
		logger.Error("csrf token not generated", zap.Error(err))
		return ""
	}
	session.Set(sessionCSRFKey, tok)
	_ = session.Save()
	return tok
}

// csrfProtect rejects dashboard form posts whose token does not match the session's.
func (h *Handlers) csrfProtect(c *gin.Context) {
	want, _ := sessions.Default(c).Get(sessionCSRFKey).(string)
	got := c.PostForm(csrfField)
	if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		logger.Warn("dashboard form rejected: bad csrf token",
			zap.String("path", c.Request.URL.Path), zap.String("ip", c.ClientIP()))
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "CSRF verification failed. Request aborted."})
		return
	}
	c.Next()
}

func flashes(c *gin.Context) []string {
	session := sessions.Default(c)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = session.Save()
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (h *Handlers) handleAdminLoginPage(c *gin.Context) {
	session := sessions.Default(c)
	if email, _ := session.Get(sessionEmailKey).(string); email != "" {
		c.Redirect(http.StatusFound, dashboardPath)
		return
	}
	c.HTML(http.StatusOK, "admin_login.html", gin.H{"Title": "Sign in", "Username": "", "Error": "", "Messages": flashes(c)})
}

func (h *Handlers) handleAdminLogin(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	user, err := h.flow.Users().Authenticate(username, password)
	if err != nil || !user.IsStaff {
		logger.Warn("admin login rejected", zap.String("username", username), zap.String("ip", c.ClientIP()))
		c.HTML(http.StatusOK, "admin_login.html", gin.H{
			"Title":    "Sign in",
			"Error":    "Invalid credentials or not an admin user.",
			"Username": username,
		})
		return
	}

	session := sessions.Default(c)
	session.Set(sessionEmailKey, user.Email)
	session.Delete(sessionCSRFKey)
	if err := session.Save(); err != nil {
		response.Error(c, err)
		return
	}
	c.Redirect(http.StatusFound, dashboardPath)
}

func (h *Handlers) handleAdminLogout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.AddFlash("You have been logged out successfully.")
	_ = session.Save()
	c.Redirect(http.StatusFound, loginPath)
}

func (h *Handlers) page(c *gin.Context, name string, data gin.H) {
	data["User"] = models.CurrentUser(c)
	data["CSRFToken"] = csrfToken(c)
	data["Messages"] = flashes(c)
	c.HTML(http.StatusOK, name, data)
}

func (h *Handlers) handleDashboard(c *gin.Context) {
	openSos, err := models.CountOpenSos(h.db)
	if err != nil {
		response.Error(c, err)
		return
	}
	openReports, err := models.CountOpenLostFound(h.db)
	if err != nil {
		response.Error(c, err)
		return
	}
	pending, err := models.CountPendingInvitations(h.db, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	byStatus, err := models.CountZonesByStatus(h.db)
	if err != nil {
		response.Error(c, err)
		return
	}
	recent, err := models.ListSosRequests(h.db, models.SosFilter{Status: models.SosStatusOpen})
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(recent) > 5 {
		recent = recent[:5]
	}

	l := h.labels(c)
	zoneStats := make([]gin.H, 0, len(models.ZoneStatusChoices))
	for _, ch := range models.ZoneStatusChoices {
		zoneStats = append(zoneStats, gin.H{"Label": l.ZoneStatus(ch.Value), "Value": ch.Value, "Count": byStatus[ch.Value]})
	}
	h.page(c, "admin_dashboard.html", gin.H{
		"Title":              "Dashboard",
		"OpenSos":            openSos,
		"OpenReports":        openReports,
		"PendingInvitations": pending,
		"ZoneStats":          zoneStats,
		"RecentSos":          sosViews(recent, l),
	})
}

func (h *Handlers) handleDashboardSos(c *gin.Context) {
	status := c.Query("status")
	rows, err := models.ListSosRequests(h.db, models.SosFilter{Status: status, SosType: c.Query("sos_type")})
	if err != nil {
		response.Error(c, err)
		return
	}
	l := h.labels(c)
	h.page(c, "admin_sos_requests.html", gin.H{
		"Title":    "SOS requests",
		"Requests": sosViews(rows, l),
		"Statuses": l.Choices("sos.status", models.SosStatusChoices),
		"Status":   status,
	})
}

func (h *Handlers) handleDashboardSosStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	status := c.PostForm("status")
	valid := false
	for _, ch := range models.SosStatusChoices {
		valid = valid || ch.Value == status
	}
	session := sessions.Default(c)
	if !valid {
		session.AddFlash("Unknown status \"" + status + "\".")
		_ = session.Save()
		c.Redirect(http.StatusFound, dashboardPath+"sos-requests/")
		return
	}
	s, err := models.UpdateSosStatus(h.db, id, status, c.PostForm("assigned_team"))
	if err != nil {
		response.Error(c, err)
		return
	}
	logger.Info("sos status changed",
		zap.Uint("id", s.ID),
		zap.String("status", s.Status),
		zap.String("by", models.CurrentUser(c).Email),
	)
	session.AddFlash("SOS request #" + c.Param("id") + " updated.")
	_ = session.Save()
	c.Redirect(http.StatusFound, dashboardPath+"sos-requests/")
}

func (h *Handlers) handleDashboardLostFound(c *gin.Context) {
	search := c.Query("search")
	rows, err := models.ListLostFound(h.db, models.LostFoundFilter{
		ReportType: c.Query("report_type"),
		Status:     c.Query("status"),
		Search:     search,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	l := h.labels(c)
	views := make([]models.LostFoundView, len(rows))
	for i := range rows {
		views[i] = rows[i].View(l)
	}
	h.page(c, "admin_lost_found.html", gin.H{"Title": "Lost & found", "Reports": views, "Search": search})
}

func (h *Handlers) handleDashboardAmenities(c *gin.Context) {
	rows, err := models.ListAmenities(h.db)
	if err != nil {
		response.Error(c, err)
		return
	}
	l := h.labels(c)
	views := make([]models.AmenityView, len(rows))
	for i := range rows {
		views[i] = rows[i].View(l)
	}
	h.page(c, "admin_amenities.html", gin.H{"Title": "Amenities", "Amenities": views})
}

func (h *Handlers) handleDashboardZones(c *gin.Context) {
	rows, err := models.ListZones(h.db)
	if err != nil {
		response.Error(c, err)
		return
	}
	l := h.labels(c)
	h.page(c, "admin_crowding_zones.html", gin.H{"Title": "Crowding zones", "Zones": zoneViews(rows, l, models.ZoneFilter{})})
}
