package handlers

import (
	"CrowdGuard/internal/models"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
)

// DocField describes one JSON field of a request body.
type DocField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
	CanNull  bool   `json:"can_null,omitempty"`
	Rules    string `json:"rules,omitempty"`
}

// RouteDoc documents one API route.
type RouteDoc struct {
	Group        string     `json:"group"`
	Path         string     `json:"path"`
	Method       string     `json:"method"`
	Desc         string     `json:"desc"`
	AuthRequired bool       `json:"auth_required,omitempty"`
	Query        []string   `json:"query,omitempty"`
	Request      []DocField `json:"request,omitempty"`
}

// docFields lists the json fields of a request struct with their binding rules.
func docFields(v any) []DocField {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	var out []DocField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			out = append(out, docFields(reflect.New(f.Type).Interface())...)
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		rules := f.Tag.Get("binding")
		ft, nullable := f.Type, false
		if ft.Kind() == reflect.Pointer {
			ft, nullable = ft.Elem(), true
		}
		out = append(out, DocField{
			Name:     name,
			Type:     docType(ft),
			Required: strings.Contains(rules, "required"),
			CanNull:  nullable,
			Rules:    rules,
		})
	}
	return out
}

func docType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return TypeString
	case reflect.Bool:
		return TypeBoolean
	case reflect.Float32, reflect.Float64:
		return TypeNumber
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInteger
	case reflect.Slice, reflect.Array:
		return TypeArray
	default:
		return TypeObject
	}
}

// GetDocs returns the catalogue of JSON API routes.
func (h *Handlers) GetDocs() []RouteDoc {
	p := h.cfg.APIPrefix
	article := func(noun string) string {
		if strings.ContainsRune("aeiouAEIOU", rune(noun[0])) {
			return "an " + noun
		}
		return "a " + noun
	}
	crud := func(group, base, noun string, create, put, patch any, query ...string) []RouteDoc {
		docs := []RouteDoc{
			{Group: group, Path: p + base, Method: http.MethodGet, Desc: "List active " + noun + "s", Query: query},
			{Group: group, Path: p + base, Method: http.MethodPost, Desc: "Create " + article(noun), Request: docFields(create)},
			{Group: group, Path: p + base + ":id/", Method: http.MethodGet, Desc: "Get an active " + noun},
			{Group: group, Path: p + base + ":id/", Method: http.MethodPatch, Desc: "Partially update " + article(noun), Request: docFields(patch)},
			{Group: group, Path: p + base + ":id/", Method: http.MethodDelete, Desc: "Soft delete " + article(noun)},
		}
		if put != nil {
			docs = append(docs, RouteDoc{Group: group, Path: p + base + ":id/", Method: http.MethodPut, Desc: "Replace " + article(noun), Request: docFields(put)})
		}
		return docs
	}

	docs := []RouteDoc{
		{Group: "System", Path: p + "/system/health", Method: http.MethodGet, Desc: "Database, cache and host health"},
		{Group: "System", Path: p + "/system/rate-limiter", Method: http.MethodPut, AuthRequired: true,
			Desc: "Replace the rate limit policy (staff only)"},
		{Group: "Auth", Path: p + "/auth/register/", Method: http.MethodPost, Desc: "Create an account and return an access token",
			Request: docFields(models.RegisterRequest{})},
		{Group: "Auth", Path: p + "/auth/login/", Method: http.MethodPost, Desc: "Exchange email and password for an access token",
			Request: docFields(models.LoginRequest{})},
		{Group: "Auth", Path: p + "/auth/profile/", Method: http.MethodGet, AuthRequired: true, Desc: "The caller's profile"},
		{Group: "Amenities", Path: p + "/amenities/categories/", Method: http.MethodGet, Desc: "Amenity categories with labels"},
		{Group: "Family", Path: p + "/family-members/update-location/", Method: http.MethodPost,
			Desc:    "Copy the caller's position onto the rows that stand for them in other families",
			Request: docFields(models.LocationUpdateRequest{})},
		{Group: "Invitations", Path: p + "/family-invitations/create/", Method: http.MethodPost,
			Desc: "Invite a registered user to link families", Request: docFields(models.InvitationCreateRequest{})},
		{Group: "Invitations", Path: p + "/family-invitations/accept/", Method: http.MethodGet,
			Desc: "Look up a pending invitation", Query: []string{"token"}},
		{Group: "Invitations", Path: p + "/family-invitations/accept/", Method: http.MethodPost,
			Desc: "Accept an invitation with the invitee's credentials", Request: docFields(models.InvitationAcceptRequest{})},
		{Group: "Lost & Found", Path: p + "/lost-found/:id/photo/", Method: http.MethodPost,
			Desc: "Upload a photo (multipart field \"photo\")"},
	}
	docs = append(docs, crud("Zones", "/zones/", "zone", models.ZoneRequest{}, models.ZoneRequest{}, models.ZonePatch{},
		"status", "zone_type")...)
	docs = append(docs, crud("Amenities", "/amenities/", "amenity", models.AmenityRequest{}, nil, models.AmenityPatch{}, "category")...)
	docs = append(docs, crud("SOS", "/sos-requests/", "SOS request", models.SosCreateRequest{}, nil, models.SosPatch{},
		"status", "sos_type", "user_email")...)
	docs = append(docs, crud("Family", "/family-members/", "family member", models.FamilyMemberRequest{},
		models.FamilyMemberRequest{}, models.FamilyMemberPatch{}, "user_email")...)
	docs = append(docs, crud("Lost & Found", "/lost-found/", "lost-found report", models.LostFoundCreateRequest{}, nil,
		models.LostFoundPatch{}, "report_type", "status", "user_email", "search")...)
	return docs
}

func (h *Handlers) handleDocs(c *gin.Context) {
	c.JSON(http.StatusOK, h.GetDocs())
}
