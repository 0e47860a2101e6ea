package models

// Choice is one value of a closed enumeration together with its English label.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

const (
	ZoneStatusSafe     = "safe"
	ZoneStatusModerate = "moderate"
	ZoneStatusHigh     = "high"
	ZoneStatusCritical = "critical"

	ZoneTypeCircle  = "circle"
	ZoneTypePolygon = "polygon"

	SosStatusOpen       = "open"
	SosStatusInProgress = "in_progress"
	SosStatusResolved   = "resolved"
	SosStatusCancelled  = "cancelled"

	RelationshipFriend = "friend"

	InvitationPending   = "pending"
	InvitationAccepted  = "accepted"
	InvitationExpired   = "expired"
	InvitationCancelled = "cancelled"

	ReportLost  = "lost"
	ReportFound = "found"

	ReportStatusOpen     = "open"
	ReportStatusResolved = "resolved"
	ReportStatusClosed   = "closed"
)

var ZoneStatusChoices = []Choice{
	{ZoneStatusSafe, "Safe"},
	{ZoneStatusModerate, "Moderate"},
	{ZoneStatusHigh, "High"},
	{ZoneStatusCritical, "Critical"},
}

var AmenityCategoryChoices = []Choice{
	{"medical", "Medical"},
	{"food", "Food & Water"},
	{"restroom", "Restrooms"},
	{"parking", "Parking"},
	{"accommodation", "Accommodation"},
	{"transport", "Transport"},
	{"worship", "Worship"},
	{"shopping", "Shopping"},
	{"other", "Other"},
}

var SosTypeChoices = []Choice{
	{"medical", "Medical Emergency"},
	{"lost", "Lost Person"},
	{"danger", "In Danger"},
	{"crowd", "Crowd Emergency"},
	{"other", "Other Emergency"},
}

var SosStatusChoices = []Choice{
	{SosStatusOpen, "Open"},
	{SosStatusInProgress, "In Progress"},
	{SosStatusResolved, "Resolved"},
	{SosStatusCancelled, "Cancelled"},
}

var RelationshipChoices = []Choice{
	{"spouse", "Spouse"},
	{"parent", "Parent"},
	{"child", "Child"},
	{"sibling", "Sibling"},
	{"grandparent", "Grandparent"},
	{"grandchild", "Grandchild"},
	{"uncle", "Uncle"},
	{"aunt", "Aunt"},
	{"cousin", "Cousin"},
	{RelationshipFriend, "Friend"},
	{"other", "Other"},
}

var ReportTypeChoices = []Choice{
	{ReportLost, "Lost"},
	{ReportFound, "Found"},
}

var ReportStatusChoices = []Choice{
	{ReportStatusOpen, "Open"},
	{ReportStatusResolved, "Resolved"},
	{ReportStatusClosed, "Closed"},
}

// Labeler translates a message id, returning fallback when it has no translation.
type Labeler func(id, fallback string) string

// PlainLabels returns the English labels unchanged.
func PlainLabels(id, fallback string) string { return fallback }

func (l Labeler) choice(prefix string, choices []Choice, value string) string {
	for _, ch := range choices {
		if ch.Value == value {
			if l == nil {
				return ch.Label
			}
			return l(prefix+"."+value, ch.Label)
		}
	}
	return value
}

// Choices returns choices with localized labels.
func (l Labeler) Choices(prefix string, choices []Choice) []Choice {
	out := make([]Choice, len(choices))
	for i, ch := range choices {
		out[i] = Choice{Value: ch.Value, Label: l.choice(prefix, choices, ch.Value)}
	}
	return out
}

func (l Labeler) ZoneStatus(v string) string {
	return l.choice("zone.status", ZoneStatusChoices, v)
}

func (l Labeler) AmenityCategory(v string) string {
	return l.choice("amenity.category", AmenityCategoryChoices, v)
}

func (l Labeler) SosType(v string) string { return l.choice("sos.type", SosTypeChoices, v) }

func (l Labeler) SosStatus(v string) string { return l.choice("sos.status", SosStatusChoices, v) }

func (l Labeler) Relationship(v string) string {
	return l.choice("family.relationship", RelationshipChoices, v)
}

func (l Labeler) ReportType(v string) string {
	return l.choice("lostfound.type", ReportTypeChoices, v)
}

func (l Labeler) ReportStatus(v string) string {
	return l.choice("lostfound.status", ReportStatusChoices, v)
}
