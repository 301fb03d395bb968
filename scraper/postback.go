package scraper

import (
	"net/url"
	"strings"
)

const (
	scriptManagerField = "ctl00$main$ToolkitScriptManager1"
	holdTarget         = "ctl00$main$upMain|ctl00$main$btnSubmit"
	confirmTarget      = "ctl00$main$UpdatePanel3|ctl00$main$btnSubmitYes"

	// SuccessMarker is the text of the confirmation panel after a booking.
	SuccessMarker = "Your Booking is successful"

	postbackSize = 22
)

type formField struct {
	Name  string
	Value string
}

// postbackForm is an ordered list of form fields. The portal reads the fields
// positionally and tolerates duplicates, so it is not a url.Values.
type postbackForm []formField

func (f postbackForm) Encode() string {
	var b strings.Builder
	for i, field := range f {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(field.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(field.Value))
	}
	return b.String()
}

// newHoldForm builds the first postback: the Submit button of the booking
// panel. The last two entries are replaced for the confirmation.
func newHoldForm(t pageTokens, r BookingRequest) postbackForm {
	return postbackForm{
		{fieldViewState, t.ViewState},
		{fieldViewStateGenerator, t.ViewStateGenerator},
		{fieldEventValidation, t.EventValidation},
		{fieldToolkitHidden, t.ToolkitHidden},
		{scriptManagerField, holdTarget},
		{"__EVENTTARGET", ""},
		{"__EVENTARGUMENT", ""},
		{"__LASTFOCUS", ""},
		{"ctl00$main$ddlLibrary", r.library},
		{"ctl00$main$ddlFloor", r.floor},
		{"ctl00$main$ddlType", r.facilityType},
		{"ctl00$main$ddlFacility", r.facilityID},
		{"ctl00$main$ddlDate", r.date},
		{r.SessionField(), r.slot},
		{"ctl00$main$txtUserDescription", ""},
		{"ctl00$main$hBtnSubmit", ""},
		{"ctl00$main$hBtnEmail", ""},
		{"ctl00$main$txtEmail", ""},
		{"ctl00$main$hBtnResult", ""},
		{"__ASYNCPOST", "true"},
		{"ctl00$main$btnSubmit", "Submit"},
		{"", ""},
	}
}

// confirm returns the second postback: the "Yes" button of the confirmation
// dialog, with the same tokens.
func (f postbackForm) confirm() postbackForm {
	out := make(postbackForm, len(f))
	copy(out, f)
	out[postbackSize-2] = formField{"ctl00$main$btnSubmitYes", "Yes"}
	out[postbackSize-1] = formField{scriptManagerField, confirmTarget}
	return out
}
